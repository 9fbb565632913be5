package crs

import (
	"fmt"
	"strconv"
	"strings"
)

// system is a parsed or looked up coordinate reference system before
// run specific parameters are attached.
type system struct {
	proj      Projection
	name      string
	authority string
}

var geographicCodes = map[int]Datum{
	4326: DatumWGS84,
	4258: DatumETRS89,
	4269: DatumNAD83,
	4283: DatumGDA94,
	4171: DatumRGF93,
	4277: DatumOSGB36,
	4314: DatumDHDN,
}

// projectedCode is a projected EPSG entry built on wgs84.
type projectedCode struct {
	name   string
	method string
	datum  Datum
	params Parameters
}

var projectedCodes = map[int]projectedCode{
	27700: {"OSGB36 / British National Grid", MethodTransverseMercator, DatumOSGB36,
		Parameters{CentralMeridian: -2, LatitudeOrigin: 49, ScaleFactor: 0.9996012717, FalseEasting: 400000, FalseNorthing: -100000}},
	2154: {"RGF93 v1 / Lambert-93", MethodLambertConic, DatumRGF93,
		Parameters{CentralMeridian: 3, LatitudeOrigin: 46.5, StandardParallel1: 49, StandardParallel2: 44, FalseEasting: 700000, FalseNorthing: 6600000}},
	3006: {"SWEREF99 TM", MethodTransverseMercator, Datum{Name: "SWEREF99", Ellipsoid: GRS80},
		Parameters{CentralMeridian: 15, ScaleFactor: 0.9996, FalseEasting: 500000}},
	2193: {"NZGD2000 / New Zealand Transverse Mercator 2000", MethodTransverseMercator, Datum{Name: "NZGD2000", Ellipsoid: GRS80},
		Parameters{CentralMeridian: 173, ScaleFactor: 0.9996, FalseEasting: 1600000, FalseNorthing: 10000000}},
	5070: {"NAD83 / Conus Albers", MethodAlbers, DatumNAD83,
		Parameters{CentralMeridian: -96, LatitudeOrigin: 23, StandardParallel1: 29.5, StandardParallel2: 45.5}},
	3577: {"GDA94 / Australian Albers", MethodAlbers, DatumGDA94,
		Parameters{CentralMeridian: 132, StandardParallel1: -18, StandardParallel2: -36}},
}

// ParseAuthority normalizes "EPSG:32633", "epsg:32633", "urn:ogc:def:crs:EPSG::32633",
// "OGC:CRS84" and bare "32633" into an EPSG code.
func ParseAuthority(s string) (int, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	switch upper {
	case "CRS84", "OGC:CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84":
		return 4326, nil
	}

	code := upper
	if i := strings.LastIndexByte(upper, ':'); i >= 0 {
		prefix := upper[:i]
		if !strings.HasPrefix(prefix, "EPSG") && !strings.HasPrefix(prefix, "URN:OGC:DEF:CRS:EPSG") {
			return 0, fmt.Errorf("unsupported authority %q", s)
		}
		code = upper[i+1:]
	}

	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid authority code %q", s)
	}
	return n, nil
}

// lookupEPSG builds the projection for an EPSG code: the built-in table
// first, then the wgs84 repository.
func lookupEPSG(code int) (*system, error) {
	auth := fmt.Sprintf("EPSG:%d", code)

	if d, ok := geographicCodes[code]; ok {
		proj, err := geographicOn(d)
		if err != nil {
			return nil, err
		}
		return &system{proj: proj, name: d.Name, authority: auth}, nil
	}

	if code == 3857 || code == 900913 {
		return &system{proj: webMercator{}, name: "WGS 84 / Pseudo-Mercator", authority: auth}, nil
	}

	entry, ok := projectedCodes[code]
	if !ok {
		entry, ok = gridCode(code)
	}
	if ok {
		proj, err := NewProjected(entry.method, entry.datum, entry.params)
		if err != nil {
			return nil, err
		}
		return &system{proj: proj, name: entry.name, authority: auth}, nil
	}

	if proj, ok := fromRegistry(code); ok {
		return &system{proj: proj, name: auth, authority: auth}, nil
	}

	return nil, fmt.Errorf("EPSG:%d is not supported", code)
}

// gridCode covers the numbered zone families.
func gridCode(code int) (projectedCode, bool) {
	switch {
	case code >= 32601 && code <= 32660:
		zone := code - 32600
		return utm(fmt.Sprintf("WGS 84 / UTM zone %dN", zone), DatumWGS84, zone, false), true

	case code >= 32701 && code <= 32760:
		zone := code - 32700
		return utm(fmt.Sprintf("WGS 84 / UTM zone %dS", zone), DatumWGS84, zone, true), true

	case code >= 25828 && code <= 25838:
		zone := code - 25800
		return utm(fmt.Sprintf("ETRS89 / UTM zone %dN", zone), DatumETRS89, zone, false), true

	case code >= 26901 && code <= 26923:
		zone := code - 26900
		return utm(fmt.Sprintf("NAD83 / UTM zone %dN", zone), DatumNAD83, zone, false), true

	case code >= 31466 && code <= 31469:
		zone := code - 31464
		return projectedCode{
			name:   fmt.Sprintf("DHDN / 3-degree Gauss-Kruger zone %d", zone),
			method: MethodTransverseMercator,
			datum:  DatumDHDN,
			params: Parameters{
				CentralMeridian: float64(zone * 3),
				ScaleFactor:     1,
				FalseEasting:    float64(zone)*1000000 + 500000,
			},
		}, true
	}
	return projectedCode{}, false
}

func utm(name string, d Datum, zone int, south bool) projectedCode {
	fn := 0.0
	if south {
		fn = 10000000
	}
	return projectedCode{
		name:   name,
		method: MethodTransverseMercator,
		datum:  d,
		params: Parameters{
			CentralMeridian: float64(zone)*6 - 183,
			ScaleFactor:     0.9996,
			FalseEasting:    500000,
			FalseNorthing:   fn,
		},
	}
}
