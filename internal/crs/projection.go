package crs

import (
	"fmt"
	"sync"

	"github.com/woozymasta/speckle2geojson/internal/geo"

	"github.com/wroge/wgs84"
)

// Projection converts projected coordinates in meters to WGS84 longitude/latitude.
// Input and output are always (x, y) ordered.
type Projection interface {
	Inverse(x, y float64) (lon, lat float64)
	Method() string
}

// Projection methods built on wgs84.
const (
	MethodGeographic         = "Geographic"
	MethodTransverseMercator = "Transverse_Mercator"
	MethodLambertConic       = "Lambert_Conformal_Conic_2SP"
	MethodAlbers             = "Albers_Conic_Equal_Area"
	MethodPseudoMercator     = "Popular_Visualisation_Pseudo_Mercator"
	MethodRegistry           = "EPSG_Registry"
)

// Ellipsoid is defined by its semi-major axis and inverse flattening.
// An inverse flattening of 0 denotes a sphere.
type Ellipsoid struct {
	Name       string
	A          float64
	InvFlatten float64
}

var (
	WGS84      = Ellipsoid{Name: "WGS 84", A: 6378137.0, InvFlatten: 298.257223563}
	GRS80      = Ellipsoid{Name: "GRS 1980", A: 6378137.0, InvFlatten: 298.257222101}
	Airy1830   = Ellipsoid{Name: "Airy 1830", A: 6377563.396, InvFlatten: 299.3249646}
	Bessel1841 = Ellipsoid{Name: "Bessel 1841", A: 6377397.155, InvFlatten: 299.1528128}
)

// Helmert holds the TOWGS84 parameters: translations in meters, position
// vector rotations in arc seconds and the scale difference in ppm.
type Helmert [7]float64

// Datum is an ellipsoid plus its shift to WGS84.
type Datum struct {
	Name      string
	Ellipsoid Ellipsoid
	ToWGS84   Helmert
}

// Shifted reports whether the datum carries a non-zero shift to WGS84.
func (d Datum) Shifted() bool {
	return d.ToWGS84 != Helmert{}
}

var (
	DatumWGS84  = Datum{Name: "WGS 84", Ellipsoid: WGS84}
	DatumETRS89 = Datum{Name: "ETRS89", Ellipsoid: GRS80}
	DatumNAD83  = Datum{Name: "NAD83", Ellipsoid: GRS80}
	DatumGDA94  = Datum{Name: "GDA94", Ellipsoid: GRS80}
	DatumRGF93  = Datum{Name: "RGF93", Ellipsoid: GRS80}
	DatumOSGB36 = Datum{
		Name:      "OSGB 1936",
		Ellipsoid: Airy1830,
		ToWGS84:   Helmert{446.448, -125.157, 542.06, 0.15, 0.247, 0.842, -20.489},
	}
	DatumDHDN = Datum{
		Name:      "DHDN",
		Ellipsoid: Bessel1841,
		ToWGS84:   Helmert{598.1, 73.7, 418.2, 0.202, 0.045, -2.455, 6.7},
	}
)

// Parameters of a projected system. Angles are degrees, lengths meters.
type Parameters struct {
	CentralMeridian   float64
	LatitudeOrigin    float64
	StandardParallel1 float64
	StandardParallel2 float64
	ScaleFactor       float64
	FalseEasting      float64
	FalseNorthing     float64
}

// Projected is a projection evaluated by wgs84, datum shift included.
type Projected struct {
	Datum  Datum
	Params Parameters

	method  string
	inverse wgs84.Func
	forward wgs84.Func
}

// NewProjected builds one of the supported methods on the datum.
func NewProjected(method string, d Datum, p Parameters) (*Projected, error) {
	if d.Ellipsoid.A <= 0 || d.Ellipsoid.InvFlatten <= 0 {
		return nil, fmt.Errorf("ellipsoid %q is not usable for %s", d.Ellipsoid.Name, method)
	}
	if p.ScaleFactor == 0 {
		p.ScaleFactor = 1
	}

	h := d.ToWGS84
	datum := wgs84.Helmert(d.Ellipsoid.A, d.Ellipsoid.InvFlatten, h[0], h[1], h[2], h[3], h[4], h[5], h[6])

	var c wgs84.CoordinateReferenceSystem
	switch method {
	case MethodGeographic:
		c = datum.LonLat()
	case MethodTransverseMercator:
		c = datum.TransverseMercator(p.CentralMeridian, p.LatitudeOrigin, p.ScaleFactor, p.FalseEasting, p.FalseNorthing)
	case MethodLambertConic:
		c = datum.LambertConformalConic2SP(p.CentralMeridian, p.LatitudeOrigin,
			p.StandardParallel1, p.StandardParallel2, p.FalseEasting, p.FalseNorthing)
	case MethodAlbers:
		c = datum.AlbersEqualAreaConic(p.CentralMeridian, p.LatitudeOrigin,
			p.StandardParallel1, p.StandardParallel2, p.FalseEasting, p.FalseNorthing)
	default:
		return nil, fmt.Errorf("unsupported projection method %q", method)
	}

	return &Projected{
		Datum:   d,
		Params:  p,
		method:  method,
		inverse: wgs84.Transform(c, wgs84.LonLat()),
		forward: wgs84.Transform(wgs84.LonLat(), c),
	}, nil
}

// Method implements Projection.
func (p *Projected) Method() string { return p.method }

// Inverse implements Projection.
func (p *Projected) Inverse(x, y float64) (lon, lat float64) {
	lon, lat, _ = p.inverse(x, y, 0)
	return lon, lat
}

// Forward projects WGS84 degrees into the system.
func (p *Projected) Forward(lon, lat float64) (x, y float64) {
	x, y, _ = p.forward(lon, lat, 0)
	return x, y
}

var registry = sync.OnceValue(wgs84.EPSG)

// fromRegistry looks a code up in the wgs84 EPSG repository.
func fromRegistry(code int) (*Projected, bool) {
	c := registry().Code(code)
	if c == nil {
		return nil, false
	}
	return &Projected{
		method:  MethodRegistry,
		inverse: wgs84.Transform(c, wgs84.LonLat()),
		forward: wgs84.Transform(wgs84.LonLat(), c),
	}, true
}

// geographicOn returns lon/lat on the datum. Unshifted datums pass through.
func geographicOn(d Datum) (Projection, error) {
	if !d.Shifted() {
		return geographic{}, nil
	}
	return NewProjected(MethodGeographic, d, Parameters{})
}

// geographic treats coordinates as WGS84 longitude/latitude degrees.
type geographic struct{}

func (geographic) Inverse(x, y float64) (float64, float64) { return x, y }
func (geographic) Method() string                          { return MethodGeographic }

// webMercator is the spherical Pseudo-Mercator of EPSG:3857.
type webMercator struct {
	falseEasting  float64
	falseNorthing float64
}

func (w webMercator) Inverse(x, y float64) (float64, float64) {
	return geo.MercatorToLonLat(x-w.falseEasting, y-w.falseNorthing)
}

func (webMercator) Method() string { return MethodPseudoMercator }
