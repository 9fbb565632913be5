package crs

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

const rad2deg = 180.0 / math.Pi

// parseSystem interprets WKT1 or WKT2 text.
func parseSystem(text string) (*system, error) {
	root, err := parseWKT(text)
	if err != nil {
		return nil, err
	}
	return interpret(root, nil)
}

// interpret builds a system from a parsed WKT root. shift overrides the
// datum's own TOWGS84 when a WKT2 BOUNDCRS supplies one.
func interpret(root *wktNode, shift *Helmert) (*system, error) {
	switch root.Keyword {
	case "BOUNDCRS":
		source := firstChild(root.Child("SOURCECRS"))
		if source == nil {
			return nil, fmt.Errorf("bound crs has no source crs")
		}
		h, err := abridgedShift(root.Child("ABRIDGEDTRANSFORMATION"))
		if err != nil {
			return nil, err
		}
		return interpret(source, h)

	case "COMPOUNDCRS", "COMPD_CS":
		horizontal := root.Child("PROJCS", "PROJCRS", "PROJECTEDCRS", "GEOGCS", "GEOGCRS", "GEODCRS", "GEOGRAPHICCRS", "BOUNDCRS")
		if horizontal == nil {
			return nil, fmt.Errorf("compound crs %q has no horizontal component", root.Name())
		}
		return interpret(horizontal, shift)

	case "GEOGCS", "GEOGCRS", "GEODCRS", "GEOGRAPHICCRS":
		proj, err := geographicOn(datumOf(root, shift))
		if err != nil {
			return nil, err
		}
		return &system{proj: proj, name: root.Name(), authority: authorityOf(root)}, nil

	case "PROJCS", "PROJCRS", "PROJECTEDCRS":
		return projected(root, shift)
	}

	return nil, fmt.Errorf("unsupported wkt root %s", root.Keyword)
}

// firstChild returns the first nested node of n.
func firstChild(n *wktNode) *wktNode {
	if n == nil {
		return nil
	}
	for _, a := range n.Args {
		if c, ok := a.(*wktNode); ok {
			return c
		}
	}
	return nil
}

// authorityOf reads AUTHORITY["EPSG","4326"] or ID["EPSG",4326] of a node.
func authorityOf(n *wktNode) string {
	id := n.Child("AUTHORITY", "ID")
	if id == nil || len(id.Args) < 2 {
		return ""
	}
	switch code := id.Args[1].(type) {
	case string:
		return id.Name() + ":" + code
	case float64:
		return fmt.Sprintf("%s:%d", id.Name(), int(code))
	}
	return ""
}

// datumOf reads the ellipsoid and TOWGS84 of a CRS node.
func datumOf(root *wktNode, shift *Helmert) Datum {
	d := Datum{Ellipsoid: WGS84}

	if dn := root.Find("DATUM", "GEODETICDATUM", "TRF"); dn != nil {
		d.Name = dn.Name()
	}
	if sph := root.Find("SPHEROID", "ELLIPSOID"); sph != nil {
		a, okA := sph.Number(1)
		inv, okF := sph.Number(2)
		if okA && okF && a > 0 {
			d.Ellipsoid = Ellipsoid{Name: sph.Name(), A: a, InvFlatten: inv}
		}
	}

	if shift != nil {
		d.ToWGS84 = *shift
		return d
	}
	if tw := root.Find("TOWGS84"); tw != nil {
		for i := range d.ToWGS84 {
			d.ToWGS84[i], _ = tw.Number(i)
		}
	}

	if !d.Shifted() && d.Ellipsoid.A != WGS84.A {
		log.Warn().
			Str("datum", d.Name).
			Str("ellipsoid", d.Ellipsoid.Name).
			Msg("Datum declares no shift to WGS84, coordinates are taken as WGS84")
	}
	return d
}

// abridgedShift reads the Helmert parameters of a WKT2 ABRIDGEDTRANSFORMATION.
// Coordinate frame rotations are turned into position vector rotations.
func abridgedShift(n *wktNode) (*Helmert, error) {
	if n == nil {
		return nil, fmt.Errorf("bound crs has no abridged transformation")
	}

	values := make(map[string]float64)
	for _, p := range n.Children("PARAMETER") {
		if v, ok := p.Number(1); ok {
			values[normalizeParam(p.Name())] = v
		}
	}

	h := Helmert{
		values["xaxistranslation"],
		values["yaxistranslation"],
		values["zaxistranslation"],
		values["xaxisrotation"],
		values["yaxisrotation"],
		values["zaxisrotation"],
		values["scaledifference"],
	}

	method := normalizeParam(n.Child("METHOD").Name())
	if strings.Contains(method, "coordinateframe") {
		h[3], h[4], h[5] = -h[3], -h[4], -h[5]
	}
	return &h, nil
}

type wktParams struct {
	values map[string]*wktNode
	linear float64
}

func (p wktParams) find(names ...string) (*wktNode, float64, bool) {
	for _, name := range names {
		if n, ok := p.values[name]; ok {
			if v, ok := n.Number(1); ok {
				return n, v, true
			}
		}
	}
	return nil, 0, false
}

func (p wktParams) has(names ...string) bool {
	_, _, ok := p.find(names...)
	return ok
}

// angle returns a parameter in degrees.
func (p wktParams) angle(def float64, names ...string) float64 {
	n, v, ok := p.find(names...)
	if !ok {
		return def
	}
	if u := n.Child("ANGLEUNIT", "UNIT"); u != nil {
		if f, ok := u.Number(1); ok && f > 0 {
			return v * f * rad2deg
		}
	}
	return v
}

// length returns a parameter in meters.
func (p wktParams) length(def float64, names ...string) float64 {
	n, v, ok := p.find(names...)
	if !ok {
		return def
	}
	if u := n.Child("LENGTHUNIT", "UNIT"); u != nil {
		if f, ok := u.Number(1); ok && f > 0 {
			return v * f
		}
	}
	return v * p.linear
}

func (p wktParams) scale(def float64, names ...string) float64 {
	_, v, ok := p.find(names...)
	if !ok {
		return def
	}
	return v
}

// WKT1 and WKT2 spellings of the parameters, normalized.
var (
	paramLon   = []string{"centralmeridian", "longitudeofnaturalorigin", "longitudeoforigin", "longitudeofcenter", "longitudeoffalseorigin"}
	paramLat   = []string{"latitudeoforigin", "latitudeofnaturalorigin", "latitudeofcenter", "latitudeoffalseorigin"}
	paramSP1   = []string{"standardparallel1", "latitudeof1ststandardparallel"}
	paramSP2   = []string{"standardparallel2", "latitudeof2ndstandardparallel"}
	paramScale = []string{"scalefactor", "scalefactoratnaturalorigin"}
	paramEast  = []string{"falseeasting", "eastingatfalseorigin"}
	paramNorth = []string{"falsenorthing", "northingatfalseorigin"}
)

func projected(root *wktNode, shift *Helmert) (*system, error) {
	sys := &system{name: root.Name(), authority: authorityOf(root)}
	datum := datumOf(root, shift)

	params := wktParams{values: make(map[string]*wktNode), linear: linearUnit(root)}

	var method string
	if proj := root.Child("PROJECTION"); proj != nil {
		method = proj.Name()
		for _, p := range root.Children("PARAMETER") {
			params.values[normalizeParam(p.Name())] = p
		}
	} else if conv := root.Child("CONVERSION"); conv != nil {
		method = conv.Child("METHOD", "PROJECTION").Name()
		for _, p := range conv.Children("PARAMETER") {
			params.values[normalizeParam(p.Name())] = p
		}
	}

	p := Parameters{
		CentralMeridian: params.angle(0, paramLon...),
		LatitudeOrigin:  params.angle(0, paramLat...),
		ScaleFactor:     params.scale(1, paramScale...),
		FalseEasting:    params.length(0, paramEast...),
		FalseNorthing:   params.length(0, paramNorth...),
	}

	var name string
	switch m := normalizeParam(method); {
	case m == "transversemercator" || m == "gausskruger":
		name = MethodTransverseMercator

	case strings.HasPrefix(m, "lambertconformalconic") || strings.HasPrefix(m, "lambertconicconformal"):
		name = MethodLambertConic
		if strings.HasSuffix(m, "1sp") || !params.has(paramSP1...) {
			// one standard parallel at the origin, without scale reduction
			if p.ScaleFactor != 1 {
				return nil, fmt.Errorf("lambert conic with scale factor %g is not supported", p.ScaleFactor)
			}
			p.StandardParallel1, p.StandardParallel2 = p.LatitudeOrigin, p.LatitudeOrigin
		} else {
			p.StandardParallel1 = params.angle(0, paramSP1...)
			p.StandardParallel2 = params.angle(p.StandardParallel1, paramSP2...)
		}
		if p.StandardParallel1 == 0 && p.StandardParallel2 == 0 {
			return nil, fmt.Errorf("lambert conic %q has no standard parallel", sys.name)
		}

	case strings.HasPrefix(m, "albers"):
		name = MethodAlbers
		p.StandardParallel1 = params.angle(0, paramSP1...)
		p.StandardParallel2 = params.angle(p.StandardParallel1, paramSP2...)

	case strings.Contains(m, "pseudomercator") || strings.Contains(m, "auxiliarysphere") || isSphericalMercator(root, m):
		sys.proj = webMercator{falseEasting: p.FalseEasting, falseNorthing: p.FalseNorthing}
		return sys, nil
	}

	if name != "" {
		proj, err := NewProjected(name, datum, p)
		if err != nil {
			return nil, err
		}
		sys.proj = proj
		return sys, nil
	}

	// fall back to a known authority code when the method is not implemented
	if sys.authority != "" {
		if code, err := ParseAuthority(sys.authority); err == nil {
			if known, err := lookupEPSG(code); err == nil {
				known.name = sys.name
				return known, nil
			}
		}
	}

	return nil, fmt.Errorf("unsupported projection method %q", method)
}

// isSphericalMercator detects the legacy 900913 form: Mercator_1SP on a sphere of radius 6378137.
func isSphericalMercator(root *wktNode, method string) bool {
	if method != "mercator1sp" && method != "mercator" {
		return false
	}
	if ext := root.Child("EXTENSION"); ext != nil && len(ext.Args) > 1 {
		if proj4, ok := ext.Args[1].(string); ok {
			return strings.Contains(proj4, "+a=6378137") && strings.Contains(proj4, "+b=6378137")
		}
	}
	if sph := root.Find("SPHEROID", "ELLIPSOID"); sph != nil {
		inv, _ := sph.Number(2)
		return inv == 0
	}
	return false
}

// linearUnit returns the meters per projected unit, defaulting to 1.
func linearUnit(root *wktNode) float64 {
	u := root.Child("UNIT", "LENGTHUNIT")
	if u == nil {
		if cs := root.Child("CS"); cs != nil {
			u = cs.Child("LENGTHUNIT", "UNIT")
		}
	}
	if u == nil {
		for _, axis := range root.Children("AXIS") {
			if u = axis.Child("LENGTHUNIT", "UNIT"); u != nil {
				break
			}
		}
	}
	if u == nil {
		return 1
	}
	if f, ok := u.Number(1); ok && f > 0 {
		return f
	}
	return 1
}
