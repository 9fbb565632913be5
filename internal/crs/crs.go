// Package crs resolves the coordinate reference system of a scene graph
// and converts its projected coordinates to WGS84.
package crs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/scene"
	"github.com/woozymasta/speckle2geojson/internal/traverse"

	"github.com/rs/zerolog/log"
)

// Default anchor used when the caller gives no coordinates.
const (
	DefaultLat = 51.52486388756923
	DefaultLon = 0.1621445437168942
)

// Source tells where a definition came from.
type Source string

const (
	SourceAuthority   Source = "authority"
	SourceDeclared    Source = "declared"
	SourceSynthesized Source = "synthesized"
)

// Hints are the caller supplied CRS inputs of a run.
type Hints struct {
	// Authority code such as "EPSG:32633"; takes precedence over declared CRS
	Authority string

	Lat         float64
	Lon         float64
	NorthOffset float64 // degrees
}

// DefaultHints returns the fallback anchor with no rotation.
func DefaultHints() Hints {
	return Hints{Lat: DefaultLat, Lon: DefaultLon}
}

// Definition is the single active CRS of a conversion run. Immutable once resolved.
type Definition struct {
	proj Projection

	Name      string
	WKT       string
	Authority string
	Units     string // native unit name of source coordinates
	Source    Source

	Rotation float64 // degrees, applied before scaling
	OffsetX  float64 // meters
	OffsetY  float64 // meters
	Scale    float64 // native unit to meters
}

// Projection returns the inverse projection to WGS84.
func (d *Definition) Projection() Projection {
	return d.proj
}

// ModelCRS renders the description the output collection reports.
func (d *Definition) ModelCRS() string {
	if d.Authority != "" {
		return fmt.Sprintf("%s, %s", d.Authority, d.Name)
	}
	return d.Name
}

// Resolve determines the CRS of the walked graph.
//
// An authority hint wins outright. Otherwise the first terminal node whose
// nearest ancestor (or itself) declares a "crs" member supplies it. Failing both
// a local Transverse Mercator centered at the hinted anchor is synthesized.
func Resolve(arena *traverse.Arena, h Hints) (*Definition, error) {
	const op = "resolve crs"

	if strings.TrimSpace(h.Authority) != "" {
		def, err := FromAuthority(h.Authority)
		if err != nil {
			return nil, fault.Wrap(fault.CRSNotResolvable, op, err)
		}
		def.Rotation = h.NorthOffset
		def.Units = DisplayUnits(arena)
		def.Scale = UnitScale(def.Units)
		return def, nil
	}

	if node := findDeclared(arena); node != nil {
		def, err := FromDeclaration(node)
		if err != nil {
			return nil, fault.Wrap(fault.CRSNotResolvable, op, err).WithNode(node.ID)
		}
		if _, ok := node.Float("rotation"); !ok {
			def.Rotation = h.NorthOffset
		}
		if def.Units == "" {
			def.Units = DisplayUnits(arena)
		}
		def.Scale = UnitScale(def.Units)
		return def, nil
	}

	def, err := Synthesize(h.Lat, h.Lon)
	if err != nil {
		return nil, fault.Wrap(fault.CRSNotResolvable, op, err)
	}
	def.Rotation = h.NorthOffset
	def.Units = DisplayUnits(arena)
	def.Scale = UnitScale(def.Units)
	return def, nil
}

// FromAuthority builds a definition for a supported authority code.
func FromAuthority(code string) (*Definition, error) {
	n, err := ParseAuthority(code)
	if err != nil {
		return nil, err
	}
	sys, err := lookupEPSG(n)
	if err != nil {
		return nil, err
	}
	return &Definition{
		proj:      sys.proj,
		Name:      sys.name,
		Authority: sys.authority,
		Source:    SourceAuthority,
		Scale:     1,
	}, nil
}

// FromDeclaration reads a declared CRS node: wkt, units_native, offset_x, offset_y, rotation.
// A declaration without WKT may name an "authority_id" instead.
func FromDeclaration(node *scene.Node) (*Definition, error) {
	wkt := node.String("wkt")

	var sys *system
	var err error
	switch {
	case wkt != "":
		sys, err = parseSystem(wkt)
	case node.String("authority_id") != "":
		var code int
		if code, err = ParseAuthority(node.String("authority_id")); err == nil {
			sys, err = lookupEPSG(code)
		}
	default:
		err = fmt.Errorf("crs declaration has neither wkt nor authority_id")
	}
	if err != nil {
		return nil, err
	}

	def := &Definition{
		proj:      sys.proj,
		Name:      sys.name,
		WKT:       wkt,
		Authority: sys.authority,
		Units:     node.String("units_native"),
		Source:    SourceDeclared,
		Scale:     1,
	}
	def.OffsetX, _ = node.Float("offset_x")
	def.OffsetY, _ = node.Float("offset_y")
	def.Rotation, _ = node.Float("rotation")
	if def.Name == "" {
		def.Name = node.String("name")
	}
	return def, nil
}

// Synthesize builds the local Transverse Mercator centered at lat/lon on WGS84.
func Synthesize(lat, lon float64) (*Definition, error) {
	wkt := DefaultWKT(lat, lon)
	sys, err := parseSystem(wkt)
	if err != nil {
		return nil, err
	}
	return &Definition{
		proj:   sys.proj,
		Name:   sys.name,
		WKT:    wkt,
		Source: SourceSynthesized,
		Scale:  1,
	}, nil
}

// DefaultWKT renders the synthesized CRS as WKT1.
func DefaultWKT(lat, lon float64) string {
	la, lo := formatCoord(lat), formatCoord(lon)
	return `PROJCS["SpeckleCRS_latlon_` + la + `_` + lo + `", ` +
		`GEOGCS["GCS_WGS_1984", DATUM["D_WGS_1984", SPHEROID["WGS_1984", 6378137.0, 298.257223563]], ` +
		`PRIMEM["Greenwich", 0.0], UNIT["Degree", 0.0174532925199433]], ` +
		`PROJECTION["Transverse_Mercator"], ` +
		`PARAMETER["False_Easting", 0.0], PARAMETER["False_Northing", 0.0], ` +
		`PARAMETER["Central_Meridian", ` + lo + `], PARAMETER["Scale_Factor", 1.0], ` +
		`PARAMETER["Latitude_Of_Origin", ` + la + `], UNIT["Meter", 1.0]]`
}

// formatCoord prints the shortest exact representation, keeping a ".0" on integers.
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// findDeclared returns the first declared CRS node reachable from a terminal context.
func findDeclared(arena *traverse.Arena) *scene.Node {
	if arena.Len() == 0 {
		return nil
	}

	for i := 0; i < arena.Len(); i++ {
		if !arena.At(i).Kind.Terminal() {
			continue
		}
		if j := arena.Nearest(i, declaresCRS); j != traverse.NoParent {
			return arena.At(j).Node.Child("crs")
		}
	}

	// graphs without convertible nodes still report the root declaration
	if root := arena.At(0).Node; declaresCRS(root) {
		return root.Child("crs")
	}
	return nil
}

func declaresCRS(n *scene.Node) bool {
	c := n.Child("crs")
	if c == nil {
		return false
	}
	return scene.Classify(c) == scene.KindCRS || c.Has("wkt")
}

// DisplayUnits finds the native unit of the geometry: the units of the first
// display mesh of the first displayable node, or the first node declaring units.
func DisplayUnits(arena *traverse.Arena) string {
	for i := 0; i < arena.Len(); i++ {
		n := arena.At(i).Node

		if dv, ok := n.Lookup("displayValue", "@displayValue"); ok {
			switch t := dv.(type) {
			case []any:
				if len(t) > 0 {
					if first, ok := t[0].(*scene.Node); ok {
						return first.Units()
					}
				}
			case *scene.Node:
				return n.Units()
			}
			continue
		}

		if u := n.Units(); u != "" {
			return u
		}
	}

	log.Debug().Msg("No native units found, assuming meters")
	return ""
}
