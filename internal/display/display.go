// Package display derives map rendering hints for features.
package display

import (
	"fmt"

	"github.com/woozymasta/speckle2geojson/internal/geo"
	"github.com/woozymasta/speckle2geojson/internal/geometry"
	"github.com/woozymasta/speckle2geojson/internal/scene"
	"github.com/woozymasta/speckle2geojson/internal/traverse"
)

// ARGB colors packed as in scene render materials.
const (
	Grey        int64 = 255<<24 | 150<<16 | 150<<8 | 150
	SpeckleBlue int64 = 255<<24 | 10<<16 | 132<<8 | 255
)

// Rendering defaults.
const (
	MeshLineWidth    = 0.3
	LineLineWidth    = 3.0
	DefaultLineWidth = 1.0
	DefaultRadius    = 10.0
)

// Palette carries the run scoped fallback color.
type Palette struct {
	Default int64
}

// NewPalette picks the fallback color for a walked graph:
// Speckle blue for GIS layers, grey otherwise.
func NewPalette(arena *traverse.Arena) Palette {
	for i := 0; i < arena.Len(); i++ {
		if arena.At(i).Kind == scene.KindVectorLayer {
			return Palette{Default: SpeckleBlue}
		}
	}
	return Palette{Default: Grey}
}

// Color resolves the color of a color source node: render material diffuse,
// display style color, a uniform vertex color, or the palette default.
func (p Palette) Color(n *scene.Node) int64 {
	if n == nil {
		return p.Default
	}

	if rm := n.Child("renderMaterial", "@renderMaterial"); rm != nil {
		if c, ok := rm.Float("diffuse"); ok {
			return int64(c)
		}
		return p.Default
	}
	if ds := n.Child("displayStyle", "@displayStyle"); ds != nil {
		if c, ok := ds.Float("color"); ok {
			return int64(c)
		}
		return p.Default
	}

	if scene.Classify(n) == scene.KindMesh {
		if colors, ok := n.Numbers("colors"); ok && len(colors) > 0 {
			first := colors[0]
			for _, c := range colors[1:] {
				if c != first {
					return p.Default
				}
			}
			return int64(first)
		}
	}

	return p.Default
}

// Hex renders the RGB channels of an ARGB color as #rrggbb.
func Hex(argb int64) string {
	r := (argb & 0xFF0000) >> 16
	g := (argb & 0xFF00) >> 8
	b := argb & 0xFF
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// LineWidth depends on the source node kind and the emitted geometry type.
func LineWidth(source scene.Kind, geomType string) float64 {
	switch {
	case source == scene.KindMesh || source == scene.KindBrep:
		return MeshLineWidth
	case geometry.FamilyOf(geomType) == geometry.FamilyLine:
		return LineLineWidth
	}
	return DefaultLineWidth
}

// Radius reads a numeric "weight" property, falling back to DefaultRadius.
func Radius(properties map[string]any) float64 {
	if f, ok := scene.AsFloat(properties["weight"]); ok {
		return f
	}
	return DefaultRadius
}

// Properties builds the display hints of one feature.
func (p Palette) Properties(colorSource *scene.Node, source scene.Kind, geomType string, properties map[string]any) *geo.DisplayProperties {
	return &geo.DisplayProperties{
		Color:      Hex(p.Color(colorSource)),
		LineWidth:  LineWidth(source, geomType),
		Radius:     Radius(properties),
		ObjectType: string(geometry.FamilyOf(geomType)),
	}
}
