package transform

import (
	"math"

	"github.com/woozymasta/speckle2geojson/internal/crs"
	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/geo"
)

// Pipeline converts native coordinates to WGS84 for one CRS definition.
// The per-point order is fixed: rotate, scale, translate, reproject.
type Pipeline struct {
	proj    crs.Projection
	rot     geo.Rotation
	scale   float64
	offsetX float64
	offsetY float64
}

// NewPipeline precomputes the rotation of def.
func NewPipeline(def *crs.Definition) *Pipeline {
	scale := def.Scale
	if scale == 0 {
		scale = 1
	}
	return &Pipeline{
		proj:    def.Projection(),
		rot:     geo.NewRotation(def.Rotation),
		scale:   scale,
		offsetX: def.OffsetX,
		offsetY: def.OffsetY,
	}
}

// Local applies rotation, scale and translation, returning projected meters.
func (p *Pipeline) Local(x, y float64) (float64, float64) {
	x, y = p.rot.Apply(x, y)
	x *= p.scale
	y *= p.scale
	return x + p.offsetX, y + p.offsetY
}

// Point transforms one native coordinate to (lon, lat).
func (p *Pipeline) Point(x, y float64) (lon, lat float64) {
	return p.proj.Inverse(p.Local(x, y))
}

// Height scales a native height to meters.
func (p *Pipeline) Height(z float64) float64 {
	return z * p.scale
}

// Apply transforms the whole buffer in place. A non-finite result fails the run,
// since a partially transformed buffer cannot be sliced safely.
func Apply(def *crs.Definition, b *Buffer) error {
	if def == nil || def.Projection() == nil {
		return fault.New(fault.TransformFailure, "transform", "no projection")
	}

	p := NewPipeline(def)
	for i, pt := range b.points {
		lon, lat := p.Point(pt[0], pt[1])
		if !finite(lon) || !finite(lat) {
			return fault.Newf(fault.TransformFailure, "transform",
				"coordinate %d (%g, %g) projects to (%g, %g)", i, pt[0], pt[1], lon, lat)
		}
		b.points[i][0], b.points[i][1] = lon, lat
	}
	for i, z := range b.heights {
		b.heights[i] = p.Height(z)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
