package transform

import (
	"math"
	"testing"

	"github.com/woozymasta/speckle2geojson/internal/crs"
	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/geometry"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(t *testing.T) *crs.Definition {
	t.Helper()
	def, err := crs.FromAuthority("EPSG:4326")
	require.NoError(t, err)
	return def
}

func shape(typ string, parts geometry.Encoding, pts ...orb.Point) geometry.Shape {
	return geometry.Shape{Type: typ, Parts: parts, Points: pts, Heights: make([]float64, len(pts))}
}

func TestSliceKeepsPerFeatureLengths(t *testing.T) {
	shapes := []geometry.Shape{
		shape(geometry.TypeLineString, geometry.Encoding{{2}}, orb.Point{0, 0}, orb.Point{1, 1}),
		shape(geometry.TypeLineString, geometry.Encoding{{3}}, orb.Point{2, 2}, orb.Point{3, 3}, orb.Point{4, 4}),
		shape(geometry.TypeMultiPoint, geometry.Encoding{nil, {1}}, orb.Point{5, 5}),
	}

	for _, rotation := range []float64{0, 33, 90, 270} {
		b := NewBuffer()
		for _, s := range shapes {
			b.Append(s)
		}
		require.Equal(t, 6, b.Len())

		def := identity(t)
		def.Rotation = rotation
		def.Scale = 0.001
		def.OffsetX = 3
		def.OffsetY = -2
		require.NoError(t, Apply(def, b))

		geoms, err := b.Geometries()
		require.NoError(t, err)
		require.Len(t, geoms, 3)

		assert.Len(t, geoms[0].(orb.LineString), 2)
		assert.Len(t, geoms[1].(orb.LineString), 3)
		assert.Len(t, geoms[2].(orb.MultiPoint), 1)
	}
}

func TestSliceDetectsMismatch(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 1}, {2, 2}}
	types := []string{geometry.TypeLineString}

	_, err := Slice(pts, types, []geometry.Encoding{{{2}}})
	assert.ErrorContains(t, err, "left over")

	_, err = Slice(pts, types, []geometry.Encoding{{{4}}})
	assert.ErrorContains(t, err, "need 4")

	_, err = Slice(pts, []string{geometry.TypeLineString}, []geometry.Encoding{{nil, {3}}})
	assert.Error(t, err)
}

func TestSliceMultiPolygonRings(t *testing.T) {
	pts := []orb.Point{
		{0, 0}, {4, 0}, {4, 4}, {0, 4}, // boundary
		{1, 1}, {2, 1}, {2, 2}, // hole
		{5, 5}, {6, 5}, {6, 6}, // second polygon
	}
	geoms, err := Slice(pts, []string{geometry.TypeMultiPolygon}, []geometry.Encoding{{nil, {4, 3}, {3}}})
	require.NoError(t, err)

	mp := geoms[0].(orb.MultiPolygon)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2)
	assert.Len(t, mp[0][0], 4)
	assert.Len(t, mp[0][1], 3)
	assert.Equal(t, orb.Ring{{5, 5}, {6, 5}, {6, 6}}, mp[1][0])
}

func TestPipelineOrder(t *testing.T) {
	def := identity(t)
	def.Rotation = 90
	def.Scale = 2
	def.OffsetX = 10
	def.OffsetY = 20

	p := NewPipeline(def)

	// rotate (1, 0) by 90 degrees -> (0, 1), scale -> (0, 2), translate -> (10, 22)
	lon, lat := p.Point(1, 0)
	assert.InDelta(t, 10, lon, 1e-12)
	assert.InDelta(t, 22, lat, 1e-12)
	assert.Equal(t, 6.0, p.Height(3))
}

func TestApplyProjectsAnchor(t *testing.T) {
	def, err := crs.Synthesize(crs.DefaultLat, crs.DefaultLon)
	require.NoError(t, err)

	b := NewBuffer()
	b.Append(shape(geometry.TypeMultiPoint, geometry.Encoding{nil, {1}}, orb.Point{0, 0}))
	require.NoError(t, Apply(def, b))

	got := b.Points(0)[0]
	assert.InDelta(t, crs.DefaultLon, got[0], 1e-7)
	assert.InDelta(t, crs.DefaultLat, got[1], 1e-7)
}

func TestApplyRejectsNonFinite(t *testing.T) {
	b := NewBuffer()
	b.Append(shape(geometry.TypeMultiPoint, geometry.Encoding{nil, {1}}, orb.Point{math.NaN(), 0}))

	err := Apply(identity(t), b)
	require.Error(t, err)
	assert.Equal(t, fault.TransformFailure, fault.KindOf(err))
}
