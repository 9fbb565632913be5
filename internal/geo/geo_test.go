package geo

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRotation(t *testing.T) {
	x, y := NewRotation(90).Apply(1, 0)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 1, y, 1e-12)

	x, y = NewRotation(0).Apply(3, 4)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, y)
}

func TestMercator(t *testing.T) {
	lon, lat := MercatorToLonLat(0, 0)
	assert.InDelta(t, 0, lon, 1e-12)
	assert.InDelta(t, 0, lat, 1e-12)

	x, y := LonLatToMercator(16.37, 48.2)
	lon, lat = MercatorToLonLat(x, y)
	assert.InDelta(t, 16.37, lon, 1e-9)
	assert.InDelta(t, 48.2, lat, 1e-9)

	_, lat = MercatorToLonLat(0, 1e9)
	assert.Equal(t, MaxLat, lat)
}

func TestFeatureCollectionJSON(t *testing.T) {
	fc := NewFeatureCollection()
	fc.Features = append(fc.Features, Feature{
		Type:       "Feature",
		ID:         "p1",
		Properties: map[string]any{"FID": 1},
		Geometry:   Geometry{Value: orb.MultiPoint{{1, 2}}},
		BBox:       []float64{1, 2, 1, 2},
	})

	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "FeatureCollection", raw["type"])
	assert.Equal(t, "-", raw["model_crs"])
	assert.Equal(t, map[string]any{"type": "name", "properties": map[string]any{"name": CRS84}}, raw["crs"])
	assert.Equal(t, []any{}, raw["comments"])

	var back FeatureCollection
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Features, 1)
	assert.Equal(t, "MultiPoint", back.Features[0].Geometry.Type())
	assert.Equal(t, orb.MultiPoint{{1, 2}}, back.Features[0].Geometry.Value)
}

func TestGeometryNull(t *testing.T) {
	data, err := json.Marshal(Feature{Type: "Feature"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"geometry":null`)

	var f Feature
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Nil(t, f.Geometry.Value)
	assert.Equal(t, "", f.Geometry.Type())
}

func TestGeometryYAML(t *testing.T) {
	data, err := yaml.Marshal(Feature{
		Type:     "Feature",
		Geometry: Geometry{Value: orb.LineString{{0, 0}, {1, 1}}},
	})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	geom := out["geometry"].(map[string]any)
	assert.Equal(t, "LineString", geom["type"])
	assert.Len(t, geom["coordinates"], 2)
}
