package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/speckle2geojson/internal/convert"
	"github.com/woozymasta/speckle2geojson/internal/crs"
	"github.com/woozymasta/speckle2geojson/internal/props"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
defaults:
  limit: 100
  crs: EPSG:32633
  properties:
    level: L1
models:
  - name: tower
    project: city
    source: scenes/tower.json
    limit: 0
    data_type: polygons
    properties:
      phase: new
  - name: park
    source: scenes/park.json
    format: store
    lat: 48.2
    lon: 16.37
    preserve_attributes: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.Output)
	require.Len(t, cfg.Models, 2)

	tower := cfg.Models[0]
	assert.Equal(t, FormatAuto, tower.Format)

	p, err := tower.Params()
	require.NoError(t, err)
	assert.Equal(t, 0, p.Limit)
	assert.Equal(t, "EPSG:32633", p.CRSAuthority)
	assert.Equal(t, convert.DataPolygons, p.DataType)
	assert.Equal(t, []props.Filter{{Name: "level", Value: "L1"}, {Name: "phase", Value: "new"}}, p.Properties)
	assert.Equal(t, "city", p.Project)
	assert.Equal(t, "tower", p.Model)
	assert.Equal(t, crs.DefaultLat, p.Lat)
	assert.True(t, p.PreserveAttributes)

	park, err := cfg.Models[1].Params()
	require.NoError(t, err)
	assert.Equal(t, 100, park.Limit)
	assert.Equal(t, 48.2, park.Lat)
	assert.Equal(t, 16.37, park.Lon)
	assert.False(t, park.PreserveAttributes)
	assert.Equal(t, convert.DataAll, park.DataType)
	assert.Equal(t, []props.Filter{{Name: "level", Value: "L1"}}, park.Properties)

	assert.Equal(t, map[string]string{"level": "L1"}, cfg.Defaults.Properties, "defaults are not mutated")
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"no name":      "models:\n  - source: a.json\n",
		"no source":    "models:\n  - name: a\n",
		"duplicate":    "models:\n  - {name: a, source: a.json}\n  - {name: a, source: b.json}\n",
		"format":       "models:\n  - {name: a, source: a.json, format: xml}\n",
		"data type":    "models:\n  - {name: a, source: a.json, data_type: rasters}\n",
		"broken yaml":  "models: [",
		"wrong schema": "models: {name: a}\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	cfg := &Config{Models: []Model{{Name: "a"}, {Name: "b"}, {Name: "c"}}}

	found, missing := cfg.Find([]string{"c", "x", "a", "c"})
	require.Len(t, found, 2)
	assert.Equal(t, "c", found[0].Name)
	assert.Equal(t, "a", found[1].Name)
	assert.Equal(t, []string{"x"}, missing)
}
