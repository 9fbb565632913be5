package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/speckle2geojson/internal/config"
	"github.com/woozymasta/speckle2geojson/internal/convert"
	"github.com/woozymasta/speckle2geojson/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeScene = `{
  "id": "root",
  "speckle_type": "Base",
  "elements": [
    {"id": "p1", "speckle_type": "Objects.Geometry.Point", "x": 1, "y": 2, "z": 0, "units": "m", "name": "pole"},
    {"id": "l1", "speckle_type": "Objects.Geometry.Polyline", "value": [0, 0, 0, 5, 0, 0], "units": "m"}
  ]
}`

const storeScene = `[
  {"id": "root", "speckle_type": "Base", "elements": [{"speckle_type": "reference", "referencedId": "p1"}]},
  {"id": "p1", "speckle_type": "Objects.Geometry.Point", "x": 1, "y": 2, "z": 0, "units": "m"}
]`

const commentsYAML = `
c1:
  position: {x: 0, y: 0, z: 0}
  items:
    - author: Ann
      date: "2024-08-25T13:52:50.562Z"
      text: check this
      attachments: [photo.jpg]
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func readCollection(t *testing.T, path string) geo.FeatureCollection {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc geo.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	return fc
}

func newConverter(t *testing.T) *convert.Converter {
	t.Helper()
	conv, err := convert.New()
	require.NoError(t, err)
	return conv
}

func TestReadSceneDetectsFormat(t *testing.T) {
	tree, err := ReadScene(strings.NewReader("\n  "+treeScene), config.FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, "root", tree.ID)
	assert.Len(t, tree.List("elements"), 2)

	store, err := ReadScene(strings.NewReader(storeScene), config.FormatAuto)
	require.NoError(t, err)
	require.Len(t, store.List("elements"), 1)

	_, err = ReadScene(strings.NewReader(storeScene), config.FormatTree)
	assert.Error(t, err)

	_, err = ReadScene(strings.NewReader("   "), config.FormatAuto)
	assert.Error(t, err)
}

func TestProcessModel(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	m := config.Model{
		Name:     "site",
		Project:  "demo",
		Source:   writeFile(t, dir, "scene.json", treeScene),
		Format:   config.FormatAuto,
		Comments: writeFile(t, dir, "comments.yaml", commentsYAML),
	}

	require.NoError(t, ProcessModel(context.Background(), newConverter(t), out, m, false))

	fc := readCollection(t, filepath.Join(out, "site", OutputFile))
	assert.Equal(t, "demo", fc.Project)
	assert.Equal(t, "site", fc.Model)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "MultiPoint", fc.Features[0].Geometry.Type())
	assert.Equal(t, "pole", fc.Features[0].Properties["name"])
	assert.Equal(t, "LineString", fc.Features[1].Geometry.Type())

	require.Len(t, fc.Comments, 1)
	assert.Equal(t, "c1", fc.Comments[0].ID)
	assert.Contains(t, fc.Comments[0].Properties["text"], "2024-08-25 13:52:50")
}

func TestProcessModelSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	existing := writeFile(t, dir, "placeholder", "{}")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "site"), 0o755))
	require.NoError(t, os.Rename(existing, filepath.Join(out, "site", OutputFile)))

	m := config.Model{Name: "site", Source: filepath.Join(dir, "missing.json"), Format: config.FormatAuto}

	require.NoError(t, ProcessModel(context.Background(), newConverter(t), out, m, false))
	assert.Error(t, ProcessModel(context.Background(), newConverter(t), out, m, true))
}

func TestProcessModelStore(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	m := config.Model{Name: "store", Source: writeFile(t, dir, "objects.json", storeScene), Format: config.FormatStore}

	require.NoError(t, ProcessModel(context.Background(), newConverter(t), out, m, false))
	fc := readCollection(t, filepath.Join(out, "store", OutputFile))
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "p1", fc.Features[0].ID)

	m.Comments = filepath.Join(dir, "missing.yaml")
	assert.Error(t, ProcessModel(context.Background(), newConverter(t), out, m, true))
}

func TestProcessModels(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	scenePath := writeFile(t, dir, "scene.json", treeScene)
	emptyPath := writeFile(t, dir, "empty.json", `{"id": "root", "speckle_type": "Base", "elements": []}`)

	models := []config.Model{
		{Name: "a", Source: scenePath, Format: config.FormatAuto},
		{Name: "empty", Source: emptyPath, Format: config.FormatAuto},
		{Name: "b", Source: scenePath, Format: config.FormatTree},
	}

	results := ProcessModels(context.Background(), newConverter(t), out, models, 2, false)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].Model)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "empty", results[1].Model)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)

	assert.FileExists(t, filepath.Join(out, "a", OutputFile))
	assert.FileExists(t, filepath.Join(out, "b", OutputFile))
	assert.NoFileExists(t, filepath.Join(out, "empty", OutputFile))
}

func TestSaveGeoJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	path := filepath.Join(dir, OutputFile)
	fc := &geo.FeatureCollection{Type: "FeatureCollection", Model: "site"}

	require.NoError(t, saveGeoJSON(dir, path, fc))
	assert.Equal(t, "site", readCollection(t, path).Model)

	blocker := writeFile(t, t.TempDir(), "blocker", "x")
	assert.Error(t, saveGeoJSON(blocker, filepath.Join(blocker, OutputFile), fc))
}
