// Package processor handles loading scenes and writing converted feature collections.
package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/woozymasta/speckle2geojson/internal/config"
	"github.com/woozymasta/speckle2geojson/internal/convert"
	"github.com/woozymasta/speckle2geojson/internal/geo"

	"github.com/rs/zerolog/log"
)

// OutputFile is the name of the collection written per model.
const OutputFile = "features.geojson"

// ProcessModel converts one configured model and writes
// <out>/<name>/features.geojson. Existing output is kept unless force is set.
func ProcessModel(ctx context.Context, conv *convert.Converter, out string, m config.Model, force bool) error {
	destDir := filepath.Join(out, m.Name)
	destFile := filepath.Join(destDir, OutputFile)

	// Check if file exists
	if _, err := os.Stat(destFile); err == nil {
		if !force {
			log.Debug().Str("model", m.Name).Msg("Features file exists, skipping")
			return nil
		}
	}

	params, err := m.Params()
	if err != nil {
		return err
	}

	log.Info().
		Str("model", m.Name).
		Str("source", m.Source).
		Str("format", m.Format).
		Msg("Processing model")

	root, err := LoadScene(m.Source, m.Format)
	if err != nil {
		return err
	}

	params.Comments, err = LoadComments(m.Comments)
	if err != nil {
		return err
	}

	fc, report, err := conv.Convert(ctx, root, params)
	if err != nil {
		return err
	}

	if report.Truncated() {
		log.Warn().Str("model", m.Name).Msg(report.LimitMessage)
	}

	if err := saveGeoJSON(destDir, destFile, fc); err != nil {
		return err
	}

	log.Info().
		Str("model", m.Name).
		Str("path", destFile).
		Str("crs", fc.ModelCRS).
		Int("features", len(fc.Features)).
		Int("comments", len(fc.Comments)).
		Msg("Features saved")

	return nil
}

// saveGeoJSON marshals the feature collection and writes it to disk.
func saveGeoJSON(dir, path string, fc *geo.FeatureCollection) (err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
			if err == nil {
				err = closeErr
			}
		}
	}()

	return json.NewEncoder(f).Encode(fc)
}
