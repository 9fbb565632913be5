package processor

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/speckle2geojson/internal/config"
	"github.com/woozymasta/speckle2geojson/internal/convert"
	"github.com/woozymasta/speckle2geojson/internal/scene"

	"gopkg.in/yaml.v3"
)

// ReadScene decodes a scene in the given format. Auto detection treats a
// leading '[' as an object store dump and anything else as an inline tree.
func ReadScene(r io.Reader, format string) (*scene.Node, error) {
	br := bufio.NewReader(r)

	if format == config.FormatAuto || format == "" {
		format = config.FormatTree
		for {
			b, err := br.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("detect scene format: %w", err)
			}
			if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
				continue
			}
			if b == '[' {
				format = config.FormatStore
			}
			if err := br.UnreadByte(); err != nil {
				return nil, err
			}
			break
		}
	}

	if format == config.FormatStore {
		return scene.ParseStore(br)
	}
	return scene.Parse(br)
}

// LoadScene opens and decodes the scene file of a model.
func LoadScene(path, format string) (*scene.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = f.Close() }()

	return ReadScene(f, format)
}

// LoadComments reads comment threads keyed by id from a YAML or JSON file.
// An empty source yields no threads.
func LoadComments(path string) (map[string]convert.Comment, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var threads map[string]convert.Comment
	if err := yaml.Unmarshal(data, &threads); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return threads, nil
}
