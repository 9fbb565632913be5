// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/woozymasta/speckle2geojson/internal/convert"
	"github.com/woozymasta/speckle2geojson/internal/props"

	"gopkg.in/yaml.v3"
)

// Scene file formats.
const (
	FormatAuto  = "auto"  // detected from the first JSON token
	FormatTree  = "tree"  // nested object tree
	FormatStore = "store" // flat object dump with reference placeholders
)

// DefaultOutput is the directory converted models are written to.
const DefaultOutput = "geojson"

// Config represents the root configuration file structure.
type Config struct {
	Output   string  `yaml:"output,omitempty" json:"output,omitempty"`
	Defaults Request `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Models   []Model `yaml:"models" json:"models"`
}

// Model represents a single scene to convert.
type Model struct {
	Request `yaml:",inline"`

	Name     string `yaml:"name" json:"name"`
	Project  string `yaml:"project,omitempty" json:"project,omitempty"`
	Source   string `yaml:"source" json:"source"`                         // path to the scene JSON
	Format   string `yaml:"format,omitempty" json:"format,omitempty"`     // auto, tree or store
	Comments string `yaml:"comments,omitempty" json:"comments,omitempty"` // YAML or JSON file of comment threads
}

// Request holds conversion parameters. Unset pointer fields fall back to
// the configuration defaults and then to the engine defaults.
type Request struct {
	Lat                *float64          `yaml:"lat,omitempty" json:"lat,omitempty"`
	Lon                *float64          `yaml:"lon,omitempty" json:"lon,omitempty"`
	NorthOffset        *float64          `yaml:"north_offset,omitempty" json:"north_offset,omitempty"`
	Limit              *int              `yaml:"limit,omitempty" json:"limit,omitempty"`
	PreserveAttributes *bool             `yaml:"preserve_attributes,omitempty" json:"preserve_attributes,omitempty"`
	IncludeHeight      *bool             `yaml:"include_height,omitempty" json:"include_height,omitempty"`
	Properties         map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"` // equality filters
	CRS                string            `yaml:"crs,omitempty" json:"crs,omitempty"`
	Where              string            `yaml:"where,omitempty" json:"where,omitempty"`
	DataType           string            `yaml:"data_type,omitempty" json:"data_type,omitempty"`
	SelectProperties   []string          `yaml:"select_properties,omitempty" json:"select_properties,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults merges the defaults into every model and validates it.
func (c *Config) applyDefaults() error {
	if c.Output == "" {
		c.Output = DefaultOutput
	}

	seen := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		m := &c.Models[i]

		if m.Name == "" {
			return fmt.Errorf("model %d has no name", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("model %q is defined twice", m.Name)
		}
		seen[m.Name] = true

		if m.Source == "" {
			return fmt.Errorf("model %q has no source", m.Name)
		}

		switch m.Format {
		case "":
			m.Format = FormatAuto
		case FormatAuto, FormatTree, FormatStore:
		default:
			return fmt.Errorf("model %q has unknown format %q", m.Name, m.Format)
		}

		m.Request = c.Defaults.Merge(m.Request)
		if _, err := m.Params(); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}

	return nil
}

// Merge returns r overridden by every field set in over.
func (r Request) Merge(over Request) Request {
	out := r

	if over.Lat != nil {
		out.Lat = over.Lat
	}
	if over.Lon != nil {
		out.Lon = over.Lon
	}
	if over.NorthOffset != nil {
		out.NorthOffset = over.NorthOffset
	}
	if over.Limit != nil {
		out.Limit = over.Limit
	}
	if over.PreserveAttributes != nil {
		out.PreserveAttributes = over.PreserveAttributes
	}
	if over.IncludeHeight != nil {
		out.IncludeHeight = over.IncludeHeight
	}
	if over.CRS != "" {
		out.CRS = over.CRS
	}
	if over.Where != "" {
		out.Where = over.Where
	}
	if over.DataType != "" {
		out.DataType = over.DataType
	}
	if len(over.SelectProperties) > 0 {
		out.SelectProperties = over.SelectProperties
	}
	if len(over.Properties) > 0 {
		out.Properties = make(map[string]string, len(r.Properties)+len(over.Properties))
		for k, v := range r.Properties {
			out.Properties[k] = v
		}
		for k, v := range over.Properties {
			out.Properties[k] = v
		}
	}

	return out
}

// Params maps the request onto engine parameters.
func (r Request) Params() (convert.Params, error) {
	p := convert.DefaultParams()

	if r.Lat != nil {
		p.Lat = *r.Lat
	}
	if r.Lon != nil {
		p.Lon = *r.Lon
	}
	if r.NorthOffset != nil {
		p.NorthOffset = *r.NorthOffset
	}
	if r.Limit != nil {
		p.Limit = *r.Limit
	}
	if r.PreserveAttributes != nil {
		p.PreserveAttributes = *r.PreserveAttributes
	}
	if r.IncludeHeight != nil {
		p.IncludeHeight = *r.IncludeHeight
	}

	dt, err := convert.ParseDataType(r.DataType)
	if err != nil {
		return p, err
	}
	p.DataType = dt

	p.CRSAuthority = r.CRS
	p.Where = r.Where
	p.SelectProperties = r.SelectProperties

	names := make([]string, 0, len(r.Properties))
	for name := range r.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p.Properties = append(p.Properties, props.Filter{Name: name, Value: r.Properties[name]})
	}

	return p, nil
}

// Params returns the engine parameters of the model.
func (m Model) Params() (convert.Params, error) {
	p, err := m.Request.Params()
	if err != nil {
		return p, err
	}
	p.Project = m.Project
	p.Model = m.Name
	return p, nil
}

// Find returns the models with the given names, in the order given.
// Duplicates are dropped; unknown names are returned separately.
func (c *Config) Find(names []string) (found []Model, missing []string) {
	byName := make(map[string]Model, len(c.Models))
	for _, m := range c.Models {
		byName[m.Name] = m
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if m, ok := byName[name]; ok {
			found = append(found, m)
		} else {
			missing = append(missing, name)
		}
	}
	return found, missing
}
