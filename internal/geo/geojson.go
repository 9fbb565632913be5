// Package geo handles GeoJSON output structures and coordinate helpers.
package geo

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CRS84 is the URN every emitted collection is expressed in.
const CRS84 = "urn:ogc:def:crs:OGC:1.3:CRS84"

// FeatureCollection is the conversion output.
// It follows the GeoJSON structure with the extra members feature services expect.
type FeatureCollection struct {
	CRS            *NamedCRS `json:"crs,omitempty" yaml:"crs,omitempty"`
	Type           string    `json:"type" yaml:"type"`
	ModelCRS       string    `json:"model_crs" yaml:"model_crs"`
	Project        string    `json:"project,omitempty" yaml:"project,omitempty"`
	Model          string    `json:"model,omitempty" yaml:"model,omitempty"`
	Features       []Feature `json:"features" yaml:"features"`
	Comments       []Feature `json:"comments" yaml:"comments"`
	NumberMatched  int       `json:"numberMatched" yaml:"numberMatched"`
	NumberReturned int       `json:"numberReturned" yaml:"numberReturned"`
}

// NewFeatureCollection returns an empty collection with the CRS84 block set.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		CRS:      NewNamedCRS(CRS84),
		ModelCRS: "-",
		Features: make([]Feature, 0),
		Comments: make([]Feature, 0),
	}
}

// NamedCRS is the legacy GeoJSON "crs" member.
type NamedCRS struct {
	Properties map[string]string `json:"properties" yaml:"properties"`
	Type       string            `json:"type" yaml:"type"`
}

// NewNamedCRS builds a {"type": "name"} CRS block.
func NewNamedCRS(name string) *NamedCRS {
	return &NamedCRS{
		Type:       "name",
		Properties: map[string]string{"name": name},
	}
}

// Feature represents a single feature with geometry, properties and display hints.
type Feature struct {
	Properties        map[string]any     `json:"properties" yaml:"properties"`
	DisplayProperties *DisplayProperties `json:"displayProperties,omitempty" yaml:"displayProperties,omitempty"`
	Type              string             `json:"type" yaml:"type"`
	ID                string             `json:"id,omitempty" yaml:"id,omitempty"`
	Geometry          Geometry           `json:"geometry" yaml:"geometry"`
	BBox              []float64          `json:"bbox,omitempty" yaml:"bbox,omitempty"`
}

// DisplayProperties are rendering hints for map viewers.
type DisplayProperties struct {
	Color      string  `json:"color" yaml:"color"`
	ObjectType string  `json:"objectType,omitempty" yaml:"objectType,omitempty"`
	LineWidth  float64 `json:"lineWidth" yaml:"lineWidth"`
	Radius     float64 `json:"radius" yaml:"radius"`
}

// Geometry wraps an orb geometry and serializes it as a GeoJSON geometry object.
type Geometry struct {
	Value orb.Geometry
}

// Type returns the GeoJSON geometry type, or "" when empty.
func (g Geometry) Type() string {
	if g.Value == nil {
		return ""
	}
	return g.Value.GeoJSONType()
}

// MarshalJSON implements json.Marshaler.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.Value == nil {
		return []byte("null"), nil
	}
	return geojson.NewGeometry(g.Value).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		g.Value = nil
		return nil
	}
	gg, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return err
	}
	g.Value = gg.Geometry()
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (g Geometry) MarshalYAML() (any, error) {
	if g.Value == nil {
		return nil, nil
	}

	// reuse the GeoJSON layout so both formats carry the same coordinates
	data, err := g.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
