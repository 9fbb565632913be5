// Package geometry decodes scene nodes into flat coordinate runs
// described by a part length encoding.
package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
)

// GeoJSON geometry types produced by the decoder.
const (
	TypeMultiPoint      = "MultiPoint"
	TypeLineString      = "LineString"
	TypeMultiLineString = "MultiLineString"
	TypeMultiPolygon    = "MultiPolygon"
)

// Encoding describes how a flat coordinate run slices back into parts and rings.
//
// A leading nil entry marks a multi-part geometry; every following entry is
// one part. Point and line parts hold a single count, polygon parts hold the
// boundary count followed by the hole counts. A single-part geometry has no
// nil marker and exactly one entry.
//
//	MultiPoint of two points:        [nil, [1], [1]]
//	LineString of five vertices:     [[5]]
//	MultiPolygon, one ring + 1 hole: [nil, [4, 3]]
type Encoding [][]int

// Multi reports whether the encoding starts with the multi-part marker.
func (e Encoding) Multi() bool {
	return len(e) > 0 && e[0] == nil
}

// Parts returns the part entries without the marker.
func (e Encoding) Parts() [][]int {
	if e.Multi() {
		return e[1:]
	}
	return e
}

// Count returns the number of coordinates the encoding consumes.
func (e Encoding) Count() int {
	total := 0
	for _, part := range e {
		for _, n := range part {
			total += n
		}
	}
	return total
}

// Shape is one decoded geometry before transform.
type Shape struct {
	Type    string
	Points  []orb.Point // native (x, y)
	Heights []float64   // native z, parallel to Points
	Parts   Encoding
}

// Family groups geometry types for data type filtering.
type Family string

const (
	FamilyPoint   Family = "point"
	FamilyLine    Family = "line"
	FamilyPolygon Family = "polygon"
)

// Family returns the family of the shape type.
func (s Shape) Family() Family {
	return FamilyOf(s.Type)
}

// FamilyOf maps a GeoJSON geometry type to its family.
func FamilyOf(geomType string) Family {
	switch geomType {
	case TypeMultiPoint, "Point":
		return FamilyPoint
	case TypeLineString, TypeMultiLineString:
		return FamilyLine
	}
	return FamilyPolygon
}

// Validate checks the shape is internally consistent.
func (s Shape) Validate() error {
	if len(s.Points) == 0 {
		return fmt.Errorf("%s has no coordinates", s.Type)
	}
	if len(s.Heights) != len(s.Points) {
		return fmt.Errorf("%s has %d heights for %d points", s.Type, len(s.Heights), len(s.Points))
	}
	if n := s.Parts.Count(); n != len(s.Points) {
		return fmt.Errorf("%s encoding covers %d of %d points", s.Type, n, len(s.Points))
	}
	return nil
}
