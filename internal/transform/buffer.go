// Package transform holds the shared coordinate buffer of a conversion run,
// the bulk rotate, scale, translate and reproject pass, and the re-slicing
// of transformed coordinates back into geometries.
package transform

import (
	"fmt"

	"github.com/woozymasta/speckle2geojson/internal/geometry"

	"github.com/paulmach/orb"
)

// Layout records where one shape lives in the buffer.
type Layout struct {
	Type   string
	Parts  geometry.Encoding
	Offset int
	Count  int
}

// Buffer collects the coordinates of every shape in a run.
// Append order is slice order; the buffer is owned by one run.
type Buffer struct {
	points  []orb.Point
	heights []float64
	layouts []Layout
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append copies the shape coordinates to the end of the buffer
// and returns the index of its layout.
func (b *Buffer) Append(s geometry.Shape) int {
	l := Layout{
		Type:   s.Type,
		Parts:  s.Parts,
		Offset: len(b.points),
		Count:  len(s.Points),
	}
	b.points = append(b.points, s.Points...)
	b.heights = append(b.heights, s.Heights...)
	for len(b.heights) < len(b.points) {
		b.heights = append(b.heights, 0)
	}
	b.layouts = append(b.layouts, l)
	return len(b.layouts) - 1
}

// Len returns the number of buffered coordinates.
func (b *Buffer) Len() int {
	return len(b.points)
}

// Layouts returns the appended layouts in order.
func (b *Buffer) Layouts() []Layout {
	return b.layouts
}

// Points returns the buffered coordinates of layout i.
func (b *Buffer) Points(i int) []orb.Point {
	l := b.layouts[i]
	return b.points[l.Offset : l.Offset+l.Count]
}

// Heights returns the buffered heights of layout i.
func (b *Buffer) Heights(i int) []float64 {
	l := b.layouts[i]
	return b.heights[l.Offset : l.Offset+l.Count]
}

// Geometries re-slices the whole buffer into one geometry per layout.
func (b *Buffer) Geometries() ([]orb.Geometry, error) {
	types := make([]string, len(b.layouts))
	encodings := make([]geometry.Encoding, len(b.layouts))
	for i, l := range b.layouts {
		types[i] = l.Type
		encodings[i] = l.Parts
	}
	return Slice(b.points, types, encodings)
}

// Slice walks points with a single cursor, consuming each encoding in turn.
// Any shortfall or leftover coordinate is an error since it means append and
// slice order diverged.
func Slice(points []orb.Point, types []string, encodings []geometry.Encoding) ([]orb.Geometry, error) {
	if len(types) != len(encodings) {
		return nil, fmt.Errorf("slice: %d types for %d encodings", len(types), len(encodings))
	}

	out := make([]orb.Geometry, 0, len(encodings))
	cursor := 0
	take := func(n int) ([]orb.Point, error) {
		if n < 0 || cursor+n > len(points) {
			return nil, fmt.Errorf("slice: need %d coordinates at %d, buffer holds %d", n, cursor, len(points))
		}
		run := points[cursor : cursor+n]
		cursor += n
		return run, nil
	}

	for i, enc := range encodings {
		g, err := build(types[i], enc, take)
		if err != nil {
			return nil, fmt.Errorf("slice geometry %d: %w", i, err)
		}
		out = append(out, g)
	}

	if cursor != len(points) {
		return nil, fmt.Errorf("slice: %d coordinates left over", len(points)-cursor)
	}
	return out, nil
}

func build(typ string, enc geometry.Encoding, take func(int) ([]orb.Point, error)) (orb.Geometry, error) {
	parts := enc.Parts()

	switch typ {
	case geometry.TypeMultiPoint:
		mp := make(orb.MultiPoint, 0, len(parts))
		for _, part := range parts {
			for _, n := range part {
				run, err := take(n)
				if err != nil {
					return nil, err
				}
				mp = append(mp, run...)
			}
		}
		return mp, nil

	case geometry.TypeLineString:
		if enc.Multi() || len(parts) != 1 || len(parts[0]) != 1 {
			return nil, fmt.Errorf("LineString needs exactly one single count part, got %v", enc)
		}
		run, err := take(parts[0][0])
		if err != nil {
			return nil, err
		}
		return append(orb.LineString(nil), run...), nil

	case geometry.TypeMultiLineString:
		mls := make(orb.MultiLineString, 0, len(parts))
		for _, part := range parts {
			for _, n := range part {
				run, err := take(n)
				if err != nil {
					return nil, err
				}
				mls = append(mls, append(orb.LineString(nil), run...))
			}
		}
		return mls, nil

	case geometry.TypeMultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(parts))
		for _, part := range parts {
			poly := make(orb.Polygon, 0, len(part))
			for _, n := range part {
				run, err := take(n)
				if err != nil {
					return nil, err
				}
				poly = append(poly, append(orb.Ring(nil), run...))
			}
			mp = append(mp, poly)
		}
		return mp, nil
	}

	return nil, fmt.Errorf("unsupported geometry type %q", typ)
}
