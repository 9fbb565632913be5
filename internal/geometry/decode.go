package geometry

import (
	"fmt"

	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/scene"

	"github.com/paulmach/orb"
)

// Decode interprets a geometry source node and decodes it into shapes.
// Unsupported nodes fail with fault.UnsupportedGeometryType, inconsistent
// ones with fault.MalformedNode.
func Decode(n *scene.Node) ([]Shape, error) {
	el, err := Interpret(n)
	if err != nil {
		return nil, err
	}

	shapes, err := DecodeElement(el)
	if err != nil {
		if fault.KindOf(err) != "" {
			return nil, err
		}
		return nil, fault.Wrap(fault.MalformedNode, "decode", err).WithNode(n.ID)
	}

	for _, s := range shapes {
		if err := s.Validate(); err != nil {
			return nil, fault.Wrap(fault.MalformedNode, "decode", err).WithNode(n.ID)
		}
	}
	return shapes, nil
}

// DecodeElement decodes an interpreted element.
func DecodeElement(el Element) ([]Shape, error) {
	switch e := el.(type) {
	case Point:
		s := Shape{Type: TypeMultiPoint, Parts: Encoding{nil}}
		s.add(e)
		s.Parts = append(s.Parts, []int{1})
		return []Shape{s}, nil

	case Line:
		s := Shape{Type: TypeLineString}
		s.add(e.Start)
		s.add(e.End)
		s.Parts = Encoding{{2}}
		return []Shape{s}, nil

	case Polyline:
		s := Shape{Type: TypeLineString}
		n := s.addRun(e)
		if n == 0 {
			return nil, fmt.Errorf("polyline has no vertices")
		}
		s.Parts = Encoding{{n}}
		return []Shape{s}, nil

	case Mesh:
		s := Shape{Type: TypeMultiPolygon, Parts: Encoding{nil}}
		if err := s.addFaces(e); err != nil {
			return nil, err
		}
		return []Shape{s}, nil

	case Polygon:
		s := Shape{Type: TypeMultiPolygon, Parts: Encoding{nil}}
		s.addPolygon(e)
		return []Shape{s}, nil

	case Composite:
		return decodeComposite(e)

	case Unknown:
		typ := ""
		id := ""
		if e.Node != nil {
			typ, id = e.Node.Type, e.Node.ID
		}
		return nil, fault.Newf(fault.UnsupportedGeometryType, "decode", "no decoder for %q", typ).WithNode(id)
	}

	return nil, fmt.Errorf("unexpected element %T", el)
}

// decodeComposite emits one shape per family in order of first appearance:
// points as MultiPoint, lines as MultiLineString, polygons and meshes as MultiPolygon.
func decodeComposite(c Composite) ([]Shape, error) {
	if len(c.Parts) == 0 {
		return nil, fmt.Errorf("feature has no geometry")
	}

	var order []Family
	groups := make(map[Family]*Shape)
	group := func(f Family, typ string) *Shape {
		if s, ok := groups[f]; ok {
			return s
		}
		s := &Shape{Type: typ, Parts: Encoding{nil}}
		groups[f] = s
		order = append(order, f)
		return s
	}

	for _, part := range c.Parts {
		switch e := part.(type) {
		case Point:
			s := group(FamilyPoint, TypeMultiPoint)
			s.add(e)
			s.Parts = append(s.Parts, []int{1})

		case Line:
			s := group(FamilyLine, TypeMultiLineString)
			s.add(e.Start)
			s.add(e.End)
			s.Parts = append(s.Parts, []int{2})

		case Polyline:
			s := group(FamilyLine, TypeMultiLineString)
			if n := s.addRun(e); n > 0 {
				s.Parts = append(s.Parts, []int{n})
			}

		case Polygon:
			group(FamilyPolygon, TypeMultiPolygon).addPolygon(e)

		case Mesh:
			if err := group(FamilyPolygon, TypeMultiPolygon).addFaces(e); err != nil {
				return nil, err
			}

		case Unknown:
			return nil, fault.Newf(fault.UnsupportedGeometryType, "decode", "no decoder for feature geometry %q", e.Node.Type)

		default:
			return nil, fmt.Errorf("unexpected feature geometry %T", part)
		}
	}

	out := make([]Shape, 0, len(order))
	for _, f := range order {
		if s := groups[f]; len(s.Points) > 0 {
			out = append(out, *s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("feature geometry has no vertices")
	}
	return out, nil
}

func (s *Shape) add(p Point) {
	s.Points = append(s.Points, orb.Point{p.X, p.Y})
	s.Heights = append(s.Heights, p.Z)
}

// addRun appends polyline vertices, closing the run when the source is
// closed, has more than two vertices and the ends differ. Returns the count added.
func (s *Shape) addRun(pl Polyline) int {
	for _, v := range pl.Vertices {
		s.add(v)
	}
	n := len(pl.Vertices)
	if pl.Closed && n > 2 {
		first, last := pl.Vertices[0], pl.Vertices[n-1]
		if first.X != last.X || first.Y != last.Y {
			s.add(first)
			n++
		}
	}
	return n
}

func (s *Shape) addPolygon(p Polygon) {
	rings := []int{s.addRun(p.Boundary)}
	for _, void := range p.Voids {
		rings = append(rings, s.addRun(void))
	}
	s.Parts = append(s.Parts, rings)
}

// addFaces walks the run-length face list. Each face starts with its vertex
// count, where the legacy counts 0 and 1 stand for triangles and quads.
func (s *Shape) addFaces(m Mesh) error {
	vertexCount := len(m.Vertices) / 3

	for i := 0; i < len(m.Faces); {
		n := m.Faces[i]
		switch n {
		case 0:
			n = 3
		case 1:
			n = 4
		}
		if n < 0 || i+1+n > len(m.Faces) {
			return fmt.Errorf("face at %d declares %d vertices beyond the face list", i, n)
		}

		for _, vi := range m.Faces[i+1 : i+1+n] {
			if vi < 0 || vi >= vertexCount {
				return fmt.Errorf("face at %d references vertex %d of %d", i, vi, vertexCount)
			}
			s.add(Point{X: m.Vertices[3*vi], Y: m.Vertices[3*vi+1], Z: m.Vertices[3*vi+2]})
		}
		s.Parts = append(s.Parts, []int{n})
		i += n + 1
	}

	if len(s.Parts.Parts()) == 0 {
		return fmt.Errorf("mesh has no faces")
	}
	return nil
}
