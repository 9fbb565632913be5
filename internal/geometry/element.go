package geometry

import (
	"fmt"

	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/scene"
)

// Element is a decoded node variant.
type Element interface {
	element()
}

// Point is a single vertex.
type Point struct {
	X, Y, Z float64
}

// Line is a two vertex segment.
type Line struct {
	Start, End Point
}

// Polyline is an ordered vertex run, optionally closed.
type Polyline struct {
	Vertices []Point
	Closed   bool
}

// Mesh holds flat xyz vertices and run-length encoded faces.
type Mesh struct {
	Vertices []float64
	Faces    []int
	Colors   []int64
}

// Polygon is a GIS polygon: an outer boundary with optional holes.
type Polygon struct {
	Boundary Polyline
	Voids    []Polyline
}

// Composite wraps the sub-geometries of a GIS feature.
type Composite struct {
	Parts []Element
}

// Unknown carries a node no decoder recognizes.
type Unknown struct {
	Node *scene.Node
}

func (Point) element()     {}
func (Line) element()      {}
func (Polyline) element()  {}
func (Mesh) element()      {}
func (Polygon) element()   {}
func (Composite) element() {}
func (Unknown) element()   {}

// Interpret maps a node to its element variant.
// Missing or inconsistent members fail with fault.MalformedNode.
func Interpret(n *scene.Node) (Element, error) {
	el, err := interpret(n)
	if err != nil {
		return nil, fault.Wrap(fault.MalformedNode, "interpret", err).WithNode(n.ID)
	}
	return el, nil
}

func interpret(n *scene.Node) (Element, error) {
	switch scene.Classify(n) {
	case scene.KindPoint:
		return readPoint(n)

	case scene.KindLine:
		start, end := n.Child("start"), n.Child("end")
		if start == nil || end == nil {
			return nil, fmt.Errorf("line without start or end")
		}
		a, err := readPoint(start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		b, err := readPoint(end)
		if err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		return Line{Start: a, End: b}, nil

	case scene.KindPolyline:
		return readPolyline(n)

	case scene.KindCurve:
		dv := n.Child("displayValue", "@displayValue")
		if dv == nil {
			return nil, fmt.Errorf("curve without display polyline")
		}
		return readPolyline(dv)

	case scene.KindMesh:
		return readMesh(n)

	case scene.KindBrep:
		dv, ok := n.Lookup("displayValue", "@displayValue")
		if !ok {
			return Unknown{Node: n}, nil
		}
		switch t := dv.(type) {
		case *scene.Node:
			return readMesh(t)
		case []any:
			if len(t) == 0 {
				return Unknown{Node: n}, nil
			}
			first, ok := t[0].(*scene.Node)
			if !ok {
				return nil, fmt.Errorf("brep display value is not a mesh")
			}
			return readMesh(first)
		}
		return nil, fmt.Errorf("brep display value has unexpected type %T", dv)

	case scene.KindGisPolygon:
		return readPolygon(n)

	case scene.KindGisFeature, scene.KindGisElement:
		return readComposite(n)
	}

	return Unknown{Node: n}, nil
}

func readPoint(n *scene.Node) (Point, error) {
	x, okX := n.Float("x")
	y, okY := n.Float("y")
	if !okX || !okY {
		return Point{}, fmt.Errorf("point without numeric x/y")
	}
	z, _ := n.Float("z")
	return Point{X: x, Y: y, Z: z}, nil
}

// readPolyline reads the flat xyz "value" list; legacy 2D polylines carry "points" nodes.
func readPolyline(n *scene.Node) (Polyline, error) {
	pl := Polyline{Closed: n.Bool("closed")}

	if flat, ok := n.Numbers("value"); ok {
		if len(flat)%3 != 0 {
			return pl, fmt.Errorf("polyline value length %d is not a multiple of 3", len(flat))
		}
		pl.Vertices = make([]Point, 0, len(flat)/3)
		for i := 0; i+2 < len(flat); i += 3 {
			pl.Vertices = append(pl.Vertices, Point{X: flat[i], Y: flat[i+1], Z: flat[i+2]})
		}
		return pl, nil
	}

	if pts := n.List("points"); pts != nil {
		for i, item := range pts {
			pn, ok := item.(*scene.Node)
			if !ok {
				return pl, fmt.Errorf("polyline point %d is not a node", i)
			}
			p, err := readPoint(pn)
			if err != nil {
				return pl, fmt.Errorf("polyline point %d: %w", i, err)
			}
			pl.Vertices = append(pl.Vertices, p)
		}
		return pl, nil
	}

	return pl, fmt.Errorf("polyline without value")
}

func readMesh(n *scene.Node) (Mesh, error) {
	verts, ok := n.Numbers("vertices")
	if !ok {
		return Mesh{}, fmt.Errorf("mesh without numeric vertices")
	}
	rawFaces, ok := n.Numbers("faces")
	if !ok {
		return Mesh{}, fmt.Errorf("mesh without numeric faces")
	}

	faces := make([]int, len(rawFaces))
	for i, f := range rawFaces {
		faces[i] = int(f)
	}

	m := Mesh{Vertices: verts, Faces: faces}
	if colors, ok := n.Numbers("colors"); ok {
		m.Colors = make([]int64, len(colors))
		for i, c := range colors {
			m.Colors[i] = int64(c)
		}
	}
	return m, nil
}

func readPolygon(n *scene.Node) (Polygon, error) {
	b := n.Child("boundary")
	if b == nil {
		return Polygon{}, fmt.Errorf("polygon without boundary")
	}
	boundary, err := readPolyline(b)
	if err != nil {
		return Polygon{}, fmt.Errorf("boundary: %w", err)
	}

	poly := Polygon{Boundary: boundary}
	for i, item := range n.List("voids") {
		vn, ok := item.(*scene.Node)
		if !ok {
			return Polygon{}, fmt.Errorf("void %d is not a node", i)
		}
		void, err := readPolyline(vn)
		if err != nil {
			return Polygon{}, fmt.Errorf("void %d: %w", i, err)
		}
		poly.Voids = append(poly.Voids, void)
	}
	return poly, nil
}

func readComposite(n *scene.Node) (Composite, error) {
	var c Composite
	for i, item := range n.List("geometry") {
		child, ok := item.(*scene.Node)
		if !ok {
			return c, fmt.Errorf("geometry %d is not a node", i)
		}
		el, err := interpret(child)
		if err != nil {
			return c, fmt.Errorf("geometry %d: %w", i, err)
		}
		c.Parts = append(c.Parts, el)
	}
	return c, nil
}
