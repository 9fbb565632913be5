package scene

import "strings"

// Kind classifies a node by its type chain.
type Kind int

const (
	KindUnknown     Kind = iota
	KindContainer        // collections, plain roots, non-vector layers
	KindVectorLayer      // GIS vector layer, always descended
	KindCRS
	KindPoint
	KindLine
	KindPolyline
	KindCurve
	KindMesh
	KindBrep
	KindGisFeature
	KindGisElement // point, line and polygon elements of older GIS commits
	KindGisPolygon
	KindElement // BIM elements rendered through their display meshes
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindContainer:   "container",
	KindVectorLayer: "vector_layer",
	KindCRS:         "crs",
	KindPoint:       "point",
	KindLine:        "line",
	KindPolyline:    "polyline",
	KindCurve:       "curve",
	KindMesh:        "mesh",
	KindBrep:        "brep",
	KindGisFeature:  "gis_feature",
	KindGisElement:  "gis_element",
	KindGisPolygon:  "gis_polygon",
	KindElement:     "element",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Terminal reports whether nodes of this kind are converted directly
// and never expanded into children.
func (k Kind) Terminal() bool {
	switch k {
	case KindPoint, KindLine, KindPolyline, KindCurve, KindMesh, KindBrep,
		KindGisFeature, KindGisElement, KindGisPolygon, KindElement:
		return true
	}
	return false
}

// Organizational reports whether the kind only groups other nodes.
func (k Kind) Organizational() bool {
	return k == KindContainer || k == KindVectorLayer
}

var typeKinds = map[string]Kind{
	"Base":                                     KindContainer,
	"Speckle.Core.Models.Collection":           KindContainer,
	"Objects.Organization.Collection":          KindContainer,
	"Objects.Organization.Model":               KindContainer,
	"Objects.GIS.RasterLayer":                  KindContainer,
	"Objects.GIS.VectorLayer":                  KindVectorLayer,
	"Objects.GIS.CRS":                          KindCRS,
	"Objects.Geometry.Point":                   KindPoint,
	"Objects.Geometry.Line":                    KindLine,
	"Objects.Geometry.Polyline":                KindPolyline,
	"Objects.Geometry.Curve":                   KindCurve,
	"Objects.Geometry.Arc":                     KindCurve,
	"Objects.Geometry.Circle":                  KindCurve,
	"Objects.Geometry.Ellipse":                 KindCurve,
	"Objects.Geometry.Polycurve":               KindCurve,
	"Objects.Geometry.Mesh":                    KindMesh,
	"Objects.Geometry.Brep":                    KindBrep,
	"Objects.GIS.GisFeature":                   KindGisFeature,
	"Objects.GIS.PointElement":                 KindGisElement,
	"Objects.GIS.LineElement":                  KindGisElement,
	"Objects.GIS.PolygonElement":               KindGisElement,
	"Objects.GIS.PolygonGeometry":              KindGisPolygon,
	"Objects.GIS.PolygonGeometry3d":            KindGisPolygon,
	"Objects.Other.Revit.RevitInstance":        KindElement,
	"Objects.BuiltElements.Revit.RevitWall":    KindElement,
	"Objects.BuiltElements.Revit.RevitFloor":   KindElement,
	"Objects.BuiltElements.Revit.RevitStair":   KindElement,
	"Objects.BuiltElements.Revit.RevitColumn":  KindElement,
	"Objects.BuiltElements.Revit.RevitBeam":    KindElement,
	"Objects.BuiltElements.Revit.RevitElement": KindElement,
	"Objects.BuiltElements.Revit.RevitRebar":   KindElement,
}

// Classify resolves the node kind from the most specific segment of its
// type chain backwards. Untyped or unknown nodes carrying a display value
// are treated as elements.
func Classify(n *Node) Kind {
	if n == nil {
		return KindUnknown
	}

	if n.Type == "" {
		if n.hasDisplayValue() {
			return KindElement
		}
		return KindContainer
	}

	segments := strings.Split(n.Type, ":")
	for i := len(segments) - 1; i >= 0; i-- {
		if k, ok := typeKinds[segments[i]]; ok {
			if k == KindContainer && n.hasDisplayValue() {
				return KindElement
			}
			return k
		}
	}

	if n.hasDisplayValue() {
		return KindElement
	}
	return KindUnknown
}

func (n *Node) hasDisplayValue() bool {
	_, ok := n.Lookup("displayValue", "@displayValue")
	return ok
}
