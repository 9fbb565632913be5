package geometry

import (
	"fmt"

	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/scene"
)

var meshBufferMembers = map[string]bool{
	"vertices": true,
	"faces":    true,
	"colors":   true,
}

// Displayable picks the nodes that stand in for n when decoding and coloring.
//
// Nodes with a display value are represented by it; a list of display meshes is
// merged into one synthesized mesh. GIS features keep themselves as geometry
// source and use the display value for color only. A display mesh list whose
// face lists cannot be merged fails with a MalformedNode fault.
func Displayable(n *scene.Node) (geom, color *scene.Node, err error) {
	geom, color = n, n

	if dv, ok := n.Lookup("displayValue", "@displayValue"); ok {
		switch t := dv.(type) {
		case *scene.Node:
			color = t
		case []any:
			merged, err := mergeDisplay(n, t)
			if err != nil {
				return nil, nil, fault.Wrap(fault.MalformedNode, "display value", err).WithNode(n.ID)
			}
			if merged != nil {
				color = merged
			}
		}
	}

	geom = color
	if scene.Classify(n) == scene.KindGisFeature {
		geom = n
	}
	return geom, color, nil
}

// mergeDisplay concatenates display meshes, offsetting face indexes by the
// vertices already merged. Vertex colors survive only when every mesh carries
// one color per vertex. Lists without meshes fall back to their first node.
func mergeDisplay(owner *scene.Node, items []any) (*scene.Node, error) {
	var (
		meshes   []*scene.Node
		fallback *scene.Node
	)
	for _, item := range items {
		node, ok := item.(*scene.Node)
		if !ok || node == nil {
			continue
		}
		if scene.Classify(node) == scene.KindMesh {
			meshes = append(meshes, node)
		} else if fallback == nil {
			fallback = node
		}
	}

	if len(meshes) == 0 {
		return fallback, nil
	}
	if len(meshes) == 1 {
		return meshes[0], nil
	}

	var (
		verts  []any
		faces  []any
		colors []any
	)
	colorsValid := true

	for _, m := range meshes {
		mv, _ := m.Numbers("vertices")
		mf, _ := m.Numbers("faces")
		mc, _ := m.Numbers("colors")

		start := len(verts) / 3
		if colorsValid && len(mc) > 0 && len(mc) == len(mv)/3 {
			for _, c := range mc {
				colors = append(colors, int64(c))
			}
		} else {
			colorsValid = false
			colors = nil
		}

		for _, v := range mv {
			verts = append(verts, v)
		}

		for i := 0; i < len(mf); {
			n := int(mf[i])
			faces = append(faces, int64(n))
			switch n {
			case 0:
				n = 3
			case 1:
				n = 4
			}
			if n < 0 || i+1+n > len(mf) {
				return nil, fmt.Errorf("mesh %s: face at %d declares %d vertices beyond the face list", m.ID, i, n)
			}
			for _, idx := range mf[i+1 : i+1+n] {
				faces = append(faces, int64(idx)+int64(start))
			}
			i += n + 1
		}
	}

	members := make([]scene.Member, 0, len(meshes[0].Members())+3)
	for _, m := range meshes[0].Members() {
		if !meshBufferMembers[m.Name] {
			members = append(members, m)
		}
	}
	members = append(members,
		scene.M("vertices", verts),
		scene.M("faces", faces),
		scene.M("colors", colors),
	)

	return scene.New(meshes[0].Type, owner.ID, members...), nil
}
