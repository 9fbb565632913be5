// Package traverse walks a scene graph depth-first and records
// traversal contexts in an arena with parent indexes.
package traverse

import (
	"github.com/woozymasta/speckle2geojson/internal/scene"
)

// NoParent is the parent index of the root context.
const NoParent = -1

// Context wraps a visited node with the arena index of its parent context.
type Context struct {
	Node   *scene.Node
	Parent int
	Depth  int
	Kind   scene.Kind
}

// Arena owns every context produced by one walk.
type Arena struct {
	contexts []Context
}

// Len returns the number of contexts recorded so far.
func (a *Arena) Len() int {
	return len(a.contexts)
}

// At returns the context at index i.
func (a *Arena) At(i int) Context {
	return a.contexts[i]
}

// Ancestors returns the indexes of the parents of i, nearest first.
func (a *Arena) Ancestors(i int) []int {
	var out []int
	for p := a.contexts[i].Parent; p != NoParent; p = a.contexts[p].Parent {
		out = append(out, p)
	}
	return out
}

// Nearest returns the index of i or its closest ancestor matching pred, or NoParent.
func (a *Arena) Nearest(i int, pred func(*scene.Node) bool) int {
	for j := i; j != NoParent; j = a.contexts[j].Parent {
		if pred(a.contexts[j].Node) {
			return j
		}
	}
	return NoParent
}

// skipMembers never hold child nodes worth visiting.
var skipMembers = map[string]bool{
	"speckle_type":  true,
	"units":         true,
	"applicationId": true,
	"__closure":     true,
}

type frame struct {
	node   *scene.Node
	parent int
	depth  int
}

// Walker yields contexts lazily in depth-first pre-order.
// It is not restartable: once exhausted it keeps returning false.
type Walker struct {
	arena *Arena
	stack []frame
}

// Walk starts a traversal of root. A nil root yields nothing.
func Walk(root *scene.Node) *Walker {
	w := &Walker{arena: &Arena{}}
	if root != nil {
		w.stack = append(w.stack, frame{node: root, parent: NoParent})
	}
	return w
}

// Arena returns the arena the walker records into.
func (w *Walker) Arena() *Arena {
	return w.arena
}

// Next visits the next node and returns its context index.
func (w *Walker) Next() (int, bool) {
	if len(w.stack) == 0 {
		return 0, false
	}

	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]

	kind := scene.Classify(top.node)
	idx := len(w.arena.contexts)
	w.arena.contexts = append(w.arena.contexts, Context{
		Node:   top.node,
		Parent: top.parent,
		Depth:  top.depth,
		Kind:   kind,
	})

	if !kind.Terminal() {
		w.pushChildren(top.node, idx, top.depth+1)
	}

	return idx, true
}

// All drains the walker and returns the complete arena.
func (w *Walker) All() *Arena {
	for {
		if _, ok := w.Next(); !ok {
			return w.arena
		}
	}
}

// pushChildren pushes node elements of list members in reverse,
// so they pop in declaration order. Non-node elements are ignored.
func (w *Walker) pushChildren(n *scene.Node, parent, depth int) {
	var children []*scene.Node
	for _, m := range n.Members() {
		if skipMembers[m.Name] {
			continue
		}
		list, ok := m.Value.([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if child, ok := item.(*scene.Node); ok && child != nil {
				children = append(children, child)
			}
		}
	}

	for i := len(children) - 1; i >= 0; i-- {
		w.stack = append(w.stack, frame{node: children[i], parent: parent, depth: depth})
	}
}
