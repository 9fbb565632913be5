// Package scene holds the in-memory scene graph model consumed by the converter.
package scene

import (
	"strings"
)

// Member is a single named value of a Node.
// Value is one of nil, string, bool, int64, float64, *Node or []any.
type Member struct {
	Value any
	Name  string
}

// Node is a scene graph object: a type tag, a stable identifier and
// an ordered set of named members.
//
// Nodes are read-only once built by New or the parsers in this package.
type Node struct {
	index   map[string]int
	Type    string
	ID      string
	members []Member
}

// New builds a node from ordered members. Later duplicates replace earlier values.
func New(typ, id string, members ...Member) *Node {
	n := &Node{Type: typ, ID: id}
	for _, m := range members {
		n.set(m.Name, m.Value)
	}
	return n
}

// M is shorthand for a Member literal.
func M(name string, value any) Member {
	return Member{Name: name, Value: value}
}

func (n *Node) set(name string, value any) {
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[name]; ok {
		n.members[i].Value = value
		return
	}
	n.index[name] = len(n.members)
	n.members = append(n.members, Member{Name: name, Value: value})
}

// Members returns the node members in declaration order.
// The returned slice must not be modified.
func (n *Node) Members() []Member {
	if n == nil {
		return nil
	}
	return n.members
}

// Has reports whether the member is present, even if its value is null.
func (n *Node) Has(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.index[name]
	return ok
}

// Get returns a member value by name.
func (n *Node) Get(name string) (any, bool) {
	if n == nil {
		return nil, false
	}
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.members[i].Value, true
}

// Lookup returns the first present and non-null member out of names.
// It covers detached member pairs such as "displayValue" and "@displayValue".
func (n *Node) Lookup(names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := n.Get(name); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Child returns the first member out of names holding a node.
func (n *Node) Child(names ...string) *Node {
	v, ok := n.Lookup(names...)
	if !ok {
		return nil
	}
	c, _ := v.(*Node)
	return c
}

// List returns the first member out of names holding a list.
func (n *Node) List(names ...string) []any {
	v, ok := n.Lookup(names...)
	if !ok {
		return nil
	}
	l, _ := v.([]any)
	return l
}

// String returns a string member or "".
func (n *Node) String(name string) string {
	v, _ := n.Get(name)
	s, _ := v.(string)
	return s
}

// Bool returns a boolean member or false.
func (n *Node) Bool(name string) bool {
	v, _ := n.Get(name)
	b, _ := v.(bool)
	return b
}

// Float returns a numeric member as float64.
func (n *Node) Float(name string) (float64, bool) {
	v, ok := n.Get(name)
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

// Numbers returns a numeric list member, flattening data chunks
// ({"data": [...]}) the way object dumps split large arrays.
func (n *Node) Numbers(name string) ([]float64, bool) {
	v, ok := n.Get(name)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}

	out := make([]float64, 0, len(list))
	for _, item := range list {
		if chunk, isNode := item.(*Node); isNode {
			part, ok := chunk.Numbers("data")
			if !ok {
				return nil, false
			}
			out = append(out, part...)
			continue
		}
		f, ok := AsFloat(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// Units returns the declared "units" member.
func (n *Node) Units() string {
	return n.String("units")
}

// TypeName returns the most specific segment of the type chain,
// e.g. "Objects.Geometry.Mesh" for "Objects.Geometry.Brep:Objects.Geometry.Mesh".
func (n *Node) TypeName() string {
	if n == nil {
		return ""
	}
	if i := strings.LastIndexByte(n.Type, ':'); i >= 0 {
		return n.Type[i+1:]
	}
	return n.Type
}

// AsFloat converts a numeric member value to float64.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}
