package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	typeKey         = "speckle_type"
	idKey           = "id"
	referenceType   = "reference"
	referencedIDKey = "referencedId"
)

// ErrNotObject is returned when the decoded root is not a JSON object.
var ErrNotObject = errors.New("scene root is not an object")

// Parse decodes a single inline object tree, preserving member order.
func Parse(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}

	root, ok := v.(*Node)
	if !ok {
		return nil, ErrNotObject
	}
	return root, nil
}

// ParseStore decodes an object dump: a JSON array of objects where the first
// element is the root and detached children are referenced by
// {"speckle_type": "reference", "referencedId": "..."} placeholders.
// Placeholders are replaced by the referenced objects; unknown references are kept as is.
func ParseStore(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode object store: %w", err)
	}

	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("decode object store: expected non-empty array of objects")
	}

	objects := make(map[string]*Node, len(list))
	nodes := make([]*Node, 0, len(list))
	for i, item := range list {
		n, ok := item.(*Node)
		if !ok {
			return nil, fmt.Errorf("decode object store: element %d: %w", i, ErrNotObject)
		}
		if n.ID != "" {
			objects[n.ID] = n
		}
		nodes = append(nodes, n)
	}

	for _, n := range nodes {
		resolveRefs(n, objects)
	}

	return nodes[0], nil
}

// resolveRefs replaces reference placeholders in n and its inline children.
// Referenced objects are resolved on their own pass, so targets are not revisited.
func resolveRefs(n *Node, objects map[string]*Node) {
	for i := range n.members {
		n.members[i].Value = resolveValue(n.members[i].Value, objects)
	}
}

func resolveValue(v any, objects map[string]*Node) any {
	switch t := v.(type) {
	case *Node:
		if t.Type == referenceType {
			ref := t.String(referencedIDKey)
			if target, ok := objects[ref]; ok {
				return target
			}
			log.Debug().Str("ref", ref).Msg("Unresolved reference kept as placeholder")
			return t
		}
		resolveRefs(t, objects)
		return t
	case []any:
		for i := range t {
			t[i] = resolveValue(t[i], objects)
		}
		return t
	}
	return v
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		return decodeNumber(t)
	case string, bool, nil:
		return t, nil
	}

	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (*Node, error) {
	n := &Node{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}

		switch key {
		case typeKey:
			if s, ok := v.(string); ok {
				n.Type = s
				continue
			}
		case idKey:
			if s, ok := v.(string); ok {
				n.ID = s
				continue
			}
		}
		n.set(key, v)
	}

	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	list := make([]any, 0)
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", len(list), err)
		}
		list = append(list, v)
	}

	// closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return list, nil
}

func decodeNumber(num json.Number) (any, error) {
	if i, err := strconv.ParseInt(string(num), 10, 64); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", num, err)
	}
	return f, nil
}

// MarshalJSON renders the node as a JSON object with "id" and "speckle_type" first,
// followed by members in declaration order.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	writeMember := func(name string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')

		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		buf.Write(data)
		return nil
	}

	if n.ID != "" {
		if err := writeMember(idKey, n.ID); err != nil {
			return nil, err
		}
	}
	if n.Type != "" {
		if err := writeMember(typeKey, n.Type); err != nil {
			return nil, err
		}
	}
	for _, m := range n.members {
		if err := writeMember(m.Name, m.Value); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
