// Package props flattens node members into feature properties and keeps
// the property schema uniform across features.
package props

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/woozymasta/speckle2geojson/internal/scene"
)

// Keys seeded by the assembler; extraction never overwrites them.
const (
	KeyID          = "id"
	KeyFID         = "FID"
	KeySpeckleType = "speckle_type"
)

// AttributesMember is merged flat instead of being stringified.
const AttributesMember = "attributes"

// denied members carry geometry buffers or render data.
var denied = map[string]bool{
	"geometry":           true,
	"displayValue":       true,
	"@displayValue":      true,
	"vertices":           true,
	"faces":              true,
	"colors":             true,
	"textureCoordinates": true,
	"renderMaterial":     true,
	"@renderMaterial":    true,
	"displayStyle":       true,
	"@displayStyle":      true,
	"boundary":           true,
	"voids":              true,
	"value":              true,
	"points":             true,
	"segments":           true,
	"elements":           true,
	"@elements":          true,
	"bbox":               true,
	"crs":                true,
	"totalChildrenCount": true,
}

var reserved = map[string]bool{
	KeyID:          true,
	KeyFID:         true,
	KeySpeckleType: true,
}

// Denied reports whether a member is excluded from properties.
func Denied(name string) bool {
	return denied[name] || strings.HasPrefix(name, "__")
}

// Seed returns the reserved properties of a feature.
func Seed(n *scene.Node, fid int) map[string]any {
	return map[string]any{
		KeyID:          n.ID,
		KeyFID:         fid,
		KeySpeckleType: n.TypeName(),
	}
}

// Extract copies the members of n into dst. Scalars are kept, composite
// values are stringified as compact JSON, and the attributes member is merged
// flat. Reserved keys already in dst are left untouched.
func Extract(n *scene.Node, dst map[string]any) {
	for _, m := range n.Members() {
		if Denied(m.Name) {
			continue
		}
		if m.Name == AttributesMember {
			if attrs, ok := m.Value.(*scene.Node); ok {
				for _, am := range attrs.Members() {
					if !Denied(am.Name) {
						set(dst, am.Name, am.Value)
					}
				}
				continue
			}
		}
		set(dst, m.Name, m.Value)
	}
}

func set(dst map[string]any, key string, v any) {
	if reserved[key] {
		return
	}
	dst[key] = Flatten(v)
}

// Flatten keeps primitive values and stringifies nodes and lists.
func Flatten(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64, int:
		return t
	case *scene.Node, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

// Normalize back-fills every map with nil for keys it lacks and returns the
// union of keys in first-seen order.
func Normalize(maps []map[string]any) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range maps {
		for _, k := range sortedKeys(m) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	for _, m := range maps {
		for _, k := range keys {
			if _, ok := m[k]; !ok {
				m[k] = nil
			}
		}
	}
	return keys
}

// sortedKeys puts reserved keys first, the rest in lexical order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for _, k := range []string{KeyID, KeyFID, KeySpeckleType} {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !reserved[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

// Filter is an equality condition on a property.
type Filter struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// ParseFilter reads "name=value".
func ParseFilter(s string) (Filter, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return Filter{}, fmt.Errorf("property filter %q must look like name=value", s)
	}
	return Filter{Name: strings.TrimSpace(name), Value: value}, nil
}

// Match reports whether every filter equals the formatted property value.
// A missing property never matches.
func Match(p map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := p[f.Name]
		if !ok || Format(v) != f.Value {
			return false
		}
	}
	return true
}

// Format renders a property value for comparison.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Select keeps only the listed keys. An empty list keeps everything.
func Select(p map[string]any, keys []string) map[string]any {
	if len(keys) == 0 {
		return p
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := p[k]; ok {
			out[k] = v
		}
	}
	return out
}
