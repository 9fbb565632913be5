package props

import (
	"github.com/woozymasta/speckle2geojson/internal/fault"

	"github.com/google/cel-go/cel"
)

// Where is a compiled boolean expression over the "properties" map,
// e.g. `properties.level == "L1" && properties.area > 10.0`.
type Where struct {
	prg cel.Program
	src string
}

// CompileWhere compiles a CEL expression. An empty source yields nil,
// which matches everything.
func CompileWhere(src string) (*Where, error) {
	if src == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("properties", cel.MapType(cel.StringType, cel.DynType)),
		// scene numbers decode as int64 or float64
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidFilter, "compile where", err)
	}

	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fault.Wrap(fault.InvalidFilter, "compile where", iss.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidFilter, "compile where", err)
	}

	return &Where{prg: prg, src: src}, nil
}

// String returns the expression source.
func (w *Where) String() string {
	if w == nil {
		return ""
	}
	return w.src
}

// Match evaluates the expression. Evaluation errors, such as a missing
// key, and non-boolean results count as no match.
func (w *Where) Match(p map[string]any) bool {
	if w == nil {
		return true
	}
	out, _, err := w.prg.Eval(map[string]any{"properties": p})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
