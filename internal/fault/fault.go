// Package fault defines the error taxonomy of a conversion run.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a conversion failure.
type Kind string

const (
	// CRSNotResolvable means no spatial reference could be determined or built.
	CRSNotResolvable Kind = "CRS_NOT_RESOLVABLE"

	// NoSupportedFeatures means a full pass produced neither features nor comments.
	NoSupportedFeatures Kind = "NO_SUPPORTED_FEATURES"

	// UnsupportedGeometryType means a node has no geometry decoder; the node is skipped.
	UnsupportedGeometryType Kind = "UNSUPPORTED_GEOMETRY_TYPE"

	// MalformedNode means a node's expected members are absent or inconsistent; the node is skipped.
	MalformedNode Kind = "MALFORMED_NODE"

	// TransformFailure means the coordinate transform could not complete.
	TransformFailure Kind = "TRANSFORM_FAILURE"

	// InvalidFilter means a caller supplied filter expression does not compile.
	InvalidFilter Kind = "INVALID_FILTER"
)

// Fatal reports whether a failure of this kind aborts the run.
func (k Kind) Fatal() bool {
	switch k {
	case UnsupportedGeometryType, MalformedNode:
		return false
	}
	return true
}

// Error is a conversion error carrying its kind and the failing node, if any.
type Error struct {
	// Err is the underlying cause
	Err error

	// Kind is the failure class
	Kind Kind

	// Op is the operation that failed, e.g. "decode" or "resolve crs"
	Op string

	// NodeID identifies the scene node, empty for run level failures
	NodeID string

	// Message is a human-readable description
	Message string
}

// New creates an error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithNode records the identifier of the failing node.
func (e *Error) WithNode(id string) *Error {
	e.NodeID = id
	return e
}

// Error formats as "op [KIND] node <id>: message: cause".
func (e *Error) Error() string {
	var parts []string

	head := fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	if e.NodeID != "" {
		head += " node " + e.NodeID
	}
	parts = append(parts, head)

	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, fault.Sentinel(kind)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel returns a comparable error value for errors.Is checks.
func Sentinel(kind Kind) error {
	return &Error{Kind: kind}
}

// KindOf extracts the kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
