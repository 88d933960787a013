// Package schema decomposes a JSON-Schema-like target document into flat leaf
// parameter descriptors plus the structural skeleton needed to re-assemble
// the populated output.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Descriptor is one extractable parameter declared by the schema. Immutable
// once parsed.
type Descriptor struct {
	Name        string `json:"name"`    // unique key within its section, ASCII-safe
	Section     string `json:"section"`
	Label       string `json:"label,omitempty"`       // human-readable, any language
	Description string `json:"description,omitempty"` // instructs extraction
	DesiredUnit string `json:"desired_unit,omitempty"` // empty means no conversion
}

// Key returns the section-qualified parameter key.
func (d Descriptor) Key() string {
	return d.Section + "/" + d.Name
}

// Section is one named group of parameters, in declaration order.
type Section struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

// Skeleton preserves the document structure the walker flattened, so the
// merger can re-assemble a schema-shaped output.
type Skeleton struct {
	Title    string    `json:"title,omitempty"`
	Required []string  `json:"required"` // required top-level sections, unchanged
	Sections []Section `json:"sections"`
}

// Walked is the result of flattening a schema document.
type Walked struct {
	Descriptors []Descriptor
	Skeleton    Skeleton
}

// Names returns all parameter names in walk order.
func (w *Walked) Names() []string {
	names := make([]string, 0, len(w.Descriptors))
	for _, d := range w.Descriptors {
		names = append(names, d.Name)
	}
	return names
}

// ErrorKind classifies schema failures.
type ErrorKind string

const (
	ErrMalformed     ErrorKind = "malformed"
	ErrUnresolvedRef ErrorKind = "unresolved_ref"
	ErrCyclic        ErrorKind = "cyclic"
	ErrCollision     ErrorKind = "collision"
)

// Error is a fatal schema problem. It aborts a run before any inference call.
type Error struct {
	Kind ErrorKind
	Path string // schema location, e.g. "parameters/circuit_breaker"
	Msg  string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("schema error (%s) at %s: %s", e.Kind, e.Path, e.Msg)
	}
	return fmt.Sprintf("schema error (%s): %s", e.Kind, e.Msg)
}

func schemaErr(kind ErrorKind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Document is a parsed schema document as a generic map, the convention used
// for schemas passed to structured-output model calls.
type Document struct {
	root map[string]any
}

// Parse decodes a raw schema document. Structural validation happens in Walk.
func Parse(raw []byte) (*Document, error) {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, schemaErr(ErrMalformed, "", "decode: %v", err)
	}
	return &Document{root: root}, nil
}

// FromMap wraps an already-decoded schema map.
func FromMap(root map[string]any) *Document {
	return &Document{root: root}
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validName(s string) bool {
	return nameRe.MatchString(s)
}
