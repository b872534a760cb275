// Package walk drives generation passes over the register map tree. A pass
// fills a Handlers struct with the node kinds it cares about; everything
// else recurses into the children in declaration order. Output goes to an
// append-only Sink, and ambient traversal state lives in Scoped stacks that
// are pushed around a subtree and restored on the way out.
package walk

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
)

// Handlers holds one optional handler per node kind plus a fallback.
type Handlers struct {
	MemoryMap     func(*model.MemoryMap) error
	Component     func(*model.Component) error
	Instance      func(*model.Instance) error
	InstanceArray func(*model.InstanceArray) error
	RegisterArray func(*model.RegisterArray) error
	Register      func(*model.Register) error
	Field         func(*model.Field) error
	Enum          func(*model.Enum) error
	Default       func(model.Node) error
}

// Walk dispatches n to the matching handler. With no handler for the kind it
// falls back to Default, and with no Default it recurses into the children.
func Walk(n model.Node, h Handlers) error {
	switch v := n.(type) {
	case *model.MemoryMap:
		if h.MemoryMap != nil {
			return h.MemoryMap(v)
		}
	case *model.Component:
		if h.Component != nil {
			return h.Component(v)
		}
	case *model.Instance:
		if h.Instance != nil {
			return h.Instance(v)
		}
	case *model.InstanceArray:
		if h.InstanceArray != nil {
			return h.InstanceArray(v)
		}
	case *model.RegisterArray:
		if h.RegisterArray != nil {
			return h.RegisterArray(v)
		}
	case *model.Register:
		if h.Register != nil {
			return h.Register(v)
		}
	case *model.Field:
		if h.Field != nil {
			return h.Field(v)
		}
	case *model.Enum:
		if h.Enum != nil {
			return h.Enum(v)
		}
	default:
		return &model.ShapeError{Node: n, Msg: "unrecognized node kind in dispatch"}
	}
	if h.Default != nil {
		return h.Default(n)
	}
	return Children(n, h)
}

// Children walks every child of n in declaration order.
func Children(n model.Node, h Handlers) error {
	for _, c := range n.Children() {
		if err := Walk(c, h); err != nil {
			return err
		}
	}
	return nil
}

// Sink is the append-only text buffer a pass writes to. Passes never read
// back what was written.
type Sink struct {
	buf strings.Builder
}

// Linef writes one formatted line.
func (s *Sink) Linef(format string, args ...any) {
	fmt.Fprintf(&s.buf, format, args...)
	s.buf.WriteByte('\n')
}

// Line writes one literal line.
func (s *Sink) Line(text string) {
	s.buf.WriteString(text)
	s.buf.WriteByte('\n')
}

// Blank writes an empty line.
func (s *Sink) Blank() { s.buf.WriteByte('\n') }

// Block writes a multi-line text fragment as-is, terminating it with a
// newline when the fragment lacks one.
func (s *Sink) Block(text string) {
	s.buf.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		s.buf.WriteByte('\n')
	}
}

func (s *Sink) String() string { return s.buf.String() }

// Scoped is a value stack for ambient traversal state: push before
// descending into a subtree, pop when leaving it, and the previous value is
// back in scope. Value reads the innermost frame.
type Scoped[T any] struct {
	stack []T
}

func (s *Scoped[T]) Push(v T) { s.stack = append(s.stack, v) }

func (s *Scoped[T]) Pop() T {
	n := len(s.stack) - 1
	v := s.stack[n]
	s.stack = s.stack[:n]
	return v
}

// Value returns the innermost frame, or the zero value outside any frame.
func (s *Scoped[T]) Value() T {
	if len(s.stack) == 0 {
		var zero T
		return zero
	}
	return s.stack[len(s.stack)-1]
}

// Set replaces the innermost frame.
func (s *Scoped[T]) Set(v T) {
	s.stack[len(s.stack)-1] = v
}
