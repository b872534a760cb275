// Package model defines the register map tree: memory maps instantiate
// components, components own registers and register arrays, registers own
// bit fields, fields own enumerated values. The tree is built by a loader,
// finished once (bindings resolved, address spaces laid out) and then read
// only, except for identifier legalization.
package model

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/regmap-gen/internal/space"
)

// Kind discriminates the closed set of node types.
type Kind int

const (
	KindMemoryMap Kind = iota
	KindComponent
	KindInstance
	KindInstanceArray
	KindRegisterArray
	KindRegister
	KindField
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindMemoryMap:
		return "memorymap"
	case KindComponent:
		return "component"
	case KindInstance:
		return "instance"
	case KindInstanceArray:
		return "instancearray"
	case KindRegisterArray:
		return "registerarray"
	case KindRegister:
		return "register"
	case KindField:
		return "field"
	case KindEnum:
		return "enum"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Source locates a node in its defining document.
type Source struct {
	File string
	Line int
}

func (s Source) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// NodeInfo is the naming and provenance data every node carries.
type NodeInfo struct {
	Name       string
	Identifier string // legalized rendering identifier; empty means Name
	Desc       []string
	Src        Source
}

// Info exposes the shared node data through the Node interface.
func (n *NodeInfo) Info() *NodeInfo { return n }

// Ident returns the rendering identifier, defaulting to the name.
func (n *NodeInfo) Ident() string {
	if n.Identifier != "" {
		return n.Identifier
	}
	return n.Name
}

// Describe joins the description paragraphs into one block of text.
func (n *NodeInfo) Describe() string { return strings.Join(n.Desc, "\n\n") }

// Node is any entity in the register map tree.
type Node interface {
	Kind() Kind
	Info() *NodeInfo
	Children() []Node
}

// Format is the numeric interpretation of a register or field value.
type Format int

const (
	FormatBits Format = iota
	FormatSigned
	FormatUnsigned
)

func (f Format) String() string {
	switch f {
	case FormatSigned:
		return "signed"
	case FormatUnsigned:
		return "unsigned"
	}
	return "bits"
}

// ParseFormat maps a source attribute to a Format. The empty string means
// raw bits.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "bits":
		return FormatBits, nil
	case "signed":
		return FormatSigned, nil
	case "unsigned":
		return FormatUnsigned, nil
	}
	return FormatBits, fmt.Errorf("unknown format %q", s)
}

// MemoryMap places component instances at byte addresses.
type MemoryMap struct {
	NodeInfo
	Base  uint64 // absolute byte address of the map
	Insts []Node // *Instance and *InstanceArray, declaration order

	// Space maps byte offsets relative to Base to instances. Built by Finish.
	Space *space.Space[Node]
}

func (m *MemoryMap) Kind() Kind       { return KindMemoryMap }
func (m *MemoryMap) Children() []Node { return m.Insts }

// Component is one addressable register file.
type Component struct {
	NodeInfo
	Width int    // bus data width in bits
	Size  int    // addressable words
	Regs  []Node // *Register and *RegisterArray, declaration order

	// Space maps word offsets to registers and arrays. Built by Finish.
	Space *space.Space[Node]
}

func (c *Component) Kind() Kind       { return KindComponent }
func (c *Component) Children() []Node { return c.Regs }

// ByteSize returns the footprint of the component in bytes.
func (c *Component) ByteSize() int { return c.Size * c.Width / 8 }

// Instance is a named placement of a component inside a memory map.
// Offset is a byte offset relative to the map base; negative means "place at
// the next free address".
type Instance struct {
	NodeInfo
	Offset   int
	BindName string // component name, resolved by MemoryMap.Finish
	Binding  *Component
}

func (i *Instance) Kind() Kind       { return KindInstance }
func (i *Instance) Children() []Node { return nil }

// InstanceArray repeats a single instance Count times with a per-element
// stride equal to the bound component's byte size.
type InstanceArray struct {
	NodeInfo
	Offset int
	Count  int
	Insts  []Node // must hold exactly one *Instance
}

func (a *InstanceArray) Kind() Kind       { return KindInstanceArray }
func (a *InstanceArray) Children() []Node { return a.Insts }

// Inner returns the repeated instance once Finish has validated the shape.
func (a *InstanceArray) Inner() *Instance {
	if len(a.Insts) != 1 {
		return nil
	}
	inst, _ := a.Insts[0].(*Instance)
	return inst
}

// RegisterArray repeats a frame of one or more registers. Offset and
// Framesize are in words; the frame-local layout lives in Space.
type RegisterArray struct {
	NodeInfo
	Offset    int // word offset within the parent; negative means auto
	Count     int // repeated elements
	Framesize int // words per element; 0 means packed from the children
	Regs      []Node

	// Space maps frame-local word offsets to the frame's children.
	Space *space.Space[Node]
}

func (a *RegisterArray) Kind() Kind       { return KindRegisterArray }
func (a *RegisterArray) Children() []Node { return a.Regs }

// Size returns the total words occupied by the array.
func (a *RegisterArray) Size() int { return a.Count * a.Framesize }

// Register is a single addressable word (or, rarely, a multi-word run).
// An empty field space makes it a simple scalar register.
type Register struct {
	NodeInfo
	Offset    int // word offset within the parent; negative means auto
	Width     int // bits
	WordSize  int // words occupied, normally 1
	Format    Format
	ReadOnly  bool
	WriteOnly bool
	Fields    []*Field

	// Space maps bit offsets to fields; nil for a simple register.
	Space *space.Space[Node]
}

func (r *Register) Kind() Kind { return KindRegister }

func (r *Register) Children() []Node {
	out := make([]Node, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f
	}
	return out
}

// Complex reports whether the register has a structured field space.
func (r *Register) Complex() bool { return len(r.Fields) > 0 }

// Field is a bit range inside a register.
type Field struct {
	NodeInfo
	Offset int // bit offset within the register
	Width  int // bits
	Format Format
	Enums  []*Enum
}

func (f *Field) Kind() Kind { return KindField }

func (f *Field) Children() []Node {
	out := make([]Node, len(f.Enums))
	for i, e := range f.Enums {
		out[i] = e
	}
	return out
}

// Enum is a symbolic value of a field.
type Enum struct {
	NodeInfo
	Value uint64
}

func (e *Enum) Kind() Kind       { return KindEnum }
func (e *Enum) Children() []Node { return nil }
