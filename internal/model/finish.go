package model

import (
	"fmt"
	"sort"

	"github.com/robert-at-pretension-io/regmap-gen/internal/space"
)

// Finish lays out the component's word space and every register's bit space.
// It must be called once after loading and before any generation.
func (c *Component) Finish() error {
	if c.Width <= 0 || c.Width%8 != 0 {
		return &ShapeError{Node: c, Msg: fmt.Sprintf("bus width %d is not a positive multiple of 8", c.Width)}
	}
	c.Space = space.New[Node](c.Size)
	for _, child := range c.Regs {
		switch v := child.(type) {
		case *Register:
			if err := v.finish(c.Width); err != nil {
				return err
			}
			if err := place(c.Space, v, v.Offset, v.WordSize); err != nil {
				return err
			}
		case *RegisterArray:
			if err := v.finish(c.Width); err != nil {
				return err
			}
			if err := place(c.Space, v, v.Offset, v.Size()); err != nil {
				return err
			}
		default:
			return &ShapeError{Node: child, Msg: "only registers and register arrays may sit in a component"}
		}
	}
	return nil
}

func (a *RegisterArray) finish(width int) error {
	if a.Count <= 0 {
		return &ShapeError{Node: a, Msg: fmt.Sprintf("repeat count %d", a.Count)}
	}

	// Lay the frame out packed first to learn its natural size, then honor
	// an explicit framesize as long as the children fit it.
	end := 0
	for _, child := range a.Regs {
		switch v := child.(type) {
		case *Register:
			if err := v.finish(width); err != nil {
				return err
			}
			end = frameEnd(end, v.Offset, v.WordSize)
		case *RegisterArray:
			if err := v.finish(width); err != nil {
				return err
			}
			end = frameEnd(end, v.Offset, v.Size())
		default:
			return &ShapeError{Node: child, Msg: "only registers and register arrays may sit in an array frame"}
		}
	}
	if a.Framesize == 0 {
		a.Framesize = end
	}

	a.Space = space.New[Node](a.Framesize)
	for _, child := range a.Regs {
		switch v := child.(type) {
		case *Register:
			if err := place(a.Space, v, v.Offset, v.WordSize); err != nil {
				return err
			}
		case *RegisterArray:
			if err := place(a.Space, v, v.Offset, v.Size()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Register) finish(width int) error {
	if r.Width == 0 {
		r.Width = width
	}
	if r.Width <= 0 {
		return &ShapeError{Node: r, Msg: fmt.Sprintf("register width %d", r.Width)}
	}
	if r.WordSize == 0 {
		r.WordSize = 1
	}
	if r.ReadOnly && r.WriteOnly {
		return &ShapeError{Node: r, Msg: "register is both read-only and write-only"}
	}
	if !r.Complex() {
		r.Space = nil
		return nil
	}

	// A field without an explicit bit offset sits right after the previous
	// field, like offset-less registers in a word space.
	next := 0
	for _, f := range r.Fields {
		if f.Offset < 0 {
			f.Offset = next
		}
		next = f.Offset + f.Width
	}
	sort.SliceStable(r.Fields, func(i, j int) bool { return r.Fields[i].Offset < r.Fields[j].Offset })
	r.Space = space.New[Node](r.Width)
	for _, f := range r.Fields {
		if f.Width <= 0 {
			return &ShapeError{Node: f, Msg: fmt.Sprintf("field width %d", f.Width)}
		}
		if err := r.Space.AddAt(f, f.Offset, f.Width); err != nil {
			return &LayoutError{Node: f, Err: err}
		}
		for _, e := range f.Enums {
			if f.Width < 64 && e.Value>>uint(f.Width) != 0 {
				return &ShapeError{Node: e, Msg: fmt.Sprintf("value %d does not fit in %d bits", e.Value, f.Width)}
			}
		}
	}
	return nil
}

// Finish resolves instance bindings against the loaded components and lays
// out the map's byte space. Component.Finish must already have run for every
// bound component.
func (m *MemoryMap) Finish(components map[string]*Component) error {
	// First pass: resolve bindings and find the extent of the map.
	end := 0
	pos := 0
	type placement struct {
		node  Node
		start int
		size  int
	}
	var placements []placement
	for _, child := range m.Insts {
		var start, size int
		switch v := child.(type) {
		case *Instance:
			if err := v.bind(components); err != nil {
				return err
			}
			start, size = v.Offset, v.Binding.ByteSize()
		case *InstanceArray:
			inner := v.Inner()
			if inner == nil {
				return &ShapeError{Node: v, Msg: "instance arrays must wrap exactly one instance"}
			}
			if v.Count <= 0 {
				return &ShapeError{Node: v, Msg: fmt.Sprintf("repeat count %d", v.Count)}
			}
			if err := inner.bind(components); err != nil {
				return err
			}
			start, size = v.Offset, v.Count*inner.Binding.ByteSize()
		default:
			return &ShapeError{Node: child, Msg: "only instances and instance arrays may sit in a memory map"}
		}
		if start < 0 {
			start = pos
		}
		switch v := child.(type) {
		case *Instance:
			v.Offset = start
		case *InstanceArray:
			v.Offset = start
		}
		placements = append(placements, placement{node: child, start: start, size: size})
		pos = start + size
		if pos > end {
			end = pos
		}
	}

	m.Space = space.New[Node](end)
	for _, p := range placements {
		if err := m.Space.AddAt(p.node, p.start, p.size); err != nil {
			return &LayoutError{Node: p.node, Err: err}
		}
	}
	return nil
}

func (i *Instance) bind(components map[string]*Component) error {
	comp, ok := components[i.BindName]
	if !ok {
		return &ShapeError{Node: i, Msg: fmt.Sprintf("binding %q matches no loaded component", i.BindName)}
	}
	i.Binding = comp
	return nil
}

func place(s *space.Space[Node], child Node, offset, size int) error {
	var err error
	if offset < 0 {
		offset, err = s.Add(child, size)
		switch v := child.(type) {
		case *Register:
			v.Offset = offset
		case *RegisterArray:
			v.Offset = offset
		}
	} else {
		err = s.AddAt(child, offset, size)
	}
	if err != nil {
		return &LayoutError{Node: child, Err: err}
	}
	return nil
}

func frameEnd(end, offset, size int) int {
	if offset < 0 {
		return end + size
	}
	if offset+size > end {
		return offset + size
	}
	return end
}
