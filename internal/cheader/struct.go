package cheader

import (
	"fmt"

	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
	"github.com/robert-at-pretension-io/regmap-gen/internal/space"
	"github.com/robert-at-pretension-io/regmap-gen/internal/walk"
)

// storageType returns the access annotation and word type of one register
// struct member.
func storageType(r *model.Register) string {
	storage := "__IO"
	switch {
	case r.ReadOnly:
		storage = "__I"
	case r.WriteOnly:
		storage = "__O"
	}
	ctype := "uint32_t"
	if r.Format == model.FormatSigned {
		ctype = "int32_t"
	}
	return fmt.Sprintf("%-4s %s", storage, ctype)
}

// structInnards emits the members of a register struct, one word per line.
// Unoccupied words become read-only rsvdN fillers so the member offsets
// stay true to the address map.
func structInnards(s *walk.Sink, sp *space.Space[model.Node], indent string) error {
	for _, region := range sp.Regions() {
		if region.Gap {
			for i := region.Start; i < region.Start+region.Size; i++ {
				s.Linef("%s__I  uint32_t rsvd%d;", indent, i)
			}
			continue
		}
		switch v := region.Child.(type) {
		case *model.Register:
			if err := registerMember(s, v, indent); err != nil {
				return err
			}
		case *model.RegisterArray:
			if err := arrayMember(s, v, indent); err != nil {
				return err
			}
		default:
			return &model.ShapeError{Node: region.Child, Msg: "only registers and register arrays may sit in a component"}
		}
	}
	return nil
}

func registerMember(s *walk.Sink, r *model.Register, indent string) error {
	if r.WordSize != 1 {
		return &model.ShapeError{Node: r, Msg: "multi-word registers are not supported"}
	}
	if desc := r.Describe(); desc != "" {
		s.Block(subComment(desc))
	}
	s.Linef("%s%-15s %s;", indent, storageType(r), r.Ident())
	return nil
}

// arrayMember emits an array of frames. A frame holding a single register
// with no padding collapses to a plain member array; anything else gets an
// anonymous struct so the frame stride survives.
func arrayMember(s *walk.Sink, a *model.RegisterArray, indent string) error {
	regions := a.Space.Regions()
	if len(regions) == 1 && !regions[0].Gap {
		if reg, ok := regions[0].Child.(*model.Register); ok {
			if reg.WordSize != 1 {
				return &model.ShapeError{Node: reg, Msg: "multi-word registers are not supported"}
			}
			if desc := reg.Describe(); desc != "" {
				s.Block(subComment(desc))
			}
			s.Linef("%s%-15s %s[%d];", indent, storageType(reg), reg.Ident(), a.Count)
			return nil
		}
	}

	s.Linef("%sstruct {", indent)
	if err := structInnards(s, a.Space, indent+"    "); err != nil {
		return err
	}
	s.Linef("%s} %s[%d];", indent, a.Ident(), a.Count)
	return nil
}

// bitfields emits the macro block of every structured register in the
// component: bit positions, masks, setter macros and enumerated values.
func bitfields(s *walk.Sink, comp *model.Component) error {
	compName := comp.Ident()
	var h walk.Handlers
	h = walk.Handlers{
		Register: func(r *model.Register) error {
			if !r.Complex() {
				return nil
			}
			s.Blank()
			s.Block(mainComment(fmt.Sprintf("%s Field Descriptions", r.Ident())))

			// Most significant fields first, matching how the word reads
			// in the hardware documentation.
			items := r.Space.Items()
			for i := len(items) - 1; i >= 0; i-- {
				f, ok := items[i].Child.(*model.Field)
				if !ok {
					return &model.ShapeError{Node: items[i].Child, Msg: "only fields may sit in a register"}
				}
				fieldMacros(s, fmt.Sprintf("%s_%s", compName, r.Ident()), f)
			}
			return nil
		},
	}
	return walk.Walk(comp, h)
}

func fieldMacros(s *walk.Sink, regName string, f *model.Field) {
	name := fmt.Sprintf("%s_%s", regName, f.Ident())

	comment := fmt.Sprintf("%s - %s", name, f.Describe())
	if len(f.Enums) > 0 {
		comment += "\nValues:"
		for _, e := range f.Enums {
			comment += fmt.Sprintf("\n%s - %s", e.Name, e.Describe())
		}
	}
	s.Blank()
	s.Block(subComment(comment))
	s.Blank()

	s.Line(define(name+"_LSB", fmt.Sprintf("%d", f.Offset)))
	if f.Width == 1 && len(f.Enums) == 0 {
		s.Line(define(name, fmt.Sprintf("0x%08Xu", uint64(1)<<uint(f.Offset))))
		return
	}
	mask := (uint64(1)<<uint(f.Width) - 1) << uint(f.Offset)
	s.Line(define(name+"_MASK", fmt.Sprintf("0x%08Xu", mask)))
	s.Line(define(name+"(x)", fmt.Sprintf("(x) << %s_LSB", name)))
	for _, e := range f.Enums {
		s.Line(define(fmt.Sprintf("%s_%s", name, e.Name), fmt.Sprintf("%s(%d)", name, e.Value)))
	}
}
