package vhdl

import (
	"fmt"

	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
	"github.com/robert-at-pretension-io/regmap-gen/internal/walk"
)

// addressConstants emits one constant per occupied slot of the component's
// word space, plus the frame geometry of every register array.
func addressConstants(s *walk.Sink, comp *model.Component) error {
	var h walk.Handlers
	h = walk.Handlers{
		Component: func(c *model.Component) error {
			s.Block(commentBlock("Address Constants"))
			s.Linef("subtype t_addr is integer range 0 to %d;", c.Size-1)
			if err := walk.Children(c, h); err != nil {
				return err
			}
			s.Line("function GET_ADDR(address: std_logic_vector) return t_addr;")
			s.Line("function GET_ADDR(address: unsigned) return t_addr;")
			return nil
		},
		RegisterArray: func(a *model.RegisterArray) error {
			name := a.Ident()
			s.Linef("constant %s_BASEADDR: t_addr := %d;", name, a.Offset)
			s.Linef("constant %s_LASTADDR: t_addr := %d;", name, a.Offset+a.Size()-1)
			s.Linef("constant %s_FRAMESIZE: t_addr := %d;", name, a.Framesize)
			s.Linef("constant %s_FRAMECOUNT: t_addr := %d;", name, a.Count)
			return walk.Children(a, h)
		},
		Register: func(r *model.Register) error {
			// Addresses of registers inside an array frame are frame-local.
			s.Linef("constant %s_ADDR: t_addr := %d;", r.Ident(), r.Offset)
			return nil
		},
	}
	return walk.Walk(comp, h)
}

// typeDecls emits register types, array types, enumeration constants and the
// aggregate register file record.
func typeDecls(s *walk.Sink, comp *model.Component) error {
	var regName walk.Scoped[string]
	var enumLines walk.Scoped[[]string]
	var fieldOf walk.Scoped[*model.Field]

	var h walk.Handlers
	h = walk.Handlers{
		Component: func(c *model.Component) error {
			s.Block(commentBlock("Register Types"))
			s.Linef("subtype t_busdata is std_logic_vector(%d downto 0);", c.Width-1)
			if err := walk.Children(c, h); err != nil {
				return err
			}

			// The gestalt record for the whole register file, in address order.
			s.Linef("type t_%s_regfile is record", c.Ident())
			for _, slot := range c.Space.Items() {
				tn, err := typeName(slot.Child)
				if err != nil {
					return err
				}
				s.Linef("    %s: %s;", slot.Child.Info().Ident(), tn)
			}
			s.Linef("end record t_%s_regfile;", c.Ident())
			return nil
		},
		RegisterArray: func(a *model.RegisterArray) error {
			// Element types first, then the array type over them.
			if err := walk.Children(a, h); err != nil {
				return err
			}

			var base string
			if a.Space.Len() == 1 {
				tn, err := typeName(a.Space.Items()[0].Child)
				if err != nil {
					return err
				}
				base = tn
			} else {
				base = "tb_" + a.Ident()
				s.Linef("type %s is record", base)
				for _, slot := range a.Space.Items() {
					tn, err := typeName(slot.Child)
					if err != nil {
						return err
					}
					s.Linef("    %s: %s;", slot.Child.Info().Ident(), tn)
				}
				s.Linef("end record %s;", base)
			}
			s.Linef("type ta_%s is array(%d downto 0) of %s;", a.Ident(), a.Count-1, base)
			s.Blank()
			return nil
		},
		Register: func(r *model.Register) error {
			if r.WordSize != 1 {
				return &model.ShapeError{Node: r, Msg: "multi-word registers are not supported"}
			}
			if !r.Complex() {
				s.Linef("subtype t_%s is %s;", r.Ident(), vhdlType(r.Format, r.Width))
				return nil
			}

			regName.Push(r.Ident())
			enumLines.Push(nil)
			s.Linef("type t_%s is record", r.Ident())
			err := walk.Children(r, h)
			s.Linef("end record t_%s;", r.Ident())
			for _, line := range enumLines.Pop() {
				s.Line(line)
			}
			regName.Pop()
			return err
		},
		Field: func(f *model.Field) error {
			s.Linef("    %s: %s;", f.Ident(), vhdlType(f.Format, f.Width))
			fieldOf.Push(f)
			err := walk.Children(f, h)
			fieldOf.Pop()
			return err
		},
		Enum: func(e *model.Enum) error {
			f := fieldOf.Value()
			name := fmt.Sprintf("%s_%s_%s", regName.Value(), f.Ident(), e.Name)
			enumLines.Set(append(enumLines.Value(),
				fmt.Sprintf("constant %s: %s := %s;",
					name, vhdlType(f.Format, f.Width), binaryLiteral(e.Value, f.Width))))
			return nil
		},
	}
	return walk.Walk(comp, h)
}

// binaryLiteral renders value as a sized VHDL literal: a bit for 1-bit
// fields, a binary string otherwise.
func binaryLiteral(value uint64, width int) string {
	if width == 1 {
		return fmt.Sprintf("'%d'", value&1)
	}
	return fmt.Sprintf("\"%0*b\"", width, value)
}
