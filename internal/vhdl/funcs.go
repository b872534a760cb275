package vhdl

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
	"github.com/robert-at-pretension-io/regmap-gen/internal/space"
	"github.com/robert-at-pretension-io/regmap-gen/internal/walk"
)

// funcDecls emits the accessor declarations for the package header.
func funcDecls(s *walk.Sink, comp *model.Component) error {
	var h walk.Handlers
	h = walk.Handlers{
		Component: func(c *model.Component) error {
			s.Block(commentBlock("Accessor Functions"))
			if err := walk.Children(c, h); err != nil {
				return err
			}
			s.Block(fmt.Sprintf(`procedure UPDATE_REGFILE(
    dat: in t_busdata; byteen : in std_logic_vector;
    offset: in t_addr;
    variable reg: inout t_%[1]s_regfile;
    success: out boolean);
procedure UPDATESIG_REGFILE(
    dat: in t_busdata; byteen : in std_logic_vector;
    offset: in t_addr;
    signal reg: inout t_%[1]s_regfile;
    success: out boolean);
procedure READ_REGFILE(
    offset: in t_addr;
    reg: in t_%[1]s_regfile;
    dat: out t_busdata;
    success: out boolean);`, c.Ident()))
			return nil
		},
		RegisterArray: func(a *model.RegisterArray) error {
			s.Block(fmt.Sprintf(`procedure UPDATE_%[1]s(
    dat: in t_busdata; byteen : in std_logic_vector;
    offset: in t_addr;
    variable ra: inout ta_%[1]s;
    success: out boolean);
procedure UPDATESIG_%[1]s(
    dat: in t_busdata; byteen : in std_logic_vector;
    offset: in t_addr;
    signal ra: inout ta_%[1]s;
    success: out boolean);
procedure READ_%[1]s(
    offset: in t_addr;
    ra: in ta_%[1]s;
    dat: out t_busdata;
    success: out boolean);`, a.Ident()))
			return walk.Children(a, h)
		},
		Register: func(r *model.Register) error {
			s.Block(fmt.Sprintf(`function DAT_TO_%[1]s(dat: t_busdata) return t_%[1]s;
function %[1]s_TO_DAT(reg: t_%[1]s) return t_busdata;
procedure UPDATE_%[1]s(
    dat: in t_busdata; byteen: in std_logic_vector;
    variable reg: inout t_%[1]s);
procedure UPDATESIG_%[1]s(
    dat: in t_busdata; byteen: in std_logic_vector;
    signal reg: inout t_%[1]s);`, r.Ident()))
			return nil
		},
	}
	return walk.Walk(comp, h)
}

// funcBodies emits the accessor bodies for the package body.
func funcBodies(s *walk.Sink, comp *model.Component) error {
	var h walk.Handlers
	h = walk.Handlers{
		Component: func(c *model.Component) error {
			s.Block(commentBlock("Address Grabbers"))
			high := addrHigh(c)
			s.Block(fmt.Sprintf(`function GET_ADDR(address: std_logic_vector) return t_addr is
    variable normal : std_logic_vector(address'length-1 downto 0);
begin
    normal := address;
    return TO_INTEGER(UNSIGNED(normal(%[1]d downto 0)));
end function GET_ADDR;

function GET_ADDR(address: unsigned) return t_addr is
begin
    return TO_INTEGER(address(%[1]d downto 0));
end function GET_ADDR;`, high))
			s.Blank()
			s.Block(commentBlock("Accessor Functions"))
			if err := walk.Children(c, h); err != nil {
				return err
			}
			s.Line("---- Complete Register File ----")
			for _, sig := range []bool{false, true} {
				if err := regfileUpdate(s, c, sig); err != nil {
					return err
				}
			}
			return regfileRead(s, c)
		},
		RegisterArray: func(a *model.RegisterArray) error {
			if err := walk.Children(a, h); err != nil {
				return err
			}
			s.Linef("---- %s ----", a.Ident())
			if child, ok := homogeneous(a); ok {
				simpleArrayUpdate(s, a, child, false)
				simpleArrayUpdate(s, a, child, true)
				simpleArrayRead(s, a, child)
				return nil
			}
			for _, sig := range []bool{false, true} {
				if err := complexArrayUpdate(s, a, sig); err != nil {
					return err
				}
			}
			return complexArrayRead(s, a)
		},
		Register: func(r *model.Register) error {
			return registerBodies(s, r)
		},
	}
	return walk.Walk(comp, h)
}

// addrHigh returns the top bit index of the component's byte address.
func addrHigh(c *model.Component) int {
	maxaddr := c.ByteSize() - 1
	if maxaddr < 1 {
		return 0
	}
	return bits.Len(uint(maxaddr)) - 1
}

// homogeneous reports whether the array frame is a single register filling
// the whole frame, in which case accessors forward straight to it.
func homogeneous(a *model.RegisterArray) (*model.Register, bool) {
	if a.Space.Len() != 1 || a.Space.HasGaps() {
		return nil, false
	}
	reg, ok := a.Space.Items()[0].Child.(*model.Register)
	return reg, ok
}

func fnClass(sig bool) (fn, class string) {
	if sig {
		return "UPDATESIG", "signal"
	}
	return "UPDATE", "variable"
}

// updateWhenLines builds the case alternatives of an UPDATE_ dispatch over
// sp. base addresses the storage ("reg" or "ra(idx)"), offset is the scoped
// offset expression. Unwritable addresses fall into an "others" branch that
// clears success; the branch is emitted only when one exists.
func updateWhenLines(sp *space.Space[model.Node], base, offset string, sig bool) (string, error) {
	fn, _ := fnClass(sig)
	var lines []string
	gaps := false
	for _, region := range sp.Regions() {
		if region.Gap {
			gaps = true
			continue
		}
		switch v := region.Child.(type) {
		case *model.Register:
			if v.ReadOnly {
				gaps = true
				continue
			}
			lines = append(lines, fmt.Sprintf("when %s_ADDR => %s_%s(dat, byteen, %s.%s);",
				v.Ident(), fn, v.Ident(), base, v.Ident()))
		case *model.RegisterArray:
			name := v.Ident()
			lines = append(lines, fmt.Sprintf(
				"when %[1]s_BASEADDR to %[1]s_LASTADDR => %[2]s_%[1]s(dat, byteen, %[3]s-%[1]s_BASEADDR, %[4]s.%[1]s, success);",
				name, fn, offset, base))
		default:
			return "", &model.ShapeError{Node: region.Child, Msg: "unexpected node in address dispatch"}
		}
	}
	if gaps {
		lines = append(lines, "when others => success := false;")
	}
	return indentLines(lines, "        "), nil
}

// readWhenLines is the READ_ counterpart of updateWhenLines.
func readWhenLines(sp *space.Space[model.Node], base, offset string) (string, error) {
	var lines []string
	gaps := false
	for _, region := range sp.Regions() {
		if region.Gap {
			gaps = true
			continue
		}
		switch v := region.Child.(type) {
		case *model.Register:
			if v.WriteOnly {
				gaps = true
				continue
			}
			lines = append(lines, fmt.Sprintf("when %[1]s_ADDR => dat := %[1]s_TO_DAT(%[2]s.%[1]s);",
				v.Ident(), base))
		case *model.RegisterArray:
			name := v.Ident()
			lines = append(lines, fmt.Sprintf(
				"when %[1]s_BASEADDR to %[1]s_LASTADDR => READ_%[1]s(%[2]s-%[1]s_BASEADDR, %[3]s.%[1]s, dat, success);",
				name, offset, base))
		default:
			return "", &model.ShapeError{Node: region.Child, Msg: "unexpected node in address dispatch"}
		}
	}
	if gaps {
		lines = append(lines, "when others => success := false;")
	}
	return indentLines(lines, "        "), nil
}

func regfileUpdate(s *walk.Sink, c *model.Component, sig bool) error {
	fn, class := fnClass(sig)
	whens, err := updateWhenLines(c.Space, "reg", "offset", sig)
	if err != nil {
		return err
	}
	s.Block(fmt.Sprintf(`procedure %[1]s_REGFILE(
    dat: in t_busdata; byteen : in std_logic_vector;
    offset: in t_addr;
    %[2]s reg: inout t_%[3]s_regfile;
    success: out boolean
) is
begin
    success := true;
    case offset is
%[4]s
    end case;
end procedure %[1]s_REGFILE;`, fn, class, c.Ident(), whens))
	s.Blank()
	return nil
}

func regfileRead(s *walk.Sink, c *model.Component) error {
	whens, err := readWhenLines(c.Space, "reg", "offset")
	if err != nil {
		return err
	}
	s.Block(fmt.Sprintf(`procedure READ_REGFILE(
    offset: in t_addr;
    reg: in t_%[1]s_regfile;
    dat: out t_busdata;
    success: out boolean
) is
begin
    success := true;
    dat := (others => 'X');
    case offset is
%[2]s
    end case;
end procedure READ_REGFILE;`, c.Ident(), whens))
	s.Blank()
	return nil
}

func complexArrayUpdate(s *walk.Sink, a *model.RegisterArray, sig bool) error {
	fn, class := fnClass(sig)
	whens, err := updateWhenLines(a.Space, "ra(idx)", "offs", sig)
	if err != nil {
		return err
	}
	s.Block(fmt.Sprintf(`procedure %[1]s_%[2]s(
    dat: in t_busdata; byteen : in std_logic_vector;
    offset: in t_addr;
    %[3]s ra: inout ta_%[2]s;
    success: out boolean
) is
    variable idx: integer range 0 to %[2]s_FRAMECOUNT-1;
    variable offs: integer range 0 to %[2]s_FRAMESIZE-1;
begin
    idx := offset / %[2]s_FRAMESIZE;
    offs := offset mod %[2]s_FRAMESIZE;
    success := true;
    case offs is
%[4]s
    end case;
end procedure %[1]s_%[2]s;`, fn, a.Ident(), class, whens))
	s.Blank()
	return nil
}

func complexArrayRead(s *walk.Sink, a *model.RegisterArray) error {
	whens, err := readWhenLines(a.Space, "ra(idx)", "offs")
	if err != nil {
		return err
	}
	s.Block(fmt.Sprintf(`procedure READ_%[1]s(
    offset: in t_addr;
    ra: in ta_%[1]s;
    dat: out t_busdata;
    success: out boolean
) is
    variable idx: integer range 0 to %[1]s_FRAMECOUNT-1;
    variable offs: integer range 0 to %[1]s_FRAMESIZE-1;
begin
    idx := offset / %[1]s_FRAMESIZE;
    offs := offset mod %[1]s_FRAMESIZE;
    success := true;
    dat := (others => 'X');
    case offs is
%[2]s
    end case;
end procedure READ_%[1]s;`, a.Ident(), whens))
	s.Blank()
	return nil
}

func simpleArrayUpdate(s *walk.Sink, a *model.RegisterArray, child *model.Register, sig bool) {
	fn, class := fnClass(sig)
	var filling []string
	if child.ReadOnly {
		filling = []string{"success := false;"}
	} else {
		filling = []string{
			fmt.Sprintf("idx := offset / %s_FRAMESIZE;", a.Ident()),
			"success := true;",
			fmt.Sprintf("%s_%s(dat, byteen, ra(idx));", fn, child.Ident()),
		}
	}
	s.Block(fmt.Sprintf(`procedure %[1]s_%[2]s(
    dat: in t_busdata; byteen : in std_logic_vector;
    offset: in t_addr;
    %[3]s ra: inout ta_%[2]s;
    success: out boolean
) is
    variable idx: integer range 0 to %[2]s_FRAMECOUNT-1;
begin
%[4]s
end procedure %[1]s_%[2]s;`, fn, a.Ident(), class, indentLines(filling, "    ")))
	s.Blank()
}

func simpleArrayRead(s *walk.Sink, a *model.RegisterArray, child *model.Register) {
	var filling []string
	if child.WriteOnly {
		filling = []string{
			"dat := (others => 'X');",
			"success := false;",
		}
	} else {
		filling = []string{
			fmt.Sprintf("idx := offset / %s_FRAMESIZE;", a.Ident()),
			"success := true;",
			fmt.Sprintf("dat := %s_TO_DAT(ra(idx));", child.Ident()),
		}
	}
	s.Block(fmt.Sprintf(`procedure READ_%[1]s(
    offset: in t_addr;
    ra: in ta_%[1]s;
    dat: out t_busdata;
    success: out boolean
) is
    variable idx: integer range 0 to %[1]s_FRAMECOUNT-1;
begin
%[2]s
end procedure READ_%[1]s;`, a.Ident(), indentLines(filling, "    ")))
	s.Blank()
}

// registerBodies emits the four accessor bodies of one register: word to
// value, value to word, byte-enable-masked update, and the signal-backed
// update variant.
func registerBodies(s *walk.Sink, r *model.Register) error {
	name := r.Ident()
	s.Linef("---- %s ----", name)

	s.Linef("function DAT_TO_%[1]s(dat: t_busdata) return t_%[1]s is", name)
	s.Line("begin")
	datToReg(s, r)
	s.Linef("end function DAT_TO_%s;", name)
	s.Blank()

	s.Linef("function %[1]s_TO_DAT(reg: t_%[1]s) return t_busdata is", name)
	s.Line("    variable ret: t_busdata := (others => '0');")
	s.Line("begin")
	regToDat(s, r)
	s.Line("    return ret;")
	s.Linef("end function %s_TO_DAT;", name)
	s.Blank()

	s.Block(fmt.Sprintf(`procedure UPDATE_%[1]s(
    dat: in t_busdata; byteen: in std_logic_vector;
    variable reg: inout t_%[1]s) is
begin`, name))
	regUpdate(s, r)
	s.Linef("end procedure UPDATE_%s;", name)
	s.Blank()

	s.Block(fmt.Sprintf(`procedure UPDATESIG_%[1]s(
    dat: in t_busdata; byteen: in std_logic_vector;
    signal reg: inout t_%[1]s
) is
    variable r : t_%[1]s;
begin
    r := reg;
    UPDATE_%[1]s(dat, byteen, r);
    reg <= r;
end procedure UPDATESIG_%[1]s;`, name))
	s.Blank()
	return nil
}

// datToReg converts a bus word into the register's typed value.
func datToReg(s *walk.Sink, r *model.Register) {
	if !r.Complex() {
		if r.Width == 1 {
			s.Line("    return dat(0);")
		} else {
			s.Linef("    return %s(dat(%d downto 0));", conv(r.Format), r.Width-1)
		}
		return
	}
	var lines []string
	for _, slot := range r.Space.Items() {
		f := slot.Child.(*model.Field)
		if f.Width == 1 {
			lines = append(lines, fmt.Sprintf("%s => dat(%d)", f.Ident(), f.Offset))
		} else {
			lines = append(lines, fmt.Sprintf("%s => %s(dat(%d downto %d))",
				f.Ident(), conv(f.Format), f.Offset+f.Width-1, f.Offset))
		}
	}
	s.Line("    return (")
	s.Block("        " + strings.Join(lines, ",\n        "))
	s.Line("    );")
}

// regToDat flattens the register's typed value into a bus word.
func regToDat(s *walk.Sink, r *model.Register) {
	if !r.Complex() {
		if r.Width == 1 {
			s.Line("    ret(0) := reg;")
		} else {
			s.Linef("    ret(%d downto 0) := STD_LOGIC_VECTOR(reg);", r.Width-1)
		}
		return
	}
	for _, slot := range r.Space.Items() {
		f := slot.Child.(*model.Field)
		if f.Width == 1 {
			s.Linef("    ret(%d) := reg.%s;", f.Offset, f.Ident())
		} else {
			s.Linef("    ret(%d downto %d) := STD_LOGIC_VECTOR(reg.%s);",
				f.Offset+f.Width-1, f.Offset, f.Ident())
		}
	}
}

// regUpdate applies a bus word under a byte-enable mask, one 8-bit lane at a
// time. Complex registers slice their field space per lane, so a field
// straddling a lane boundary is updated lane by lane, each lane touching
// only its intersecting bit slice.
func regUpdate(s *walk.Sink, r *model.Register) {
	if !r.Complex() {
		if r.Width == 1 {
			s.Line("    if byteen(0) then")
			s.Line("        reg := dat(0);")
			s.Line("    end if;")
			return
		}
		for start := 0; start < r.Width; start += 8 {
			end := start + 7
			if end > r.Width-1 {
				end = r.Width - 1
			}
			s.Linef("    if byteen(%d) then", start/8)
			if start == end {
				s.Linef("        reg(%d) := dat(%d);", start, start)
			} else {
				s.Linef("        reg(%d downto %d) := %s(dat(%d downto %d));",
					end, start, conv(r.Format), end, start)
			}
			s.Line("    end if;")
		}
		return
	}

	for start := 0; start < r.Width; start += 8 {
		hi := start + 8
		if hi > r.Width {
			hi = r.Width
		}
		lane := r.Space.Slice(start, hi)
		if lane.Len() == 0 {
			continue
		}
		s.Linef("    if byteen(%d) then", start/8)
		for _, slot := range lane.Items() {
			f := slot.Child.(*model.Field)
			dl := slot.Start
			dh := slot.End() - 1
			switch {
			case f.Width == 1:
				s.Linef("        reg.%s := dat(%d);", f.Ident(), dl)
			case slot.Size == 1:
				s.Linef("        reg.%s(%d) := dat(%d);", f.Ident(), dl-f.Offset, dl)
			default:
				s.Linef("        reg.%s(%d downto %d) := %s(dat(%d downto %d));",
					f.Ident(), dh-f.Offset, dl-f.Offset, conv(f.Format), dh, dl)
			}
		}
		s.Line("    end if;")
	}
}

func indentLines(lines []string, indent string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = indent + l
	}
	return strings.Join(out, "\n")
}
