// Package vhdl renders a finished register map tree into VHDL packages:
// address constants, record types, and byte-enable-aware accessor
// procedures, split across a package declaration and a package body.
package vhdl

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-wordwrap"

	"github.com/robert-at-pretension-io/regmap-gen/internal/legalize"
	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
	"github.com/robert-at-pretension-io/regmap-gen/internal/walk"
)

// Generator renders components and memory maps. The zero value is ready to
// use; Now can be overridden to pin the header timestamp in tests.
type Generator struct {
	Now func() time.Time
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

var usePackages = []string{
	"ieee.numeric_std.all",
	"ieee.std_logic_1164.all",
}

// Component renders a standalone package for one component. Identifier
// legalization runs first; the change log is reported in the file header
// and returned for the caller's own logging.
func (g *Generator) Component(comp *model.Component) (string, []legalize.Change, error) {
	changes := legalize.Apply(comp, legalize.VHDL)

	var s walk.Sink
	pkg := "pkg_" + comp.Ident()

	header := fmt.Sprintf(`%[1]s Register Map

Defines the registers in the %[1]s component.

%[2]s%[3]s

Generated automatically from %[4]s on %[5]s

Do not modify this file directly.`,
		comp.Ident(), comp.Describe(), changeNote(changes),
		comp.Src.File, g.now().Format("02 Jan 2006 15:04"))

	s.Block(commentBlock(header))
	s.Blank()
	printLibraries(&s)
	s.Blank()
	s.Linef("package %s is", pkg)
	s.Blank()

	if err := addressConstants(&s, comp); err != nil {
		return "", changes, err
	}
	s.Blank()
	if err := typeDecls(&s, comp); err != nil {
		return "", changes, err
	}
	s.Blank()
	if err := funcDecls(&s, comp); err != nil {
		return "", changes, err
	}
	s.Blank()
	s.Linef("end package %s;", pkg)
	s.Line(strings.Repeat("-", 72))
	s.Linef("package body %s is", pkg)
	s.Blank()
	if err := funcBodies(&s, comp); err != nil {
		return "", changes, err
	}
	s.Blank()
	s.Linef("end package body %s;", pkg)
	return s.String(), changes, nil
}

// MemoryMap renders an address-constants package for a memory map: one base
// constant per instance at the map base plus the instance's offset.
func (g *Generator) MemoryMap(m *model.MemoryMap) (string, []legalize.Change, error) {
	changes := legalize.Apply(m, legalize.VHDL)

	var s walk.Sink
	pkg := "pkg_" + m.Ident()

	header := fmt.Sprintf(`%[1]s Memory Map

Defines the base addresses of all %[1]s components.

%[2]s%[3]s

Generated automatically from %[4]s on %[5]s

Do not modify this file directly.`,
		m.Ident(), m.Describe(), changeNote(changes),
		m.Src.File, g.now().Format("02 Jan 2006 15:04"))

	s.Block(commentBlock(header))
	s.Blank()
	printLibraries(&s)
	s.Blank()
	s.Linef("package %s is", pkg)
	s.Blank()
	s.Block(commentBlock("Address Constants"))
	s.Linef("constant %s_BASE: unsigned(31 downto 0) := x\"%08X\";", m.Ident(), m.Base)
	for _, slot := range m.Space.Items() {
		info := slot.Child.Info()
		s.Linef("constant %s_%s_BASE: unsigned(31 downto 0) := x\"%08X\";",
			m.Ident(), info.Ident(), m.Base+uint64(slot.Start))
		if arr, ok := slot.Child.(*model.InstanceArray); ok {
			s.Linef("constant %s_%s_COUNT: integer := %d;", m.Ident(), info.Ident(), arr.Count)
			s.Linef("constant %s_%s_FRAMESIZE: integer := %d;",
				m.Ident(), info.Ident(), arr.Inner().Binding.ByteSize())
		}
	}
	s.Blank()
	s.Linef("end package %s;", pkg)
	return s.String(), changes, nil
}

// OutputName returns the artifact file name for a source document.
func OutputName(sourceFile string) string {
	base := filepath.Base(sourceFile)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".vhd"
}

func printLibraries(s *walk.Sink) {
	lib := ""
	for _, p := range usePackages {
		newlib := strings.SplitN(p, ".", 2)[0]
		if newlib != lib {
			lib = newlib
			if lib != "work" {
				s.Linef("library %s;", lib)
			}
		}
		s.Linef("use %s;", p)
	}
}

func changeNote(changes []legalize.Change) string {
	if len(changes) == 0 {
		return ""
	}
	lines := make([]string, 0, len(changes)+1)
	lines = append(lines, "\n\nChanges from XML:")
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("    %s: %s -> %s", c.Kind, c.Old, c.New))
	}
	return strings.Join(lines, "\n")
}

// commentBlock wraps a text block between full-width comment bars.
// Paragraphs in the source are separated by newlines.
func commentBlock(text string) string {
	const width = 76
	bar := strings.Repeat("-", width+4)

	var lines []string
	lines = append(lines, bar)
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			lines = append(lines, "--")
			continue
		}
		for _, l := range strings.Split(wordwrap.WrapString(para, width), "\n") {
			lines = append(lines, strings.TrimRight("--  "+l, " "))
		}
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

// vhdlType returns the VHDL type for a register or field value, indexed with
// its bit range.
func vhdlType(format model.Format, width int) string {
	if width == 1 {
		return "std_logic"
	}
	return fmt.Sprintf("%s(%d downto 0)", typeBase(format), width-1)
}

func typeBase(format model.Format) string {
	switch format {
	case model.FormatSigned:
		return "signed"
	case model.FormatUnsigned:
		return "unsigned"
	}
	return "std_logic_vector"
}

// conv returns the type conversion applied when moving a value between
// t_busdata and its typed form.
func conv(format model.Format) string {
	return strings.ToUpper(typeBase(format))
}

// typeName returns the declared type name for a component child.
func typeName(n model.Node) (string, error) {
	switch v := n.(type) {
	case *model.Register:
		return "t_" + v.Ident(), nil
	case *model.RegisterArray:
		return "ta_" + v.Ident(), nil
	}
	return "", &model.ShapeError{Node: n, Msg: "no type name for this node kind"}
}
