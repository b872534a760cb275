// Package cheader renders a finished register tree into C header files.
// Components become a typedef struct plus bitfield macros; memory maps
// become base address defines and peripheral pointers, with the bound
// components either inlined or referenced through includes.
package cheader

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

// storageClasses is emitted once per standalone header so the struct
// members can carry CMSIS-style access annotations.
const storageClasses = `#ifndef __I
#define __I     volatile const          /*!< defines 'read only' permissions      */
#endif

#ifndef __O
#define __O     volatile                /*!< defines 'write only' permissions     */
#endif

#ifndef __IO
#define __IO    volatile                /*!< defines 'read / write' permissions   */
#endif

#include <stdint.h>`

// Generator renders C headers. The zero value is ready to use; Now may be
// pinned for reproducible output.
type Generator struct {
	Now func() time.Time
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Component renders one component into header text. With standalone set the
// text is a complete file with an include guard and the storage class
// macros; otherwise it is a fragment for embedding in a memory map header.
func (g *Generator) Component(comp *model.Component, standalone bool) (string, []legalize.Change, error) {
	changes := legalize.Apply(comp, legalize.C)

	s := &walk.Sink{}
	s.Block(mainComment(fmt.Sprintf(`%[1]s Register Map
Defines the registers in the %[1]s component.
%[2]s%[3]s
Generated automatically from %[4]s on %[5]s
Do not modify this file directly.`,
		comp.Ident(), comp.Describe(), changeNote(changes),
		comp.Src.File, g.now().Format("02 Jan 2006 15:04"))))
	s.Blank()

	if standalone {
		guard := guardName(comp.Src.File)
		s.Linef("#ifndef %s", guard)
		s.Linef("#define %s", guard)
		s.Blank()
		s.Block(storageClasses)
		s.Blank()
	}

	s.Line("typedef struct {")
	if err := structInnards(s, comp.Space, "    "); err != nil {
		return "", nil, err
	}
	s.Linef("} t_%s;", comp.Ident())

	if err := bitfields(s, comp); err != nil {
		return "", nil, err
	}

	if standalone {
		s.Blank()
		s.Line("#endif")
	}
	return s.String(), changes, nil
}

// MemoryMap renders a memory map header. With externalRef set the bound
// components are pulled in with #include lines; otherwise their definitions
// are inlined into this header.
func (g *Generator) MemoryMap(m *model.MemoryMap, externalRef bool) (string, []legalize.Change, error) {
	changes := legalize.Apply(m, legalize.C)

	s := &walk.Sink{}
	s.Block(mainComment(fmt.Sprintf(`%[1]s Memory Map
Defines all of the %[1]s components.
%[2]s%[3]s
Generated automatically from %[4]s on %[5]s
Do not modify this file directly.`,
		m.Ident(), m.Describe(), changeNote(changes),
		m.Src.File, g.now().Format("02 Jan 2006 15:04"))))
	s.Blank()

	guard := guardName(m.Src.File)
	s.Linef("#ifndef %s", guard)
	s.Linef("#define %s", guard)
	s.Blank()
	s.Block(storageClasses)
	s.Blank()

	if externalRef {
		for _, comp := range references(m) {
			s.Linef("#include %q", OutputName(comp.Src.File))
		}
		s.Blank()
	} else {
		for _, comp := range references(m) {
			text, _, err := g.Component(comp, false)
			if err != nil {
				return "", nil, err
			}
			s.Block(text)
			s.Blank()
		}
	}

	s.Block(mainComment("Peripheral memory map"))
	s.Blank()
	s.Line(define(m.Ident()+"_BASE", fmt.Sprintf("0x%08Xu", m.Base)))
	for _, slot := range m.Space.Items() {
		info := slot.Child.Info()
		if desc := info.Describe(); desc != "" {
			s.Block(subComment(desc))
		}
		s.Line(define(
			fmt.Sprintf("%s_%s_BASE", m.Ident(), info.Ident()),
			fmt.Sprintf("%s_BASE + 0x%08Xu", m.Ident(), slot.Start)))
	}
	s.Blank()

	s.Block(mainComment("Peripheral declaration"))
	s.Blank()
	if err := peripherals(s, m); err != nil {
		return "", nil, err
	}

	s.Blank()
	s.Line("#endif")
	return s.String(), changes, nil
}

// OutputName returns the artifact file name for a source document.
func OutputName(sourceFile string) string {
	base := filepath.Base(sourceFile)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".h"
}

func guardName(sourceFile string) string {
	return strings.ReplaceAll(strings.ToUpper(OutputName(sourceFile)), ".", "_")
}

// references returns the distinct components bound by the map's instances,
// in declaration order.
func references(m *model.MemoryMap) []*model.Component {
	var comps []*model.Component
	seen := map[*model.Component]bool{}
	for _, slot := range m.Space.Items() {
		var comp *model.Component
		switch v := slot.Child.(type) {
		case *model.Instance:
			comp = v.Binding
		case *model.InstanceArray:
			comp = v.Inner().Binding
		}
		if comp != nil && !seen[comp] {
			seen[comp] = true
			comps = append(comps, comp)
		}
	}
	return comps
}

// peripherals emits one pointer constant per instance, mapping the bound
// component type onto its base address.
func peripherals(s *walk.Sink, m *model.MemoryMap) error {
	for _, slot := range m.Space.Items() {
		switch v := slot.Child.(type) {
		case *model.Instance:
			name := fmt.Sprintf("%s_%s", m.Ident(), v.Ident())
			s.Linef("__attribute__((unused)) static t_%-12s * const %-20s= (t_%s *)%s_BASE;",
				v.Binding.Ident(), name, v.Binding.Ident(), name)
		case *model.InstanceArray:
			inner := v.Inner()
			if len(v.Insts) != 1 || inner == nil {
				return &model.ShapeError{Node: v, Msg: "instance arrays must wrap exactly one instance"}
			}
			name := fmt.Sprintf("%s_%s", m.Ident(), v.Ident())
			s.Linef("__attribute__((unused)) static t_%s * const %-25s= (t_%s *)%s_BASE;",
				inner.Binding.Ident(), fmt.Sprintf("%s[%d]", name, v.Count),
				inner.Binding.Ident(), name)
		default:
			return &model.ShapeError{Node: slot.Child, Msg: "only instances and instance arrays may sit in a memory map"}
		}
	}
	return nil
}

func define(name, val string) string {
	return fmt.Sprintf("#define %-39s (%s)", name, val)
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

// mainComment formats text between full-width /* */ bars.
func mainComment(text string) string {
	const width = 79
	lines := []string{"/*" + strings.Repeat("*", width-2)}
	for _, l := range wrapLines(text, width-3) {
		lines = append(lines, strings.TrimRight(" * "+l, " "))
	}
	lines = append(lines, " "+strings.Repeat("*", width-3)+"*/")
	return strings.Join(lines, "\n")
}

// subComment formats text as an indented bar-less comment.
func subComment(text string) string {
	const indent = "    "
	wrapped := wrapLines(text, 79-len(indent)-3)
	lines := make([]string, 0, len(wrapped)+1)
	for i, l := range wrapped {
		lead := indent + " * "
		if i == 0 {
			lead = indent + "/* "
		}
		lines = append(lines, strings.TrimRight(lead+l, " "))
	}
	lines = append(lines, indent+" */")
	return strings.Join(lines, "\n")
}

func wrapLines(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		if para == "" {
			out = append(out, "")
			continue
		}
		out = append(out, strings.Split(wordwrap.WrapString(para, uint(width)), "\n")...)
	}
	return out
}
