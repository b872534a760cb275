// Package hti loads register description XML documents into the unfinished
// tree. The loader is deliberately thin: it maps elements and attributes
// onto nodes, records source positions, and leaves every layout decision to
// the finishing pass.
package hti

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
)

// Document is one parsed source file: a component or a memory map.
type Document struct {
	Component *model.Component
	Map       *model.MemoryMap
}

// LoadFile parses one XML document from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse parses one XML document. file is recorded as the source name on
// every node.
func Parse(data []byte, file string) (*Document, error) {
	p := &parser{
		data: data,
		dec:  xml.NewDecoder(bytes.NewReader(data)),
		file: file,
	}

	root, err := p.nextStart()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	switch root.Name.Local {
	case "component":
		comp, err := p.component(root)
		if err != nil {
			return nil, err
		}
		return &Document{Component: comp}, nil
	case "memorymap":
		m, err := p.memoryMap(root)
		if err != nil {
			return nil, err
		}
		return &Document{Map: m}, nil
	}
	return nil, fmt.Errorf("%s: unknown root element <%s>", file, root.Name.Local)
}

type parser struct {
	data []byte
	dec  *xml.Decoder
	file string
}

// src records the position of the most recently decoded token.
func (p *parser) src() model.Source {
	off := int(p.dec.InputOffset())
	if off > len(p.data) {
		off = len(p.data)
	}
	return model.Source{
		File: p.file,
		Line: 1 + bytes.Count(p.data[:off], []byte{'\n'}),
	}
}

// nextStart skips to the first start element of the document.
func (p *parser) nextStart() (xml.StartElement, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return xml.StartElement{}, fmt.Errorf("no root element")
			}
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

// children walks the child elements of the element just started, handing
// each to fn, and eats the matching end element. Description paragraphs go
// to desc.
func (p *parser) children(desc *[]string, fn func(xml.StartElement) error) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "description" {
				text, err := p.text()
				if err != nil {
					return err
				}
				if text != "" {
					*desc = append(*desc, text)
				}
				continue
			}
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// text reads the character content of the element just started, through its
// end element, with the whitespace of XML formatting collapsed.
func (p *parser) text() (string, error) {
	var buf strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			return strings.Join(strings.Fields(buf.String()), " "), nil
		case xml.StartElement:
			return "", fmt.Errorf("%s: unexpected <%s> inside text", p.file, t.Name.Local)
		}
	}
}

func (p *parser) skip() error { return p.dec.Skip() }

func (p *parser) errf(src model.Source, format string, args ...any) error {
	return fmt.Errorf("%s:%d: "+format, append([]any{src.File, src.Line}, args...)...)
}

func (p *parser) component(start xml.StartElement) (*model.Component, error) {
	src := p.src()
	comp := &model.Component{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
	}
	var err error
	if comp.Width, err = intAttr(start, "width", 0); err != nil {
		return nil, p.errf(src, "component width: %v", err)
	}
	if comp.Size, err = intAttr(start, "size", 0); err != nil {
		return nil, p.errf(src, "component size: %v", err)
	}

	err = p.children(&comp.Desc, func(child xml.StartElement) error {
		node, err := p.registerish(child)
		if err != nil {
			return err
		}
		comp.Regs = append(comp.Regs, node)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// registerish parses a <register> or <registerarray> element, the two
// things allowed inside components and array frames.
func (p *parser) registerish(start xml.StartElement) (model.Node, error) {
	switch start.Name.Local {
	case "register":
		return p.register(start)
	case "registerarray":
		return p.registerArray(start)
	}
	src := p.src()
	if err := p.skip(); err != nil {
		return nil, err
	}
	return nil, p.errf(src, "unknown element <%s>", start.Name.Local)
}

func (p *parser) register(start xml.StartElement) (*model.Register, error) {
	src := p.src()
	reg := &model.Register{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
	}
	var err error
	if reg.Offset, err = intAttr(start, "offset", -1); err != nil {
		return nil, p.errf(src, "register offset: %v", err)
	}
	if reg.Width, err = intAttr(start, "width", 0); err != nil {
		return nil, p.errf(src, "register width: %v", err)
	}
	if reg.WordSize, err = intAttr(start, "size", 0); err != nil {
		return nil, p.errf(src, "register size: %v", err)
	}
	if reg.Format, err = model.ParseFormat(attr(start, "format")); err != nil {
		return nil, p.errf(src, "register format: %v", err)
	}
	reg.ReadOnly = boolAttr(start, "readOnly")
	reg.WriteOnly = boolAttr(start, "writeOnly")

	err = p.children(&reg.Desc, func(child xml.StartElement) error {
		if child.Name.Local != "field" {
			csrc := p.src()
			if err := p.skip(); err != nil {
				return err
			}
			return p.errf(csrc, "unknown element <%s> in register", child.Name.Local)
		}
		f, err := p.field(child)
		if err != nil {
			return err
		}
		reg.Fields = append(reg.Fields, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (p *parser) field(start xml.StartElement) (*model.Field, error) {
	src := p.src()
	f := &model.Field{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
	}
	var err error
	if f.Offset, err = intAttr(start, "offset", -1); err != nil {
		return nil, p.errf(src, "field offset: %v", err)
	}
	if f.Width, err = intAttr(start, "size", 1); err != nil {
		return nil, p.errf(src, "field size: %v", err)
	}
	if f.Format, err = model.ParseFormat(attr(start, "format")); err != nil {
		return nil, p.errf(src, "field format: %v", err)
	}

	err = p.children(&f.Desc, func(child xml.StartElement) error {
		if child.Name.Local != "enum" {
			csrc := p.src()
			if err := p.skip(); err != nil {
				return err
			}
			return p.errf(csrc, "unknown element <%s> in field", child.Name.Local)
		}
		e, err := p.enum(child)
		if err != nil {
			return err
		}
		f.Enums = append(f.Enums, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (p *parser) enum(start xml.StartElement) (*model.Enum, error) {
	src := p.src()
	e := &model.Enum{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
	}
	var err error
	if e.Value, err = uintAttr(start, "value"); err != nil {
		return nil, p.errf(src, "enum value: %v", err)
	}
	if err := p.children(&e.Desc, func(child xml.StartElement) error {
		csrc := p.src()
		if err := p.skip(); err != nil {
			return err
		}
		return p.errf(csrc, "unknown element <%s> in enum", child.Name.Local)
	}); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) registerArray(start xml.StartElement) (*model.RegisterArray, error) {
	src := p.src()
	a := &model.RegisterArray{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
	}
	var err error
	if a.Offset, err = intAttr(start, "offset", -1); err != nil {
		return nil, p.errf(src, "array offset: %v", err)
	}
	if a.Count, err = intAttr(start, "count", 1); err != nil {
		return nil, p.errf(src, "array count: %v", err)
	}
	if a.Framesize, err = intAttr(start, "framesize", 0); err != nil {
		return nil, p.errf(src, "array framesize: %v", err)
	}

	err = p.children(&a.Desc, func(child xml.StartElement) error {
		node, err := p.registerish(child)
		if err != nil {
			return err
		}
		a.Regs = append(a.Regs, node)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (p *parser) memoryMap(start xml.StartElement) (*model.MemoryMap, error) {
	src := p.src()
	m := &model.MemoryMap{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
	}
	var err error
	if m.Base, err = uintAttr(start, "base"); err != nil {
		return nil, p.errf(src, "memory map base: %v", err)
	}

	err = p.children(&m.Desc, func(child xml.StartElement) error {
		node, err := p.instanceish(child)
		if err != nil {
			return err
		}
		m.Insts = append(m.Insts, node)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (p *parser) instanceish(start xml.StartElement) (model.Node, error) {
	switch start.Name.Local {
	case "instance":
		return p.instance(start)
	case "instancearray":
		return p.instanceArray(start)
	}
	src := p.src()
	if err := p.skip(); err != nil {
		return nil, err
	}
	return nil, p.errf(src, "unknown element <%s>", start.Name.Local)
}

func (p *parser) instance(start xml.StartElement) (*model.Instance, error) {
	src := p.src()
	inst := &model.Instance{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
		BindName: attr(start, "binding"),
	}
	if inst.BindName == "" {
		inst.BindName = inst.Name
	}
	var err error
	if inst.Offset, err = intAttr(start, "offset", -1); err != nil {
		return nil, p.errf(src, "instance offset: %v", err)
	}
	if err := p.children(&inst.Desc, func(child xml.StartElement) error {
		csrc := p.src()
		if err := p.skip(); err != nil {
			return err
		}
		return p.errf(csrc, "unknown element <%s> in instance", child.Name.Local)
	}); err != nil {
		return nil, err
	}
	return inst, nil
}

func (p *parser) instanceArray(start xml.StartElement) (*model.InstanceArray, error) {
	src := p.src()
	a := &model.InstanceArray{
		NodeInfo: model.NodeInfo{Name: attr(start, "name"), Src: src},
	}
	var err error
	if a.Offset, err = intAttr(start, "offset", -1); err != nil {
		return nil, p.errf(src, "instance array offset: %v", err)
	}
	if a.Count, err = intAttr(start, "count", 1); err != nil {
		return nil, p.errf(src, "instance array count: %v", err)
	}

	err = p.children(&a.Desc, func(child xml.StartElement) error {
		if child.Name.Local != "instance" {
			csrc := p.src()
			if err := p.skip(); err != nil {
				return err
			}
			return p.errf(csrc, "unknown element <%s> in instance array", child.Name.Local)
		}
		inst, err := p.instance(child)
		if err != nil {
			return err
		}
		a.Insts = append(a.Insts, inst)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// intAttr parses a numeric attribute in any Go literal base, so hex
// offsets read naturally. Absent attributes take def.
func intAttr(start xml.StartElement, name string, def int) (int, error) {
	s := attr(start, name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func uintAttr(start xml.StartElement, name string) (uint64, error) {
	s := attr(start, name)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 0, 64)
}

func boolAttr(start xml.StartElement, name string) bool {
	switch strings.ToLower(attr(start, name)) {
	case "true", "yes", "1":
		return true
	}
	return false
}
