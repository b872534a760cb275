// Package facts flattens a finished register tree into relational rows.
// The tables feed the schema contract check before generation and the
// regmap-facts dump tool.
package facts

import (
	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
	"github.com/robert-at-pretension-io/regmap-gen/internal/walk"
)

// Tables is the relational fact model of a set of loaded documents.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Components []ComponentRow `json:"components"`
	Registers  []RegisterRow  `json:"registers"`
	Arrays     []ArrayRow     `json:"arrays"`
	Fields     []FieldRow     `json:"fields"`
	Enums      []EnumRow      `json:"enums"`
	MemoryMaps []MemoryMapRow `json:"memory_maps"`
	Instances  []InstanceRow  `json:"instances"`
}

type ComponentRow struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
	Size  int    `json:"size"`
	File  string `json:"file"`
	Line  int    `json:"line"`
}

type RegisterRow struct {
	Component string `json:"component"`
	Array     string `json:"array"`
	Name      string `json:"name"`
	Offset    int    `json:"offset"`
	Width     int    `json:"width"`
	WordSize  int    `json:"word_size"`
	Format    string `json:"format"`
	Access    string `json:"access"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type ArrayRow struct {
	Component string `json:"component"`
	Name      string `json:"name"`
	Offset    int    `json:"offset"`
	Count     int    `json:"count"`
	Framesize int    `json:"framesize"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type FieldRow struct {
	Component string `json:"component"`
	Register  string `json:"register"`
	Name      string `json:"name"`
	Offset    int    `json:"offset"`
	Width     int    `json:"width"`
	Format    string `json:"format"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type EnumRow struct {
	Component string `json:"component"`
	Register  string `json:"register"`
	Field     string `json:"field"`
	Name      string `json:"name"`
	Value     uint64 `json:"value"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type MemoryMapRow struct {
	Name string `json:"name"`
	Base uint64 `json:"base"`
	File string `json:"file"`
	Line int    `json:"line"`
}

type InstanceRow struct {
	Map       string `json:"map"`
	Name      string `json:"name"`
	Offset    int    `json:"offset"`
	Count     int    `json:"count"`
	Component string `json:"component"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

func access(r *model.Register) string {
	switch {
	case r.ReadOnly:
		return "read-only"
	case r.WriteOnly:
		return "write-only"
	}
	return "read-write"
}

// FromTree builds the relational model from finished documents. Rows come
// out in declaration order.
func FromTree(components []*model.Component, maps []*model.MemoryMap) (Tables, error) {
	t := Tables{
		Components: []ComponentRow{},
		Registers:  []RegisterRow{},
		Arrays:     []ArrayRow{},
		Fields:     []FieldRow{},
		Enums:      []EnumRow{},
		MemoryMaps: []MemoryMapRow{},
		Instances:  []InstanceRow{},
	}

	for _, comp := range components {
		if err := t.addComponent(comp); err != nil {
			return t, err
		}
	}
	for _, m := range maps {
		t.MemoryMaps = append(t.MemoryMaps, MemoryMapRow{
			Name: m.Name, Base: m.Base, File: m.Src.File, Line: m.Src.Line,
		})
		for _, child := range m.Insts {
			switch v := child.(type) {
			case *model.Instance:
				t.Instances = append(t.Instances, InstanceRow{
					Map: m.Name, Name: v.Name, Offset: v.Offset, Count: 1,
					Component: v.BindName, File: v.Src.File, Line: v.Src.Line,
				})
			case *model.InstanceArray:
				inner := v.Inner()
				if inner == nil {
					return t, &model.ShapeError{Node: v, Msg: "instance arrays must wrap exactly one instance"}
				}
				t.Instances = append(t.Instances, InstanceRow{
					Map: m.Name, Name: v.Name, Offset: v.Offset, Count: v.Count,
					Component: inner.BindName, File: v.Src.File, Line: v.Src.Line,
				})
			}
		}
	}
	return t, nil
}

func (t *Tables) addComponent(comp *model.Component) error {
	t.Components = append(t.Components, ComponentRow{
		Name: comp.Name, Width: comp.Width, Size: comp.Size,
		File: comp.Src.File, Line: comp.Src.Line,
	})

	var arrName walk.Scoped[string]
	var regName walk.Scoped[string]
	var fieldName walk.Scoped[string]
	var h walk.Handlers
	h = walk.Handlers{
		RegisterArray: func(a *model.RegisterArray) error {
			t.Arrays = append(t.Arrays, ArrayRow{
				Component: comp.Name, Name: a.Name, Offset: a.Offset,
				Count: a.Count, Framesize: a.Framesize,
				File: a.Src.File, Line: a.Src.Line,
			})
			arrName.Push(a.Name)
			err := walk.Children(a, h)
			arrName.Pop()
			return err
		},
		Register: func(r *model.Register) error {
			t.Registers = append(t.Registers, RegisterRow{
				Component: comp.Name, Array: arrName.Value(), Name: r.Name,
				Offset: r.Offset, Width: r.Width, WordSize: r.WordSize,
				Format: r.Format.String(), Access: access(r),
				File: r.Src.File, Line: r.Src.Line,
			})
			regName.Push(r.Name)
			err := walk.Children(r, h)
			regName.Pop()
			return err
		},
		Field: func(f *model.Field) error {
			t.Fields = append(t.Fields, FieldRow{
				Component: comp.Name, Register: regName.Value(), Name: f.Name,
				Offset: f.Offset, Width: f.Width, Format: f.Format.String(),
				File: f.Src.File, Line: f.Src.Line,
			})
			fieldName.Push(f.Name)
			err := walk.Children(f, h)
			fieldName.Pop()
			return err
		},
		Enum: func(e *model.Enum) error {
			t.Enums = append(t.Enums, EnumRow{
				Component: comp.Name, Register: regName.Value(),
				Field: fieldName.Value(), Name: e.Name, Value: e.Value,
				File: e.Src.File, Line: e.Src.Line,
			})
			return nil
		},
	}
	return walk.Children(comp, h)
}
