package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
)

func testTree(t *testing.T) ([]*model.Component, []*model.MemoryMap) {
	t.Helper()
	comp := &model.Component{
		NodeInfo: model.NodeInfo{Name: "CTRLPORT", Src: model.Source{File: "ctrlport.xml", Line: 2}},
		Width:    32,
		Size:     16,
		Regs: []model.Node{
			&model.Register{
				NodeInfo: model.NodeInfo{Name: "CTRL", Src: model.Source{File: "ctrlport.xml", Line: 4}},
				Offset:   0,
				Fields: []*model.Field{
					{NodeInfo: model.NodeInfo{Name: "MODE"}, Offset: 0, Width: 4, Format: model.FormatUnsigned,
						Enums: []*model.Enum{{NodeInfo: model.NodeInfo{Name: "FAST"}, Value: 5}}},
				},
			},
			&model.Register{NodeInfo: model.NodeInfo{Name: "STATUS"}, Offset: 1, ReadOnly: true},
			&model.RegisterArray{
				NodeInfo:  model.NodeInfo{Name: "MON"},
				Offset:    8,
				Count:     4,
				Framesize: 2,
				Regs: []model.Node{
					&model.Register{NodeInfo: model.NodeInfo{Name: "LOW"}, Offset: 0},
					&model.Register{NodeInfo: model.NodeInfo{Name: "HIGH"}, Offset: 1},
				},
			},
		},
	}
	if err := comp.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	m := &model.MemoryMap{
		NodeInfo: model.NodeInfo{Name: "SOC", Src: model.Source{File: "soc.xml", Line: 2}},
		Base:     0x40000000,
		Insts: []model.Node{
			&model.Instance{NodeInfo: model.NodeInfo{Name: "CTL0"}, Offset: 0, BindName: "CTRLPORT"},
			&model.InstanceArray{
				NodeInfo: model.NodeInfo{Name: "PORTS"},
				Offset:   0x100,
				Count:    4,
				Insts: []model.Node{
					&model.Instance{NodeInfo: model.NodeInfo{Name: "PORT"}, Offset: -1, BindName: "CTRLPORT"},
				},
			},
		},
	}
	if err := m.Finish(map[string]*model.Component{"CTRLPORT": comp}); err != nil {
		t.Fatalf("map Finish: %v", err)
	}
	return []*model.Component{comp}, []*model.MemoryMap{m}
}

func TestFromTree(t *testing.T) {
	comps, maps := testTree(t)
	tables, err := FromTree(comps, maps)
	if err != nil {
		t.Fatalf("FromTree: %v", err)
	}

	if len(tables.Components) != 1 {
		t.Fatalf("components: %+v", tables.Components)
	}
	if c := tables.Components[0]; c.Name != "CTRLPORT" || c.Width != 32 || c.Size != 16 || c.Line != 2 {
		t.Errorf("component row %+v", c)
	}

	if len(tables.Registers) != 4 {
		t.Fatalf("registers: %+v", tables.Registers)
	}
	wantRegs := []RegisterRow{
		{Component: "CTRLPORT", Array: "", Name: "CTRL", Offset: 0, Width: 32, WordSize: 1, Format: "bits", Access: "read-write", File: "ctrlport.xml", Line: 4},
		{Component: "CTRLPORT", Array: "", Name: "STATUS", Offset: 1, Width: 32, WordSize: 1, Format: "bits", Access: "read-only"},
		{Component: "CTRLPORT", Array: "MON", Name: "LOW", Offset: 0, Width: 32, WordSize: 1, Format: "bits", Access: "read-write"},
		{Component: "CTRLPORT", Array: "MON", Name: "HIGH", Offset: 1, Width: 32, WordSize: 1, Format: "bits", Access: "read-write"},
	}
	for i, want := range wantRegs {
		if got := tables.Registers[i]; got != want {
			t.Errorf("register[%d] = %+v, want %+v", i, got, want)
		}
	}

	if len(tables.Arrays) != 1 {
		t.Fatalf("arrays: %+v", tables.Arrays)
	}
	if a := tables.Arrays[0]; a.Name != "MON" || a.Count != 4 || a.Framesize != 2 || a.Offset != 8 {
		t.Errorf("array row %+v", a)
	}

	if len(tables.Fields) != 1 || tables.Fields[0].Register != "CTRL" || tables.Fields[0].Format != "unsigned" {
		t.Errorf("fields: %+v", tables.Fields)
	}
	if len(tables.Enums) != 1 {
		t.Fatalf("enums: %+v", tables.Enums)
	}
	if e := tables.Enums[0]; e.Register != "CTRL" || e.Field != "MODE" || e.Name != "FAST" || e.Value != 5 {
		t.Errorf("enum row %+v", e)
	}

	if len(tables.MemoryMaps) != 1 || tables.MemoryMaps[0].Base != 0x40000000 {
		t.Errorf("maps: %+v", tables.MemoryMaps)
	}
	wantInsts := []InstanceRow{
		{Map: "SOC", Name: "CTL0", Offset: 0, Count: 1, Component: "CTRLPORT"},
		{Map: "SOC", Name: "PORTS", Offset: 0x100, Count: 4, Component: "CTRLPORT"},
	}
	for i, want := range wantInsts {
		if got := tables.Instances[i]; got != want {
			t.Errorf("instance[%d] = %+v, want %+v", i, got, want)
		}
	}
}

func TestFromTreeEmptyRelationsStayNonNil(t *testing.T) {
	tables, err := FromTree(nil, nil)
	if err != nil {
		t.Fatalf("FromTree: %v", err)
	}
	if tables.Registers == nil || tables.Instances == nil {
		t.Error("empty relations must marshal as [] not null")
	}
}
