package model

import (
	"errors"
	"testing"
)

func testComponent() *Component {
	return &Component{
		NodeInfo: NodeInfo{Name: "CTRLPORT", Src: Source{File: "ctrlport.xml", Line: 1}},
		Width:    32,
		Size:     16,
		Regs: []Node{
			&Register{
				NodeInfo: NodeInfo{Name: "CTRL"},
				Offset:   0,
				Fields: []*Field{
					{NodeInfo: NodeInfo{Name: "ENABLE"}, Offset: 8, Width: 1},
					{NodeInfo: NodeInfo{Name: "MODE"}, Offset: 0, Width: 4, Format: FormatUnsigned},
				},
			},
			&Register{NodeInfo: NodeInfo{Name: "STATUS"}, Offset: 4, ReadOnly: true},
			&RegisterArray{
				NodeInfo:  NodeInfo{Name: "MON"},
				Offset:    8,
				Count:     4,
				Framesize: 2,
				Regs: []Node{
					&Register{NodeInfo: NodeInfo{Name: "LOW"}, Offset: 0},
					&Register{NodeInfo: NodeInfo{Name: "HIGH"}, Offset: 1},
				},
			},
		},
	}
}

func TestComponentFinishLayout(t *testing.T) {
	comp := testComponent()
	if err := comp.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	items := comp.Space.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 top level slots, got %d", len(items))
	}
	if items[2].Start != 8 || items[2].Size != 8 {
		t.Fatalf("MON array at [%d,%d), want [8,16)", items[2].Start, items[2].End())
	}
	if !comp.Space.HasGaps() {
		t.Fatal("expected a gap between STATUS and MON")
	}

	ctrl := comp.Regs[0].(*Register)
	if ctrl.Width != 32 || ctrl.WordSize != 1 {
		t.Fatalf("CTRL defaults: width=%d words=%d", ctrl.Width, ctrl.WordSize)
	}
	// Fields are ordered by bit position after finishing.
	if ctrl.Fields[0].Name != "MODE" || ctrl.Fields[1].Name != "ENABLE" {
		t.Fatalf("field order: %s, %s", ctrl.Fields[0].Name, ctrl.Fields[1].Name)
	}
	if ctrl.Space.Size() != 32 {
		t.Fatalf("CTRL bit space size %d", ctrl.Space.Size())
	}
}

func TestComponentFinishOverflow(t *testing.T) {
	comp := &Component{
		NodeInfo: NodeInfo{Name: "TINY", Src: Source{File: "tiny.xml", Line: 3}},
		Width:    32,
		Size:     2,
		Regs: []Node{
			&Register{NodeInfo: NodeInfo{Name: "A"}, Offset: 0},
			&Register{NodeInfo: NodeInfo{Name: "B", Src: Source{File: "tiny.xml", Line: 9}}, Offset: 2},
		},
	}
	err := comp.Finish()
	var layout *LayoutError
	if !errors.As(err, &layout) {
		t.Fatalf("expected LayoutError, got %v", err)
	}
	if layout.Node.Info().Name != "B" {
		t.Fatalf("offending node %q, want B", layout.Node.Info().Name)
	}
}

func TestFieldsWithoutOffsetsPackInDeclarationOrder(t *testing.T) {
	comp := &Component{
		NodeInfo: NodeInfo{Name: "C"},
		Width:    32,
		Size:     1,
		Regs: []Node{
			&Register{
				NodeInfo: NodeInfo{Name: "CTRL"},
				Offset:   0,
				Fields: []*Field{
					{NodeInfo: NodeInfo{Name: "MODE"}, Offset: -1, Width: 4},
					{NodeInfo: NodeInfo{Name: "ENABLE"}, Offset: -1, Width: 1},
					{NodeInfo: NodeInfo{Name: "IRQ"}, Offset: 8, Width: 1},
					{NodeInfo: NodeInfo{Name: "COUNT"}, Offset: -1, Width: 4},
				},
			},
		},
	}
	if err := comp.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	reg := comp.Regs[0].(*Register)
	wantOffsets := map[string]int{"MODE": 0, "ENABLE": 4, "IRQ": 8, "COUNT": 9}
	for _, f := range reg.Fields {
		if f.Offset != wantOffsets[f.Name] {
			t.Errorf("field %s at bit %d, want %d", f.Name, f.Offset, wantOffsets[f.Name])
		}
	}
}

func TestFieldOverlapIsLayoutError(t *testing.T) {
	comp := &Component{
		NodeInfo: NodeInfo{Name: "X"},
		Width:    32,
		Size:     1,
		Regs: []Node{
			&Register{
				NodeInfo: NodeInfo{Name: "R"},
				Offset:   0,
				Fields: []*Field{
					{NodeInfo: NodeInfo{Name: "A"}, Offset: 0, Width: 4},
					{NodeInfo: NodeInfo{Name: "B"}, Offset: 2, Width: 4},
				},
			},
		},
	}
	var layout *LayoutError
	if err := comp.Finish(); !errors.As(err, &layout) {
		t.Fatalf("expected LayoutError, got %v", err)
	}
}

func TestRegisterArrayDerivedFramesize(t *testing.T) {
	arr := &RegisterArray{
		NodeInfo: NodeInfo{Name: "A"},
		Offset:   0,
		Count:    3,
		Regs: []Node{
			&Register{NodeInfo: NodeInfo{Name: "X"}, Offset: -1},
			&Register{NodeInfo: NodeInfo{Name: "Y"}, Offset: -1},
		},
	}
	comp := &Component{NodeInfo: NodeInfo{Name: "C"}, Width: 32, Size: 6, Regs: []Node{arr}}
	if err := comp.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if arr.Framesize != 2 || arr.Size() != 6 {
		t.Fatalf("framesize=%d size=%d, want 2 and 6", arr.Framesize, arr.Size())
	}
}

func TestMemoryMapFinish(t *testing.T) {
	comp := testComponent()
	if err := comp.Finish(); err != nil {
		t.Fatalf("component Finish: %v", err)
	}
	byName := map[string]*Component{"CTRLPORT": comp}

	m := &MemoryMap{
		NodeInfo: NodeInfo{Name: "SOC"},
		Base:     0x40000000,
		Insts: []Node{
			&Instance{NodeInfo: NodeInfo{Name: "CTL0"}, Offset: 0, BindName: "CTRLPORT"},
			&InstanceArray{
				NodeInfo: NodeInfo{Name: "PORTS"},
				Offset:   0x100,
				Count:    4,
				Insts: []Node{
					&Instance{NodeInfo: NodeInfo{Name: "PORT"}, Offset: -1, BindName: "CTRLPORT"},
				},
			},
		},
	}
	if err := m.Finish(byName); err != nil {
		t.Fatalf("map Finish: %v", err)
	}

	items := m.Space.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(items))
	}
	if items[0].Size != comp.ByteSize() {
		t.Fatalf("CTL0 size %d, want %d", items[0].Size, comp.ByteSize())
	}
	if items[1].Start != 0x100 || items[1].Size != 4*comp.ByteSize() {
		t.Fatalf("PORTS at [%#x,%#x)", items[1].Start, items[1].End())
	}
}

func TestMemoryMapShapeErrors(t *testing.T) {
	comp := testComponent()
	if err := comp.Finish(); err != nil {
		t.Fatalf("component Finish: %v", err)
	}
	byName := map[string]*Component{"CTRLPORT": comp}

	cases := []struct {
		name string
		m    *MemoryMap
	}{
		{
			name: "unknown binding",
			m: &MemoryMap{NodeInfo: NodeInfo{Name: "M"}, Insts: []Node{
				&Instance{NodeInfo: NodeInfo{Name: "I"}, Offset: 0, BindName: "NOSUCH"},
			}},
		},
		{
			name: "instance array with two instances",
			m: &MemoryMap{NodeInfo: NodeInfo{Name: "M"}, Insts: []Node{
				&InstanceArray{NodeInfo: NodeInfo{Name: "A"}, Offset: 0, Count: 2, Insts: []Node{
					&Instance{NodeInfo: NodeInfo{Name: "I"}, BindName: "CTRLPORT"},
					&Instance{NodeInfo: NodeInfo{Name: "J"}, BindName: "CTRLPORT"},
				}},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var shape *ShapeError
			if err := tc.m.Finish(byName); !errors.As(err, &shape) {
				t.Fatalf("expected ShapeError, got %v", err)
			}
		})
	}
}
