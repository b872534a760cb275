package space

import (
	"errors"
	"testing"
)

func TestAddPlacesInDeclarationOrder(t *testing.T) {
	s := New[string](8)
	if pos, err := s.Add("a", 2); err != nil || pos != 0 {
		t.Fatalf("Add a: pos=%d err=%v", pos, err)
	}
	if pos, err := s.Add("b", 1); err != nil || pos != 2 {
		t.Fatalf("Add b: pos=%d err=%v", pos, err)
	}
	if err := s.AddAt("c", 6, 2); err != nil {
		t.Fatalf("AddAt c: %v", err)
	}

	items := s.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(items))
	}
	want := []struct {
		child string
		start int
		size  int
	}{{"a", 0, 2}, {"b", 2, 1}, {"c", 6, 2}}
	for i, w := range want {
		got := items[i]
		if got.Child != w.child || got.Start != w.start || got.Size != w.size {
			t.Errorf("slot %d: got %q [%d,%d), want %q [%d,%d)",
				i, got.Child, got.Start, got.End(), w.child, w.start, w.start+w.size)
		}
	}
}

func TestRegionsCoverDeclaredRange(t *testing.T) {
	s := New[string](10)
	mustAddAt(t, s, "a", 1, 2)
	mustAddAt(t, s, "b", 5, 3)

	total := 0
	pos := 0
	for _, r := range s.Regions() {
		if r.Start != pos {
			t.Fatalf("region at %d does not continue from %d", r.Start, pos)
		}
		total += r.Size
		pos = r.Start + r.Size
	}
	if total != s.Size() {
		t.Fatalf("regions cover %d of %d", total, s.Size())
	}

	regions := s.Regions()
	gaps := 0
	for _, r := range regions {
		if r.Gap {
			gaps++
		}
	}
	if gaps != 3 {
		t.Fatalf("expected gaps at 0, 3 and 8, found %d gap regions", gaps)
	}
	if !s.HasGaps() {
		t.Fatal("HasGaps should be true")
	}
}

func TestFullSpaceHasNoGaps(t *testing.T) {
	s := New[string](4)
	mustAddAt(t, s, "a", 0, 4)
	if s.HasGaps() {
		t.Fatal("fully occupied space reports gaps")
	}
	if regions := s.Regions(); len(regions) != 1 || regions[0].Gap {
		t.Fatalf("unexpected regions %#v", regions)
	}
}

func TestOverflowAndOverlap(t *testing.T) {
	s := New[string](4)
	mustAddAt(t, s, "a", 0, 2)

	var overflow *OverflowError
	if err := s.AddAt("b", 3, 2); !errors.As(err, &overflow) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	var overlap *OverlapError
	if err := s.AddAt("b", 1, 1); !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if _, err := s.Add("b", 3); err == nil {
		t.Fatal("expected overflow appending past the end")
	}
}

func TestSliceClipsToWindow(t *testing.T) {
	// A 16-bit register with a 12-bit field at offset 4: the field straddles
	// both byte lanes, so each lane sees only its intersecting bit slice.
	s := New[string](16)
	mustAddAt(t, s, "f", 4, 12)

	lane0 := s.Slice(0, 8)
	items := lane0.Items()
	if len(items) != 1 || items[0].Start != 4 || items[0].Size != 4 {
		t.Fatalf("lane 0: got %#v", items)
	}

	lane1 := s.Slice(8, 16)
	items = lane1.Items()
	if len(items) != 1 || items[0].Start != 8 || items[0].Size != 8 {
		t.Fatalf("lane 1: got %#v", items)
	}

	// The slice is independent of the parent.
	if lane0.Size() != 8 || lane0.Lo() != 0 {
		t.Fatalf("lane 0 bounds: lo=%d size=%d", lane0.Lo(), lane0.Size())
	}
}

func TestSliceEmptyWindow(t *testing.T) {
	s := New[string](32)
	mustAddAt(t, s, "f", 0, 4)
	lane := s.Slice(8, 16)
	if lane.Len() != 0 {
		t.Fatalf("expected empty slice, got %d slots", lane.Len())
	}
	if !lane.HasGaps() {
		t.Fatal("empty window should be all gap")
	}
}

func mustAddAt(t *testing.T, s *Space[string], child string, start, size int) {
	t.Helper()
	if err := s.AddAt(child, start, size); err != nil {
		t.Fatalf("AddAt %q: %v", child, err)
	}
}
