package dirty

import (
	"slices"
	"testing"
)

// =============================================================================
// Set Basic Tests
// =============================================================================

func TestSet_Create(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantLen int
	}{
		{"zero", 0, 0},
		{"one", 1, 64},
		{"word", 64, 64},
		{"word plus one", 65, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.n)
			if s.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", s.Len(), tt.wantLen)
			}
			if !s.IsEmpty() {
				t.Error("new Set should be empty")
			}
		})
	}
}

func TestSet_Mark(t *testing.T) {
	s := New(10)

	s.Mark(3)
	if !s.IsDirty(3) {
		t.Error("Mark(3) did not set dirty flag")
	}
	if s.IsDirty(4) {
		t.Error("slot 4 should not be dirty")
	}

	// Marking past the end grows the set.
	s.Mark(200)
	if !s.IsDirty(200) {
		t.Error("Mark(200) did not grow the set")
	}
	if !s.IsDirty(3) {
		t.Error("grow lost existing mark")
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}

	s.Mark(-1)
	if s.IsDirty(-1) {
		t.Error("negative index should be ignored")
	}
}

func TestSet_UnmarkAndClear(t *testing.T) {
	s := New(128)
	for _, i := range []int{0, 63, 64, 127} {
		s.Mark(i)
	}
	s.Unmark(63)
	s.Unmark(1000) // out of range, no-op
	if s.IsDirty(63) {
		t.Error("Unmark(63) did not clear")
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
	s.Clear()
	if !s.IsEmpty() {
		t.Error("Clear() left dirty slots")
	}
	if s.Len() != 128 {
		t.Errorf("Clear() changed Len to %d", s.Len())
	}
}

func TestSet_ForEach(t *testing.T) {
	s := New(0)
	want := []int{1, 5, 64, 65, 190}
	for i := len(want) - 1; i >= 0; i-- {
		s.Mark(want[i])
	}

	var got []int
	s.ForEach(func(i int) { got = append(got, i) })
	if !slices.Equal(got, want) {
		t.Errorf("ForEach visited %v, want %v", got, want)
	}
}

func BenchmarkSet_MarkForEach(b *testing.B) {
	s := New(4096)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 4096; j += 7 {
			s.Mark(j)
		}
		s.ForEach(func(int) {})
		s.Clear()
	}
}
