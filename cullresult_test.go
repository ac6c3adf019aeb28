package spatial

import (
	"errors"
	"testing"

	"github.com/gogpu/spatial/gpu"
)

func TestCullResult_PushGrowsAndClearKeepsCapacity(t *testing.T) {
	r := NewCullResult()
	groups := make([]*SpatialGroup, 9)
	for i := range groups {
		groups[i] = &SpatialGroup{}
		r.PushVisibleGroup(groups[i])
	}
	if got := len(r.VisibleGroups()); got != 9 {
		t.Fatalf("VisibleGroups() = %d, want 9", got)
	}
	for i, g := range r.VisibleGroups() {
		if g != groups[i] {
			t.Fatalf("VisibleGroups()[%d] out of order", i)
		}
	}
	capBefore := r.Capacity().VisibleGroups
	if capBefore != 16 {
		t.Errorf("capacity = %d, want 16 after doubling from 8", capBefore)
	}

	r.Clear()
	if got := len(r.VisibleGroups()); got != 0 {
		t.Errorf("VisibleGroups() after Clear = %d, want 0", got)
	}
	if got := r.Capacity().VisibleGroups; got != capBefore {
		t.Errorf("capacity after Clear = %d, want %d", got, capBefore)
	}
	if r.visibleGroups.items[0] != nil {
		t.Error("Clear kept a reference to a group")
	}

	for i := 0; i < 16; i++ {
		r.PushVisibleGroup(groups[0])
	}
	if got := r.Capacity().VisibleGroups; got != capBefore {
		t.Errorf("refilling to capacity grew the bucket to %d", got)
	}
}

func TestCullResult_AssertDrawMapsEmpty(t *testing.T) {
	r := NewCullResult()
	if err := r.AssertDrawMapsEmpty(); err != nil {
		t.Fatalf("empty result: %v", err)
	}
	r.PushDrawInfo(PassSimple, &DrawInfo{})
	err := r.AssertDrawMapsEmpty()
	if !errors.Is(err, ErrRenderMapNotEmpty) {
		t.Fatalf("AssertDrawMapsEmpty() = %v, want ErrRenderMapNotEmpty", err)
	}

	if got := len(r.ConsumeRenderMap(PassSimple)); got != 1 {
		t.Errorf("ConsumeRenderMap() = %d batches, want 1", got)
	}
	if err := r.AssertDrawMapsEmpty(); err != nil {
		t.Errorf("after consume: %v", err)
	}

	r.PushDrawInfo(PassSimple, &DrawInfo{})
	if err := r.AssertDrawMapsEmpty(); err == nil {
		t.Error("push after consume not reported")
	}
	r.Clear()
	if err := r.AssertDrawMapsEmpty(); err != nil {
		t.Errorf("after Clear: %v", err)
	}
}

func TestCullResult_SortAlphaGroups(t *testing.T) {
	r := NewCullResult()
	for _, d := range []float32{3, 9, 1, 5} {
		r.PushAlphaGroup(&SpatialGroup{depth: d})
	}
	r.SortAlphaGroups()
	var got []float32
	for _, g := range r.AlphaGroups() {
		got = append(got, g.depth)
	}
	want := []float32{9, 5, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("alpha group depths = %v, want %v", got, want)
		}
	}
}

func TestCullResult_SortRenderMap(t *testing.T) {
	r := NewCullResult()
	for _, d := range []float32{5, 15, 10} {
		r.PushDrawInfo(PassAlpha, &DrawInfo{Distance: d})
	}
	for _, tex := range []uint64{3, 1, 2} {
		r.PushDrawInfo(PassSimple, &DrawInfo{Texture: gpu.TextureID(tex)})
	}
	r.SortRenderMap(PassAlpha)
	r.SortRenderMap(PassSimple)

	alpha := r.ConsumeRenderMap(PassAlpha)
	if alpha[0].Distance != 15 || alpha[1].Distance != 10 || alpha[2].Distance != 5 {
		t.Errorf("alpha order = %v, %v, %v", alpha[0].Distance, alpha[1].Distance, alpha[2].Distance)
	}
	simple := r.ConsumeRenderMap(PassSimple)
	if simple[0].Texture != 1 || simple[1].Texture != 2 || simple[2].Texture != 3 {
		t.Errorf("simple order = %v, %v, %v", simple[0].Texture, simple[1].Texture, simple[2].Texture)
	}
}
