package spatial

import "testing"

func TestGroupTable_StaleHandle(t *testing.T) {
	var tbl groupTable
	a, b := &SpatialGroup{}, &SpatialGroup{}

	ha := tbl.insert(a)
	if tbl.get(ha) != a {
		t.Fatal("get() of fresh handle failed")
	}
	if !tbl.remove(ha) {
		t.Fatal("remove() of live handle failed")
	}
	if tbl.remove(ha) {
		t.Error("remove() of stale handle succeeded")
	}

	hb := tbl.insert(b)
	if hb.Index() != ha.Index() {
		t.Errorf("slot not reused: %s then %s", ha, hb)
	}
	if tbl.get(ha) != nil {
		t.Error("stale handle resolves to the slot's new group")
	}
	if tbl.get(hb) != b {
		t.Error("new handle does not resolve")
	}
	if tbl.liveCount() != 1 || tbl.slotCount() != 1 {
		t.Errorf("live %d slots %d, want 1 and 1", tbl.liveCount(), tbl.slotCount())
	}
}

func TestGroupTable_ZeroHandle(t *testing.T) {
	var tbl groupTable
	tbl.insert(&SpatialGroup{})
	var zero GroupHandle
	if !zero.IsZero() {
		t.Error("zero handle not reported zero")
	}
	if tbl.get(zero) != nil {
		t.Error("zero handle resolved")
	}
	if tbl.get(GroupHandle{index: 9, gen: 1}) != nil {
		t.Error("out-of-range handle resolved")
	}
}

func TestSession_GroupStaleHandle(t *testing.T) {
	s := NewSession()
	p := s.NewPartition(KindVolume)
	h := p.Root().Handle()
	if _, err := s.Group(h); err != nil {
		t.Fatalf("Group() = %v", err)
	}
	p.Destroy()
	if _, err := s.Group(h); err == nil {
		t.Error("Group() of destroyed root succeeded")
	}
}
