package spatial

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
)

// newVehicle returns a bridge whose parent sits at pos, holding one quad at
// local offset (5, 0, 0).
func newVehicle(t *testing.T, s *Session, pos Vec3) (*Bridge, *Partition) {
	t.Helper()
	outer := s.NewPartition(KindBridge)
	parent := NewBoxDrawable(BoxFromCenter(pos, Splat(1)))
	b := s.NewBridge(parent, outer, KindVolume)
	if b.Partition().Put(quadAt(V3(5, 0, 0), 1, 9), false) == nil {
		t.Fatal("local quad refused")
	}
	return b, outer
}

func TestBridge_TransformCamera(t *testing.T) {
	s := NewSession()
	b, _ := newVehicle(t, s, V3(100, 0, 0))

	local, err := b.TransformCamera(cameraAt(V3(90, 0, 0)))
	if err != nil {
		t.Fatalf("TransformCamera() error = %v", err)
	}
	if !local.Origin.Approx(V3(-10, 0, 0), 1e-4) {
		t.Errorf("local origin = %v, want (-10, 0, 0)", local.Origin)
	}
	if !local.At.Approx(V3(1, 0, 0), 1e-4) {
		t.Errorf("local at = %v, want (1, 0, 0)", local.At)
	}
}

func TestBridge_TransformCameraRotated(t *testing.T) {
	s := NewSession()
	outer := s.NewPartition(KindBridge)
	parent := NewBoxDrawable(BoxFromCenter(V3(0, 0, 0), Splat(1)))
	parent.SetWorldMatrix(RotateZ(math32.Pi / 2))
	b := s.NewBridge(parent, outer, KindVolume)

	local, err := b.TransformCamera(cameraAt(V3(0, 10, 0)))
	if err != nil {
		t.Fatalf("TransformCamera() error = %v", err)
	}
	if !local.Origin.Approx(V3(10, 0, 0), 1e-4) {
		t.Errorf("local origin = %v, want (10, 0, 0)", local.Origin)
	}
}

func TestBridge_CullThroughProxy(t *testing.T) {
	s := NewSession()
	b, outer := newVehicle(t, s, V3(100, 0, 0))

	result := NewCullResult()
	var rb recordingBinder
	stats := runFrame(s, cameraAt(V3(90, 0, 0)), result, &rb)

	if !outer.Contains(b.Proxy()) {
		t.Fatal("proxy not indexed by the outer partition")
	}
	ext := b.Proxy().Extents()
	if !ext.Contains(V3(105, 0, 0)) {
		t.Errorf("proxy extents %v do not cover the world position of the content", ext)
	}
	if got := result.VisibleBridges(); len(got) != 1 || got[0] != b {
		t.Fatalf("VisibleBridges() = %v, want the bridge", got)
	}
	found := false
	for _, g := range result.VisibleGroups() {
		if g.Partition() == b.Partition() {
			found = true
		}
	}
	if !found {
		t.Error("bridge partition produced no visible group")
	}
	if stats.Draws != 1 {
		t.Errorf("draws = %d, want 1", stats.Draws)
	}
}

func TestBridge_CulledUnderAnyOuterKind(t *testing.T) {
	tests := []struct {
		name  string
		outer PartitionKind
	}{
		{"bridge outer", KindBridge},
		{"volume outer", KindVolume},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			outer := s.NewPartition(tt.outer)
			parent := NewBoxDrawable(BoxFromCenter(V3(100, 0, 0), Splat(1)))
			b := s.NewBridge(parent, outer, KindVolume)
			if b.Partition().Put(quadAt(V3(5, 0, 0), 1, 9), false) == nil {
				t.Fatal("local quad refused")
			}

			result := NewCullResult()
			var rb recordingBinder
			stats := runFrame(s, cameraAt(V3(90, 0, 0)), result, &rb)
			if !outer.Contains(b.Proxy()) {
				t.Fatal("proxy not indexed by the outer partition")
			}
			if got := result.VisibleBridges(); len(got) != 1 || got[0] != b {
				t.Errorf("VisibleBridges() = %v, want the bridge", got)
			}
			if stats.Draws != 1 {
				t.Errorf("draws = %d, want 1", stats.Draws)
			}
		})
	}
}

func TestBridge_ModelMatrixFollowsParent(t *testing.T) {
	s := NewSession()
	b, _ := newVehicle(t, s, V3(100, 0, 0))
	parent := b.Parent().(*BasicDrawable)
	result := NewCullResult()
	cam := cameraAt(V3(90, 0, 0))

	for _, pos := range []Vec3{V3(100, 0, 0), V3(110, 0, 0), V3(95, 0, 0)} {
		parent.MoveTo(pos)
		var rb recordingBinder
		if stats := runFrame(s, cam, result, &rb); stats.Draws != 1 {
			t.Fatalf("parent at %v: draws = %d, want 1", pos, stats.Draws)
		}
		models := rb.ops("model")
		if len(models) == 0 {
			t.Fatalf("parent at %v: no model matrix bound", pos)
		}
		if got := models[len(models)-1].model.T; !got.Approx(pos, 1e-4) {
			t.Errorf("parent at %v: model translation = %v", pos, got)
		}
	}
}

func TestBridge_CulledWhenProxyOutside(t *testing.T) {
	s := NewSession()
	b, _ := newVehicle(t, s, V3(100, 0, 0))

	result := NewCullResult()
	cam := cameraAt(V3(90, 0, 0))
	cam.At, cam.Left = V3(-1, 0, 0), V3(0, -1, 0)
	runFrame(s, cam, result, &recordingBinder{})

	if len(result.VisibleBridges()) != 0 {
		t.Error("bridge behind the camera culled visible")
	}
	for _, g := range result.VisibleGroups() {
		if g.Partition() == b.Partition() {
			t.Error("content of an invisible bridge reported visible")
		}
	}
}

func TestBridge_ProxyFollowsParent(t *testing.T) {
	s := NewSession()
	b, _ := newVehicle(t, s, V3(100, 0, 0))
	s.Update()

	parent := b.Parent().(*BasicDrawable)
	parent.SetWorldMatrix(Translate(V3(200, 0, 0)))
	s.Update()

	if c := b.Proxy().Position(); !c.Approx(V3(205, 0, 0), 1e-3) {
		t.Errorf("proxy position = %v, want (205, 0, 0)", c)
	}
}

func TestBridge_BinRadiusCapped(t *testing.T) {
	s := NewSession()
	outer := s.NewPartition(KindBridge)
	b := s.NewBridge(NewBoxDrawable(BoxFromCenter(V3(0, 0, 0), Splat(1))), outer, KindVolume)
	b.Partition().Put(boxAt(V3(0, 0, 0), 300), false)
	s.Update()

	if got := b.Proxy().BinRadius(); got != MaxBridgeBinRadius {
		t.Errorf("BinRadius() = %v, want %v", got, MaxBridgeBinRadius)
	}
}

func TestBridge_EmptyHasNoProxy(t *testing.T) {
	s := NewSession()
	outer := s.NewPartition(KindBridge)
	b := s.NewBridge(NewBoxDrawable(BoxFromCenter(V3(0, 0, 0), Splat(1))), outer, KindVolume)
	s.Update()
	if outer.Contains(b.Proxy()) {
		t.Error("bridge without content indexed a proxy")
	}
}

func TestBridge_CleanupReferences(t *testing.T) {
	s := NewSession()
	b, outer := newVehicle(t, s, V3(100, 0, 0))
	s.Update()
	inner := b.Partition()

	b.CleanupReferences()
	if !b.Detached() || b.Parent() != nil {
		t.Error("bridge still attached after cleanup")
	}
	if outer.Contains(b.Proxy()) {
		t.Error("proxy still indexed after cleanup")
	}
	for _, p := range s.Partitions() {
		if p == inner {
			t.Error("bridge partition still attached to the session")
		}
	}
	if _, err := b.TransformCamera(NewCamera()); !errors.Is(err, ErrBridgeDetached) {
		t.Errorf("TransformCamera() after cleanup error = %v, want ErrBridgeDetached", err)
	}
	b.CleanupReferences()
}

func TestBridge_CleanupDeferredWhileRendering(t *testing.T) {
	s := NewSession()
	b, _ := newVehicle(t, s, V3(100, 0, 0))
	s.Update()
	inner := b.Partition()

	s.BeginRender()
	b.CleanupReferences()
	attached := func() bool {
		for _, p := range s.Partitions() {
			if p == inner {
				return true
			}
		}
		return false
	}
	if !attached() {
		t.Fatal("bridge partition destroyed while rendering")
	}
	if got := s.Stats().Deferred; got != 1 {
		t.Errorf("Deferred = %d, want 1", got)
	}
	s.EndRender()
	if attached() {
		t.Error("bridge partition not destroyed at EndRender")
	}
	if got := s.Stats().Deferred; got != 0 {
		t.Errorf("Deferred after EndRender = %d, want 0", got)
	}
}
