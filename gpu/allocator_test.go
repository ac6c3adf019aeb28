package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func TestHALAllocator(t *testing.T) {
	device, queue := createNoopDevice(t)
	alloc := NewHALAllocator(device, queue)

	a, err := alloc.Allocate("vb", 10, gputypes.BufferUsageVertex)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if a.Size() != 12 {
		t.Errorf("Size = %d, want aligned 12", a.Size())
	}
	if err := alloc.Upload(a, 0, make([]byte, 12)); err != nil {
		t.Errorf("Upload: %v", err)
	}
	if err := alloc.Upload(a, 8, make([]byte, 8)); !errors.Is(err, ErrUploadOutOfRange) {
		t.Errorf("oversized Upload err = %v", err)
	}
	s := alloc.Stats()
	if s.BufferCount != 1 || s.UsedBytes != 12 || s.UploadedBytes != 12 {
		t.Errorf("stats = %+v", s)
	}
	alloc.Free(a)
	alloc.Free(a)
	if s := alloc.Stats(); s.BufferCount != 0 || s.UsedBytes != 0 {
		t.Errorf("stats after free = %+v", s)
	}

	if _, err := alloc.Allocate("empty", 0, gputypes.BufferUsageVertex); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("zero Allocate err = %v", err)
	}
	alloc.Close()
	if _, err := alloc.Allocate("late", 4, gputypes.BufferUsageVertex); !errors.Is(err, ErrAllocatorClosed) {
		t.Errorf("Allocate after Close err = %v", err)
	}
}

func TestHALAllocatorVertexBuffer(t *testing.T) {
	device, queue := createNoopDevice(t)
	alloc := NewHALAllocator(device, queue)

	vb, err := NewVertexBuffer(alloc, "tri", MaskBasic, gputypes.BufferUsageCopyDst, 3, 3)
	if err != nil {
		t.Fatalf("NewVertexBuffer: %v", err)
	}
	vb.SetPosition(0, 0, 0, 0)
	vb.SetPosition(1, 1, 0, 0)
	vb.SetPosition(2, 0, 1, 0)
	if err := vb.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	vb.Release()
	if s := alloc.Stats(); s.BufferCount != 0 {
		t.Errorf("BufferCount = %d after release", s.BufferCount)
	}
}

func TestMemoryAllocatorForeignAllocation(t *testing.T) {
	device, queue := createNoopDevice(t)
	h := NewHALAllocator(device, queue)
	m := NewMemoryAllocator()

	a, err := h.Allocate("x", 4, gputypes.BufferUsageVertex)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Free(a)
	if err := m.Upload(a, 0, []byte{1}); err == nil {
		t.Error("expected error uploading a foreign allocation")
	}
	if Bytes(a) != nil {
		t.Error("Bytes of a hal allocation should be nil")
	}
}
