package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Allocator errors.
var (
	// ErrInvalidBufferSize is returned when a buffer of zero bytes is requested.
	ErrInvalidBufferSize = errors.New("gpu: invalid buffer size")

	// ErrAllocatorClosed is returned when allocating from a closed allocator.
	ErrAllocatorClosed = errors.New("gpu: allocator closed")

	// ErrUploadOutOfRange is returned when an upload does not fit the allocation.
	ErrUploadOutOfRange = errors.New("gpu: upload out of range")
)

// copyBufferAlignment is the required alignment of buffer sizes for copies.
const copyBufferAlignment uint64 = 4

// Allocation is a device allocation returned by an Allocator.
type Allocation interface {
	// Size returns the allocated size in bytes.
	Size() uint64
}

// Allocator creates, fills and frees device buffers.
type Allocator interface {
	Allocate(label string, size uint64, usage gputypes.BufferUsage) (Allocation, error)
	Upload(a Allocation, offset uint64, data []byte) error
	Free(a Allocation)
	Stats() MemoryStats
}

// MemoryStats contains buffer memory usage statistics.
type MemoryStats struct {
	// UsedBytes is the currently allocated memory in bytes.
	UsedBytes uint64

	// BufferCount is the number of live allocations.
	BufferCount int

	// UploadedBytes is the total number of bytes uploaded.
	UploadedBytes uint64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%d buffers, %d KB used, %d KB uploaded]",
		s.BufferCount, s.UsedBytes/1024, s.UploadedBytes/1024)
}

func alignSize(size uint64) uint64 {
	return (size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
}

// halAllocation wraps a hal.Buffer with its aligned size.
type halAllocation struct {
	buf  hal.Buffer
	size uint64
}

func (a *halAllocation) Size() uint64 { return a.size }

// HALAllocator allocates buffers on a hal.Device and uploads through the
// device queue.
//
// HALAllocator is safe for concurrent use.
type HALAllocator struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	stats  MemoryStats
	closed bool
}

// NewHALAllocator creates an allocator for the given device and queue.
func NewHALAllocator(device hal.Device, queue hal.Queue) *HALAllocator {
	return &HALAllocator{device: device, queue: queue}
}

// Allocate creates a device buffer. The size is rounded up to the copy
// alignment.
func (h *HALAllocator) Allocate(label string, size uint64, usage gputypes.BufferUsage) (Allocation, error) {
	if size == 0 {
		return nil, ErrInvalidBufferSize
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrAllocatorClosed
	}
	aligned := alignSize(size)
	buf, err := h.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  aligned,
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	h.stats.UsedBytes += aligned
	h.stats.BufferCount++
	return &halAllocation{buf: buf, size: aligned}, nil
}

// Upload writes data into the allocation at offset.
func (h *HALAllocator) Upload(a Allocation, offset uint64, data []byte) error {
	ha, ok := a.(*halAllocation)
	if !ok || ha == nil {
		return fmt.Errorf("gpu: foreign allocation %T", a)
	}
	if offset+uint64(len(data)) > ha.size {
		return fmt.Errorf("%w: %d+%d > %d", ErrUploadOutOfRange, offset, len(data), ha.size)
	}
	if len(data) == 0 {
		return nil
	}
	h.queue.WriteBuffer(ha.buf, offset, data)
	h.mu.Lock()
	h.stats.UploadedBytes += uint64(len(data))
	h.mu.Unlock()
	return nil
}

// Free destroys the device buffer.
func (h *HALAllocator) Free(a Allocation) {
	ha, ok := a.(*halAllocation)
	if !ok || ha == nil || ha.buf == nil {
		return
	}
	h.device.DestroyBuffer(ha.buf)
	ha.buf = nil
	h.mu.Lock()
	h.stats.UsedBytes -= ha.size
	h.stats.BufferCount--
	h.mu.Unlock()
}

// Stats returns the current memory statistics.
func (h *HALAllocator) Stats() MemoryStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Close marks the allocator closed. Live allocations must still be freed.
func (h *HALAllocator) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

// memAllocation is host memory standing in for a device buffer.
type memAllocation struct {
	label string
	usage gputypes.BufferUsage
	data  []byte
	freed bool
}

func (a *memAllocation) Size() uint64 { return uint64(len(a.data)) }

// MemoryAllocator keeps buffer contents in host memory.
//
// MemoryAllocator is safe for concurrent use.
type MemoryAllocator struct {
	mu    sync.Mutex
	stats MemoryStats
}

// NewMemoryAllocator creates a host-memory allocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{}
}

// Allocate reserves size bytes (rounded up to the copy alignment).
func (m *MemoryAllocator) Allocate(label string, size uint64, usage gputypes.BufferUsage) (Allocation, error) {
	if size == 0 {
		return nil, ErrInvalidBufferSize
	}
	aligned := alignSize(size)
	m.mu.Lock()
	m.stats.UsedBytes += aligned
	m.stats.BufferCount++
	m.mu.Unlock()
	return &memAllocation{label: label, usage: usage, data: make([]byte, aligned)}, nil
}

// Upload copies data into the allocation.
func (m *MemoryAllocator) Upload(a Allocation, offset uint64, data []byte) error {
	ma, ok := a.(*memAllocation)
	if !ok || ma == nil || ma.freed {
		return fmt.Errorf("gpu: invalid allocation %T", a)
	}
	if offset+uint64(len(data)) > uint64(len(ma.data)) {
		return fmt.Errorf("%w: %d+%d > %d", ErrUploadOutOfRange, offset, len(data), len(ma.data))
	}
	copy(ma.data[offset:], data)
	m.mu.Lock()
	m.stats.UploadedBytes += uint64(len(data))
	m.mu.Unlock()
	return nil
}

// Free releases the allocation. Freeing twice is a no-op.
func (m *MemoryAllocator) Free(a Allocation) {
	ma, ok := a.(*memAllocation)
	if !ok || ma == nil || ma.freed {
		return
	}
	ma.freed = true
	m.mu.Lock()
	m.stats.UsedBytes -= uint64(len(ma.data))
	m.stats.BufferCount--
	m.mu.Unlock()
	ma.data = nil
}

// Stats returns the current memory statistics.
func (m *MemoryAllocator) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Bytes returns the host copy of an allocation made by a MemoryAllocator.
func Bytes(a Allocation) []byte {
	if ma, ok := a.(*memAllocation); ok {
		return ma.data
	}
	return nil
}
