package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// MaxIndexedVertices is the number of vertices addressable by 16-bit indices.
const MaxIndexedVertices = 1 << 16

// Vertex buffer errors.
var (
	// ErrTooManyVertices is returned when a buffer would exceed the 16-bit
	// index range.
	ErrTooManyVertices = errors.New("gpu: vertex count exceeds 16-bit index range")

	// ErrNoPosition is returned when a mask lacks AttribPosition.
	ErrNoPosition = errors.New("gpu: attribute mask has no position")

	// ErrBufferReleased is returned when operating on a released buffer.
	ErrBufferReleased = errors.New("gpu: buffer has been released")

	// ErrRangeOutOfBuffer is returned when a draw range does not fit the buffer.
	ErrRangeOutOfBuffer = errors.New("gpu: draw range outside buffer")
)

var bufferIDs atomic.Uint64

// VertexBuffer is an interleaved vertex buffer with a 16-bit index buffer.
//
// The host copy is written with the Set* methods and pushed to the device by
// Flush. VertexBuffer is reference counted: it starts with one reference and
// frees its device allocations when the count drops to zero.
//
// VertexBuffer is not safe for concurrent use.
type VertexBuffer struct {
	id    uint64
	label string
	mask  AttributeMask
	usage gputypes.BufferUsage

	stride     uint64
	numVerts   int
	numIndices int
	vertices   []byte
	indices    []uint16

	alloc Allocator
	vbuf  Allocation
	ibuf  Allocation

	refs     int32
	dirty    bool
	released bool
}

// NewVertexBuffer creates a buffer for numVerts vertices and numIndices
// indices and allocates its device storage.
func NewVertexBuffer(alloc Allocator, label string, mask AttributeMask, usage gputypes.BufferUsage, numVerts, numIndices int) (*VertexBuffer, error) {
	if !mask.Has(AttribPosition) {
		return nil, ErrNoPosition
	}
	if numVerts <= 0 {
		return nil, ErrInvalidBufferSize
	}
	if numVerts > MaxIndexedVertices {
		return nil, fmt.Errorf("%w: %d", ErrTooManyVertices, numVerts)
	}
	vb := &VertexBuffer{
		id:         bufferIDs.Add(1),
		label:      label,
		mask:       mask,
		usage:      usage,
		stride:     mask.Stride(),
		numVerts:   numVerts,
		numIndices: numIndices,
		alloc:      alloc,
		refs:       1,
		dirty:      true,
	}
	vb.vertices = make([]byte, uint64(numVerts)*vb.stride)
	vb.indices = make([]uint16, numIndices)

	var err error
	vb.vbuf, err = alloc.Allocate(label+"-vertices", uint64(len(vb.vertices)), usage|gputypes.BufferUsageVertex)
	if err != nil {
		return nil, fmt.Errorf("allocate %s vertices: %w", label, err)
	}
	if numIndices > 0 {
		vb.ibuf, err = alloc.Allocate(label+"-indices", uint64(numIndices)*2, usage|gputypes.BufferUsageIndex)
		if err != nil {
			alloc.Free(vb.vbuf)
			return nil, fmt.Errorf("allocate %s indices: %w", label, err)
		}
	}
	slogger().Debug("vertex buffer created",
		"label", label, "id", vb.id, "verts", numVerts, "indices", numIndices, "mask", mask.String())
	return vb, nil
}

// ID returns a process-unique buffer id. Ids increase with creation order.
func (vb *VertexBuffer) ID() uint64 { return vb.id }

// Label returns the debug label.
func (vb *VertexBuffer) Label() string { return vb.label }

// Mask returns the attribute mask.
func (vb *VertexBuffer) Mask() AttributeMask { return vb.mask }

// Usage returns the buffer usage hint the buffer was created with.
func (vb *VertexBuffer) Usage() gputypes.BufferUsage { return vb.usage }

// NumVerts returns the vertex capacity.
func (vb *VertexBuffer) NumVerts() int { return vb.numVerts }

// NumIndices returns the index capacity.
func (vb *VertexBuffer) NumIndices() int { return vb.numIndices }

// Layout returns the vertex layout of the buffer.
func (vb *VertexBuffer) Layout() gputypes.VertexBufferLayout { return vb.mask.Layout() }

// Retain adds a reference and returns vb.
func (vb *VertexBuffer) Retain() *VertexBuffer {
	vb.refs++
	return vb
}

// Release drops a reference. The device allocations are freed when the last
// reference is released.
func (vb *VertexBuffer) Release() {
	if vb.released {
		slogger().Warn("vertex buffer released twice", "label", vb.label, "id", vb.id)
		return
	}
	vb.refs--
	if vb.refs > 0 {
		return
	}
	vb.alloc.Free(vb.vbuf)
	if vb.ibuf != nil {
		vb.alloc.Free(vb.ibuf)
	}
	vb.vbuf, vb.ibuf = nil, nil
	vb.vertices, vb.indices = nil, nil
	vb.released = true
}

// Refs returns the current reference count.
func (vb *VertexBuffer) Refs() int { return int(vb.refs) }

// Released reports whether the device storage has been freed.
func (vb *VertexBuffer) Released() bool { return vb.released }

func (vb *VertexBuffer) putFloats(i int, attr AttributeMask, v ...float32) {
	off, ok := vb.mask.Offset(attr)
	if !ok || vb.released || i < 0 || i >= vb.numVerts {
		return
	}
	base := uint64(i)*vb.stride + off
	for k, f := range v {
		binary.LittleEndian.PutUint32(vb.vertices[base+uint64(k)*4:], math.Float32bits(f))
	}
	vb.dirty = true
}

func (vb *VertexBuffer) getFloat(i int, attr AttributeMask, k int) float32 {
	off, ok := vb.mask.Offset(attr)
	if !ok || vb.released || i < 0 || i >= vb.numVerts {
		return 0
	}
	base := uint64(i)*vb.stride + off + uint64(k)*4
	return math.Float32frombits(binary.LittleEndian.Uint32(vb.vertices[base:]))
}

// SetPosition writes the position of vertex i.
func (vb *VertexBuffer) SetPosition(i int, x, y, z float32) { vb.putFloats(i, AttribPosition, x, y, z) }

// SetNormal writes the normal of vertex i.
func (vb *VertexBuffer) SetNormal(i int, x, y, z float32) { vb.putFloats(i, AttribNormal, x, y, z) }

// SetTexCoord0 writes the diffuse texture coordinate of vertex i.
func (vb *VertexBuffer) SetTexCoord0(i int, u, v float32) { vb.putFloats(i, AttribTexCoord0, u, v) }

// SetTexCoord1 writes the secondary texture coordinate of vertex i.
func (vb *VertexBuffer) SetTexCoord1(i int, u, v float32) { vb.putFloats(i, AttribTexCoord1, u, v) }

// SetColor writes the color of vertex i.
func (vb *VertexBuffer) SetColor(i int, r, g, b, a float32) { vb.putFloats(i, AttribColor, r, g, b, a) }

// SetEmissive writes the glow intensity of vertex i.
func (vb *VertexBuffer) SetEmissive(i int, e float32) { vb.putFloats(i, AttribEmissive, e) }

// SetTangent writes the tangent of vertex i.
func (vb *VertexBuffer) SetTangent(i int, x, y, z, w float32) {
	vb.putFloats(i, AttribTangent, x, y, z, w)
}

// Position returns the position of vertex i.
func (vb *VertexBuffer) Position(i int) (x, y, z float32) {
	return vb.getFloat(i, AttribPosition, 0), vb.getFloat(i, AttribPosition, 1), vb.getFloat(i, AttribPosition, 2)
}

// Emissive returns the glow intensity of vertex i.
func (vb *VertexBuffer) Emissive(i int) float32 { return vb.getFloat(i, AttribEmissive, 0) }

// SetIndex writes index slot i.
func (vb *VertexBuffer) SetIndex(i int, v uint16) {
	if vb.released || i < 0 || i >= vb.numIndices {
		return
	}
	vb.indices[i] = v
	vb.dirty = true
}

// Index returns index slot i.
func (vb *VertexBuffer) Index(i int) uint16 {
	if vb.released || i < 0 || i >= vb.numIndices {
		return 0
	}
	return vb.indices[i]
}

// Dirty reports whether the host copy has changes not yet flushed.
func (vb *VertexBuffer) Dirty() bool { return vb.dirty }

// Flush uploads the host copy to the device if it changed.
func (vb *VertexBuffer) Flush() error {
	if vb.released {
		return ErrBufferReleased
	}
	if !vb.dirty {
		return nil
	}
	if err := vb.alloc.Upload(vb.vbuf, 0, vb.vertices); err != nil {
		return fmt.Errorf("upload %s vertices: %w", vb.label, err)
	}
	if vb.ibuf != nil {
		data := make([]byte, len(vb.indices)*2)
		for i, v := range vb.indices {
			binary.LittleEndian.PutUint16(data[i*2:], v)
		}
		if err := vb.alloc.Upload(vb.ibuf, 0, data); err != nil {
			return fmt.Errorf("upload %s indices: %w", vb.label, err)
		}
	}
	vb.dirty = false
	return nil
}

// ValidateRange checks that the vertex range [start, end] and the index range
// [offset, offset+count) lie inside the buffer and that every index in the
// range references a vertex in [start, end].
func (vb *VertexBuffer) ValidateRange(start, end, count, offset uint32) error {
	if vb.released {
		return ErrBufferReleased
	}
	if start > end || int(end) >= vb.numVerts {
		return fmt.Errorf("%w: vertices [%d,%d] of %d", ErrRangeOutOfBuffer, start, end, vb.numVerts)
	}
	if int(offset)+int(count) > vb.numIndices {
		return fmt.Errorf("%w: indices [%d,+%d) of %d", ErrRangeOutOfBuffer, offset, count, vb.numIndices)
	}
	for i := offset; i < offset+count; i++ {
		idx := uint32(vb.indices[i])
		if idx < start || idx > end {
			return fmt.Errorf("%w: index %d at %d outside [%d,%d]", ErrRangeOutOfBuffer, idx, i, start, end)
		}
	}
	return nil
}
