// Package gpu holds the GPU-side resources shared by draw batches: vertex
// buffers with their attribute layouts, texture handles and the allocators
// that back buffers with device memory.
//
// Vertex buffers are reference counted. A buffer created by a geometry
// rebuild starts with one reference owned by its group; every draw batch
// that records a range in it takes another. The device allocation is
// released when the last holder calls Release.
//
// Two allocators are provided:
//   - HALAllocator creates buffers on a gogpu/wgpu hal.Device and uploads
//     through its hal.Queue.
//   - MemoryAllocator keeps the bytes in host memory. It is used for
//     headless runs and tests.
package gpu

// TextureID is an opaque handle to a texture owned by the image layer.
// The zero value means "no texture".
type TextureID uint64

// InvalidTexture is the zero TextureID.
const InvalidTexture TextureID = 0

// IsValid reports whether the id refers to a texture.
func (id TextureID) IsValid() bool { return id != InvalidTexture }
