package spatial

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/spatial/gpu"
)

// SessionOption configures a Session during creation.
//
// Example:
//
//	// Host-memory buffers, no occlusion culling
//	s := spatial.NewSession()
//
//	// Device buffers and occlusion results from the renderer
//	s := spatial.NewSession(
//	    spatial.WithAllocator(gpu.NewHALAllocator(device, queue)),
//	    spatial.WithOcclusion(queries),
//	)
type SessionOption func(*sessionOptions)

// sessionOptions holds optional configuration for Session creation.
type sessionOptions struct {
	allocator   gpu.Allocator
	occlusion   OcclusionOracle
	metrics     *Metrics
	buildBudget int
	lodSeed     uint32
}

// defaultSessionOptions returns the default session options.
func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		allocator:   nil, // Will be set to a MemoryAllocator if nil
		buildBudget: 0,   // Unlimited
	}
}

// WithAllocator sets the allocator backing vertex buffers.
// The default keeps buffers in host memory.
func WithAllocator(a gpu.Allocator) SessionOption {
	return func(o *sessionOptions) {
		o.allocator = a
	}
}

// WithOcclusion sets the source of last frame's occlusion query results.
// Without it, cull calls that request occlusion only do frustum tests.
func WithOcclusion(oracle OcclusionOracle) SessionOption {
	return func(o *sessionOptions) {
		o.occlusion = oracle
	}
}

// WithMetrics records cull, rebuild and draw counters.
func WithMetrics(m *Metrics) SessionOption {
	return func(o *sessionOptions) {
		o.metrics = m
	}
}

// WithBuildBudget limits the number of group rebuilds per frame. Groups over
// budget are carried to the next frame. Zero means unlimited.
func WithBuildBudget(n int) SessionOption {
	return func(o *sessionOptions) {
		if n >= 0 {
			o.buildBudget = n
		}
	}
}

// WithLODSeed staggers the periodic LOD refresh of groups across frames.
func WithLODSeed(seed uint32) SessionOption {
	return func(o *sessionOptions) {
		o.lodSeed = seed
	}
}

// PartitionOption configures a Partition during creation. Options are fixed
// for the lifetime of the partition.
//
// Example:
//
//	// Volumes with the defaults of their kind
//	p := s.NewPartition(spatial.KindVolume)
//
//	// Terrain that streams every frame and ignores the far plane
//	p := s.NewPartition(spatial.KindTerrain,
//	    spatial.WithBufferUsage(gputypes.BufferUsageCopyDst),
//	    spatial.WithInfiniteFarClip(true),
//	)
type PartitionOption func(*partitionOptions)

// partitionOptions holds the construction-time configuration of a partition.
type partitionOptions struct {
	vertexMask      gpu.AttributeMask
	bufferUsage     gputypes.BufferUsage
	renderByGroup   bool
	slopRatio       float32
	infiniteFarClip bool
	depthMask       bool
	lodFactor       float32
	capacity        int
	hudPixelArea    float32
}

// WithVertexMask sets the vertex attributes carried by the partition's
// buffers.
func WithVertexMask(m gpu.AttributeMask) PartitionOption {
	return func(o *partitionOptions) {
		o.vertexMask = m | gpu.AttribPosition
	}
}

// WithBufferUsage sets extra usage flags for vertex buffers, in addition to
// the vertex and index usages.
func WithBufferUsage(u gputypes.BufferUsage) PartitionOption {
	return func(o *partitionOptions) {
		o.bufferUsage = u
	}
}

// WithRenderByGroup selects whether visible groups contribute their draw
// maps (true) or their individual drawables (false) to the cull result.
func WithRenderByGroup(v bool) PartitionOption {
	return func(o *partitionOptions) {
		o.renderByGroup = v
	}
}

// WithSlopRatio sets the relative distance change a group tolerates before
// its LOD is re-evaluated. Zero re-evaluates on the periodic refresh only.
func WithSlopRatio(r float32) PartitionOption {
	return func(o *partitionOptions) {
		if r >= 0 {
			o.slopRatio = r
		}
	}
}

// WithInfiniteFarClip makes cull ignore the camera far plane.
func WithInfiniteFarClip(v bool) PartitionOption {
	return func(o *partitionOptions) {
		o.infiniteFarClip = v
	}
}

// WithDepthMask selects whether the partition's alpha batches write depth.
func WithDepthMask(v bool) PartitionOption {
	return func(o *partitionOptions) {
		o.depthMask = v
	}
}

// WithLODFactor scales the distance at which groups switch LOD.
func WithLODFactor(f float32) PartitionOption {
	return func(o *partitionOptions) {
		if f > 0 {
			o.lodFactor = f
		}
	}
}

// WithNodeCapacity sets the number of drawables an octree node holds before
// it pushes new ones into children.
func WithNodeCapacity(n int) PartitionOption {
	return func(o *partitionOptions) {
		if n > 0 {
			o.capacity = n
		}
	}
}
