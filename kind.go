package spatial

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spatial/gpu"
)

// PartitionKind is the geometry category of a partition. It selects the
// GeometryManager and the option defaults.
type PartitionKind uint8

const (
	KindVolume PartitionKind = iota
	KindTerrain
	KindTree
	KindGrass
	KindParticle
	KindWater
	// KindBridge partitions hold bridges as single units.
	KindBridge
	// KindHUD partitions hold screen-attached content at constant size.
	KindHUD

	numPartitionKinds = iota
)

var kindNames = [numPartitionKinds]string{
	"volume", "terrain", "tree", "grass", "particle", "water", "bridge", "hud",
}

// String returns the kind name.
func (k PartitionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("PartitionKind(%d)", uint8(k))
}

// ParsePartitionKind returns the kind with the given name.
func ParsePartitionKind(name string) (PartitionKind, error) {
	for i, n := range kindNames {
		if n == name {
			return PartitionKind(i), nil
		}
	}
	return 0, fmt.Errorf("spatial: unknown partition kind %q", name)
}

// Default partition parameters.
const (
	DefaultSlopRatio    = 0.25
	DefaultLODFactor    = 1.0
	DefaultNodeCapacity = 128
	// HUDPixelArea is the constant pixel area of HUD groups.
	HUDPixelArea = 1024
)

// defaultPartitionOptions returns the option defaults of a kind.
func defaultPartitionOptions(k PartitionKind) partitionOptions {
	o := partitionOptions{
		vertexMask:    gpu.MaskVolume,
		bufferUsage:   gputypes.BufferUsageCopyDst,
		renderByGroup: true,
		slopRatio:     DefaultSlopRatio,
		depthMask:     true,
		lodFactor:     DefaultLODFactor,
		capacity:      DefaultNodeCapacity,
		hudPixelArea:  HUDPixelArea,
	}
	switch k {
	case KindTerrain:
		o.vertexMask = gpu.MaskTerrain
		o.slopRatio = 0
		o.infiniteFarClip = true
	case KindTree:
		o.vertexMask = gpu.MaskBasic
		o.slopRatio = 0
	case KindGrass:
		o.vertexMask = gpu.MaskBasic
		o.slopRatio = 0
	case KindParticle:
		o.vertexMask = gpu.MaskParticle
		o.slopRatio = 0
		o.depthMask = false
	case KindWater:
		o.vertexMask = gpu.MaskWater
		o.slopRatio = 0
		o.infiniteFarClip = true
		o.depthMask = false
	case KindBridge:
		o.vertexMask = gpu.MaskPosition
		o.renderByGroup = false
		o.slopRatio = 0
	}
	return o
}

// newGeometryManager returns the geometry manager of a kind.
func newGeometryManager(k PartitionKind) GeometryManager {
	switch k {
	case KindTerrain:
		return &TerrainGeometry{}
	case KindTree:
		return &TreeGeometry{}
	case KindGrass:
		return &GrassGeometry{}
	case KindParticle:
		return &ParticleGeometry{}
	case KindWater:
		return &WaterGeometry{}
	case KindBridge:
		return &BridgeGeometry{}
	default:
		return &VolumeGeometry{}
	}
}
