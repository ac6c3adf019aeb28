package spatial

import "strings"

// GroupState is the dirty/build state bitmask of a SpatialGroup.
// Several states may be set at once.
type GroupState uint32

const (
	// StateGeomDirty means the draw map must be regenerated.
	StateGeomDirty GroupState = 1 << iota
	// StateAlphaDirty means alpha batches must be re-sorted for a new view.
	StateAlphaDirty
	// StateInImageQueue means the group's textures are queued for priority update.
	StateInImageQueue
	// StateImageDirty means texture priorities are stale.
	StateImageDirty
	// StateMeshDirty means vertex positions/normals must be rewritten.
	StateMeshDirty
	// StateNewDrawInfo means draw infos were added outside a full rebuild.
	StateNewDrawInfo
	// StateInBuildQ1 means the group is queued for rebuild this frame.
	StateInBuildQ1
	// StateInBuildQ2 means the group is queued for rebuild next frame.
	StateInBuildQ2
	// StateObjectDirty means member bounds must be recomputed.
	StateObjectDirty
	// StateOccluded means the group was occluded in the last occlusion query.
	StateOccluded
	// StateSkipFrustumCheck means the group was fully inside the frustum.
	StateSkipFrustumCheck
)

// StateDrawMapDirty is the set of states that invalidate the draw map.
const StateDrawMapDirty = StateGeomDirty | StateMeshDirty | StateAlphaDirty | StateNewDrawInfo

// stateInherit is the set of states copied from a parent group on creation.
const stateInherit = StateOccluded

var stateNames = []string{
	"GEOM_DIRTY", "ALPHA_DIRTY", "IN_IMAGE_QUEUE", "IMAGE_DIRTY", "MESH_DIRTY",
	"NEW_DRAWINFO", "IN_BUILD_Q1", "IN_BUILD_Q2", "OBJECT_DIRTY", "OCCLUDED",
	"SKIP_FRUSTUM_CHECK",
}

// Has reports whether every bit of s is set.
func (g GroupState) Has(s GroupState) bool { return g&s == s }

// Any reports whether at least one bit of s is set.
func (g GroupState) Any(s GroupState) bool { return g&s != 0 }

// String returns the set state names joined with '|'.
func (g GroupState) String() string {
	if g == 0 {
		return "CLEAN"
	}
	var parts []string
	for i, name := range stateNames {
		if g&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
