package spatial

import (
	"errors"
	"fmt"

	"github.com/gogpu/spatial/gpu"
)

// SpatialGroup is the render-side payload of one octree node: the draw
// batches built from the node's drawables, the node's bounds and the
// per-frame distance and LOD bookkeeping.
//
// Groups are owned by their partition and referenced elsewhere through
// GroupHandle. A pointer obtained from Session.Group is valid until the
// node is pruned.
type SpatialGroup struct {
	session   *Session
	partition *Partition
	node      *octreeNode
	handle    GroupHandle
	state     GroupState

	// bounds covers the whole subtree, objectBounds only the node's own
	// drawables.
	bounds       Box
	objectBounds Box

	viewAngle           Vec3
	lastUpdateViewAngle Vec3

	surfaceArea   float32
	geometryBytes uint64

	drawMap   [NumRenderPasses][]*DrawInfo
	buffers   []*gpu.VertexBuffer
	faceSlots []faceSlot

	distance           float32
	depth              float32
	lastUpdateDistance float32
	radius             float32
	pixelArea          float32
	lod                int

	lastEye Vec3
	lastAt  Vec3

	visibleFrame uint64
	builtFrame   uint64
}

// faceSlot locates a face's vertices inside one of the group's buffers.
type faceSlot struct {
	drawable Drawable
	face     int
	buf      *gpu.VertexBuffer
	base     int
	count    int
}

func (g *SpatialGroup) setState(s GroupState)   { g.state |= s }
func (g *SpatialGroup) clearState(s GroupState) { g.state &^= s }

// State returns the current state bits.
func (g *SpatialGroup) State() GroupState { return g.state }

// Handle returns the group's handle.
func (g *SpatialGroup) Handle() GroupHandle { return g.handle }

// Partition returns the owning partition.
func (g *SpatialGroup) Partition() *Partition { return g.partition }

// Bounds returns the bounds of the node's subtree.
func (g *SpatialGroup) Bounds() Box { return g.bounds }

// ObjectBounds returns the bounds of the node's own drawables.
func (g *SpatialGroup) ObjectBounds() Box { return g.objectBounds }

// Objects returns the drawables held directly by the node. The slice must
// not be modified.
func (g *SpatialGroup) Objects() []Drawable {
	if g.node == nil {
		return nil
	}
	return g.node.data
}

// Len returns the number of drawables held directly by the node.
func (g *SpatialGroup) Len() int { return len(g.Objects()) }

// Center returns the center of the node's cell.
func (g *SpatialGroup) Center() Vec3 { return g.node.center }

// Size returns the half size of the node's cell.
func (g *SpatialGroup) Size() float32 { return g.node.size }

// Distance returns the ramped camera distance from the last UpdateDistance.
func (g *SpatialGroup) Distance() float32 { return g.distance }

// Depth returns the view-space depth used to order alpha groups.
func (g *SpatialGroup) Depth() float32 { return g.depth }

// PixelArea returns the projected area from the last UpdateDistance.
func (g *SpatialGroup) PixelArea() float32 { return g.pixelArea }

// LOD returns the current detail level.
func (g *SpatialGroup) LOD() int { return g.lod }

// SurfaceArea returns the total triangle area of the built batches.
func (g *SpatialGroup) SurfaceArea() float32 { return g.surfaceArea }

// GeometryBytes returns the bytes of vertex and index data built.
func (g *SpatialGroup) GeometryBytes() uint64 { return g.geometryBytes }

// DrawMap returns the group's batches for a pass. The slice must not be
// modified.
func (g *SpatialGroup) DrawMap(pass RenderPass) []*DrawInfo { return g.drawMap[pass] }

// HasAlpha reports whether any alpha pass has batches, or the group has
// alpha faces not yet built.
func (g *SpatialGroup) HasAlpha() bool {
	for pass := RenderPass(0); pass < NumRenderPasses; pass++ {
		if pass.IsAlpha() && len(g.drawMap[pass]) > 0 {
			return true
		}
	}
	if !g.state.Any(StateGeomDirty) {
		return false
	}
	for _, d := range g.Objects() {
		for _, f := range d.Faces() {
			if f.Alpha {
				return true
			}
		}
	}
	return false
}

func (g *SpatialGroup) addObject(d Drawable) {
	g.setState(StateGeomDirty)
	g.session.markBoundsDirty(g)
	g.session.Metrics().groupChange(g.partition.kind, "add")
}

func (g *SpatialGroup) removeObject(d Drawable) {
	g.setState(StateGeomDirty)
	g.session.markBoundsDirty(g)
	g.session.Metrics().groupChange(g.partition.kind, "remove")
}

// DirtyGeom schedules a full rebuild of the draw map.
func (g *SpatialGroup) DirtyGeom() { g.setState(StateGeomDirty) }

// DirtyMesh schedules a rewrite of vertex positions and normals in the
// existing buffers.
func (g *SpatialGroup) DirtyMesh() { g.setState(StateMeshDirty) }

// RebuildMesh rewrites vertex positions and normals of the built faces.
// It falls back to a full rebuild when a face changed shape.
func (g *SpatialGroup) RebuildMesh() {
	if !g.state.Any(StateMeshDirty) {
		return
	}
	g.clearState(StateMeshDirty)
	if g.state.Any(StateGeomDirty) {
		return
	}
	g.partition.geom.RebuildMesh(g)
}

// RebuildGeom regenerates the draw map when it is dirty. A pending mesh
// rewrite is applied first. Calling it on a clean group does nothing.
func (g *SpatialGroup) RebuildGeom() {
	if !g.state.Any(StateGeomDirty | StateAlphaDirty | StateNewDrawInfo) {
		return
	}
	if g.state.Any(StateMeshDirty) {
		g.RebuildMesh()
	}
	g.partition.geom.RebuildGeom(g)
	g.clearState(StateGeomDirty | StateAlphaDirty | StateNewDrawInfo)
	g.builtFrame = g.session.frame
	g.session.Metrics().rebuilt(g.partition.kind)
	if debugAssertions {
		g.session.invariant("draw-map/"+g.handle.String(), g.ValidateDrawMap())
	}
}

// clearDrawMap releases every batch and buffer of the group.
func (g *SpatialGroup) clearDrawMap() {
	for pass := range g.drawMap {
		for _, di := range g.drawMap[pass] {
			g.session.releaseDrawInfo(di)
		}
		g.drawMap[pass] = nil
	}
	for _, b := range g.buffers {
		b.Release()
	}
	g.buffers = nil
	g.faceSlots = nil
	g.geometryBytes = 0
	g.surfaceArea = 0
}

// ChangeLOD reports whether the group should recompute its detail level
// this frame.
func (g *SpatialGroup) ChangeLOD() bool {
	if g.state.Any(StateAlphaDirty | StateObjectDirty | StateGeomDirty) {
		return true
	}
	slop := g.partition.opts.slopRatio
	if slop > 0 {
		ratio := (g.distance - g.lastUpdateDistance) / max(g.lastUpdateDistance, g.radius)
		if ratio < 0 {
			ratio = -ratio
		}
		if ratio >= slop {
			return true
		}
		if g.distance > g.radius*2 {
			return false
		}
	}
	return (g.session.frame+uint64(g.session.opts.lodSeed)+uint64(g.handle.index))%lodRefreshPeriod == 0
}

// UpdateDistance refreshes distance, depth, pixel area and LOD from cam.
// Alpha groups whose view direction changed enough are queued for re-sort.
func (g *SpatialGroup) UpdateDistance(cam Camera) {
	g.lastEye = cam.Origin
	g.lastAt = cam.At
	g.distance = CalcDistance(g, cam)
	g.pixelArea = CalcPixelArea(g, cam)
	g.radius = g.bounds.Radius()
	if g.bounds.IsEmpty() {
		g.radius = g.node.size
	}

	center := g.bounds.Center()
	if g.bounds.IsEmpty() {
		center = g.node.center
	}
	v := center.Sub(cam.Origin)

	if g.partition.kind != KindBridge && !g.state.Any(StateAlphaDirty) && g.HasAlpha() {
		view := v.Normalize()
		if view.Sub(g.lastUpdateViewAngle).LengthSq() > ViewAngleThreshold {
			g.viewAngle = view
			g.lastUpdateViewAngle = view
			g.setState(StateAlphaDirty)
			g.session.queueBuild(g)
		}
	}

	g.depth = v.Sub(cam.At.Mul(0.25 * g.radius)).Dot(cam.At)

	if g.ChangeLOD() {
		o := g.partition.opts
		lod := lodWithHysteresis(g.lod, g.radius, g.distance, o.lodFactor, o.slopRatio)
		g.lastUpdateDistance = g.distance
		if lod != g.lod {
			g.lod = lod
			g.DirtyGeom()
			g.session.queueBuild(g)
		}
	}
}

// updateObjectBounds recomputes the bounds of the node's own drawables.
func (g *SpatialGroup) updateObjectBounds() {
	b := EmptyBox()
	for _, d := range g.Objects() {
		b = b.Union(d.Extents())
	}
	g.objectBounds = b
	g.clearState(StateObjectDirty)
}

// updateSubtreeBounds recomputes the subtree bounds from the node's own
// bounds and its children's.
func (g *SpatialGroup) updateSubtreeBounds() {
	b := g.objectBounds
	for _, c := range g.node.children {
		if c.group != nil {
			b = b.Union(c.group.bounds)
		}
	}
	g.bounds = b
}

// Validate checks the group's structural invariants: every member lies in
// the node's cell and the object bounds cover the members.
func (g *SpatialGroup) Validate() error {
	if g.node == nil {
		return fmt.Errorf("%w: %s", ErrStaleHandle, g.handle)
	}
	var errs []error
	for _, d := range g.node.data {
		if g.node.parent != nil && !g.node.isInside(d.Position()) {
			errs = append(errs, fmt.Errorf("spatial: drawable %s outside node %v", d.ID(), g.node.cell()))
		}
		if !g.state.Any(StateObjectDirty) && !g.objectBounds.ContainsBox(d.Extents()) {
			errs = append(errs, fmt.Errorf("spatial: drawable %s outside object bounds", d.ID()))
		}
	}
	return errors.Join(errs...)
}

// ValidateDrawMap checks every batch against its buffer.
func (g *SpatialGroup) ValidateDrawMap() error {
	var errs []error
	for pass := range g.drawMap {
		for _, di := range g.drawMap[pass] {
			if err := di.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("pass %s: %w", RenderPass(pass), err))
			}
		}
	}
	return errors.Join(errs...)
}
