package spatial

import (
	"cmp"
	"fmt"
	"slices"
)

// bucket is an append-only list that keeps its storage across frames.
type bucket[T any] struct {
	items []T
	n     int
}

func (b *bucket[T]) push(v T) {
	if b.n == len(b.items) {
		grown := make([]T, max(2*len(b.items), 8))
		copy(grown, b.items)
		b.items = grown
	}
	b.items[b.n] = v
	b.n++
}

func (b *bucket[T]) clear() {
	var zero T
	for i := range b.items[:b.n] {
		b.items[i] = zero
	}
	b.n = 0
}

func (b *bucket[T]) slice() []T { return b.items[:b.n] }

// CullResult collects the output of one frame's cull: visible groups and
// drawables, alpha and occlusion candidates, visible bridges and one render
// map of draw batches per pass.
//
// Render maps hold a reference on every DrawInfo pushed until the next
// Clear, so a batch replaced by a rebuild mid-frame is still drawn.
//
// Storage is kept across Clear, so a result reused every frame stops
// allocating once it reaches the scene's working set.
type CullResult struct {
	visibleGroups    bucket[*SpatialGroup]
	alphaGroups      bucket[*SpatialGroup]
	occlusionGroups  bucket[*SpatialGroup]
	drawableGroups   bucket[*SpatialGroup]
	visibleDrawables bucket[Drawable]
	visibleBridges   bucket[*Bridge]

	renderMap [NumRenderPasses]bucket[*DrawInfo]
	consumed  [NumRenderPasses]bool
}

// NewCullResult returns an empty result.
func NewCullResult() *CullResult { return &CullResult{} }

// Clear empties every bucket, keeping capacity, and drops the render maps'
// references.
func (r *CullResult) Clear() {
	r.visibleGroups.clear()
	r.alphaGroups.clear()
	r.occlusionGroups.clear()
	r.drawableGroups.clear()
	r.visibleDrawables.clear()
	r.visibleBridges.clear()
	for i := range r.renderMap {
		for _, di := range r.renderMap[i].slice() {
			if di != nil {
				di.Release()
			}
		}
		r.renderMap[i].clear()
		r.consumed[i] = false
	}
}

func (r *CullResult) PushVisibleGroup(g *SpatialGroup)   { r.visibleGroups.push(g) }
func (r *CullResult) PushAlphaGroup(g *SpatialGroup)     { r.alphaGroups.push(g) }
func (r *CullResult) PushOcclusionGroup(g *SpatialGroup) { r.occlusionGroups.push(g) }
func (r *CullResult) PushDrawableGroup(g *SpatialGroup)  { r.drawableGroups.push(g) }
func (r *CullResult) PushVisibleDrawable(d Drawable)     { r.visibleDrawables.push(d) }
func (r *CullResult) PushBridge(b *Bridge)               { r.visibleBridges.push(b) }

// PushDrawInfo appends di to the render map of pass and retains it until
// Clear.
func (r *CullResult) PushDrawInfo(pass RenderPass, di *DrawInfo) {
	if di != nil {
		di.Retain()
	}
	r.renderMap[pass].push(di)
	r.consumed[pass] = false
}

// VisibleGroups returns the groups found visible this frame.
func (r *CullResult) VisibleGroups() []*SpatialGroup { return r.visibleGroups.slice() }

// AlphaGroups returns the visible groups with alpha content.
func (r *CullResult) AlphaGroups() []*SpatialGroup { return r.alphaGroups.slice() }

// OcclusionGroups returns the groups that need an occlusion query.
func (r *CullResult) OcclusionGroups() []*SpatialGroup { return r.occlusionGroups.slice() }

// DrawableGroups returns visible groups of partitions not rendered by group.
func (r *CullResult) DrawableGroups() []*SpatialGroup { return r.drawableGroups.slice() }

// VisibleDrawables returns the members of DrawableGroups.
func (r *CullResult) VisibleDrawables() []Drawable { return r.visibleDrawables.slice() }

// VisibleBridges returns the bridges whose proxies were found visible.
func (r *CullResult) VisibleBridges() []*Bridge { return r.visibleBridges.slice() }

// RenderMap returns the batches pushed for pass.
func (r *CullResult) RenderMap(pass RenderPass) []*DrawInfo { return r.renderMap[pass].slice() }

// ConsumeRenderMap marks the render map of pass as drawn and returns it.
func (r *CullResult) ConsumeRenderMap(pass RenderPass) []*DrawInfo {
	r.consumed[pass] = true
	return r.renderMap[pass].slice()
}

// AssertDrawMapsEmpty reports render maps that received batches which were
// never consumed.
func (r *CullResult) AssertDrawMapsEmpty() error {
	var pending []string
	for pass := range r.renderMap {
		if r.renderMap[pass].n > 0 && !r.consumed[pass] {
			pending = append(pending, fmt.Sprintf("%s(%d)", RenderPass(pass), r.renderMap[pass].n))
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %v", ErrRenderMapNotEmpty, pending)
	}
	return nil
}

// SortAlphaGroups orders alpha groups back to front by view depth.
func (r *CullResult) SortAlphaGroups() {
	slices.SortStableFunc(r.alphaGroups.slice(), func(a, b *SpatialGroup) int {
		return cmp.Compare(b.depth, a.depth)
	})
}

// SortRenderMap sorts the render map of pass with the pass's policy.
func (r *CullResult) SortRenderMap(pass RenderPass) {
	SortDrawInfo(r.renderMap[pass].slice(), pass.SortPolicy())
}

// CullResultCapacity reports the allocated sizes of the buckets.
type CullResultCapacity struct {
	VisibleGroups    int
	AlphaGroups      int
	OcclusionGroups  int
	DrawableGroups   int
	VisibleDrawables int
	VisibleBridges   int
	RenderMap        [NumRenderPasses]int
}

// Capacity returns the bucket capacities.
func (r *CullResult) Capacity() CullResultCapacity {
	c := CullResultCapacity{
		VisibleGroups:    len(r.visibleGroups.items),
		AlphaGroups:      len(r.alphaGroups.items),
		OcclusionGroups:  len(r.occlusionGroups.items),
		DrawableGroups:   len(r.drawableGroups.items),
		VisibleDrawables: len(r.visibleDrawables.items),
		VisibleBridges:   len(r.visibleBridges.items),
	}
	for i := range r.renderMap {
		c.RenderMap[i] = len(r.renderMap[i].items)
	}
	return c
}
