package spatial

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/gogpu/spatial/gpu"
	"github.com/gogpu/spatial/internal/dirty"
)

// OcclusionOracle reports the result of last frame's occlusion query for a
// group. It is implemented by the renderer that issues the queries.
type OcclusionOracle interface {
	Occluded(h GroupHandle) bool
}

// OcclusionMap is an OcclusionOracle backed by a map of query results.
type OcclusionMap map[GroupHandle]bool

// Occluded returns the recorded result for h.
func (m OcclusionMap) Occluded(h GroupHandle) bool { return m[h] }

// membership records where a drawable is indexed.
type membership struct {
	partition *Partition
	group     GroupHandle
	drawable  Drawable
	pending   bool
}

// Session is the render-session context shared by the partitions of one
// scene. It owns the group table, the drawable membership index, the frame
// counter and the rebuild queues, and guards against freeing groups while a
// frame is being rendered.
//
// A Session and everything attached to it must be used from one goroutine.
type Session struct {
	opts sessionOptions

	groups      groupTable
	members     map[uuid.UUID]*membership
	partitions  []*Partition
	boundsDirty *dirty.Set

	frame     uint64
	nodeCount int

	noDelete         int
	deferredGroups   []*SpatialGroup
	deferredDrawInfo []*DrawInfo
	deferredBridges  []*Bridge

	buildQ1 []GroupHandle
	buildQ2 []GroupHandle

	warned map[string]struct{}
}

// NewSession creates an empty session.
func NewSession(opts ...SessionOption) *Session {
	o := defaultSessionOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.allocator == nil {
		o.allocator = gpu.NewMemoryAllocator()
	}
	return &Session{
		opts:        o,
		members:     make(map[uuid.UUID]*membership),
		boundsDirty: dirty.New(64),
		warned:      make(map[string]struct{}),
	}
}

// Allocator returns the allocator backing vertex buffers.
func (s *Session) Allocator() gpu.Allocator { return s.opts.allocator }

// Metrics returns the metrics sink, or nil.
func (s *Session) Metrics() *Metrics { return s.opts.metrics }

// Frame returns the current frame number.
func (s *Session) Frame() uint64 { return s.frame }

// LODSeed returns the seed staggering periodic LOD refreshes.
func (s *Session) LODSeed() uint32 { return s.opts.lodSeed }

// NodeCount returns the number of live octree nodes across partitions.
func (s *Session) NodeCount() int { return s.nodeCount }

// Partitions returns the partitions of the session.
func (s *Session) Partitions() []*Partition { return s.partitions }

// Group resolves a handle.
func (s *Session) Group(h GroupHandle) (*SpatialGroup, error) {
	g := s.groups.get(h)
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return g, nil
}

// GroupOf returns the group holding d, or nil.
func (s *Session) GroupOf(d Drawable) *SpatialGroup {
	m := s.members[d.ID()]
	if m == nil {
		return nil
	}
	return s.groups.get(m.group)
}

// PartitionOf returns the partition holding d, or nil.
func (s *Session) PartitionOf(d Drawable) *Partition {
	if m := s.members[d.ID()]; m != nil {
		return m.partition
	}
	return nil
}

// NewPartition creates a partition of the given kind attached to the session.
func (s *Session) NewPartition(kind PartitionKind, opts ...PartitionOption) *Partition {
	p := newPartition(s, kind, opts...)
	s.partitions = append(s.partitions, p)
	return p
}

func (s *Session) logger() *slog.Logger { return Logger() }

// warnOnce logs msg at warn level the first time key is seen.
func (s *Session) warnOnce(key, msg string, args ...any) {
	if _, ok := s.warned[key]; ok {
		return
	}
	s.warned[key] = struct{}{}
	s.logger().Warn(msg, args...)
}

// invariant handles an invariant violation: fatal in spatialdebug builds,
// logged once per key otherwise.
func (s *Session) invariant(key string, err error) {
	if err == nil {
		return
	}
	if debugAssertions {
		panic(err)
	}
	s.warnOnce(key, "invariant violated", "err", err)
}

// BeginFrame starts a frame: it checks that the previous frame's render
// maps were consumed, clears the result and advances the frame counter.
func (s *Session) BeginFrame(result *CullResult) {
	if err := result.AssertDrawMapsEmpty(); err != nil {
		s.invariant("render-map", err)
	}
	result.Clear()
	s.frame++
}

// Update applies pending moves and prunes empty nodes in every partition.
// Bridge partitions go first so that their proxies are placed before the
// outer partitions update.
func (s *Session) Update() {
	for _, p := range slices.Clone(s.partitions) {
		if p.bridge != nil && !p.bridge.detached {
			p.Update()
			p.bridge.UpdateSpatialExtents()
		}
	}
	for _, p := range s.partitions {
		if p.bridge == nil {
			p.Update()
		}
	}
}

// Cull culls every top-level partition against cam, then every bridge found
// visible, each in its own frame. It returns the number of nodes traversed.
func (s *Session) Cull(cam Camera, result *CullResult, doOcclusion bool) int {
	nodes := 0
	for _, p := range s.partitions {
		if p.bridge == nil {
			nodes += p.Cull(cam, result, doOcclusion)
		}
	}
	// Bridges culled here may push nested bridges; the bucket grows under us.
	for i := 0; i < result.visibleBridges.n; i++ {
		b := result.visibleBridges.items[i]
		n, err := b.Cull(cam, result, doOcclusion)
		if err != nil {
			s.warnOnce("bridge-cull/"+b.ID().String(), "bridge not culled", "bridge", b.ID(), "err", err)
			continue
		}
		nodes += n
	}
	s.Metrics().visible(len(result.VisibleGroups()))
	s.logger().Debug("cull", "frame", s.frame, "nodes", nodes,
		"visible", len(result.VisibleGroups()), "bridges", len(result.VisibleBridges()))
	return nodes
}

// queueBuild schedules g for rebuild. Groups already queued are skipped.
func (s *Session) queueBuild(g *SpatialGroup) {
	if g.state.Any(StateInBuildQ1 | StateInBuildQ2) {
		return
	}
	g.setState(StateInBuildQ1)
	s.buildQ1 = append(s.buildQ1, g.handle)
}

// BuildQueueLen returns the lengths of the current and deferred queues.
func (s *Session) BuildQueueLen() (q1, q2 int) { return len(s.buildQ1), len(s.buildQ2) }

// ProcessBuildQueue rebuilds queued groups. Groups deferred last frame go
// first; with a build budget, groups over budget are deferred to the next
// frame. It returns the number of groups rebuilt.
func (s *Session) ProcessBuildQueue() int {
	work := append(s.buildQ2, s.buildQ1...)
	s.buildQ1, s.buildQ2 = nil, nil

	built := 0
	var deferred []GroupHandle
	for _, h := range work {
		g := s.groups.get(h)
		if g == nil {
			continue
		}
		g.clearState(StateInBuildQ1 | StateInBuildQ2)
		if s.opts.buildBudget > 0 && built >= s.opts.buildBudget {
			g.setState(StateInBuildQ2)
			deferred = append(deferred, h)
			continue
		}
		if g.state.Any(StateDrawMapDirty) {
			g.RebuildMesh()
			g.RebuildGeom()
			built++
		}
	}
	s.buildQ2 = deferred
	return built
}

// PostSort pushes the draw maps of visible render-by-group groups into the
// result's render maps, then orders alpha content back to front.
func (s *Session) PostSort(result *CullResult) {
	for _, g := range result.VisibleGroups() {
		if !g.partition.opts.renderByGroup {
			continue
		}
		for pass := RenderPass(0); pass < NumRenderPasses; pass++ {
			for _, di := range g.drawMap[pass] {
				result.PushDrawInfo(pass, di)
			}
		}
	}
	result.SortAlphaGroups()
	for pass := RenderPass(0); pass < NumRenderPasses; pass++ {
		if pass.IsAlpha() {
			result.SortRenderMap(pass)
		}
	}
}

// BeginRender raises the no-delete guard: groups, draw infos and bridges
// released until the matching EndRender are kept alive until then.
func (s *Session) BeginRender() { s.noDelete++ }

// EndRender lowers the no-delete guard and frees what was released while it
// was raised.
func (s *Session) EndRender() {
	if s.noDelete == 0 {
		s.invariant("end-render", errors.New("spatial: EndRender without BeginRender"))
		return
	}
	s.noDelete--
	if s.noDelete > 0 {
		return
	}
	groups := s.deferredGroups
	s.deferredGroups = nil
	for _, g := range groups {
		s.destroyGroup(g)
	}
	infos := s.deferredDrawInfo
	s.deferredDrawInfo = nil
	for _, di := range infos {
		di.Release()
	}
	bridges := s.deferredBridges
	s.deferredBridges = nil
	for _, b := range bridges {
		b.destroy()
	}
}

// NoDelete reports whether the no-delete guard is raised.
func (s *Session) NoDelete() bool { return s.noDelete > 0 }

// newGroup creates the group of a new octree node.
func (s *Session) newGroup(p *Partition, n *octreeNode) *SpatialGroup {
	g := &SpatialGroup{
		session:      s,
		partition:    p,
		node:         n,
		state:        StateGeomDirty | StateObjectDirty,
		bounds:       EmptyBox(),
		objectBounds: EmptyBox(),
	}
	if n.parent != nil && n.parent.group != nil {
		g.state |= n.parent.group.state & stateInherit
	}
	g.handle = s.groups.insert(g)
	n.group = g
	s.nodeCount++
	s.markBoundsDirty(g)
	return g
}

// releaseGroup detaches a group from its node and frees it, or defers the
// free while the no-delete guard is raised.
func (s *Session) releaseGroup(g *SpatialGroup) {
	s.nodeCount--
	s.boundsDirty.Unmark(g.handle.Index())
	if s.NoDelete() {
		s.deferredGroups = append(s.deferredGroups, g)
		return
	}
	s.destroyGroup(g)
}

func (s *Session) destroyGroup(g *SpatialGroup) {
	g.clearDrawMap()
	g.node = nil
	s.groups.remove(g.handle)
}

// releaseDrawInfo drops the group's reference on di, deferred while the
// no-delete guard is raised.
func (s *Session) releaseDrawInfo(di *DrawInfo) {
	if s.NoDelete() {
		s.deferredDrawInfo = append(s.deferredDrawInfo, di)
		return
	}
	di.Release()
}

func (s *Session) markBoundsDirty(g *SpatialGroup) {
	g.setState(StateObjectDirty)
	s.boundsDirty.Mark(g.handle.Index())
}

// flushBounds recomputes the bounds of groups whose membership changed and
// of their ancestors.
func (s *Session) flushBounds() {
	if s.boundsDirty.IsEmpty() {
		return
	}
	s.boundsDirty.ForEach(func(i int) {
		g := s.groups.at(i)
		if g == nil || g.node == nil {
			return
		}
		g.updateObjectBounds()
		for n := g.node; n != nil; n = n.parent {
			n.group.updateSubtreeBounds()
		}
	})
	s.boundsDirty.Clear()
}

// removePartition drops p from the session list.
func (s *Session) removePartition(p *Partition) {
	s.partitions = slices.DeleteFunc(s.partitions, func(q *Partition) bool { return q == p })
}

// SessionStats summarizes the session state.
type SessionStats struct {
	Frame      uint64
	Partitions int
	Groups     int
	Nodes      int
	Drawables  int
	BuildQ1    int
	BuildQ2    int
	Deferred   int
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Frame:      s.frame,
		Partitions: len(s.partitions),
		Groups:     s.groups.liveCount(),
		Nodes:      s.nodeCount,
		Drawables:  len(s.members),
		BuildQ1:    len(s.buildQ1),
		BuildQ2:    len(s.buildQ2),
		Deferred:   len(s.deferredGroups) + len(s.deferredDrawInfo) + len(s.deferredBridges),
	}
}
