package spatial

import (
	"fmt"
	"slices"
)

// Partition is a loose octree over the drawables of one geometry category.
//
// Every drawable is indexed by at most one partition of a session. Put,
// Remove and Move keep the session's membership index in step with the
// tree; Move transfers drawables between partitions.
type Partition struct {
	session *Session
	kind    PartitionKind
	geom    GeometryManager
	opts    partitionOptions

	root      *octreeNode
	drawables int
	pending   []Drawable

	// bridge is set when the partition holds a bridge's content.
	bridge *Bridge
}

func newPartition(s *Session, kind PartitionKind, opts ...PartitionOption) *Partition {
	o := defaultPartitionOptions(kind)
	for _, opt := range opts {
		opt(&o)
	}
	p := &Partition{
		session: s,
		kind:    kind,
		geom:    newGeometryManager(kind),
		opts:    o,
	}
	p.root = &octreeNode{size: rootSize}
	s.newGroup(p, p.root)
	return p
}

// Kind returns the geometry category of the partition.
func (p *Partition) Kind() PartitionKind { return p.kind }

// Session returns the owning session.
func (p *Partition) Session() *Session { return p.session }

// GeometryManager returns the manager that builds the partition's batches.
func (p *Partition) GeometryManager() GeometryManager { return p.geom }

// RenderByGroup reports whether groups contribute draw maps to cull results.
func (p *Partition) RenderByGroup() bool { return p.opts.renderByGroup }

// InfiniteFarClip reports whether cull ignores the far plane.
func (p *Partition) InfiniteFarClip() bool { return p.opts.infiniteFarClip }

// DepthMask reports whether alpha batches of the partition write depth.
func (p *Partition) DepthMask() bool { return p.opts.depthMask }

// SlopRatio returns the LOD hysteresis ratio.
func (p *Partition) SlopRatio() float32 { return p.opts.slopRatio }

// Bridge returns the bridge owning the partition, or nil.
func (p *Partition) Bridge() *Bridge { return p.bridge }

// Root returns the group of the root node.
func (p *Partition) Root() *SpatialGroup { return p.root.group }

// Len returns the number of drawables in the partition.
func (p *Partition) Len() int { return p.drawables }

// Put inserts d and returns the group it landed in. It returns nil, and the
// drawable stays invisible, when d has degenerate extents, is out of range
// or belongs to another partition. Putting a drawable twice returns its
// current group.
//
// wasVisible clears the occlusion state of the receiving group so that an
// object that was on screen does not vanish for a frame.
func (p *Partition) Put(d Drawable, wasVisible bool) *SpatialGroup {
	g, err := p.put(d, wasVisible)
	if err != nil {
		p.session.logger().Warn("drawable not indexed",
			"id", d.ID(), "partition", p.kind.String(), "err", err)
		p.session.Metrics().refused(p.kind, err)
		return nil
	}
	return g
}

func (p *Partition) put(d Drawable, wasVisible bool) (*SpatialGroup, error) {
	s := p.session
	if m := s.members[d.ID()]; m != nil {
		if m.partition != p {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyPartitioned, m.partition.kind)
		}
		return s.groups.get(m.group), nil
	}
	ext := d.Extents()
	pos := d.Position()
	if ext.IsDegenerate() || !pos.IsFinite() {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateExtents, ext)
	}
	r := d.BinRadius()
	if !finite(r) || r < 0 || r > MaxElementRadius {
		return nil, fmt.Errorf("%w: bin radius %g", ErrOutOfRange, r)
	}
	if pos.Sub(p.root.center).Length() > MaxElementDistance {
		return nil, fmt.Errorf("%w: position %v", ErrOutOfRange, pos)
	}
	for !p.root.isInside(pos) {
		p.growRoot(pos)
	}

	n := p.insert(p.root, d)
	g := n.group
	g.addObject(d)
	if wasVisible {
		g.clearState(StateOccluded)
	}
	s.members[d.ID()] = &membership{partition: p, group: g.handle, drawable: d}
	p.drawables++
	return g, nil
}

// growRoot doubles the root toward p. The old root's children move under a
// new child that takes the root's former cell.
func (p *Partition) growRoot(pos Vec3) {
	root := p.root
	oldCenter, oldSize := root.center, root.size
	children := root.children

	root.center = pushCenter(oldCenter, oldSize, pos)
	root.size = oldSize * 2
	root.children = nil

	if len(children) == 0 {
		return
	}
	wrap := &octreeNode{center: oldCenter, size: oldSize, parent: root}
	root.children = []*octreeNode{wrap}
	p.session.newGroup(p, wrap)
	for _, c := range children {
		c.parent = wrap
		wrap.children = append(wrap.children, c)
	}
}

// insert places d at or below n and returns the receiving node.
func (p *Partition) insert(n *octreeNode, d Drawable) *octreeNode {
	pos := d.Position()
	for {
		if n.accepts(d, p.opts.capacity) {
			n.data = append(n.data, d)
			return n
		}
		next := n.childContaining(pos)
		if next == nil {
			half := n.size * 0.5
			center := pushCenter(n.center, half, pos)
			if center.Sub(n.center).Abs().MaxComponent() < centerEpsilon {
				n.data = append(n.data, d)
				return n
			}
			next = &octreeNode{center: center, size: half, parent: n}
			n.children = append(n.children, next)
			p.session.newGroup(p, next)
		}
		n = next
	}
}

// Remove detaches d. When group is non-nil it must be the group holding d.
// The group is kept even if it becomes empty; Update prunes it later.
func (p *Partition) Remove(d Drawable, group *SpatialGroup) bool {
	s := p.session
	m := s.members[d.ID()]
	if m == nil || m.partition != p {
		s.logger().Debug("remove of drawable not in partition", "id", d.ID(), "partition", p.kind.String())
		return false
	}
	g := s.groups.get(m.group)
	if g == nil {
		s.invariant("remove-stale/"+d.ID().String(), fmt.Errorf("%w: member %s", ErrStaleHandle, d.ID()))
		delete(s.members, d.ID())
		return false
	}
	if group != nil && group != g {
		s.logger().Warn("remove from wrong group", "id", d.ID(), "err", ErrNotMember,
			"want", group.handle.String(), "have", g.handle.String())
		return false
	}
	i := g.node.indexOf(d)
	if i < 0 {
		s.invariant("remove-missing/"+d.ID().String(), fmt.Errorf("%w: %s", ErrNotMember, d.ID()))
		return false
	}
	g.node.removeData(i)
	g.removeObject(d)
	delete(s.members, d.ID())
	if m.pending {
		p.pending = slices.DeleteFunc(p.pending, func(e Drawable) bool { return e.ID() == d.ID() })
	}
	p.drawables--
	return true
}

// Move updates the position of d. When d still fits the node holding it,
// nothing moves and the group only refreshes bounds and vertex positions.
// Otherwise d is reinserted, immediately or at the next Update. A drawable
// held by another partition is transferred to this one; one held by none is
// put.
func (p *Partition) Move(d Drawable, group *SpatialGroup, immediate bool) {
	s := p.session
	m := s.members[d.ID()]
	if m == nil {
		p.Put(d, true)
		return
	}
	if m.partition != p {
		m.partition.Remove(d, nil)
		p.Put(d, true)
		return
	}
	g := s.groups.get(m.group)
	if group != nil && group != g {
		s.logger().Debug("move with stale group", "id", d.ID())
	}
	if g.node.fits(d, p.opts.capacity) {
		s.markBoundsDirty(g)
		g.DirtyMesh()
		return
	}
	if immediate {
		p.reinsert(d)
		return
	}
	if !m.pending {
		m.pending = true
		p.pending = append(p.pending, d)
	}
}

func (p *Partition) reinsert(d Drawable) {
	if p.Remove(d, nil) {
		p.Put(d, true)
	}
}

// Pending returns the number of deferred moves.
func (p *Partition) Pending() int { return len(p.pending) }

// Update applies deferred moves, prunes empty nodes unless the no-delete
// guard is raised, and refreshes stale bounds.
func (p *Partition) Update() {
	s := p.session
	if len(p.pending) > 0 {
		pending := p.pending
		p.pending = nil
		for _, d := range pending {
			m := s.members[d.ID()]
			if m == nil || m.partition != p {
				continue
			}
			m.pending = false
			if g := s.groups.get(m.group); g != nil && g.node.fits(d, p.opts.capacity) {
				s.markBoundsDirty(g)
				g.DirtyMesh()
				continue
			}
			p.reinsert(d)
		}
	}
	if !s.NoDelete() {
		p.prune(p.root)
	}
	s.flushBounds()
}

// prune removes empty leaf nodes below n.
func (p *Partition) prune(n *octreeNode) {
	for i := len(n.children) - 1; i >= 0; i-- {
		c := n.children[i]
		p.prune(c)
		if c.isEmpty() {
			n.removeChild(c)
			p.session.releaseGroup(c.group)
			c.group = nil
			c.parent = nil
			p.session.markBoundsDirty(n.group)
		}
	}
}

// Shift translates the tree by offset, for example when the scene origin is
// re-centered. Every group is marked for rebuild since its buffers hold
// positions in the old frame.
func (p *Partition) Shift(offset Vec3) {
	p.root.walk(func(n *octreeNode) bool {
		n.center = n.center.Add(offset)
		g := n.group
		if !g.bounds.IsEmpty() {
			g.bounds = g.bounds.Translate(offset)
		}
		if !g.objectBounds.IsEmpty() {
			g.objectBounds = g.objectBounds.Translate(offset)
		}
		g.DirtyGeom()
		p.session.markBoundsDirty(g)
		return true
	})
}

// ForEachGroup calls fn for every group, parents before children, until fn
// returns false.
func (p *Partition) ForEachGroup(fn func(*SpatialGroup) bool) {
	stop := false
	p.root.walk(func(n *octreeNode) bool {
		if stop {
			return false
		}
		if !fn(n.group) {
			stop = true
			return false
		}
		return true
	})
}

// Contains reports whether d is indexed by p.
func (p *Partition) Contains(d Drawable) bool {
	m := p.session.members[d.ID()]
	return m != nil && m.partition == p
}

// LineSegmentIntersect returns the drawable whose extents the segment from
// start to end enters first, with the entry parameter in [0,1].
func (p *Partition) LineSegmentIntersect(start, end Vec3) (Drawable, float32, bool) {
	p.session.flushBounds()
	var (
		best  Drawable
		bestT float32 = 2
	)
	p.root.walk(func(n *octreeNode) bool {
		t, ok := n.group.bounds.IntersectSegment(start, end)
		if !ok || t > bestT {
			return false
		}
		for _, d := range n.data {
			if t, ok := d.Extents().IntersectSegment(start, end); ok && t < bestT {
				best, bestT = d, t
			}
		}
		return true
	})
	return best, bestT, best != nil
}

// Destroy removes every drawable and frees every group. Frees are deferred
// while the no-delete guard is raised.
func (p *Partition) Destroy() {
	s := p.session
	p.root.walk(func(n *octreeNode) bool {
		for _, d := range n.data {
			delete(s.members, d.ID())
		}
		n.data = nil
		return true
	})
	var release func(n *octreeNode)
	release = func(n *octreeNode) {
		for _, c := range n.children {
			release(c)
		}
		s.releaseGroup(n.group)
		n.children = nil
	}
	release(p.root)
	p.pending = nil
	p.drawables = 0
	s.removePartition(p)
}

// PartitionStats summarizes a partition.
type PartitionStats struct {
	Kind      PartitionKind
	Nodes     int
	Drawables int
	Depth     int
	Pending   int
	RootSize  float32
}

// Stats returns a snapshot of the partition counters.
func (p *Partition) Stats() PartitionStats {
	nodes := 0
	p.root.walk(func(*octreeNode) bool { nodes++; return true })
	return PartitionStats{
		Kind:      p.kind,
		Nodes:     nodes,
		Drawables: p.drawables,
		Depth:     p.root.depth(),
		Pending:   len(p.pending),
		RootSize:  p.root.size,
	}
}
