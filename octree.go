package spatial

import "slices"

// Octree limits.
const (
	// MinNodeSize is the half size below which nodes stop splitting.
	MinNodeSize = 0.5
	// MaxElementRadius is the largest bin radius a partition accepts.
	MaxElementRadius = 4096
	// MaxElementDistance is the farthest a drawable may be from the root
	// center.
	MaxElementDistance = 1024 * 1024

	// rootSize is the initial half size of a root node.
	rootSize = 1
	// centerEpsilon stops splitting when a child center would not differ
	// from its parent's in float32.
	centerEpsilon = 1e-5
)

// octreeNode is a loose octree node. The strict cell is center ± size; a
// node keeps drawables whose bin radius is in (size, 2*size], so their
// extents may reach past the cell.
type octreeNode struct {
	center   Vec3
	size     float32
	parent   *octreeNode
	children []*octreeNode
	data     []Drawable
	group    *SpatialGroup
}

// isInside reports whether p lies in the strict cell, open at the minimum
// corner.
func (n *octreeNode) isInside(p Vec3) bool {
	lo := n.center.Sub(Splat(n.size))
	hi := n.center.Add(Splat(n.size))
	return p.X > lo.X && p.Y > lo.Y && p.Z > lo.Z &&
		p.X <= hi.X && p.Y <= hi.Y && p.Z <= hi.Z
}

// contains reports whether a drawable of the given bin radius belongs to
// this node's size class. The root contains every size.
func (n *octreeNode) contains(radius float32) bool {
	if n.parent == nil {
		return true
	}
	return (radius <= 0.001 && n.size <= 0.001) || (radius > n.size && radius <= 2*n.size)
}

// cell returns the strict bounds of the node.
func (n *octreeNode) cell() Box {
	return BoxFromCenter(n.center, Splat(n.size))
}

func (n *octreeNode) small() bool { return n.size <= MinNodeSize }

func (n *octreeNode) parentFull(capacity int) bool {
	return n.parent != nil && len(n.parent.data) >= capacity
}

// accepts reports whether d stays in n rather than moving to a child.
func (n *octreeNode) accepts(d Drawable, capacity int) bool {
	r := d.BinRadius()
	if (len(n.data) < capacity || n.small()) && (n.contains(r) || n.small()) {
		return true
	}
	return r > n.size && n.parentFull(capacity)
}

// fits reports whether d, already held by n, may stay after a move.
func (n *octreeNode) fits(d Drawable, capacity int) bool {
	if !n.isInside(d.Position()) {
		return false
	}
	r := d.BinRadius()
	return n.contains(r) || n.small() || (r > n.size && n.parentFull(capacity))
}

func (n *octreeNode) childContaining(p Vec3) *octreeNode {
	for _, c := range n.children {
		if c.isInside(p) {
			return c
		}
	}
	return nil
}

func (n *octreeNode) indexOf(d Drawable) int {
	id := d.ID()
	return slices.IndexFunc(n.data, func(e Drawable) bool { return e.ID() == id })
}

func (n *octreeNode) removeData(i int) {
	n.data = slices.Delete(n.data, i, i+1)
}

func (n *octreeNode) removeChild(c *octreeNode) {
	n.children = slices.DeleteFunc(n.children, func(x *octreeNode) bool { return x == c })
}

func (n *octreeNode) isEmpty() bool {
	return len(n.data) == 0 && len(n.children) == 0
}

// pushCenter moves center by size toward p on every axis.
func pushCenter(center Vec3, size float32, p Vec3) Vec3 {
	step := func(c, v float32) float32 {
		if v > c {
			return c + size
		}
		return c - size
	}
	return Vec3{X: step(center.X, p.X), Y: step(center.Y, p.Y), Z: step(center.Z, p.Z)}
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *octreeNode) walk(fn func(*octreeNode) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}

func (n *octreeNode) depth() int {
	d := 0
	for _, c := range n.children {
		d = max(d, c.depth())
	}
	return d + 1
}
