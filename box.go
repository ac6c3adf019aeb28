package spatial

import "github.com/chewxy/math32"

// Box is an axis-aligned bounding box stored as two extent vectors.
type Box struct {
	Min, Max Vec3
}

// EmptyBox returns an inverted box that any Union replaces.
func EmptyBox() Box {
	inf := math32.Inf(1)
	return Box{Min: Splat(inf), Max: Splat(-inf)}
}

// BoxFromCenter returns the box center ± half.
func BoxFromCenter(center, half Vec3) Box {
	return Box{Min: center.Sub(half), Max: center.Add(half)}
}

// IsEmpty reports whether the box is inverted on any axis.
func (b Box) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// IsDegenerate reports whether the box cannot be indexed: a non-finite
// extent, an inverted axis, or zero size on every axis. Flat boxes such as
// a water plane are not degenerate.
func (b Box) IsDegenerate() bool {
	if !b.Min.IsFinite() || !b.Max.IsFinite() || b.IsEmpty() {
		return true
	}
	return b.Min == b.Max
}

// Center returns the center of the box.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfSize returns the half extents of the box.
func (b Box) HalfSize() Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Radius returns the radius of the bounding sphere.
func (b Box) Radius() float32 {
	return b.HalfSize().Length()
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// ExpandPoint returns the box grown to contain p.
func (b Box) ExpandPoint(p Vec3) Box {
	if b.IsEmpty() {
		return Box{Min: p, Max: p}
	}
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Contains reports whether p lies inside or on the box.
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ContainsBox reports whether o lies entirely inside b.
func (b Box) ContainsBox(o Box) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Intersects reports whether the two boxes overlap.
func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Translate returns the box moved by d.
func (b Box) Translate(d Vec3) Box {
	return Box{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Transform returns the axis-aligned box enclosing the eight transformed
// corners of b.
func (b Box) Transform(m Matrix) Box {
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		out = out.ExpandPoint(m.TransformPoint(c))
	}
	return out
}

// IntersectSegment returns the entry parameter t in [0,1] of the segment
// start + t*(end-start) into the box, and whether the segment hits it.
func (b Box) IntersectSegment(start, end Vec3) (float32, bool) {
	dir := end.Sub(start)
	tmin, tmax := float32(0), float32(1)
	for axis := 0; axis < 3; axis++ {
		s, d := start.Axis(axis), dir.Axis(axis)
		lo, hi := b.Min.Axis(axis), b.Max.Axis(axis)
		if math32.Abs(d) < 1e-9 {
			if s < lo || s > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-s)/d, (hi-s)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
