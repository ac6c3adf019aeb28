package spatial

import (
	"math"

	"github.com/chewxy/math32"
)

// Camera describes a perspective viewpoint.
//
// The frame is Z-up: At points forward, Left to the left and Up = At × Left.
// FOV is the vertical field of view in radians and ViewHeight the viewport
// height in pixels, which together convert angles to pixel sizes.
type Camera struct {
	Origin     Vec3
	At         Vec3
	Left       Vec3
	Up         Vec3
	FOV        float32
	Aspect     float32
	Near       float32
	Far        float32
	ViewHeight float32
}

// Default camera parameters.
const (
	DefaultFOV        = math.Pi / 3
	DefaultNear       = 0.1
	DefaultFar        = 512
	DefaultViewHeight = 768
)

// NewCamera returns a camera at the origin looking down +X with default
// projection parameters and a 4:3 viewport.
func NewCamera() Camera {
	return Camera{
		At:         V3(1, 0, 0),
		Left:       V3(0, 1, 0),
		Up:         V3(0, 0, 1),
		FOV:        DefaultFOV,
		Aspect:     4.0 / 3.0,
		Near:       DefaultNear,
		Far:        DefaultFar,
		ViewHeight: DefaultViewHeight,
	}
}

// LookAt places the camera at origin facing target. up is a hint; it only
// needs to be non-parallel to the view direction.
func (c *Camera) LookAt(origin, target, up Vec3) {
	at := target.Sub(origin).Normalize()
	if at.IsZero() {
		at = V3(1, 0, 0)
	}
	left := up.Cross(at).Normalize()
	if left.IsZero() {
		left = V3(0, 0, 1).Cross(at).Normalize()
		if left.IsZero() {
			left = V3(0, 1, 0)
		}
	}
	c.Origin = origin
	c.At = at
	c.Left = left
	c.Up = at.Cross(left)
}

// PixelsPerRadian returns the number of viewport pixels per radian of
// vertical view angle.
func (c Camera) PixelsPerRadian() float32 {
	if c.FOV <= 0 {
		return 0
	}
	return c.ViewHeight / c.FOV
}

// Transformed returns the camera expressed through m: the origin is
// transformed as a point and the axes as directions.
func (c Camera) Transformed(m Matrix) Camera {
	out := c
	out.Origin = m.TransformPoint(c.Origin)
	out.At = m.TransformVector(c.At).Normalize()
	out.Left = m.TransformVector(c.Left).Normalize()
	out.Up = m.TransformVector(c.Up).Normalize()
	return out
}

// Frustum builds the six clip planes of the camera.
func (c Camera) Frustum() Frustum {
	tanV := math32.Tan(c.FOV * 0.5)
	tanH := tanV * c.Aspect

	var f Frustum
	f.Planes[PlaneLeft] = planeThrough(c.At.Mul(tanH).Sub(c.Left), c.Origin)
	f.Planes[PlaneRight] = planeThrough(c.At.Mul(tanH).Add(c.Left), c.Origin)
	f.Planes[PlaneBottom] = planeThrough(c.At.Mul(tanV).Add(c.Up), c.Origin)
	f.Planes[PlaneTop] = planeThrough(c.At.Mul(tanV).Sub(c.Up), c.Origin)
	f.Planes[PlaneNear] = Plane{Normal: c.At, D: -(c.At.Dot(c.Origin) + c.Near)}
	f.Planes[PlaneFar] = Plane{Normal: c.At.Neg(), D: c.At.Dot(c.Origin) + c.Far}
	return f
}

func planeThrough(normal, point Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, D: -n.Dot(point)}
}

// Plane is a half-space: Normal·p + D >= 0 on the inside.
type Plane struct {
	Normal Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
func (p Plane) DistanceTo(pt Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum plane indices.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Frustum holds the six clip planes of a view frustum.
type Frustum struct {
	Planes [6]Plane
}

// Containment is the result of a frustum test.
type Containment uint8

const (
	// Outside means the volume is entirely outside the frustum.
	Outside Containment = iota
	// Intersecting means the volume straddles at least one plane.
	Intersecting
	// Inside means the volume is entirely inside the frustum.
	Inside
)

// String returns the containment name.
func (c Containment) String() string {
	switch c {
	case Outside:
		return "Outside"
	case Intersecting:
		return "Intersecting"
	case Inside:
		return "Inside"
	default:
		return "Unknown"
	}
}

// ClassifyBox tests an axis-aligned box against the frustum. When ignoreFar
// is set the far plane is skipped.
func (f *Frustum) ClassifyBox(b Box, ignoreFar bool) Containment {
	result := Inside
	for i := range f.Planes {
		if ignoreFar && i == PlaneFar {
			continue
		}
		p := f.Planes[i]
		pos, neg := b.Max, b.Min
		if p.Normal.X < 0 {
			pos.X, neg.X = b.Min.X, b.Max.X
		}
		if p.Normal.Y < 0 {
			pos.Y, neg.Y = b.Min.Y, b.Max.Y
		}
		if p.Normal.Z < 0 {
			pos.Z, neg.Z = b.Min.Z, b.Max.Z
		}
		if p.DistanceTo(pos) < 0 {
			return Outside
		}
		if p.DistanceTo(neg) < 0 {
			result = Intersecting
		}
	}
	return result
}

// ContainsPoint reports whether pt is inside every plane.
func (f *Frustum) ContainsPoint(pt Vec3, ignoreFar bool) bool {
	for i := range f.Planes {
		if ignoreFar && i == PlaneFar {
			continue
		}
		if f.Planes[i].DistanceTo(pt) < 0 {
			return false
		}
	}
	return true
}
