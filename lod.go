package spatial

import (
	"math"

	"github.com/chewxy/math32"
)

// Distance and LOD constants.
const (
	// NearRampDistance is the distance below which CalcDistance compresses
	// distances quadratically, so near groups sort and refresh finer.
	NearRampDistance = 16
	// ViewAngleThreshold is the squared change of view direction that
	// makes alpha groups re-sort.
	ViewAngleThreshold = 0.64
	// NumLODs is the number of detail levels.
	NumLODs = 4
	// lodRefreshPeriod staggers periodic LOD refreshes across frames when
	// a partition has no slop ratio.
	lodRefreshPeriod = 16
)

// lodThresholds are the projected-size tangents separating detail levels.
var lodThresholds = [NumLODs - 1]float32{0.24, 0.06, 0.03}

// CalcDistance returns the ramped distance from the camera to the center of
// the group's own members. It does not modify the group.
func CalcDistance(g *SpatialGroup, cam Camera) float32 {
	center := g.objectBounds.Center()
	if g.objectBounds.IsEmpty() {
		center = g.node.center
	}
	return rampDistance(center.Sub(cam.Origin).Length())
}

func rampDistance(d float32) float32 {
	if d < NearRampDistance {
		d /= NearRampDistance
		d = d * d * NearRampDistance
	}
	return d
}

// CalcPixelArea returns the projected screen area of the group's bounds.
// HUD partitions report a constant area; particle partitions use the loose
// node radius since particles outgrow their bounds between rebuilds.
func CalcPixelArea(g *SpatialGroup, cam Camera) float32 {
	if g.partition.kind == KindHUD {
		return g.partition.opts.hudPixelArea
	}
	center, radius := g.node.center, Splat(g.node.size).Length()
	if !g.bounds.IsEmpty() {
		center, radius = g.bounds.Center(), g.bounds.HalfSize().Length()
	}
	if g.partition.kind == KindParticle {
		radius = max(radius, 2*g.node.size)
	}
	return pixelArea(radius, center.Sub(cam.Origin).Length(), cam.PixelsPerRadian())
}

func pixelArea(radius, dist, pixelsPerRadian float32) float32 {
	angle := float32(math.Pi / 2)
	if dist > 0 {
		angle = math32.Atan(radius / dist)
	}
	r := angle * pixelsPerRadian
	return math.Pi * r * r
}

// lodAt returns the detail level of an object of the given radius at dist.
// Level 0 is the most detailed.
func lodAt(radius, dist, factor float32) int {
	if dist <= 0 {
		return 0
	}
	tan := factor * radius / dist
	for i, t := range lodThresholds {
		if tan > t {
			return i
		}
	}
	return NumLODs - 1
}

// lodWithHysteresis returns the new level only when the levels at dist and
// at dist widened by slop on both sides agree; otherwise it keeps current.
func lodWithHysteresis(current int, radius, dist, factor, slop float32) int {
	l := lodAt(radius, dist, factor)
	if slop <= 0 {
		return l
	}
	if lodAt(radius, dist*(1-slop), factor) != l || lodAt(radius, dist*(1+slop), factor) != l {
		return current
	}
	return l
}

// LODDrawable is implemented by drawables with per-level faces. Groups
// build level lod from LODFaces instead of Faces.
type LODDrawable interface {
	Drawable
	LODFaces(lod int) []Face
}

// facesAt returns the faces of d for a detail level.
func facesAt(d Drawable, lod int) []Face {
	if ld, ok := d.(LODDrawable); ok {
		return ld.LODFaces(lod)
	}
	return d.Faces()
}
