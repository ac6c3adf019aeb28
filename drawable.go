package spatial

import (
	"github.com/google/uuid"

	"github.com/gogpu/spatial/gpu"
)

// Drawable is a scene object indexed by a partition.
//
// The engine only reads drawables. Extents and position are in the frame
// of the partition the drawable is put into: world space for top-level
// partitions, the parent's local space for bridge partitions.
type Drawable interface {
	// ID identifies the drawable across partitions of a session.
	ID() uuid.UUID
	// Position is the point used to place the drawable in the octree.
	// It must lie inside Extents.
	Position() Vec3
	// Extents is the bounding box of the drawable.
	Extents() Box
	// BinRadius is the size class used by the octree, normally the largest
	// half extent.
	BinRadius() float32
	// Faces returns the renderable faces.
	Faces() []Face
}

// Transformer is implemented by drawables that carry a world transform.
// Bridges read it to move the camera into their local frame.
type Transformer interface {
	WorldMatrix() Matrix
}

// Vertex is one vertex of a face.
type Vertex struct {
	Position Vec3
	Normal   Vec3
	UV       [2]float32
	Color    [4]float32
}

// Face is a renderable surface of a drawable: an indexed triangle list
// with a single texture and material.
type Face struct {
	Vertices []Vertex
	Indices  []uint16

	Texture       gpu.TextureID
	TextureMatrix *Matrix
	Material      *Material

	Fullbright bool
	Bump       uint8
	Shiny      bool
	// Glow is the emissive intensity in [0,1]; zero means no glow pass.
	Glow float32
	// Alpha marks a blended face drawn back to front.
	Alpha bool
	// Invisible faces write depth only.
	Invisible bool
}

// Extents returns the bounding box of the face vertices.
func (f *Face) Extents() Box {
	b := EmptyBox()
	for i := range f.Vertices {
		b = b.ExpandPoint(f.Vertices[i].Position)
	}
	return b
}

// BasicDrawable is a plain Drawable implementation with static data.
type BasicDrawable struct {
	id       uuid.UUID
	position Vec3
	extents  Box
	faces    []Face
	world    Matrix
}

// NewBasicDrawable creates a drawable with a fresh id. The extents are the
// union of the faces' extents, or a unit box around position when there are
// no faces.
func NewBasicDrawable(position Vec3, faces ...Face) *BasicDrawable {
	d := &BasicDrawable{id: uuid.New(), position: position, faces: faces, world: Translate(position)}
	d.extents = EmptyBox()
	for i := range faces {
		d.extents = d.extents.Union(faces[i].Extents())
	}
	if d.extents.IsEmpty() {
		d.extents = BoxFromCenter(position, Splat(0.5))
	}
	return d
}

// NewBoxDrawable creates a face-less drawable with the given extents.
func NewBoxDrawable(extents Box) *BasicDrawable {
	return &BasicDrawable{id: uuid.New(), position: extents.Center(), extents: extents, world: Translate(extents.Center())}
}

// ID returns the drawable id.
func (d *BasicDrawable) ID() uuid.UUID { return d.id }

// Position returns the placement point.
func (d *BasicDrawable) Position() Vec3 { return d.position }

// Extents returns the bounding box.
func (d *BasicDrawable) Extents() Box { return d.extents }

// BinRadius returns the largest half extent.
func (d *BasicDrawable) BinRadius() float32 { return d.extents.HalfSize().MaxComponent() }

// Faces returns the faces.
func (d *BasicDrawable) Faces() []Face { return d.faces }

// WorldMatrix returns the drawable's world transform.
func (d *BasicDrawable) WorldMatrix() Matrix { return d.world }

// SetWorldMatrix replaces the world transform.
func (d *BasicDrawable) SetWorldMatrix(m Matrix) { d.world = m }

// MoveTo translates the drawable so that its position becomes p.
func (d *BasicDrawable) MoveTo(p Vec3) {
	delta := p.Sub(d.position)
	d.position = p
	d.extents = d.extents.Translate(delta)
	for i := range d.faces {
		for j := range d.faces[i].Vertices {
			d.faces[i].Vertices[j].Position = d.faces[i].Vertices[j].Position.Add(delta)
		}
	}
	d.world.T = d.world.T.Add(delta)
}
