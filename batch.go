package spatial

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/spatial/gpu"
)

// Face validation errors.
var (
	errEmptyFace    = errors.New("face has no vertices or indices")
	errFaceTooLarge = errors.New("face exceeds the 16-bit index range")
	errFaceIndex    = errors.New("face index out of range")
)

// Attribute sets rewritten in place.
const (
	meshAttributes = gpu.AttribPosition | gpu.AttribNormal
	allAttributes  = gpu.AttributeMask(0xff)
)

// faceRef is a face scheduled for batching.
type faceRef struct {
	drawable Drawable
	index    int
	face     *Face
	pass     RenderPass
	distance float32
	key      batchKey
}

// chunk is one vertex buffer worth of faces.
type chunk struct {
	faces    []*faceRef
	vertices int
	indices  int
}

func faceUsable(f *Face) error {
	if len(f.Vertices) == 0 || len(f.Indices) == 0 {
		return errEmptyFace
	}
	if len(f.Vertices) > gpu.MaxIndexedVertices {
		return fmt.Errorf("%w: %d vertices", errFaceTooLarge, len(f.Vertices))
	}
	for _, idx := range f.Indices {
		if int(idx) >= len(f.Vertices) {
			return fmt.Errorf("%w: %d of %d", errFaceIndex, idx, len(f.Vertices))
		}
	}
	return nil
}

func blendFor(pass RenderPass) BlendFunc {
	if pass.IsAlpha() {
		return BlendAlpha
	}
	return BlendReplace
}

func faceKey(f *Face, pass RenderPass, mask gpu.AttributeMask) batchKey {
	return batchKey{
		texture:    f.Texture,
		material:   f.Material,
		shaderMask: f.Material.ShaderMask(),
		fullbright: f.Fullbright,
		bump:       f.Bump,
		shiny:      f.Shiny,
		glow:       f.Glow > 0 && mask.Has(gpu.AttribEmissive),
		blend:      blendFor(pass),
		texMatrix:  f.TextureMatrix,
	}
}

// faceDistance is the view depth of the face center, or its distance from
// the eye when the group has not seen a camera yet.
func (g *SpatialGroup) faceDistance(f *Face) float32 {
	v := f.Extents().Center().Sub(g.lastEye)
	if g.lastAt.IsZero() {
		return v.Length()
	}
	return v.Dot(g.lastAt)
}

// collectFaces gathers the usable faces of the group's drawables grouped by
// pass, in draw order.
func collectFaces(g *SpatialGroup, classify func(*Face) RenderPass) [NumRenderPasses][]*faceRef {
	var byPass [NumRenderPasses][]*faceRef
	mask := g.partition.opts.vertexMask
	for _, d := range g.Objects() {
		faces := facesAt(d, g.lod)
		for i := range faces {
			f := &faces[i]
			if err := faceUsable(f); err != nil {
				if !errors.Is(err, errEmptyFace) {
					g.session.warnOnce(fmt.Sprintf("face/%s/%d", d.ID(), i), "face skipped",
						"drawable", d.ID(), "face", i, "err", err)
				}
				continue
			}
			pass := classify(f)
			byPass[pass] = append(byPass[pass], &faceRef{
				drawable: d,
				index:    i,
				face:     f,
				pass:     pass,
				distance: g.faceDistance(f),
				key:      faceKey(f, pass, mask),
			})
		}
	}
	for pass := range byPass {
		refs := byPass[pass]
		if RenderPass(pass).IsAlpha() {
			slices.SortStableFunc(refs, func(a, b *faceRef) int { return cmp.Compare(b.distance, a.distance) })
			continue
		}
		// Keep faces of one batch key adjacent, in order of first appearance.
		first := make(map[batchKey]int, len(refs))
		for i, r := range refs {
			if _, ok := first[r.key]; !ok {
				first[r.key] = i
			}
		}
		slices.SortStableFunc(refs, func(a, b *faceRef) int { return first[a.key] - first[b.key] })
	}
	return byPass
}

// chunkFaces splits faces into buffers of at most gpu.MaxIndexedVertices
// vertices.
func chunkFaces(byPass [NumRenderPasses][]*faceRef) []chunk {
	var chunks []chunk
	cur := chunk{}
	for pass := range byPass {
		for _, r := range byPass[pass] {
			n := len(r.face.Vertices)
			if cur.vertices+n > gpu.MaxIndexedVertices {
				chunks = append(chunks, cur)
				cur = chunk{}
			}
			cur.faces = append(cur.faces, r)
			cur.vertices += n
			cur.indices += len(r.face.Indices)
		}
	}
	if len(cur.faces) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

// buildDrawMap regenerates the group's buffers and draw map from its faces.
func buildDrawMap(g *SpatialGroup, classify func(*Face) RenderPass) {
	g.clearDrawMap()
	s := g.session
	o := g.partition.opts
	chunks := chunkFaces(collectFaces(g, classify))

	for ci, c := range chunks {
		label := fmt.Sprintf("%s/%s/%d", g.partition.kind, g.handle, ci)
		buf, err := gpu.NewVertexBuffer(s.Allocator(), label, o.vertexMask, o.bufferUsage, c.vertices, c.indices)
		if err != nil {
			s.warnOnce("alloc/"+label, "vertex buffer not allocated", "label", label, "err", err)
			s.Metrics().skipped(reasonAllocation)
			continue
		}

		var cur *DrawInfo
		var curPass RenderPass
		vbase, ibase := 0, 0
		for _, r := range c.faces {
			f := r.face
			writeVertices(buf, vbase, f, allAttributes)
			for k, idx := range f.Indices {
				buf.SetIndex(ibase+k, uint16(vbase+int(idx)))
			}
			g.faceSlots = append(g.faceSlots, faceSlot{
				drawable: r.drawable,
				face:     r.index,
				buf:      buf,
				base:     vbase,
				count:    len(f.Vertices),
			})
			g.surfaceArea += faceArea(f)

			start, end := uint32(vbase), uint32(vbase+len(f.Vertices)-1)
			if cur != nil && curPass == r.pass && cur.batchKey() == r.key {
				cur.Start = min(cur.Start, start)
				cur.End = max(cur.End, end)
				cur.Count += uint32(len(f.Indices))
				cur.Extents = cur.Extents.Union(f.Extents())
				if r.key.glow {
					cur.Glow = max(cur.Glow, f.Glow)
				}
			} else {
				cur = newFaceDrawInfo(g, buf, r, start, end, uint32(ibase))
				curPass = r.pass
				g.drawMap[r.pass] = append(g.drawMap[r.pass], cur)
			}
			vbase += len(f.Vertices)
			ibase += len(f.Indices)
		}

		if err := buf.Flush(); err != nil {
			s.warnOnce("flush/"+label, "vertex buffer not uploaded", "label", label, "err", err)
		}
		g.buffers = append(g.buffers, buf)
		g.geometryBytes += uint64(c.vertices)*o.vertexMask.Stride() + uint64(c.indices)*2
	}

	for pass := range g.drawMap {
		SortDrawInfo(g.drawMap[pass], RenderPass(pass).SortPolicy())
	}
}

func newFaceDrawInfo(g *SpatialGroup, buf *gpu.VertexBuffer, r *faceRef, start, end, offset uint32) *DrawInfo {
	f := r.face
	di := newDrawInfo(buf, start, end, uint32(len(f.Indices)), offset)
	di.Texture = f.Texture
	di.TextureList = []gpu.TextureID{f.Texture, gpu.InvalidTexture, gpu.InvalidTexture}
	if f.Material != nil {
		di.TextureList[1] = f.Material.NormalMap
		di.TextureList[2] = f.Material.SpecularMap
	}
	di.Material = f.Material
	di.ShaderMask = r.key.shaderMask
	di.Blend = r.key.blend
	di.TextureMatrix = f.TextureMatrix
	if b := g.partition.bridge; b != nil && !b.detached {
		di.ModelMatrix = &b.model
	}
	di.Group = g.handle
	di.Extents = f.Extents()
	di.Distance = r.distance
	di.PixelArea = g.pixelArea
	di.Fullbright = f.Fullbright
	di.Bump = f.Bump
	di.Shiny = f.Shiny
	if r.key.glow {
		di.Glow = f.Glow
	}
	di.Particle = r.pass == PassParticles
	return di
}

// writeVertices writes the attributes in attrs of f's vertices at base.
// Attributes the buffer does not carry are skipped.
func writeVertices(buf *gpu.VertexBuffer, base int, f *Face, attrs gpu.AttributeMask) {
	for i := range f.Vertices {
		v := &f.Vertices[i]
		at := base + i
		if attrs.Has(gpu.AttribPosition) {
			buf.SetPosition(at, v.Position.X, v.Position.Y, v.Position.Z)
		}
		if attrs.Has(gpu.AttribNormal) {
			buf.SetNormal(at, v.Normal.X, v.Normal.Y, v.Normal.Z)
		}
		if attrs.Has(gpu.AttribTexCoord0) {
			buf.SetTexCoord0(at, v.UV[0], v.UV[1])
			buf.SetTexCoord1(at, v.UV[0], v.UV[1])
			buf.SetColor(at, v.Color[0], v.Color[1], v.Color[2], v.Color[3])
			buf.SetEmissive(at, f.Glow)
			buf.SetTangent(at, 1, 0, 0, 1)
		}
	}
}

// rewriteFaces writes attrs of every built face back into its buffer.
func rewriteFaces(g *SpatialGroup, attrs gpu.AttributeMask) {
	for _, slot := range g.faceSlots {
		faces := facesAt(slot.drawable, g.lod)
		if slot.face >= len(faces) || len(faces[slot.face].Vertices) != slot.count {
			g.DirtyGeom()
			return
		}
		writeVertices(slot.buf, slot.base, &faces[slot.face], attrs)
	}
	for _, buf := range g.buffers {
		if err := buf.Flush(); err != nil {
			g.session.warnOnce(fmt.Sprintf("flush/%d", buf.ID()), "vertex buffer not uploaded",
				"label", buf.Label(), "err", err)
		}
	}
}

// faceArea returns the summed triangle area of f.
func faceArea(f *Face) float32 {
	var area float32
	for i := 0; i+2 < len(f.Indices); i += 3 {
		a := f.Vertices[f.Indices[i]].Position
		b := f.Vertices[f.Indices[i+1]].Position
		c := f.Vertices[f.Indices[i+2]].Position
		area += b.Sub(a).Cross(c.Sub(a)).Length() * 0.5
	}
	return area
}
