package spatial

import (
	"math/rand/v2"

	"github.com/gogpu/spatial/gpu"
)

// quadFace returns a square facing -X centered at c with half size h.
func quadFace(c Vec3, h float32, tex gpu.TextureID) Face {
	v := func(dy, dz, u, w float32) Vertex {
		return Vertex{
			Position: c.Add(V3(0, dy, dz)),
			Normal:   V3(-1, 0, 0),
			UV:       [2]float32{u, w},
			Color:    [4]float32{1, 1, 1, 1},
		}
	}
	return Face{
		Vertices: []Vertex{v(-h, -h, 0, 0), v(h, -h, 1, 0), v(h, h, 1, 1), v(-h, h, 0, 1)},
		Indices:  []uint16{0, 1, 2, 0, 2, 3},
		Texture:  tex,
	}
}

// gridFace returns a face with n vertices spread along Y at x, using a
// single triangle fan over the first three and last vertex.
func gridFace(x float32, n int, tex gpu.TextureID) Face {
	f := Face{Texture: tex, Vertices: make([]Vertex, n)}
	for i := range f.Vertices {
		f.Vertices[i] = Vertex{Position: V3(x, float32(i)*0.001, float32(i%2)*0.001), Color: [4]float32{1, 1, 1, 1}}
	}
	last := uint16(n - 1)
	f.Indices = []uint16{0, 1, 2, 0, 2, last}
	return f
}

func boxAt(p Vec3, half float32) *BasicDrawable {
	return NewBoxDrawable(BoxFromCenter(p, Splat(half)))
}

func quadAt(p Vec3, half float32, tex gpu.TextureID) *BasicDrawable {
	return NewBasicDrawable(p, quadFace(p, half, tex))
}

// randomDrawables returns n box drawables with positions in ±spread and
// half sizes in [0.05, maxHalf).
func randomDrawables(seed uint64, n int, spread, maxHalf float32) []*BasicDrawable {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	coord := func() float32 { return (r.Float32()*2 - 1) * spread }
	out := make([]*BasicDrawable, n)
	for i := range out {
		half := 0.05 + r.Float32()*(maxHalf-0.05)
		out[i] = boxAt(V3(coord(), coord(), coord()), half)
	}
	return out
}

// cameraAt returns a camera at origin looking along +X.
func cameraAt(origin Vec3) Camera {
	cam := NewCamera()
	cam.Origin = origin
	return cam
}

type binderCall struct {
	op     string
	blend  BlendFunc
	tex    gpu.TextureID
	depth  bool
	start  uint32
	end    uint32
	count  uint32
	offset uint32
	buf    *gpu.VertexBuffer
	model  Matrix
}

// recordingBinder records the calls a Renderer makes.
type recordingBinder struct {
	calls    []binderCall
	uniforms map[string][4]float32
}

func (b *recordingBinder) BindTexture(unit int, tex gpu.TextureID) {
	if unit == TextureUnitDiffuse {
		b.calls = append(b.calls, binderCall{op: "texture", tex: tex})
	}
}

func (b *recordingBinder) Uniform1f(name string, v float32) {
	b.uniform(name, [4]float32{v})
}

func (b *recordingBinder) Uniform4f(name string, v [4]float32) { b.uniform(name, v) }

func (b *recordingBinder) uniform(name string, v [4]float32) {
	if b.uniforms == nil {
		b.uniforms = make(map[string][4]float32)
	}
	b.uniforms[name] = v
}

func (b *recordingBinder) UniformMatrix(name string, m Matrix) {
	if name == UniformModelMatrix {
		b.calls = append(b.calls, binderCall{op: "model", model: m})
	}
}

func (b *recordingBinder) SetBlend(f BlendFunc) {
	b.calls = append(b.calls, binderCall{op: "blend", blend: f})
}

func (b *recordingBinder) SetDepthMask(write bool) {
	b.calls = append(b.calls, binderCall{op: "depth", depth: write})
}

func (b *recordingBinder) DrawRange(buf *gpu.VertexBuffer, start, end, count, offset uint32) {
	b.calls = append(b.calls, binderCall{op: "draw", buf: buf, start: start, end: end, count: count, offset: offset})
}

func (b *recordingBinder) ops(op string) []binderCall {
	var out []binderCall
	for _, c := range b.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// runFrame drives one full frame and returns the render stats.
func runFrame(s *Session, cam Camera, result *CullResult, binder ShaderBinder) RenderStats {
	s.BeginFrame(result)
	s.Update()
	s.Cull(cam, result, true)
	s.ProcessBuildQueue()
	s.PostSort(result)
	s.BeginRender()
	defer s.EndRender()
	return NewRenderer(s, binder).Render(result)
}
