package spatial

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spatial/gpu"
)

// AlphaMode is the diffuse alpha interpretation of a material.
type AlphaMode uint8

const (
	AlphaModeNone AlphaMode = iota
	AlphaModeBlend
	AlphaModeMask
	AlphaModeEmissive
)

// Shader variant bits of a material. The low two bits hold the AlphaMode.
const (
	shaderMaskSpecular uint8 = 1 << 2
	shaderMaskNormal   uint8 = 1 << 3

	// NumMaterialShaders is the number of material shader variants.
	NumMaterialShaders = 16
)

// Material describes the per-face surface parameters beyond the diffuse
// texture.
type Material struct {
	SpecularMap        gpu.TextureID
	NormalMap          gpu.TextureID
	SpecColor          [4]float32
	EnvIntensity       float32
	AlphaCutoff        float32
	EmissiveBrightness float32
	DiffuseAlphaMode   AlphaMode
}

// ShaderMask returns the material shader variant index.
func (m *Material) ShaderMask() uint8 {
	if m == nil {
		return 0
	}
	mask := uint8(m.DiffuseAlphaMode) & 3
	if m.SpecularMap.IsValid() {
		mask |= shaderMaskSpecular
	}
	if m.NormalMap.IsValid() {
		mask |= shaderMaskNormal
	}
	return mask
}

// BlendFunc is a source/destination blend factor pair.
type BlendFunc struct {
	Src gputypes.BlendFactor
	Dst gputypes.BlendFactor
}

// Blend functions used by the passes.
var (
	BlendReplace = BlendFunc{Src: gputypes.BlendFactorOne, Dst: gputypes.BlendFactorZero}
	BlendAlpha   = BlendFunc{Src: gputypes.BlendFactorSrcAlpha, Dst: gputypes.BlendFactorOneMinusSrcAlpha}
	BlendGlow    = BlendFunc{Src: gputypes.BlendFactorOne, Dst: gputypes.BlendFactorOne}
)

// DrawInfo describes one draw call: an index range in a shared vertex
// buffer drawn with one texture set, material and blend state.
//
// A DrawInfo is immutable once its group publishes it. It is reference
// counted; it holds one reference on its vertex buffer, dropped when the
// last DrawInfo reference is released.
type DrawInfo struct {
	// Start and End bound the vertices referenced by the range (inclusive).
	Start, End uint32
	// Count indices starting at index Offset are drawn.
	Count, Offset uint32

	Buffer      *gpu.VertexBuffer
	Texture     gpu.TextureID
	TextureList []gpu.TextureID
	Material    *Material
	ShaderMask  uint8
	Blend       BlendFunc
	Topology    gputypes.PrimitiveTopology

	TextureMatrix *Matrix
	ModelMatrix   *Matrix

	Group    GroupHandle
	Extents  Box
	Distance float32
	// PixelArea is the projected size of the owning group when built.
	PixelArea float32

	Fullbright bool
	Bump       uint8
	Shiny      bool
	Glow       float32
	Particle   bool

	refs int32
}

func newDrawInfo(buf *gpu.VertexBuffer, start, end, count, offset uint32) *DrawInfo {
	return &DrawInfo{
		Start:    start,
		End:      end,
		Count:    count,
		Offset:   offset,
		Buffer:   buf.Retain(),
		Blend:    BlendReplace,
		Topology: gputypes.PrimitiveTopologyTriangleList,
		refs:     1,
	}
}

// Retain adds a reference and returns di.
func (di *DrawInfo) Retain() *DrawInfo {
	di.refs++
	return di
}

// Release drops a reference. The vertex buffer reference is released with
// the last one.
func (di *DrawInfo) Release() {
	di.refs--
	if di.refs == 0 && di.Buffer != nil {
		di.Buffer.Release()
		di.Buffer = nil
	}
}

// Refs returns the current reference count.
func (di *DrawInfo) Refs() int { return int(di.refs) }

// HasGlow reports whether the batch needs the additive glow pass: a glow
// intensity and an emissive attribute in its buffer.
func (di *DrawInfo) HasGlow() bool {
	return di.Glow > 0 && di.Buffer != nil && di.Buffer.Mask().Has(gpu.AttribEmissive)
}

// Validate checks that the range lies inside the vertex buffer.
func (di *DrawInfo) Validate() error {
	if di.Buffer == nil {
		return fmt.Errorf("%w: no buffer", ErrDrawRangeOutOfBuffer)
	}
	if err := di.Buffer.ValidateRange(di.Start, di.End, di.Count, di.Offset); err != nil {
		return fmt.Errorf("%w: %w", ErrDrawRangeOutOfBuffer, err)
	}
	return nil
}

// batchKey returns the batching class of di.
func (di *DrawInfo) batchKey() batchKey {
	return batchKey{
		texture:    di.Texture,
		material:   di.Material,
		shaderMask: di.ShaderMask,
		fullbright: di.Fullbright,
		bump:       di.Bump,
		shiny:      di.Shiny,
		glow:       di.Glow > 0,
		blend:      di.Blend,
		texMatrix:  di.TextureMatrix,
	}
}

// batchKey is the equivalence class of faces that may share one draw call.
type batchKey struct {
	texture    gpu.TextureID
	material   *Material
	shaderMask uint8
	fullbright bool
	bump       uint8
	shiny      bool
	glow       bool
	blend      BlendFunc
	texMatrix  *Matrix
}
