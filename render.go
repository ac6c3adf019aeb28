package spatial

import (
	"fmt"

	"github.com/gogpu/spatial/gpu"
)

// Material uniform names.
const (
	UniformSpecularColor      = "specular_color"
	UniformEnvIntensity       = "env_intensity"
	UniformEmissiveBrightness = "emissive_brightness"
	UniformMinimumAlpha       = "minimum_alpha"
	UniformModelMatrix        = "model_matrix"
)

// Texture units bound per batch.
const (
	TextureUnitDiffuse = iota
	TextureUnitNormal
	TextureUnitSpecular
)

// ShaderBinder is the shader and draw layer the renderer drives. It is
// implemented over the graphics backend; the engine treats it as opaque.
type ShaderBinder interface {
	BindTexture(unit int, tex gpu.TextureID)
	Uniform1f(name string, v float32)
	Uniform4f(name string, v [4]float32)
	UniformMatrix(name string, m Matrix)
	SetBlend(b BlendFunc)
	SetDepthMask(write bool)
	// DrawRange draws count indices from offset of buf, referencing
	// vertices in [start, end].
	DrawRange(buf *gpu.VertexBuffer, start, end, count, offset uint32)
}

// RenderStats counts the work of one Render call.
type RenderStats struct {
	Draws     int
	GlowDraws int
	Skipped   int
}

// Add accumulates o into s.
func (s *RenderStats) Add(o RenderStats) {
	s.Draws += o.Draws
	s.GlowDraws += o.GlowDraws
	s.Skipped += o.Skipped
}

// Renderer drains the render maps of a cull result through a ShaderBinder.
type Renderer struct {
	session *Session
	shader  ShaderBinder
}

// NewRenderer creates a renderer drawing through shader.
func NewRenderer(s *Session, shader ShaderBinder) *Renderer {
	return &Renderer{session: s, shader: shader}
}

// Render draws every pass in order and consumes the render maps.
func (r *Renderer) Render(result *CullResult) RenderStats {
	var stats RenderStats
	for pass := RenderPass(0); pass < NumRenderPasses; pass++ {
		stats.Add(r.DrawPass(result, pass))
	}
	r.session.logger().Debug("render", "frame", r.session.frame,
		"draws", stats.Draws, "glow", stats.GlowDraws, "skipped", stats.Skipped)
	return stats
}

// DrawPass draws and consumes the render map of one pass. Batches whose
// buffer is gone or lacks the pass's attributes are skipped. Batches with
// glow are drawn a second time with additive blending.
func (r *Renderer) DrawPass(result *CullResult, pass RenderPass) RenderStats {
	var stats RenderStats
	list := result.ConsumeRenderMap(pass)
	if len(list) == 0 {
		return stats
	}
	required := pass.RequiredAttributes()
	for _, di := range list {
		if err := r.check(di, pass, required); err != nil {
			stats.Skipped++
			continue
		}
		r.bind(di, pass)
		r.shader.SetBlend(di.Blend)
		r.shader.DrawRange(di.Buffer, di.Start, di.End, di.Count, di.Offset)
		stats.Draws++
		if di.HasGlow() {
			r.shader.SetBlend(BlendGlow)
			r.shader.DrawRange(di.Buffer, di.Start, di.End, di.Count, di.Offset)
			r.shader.SetBlend(di.Blend)
			stats.GlowDraws++
		}
	}
	r.session.Metrics().drew(pass, stats.Draws+stats.GlowDraws)
	return stats
}

func (r *Renderer) check(di *DrawInfo, pass RenderPass, required gpu.AttributeMask) error {
	s := r.session
	if di == nil || di.Buffer == nil || di.Buffer.Released() {
		s.Metrics().skipped(reasonReleasedBuffer)
		return gpu.ErrBufferReleased
	}
	if missing := di.Buffer.Mask().Missing(required); missing != 0 {
		err := fmt.Errorf("%w: %s lacks %s for %s", ErrMissingAttributes, di.Buffer.Label(), missing, pass)
		s.warnOnce(fmt.Sprintf("attrs/%s/%d", pass, di.Buffer.ID()), "batch skipped", "err", err)
		s.Metrics().skipped(reasonMissingAttributes)
		return err
	}
	if debugAssertions {
		if err := di.Validate(); err != nil {
			s.invariant(fmt.Sprintf("range/%d/%d", di.Buffer.ID(), di.Offset), err)
			s.Metrics().skipped(reasonInvalidRange)
			return err
		}
	}
	return nil
}

func (r *Renderer) bind(di *DrawInfo, pass RenderPass) {
	sh := r.shader
	sh.UniformMatrix(UniformModelMatrix, r.modelMatrix(di))
	sh.BindTexture(TextureUnitDiffuse, di.Texture)
	if m := di.Material; m != nil {
		sh.BindTexture(TextureUnitNormal, m.NormalMap)
		sh.BindTexture(TextureUnitSpecular, m.SpecularMap)
		sh.Uniform4f(UniformSpecularColor, m.SpecColor)
		sh.Uniform1f(UniformEnvIntensity, m.EnvIntensity)
		sh.Uniform1f(UniformEmissiveBrightness, m.EmissiveBrightness)
		sh.Uniform1f(UniformMinimumAlpha, m.AlphaCutoff)
	}
	if pass.IsAlpha() {
		depth := true
		if g, err := r.session.Group(di.Group); err == nil {
			depth = g.partition.opts.depthMask
		}
		sh.SetDepthMask(depth)
	}
}

// modelMatrix returns the transform of the bridge owning di's group, read
// from the parent at draw time. Unbridged batches draw in world space.
func (r *Renderer) modelMatrix(di *DrawInfo) Matrix {
	if g, err := r.session.Group(di.Group); err == nil {
		if b := g.partition.bridge; b != nil && !b.detached {
			return b.WorldMatrix()
		}
		return Identity()
	}
	if di.ModelMatrix != nil {
		return *di.ModelMatrix
	}
	return Identity()
}
