package spatial

import (
	"fmt"

	"github.com/gogpu/spatial/gpu"
)

// RenderPass identifies a category of draw batches consumed together by
// the renderer.
type RenderPass uint8

const (
	PassSimple RenderPass = iota
	PassFullbright
	PassInvisible
	PassShiny
	PassFullbrightShiny
	PassBump
	PassMaterial
	PassAlphaMask
	PassTerrain
	PassTree
	PassGrass
	PassWater
	PassParticles
	PassAlpha

	// NumRenderPasses is the number of render passes.
	NumRenderPasses = iota
)

var passNames = [NumRenderPasses]string{
	"simple", "fullbright", "invisible", "shiny", "fullbright_shiny", "bump",
	"material", "alpha_mask", "terrain", "tree", "grass", "water", "particles",
	"alpha",
}

// String returns the pass name.
func (p RenderPass) String() string {
	if int(p) < len(passNames) {
		return passNames[p]
	}
	return fmt.Sprintf("RenderPass(%d)", uint8(p))
}

// IsAlpha reports whether the pass blends back to front.
func (p RenderPass) IsAlpha() bool {
	return p == PassAlpha || p == PassParticles || p == PassWater
}

// SortPolicy returns the ordering applied to the pass's draw batches.
func (p RenderPass) SortPolicy() SortPolicy {
	switch p {
	case PassAlpha, PassParticles, PassWater:
		return SortByDistance
	case PassBump:
		return SortByBump
	case PassMaterial, PassAlphaMask:
		return SortByTextureMatrix
	case PassTerrain, PassInvisible:
		return SortByVertexBuffer
	default:
		return SortByTexture
	}
}

// RequiredAttributes returns the vertex attributes a batch must carry to be
// drawn in the pass.
func (p RenderPass) RequiredAttributes() gpu.AttributeMask {
	switch p {
	case PassInvisible:
		return gpu.AttribPosition
	case PassAlpha, PassParticles, PassAlphaMask, PassGrass:
		return gpu.AttribPosition | gpu.AttribTexCoord0 | gpu.AttribColor
	case PassBump:
		return gpu.AttribPosition | gpu.AttribNormal | gpu.AttribTexCoord0 | gpu.AttribTexCoord1
	case PassMaterial:
		return gpu.AttribPosition | gpu.AttribNormal | gpu.AttribTexCoord0 | gpu.AttribTangent
	case PassWater:
		return gpu.AttribPosition | gpu.AttribNormal
	default:
		return gpu.AttribPosition | gpu.AttribTexCoord0
	}
}
