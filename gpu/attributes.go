package gpu

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// AttributeMask selects the vertex attributes a buffer carries.
// Attributes are interleaved in bit order.
type AttributeMask uint32

const (
	// AttribPosition is the vertex position (3 x float32).
	AttribPosition AttributeMask = 1 << iota
	// AttribNormal is the vertex normal (3 x float32).
	AttribNormal
	// AttribTexCoord0 is the diffuse texture coordinate (2 x float32).
	AttribTexCoord0
	// AttribTexCoord1 is the bump/normal-map texture coordinate (2 x float32).
	AttribTexCoord1
	// AttribColor is the vertex color (4 x float32, RGBA).
	AttribColor
	// AttribEmissive is the glow intensity (1 x float32).
	AttribEmissive
	// AttribTangent is the tangent with handedness (4 x float32).
	AttribTangent

	attribCount = iota
)

// Common masks used by the partitions.
const (
	MaskPosition = AttribPosition
	MaskBasic    = AttribPosition | AttribNormal | AttribTexCoord0 | AttribColor
	MaskVolume   = MaskBasic | AttribEmissive | AttribTexCoord1 | AttribTangent
	MaskTerrain  = AttribPosition | AttribNormal | AttribTexCoord0 | AttribTexCoord1
	MaskParticle = AttribPosition | AttribTexCoord0 | AttribColor | AttribEmissive
	MaskWater    = AttribPosition | AttribNormal | AttribTexCoord0
)

var attribInfo = [attribCount]struct {
	name   string
	size   uint64
	format gputypes.VertexFormat
}{
	{"position", 12, gputypes.VertexFormatFloat32x3},
	{"normal", 12, gputypes.VertexFormatFloat32x3},
	{"texcoord0", 8, gputypes.VertexFormatFloat32x2},
	{"texcoord1", 8, gputypes.VertexFormatFloat32x2},
	{"color", 16, gputypes.VertexFormatFloat32x4},
	{"emissive", 4, gputypes.VertexFormatFloat32},
	{"tangent", 16, gputypes.VertexFormatFloat32x4},
}

// Has reports whether every attribute in req is present in m.
func (m AttributeMask) Has(req AttributeMask) bool { return m&req == req }

// Missing returns the attributes of req that m lacks.
func (m AttributeMask) Missing(req AttributeMask) AttributeMask { return req &^ m }

// Stride returns the size in bytes of one interleaved vertex.
func (m AttributeMask) Stride() uint64 {
	var stride uint64
	for i := 0; i < attribCount; i++ {
		if m&(1<<i) != 0 {
			stride += attribInfo[i].size
		}
	}
	return stride
}

// Offset returns the byte offset of attr inside one vertex and whether the
// attribute is present.
func (m AttributeMask) Offset(attr AttributeMask) (uint64, bool) {
	if m&attr == 0 {
		return 0, false
	}
	var off uint64
	for i := 0; i < attribCount; i++ {
		bit := AttributeMask(1 << i)
		if bit == attr {
			return off, true
		}
		if m&bit != 0 {
			off += attribInfo[i].size
		}
	}
	return 0, false
}

// Layout returns the interleaved vertex buffer layout for the mask.
// Shader locations follow attribute bit order.
func (m AttributeMask) Layout() gputypes.VertexBufferLayout {
	var attrs []gputypes.VertexAttribute
	var off uint64
	for i := 0; i < attribCount; i++ {
		if m&(1<<i) == 0 {
			continue
		}
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         attribInfo[i].format,
			Offset:         off,
			ShaderLocation: uint32(i),
		})
		off += attribInfo[i].size
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: off,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// String returns the attribute names joined with '|'.
func (m AttributeMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < attribCount; i++ {
		if m&(1<<i) != 0 {
			parts = append(parts, attribInfo[i].name)
		}
	}
	return strings.Join(parts, "|")
}
