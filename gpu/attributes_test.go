package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestAttributeMaskStride(t *testing.T) {
	tests := []struct {
		name string
		mask AttributeMask
		want uint64
	}{
		{"position", MaskPosition, 12},
		{"basic", MaskBasic, 12 + 12 + 8 + 16},
		{"particle", MaskParticle, 12 + 8 + 16 + 4},
		{"volume", MaskVolume, 12 + 12 + 8 + 8 + 16 + 4 + 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mask.Stride(); got != tt.want {
				t.Errorf("Stride() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAttributeMaskOffset(t *testing.T) {
	m := AttribPosition | AttribTexCoord0 | AttribEmissive
	tests := []struct {
		attr   AttributeMask
		want   uint64
		wantOK bool
	}{
		{AttribPosition, 0, true},
		{AttribTexCoord0, 12, true},
		{AttribEmissive, 20, true},
		{AttribNormal, 0, false},
	}
	for _, tt := range tests {
		got, ok := m.Offset(tt.attr)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Offset(%v) = %d,%v want %d,%v", tt.attr, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAttributeMaskLayout(t *testing.T) {
	l := (AttribPosition | AttribColor).Layout()
	if l.ArrayStride != 28 {
		t.Errorf("ArrayStride = %d, want 28", l.ArrayStride)
	}
	if l.StepMode != gputypes.VertexStepModeVertex {
		t.Errorf("StepMode = %v", l.StepMode)
	}
	if len(l.Attributes) != 2 {
		t.Fatalf("len(Attributes) = %d, want 2", len(l.Attributes))
	}
	if l.Attributes[1].Format != gputypes.VertexFormatFloat32x4 || l.Attributes[1].Offset != 12 {
		t.Errorf("color attribute = %+v", l.Attributes[1])
	}
	if l.Attributes[1].ShaderLocation != 4 {
		t.Errorf("color location = %d, want 4", l.Attributes[1].ShaderLocation)
	}
}

func TestAttributeMaskHasMissing(t *testing.T) {
	m := MaskBasic
	if !m.Has(AttribPosition | AttribNormal) {
		t.Error("basic mask should have position|normal")
	}
	if m.Has(AttribEmissive) {
		t.Error("basic mask should not have emissive")
	}
	if got := m.Missing(AttribEmissive | AttribNormal); got != AttribEmissive {
		t.Errorf("Missing = %v, want emissive", got)
	}
	if got := (AttribPosition | AttribNormal).String(); got != "position|normal" {
		t.Errorf("String() = %q", got)
	}
	if got := AttributeMask(0).String(); got != "none" {
		t.Errorf("String() = %q", got)
	}
}
