package spatial

import (
	"math"
	"testing"
)

func TestMatrix_TransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		p    Vec3
		want Vec3
	}{
		{"identity", Identity(), V3(1, 2, 3), V3(1, 2, 3)},
		{"translate", Translate(V3(10, -5, 2)), V3(1, 2, 3), V3(11, -3, 5)},
		{"scale", Scale(V3(2, 3, 4)), V3(1, 1, 1), V3(2, 3, 4)},
		{"rotate z 90", RotateZ(math.Pi / 2), V3(1, 0, 0), V3(0, 1, 0)},
		{"rotate x 90", RotateX(math.Pi / 2), V3(0, 1, 0), V3(0, 0, 1)},
		{"rotate y 90", RotateY(math.Pi / 2), V3(0, 0, 1), V3(1, 0, 0)},
		{"translate after scale", Translate(V3(1, 0, 0)).Multiply(Scale(Splat(2))), V3(1, 1, 1), V3(3, 2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.TransformPoint(tt.p); !got.Approx(tt.want, 1e-5) {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestMatrix_Invert(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{"identity", Identity()},
		{"translate", Translate(V3(3, -4, 5))},
		{"scale", Scale(V3(2, 0.5, 4))},
		{"rotate", RotateZ(0.7).Multiply(RotateX(-1.1))},
		{"compound", Translate(V3(100, 20, -3)).Multiply(RotateY(2)).Multiply(Scale(Splat(3)))},
	}
	p := V3(1.5, -2, 7)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.m.Invert()
			if !ok {
				t.Fatal("Invert() reported singular")
			}
			if got := inv.TransformPoint(tt.m.TransformPoint(p)); !got.Approx(p, 1e-3) {
				t.Errorf("inverse round trip = %v, want %v", got, p)
			}
			if got := tt.m.Multiply(inv); !got.X.Approx(V3(1, 0, 0), 1e-4) || !got.T.Approx(Vec3{}, 1e-3) {
				t.Errorf("m*inv = %+v, want identity", got)
			}
		})
	}
}

func TestMatrix_InvertSingular(t *testing.T) {
	inv, ok := Scale(V3(1, 0, 1)).Invert()
	if ok {
		t.Error("Invert() of a flat scale reported ok")
	}
	if !inv.IsIdentity() {
		t.Errorf("Invert() of singular = %+v, want identity", inv)
	}
}

func TestMatrix_Determinant(t *testing.T) {
	if got := Scale(V3(2, 3, 4)).Determinant(); got != 24 {
		t.Errorf("Determinant() = %v, want 24", got)
	}
	if got := RotateZ(1).Determinant(); math.Abs(float64(got)-1) > 1e-5 {
		t.Errorf("rotation Determinant() = %v, want 1", got)
	}
}
