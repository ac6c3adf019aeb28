package spatial

import "github.com/chewxy/math32"

// Matrix represents a 3D affine transformation.
// The upper 3x3 block is stored column-wise in X, Y and Z, and T is the
// translation:
//
//	| X.X  Y.X  Z.X  T.X |
//	| X.Y  Y.Y  Z.Y  T.Y |
//	| X.Z  Y.Z  Z.Z  T.Z |
//
// so that p' = X*p.x + Y*p.y + Z*p.z + T.
type Matrix struct {
	X, Y, Z, T Vec3
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{X: V3(1, 0, 0), Y: V3(0, 1, 0), Z: V3(0, 0, 1)}
}

// Translate creates a translation matrix.
func Translate(v Vec3) Matrix {
	m := Identity()
	m.T = v
	return m
}

// Scale creates a scaling matrix.
func Scale(v Vec3) Matrix {
	return Matrix{X: V3(v.X, 0, 0), Y: V3(0, v.Y, 0), Z: V3(0, 0, v.Z)}
}

// RotateX creates a rotation about the X axis (angle in radians).
func RotateX(angle float32) Matrix {
	s, c := math32.Sincos(angle)
	return Matrix{X: V3(1, 0, 0), Y: V3(0, c, s), Z: V3(0, -s, c)}
}

// RotateY creates a rotation about the Y axis (angle in radians).
func RotateY(angle float32) Matrix {
	s, c := math32.Sincos(angle)
	return Matrix{X: V3(c, 0, -s), Y: V3(0, 1, 0), Z: V3(s, 0, c)}
}

// RotateZ creates a rotation about the Z axis (angle in radians).
func RotateZ(angle float32) Matrix {
	s, c := math32.Sincos(angle)
	return Matrix{X: V3(c, s, 0), Y: V3(-s, c, 0), Z: V3(0, 0, 1)}
}

// Multiply returns m * other, which applies other first and then m.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		X: m.TransformVector(other.X),
		Y: m.TransformVector(other.Y),
		Z: m.TransformVector(other.Z),
		T: m.TransformPoint(other.T),
	}
}

// TransformPoint applies the full transformation to a point.
func (m Matrix) TransformPoint(p Vec3) Vec3 {
	return m.TransformVector(p).Add(m.T)
}

// TransformVector applies the transformation without translation.
func (m Matrix) TransformVector(v Vec3) Vec3 {
	return m.X.Mul(v.X).Add(m.Y.Mul(v.Y)).Add(m.Z.Mul(v.Z))
}

// Determinant returns the determinant of the linear part.
func (m Matrix) Determinant() float32 {
	return m.X.Dot(m.Y.Cross(m.Z))
}

// Invert returns the inverse transformation. ok is false when the matrix is
// singular, in which case the identity is returned.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	det := m.Determinant()
	if math32.Abs(det) < 1e-12 || !finite(det) {
		return Identity(), false
	}
	// Rows of the inverse of [X Y Z] are the cross products divided by det.
	r0 := m.Y.Cross(m.Z).Mul(1 / det)
	r1 := m.Z.Cross(m.X).Mul(1 / det)
	r2 := m.X.Cross(m.Y).Mul(1 / det)
	inv = Matrix{
		X: V3(r0.X, r1.X, r2.X),
		Y: V3(r0.Y, r1.Y, r2.Y),
		Z: V3(r0.Z, r1.Z, r2.Z),
	}
	inv.T = inv.TransformVector(m.T).Neg()
	return inv, true
}

// IsIdentity returns true if this is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}
