package spatial

import (
	"cmp"
	"slices"
)

// SortPolicy selects how the draw batches of a pass are ordered.
type SortPolicy uint8

const (
	// SortByTexture groups batches by texture to minimize rebinds.
	SortByTexture SortPolicy = iota
	// SortByVertexBuffer groups batches by vertex buffer.
	SortByVertexBuffer
	// SortByDistance orders batches back to front.
	SortByDistance
	// SortByBump groups batches by bump map, then texture.
	SortByBump
	// SortByTextureMatrix groups by texture, then texture matrix.
	SortByTextureMatrix
	// SortByMatrixTexture groups by model matrix, then texture.
	SortByMatrixTexture
)

var sortPolicyNames = []string{"texture", "vertex_buffer", "distance", "bump", "texture_matrix", "matrix_texture"}

// String returns the policy name.
func (p SortPolicy) String() string {
	if int(p) < len(sortPolicyNames) {
		return sortPolicyNames[p]
	}
	return "unknown"
}

// nilLast orders nil entries after non-nil ones. ok is false when neither is
// nil and the caller must compare further.
func nilLast(a, b *DrawInfo) (c int, ok bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return 1, true
	case b == nil:
		return -1, true
	}
	return 0, false
}

func bufferID(di *DrawInfo) uint64 {
	if di.Buffer == nil {
		return 0
	}
	return di.Buffer.ID()
}

// ptrOrder gives a stable order for optional matrices: nil first, then by
// translation.
func ptrOrder(m *Matrix) (bool, float32, float32, float32) {
	if m == nil {
		return false, 0, 0, 0
	}
	return true, m.T.X, m.T.Y, m.T.Z
}

func compareMatrix(a, b *Matrix) int {
	if a == b {
		return 0
	}
	ha, ax, ay, az := ptrOrder(a)
	hb, bx, by, bz := ptrOrder(b)
	if ha != hb {
		if !ha {
			return -1
		}
		return 1
	}
	return cmp.Or(cmp.Compare(ax, bx), cmp.Compare(ay, by), cmp.Compare(az, bz))
}

// CompareTexture orders by texture id, then vertex buffer and offset.
func CompareTexture(a, b *DrawInfo) int {
	if c, ok := nilLast(a, b); ok {
		return c
	}
	return cmp.Or(
		cmp.Compare(a.Texture, b.Texture),
		cmp.Compare(bufferID(a), bufferID(b)),
		cmp.Compare(a.Offset, b.Offset),
	)
}

// CompareVertexBuffer orders by vertex buffer, then offset.
func CompareVertexBuffer(a, b *DrawInfo) int {
	if c, ok := nilLast(a, b); ok {
		return c
	}
	return cmp.Or(
		cmp.Compare(bufferID(a), bufferID(b)),
		cmp.Compare(a.Offset, b.Offset),
	)
}

// CompareDistanceGreater orders by distance, farthest first.
func CompareDistanceGreater(a, b *DrawInfo) int {
	if c, ok := nilLast(a, b); ok {
		return c
	}
	return cmp.Compare(b.Distance, a.Distance)
}

// CompareBump orders by bump code, then texture.
func CompareBump(a, b *DrawInfo) int {
	if c, ok := nilLast(a, b); ok {
		return c
	}
	return cmp.Or(cmp.Compare(a.Bump, b.Bump), CompareTexture(a, b))
}

// CompareTextureMatrix orders by texture, then texture matrix, then
// material shader variant.
func CompareTextureMatrix(a, b *DrawInfo) int {
	if c, ok := nilLast(a, b); ok {
		return c
	}
	return cmp.Or(
		cmp.Compare(a.Texture, b.Texture),
		compareMatrix(a.TextureMatrix, b.TextureMatrix),
		cmp.Compare(a.ShaderMask, b.ShaderMask),
	)
}

// CompareMatrixTexture orders by model matrix, then texture.
func CompareMatrixTexture(a, b *DrawInfo) int {
	if c, ok := nilLast(a, b); ok {
		return c
	}
	return cmp.Or(compareMatrix(a.ModelMatrix, b.ModelMatrix), cmp.Compare(a.Texture, b.Texture))
}

// Comparator returns the comparison function of the policy.
func (p SortPolicy) Comparator() func(a, b *DrawInfo) int {
	switch p {
	case SortByVertexBuffer:
		return CompareVertexBuffer
	case SortByDistance:
		return CompareDistanceGreater
	case SortByBump:
		return CompareBump
	case SortByTextureMatrix:
		return CompareTextureMatrix
	case SortByMatrixTexture:
		return CompareMatrixTexture
	default:
		return CompareTexture
	}
}

// SortDrawInfo sorts list in place with the policy. The sort is stable, so
// equal batches keep their build order.
func SortDrawInfo(list []*DrawInfo, p SortPolicy) {
	slices.SortStableFunc(list, p.Comparator())
}
