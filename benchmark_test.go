package spatial

import (
	"strconv"
	"testing"

	"github.com/gogpu/spatial/gpu"
)

func BenchmarkPartitionPutRemove(b *testing.B) {
	ds := randomDrawables(1, 1000, 200, 2)
	s := NewSession()
	p := s.NewPartition(KindVolume)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, d := range ds {
			p.Put(d, false)
		}
		for _, d := range ds {
			p.Remove(d, nil)
		}
		p.Update()
	}
}

func BenchmarkCull(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			s := NewSession()
			p := s.NewPartition(KindVolume, WithNodeCapacity(16))
			for _, d := range randomDrawables(2, n, 300, 2) {
				p.Put(d, false)
			}
			p.Update()
			cam := cameraAt(V3(-310, 0, 0))
			result := NewCullResult()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result.Clear()
				p.Cull(cam, result, false)
			}
		})
	}
}

func BenchmarkRebuildGeom(b *testing.B) {
	s := NewSession()
	p := s.NewPartition(KindVolume)
	var g *SpatialGroup
	for i := 0; i < 100; i++ {
		x := float32(i%10) * 0.1
		g = p.Put(quadAt(V3(x, float32(i/10)*0.1, 0), 0.05, 1+gpu.TextureID(i%8)), false)
	}
	p.Update()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.DirtyGeom()
		g.RebuildGeom()
	}
}

func BenchmarkFrame(b *testing.B) {
	s := NewSession()
	p := s.NewPartition(KindVolume, WithNodeCapacity(32))
	for i := 0; i < 2000; i++ {
		x := float32(i%50) * 2
		y := float32(i/50)*2 - 40
		p.Put(quadAt(V3(10+x, y, 0), 0.5, 1+gpu.TextureID(i%16)), false)
	}
	cam := cameraAt(V3(0, 0, 0))
	result := NewCullResult()
	binder := &recordingBinder{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		binder.calls = binder.calls[:0]
		runFrame(s, cam, result, binder)
	}
}
