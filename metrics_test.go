package spatial

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Frame(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := NewSession(WithMetrics(m))
	p := s.NewPartition(KindVolume)
	f := quadFace(V3(10, 0, 0), 1, 1)
	f.Glow = 1
	p.Put(NewBasicDrawable(V3(10, 0, 0), f), false)

	runFrame(s, cameraAt(V3(0, 0, 0)), NewCullResult(), &recordingBinder{})

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"visible groups", m.visibleGroups, 1},
		{"rebuilds", m.rebuilds.WithLabelValues("volume"), 1},
		{"adds", m.groupChanges.WithLabelValues("volume", "add"), 1},
		{"draw calls", m.drawCalls.WithLabelValues("simple"), 2},
		{"nodes", m.nodesTraversed.WithLabelValues("volume"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetrics_Refused(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := NewSession(WithMetrics(m))
	p := s.NewPartition(KindTree)
	q := s.NewPartition(KindVolume)

	p.Put(NewBoxDrawable(Box{Min: V3(1, 1, 1), Max: V3(1, 1, 1)}), false)
	p.Put(boxAt(V3(0, 0, 0), MaxElementRadius+1), false)
	d := boxAt(V3(0, 0, 0), 1)
	p.Put(d, false)
	q.Put(d, false)

	for _, c := range []struct {
		kind, reason string
	}{
		{"tree", reasonDegenerate},
		{"tree", reasonOutOfRange},
		{"volume", reasonPartitioned},
	} {
		if got := testutil.ToFloat64(m.refusedInserts.WithLabelValues(c.kind, c.reason)); got != 1 {
			t.Errorf("refused{%s,%s} = %v, want 1", c.kind, c.reason, got)
		}
	}
}

func TestMetrics_SkippedBatch(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := NewSession(WithMetrics(m))
	result := NewCullResult()
	result.PushDrawInfo(PassSimple, &DrawInfo{})
	NewRenderer(s, &recordingBinder{}).Render(result)

	if got := testutil.ToFloat64(m.skippedBatches.WithLabelValues(reasonReleasedBuffer)); got != 1 {
		t.Errorf("skipped{released_buffer} = %v, want 1", got)
	}
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.visible(3)
	m.traversed(KindWater, 4)

	if n, err := testutil.GatherAndCount(reg, "spatial_visible_groups", "spatial_nodes_traversed_total"); err != nil || n != 2 {
		t.Errorf("GatherAndCount() = %d, %v; want 2, nil", n, err)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.traversed(KindVolume, 1)
	m.visible(1)
	m.rebuilt(KindVolume)
	m.groupChange(KindVolume, "add")
	m.drew(PassSimple, 1)
	m.skipped(reasonOther)
	m.refused(KindVolume, ErrOutOfRange)
}
