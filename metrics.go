package spatial

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel   = "kind"
	passLabel   = "pass"
	reasonLabel = "reason"
	opLabel     = "op"
)

// Reasons a batch or insertion is skipped.
const (
	reasonAllocation        = "allocation"
	reasonMissingAttributes = "missing_attributes"
	reasonReleasedBuffer    = "released_buffer"
	reasonInvalidRange      = "invalid_range"
	reasonDegenerate        = "degenerate"
	reasonOutOfRange        = "out_of_range"
	reasonPartitioned       = "already_partitioned"
	reasonOther             = "other"
)

// Metrics exports engine counters to Prometheus. A nil *Metrics records
// nothing.
type Metrics struct {
	nodesTraversed *prometheus.CounterVec
	visibleGroups  prometheus.Gauge
	rebuilds       *prometheus.CounterVec
	groupChanges   *prometheus.CounterVec
	drawCalls      *prometheus.CounterVec
	skippedBatches *prometheus.CounterVec
	refusedInserts *prometheus.CounterVec
}

// NewMetrics creates the engine metrics and registers them with reg. A nil
// reg registers nowhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		nodesTraversed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spatial_nodes_traversed_total",
			Help: "The number of octree nodes visited by cull.",
		}, []string{kindLabel}),
		visibleGroups: f.NewGauge(prometheus.GaugeOpts{
			Name: "spatial_visible_groups",
			Help: "The number of groups found visible in the last cull.",
		}),
		rebuilds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spatial_group_rebuilds_total",
			Help: "The number of draw map rebuilds.",
		}, []string{kindLabel}),
		groupChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spatial_group_membership_changes_total",
			Help: "The number of drawables added to or removed from groups.",
		}, []string{kindLabel, opLabel}),
		drawCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spatial_draw_calls_total",
			Help: "The number of draw calls issued.",
		}, []string{passLabel}),
		skippedBatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spatial_skipped_batches_total",
			Help: "The number of batches skipped.",
		}, []string{reasonLabel}),
		refusedInserts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spatial_refused_inserts_total",
			Help: "The number of drawables refused by a partition.",
		}, []string{kindLabel, reasonLabel}),
	}
}

func (m *Metrics) traversed(kind PartitionKind, n int) {
	if m == nil {
		return
	}
	m.nodesTraversed.With(prometheus.Labels{kindLabel: kind.String()}).Add(float64(n))
}

func (m *Metrics) visible(n int) {
	if m == nil {
		return
	}
	m.visibleGroups.Set(float64(n))
}

func (m *Metrics) rebuilt(kind PartitionKind) {
	if m == nil {
		return
	}
	m.rebuilds.With(prometheus.Labels{kindLabel: kind.String()}).Inc()
}

func (m *Metrics) groupChange(kind PartitionKind, op string) {
	if m == nil {
		return
	}
	m.groupChanges.With(prometheus.Labels{kindLabel: kind.String(), opLabel: op}).Inc()
}

func (m *Metrics) drew(pass RenderPass, n int) {
	if m == nil || n == 0 {
		return
	}
	m.drawCalls.With(prometheus.Labels{passLabel: pass.String()}).Add(float64(n))
}

func (m *Metrics) skipped(reason string) {
	if m == nil {
		return
	}
	m.skippedBatches.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

func (m *Metrics) refused(kind PartitionKind, err error) {
	if m == nil {
		return
	}
	reason := reasonOther
	switch {
	case errors.Is(err, ErrDegenerateExtents):
		reason = reasonDegenerate
	case errors.Is(err, ErrOutOfRange):
		reason = reasonOutOfRange
	case errors.Is(err, ErrAlreadyPartitioned):
		reason = reasonPartitioned
	}
	m.refusedInserts.With(prometheus.Labels{kindLabel: kind.String(), reasonLabel: reason}).Inc()
}
