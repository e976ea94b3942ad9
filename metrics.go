package pubsub

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments a Store with publish/subscribe/freeze counters and
// gauges. A nil *Metrics makes every method a no-op, so Store never needs
// a nil check before calling one - the same nil-safe-default pattern the
// ambient stack uses for *slog.Logger.
type Metrics struct {
	publishTicks      *prometheus.CounterVec
	publishErrors     *prometheus.CounterVec
	subscribeDispatch *prometheus.CounterVec
	subscribeDropped  *prometheus.CounterVec
	frozenGroups      prometheus.Gauge
}

// NewMetrics registers the PubSub collectors on reg and returns a Metrics
// ready to attach to a Store via WithStoreMetrics.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		publishTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_publish_ticks_total",
			Help: "Publish ticks completed, by writer group.",
		}, []string{"writer_group_id"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_publish_errors_total",
			Help: "Publish ticks that failed to encode or send, by writer group.",
		}, []string{"writer_group_id"}),
		subscribeDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_subscribe_dispatched_total",
			Help: "DataSetMessages successfully dispatched to a reader, by reader group.",
		}, []string{"reader_group_id"}),
		subscribeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_subscribe_dropped_total",
			Help: "Messages dropped on the subscribe path, by reason.",
		}, []string{"reason"}),
		frozenGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_frozen_groups",
			Help: "Writer and reader groups currently RT-frozen.",
		}),
	}
	reg.MustRegister(m.publishTicks, m.publishErrors, m.subscribeDispatch, m.subscribeDropped, m.frozenGroups)
	return m
}

func (m *Metrics) incPublishTicks(writerGroupID uint16) {
	if m == nil {
		return
	}
	m.publishTicks.WithLabelValues(formatGroupID(writerGroupID)).Inc()
}

func (m *Metrics) incPublishErrors(writerGroupID uint16) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(formatGroupID(writerGroupID)).Inc()
}

func (m *Metrics) incDispatched(readerGroupID ID) {
	if m == nil {
		return
	}
	m.subscribeDispatch.WithLabelValues(readerGroupID.String()).Inc()
}

func (m *Metrics) incDropped(reason string) {
	if m == nil {
		return
	}
	m.subscribeDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) incFrozenGroups(delta float64) {
	if m == nil {
		return
	}
	m.frozenGroups.Add(delta)
}

func formatGroupID(id uint16) string {
	return strconv.Itoa(int(id))
}
