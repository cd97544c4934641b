// Package metrics exposes Prometheus collectors for pool operations.
package metrics

import (
	"math"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
)

// Metrics holds the Prometheus collectors of the replay engine.
type Metrics struct {
	opsTotal    *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	eventsTotal *prometheus.CounterVec
	reserve     *prometheus.GaugeVec
	totalSupply prometheus.Gauge
	lastSeq     prometheus.Gauge
	sinkRetries *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairpool_operations_total",
			Help: "Operations applied to the pool, labeled by kind and result.",
		}, []string{"kind", "result"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pairpool_operation_duration_seconds",
			Help:    "Time taken to apply a single operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairpool_events_total",
			Help: "Committed pool events, labeled by event name.",
		}, []string{"event"}),
		reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pairpool_reserve",
			Help: "Current pool reserve per asset (approximate for values above 2^53).",
		}, []string{"asset"}),
		totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairpool_share_supply",
			Help: "Current total share supply (approximate for values above 2^53).",
		}),
		lastSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairpool_last_sequence",
			Help: "Sequence number of the last applied operation.",
		}),
		sinkRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairpool_sink_retries_total",
			Help: "Failed sink writes that were retried, labeled by stream.",
		}, []string{"stream"}),
	}
	reg.MustRegister(m.opsTotal, m.opDuration, m.eventsTotal, m.reserve, m.totalSupply, m.lastSeq, m.sinkRetries)
	return m
}

// ObserveOp records the outcome of one operation. A nil receiver is a no-op
// so callers can run without metrics.
func (m *Metrics) ObserveOp(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultRejected
	}
	m.opsTotal.WithLabelValues(kind, result).Inc()
	m.opDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveEvent(name string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(name).Inc()
}

// SetPoolState publishes reserves keyed by asset address and the share supply.
func (m *Metrics) SetPoolState(assetA, assetB string, reserveA, reserveB, supply *uint256.Int, seq uint64) {
	if m == nil {
		return
	}
	m.reserve.WithLabelValues(assetA).Set(toFloat(reserveA))
	m.reserve.WithLabelValues(assetB).Set(toFloat(reserveB))
	m.totalSupply.Set(toFloat(supply))
	m.lastSeq.Set(float64(seq))
}

func (m *Metrics) ObserveSinkRetry(stream string) {
	if m == nil {
		return
	}
	m.sinkRetries.WithLabelValues(stream).Inc()
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	if v.IsUint64() {
		return float64(v.Uint64())
	}
	f, _ := v.ToBig().Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}
