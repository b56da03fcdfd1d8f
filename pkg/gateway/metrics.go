package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the gateway's Prometheus instrumentation. A nil *Metrics
// is safe to call methods on, so a Gateway built without metrics (spec
// Non-goals exclude mandating an observability stack) incurs no special
// casing at call sites.
type Metrics struct {
	transfersStarted   prometheus.Counter
	transfersCompleted prometheus.Counter
	transfersAborted   prometheus.Counter
	initFailures       prometheus.Counter
	blocksSent         prometheus.Counter
	notAckedGauge      prometheus.Gauge
}

// NewMetrics registers the gateway's counters and gauges against reg.
// Passing a fresh prometheus.NewRegistry() keeps them isolated for
// tests; passing prometheus.DefaultRegisterer wires them into the
// process-wide /metrics endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transfersStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "loraota_gateway_transfers_started_total",
			Help: "OTA transfers successfully initiated.",
		}),
		transfersCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "loraota_gateway_transfers_completed_total",
			Help: "OTA transfers that reached DoneAck.",
		}),
		transfersAborted: factory.NewCounter(prometheus.CounterOpts{
			Name: "loraota_gateway_transfers_aborted_total",
			Help: "OTA transfers cancelled via Abort.",
		}),
		initFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "loraota_gateway_init_failures_total",
			Help: "InitDownload calls that returned an error.",
		}),
		blocksSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "loraota_gateway_blocks_sent_total",
			Help: "Data blocks transmitted by ContinueDownload.",
		}),
		notAckedGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loraota_gateway_not_acked",
			Help: "Blocks currently outstanding for the active transfer.",
		}),
	}
}

func (m *Metrics) incTransfersStarted() {
	if m != nil {
		m.transfersStarted.Inc()
	}
}

func (m *Metrics) incTransfersCompleted() {
	if m != nil {
		m.transfersCompleted.Inc()
	}
}

func (m *Metrics) incTransfersAborted() {
	if m != nil {
		m.transfersAborted.Inc()
	}
}

func (m *Metrics) incInitFailures() {
	if m != nil {
		m.initFailures.Inc()
	}
}

func (m *Metrics) incBlocksSent() {
	if m != nil {
		m.blocksSent.Inc()
	}
}

func (m *Metrics) setNotAcked(n int) {
	if m != nil {
		m.notAckedGauge.Set(float64(n))
	}
}
