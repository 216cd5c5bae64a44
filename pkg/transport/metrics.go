package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the grid repair Prometheus collectors. A Cycler adds to
// RequestsSent on every tick that sends a batch; pkg/grid sets
// FaultyBlocks after each delivered repair and counts TableCallbacks.
// Grouped into one struct and registered together, the way the rest of
// the example pack wires client_golang collectors at construction time
// rather than relying on package-level globals.
type Metrics struct {
	FaultyBlocks   prometheus.Gauge
	RequestsSent   prometheus.Counter
	TableCallbacks *prometheus.CounterVec
}

// NewMetrics builds and registers a fresh Metrics set against reg. Tests
// and examples typically pass prometheus.NewRegistry() to avoid
// colliding with the global default registerer across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FaultyBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grid_repair_faulty_blocks",
			Help: "Current number of faulty blocks tracked by the repair queue.",
		}),
		RequestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grid_repair_requests_sent_total",
			Help: "Total block requests dispatched to peers.",
		}),
		TableCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grid_repair_table_callbacks_total",
			Help: "Total table repair callbacks fired, labeled by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.FaultyBlocks, m.RequestsSent, m.TableCallbacks)
	return m
}
