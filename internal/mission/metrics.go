package mission

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the mission loop's counters. They are cheap enough to keep
// even when no metrics listener is configured.
type Metrics struct {
	Ticks          prometheus.Counter
	FetchFailures  prometheus.Counter
	TunnelRespawns prometheus.Counter
}

// NewMetrics creates and registers the mission counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "primehunt",
			Name:      "mission_ticks_total",
			Help:      "Dashboard poll ticks performed this mission.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "primehunt",
			Name:      "status_fetch_failures_total",
			Help:      "Status fetches that gave up and returned the sentinel.",
		}),
		TunnelRespawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "primehunt",
			Name:      "tunnel_respawns_total",
			Help:      "Cold replacements of the web UI tunnel.",
		}),
	}
	reg.MustRegister(m.Ticks, m.FetchFailures, m.TunnelRespawns)
	return m
}
