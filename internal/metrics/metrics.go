// Package metrics holds the Prometheus counters/gauges exported on
// /metrics (DOMAIN STACK's client_golang wiring): real
// prometheus.Counter/Gauge types, not ad hoc integers. INFO does not read
// them; it renders its fields from the store and server directly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of registered counters/gauges. Of these, the server
// updates only ConnectedClients; the others stay at zero. All fields are
// safe for concurrent use (Prometheus types are).
type Metrics struct {
	CommandsProcessed prometheus.Counter
	ConnectedClients  prometheus.Gauge
	ExpiredKeys       prometheus.Counter
	EvictedKeys       prometheus.Counter
	UsedMemoryBytes   prometheus.Gauge
	KeyspaceHits      prometheus.Counter
	KeyspaceMisses    prometheus.Counter

	registry *prometheus.Registry
}

// New constructs and registers every metric against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redust",
			Name:      "commands_processed_total",
			Help:      "Total number of commands processed.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redust",
			Name:      "connected_clients",
			Help:      "Number of client connections currently open.",
		}),
		ExpiredKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redust",
			Name:      "expired_keys_total",
			Help:      "Total number of keys removed by TTL expiration.",
		}),
		EvictedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redust",
			Name:      "evicted_keys_total",
			Help:      "Total number of keys removed by the eviction engine.",
		}),
		UsedMemoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redust",
			Name:      "used_memory_bytes",
			Help:      "Approximate resident size of the store.",
		}),
		KeyspaceHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redust",
			Name:      "keyspace_hits_total",
			Help:      "Total number of successful key lookups.",
		}),
		KeyspaceMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redust",
			Name:      "keyspace_misses_total",
			Help:      "Total number of failed key lookups.",
		}),
	}
	reg.MustRegister(
		m.CommandsProcessed, m.ConnectedClients, m.ExpiredKeys,
		m.EvictedKeys, m.UsedMemoryBytes, m.KeyspaceHits, m.KeyspaceMisses,
	)
	return m
}

// Registry returns the registry backing Handler, exposed for tests that
// want to scrape it directly.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
