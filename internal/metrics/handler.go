package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler REDUST_METRICS_ADDR serves. The exporter
// is an external collaborator per spec.md — scraping it is out of scope —
// so this is a thin wrapper over promhttp against m's own registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
