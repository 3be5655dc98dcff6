// Package telemetry exposes Prometheus counters for the pipeline
// orchestration paths.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	StreamConnects     = prometheus.NewCounter(prometheus.CounterOpts{Name: "talentflow_stream_connects_total", Help: "SSE stream subscriptions opened"})
	StreamReconnects   = prometheus.NewCounter(prometheus.CounterOpts{Name: "talentflow_stream_reconnects_total", Help: "SSE stream reconnect attempts after transport errors"})
	PollAttempts       = prometheus.NewCounter(prometheus.CounterOpts{Name: "talentflow_poll_attempts_total", Help: "Upload-status polling attempts"})
	CanonicalRefetches = prometheus.NewCounter(prometheus.CounterOpts{Name: "talentflow_canonical_refetches_total", Help: "Canonical pipeline re-fetches after terminal signals"})
	JobsEnqueued       = prometheus.NewCounter(prometheus.CounterOpts{Name: "talentflow_jobs_enqueued_total", Help: "Extraction jobs enqueued"})
	RetriesIssued      = prometheus.NewCounter(prometheus.CounterOpts{Name: "talentflow_retries_issued_total", Help: "Extraction retries requested"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			StreamConnects,
			StreamReconnects,
			PollAttempts,
			CanonicalRefetches,
			JobsEnqueued,
			RetriesIssued,
		)
	})
	return promhttp.Handler()
}
