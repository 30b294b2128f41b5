// Package metrics holds the Prometheus collectors for graph loads and
// question answering, and serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanjuz-cas/llm-kg-project/pkg/mid"
)

const namespace = "amrgraph"

// DefaultBuckets are latency buckets in seconds.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics is the set of collectors shared by the loader and the Q&A chain.
// Each instance owns its registry so tests never collide.
type Metrics struct {
	Registry *prometheus.Registry

	RowsLoaded  prometheus.Counter
	RowsSkipped prometheus.Counter
	RowErrors   prometheus.Counter
	GenesLinked prometheus.Counter
	RowDuration prometheus.Histogram

	Questions   *prometheus.CounterVec
	LLMDuration *prometheus.HistogramVec
	CypherRows  prometheus.Histogram
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "rows_loaded_total",
			Help: "Records written to the graph.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "rows_skipped_total",
			Help: "Rows dropped for a missing patient id.",
		}),
		RowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "row_errors_total",
			Help: "Records whose write transaction failed.",
		}),
		GenesLinked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "genes_linked_total",
			Help: "HAS_GENE links merged.",
		}),
		RowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "row_duration_seconds",
			Help: "Time to write one record.", Buckets: DefaultBuckets,
		}),
		Questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "qa", Name: "questions_total",
			Help: "Questions answered, by result.",
		}, []string{"result"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "qa", Name: "llm_duration_seconds",
			Help: "LLM round trip latency, by step.", Buckets: DefaultBuckets,
		}, []string{"step"}),
		CypherRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "qa", Name: "cypher_rows",
			Help:    "Rows returned by generated Cypher statements.",
			Buckets: prometheus.LinearBuckets(0, 2, 6),
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RowsLoaded, m.RowsSkipped, m.RowErrors, m.GenesLinked, m.RowDuration,
		m.Questions, m.LLMDuration, m.CypherRows,
	)
	return m
}

// ObserveLLM records the latency of one LLM step since start.
func (m *Metrics) ObserveLLM(step string, start time.Time) {
	m.LLMDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(context.Context) error

// Mux returns a mux with /metrics and, when health is non-nil, /healthz.
func (m *Metrics) Mux(health HealthFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	if health != nil {
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		})
	}
	return mux
}

// Serve runs the metrics server on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger, health HealthFunc) error {
	srv := &http.Server{
		Addr: addr,
		Handler: mid.Chain(m.Mux(health),
			mid.Recover(logger),
			mid.OTel("metrics"),
			mid.Logger(logger),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()
	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeAsync runs Serve in a goroutine and logs its error.
func (m *Metrics) ServeAsync(ctx context.Context, addr string, logger *slog.Logger, health HealthFunc) {
	go func() {
		if err := m.Serve(ctx, addr, logger, health); err != nil {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
}
