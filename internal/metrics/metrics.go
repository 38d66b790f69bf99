// Package metrics exposes Prometheus instrumentation for the warehouse path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Recorder records warehouse connection, query and probe metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	connectAttempts *prometheus.CounterVec
	queries         *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	rowsReturned    prometheus.Histogram
	warehouseUp     prometheus.Gauge
	probes          *prometheus.CounterVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors registered.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_warehouse_connect_attempts_total",
			Help: "Warehouse handle creation attempts by result.",
		}, []string{"result"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_forecast_queries_total",
			Help: "Forecast table reads by result kind.",
		}, []string{"result"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_forecast_query_duration_seconds",
			Help:    "Duration of forecast table reads, including handle acquisition.",
			Buckets: prometheus.DefBuckets,
		}),
		rowsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_forecast_rows",
			Help:    "Rows returned per successful forecast read.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		warehouseUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_warehouse_up",
			Help: "1 if the last warehouse probe succeeded, 0 otherwise.",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_warehouse_probes_total",
			Help: "Warehouse probes by status.",
		}, []string{"status"}),
	}

	registry.MustRegister(
		r.connectAttempts,
		r.queries,
		r.queryDuration,
		r.rowsReturned,
		r.warehouseUp,
		r.probes,
	)
	return r
}

// ConnectAttempt records one handle creation attempt.
func (r *Recorder) ConnectAttempt(err error) {
	r.connectAttempts.WithLabelValues(result(err)).Inc()
}

// Query records one forecast read. kind is empty on success.
func (r *Recorder) Query(kind string, rows int, elapsed time.Duration) {
	r.queryDuration.Observe(elapsed.Seconds())
	if kind == "" {
		r.queries.WithLabelValues(resultSuccess).Inc()
		r.rowsReturned.Observe(float64(rows))
		return
	}
	r.queries.WithLabelValues(kind).Inc()
}

// Probe records one warehouse probe outcome.
func (r *Recorder) Probe(status string, up bool) {
	r.probes.WithLabelValues(status).Inc()
	if up {
		r.warehouseUp.Set(1)
	} else {
		r.warehouseUp.Set(0)
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}
