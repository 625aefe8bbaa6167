// Package prom records harvest metrics with the Prometheus client.
//
// Metrics are registered on a private registry so tests and embedders never
// collide with the process-wide default.
package prom

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.HarvestMetrics = (*Recorder)(nil)

const namespace = "ciq"

// Cycle results used as label values.
const (
	ResultSuccess   = "success"
	ResultFailed    = "failed"
	ResultCancelled = "cancelled"
)

// Record kinds used as label values.
const (
	KindRawSaved        = "raw_saved"
	KindRawCreated      = "raw_created"
	KindCatalogUpserted = "catalog_upserted"
	KindCatalogCreated  = "catalog_created"
	KindRecordErrors    = "record_errors"
)

// Recorder implements driven.HarvestMetrics with Prometheus collectors.
type Recorder struct {
	registry    *prometheus.Registry
	cycles      *prometheus.CounterVec
	records     *prometheus.CounterVec
	pages       prometheus.Counter
	retries     prometheus.Counter
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// New creates a recorder with its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "cycles_total",
			Help:      "Harvest cycles by result.",
		}, []string{"result"}),
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "records_total",
			Help:      "Records processed by harvest cycles, by outcome kind.",
		}, []string{"kind"}),
		pages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "pages_total",
			Help:      "Non-empty pages processed by harvest cycles.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Page fetch attempts that were retried.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of harvest cycles.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful harvest cycle.",
		}),
	}
}

// CycleFinished records the outcome and counters of one cycle.
func (r *Recorder) CycleFinished(summary *domain.CycleSummary, err error) {
	result := ResultSuccess
	switch {
	case errors.Is(err, domain.ErrCycleInProgress):
		// Rejected triggers never ran.
		return
	case summary != nil && summary.StopReason == domain.StopCancelled:
		result = ResultCancelled
	case err != nil:
		result = ResultFailed
	}
	r.cycles.WithLabelValues(result).Inc()

	if summary == nil {
		return
	}
	r.records.WithLabelValues(KindRawSaved).Add(float64(summary.RawSaved))
	r.records.WithLabelValues(KindRawCreated).Add(float64(summary.RawCreated))
	r.records.WithLabelValues(KindCatalogUpserted).Add(float64(summary.CatalogUpserted))
	r.records.WithLabelValues(KindCatalogCreated).Add(float64(summary.CatalogCreated))
	r.records.WithLabelValues(KindRecordErrors).Add(float64(summary.RecordErrors))
	r.pages.Add(float64(summary.PagesProcessed))
	r.duration.Observe(summary.Duration().Seconds())

	if result == ResultSuccess {
		ended := summary.EndedAt
		if ended.IsZero() {
			ended = time.Now()
		}
		r.lastSuccess.Set(float64(ended.Unix()))
	}
}

// FetchRetried counts one retried fetch.
func (r *Recorder) FetchRetried(int, int, time.Duration) {
	r.retries.Inc()
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
