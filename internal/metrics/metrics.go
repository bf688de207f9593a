// Package metrics defines the Prometheus collectors for document extraction
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels. Failures use the docmeta error kind as outcome.
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
)

// Metrics holds the extraction collectors. A nil *Metrics records nothing.
type Metrics struct {
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	UploadSize         prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExtractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractions_total",
				Help: "Total extraction attempts by format and outcome.",
			},
			[]string{"format", "outcome"},
		),
		ExtractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extraction_duration_seconds",
				Help:    "Time spent running the extraction pipeline.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"format"},
		),
		UploadSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "upload_size_bytes",
				Help:    "Size of documents submitted for extraction.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ExtractionsTotal, m.ExtractionDuration, m.UploadSize)

	m.gatherer = prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveExtraction records one pipeline run. format may be empty when the
// upload was rejected before its format was known.
func (m *Metrics) ObserveExtraction(format, outcome string, elapsed time.Duration, size int64) {
	if m == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	m.ExtractionsTotal.WithLabelValues(format, outcome).Inc()
	m.ExtractionDuration.WithLabelValues(format).Observe(elapsed.Seconds())
	m.UploadSize.Observe(float64(size))
}

// Handler returns the scrape handler for the registry the metrics live in.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
