// Package metrics collects per-run Prometheus metrics for the cover pipeline.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cover acquisition outcomes.
const (
	CoverCacheHit   = "cache_hit"
	CoverDownloaded = "downloaded"
	CoverFailed     = "failed"
)

// Metrics holds the collectors for one run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	CoversTotal      *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	BytesDownloaded  prometheus.Counter
	SignaturesTotal  *prometheus.CounterVec
	CoversByClass    *prometheus.CounterVec
	RecordsAssembled prometheus.Gauge
	LastRunSeconds   prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CoversTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coverspectrum_covers_total",
				Help: "Cover acquisitions by outcome.",
			},
			[]string{"result"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coverspectrum_fetch_duration_seconds",
				Help:    "Duration of cover downloads.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverspectrum_downloaded_bytes_total",
			Help: "Bytes of cover images written to the cache.",
		}),
		SignaturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coverspectrum_signatures_total",
				Help: "Color signatures computed by status.",
			},
			[]string{"status"},
		),
		CoversByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coverspectrum_covers_classified_total",
				Help: "Covers by brightness class.",
			},
			[]string{"class"},
		),
		RecordsAssembled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coverspectrum_records",
			Help: "Cover records produced by the last run.",
		}),
		LastRunSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coverspectrum_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}

	m.Registry.MustRegister(
		m.CoversTotal,
		m.FetchDuration,
		m.BytesDownloaded,
		m.SignaturesTotal,
		m.CoversByClass,
		m.RecordsAssembled,
		m.LastRunSeconds,
	)
	return m
}

// Cover records an acquisition outcome.
func (m *Metrics) Cover(result string) {
	if m == nil {
		return
	}
	m.CoversTotal.WithLabelValues(result).Inc()
}

// Fetch records one HTTP download attempt. status is the HTTP status code,
// or 0 when no response was received.
func (m *Metrics) Fetch(status int, d time.Duration, bytes int64) {
	if m == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = fmt.Sprintf("%d", status)
	}
	m.FetchDuration.WithLabelValues(label).Observe(d.Seconds())
	if bytes > 0 {
		m.BytesDownloaded.Add(float64(bytes))
	}
}

// Signature records a computed signature status.
func (m *Metrics) Signature(status string) {
	if m == nil {
		return
	}
	m.SignaturesTotal.WithLabelValues(status).Inc()
}

// Class records a brightness verdict ("dark", "light" or "unclassified").
func (m *Metrics) Class(class string) {
	if m == nil {
		return
	}
	m.CoversByClass.WithLabelValues(class).Inc()
}

// Finish records the size of the run's output and its completion time.
func (m *Metrics) Finish(records int, now time.Time) {
	if m == nil {
		return
	}
	m.RecordsAssembled.Set(float64(records))
	m.LastRunSeconds.Set(float64(now.Unix()))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
