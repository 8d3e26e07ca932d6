// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "veliger"

// Metrics implements the codec observer and records engine outcomes.
type Metrics struct {
	imports          *prometheus.CounterVec
	commits          *prometheus.CounterVec
	codecReads       *prometheus.CounterVec
	codecWrites      *prometheus.CounterVec
	pending          prometheus.Gauge
	records          prometheus.Gauge
	snapshotDuration prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Import attempts by outcome.",
		}, []string{"outcome"}),
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Assets written back by outcome.",
		}, []string{"outcome"}),
		codecReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codec_reads_total",
			Help:      "Metadata reads by asset kind and whether they degraded to defaults.",
		}, []string{"kind", "degraded"}),
		codecWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codec_writes_total",
			Help:      "Metadata writes by asset kind and outcome.",
		}, []string{"kind", "outcome"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_assets",
			Help:      "Assets with edits not yet written back.",
		}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Entries in the catalog.",
		}),
		snapshotDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent saving the cache snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveRead(kind string, degraded bool) {
	if m == nil {
		return
	}
	d := "false"
	if degraded {
		d = "true"
	}
	m.codecReads.WithLabelValues(kind, d).Inc()
}

func (m *Metrics) ObserveWrite(kind string, err error) {
	if m == nil {
		return
	}
	m.codecWrites.WithLabelValues(kind, outcome(err)).Inc()
}

// Import outcomes.
const (
	ImportNew         = "new"
	ImportDuplicate   = "duplicate"
	ImportAmbiguous   = "ambiguous"
	ImportUnsupported = "unsupported"
	ImportFailed      = "failed"
)

func (m *Metrics) Import(result string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(result).Inc()
}

func (m *Metrics) Commit(written int, err error) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues("ok").Add(float64(written))
	if err != nil {
		m.commits.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) State(records, pending int) {
	if m == nil {
		return
	}
	m.records.Set(float64(records))
	m.pending.Set(float64(pending))
}

func (m *Metrics) Snapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotDuration.Observe(d.Seconds())
}

// IsAlreadyRegistered reports whether err comes from registering the same
// collectors twice.
func IsAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
