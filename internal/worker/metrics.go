package worker

import "github.com/prometheus/client_golang/prometheus"

// Result labels.
const (
	resultOK       = "ok"
	resultError    = "error"
	resultConflict = "conflict"
	resultFormat   = "format_error"
)

// Metrics holds the sync worker's Prometheus collectors.
type Metrics struct {
	Pulls         *prometheus.CounterVec
	Pushes        *prometheus.CounterVec
	Merges        prometheus.Counter
	Duration      *prometheus.HistogramVec
	RemoteVersion prometheus.Gauge
	Revision      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Pulls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carpool_sync_pulls_total",
				Help: "Remote fetches by result",
			},
			[]string{"result"},
		),
		Pushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carpool_sync_pushes_total",
				Help: "Remote saves by result",
			},
			[]string{"result"},
		),
		Merges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "carpool_sync_merges_total",
				Help: "Remote snapshots merged into the local ledger",
			},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carpool_sync_duration_seconds",
				Help:    "Duration of pull and push exchanges in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		RemoteVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "carpool_sync_remote_version",
				Help: "Last remote document version seen",
			},
		),
		Revision: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "carpool_ledger_saved_revision",
				Help: "Last local revision pushed to the remote",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Pulls, m.Pushes, m.Merges, m.Duration, m.RemoteVersion, m.Revision)
	}
	return m
}
