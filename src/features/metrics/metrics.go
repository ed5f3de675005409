package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the ingest pipeline counters. A nil Recorder is valid
// and records nothing, so tests can wire pipelines without a registry.
type Recorder struct {
	observed     prometheus.Counter
	rejected     prometheus.Counter
	outcomes     *prometheus.CounterVec
	sinkErrors   prometheus.Counter
	ledgerErrors prometheus.Counter
	pending      prometheus.Gauge
}

// NewRecorder registers the ingest metrics on the given registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		observed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediacms_watch_files_observed_total",
			Help: "File observations accepted by the path matcher.",
		}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediacms_watch_files_rejected_total",
			Help: "Paths rejected by the path matcher.",
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacms_watch_imports_total",
			Help: "Terminal import outcomes.",
		}, []string{"outcome"}),
		sinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediacms_watch_sink_errors_total",
			Help: "Failures returned by the ingest sink.",
		}),
		ledgerErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediacms_watch_ledger_errors_total",
			Help: "Durability failures from the import ledger.",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mediacms_watch_pending_files",
			Help: "Files currently tracked between first sight and import decision.",
		}),
	}
}

// FileObserved counts a path accepted into stability tracking.
func (r *Recorder) FileObserved() {
	if r != nil {
		r.observed.Inc()
	}
}

// FileRejected counts a path the matcher turned away.
func (r *Recorder) FileRejected() {
	if r != nil {
		r.rejected.Inc()
	}
}

// OutcomeRecorded counts one terminal import outcome.
func (r *Recorder) OutcomeRecorded(outcome string) {
	if r != nil {
		r.outcomes.WithLabelValues(outcome).Inc()
	}
}

// SinkError counts one sink failure.
func (r *Recorder) SinkError() {
	if r != nil {
		r.sinkErrors.Inc()
	}
}

// LedgerError counts one ledger durability failure.
func (r *Recorder) LedgerError() {
	if r != nil {
		r.ledgerErrors.Inc()
	}
}

// SetPending publishes the current number of tracked pending files.
func (r *Recorder) SetPending(n int) {
	if r != nil {
		r.pending.Set(float64(n))
	}
}
