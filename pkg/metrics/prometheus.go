package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the monitoring pipeline's counters and histograms.
// All metrics share the sleuth_ prefix and low-cardinality labels.
type Recorder struct {
	anomalies      *prometheus.CounterVec
	anomalyScore   *prometheus.GaugeVec
	investigations *prometheus.CounterVec
	confidence     *prometheus.GaugeVec
	errs           *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	return &Recorder{
		anomalies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sleuth_anomalies_total",
				Help: "Triggered anomaly signals per symbol",
			},
			[]string{"symbol"},
		),
		anomalyScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sleuth_anomaly_score",
				Help: "Most recent anomaly score per symbol",
			},
			[]string{"symbol"},
		),
		investigations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sleuth_investigations_total",
				Help: "Completed investigations by terminal status",
			},
			[]string{"status"},
		),
		confidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sleuth_investigation_confidence",
				Help: "Most recent aggregated confidence per symbol",
			},
			[]string{"symbol"},
		),
		errs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sleuth_errors_total",
				Help: "Pipeline errors by kind",
			},
			[]string{"kind"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sleuth_operation_seconds",
				Help:    "Operation latency by stage",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"op"},
		),
	}
}

func (r *Recorder) RecordAnomaly(symbol string, score float64) {
	r.anomalies.WithLabelValues(symbol).Inc()
	r.anomalyScore.WithLabelValues(symbol).Set(score)
}

func (r *Recorder) RecordInvestigation(status string) {
	r.investigations.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordConfidence(symbol string, confidence float64) {
	r.confidence.WithLabelValues(symbol).Set(confidence)
}

func (r *Recorder) RecordError(kind string) {
	r.errs.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
