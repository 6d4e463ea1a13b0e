// Package metrics exposes detection results as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/pkg/types"
)

const namespace = "driftwatch"

// Recorder implements detector.Observer on a private registry
type Recorder struct {
	registry    *prometheus.Registry
	detections  *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	changes     *prometheus.GaugeVec
	costImpact  *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

var _ detector.Observer = (*Recorder)(nil)

// NewRecorder registers the detection metrics and the Go runtime collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Detection runs by environment and status.",
		}, []string{"environment", "status"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "Detection runs that delivered at least one alert.",
		}, []string{"environment"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Wall time of one detection run, scan included.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"environment"}),
		changes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drift_changes",
			Help:      "Scored changes in the latest report by risk level.",
		}, []string{"environment", "risk"}),
		costImpact: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cost_impact_monthly_dollars",
			Help:      "Estimated monthly cost difference in the latest report.",
		}, []string{"environment"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last detection that produced a report.",
		}, []string{"environment"}),
	}

	r.registry.MustRegister(
		r.detections,
		r.alerts,
		r.duration,
		r.changes,
		r.costImpact,
		r.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveDetection records one finished Detect call
func (r *Recorder) ObserveDetection(env, status string, outcome *detector.Outcome, elapsed time.Duration) {
	r.detections.WithLabelValues(env, status).Inc()
	r.duration.WithLabelValues(env).Observe(elapsed.Seconds())

	if outcome == nil || outcome.Report == nil {
		return
	}

	if outcome.AlertSent {
		r.alerts.WithLabelValues(env).Inc()
	}

	dist := outcome.Report.RiskAssessment.RiskDistribution
	for _, level := range types.RiskLevels() {
		r.changes.WithLabelValues(env, string(level)).Set(float64(dist[level]))
	}
	r.costImpact.WithLabelValues(env).Set(outcome.Report.CostImpact.MonthlyImpact)
	r.lastSuccess.WithLabelValues(env).SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
