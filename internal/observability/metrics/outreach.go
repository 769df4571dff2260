package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutreachMetrics are the scrape-side dispatch signals.
type OutreachMetrics struct {
	batches           *prometheus.CounterVec
	items             *prometheus.CounterVec
	sendDuration      *prometheus.HistogramVec
	recordingFailures *prometheus.CounterVec
}

func NewOutreachMetrics(registerer prometheus.Registerer, cfg Config) *OutreachMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": cfg.serviceName(),
		"env":     environment,
	}

	m := &OutreachMetrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "outreach_batches_total",
			Help:        "Dispatch batches started by stage.",
			ConstLabels: constLabels,
		}, []string{"stage"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "outreach_dispatch_items_total",
			Help:        "Dispatch item outcomes by stage and status.",
			ConstLabels: constLabels,
		}, []string{"stage", "status"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "outreach_send_duration_seconds",
			Help:        "Latency of the external email send call.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"stage"}),
		recordingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "outreach_recording_failures_total",
			Help:        "Emails delivered whose stage marker could not be recorded.",
			ConstLabels: constLabels,
		}, []string{"stage"}),
	}

	registerer.MustRegister(m.batches, m.items, m.sendDuration, m.recordingFailures)
	return m
}

func (m *OutreachMetrics) ObserveBatch(stage string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(stage).Inc()
}

func (m *OutreachMetrics) ObserveItem(stage, status string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(stage, status).Inc()
}

func (m *OutreachMetrics) ObserveSend(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sendDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *OutreachMetrics) ObserveRecordingFailure(stage string) {
	if m == nil {
		return
	}
	m.recordingFailures.WithLabelValues(stage).Inc()
}
