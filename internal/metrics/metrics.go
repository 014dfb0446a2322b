package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics хранит счётчики сервиса тендеров.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	TenderTransitions *prometheus.CounterVec
	BidsSubmitted     prometheus.Counter
	BidConflicts      prometheus.Counter
	Notifications     *prometheus.CounterVec
	NotifyQueueDepth  prometheus.Gauge
}

// New регистрирует метрики в переданном регистре.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tender_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tender_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		TenderTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tender_service",
			Subsystem: "tender",
			Name:      "transitions_total",
			Help:      "Total number of applied tender status transitions.",
		}, []string{"from", "to"}),
		BidsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tender_service",
			Subsystem: "bid",
			Name:      "submitted_total",
			Help:      "Total number of accepted bids.",
		}),
		BidConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tender_service",
			Subsystem: "bid",
			Name:      "conflicts_total",
			Help:      "Total number of rejected duplicate bids.",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tender_service",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of notification tasks by outcome.",
		}, []string{"outcome"}), // outcome: delivered, failed_store, failed_publish, dropped
		NotifyQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tender_service",
			Subsystem: "notify",
			Name:      "in_flight",
			Help:      "Number of notification tasks currently queued or running.",
		}),
	}
}
