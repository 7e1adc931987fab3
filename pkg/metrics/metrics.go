package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores the Prometheus collectors shared by every service.
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	LedgerOps     *prometheus.CounterVec
	SweeperItems  *prometheus.CounterVec
	WebhookEvents *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	InboxDelivery *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton. The namespace of
// the first call wins.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by service, method, route and status.",
			}, []string{"service", "method", "route", "status"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"service", "method", "route"}),
			LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Ledger balance mutations by operation and result.",
			}, []string{"op", "result"}),
			SweeperItems: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeper_items_total",
				Help:      "Listings touched by the expiry sweeper, by job.",
			}, []string{"job"}),
			WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Payment webhook deliveries by provider and result.",
			}, []string{"provider", "result"}),
			Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Notification tasks published to the queue by type and result.",
			}, []string{"type", "result"}),
			InboxDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_delivered_total",
				Help:      "Notification tasks consumed into user inboxes by type and result.",
			}, []string{"type", "result"}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.LedgerOps,
			metricsInstance.SweeperItems,
			metricsInstance.WebhookEvents,
			metricsInstance.Notifications,
			metricsInstance.InboxDelivery,
		)
	})
	return metricsInstance
}
