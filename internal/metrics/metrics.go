package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the order pipeline
var (
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_notifications_total",
			Help: "Customer notification decisions by event and outcome (sent, failed, skipped_*)",
		},
		[]string{"event", "outcome"},
	)

	PaymentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment gateway webhook events by type and outcome",
		},
		[]string{"event", "outcome"},
	)

	TrackingSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_sync_total",
			Help: "Tracking reconciliations by outcome (updated, unchanged, failed)",
		},
		[]string{"outcome"},
	)

	UnmappedCourierStatusTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_unmapped_courier_status_total",
			Help: "Courier status strings that fell back to in_transit",
		},
	)

	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created by payment method and approval result",
		},
		[]string{"method", "approval"},
	)
)

// Register registers all Prometheus metrics with the default registry.
func Register() {
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(PaymentEventsTotal)
	prometheus.MustRegister(TrackingSyncTotal)
	prometheus.MustRegister(UnmappedCourierStatusTotal)
	prometheus.MustRegister(OrdersCreatedTotal)
}
