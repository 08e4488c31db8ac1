package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Order lifecycle counters, exported on the Prometheus endpoint.
var (
	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "middlemark",
		Name:      "orders_submitted_total",
		Help:      "Orders accepted through the intake form.",
	})

	PaymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "middlemark",
		Name:      "payments_confirmed_total",
		Help:      "Orders whose escrow payment was confirmed.",
	})

	FundsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "middlemark",
		Name:      "funds_released_total",
		Help:      "Orders whose escrow funds were released to the seller.",
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "middlemark",
		Name:      "notification_failures_total",
		Help:      "Lifecycle notifications that could not be delivered.",
	})
)
