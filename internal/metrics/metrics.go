package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crazwash_orders_created_total",
		Help: "Total number of orders created through intake",
	})

	OrderIntakeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crazwash_order_intake_failures_total",
		Help: "Total number of rejected order submissions",
	}, []string{"reason"})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crazwash_order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"status"})

	PaymentStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crazwash_payment_status_transitions_total",
		Help: "Total number of payment status transitions",
	}, []string{"status"})

	CustomerUpsertFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crazwash_customer_upsert_failures_total",
		Help: "Orders created without a linked customer because the upsert failed",
	})
)
