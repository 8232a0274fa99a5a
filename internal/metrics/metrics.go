package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_callbacks_total",
		Help: "Inbound provider callbacks by provider and outcome",
	}, []string{"provider", "outcome"})

	CallbackLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_callback_duration_seconds",
		Help:    "Callback processing latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"provider"})

	WebhookAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_attempts_total",
		Help: "Outbound webhook delivery attempts by result",
	}, []string{"result"})

	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_deliveries_total",
		Help: "Completed webhook dispatch invocations by final result",
	}, []string{"result"})
)
