package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "accesspass"

var (
	// SessionsCreated counts payment session attempts by mode and outcome.
	SessionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_sessions_total",
		Help:      "Payment sessions requested from the processor.",
	}, []string{"mode", "outcome"})

	// WebhookEvents counts webhook deliveries by event type and outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Processor webhook deliveries.",
	}, []string{"type", "outcome"})

	// AccessConsumed counts consume attempts by result.
	AccessConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_consume_total",
		Help:      "Access consume attempts.",
	}, []string{"granted"})
)

// Outcome labels shared by the counters.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeRecorded  = "recorded"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
