package constants

// Public payment routes
const (
	CreatePaymentSessionRoute = "/create-payment-session"
	// Path used by the first clients, kept as an alias
	CreatePaymentIntentRoute = "/create-payment-intent"
	WebhookRoute             = "/webhook"
	UseAccessRoute           = "/use-access/:email"
)

// Ops routes
const (
	HealthRoute            = "/health"
	MetricsRoute           = "/metrics"
	PrometheusMetricsRoute = "/metrics/prometheus"
	DocsBasePath           = "/docs/api/"
)
