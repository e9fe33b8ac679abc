package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AccessPass/app/controllers"
)

// Router registers one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries the controllers and settings the routers need.
type Dependencies struct {
	Payments *controllers.PaymentController
	Health   *controllers.HealthController

	// UseAccessRateLimit is the number of /use-access calls allowed per client
	// and minute. Zero or less disables the limiter.
	UseAccessRateLimit int
	// LimiterStorage may be nil, the limiter then counts in memory.
	LimiterStorage fiber.Storage

	MetricsUser         string
	MetricsPasswordHash string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// Ops routes first so /health and /metrics stay outside any payment middleware.
	setup(app, NewOpsRouter(deps), NewPaymentRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
