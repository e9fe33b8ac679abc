package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/AccessPass/app/controllers"
	"github.com/ManuelReschke/AccessPass/internal/pkg/constants"
)

type PaymentRouter struct {
	deps Dependencies
}

func (h PaymentRouter) InstallRouter(app *fiber.App) {
	payments := h.deps.Payments

	app.Post(constants.CreatePaymentSessionRoute, payments.HandleCreatePaymentSession)
	app.Post(constants.CreatePaymentIntentRoute, payments.HandleCreatePaymentSession)

	// Processor webhook (signature-verified in the service)
	app.Post(constants.WebhookRoute, payments.HandleWebhook)

	useAccess := []fiber.Handler{}
	if h.deps.UseAccessRateLimit > 0 {
		useAccess = append(useAccess, h.useAccessLimiter())
	}
	useAccess = append(useAccess, payments.HandleUseAccess)
	app.Post(constants.UseAccessRoute, useAccess...)
}

func (h PaymentRouter) useAccessLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          h.deps.UseAccessRateLimit,
		Expiration:   time.Minute,
		KeyGenerator: controllers.ClientIP,
		Storage:      h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	})
}

func NewPaymentRouter(deps Dependencies) *PaymentRouter {
	return &PaymentRouter{deps: deps}
}
