package controllers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AccessPass/internal/pkg/billing"
)

const requestTimeout = 15 * time.Second

// ============================================================================
// PAYMENT CONTROLLER
// ============================================================================

// PaymentController exposes payment initiation, the processor webhook and
// access consumption over HTTP.
type PaymentController struct {
	svc *billing.Service
}

// NewPaymentController creates a payment controller around a billing service
func NewPaymentController(svc *billing.Service) *PaymentController {
	return &PaymentController{svc: svc}
}

type createPaymentSessionRequest struct {
	Email  string `json:"email"`
	Amount int64  `json:"amount"`
}

// HandleCreatePaymentSession starts a payment and returns the reference the
// client needs to complete it.
func (pc *PaymentController) HandleCreatePaymentSession(c *fiber.Ctx) error {
	var body createPaymentSessionRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	session, err := pc.svc.InitiatePayment(ctx, billing.PaymentRequest{
		Email:  body.Email,
		Amount: body.Amount,
	})
	if err != nil {
		var providerErr *billing.PaymentProviderError
		switch {
		case errors.As(err, &providerErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": providerErr.Message})
		case errors.Is(err, billing.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and a positive amount are required"})
		default:
			fiberlog.Errorf("[Payment] Create session failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "payment_session_failed"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"reference":  session.Reference,
		"session_id": session.SessionID,
		"mode":       session.Mode,
	})
}

// HandleWebhook verifies and records processor notifications. Signature
// checks run against the raw body, so it is copied before fiber reuses it.
func (pc *PaymentController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := pc.svc.ReceiveWebhook(ctx, rawBody, signature)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidSignature):
			fiberlog.Warnf("[Payment] Rejected webhook from %s: %v", c.IP(), err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		case errors.Is(err, billing.ErrInvalidPayload):
			fiberlog.Warnf("[Payment] Rejected webhook payload: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		case errors.Is(err, billing.ErrWebhookSecretMissing):
			fiberlog.Error("[Payment] STRIPE_WEBHOOK_SECRET is not configured, refusing webhook")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "webhook_not_configured"})
		default:
			fiberlog.Errorf("[Payment] Webhook processing failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
		}
	}

	if result.Ignored {
		fiberlog.Debugf("[Payment] Ignored event %s (%s)", result.EventID, result.EventType)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "success"})
}

// HandleUseAccess consumes one access for the email in the path.
func (pc *PaymentController) HandleUseAccess(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		email = c.Params("email")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	granted, err := pc.svc.ConsumeAccess(ctx, email)
	if err != nil {
		fiberlog.Errorf("[Payment] Use access failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "access_lookup_failed"})
	}

	message := "No access available"
	if granted {
		message = "Access granted"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access":  granted,
		"message": message,
	})
}
