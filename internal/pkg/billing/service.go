package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AccessPass/app/models"
	"github.com/ManuelReschke/AccessPass/internal/pkg/metrics"
)

var validate = validator.New()

// Service starts payments, records confirmed payments from webhooks and
// consumes access grants.
type Service struct {
	repo          Repository
	sessions      SessionCreator
	webhookSecret string
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, sessions SessionCreator, webhookSecret string) *Service {
	return &Service{
		repo:          repo,
		sessions:      sessions,
		webhookSecret: webhookSecret,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle and the
// Stripe configuration.
func NewServiceFromDB(db *gorm.DB, cfg Config) *Service {
	return NewService(NewRepository(db), NewStripeSessionCreator(cfg, nil), cfg.WebhookSecret)
}

// Validate checks the request and normalizes the email in place.
func (r *PaymentRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// InitiatePayment asks the processor for a payable session tagged with the
// email and amount.
func (s *Service) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := s.sessions.CreateSession(ctx, req)
	if err != nil {
		metrics.SessionsCreated.WithLabelValues("unknown", metrics.OutcomeFailed).Inc()
		var providerErr *PaymentProviderError
		if !errors.As(err, &providerErr) {
			providerErr = newProviderError(err)
		}
		fiberlog.Warnf("[Billing] Payment session for %s failed: %v", req.Email, providerErr.Err)
		return nil, providerErr
	}
	if session == nil || session.Reference == "" {
		metrics.SessionsCreated.WithLabelValues("unknown", metrics.OutcomeFailed).Inc()
		return nil, &PaymentProviderError{
			Message: "payment provider returned no session reference",
			Err:     errors.New("empty session reference"),
		}
	}

	metrics.SessionsCreated.WithLabelValues(session.Mode, metrics.OutcomeOK).Inc()
	fiberlog.Infof("[Billing] Payment session %s created for %s (%d)", session.SessionID, req.Email, req.Amount)
	return session, nil
}

// ReceiveWebhook verifies a processor notification and, for a successful
// payment, records the payment together with a fresh access grant.
// Redelivery of an already recorded payment is reported as a duplicate,
// not as an error.
func (s *Service) ReceiveWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, err := ConstructStripeEvent(payload, signatureHeader, s.webhookSecret)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", metrics.OutcomeRejected).Inc()
		return nil, err
	}

	eventType := string(event.Type)
	result := &WebhookResult{EventID: event.ID, EventType: eventType}

	confirmation, ok, err := ParsePaymentConfirmation(event)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeRejected).Inc()
		return nil, err
	}
	if !ok {
		result.Ignored = true
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeIgnored).Inc()
		return result, nil
	}
	result.PaymentID = confirmation.PaymentID

	if confirmation.PaymentID == "" || confirmation.Email == "" {
		// Retrying will not add the missing data, so acknowledge and log.
		fiberlog.Warnf("[Billing] Event %s (%s) has no payment id or email, not issuing access", event.ID, eventType)
		result.Ignored = true
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeIgnored).Inc()
		return result, nil
	}

	payment := &models.Payment{
		ID:     confirmation.PaymentID,
		Email:  confirmation.Email,
		Status: models.PaymentStatusPaid,
	}
	grant := &models.AccessGrant{
		Email: confirmation.Email,
		Used:  false,
	}
	if err := s.repo.RecordPayment(ctx, payment, grant); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			result.Duplicate = true
			metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeDuplicate).Inc()
			fiberlog.Infof("[Billing] Payment %s already recorded, event %s acknowledged", payment.ID, event.ID)
			return result, nil
		}
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("record payment %s: %w", payment.ID, err)
	}

	result.Recorded = true
	metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeRecorded).Inc()
	fiberlog.Infof("[Billing] Payment confirmed: %s can use one access (payment %s)", payment.Email, payment.ID)
	return result, nil
}

// ConsumeAccess uses up one unused grant for the email, if any.
func (s *Service) ConsumeAccess(ctx context.Context, email string) (bool, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		metrics.AccessConsumed.WithLabelValues(strconv.FormatBool(false)).Inc()
		return false, nil
	}

	granted, grant, err := s.repo.ConsumeGrant(ctx, normalized)
	if err != nil {
		return false, fmt.Errorf("consume access for %s: %w", normalized, err)
	}
	metrics.AccessConsumed.WithLabelValues(strconv.FormatBool(granted)).Inc()
	if granted {
		fiberlog.Infof("[Billing] Access %d (payment %s) used by %s", grant.ID, grant.PaymentID, normalized)
	}
	return granted, nil
}
