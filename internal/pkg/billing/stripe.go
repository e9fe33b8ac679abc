package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeSessionCreator creates PaymentIntents or hosted Checkout Sessions.
type StripeSessionCreator struct {
	cfg Config
	api *client.API
}

// NewStripeSessionCreator builds a creator on the default Stripe backends.
// backends may be nil; tests point it at a local server.
func NewStripeSessionCreator(cfg Config, backends *stripe.Backends) *StripeSessionCreator {
	s := &StripeSessionCreator{cfg: cfg}
	if cfg.SecretKey != "" {
		s.api = client.New(cfg.SecretKey, backends)
	}
	return s
}

func (s *StripeSessionCreator) CreateSession(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	if s.api == nil {
		return nil, &PaymentProviderError{
			Message: "payment provider is not configured",
			Err:     errors.New("STRIPE_SECRET_KEY is not configured"),
		}
	}

	switch s.cfg.mode() {
	case SessionModeIntent:
		return s.createPaymentIntent(ctx, req)
	case SessionModeCheckout:
		return s.createCheckoutSession(ctx, req)
	default:
		return nil, &PaymentProviderError{
			Message: "payment provider is not configured",
			Err:     fmt.Errorf("unknown PAYMENT_SESSION_MODE %q", s.cfg.Mode),
		}
	}
}

func (s *StripeSessionCreator) createPaymentIntent(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(req.Amount),
		Currency:     stripe.String(s.cfg.currency()),
		ReceiptEmail: stripe.String(req.Email),
	}
	params.Context = ctx
	params.AddMetadata(metadataEmailKey, req.Email)
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, newProviderError(err)
	}
	if strings.TrimSpace(pi.ClientSecret) == "" {
		return nil, &PaymentProviderError{
			Message: "payment provider returned no client secret",
			Err:     fmt.Errorf("payment intent %s without client_secret", pi.ID),
		}
	}
	return &PaymentSession{
		Reference: pi.ClientSecret,
		SessionID: pi.ID,
		Mode:      SessionModeIntent,
	}, nil
}

func (s *StripeSessionCreator) createCheckoutSession(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	if s.cfg.SuccessURL == "" || s.cfg.CancelURL == "" {
		return nil, &PaymentProviderError{
			Message: "payment provider is not configured",
			Err:     errors.New("PAYMENT_SUCCESS_URL/PAYMENT_CANCEL_URL are required for checkout mode"),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(s.cfg.SuccessURL),
		CancelURL:     stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.cfg.currency()),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(s.cfg.productName()),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ReceiptEmail: stripe.String(req.Email),
			Metadata:     map[string]string{metadataEmailKey: req.Email},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataEmailKey, req.Email)
	params.SetIdempotencyKey(uuid.NewString())

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, newProviderError(err)
	}
	if strings.TrimSpace(cs.URL) == "" {
		return nil, &PaymentProviderError{
			Message: "payment provider returned no checkout url",
			Err:     fmt.Errorf("checkout session %s without url", cs.ID),
		}
	}
	return &PaymentSession{
		Reference: cs.URL,
		SessionID: cs.ID,
		Mode:      SessionModeCheckout,
	}, nil
}
