package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ConstructStripeEvent verifies the Stripe-Signature header against the raw
// body and decodes the event. Signature problems map to ErrInvalidSignature,
// anything else the SDK rejects maps to ErrInvalidPayload.
func ConstructStripeEvent(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return stripe.Event{}, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return event, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
