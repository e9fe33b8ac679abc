package billing

import (
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

var (
	// ErrInvalidRequest is returned when a payment request fails validation.
	ErrInvalidRequest = errors.New("invalid payment request")
	// ErrInvalidPayload means the webhook body could not be decoded.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidSignature means the webhook signature did not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrWebhookSecretMissing blocks webhook processing until a secret is configured.
	ErrWebhookSecretMissing = errors.New("webhook endpoint secret is not configured")
	// ErrDuplicateEvent is returned by the repository when a payment id was
	// already recorded.
	ErrDuplicateEvent = errors.New("payment already recorded")
)

// PaymentProviderError wraps a failed call to the payment processor. Message
// carries the processor's human readable message only and is safe to return
// to clients.
type PaymentProviderError struct {
	Message string
	Err     error
}

func (e *PaymentProviderError) Error() string {
	return "payment provider: " + e.Message
}

func (e *PaymentProviderError) Unwrap() error {
	return e.Err
}

// newProviderError reduces an SDK error to the processor's message. A
// *stripe.Error stringifies to its whole JSON body, so Msg is used instead.
func newProviderError(err error) *PaymentProviderError {
	msg := ""
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		msg = strings.TrimSpace(stripeErr.Msg)
	}
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "payment provider request failed"
	}
	return &PaymentProviderError{Message: msg, Err: err}
}
