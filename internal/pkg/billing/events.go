package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

const metadataEmailKey = "email"

// ParsePaymentConfirmation extracts the payment id and payer email from a
// successful-payment event. ok is false for event kinds that do not confirm
// a payment; those are acknowledged without side effects.
func ParsePaymentConfirmation(event stripe.Event) (*PaymentConfirmation, bool, error) {
	if event.Data == nil {
		return nil, false, fmt.Errorf("%w: event %s has no data", ErrInvalidPayload, event.ID)
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, false, fmt.Errorf("%w: decode payment_intent: %v", ErrInvalidPayload, err)
		}
		return &PaymentConfirmation{
			PaymentID: strings.TrimSpace(pi.ID),
			Email:     NormalizeEmail(firstNonEmpty(pi.ReceiptEmail, pi.Metadata[metadataEmailKey])),
		}, true, nil

	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, false, fmt.Errorf("%w: decode checkout.session: %v", ErrInvalidPayload, err)
		}
		// Async payment methods complete the session before the money arrives.
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil, false, nil
		}
		// Keyed by the PaymentIntent so a payment_intent.succeeded for the
		// same charge deduplicates against this one.
		paymentID := ""
		if cs.PaymentIntent != nil {
			paymentID = cs.PaymentIntent.ID
		}
		detailsEmail := ""
		if cs.CustomerDetails != nil {
			detailsEmail = cs.CustomerDetails.Email
		}
		return &PaymentConfirmation{
			PaymentID: strings.TrimSpace(paymentID),
			Email:     NormalizeEmail(firstNonEmpty(detailsEmail, cs.CustomerEmail, cs.Metadata[metadataEmailKey])),
		}, true, nil

	default:
		return nil, false, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
