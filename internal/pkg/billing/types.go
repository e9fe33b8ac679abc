package billing

import (
	"context"
	"strings"
)

// Session modes supported by the Stripe session creator.
const (
	SessionModeIntent   = "intent"
	SessionModeCheckout = "checkout"
)

// PaymentRequest is what a client submits to start paying for access.
// Amount is in minor currency units (cents).
type PaymentRequest struct {
	Email  string `json:"email" validate:"required,email,max=200"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

// PaymentSession is the processor-side session a client completes payment
// against. Reference is a client secret (intent mode) or a hosted checkout
// URL (checkout mode).
type PaymentSession struct {
	Reference string `json:"reference"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

// SessionCreator creates payable sessions at the processor.
type SessionCreator interface {
	CreateSession(ctx context.Context, req PaymentRequest) (*PaymentSession, error)
}

// PaymentConfirmation is the normalized content of a successful-payment
// event.
type PaymentConfirmation struct {
	PaymentID string
	Email     string
}

// WebhookResult reports what a verified webhook delivery did.
type WebhookResult struct {
	EventID   string
	EventType string
	PaymentID string
	Recorded  bool
	Duplicate bool
	Ignored   bool
}

// NormalizeEmail trims and lower-cases an address so writes and lookups agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
