package billing

import (
	"strings"

	"github.com/ManuelReschke/AccessPass/internal/pkg/env"
)

const (
	defaultCurrency    = "usd"
	defaultProductName = "Single access"
)

// Config holds the Stripe credentials and session settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	Mode          string
	Currency      string
	ProductName   string
	SuccessURL    string
	CancelURL     string
}

func LoadConfigFromEnv() Config {
	return Config{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		Mode:          strings.ToLower(strings.TrimSpace(env.GetEnv("PAYMENT_SESSION_MODE", SessionModeIntent))),
		Currency:      strings.ToLower(strings.TrimSpace(env.GetEnv("PAYMENT_CURRENCY", defaultCurrency))),
		ProductName:   strings.TrimSpace(env.GetEnv("PAYMENT_PRODUCT_NAME", defaultProductName)),
		SuccessURL:    strings.TrimSpace(env.GetEnv("PAYMENT_SUCCESS_URL", "")),
		CancelURL:     strings.TrimSpace(env.GetEnv("PAYMENT_CANCEL_URL", "")),
	}
}

func (c Config) mode() string {
	if c.Mode == "" {
		return SessionModeIntent
	}
	return c.Mode
}

func (c Config) currency() string {
	if c.Currency == "" {
		return defaultCurrency
	}
	return c.Currency
}

func (c Config) productName() string {
	if c.ProductName == "" {
		return defaultProductName
	}
	return c.ProductName
}
