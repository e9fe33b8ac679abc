package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AccessPass/app/models"
	"github.com/ManuelReschke/AccessPass/internal/pkg/billing"
	"github.com/ManuelReschke/AccessPass/internal/pkg/database"
)

const testWebhookSecret = "whsec_controller_test"

type stubSessionCreator struct {
	session *billing.PaymentSession
	err     error
}

func (s *stubSessionCreator) CreateSession(ctx context.Context, req billing.PaymentRequest) (*billing.PaymentSession, error) {
	return s.session, s.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "payments.db"))
	require.NoError(t, err)
	require.NoError(t, database.EnsureSchema(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newPaymentApp(t *testing.T, creator billing.SessionCreator, webhookSecret string) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	pc := NewPaymentController(billing.NewService(billing.NewRepository(db), creator, webhookSecret))

	app := fiber.New()
	app.Post("/create-payment-session", pc.HandleCreatePaymentSession)
	app.Post("/webhook", pc.HandleWebhook)
	app.Post("/use-access/:email", pc.HandleUseAccess)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func webhookRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func succeededEvent(eventID, paymentID, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": %q, "object": "payment_intent", "receipt_email": %q}}
	}`, eventID, paymentID, email))
}

func useAccess(t *testing.T, app *fiber.App, email string) (int, map[string]any) {
	t.Helper()
	return doJSON(t, app, httptest.NewRequest(http.MethodPost, "/use-access/"+email, nil))
}

func TestCreatePaymentSession(t *testing.T) {
	creator := &stubSessionCreator{session: &billing.PaymentSession{
		Reference: "pi_9_secret_abc",
		SessionID: "pi_9",
		Mode:      billing.SessionModeIntent,
	}}
	app, _ := newPaymentApp(t, creator, testWebhookSecret)

	req := httptest.NewRequest(http.MethodPost, "/create-payment-session", strings.NewReader(`{"email": "bob@x.com", "amount": 500}`))
	req.Header.Set("Content-Type", "application/json")
	status, body := doJSON(t, app, req)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pi_9_secret_abc", body["reference"])
	assert.Equal(t, "pi_9", body["session_id"])
	assert.Equal(t, "intent", body["mode"])
}

func TestCreatePaymentSessionErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		creator   *stubSessionCreator
		wantError string
	}{
		{
			name:      "malformed body",
			body:      `{"email": `,
			creator:   &stubSessionCreator{},
			wantError: "invalid request body",
		},
		{
			name:      "non-positive amount",
			body:      `{"email": "bob@x.com", "amount": 0}`,
			creator:   &stubSessionCreator{},
			wantError: "email and a positive amount are required",
		},
		{
			name: "provider rejection",
			body: `{"email": "bob@x.com", "amount": 10}`,
			creator: &stubSessionCreator{err: &billing.PaymentProviderError{
				Message: "Amount must be at least $0.50 usd",
				Err:     errors.New("stripe 400"),
			}},
			wantError: "Amount must be at least $0.50 usd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newPaymentApp(t, tt.creator, testWebhookSecret)

			req := httptest.NewRequest(http.MethodPost, "/create-payment-session", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			status, body := doJSON(t, app, req)

			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestWebhookThenUseAccessScenario(t *testing.T) {
	app, db := newPaymentApp(t, &stubSessionCreator{}, testWebhookSecret)

	status, body := doJSON(t, app, webhookRequest(t, succeededEvent("evt_bob", "pi_123", "bob@x.com"), testWebhookSecret))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", body["status"])

	var grant models.AccessGrant
	require.NoError(t, db.First(&grant, "payment_id = ?", "pi_123").Error)
	assert.Equal(t, "bob@x.com", grant.Email)
	assert.False(t, grant.Used)

	status, body = useAccess(t, app, "bob@x.com")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["access"])
	assert.Equal(t, "Access granted", body["message"])

	status, body = useAccess(t, app, "bob@x.com")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["access"])
	assert.Equal(t, "No access available", body["message"])
}

func TestWebhookDuplicateDeliveryAnswersSuccess(t *testing.T) {
	app, db := newPaymentApp(t, &stubSessionCreator{}, testWebhookSecret)
	payload := succeededEvent("evt_twice", "pi_twice", "carol@example.com")

	for i := 0; i < 2; i++ {
		status, body := doJSON(t, app, webhookRequest(t, payload, testWebhookSecret))
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "success", body["status"])
	}

	var grants int64
	require.NoError(t, db.Model(&models.AccessGrant{}).Count(&grants).Error)
	assert.Equal(t, int64(1), grants)
}

func TestWebhookRejections(t *testing.T) {
	payload := succeededEvent("evt_reject", "pi_reject", "mallory@example.com")

	t.Run("wrong secret", func(t *testing.T) {
		app, db := newPaymentApp(t, &stubSessionCreator{}, testWebhookSecret)

		status, body := doJSON(t, app, webhookRequest(t, payload, "whsec_attacker"))
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "invalid_signature", body["error"])

		var payments int64
		require.NoError(t, db.Model(&models.Payment{}).Count(&payments).Error)
		assert.Zero(t, payments)
	})

	t.Run("missing header", func(t *testing.T) {
		app, _ := newPaymentApp(t, &stubSessionCreator{}, testWebhookSecret)

		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
		status, body := doJSON(t, app, req)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "invalid_signature", body["error"])
	})

	t.Run("secret not configured", func(t *testing.T) {
		app, _ := newPaymentApp(t, &stubSessionCreator{}, "")

		status, body := doJSON(t, app, webhookRequest(t, payload, testWebhookSecret))
		assert.Equal(t, fiber.StatusServiceUnavailable, status)
		assert.Equal(t, "webhook_not_configured", body["error"])
	})
}

func TestWebhookStoreFailureAsksForRetry(t *testing.T) {
	app, db := newPaymentApp(t, &stubSessionCreator{}, testWebhookSecret)
	require.NoError(t, db.Migrator().DropTable(&models.AccessGrant{}))

	status, body := doJSON(t, app, webhookRequest(t, succeededEvent("evt_fail", "pi_fail", "dan@example.com"), testWebhookSecret))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "webhook_persist_failed", body["error"])
}

func TestUseAccessDecodesPathEmail(t *testing.T) {
	app, _ := newPaymentApp(t, &stubSessionCreator{}, testWebhookSecret)
	_, _ = doJSON(t, app, webhookRequest(t, succeededEvent("evt_plus", "pi_plus", "ann+news@example.com"), testWebhookSecret))

	status, body := useAccess(t, app, "ann%2Bnews%40example.com")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["access"])
}

func TestUseAccessUnknownEmail(t *testing.T) {
	app, _ := newPaymentApp(t, &stubSessionCreator{}, testWebhookSecret)

	status, body := useAccess(t, app, "nobody@example.com")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["access"])
	assert.Equal(t, "No access available", body["message"])
}
