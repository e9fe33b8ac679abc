package billing

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AccessPass/app/models"
	"github.com/ManuelReschke/AccessPass/internal/pkg/database"
)

const testWebhookSecret = "whsec_test_secret"

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

func signHeader(t *testing.T, payload []byte, secret string) string {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func paymentIntentSucceeded(eventID, paymentID, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": %q,
				"object": "payment_intent",
				"amount": 500,
				"currency": "usd",
				"status": "succeeded",
				"receipt_email": %q
			}
		}
	}`, eventID, paymentID, email))
}

func countRows(t *testing.T, db *gorm.DB) (payments, grants int64) {
	t.Helper()

	require.NoError(t, db.Model(&models.Payment{}).Count(&payments).Error)
	require.NoError(t, db.Model(&models.AccessGrant{}).Count(&grants).Error)
	return payments, grants
}

type fakeSessionCreator struct {
	mu      sync.Mutex
	calls   []PaymentRequest
	session *PaymentSession
	err     error
}

func (f *fakeSessionCreator) CreateSession(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}
