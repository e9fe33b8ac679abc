package migrations_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AccessPass/app/models"
	"github.com/ManuelReschke/AccessPass/internal/pkg/billing"
	"github.com/ManuelReschke/AccessPass/internal/pkg/database"
	"github.com/ManuelReschke/AccessPass/migrations"
)

func TestSQLiteMigrationsMatchModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.db")

	source, err := iofs.New(migrations.FS, "sqlite")
	require.NoError(t, err)
	m, err := migrate.NewWithSourceInstance("iofs", source, "sqlite3://"+path+"?_foreign_keys=on")
	require.NoError(t, err)
	require.NoError(t, m.Up())
	assert.True(t, errors.Is(m.Up(), migrate.ErrNoChange))
	sourceErr, dbErr := m.Close()
	require.NoError(t, sourceErr)
	require.NoError(t, dbErr)

	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := billing.NewRepository(db)
	require.NoError(t, repo.RecordPayment(context.Background(),
		&models.Payment{ID: "pi_migrated", Email: "bob@x.com", Status: models.PaymentStatusPaid},
		&models.AccessGrant{Email: "bob@x.com"},
	))
	err = repo.RecordPayment(context.Background(),
		&models.Payment{ID: "pi_migrated", Email: "bob@x.com", Status: models.PaymentStatusPaid},
		&models.AccessGrant{Email: "bob@x.com"},
	)
	assert.ErrorIs(t, err, billing.ErrDuplicateEvent)

	granted, _, err := repo.ConsumeGrant(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestMigrationsAreEmbeddedForEveryDriver(t *testing.T) {
	for _, dir := range []string{"mysql", "sqlite"} {
		entries, err := migrations.FS.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 4, dir)
	}
}
