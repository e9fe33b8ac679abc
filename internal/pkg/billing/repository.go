package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/AccessPass/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	// RecordPayment inserts the payment and its grant atomically. It returns
	// ErrDuplicateEvent when the payment id is already stored.
	RecordPayment(ctx context.Context, payment *models.Payment, grant *models.AccessGrant) error
	// ConsumeGrant marks one unused grant for the email as used. It reports
	// false with a nil grant when none is available.
	ConsumeGrant(ctx context.Context, email string) (bool, *models.AccessGrant, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) RecordPayment(ctx context.Context, payment *models.Payment, grant *models.AccessGrant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(payment)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicateEvent
		}

		grant.PaymentID = payment.ID
		if err := tx.Omit(clause.Associations).Create(grant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEvent
			}
			return err
		}
		return nil
	})
}

func (r *gormRepository) ConsumeGrant(ctx context.Context, email string) (bool, *models.AccessGrant, error) {
	db := r.db.WithContext(ctx)
	for {
		var candidates []models.AccessGrant
		if err := db.Where("email = ? AND used = ?", email, false).
			Order("id").
			Limit(1).
			Find(&candidates).Error; err != nil {
			return false, nil, err
		}
		if len(candidates) == 0 {
			return false, nil, nil
		}

		// The used = false guard makes the update a compare-and-set: a
		// concurrent consumer that already flipped this row leaves zero rows
		// affected here and we move on to the next candidate.
		grant := candidates[0]
		now := time.Now()
		res := db.Model(&models.AccessGrant{}).
			Where("id = ? AND used = ?", grant.ID, false).
			Updates(map[string]interface{}{
				"used":    true,
				"used_at": &now,
			})
		if res.Error != nil {
			return false, nil, res.Error
		}
		if res.RowsAffected == 1 {
			grant.Used = true
			grant.UsedAt = &now
			return true, &grant, nil
		}
	}
}
