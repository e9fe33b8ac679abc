package models

import "time"

// PaymentStatusPaid is the only status ever written; rows exist only for
// confirmed charges.
const PaymentStatusPaid = "paid"

// Payment records a charge the processor confirmed. The ID is the processor's
// identifier (a Stripe PaymentIntent id), which makes webhook redelivery
// collide on the primary key.
type Payment struct {
	ID        string    `gorm:"primaryKey;type:varchar(191)" json:"id"`
	Email     string    `gorm:"type:varchar(200);not null;index" json:"email"`
	Status    string    `gorm:"type:varchar(20);not null;default:'paid'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
