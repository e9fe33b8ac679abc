package models

import "time"

// AccessGrant is a single-use permission issued for exactly one payment.
// Used flips from false to true once and is never reset.
type AccessGrant struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	PaymentID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_accesses_payment_id" json:"payment_id"`
	Payment   Payment    `gorm:"foreignKey:PaymentID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
	Email     string     `gorm:"type:varchar(200);not null;index:idx_accesses_email_used,priority:1" json:"email"`
	Used      bool       `gorm:"not null;default:false;index:idx_accesses_email_used,priority:2" json:"used"`
	UsedAt    *time.Time `gorm:"type:timestamp;default:null" json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (AccessGrant) TableName() string {
	return "accesses"
}
