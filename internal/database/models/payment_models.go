package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment is one settlement attempt against an order.
type Payment struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID      string          `gorm:"type:varchar(36);not null;index:idx_payments_tenant_external" json:"tenant_id"`
	LocationID    string          `gorm:"type:varchar(36);not null" json:"location_id"`
	OrderID       string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	IntegrationID *string         `gorm:"type:varchar(36)" json:"integration_id"`
	Provider      Provider        `gorm:"type:varchar(16);not null" json:"provider"`
	Type          IntegrationType `gorm:"type:varchar(16);not null" json:"type"`
	Status        PaymentStatus   `gorm:"type:varchar(16);not null" json:"status"`
	AmountCents   int64           `gorm:"not null" json:"amount_cents"`
	Currency      string          `gorm:"type:varchar(3);not null" json:"currency"`

	ExternalID   *string        `gorm:"type:varchar(128);index:idx_payments_tenant_external" json:"external_id"`
	ExternalURL  *string        `gorm:"type:text" json:"external_url"`
	ApprovalCode *string        `gorm:"type:varchar(64)" json:"approval_code"`
	Last4        *string        `gorm:"type:varchar(4)" json:"last4"`
	Metadata     datatypes.JSON `json:"metadata"`

	SucceededAt *time.Time `json:"succeeded_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PaymentIntegration is a tenant configured channel. A nil LocationID applies
// to every location unless a location specific integration of the same type
// exists. ConfigEncrypted is a vault token.
type PaymentIntegration struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID        string          `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	LocationID      *string         `gorm:"type:varchar(36)" json:"location_id"`
	Provider        Provider        `gorm:"type:varchar(16);not null" json:"provider"`
	Type            IntegrationType `gorm:"type:varchar(16);not null" json:"type"`
	Name            string          `gorm:"type:varchar(128);not null" json:"name"`
	IsEnabled       bool            `gorm:"not null" json:"is_enabled"`
	ConfigEncrypted string          `gorm:"type:text;not null" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error            { newID(&p.ID); return nil }
func (i *PaymentIntegration) BeforeCreate(*gorm.DB) error { newID(&i.ID); return nil }
