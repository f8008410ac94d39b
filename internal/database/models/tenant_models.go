package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is one restaurant business. Catalog prices embed tax unless TaxOnTop
// is set, in which case TaxRateBps and ServiceChargeBps are added to the
// subtotal.
type Tenant struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(128);not null" json:"name"`
	Slug             string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`
	TaxOnTop         bool      `gorm:"not null" json:"tax_on_top"`
	TaxRateBps       int64     `gorm:"not null;default:0" json:"tax_rate_bps"`
	ServiceChargeBps int64     `gorm:"not null;default:0" json:"service_charge_bps"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Location struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_locations_tenant_slug" json:"tenant_id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_locations_tenant_slug" json:"slug"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StaffUser is a tenant member. IsSystem marks the reserved "Online" actor
// that owns storefront orders and can never log in.
type StaffUser struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID     string     `gorm:"type:varchar(36);index;not null" json:"tenant_id"`
	Name         string     `gorm:"type:varchar(128);not null" json:"name"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         string     `gorm:"type:varchar(16);not null" json:"role"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsSystem     bool       `gorm:"not null" json:"is_system"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type MenuItem struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID    string    `gorm:"type:varchar(36);index;not null" json:"tenant_id"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	PriceCents  int64     `gorm:"not null" json:"price_cents"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (t *Tenant) BeforeCreate(*gorm.DB) error    { newID(&t.ID); return nil }
func (l *Location) BeforeCreate(*gorm.DB) error  { newID(&l.ID); return nil }
func (u *StaffUser) BeforeCreate(*gorm.DB) error { newID(&u.ID); return nil }
func (m *MenuItem) BeforeCreate(*gorm.DB) error  { newID(&m.ID); return nil }
