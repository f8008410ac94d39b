package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is one checkout at one location. Amounts are minor units.
type Order struct {
	ID          string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID    string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_orders_tenant_number;index:idx_orders_tenant_status" json:"tenant_id"`
	LocationID  string      `gorm:"type:varchar(36);not null;index" json:"location_id"`
	EmployeeID  string      `gorm:"type:varchar(36);not null" json:"employee_id"`
	OrderNumber int64       `gorm:"not null;uniqueIndex:idx_orders_tenant_number" json:"order_number"`
	Status      OrderStatus `gorm:"type:varchar(16);not null;index:idx_orders_tenant_status" json:"status"`

	SubtotalCents      int64 `gorm:"not null" json:"subtotal_cents"`
	TaxCents           int64 `gorm:"not null" json:"tax_cents"`
	ServiceChargeCents int64 `gorm:"not null" json:"service_charge_cents"`
	DiscountCents      int64 `gorm:"not null;default:0" json:"discount_cents"`
	TotalCents         int64 `gorm:"not null" json:"total_cents"`

	PaymentMethod     *PaymentMethod  `gorm:"type:varchar(16)" json:"payment_method"`
	PaymentChannel    *PaymentChannel `gorm:"type:varchar(16)" json:"payment_channel"`
	CashReceivedCents *int64          `json:"cash_received_cents"`
	ChangeGivenCents  *int64          `json:"change_given_cents"`

	CustomerName  *string `gorm:"type:varchar(128)" json:"customer_name"`
	CustomerPhone *string `gorm:"type:varchar(32)" json:"customer_phone"`
	Notes         *string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	PaidAt    *time.Time `json:"paid_at"`

	Lines    []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
	Payments []Payment   `gorm:"foreignKey:OrderID" json:"payments"`
}

// OrderLine snapshots name and unit price at add time. MenuItemID is nil for
// off-menu items.
type OrderLine struct {
	ID                     string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID                string    `gorm:"type:varchar(36);index;not null" json:"order_id"`
	MenuItemID             *string   `gorm:"type:varchar(36)" json:"menu_item_id"`
	NameSnapshot           string    `gorm:"type:varchar(128);not null" json:"name_snapshot"`
	UnitPriceCentsSnapshot int64     `gorm:"not null" json:"unit_price_cents_snapshot"`
	Quantity               int32     `gorm:"not null" json:"quantity"`
	LineTotalCents         int64     `gorm:"not null" json:"line_total_cents"`
	Notes                  *string   `gorm:"type:text" json:"notes"`
	CreatedAt              time.Time `json:"created_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error     { newID(&o.ID); return nil }
func (l *OrderLine) BeforeCreate(*gorm.DB) error { newID(&l.ID); return nil }
