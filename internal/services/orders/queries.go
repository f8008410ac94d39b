package orders

import (
	"context"
	"strings"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/tenant"

	"gorm.io/gorm"
)

// GetOrder returns a tenant's order with its lines and payments.
func (s *Service) GetOrder(ctx context.Context, tc tenant.Context, orderID string) (*models.Order, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}
	o, err := findOrder(s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }),
		tc.TenantID, orderID, false)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListOpenOrders is the unpaid orders panel of a location, newest first.
func (s *Service) ListOpenOrders(ctx context.Context, tc tenant.Context, locationID string) ([]models.Order, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("tenant_id = ? AND status = ?", tc.TenantID, models.OrderStatusOpen)
	if locationID != "" {
		q = q.Where("location_id = ?", locationID)
	}

	orders := []models.Order{}
	if err := q.Order("order_number DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// AdminListLimit caps the admin order listing and export.
const AdminListLimit = 500

// OrderFilter narrows the admin order listing. Zero values match everything;
// From and To are inclusive bounds on created_at.
type OrderFilter struct {
	LocationID string
	Status     models.OrderStatus
	From       *time.Time
	To         *time.Time
	Search     string
}

type OrderListItem struct {
	models.Order
	LocationName string `json:"location_name"`
	EmployeeName string `json:"employee_name"`
}

// ListOrders is the admin order history, newest first and capped at
// AdminListLimit rows. Search is applied to that window and matches the
// order id, the employee name or the RFC 3339 creation time.
func (s *Service) ListOrders(ctx context.Context, tc tenant.Context, f OrderFilter) ([]OrderListItem, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, invalid("to must not be before from")
	}

	db := s.db.WithContext(ctx)
	q := db.Where("tenant_id = ?", tc.TenantID)
	if f.LocationID != "" {
		q = q.Where("location_id = ?", f.LocationID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var found []models.Order
	if err := q.Order("created_at DESC").Limit(AdminListLimit).Find(&found).Error; err != nil {
		return nil, err
	}

	locations, err := namesByID[models.Location](db, tc.TenantID)
	if err != nil {
		return nil, err
	}
	staff, err := namesByID[models.StaffUser](db, tc.TenantID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(f.Search))
	items := make([]OrderListItem, 0, len(found))
	for _, o := range found {
		item := OrderListItem{Order: o, LocationName: locations[o.LocationID], EmployeeName: staff[o.EmployeeID]}
		if needle != "" && !item.matches(needle) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (i OrderListItem) matches(needle string) bool {
	return strings.Contains(strings.ToLower(i.ID), needle) ||
		strings.Contains(strings.ToLower(i.EmployeeName), needle) ||
		strings.Contains(strings.ToLower(i.CreatedAt.UTC().Format(time.RFC3339)), needle)
}

type namedRow struct {
	ID   string
	Name string
}

func namesByID[M any](db *gorm.DB, tenantID string) (map[string]string, error) {
	var rows []namedRow
	if err := db.Model(new(M)).Select("id", "name").Where("tenant_id = ?", tenantID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}
