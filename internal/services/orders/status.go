package orders

import (
	"context"
	"fmt"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/notify"
	"mesa-system/internal/tenant"

	"gorm.io/gorm"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusOpen: {models.OrderStatusPaid, models.OrderStatusVoid},
	// Administrative corrections only.
	models.OrderStatusPaid: {models.OrderStatusOpen, models.OrderStatusVoid},
}

// CanTransition reports whether from -> to is an edge of the order state
// machine. VOID is terminal.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func validStatus(s models.OrderStatus) bool {
	return s == models.OrderStatusOpen || s == models.OrderStatusPaid || s == models.OrderStatusVoid
}

// authorizeTransition checks the edge and the caller. Leaving PAID needs an
// admin.
func authorizeTransition(tc tenant.Context, from, to models.OrderStatus) error {
	if !validStatus(to) {
		return invalid(fmt.Sprintf("unknown status %q", to))
	}
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if from == models.OrderStatusPaid {
		return tc.RequireAdmin()
	}
	return nil
}

// applyStatus keeps paidAt set exactly when the order is PAID.
func applyStatus(o *models.Order, to models.OrderStatus, now time.Time) {
	if o.Status == to {
		return
	}
	o.Status = to
	if to == models.OrderStatusPaid {
		o.PaidAt = &now
	} else {
		o.PaidAt = nil
	}
}

func statusEvent(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusPaid:
		return notify.EventOrderPaid
	case models.OrderStatusVoid:
		return notify.EventOrderVoided
	}
	return notify.EventOrderUpdated
}

// SetStatus is the quick status toggle. Monetary fields are untouched.
func (s *Service) SetStatus(ctx context.Context, tc tenant.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}

	var order *models.Order
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := FindOrderForUpdate(tx, tc.TenantID, orderID)
		if err != nil {
			return err
		}
		if err := authorizeTransition(tc, o.Status, to); err != nil {
			return err
		}
		order = o
		if o.Status == to {
			return nil
		}
		applyStatus(o, to, s.now())
		changed = true
		return tx.Model(o).Select("status", "paid_at", "updated_at").Updates(o).Error
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.Publish(ctx, statusEvent(order.Status), order, "")
	}
	return order, nil
}

// Settlement records how an order was paid.
type Settlement struct {
	Method            models.PaymentMethod
	Channel           models.PaymentChannel
	CashReceivedCents *int64
	ChangeGivenCents  *int64
}

// MarkPaid moves an OPEN order to PAID inside tx and stamps paidAt and the
// settlement. The update is conditional on the order still being OPEN, so
// racing settlements apply once. changed is false when the order was already
// PAID. A VOID order yields ErrInvalidTransition.
func MarkPaid(tx *gorm.DB, tenantID, orderID string, st Settlement, paidAt time.Time) (order *models.Order, changed bool, err error) {
	updates := map[string]any{
		"status":          models.OrderStatusPaid,
		"paid_at":         paidAt,
		"payment_method":  st.Method,
		"payment_channel": st.Channel,
		"updated_at":      paidAt,
	}
	if st.CashReceivedCents != nil {
		updates["cash_received_cents"] = *st.CashReceivedCents
	}
	if st.ChangeGivenCents != nil {
		updates["change_given_cents"] = *st.ChangeGivenCents
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND tenant_id = ? AND status = ?", orderID, tenantID, models.OrderStatusOpen).
		Updates(updates)
	if res.Error != nil {
		return nil, false, fmt.Errorf("mark order paid: %w", res.Error)
	}

	o, err := findOrder(tx, tenantID, orderID, false)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected == 1 {
		return o, true, nil
	}
	if o.Status == models.OrderStatusPaid {
		return o, false, nil
	}
	return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, models.OrderStatusPaid)
}

// AdminPatch edits order metadata. Nil fields are left unchanged; a pointer
// to an empty string clears the field.
type AdminPatch struct {
	Status        *models.OrderStatus
	Notes         *string
	CustomerName  *string
	CustomerPhone *string
}

func (p AdminPatch) apply(o *models.Order, tc tenant.Context, now time.Time) ([]string, error) {
	var cols []string
	if p.Status != nil && *p.Status != o.Status {
		if err := authorizeTransition(tc, o.Status, *p.Status); err != nil {
			return nil, err
		}
		applyStatus(o, *p.Status, now)
		cols = append(cols, "status", "paid_at")
	}
	if p.Notes != nil {
		o.Notes = trimmedPtr(p.Notes)
		cols = append(cols, "notes")
	}
	if p.CustomerName != nil {
		o.CustomerName = trimmedPtr(p.CustomerName)
		cols = append(cols, "customer_name")
	}
	if p.CustomerPhone != nil {
		o.CustomerPhone = trimmedPtr(p.CustomerPhone)
		cols = append(cols, "customer_phone")
	}
	return cols, nil
}

// UpdateOrderAdmin patches status, notes and customer fields without touching
// lines or amounts.
func (s *Service) UpdateOrderAdmin(ctx context.Context, tc tenant.Context, orderID string, patch AdminPatch) (*models.Order, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}

	var order *models.Order
	var statusChanged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := FindOrderForUpdate(tx, tc.TenantID, orderID)
		if err != nil {
			return err
		}
		before := o.Status
		cols, err := patch.apply(o, tc, s.now())
		if err != nil {
			return err
		}
		order = o
		statusChanged = before != o.Status
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(o).Select(append(cols, "updated_at")).Updates(o).Error
	})
	if err != nil {
		return nil, err
	}

	event := notify.EventOrderUpdated
	if statusChanged {
		event = statusEvent(order.Status)
	}
	s.Publish(ctx, event, order, "")
	return order, nil
}
