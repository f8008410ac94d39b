package orders

import (
	"context"
	"fmt"

	"mesa-system/internal/database/models"
	"mesa-system/internal/money"
	"mesa-system/internal/notify"
	"mesa-system/internal/tenant"

	"gorm.io/gorm"
)

// LineEdit is one entry of the desired line set. With ID it edits an
// existing line (quantity 0 removes it); without ID it adds a new line.
type LineEdit struct {
	ID string `json:"id"`
	LineInput
}

type UpdateLinesInput struct {
	Lines []LineEdit
	AdminPatch
}

// UpdateOrderWithLines replaces the order's lines with the supplied set.
// Existing lines missing from the set are deleted, new lines snapshot the live
// catalog, and totals are recomputed from the lines that remain. Editing a
// PAID order needs an admin; VOID orders cannot be edited.
func (s *Service) UpdateOrderWithLines(ctx context.Context, tc tenant.Context, orderID string, in UpdateLinesInput) (*models.Order, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}

	var additions []LineInput
	seen := make(map[string]bool, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity < 0 {
			return nil, invalid("quantity cannot be negative")
		}
		if l.ID == "" {
			if l.Quantity != 0 {
				additions = append(additions, l.LineInput)
			}
			continue
		}
		if seen[l.ID] {
			return nil, invalid(fmt.Sprintf("line %s appears more than once", l.ID))
		}
		seen[l.ID] = true
		if l.Quantity > money.MaxQuantity {
			return nil, invalid(fmt.Sprintf("line %s: quantity cannot exceed %d", l.ID, money.MaxQuantity))
		}
	}
	newLines, _, err := s.buildLines(ctx, tc.TenantID, additions, true)
	if err != nil {
		return nil, err
	}

	var (
		order         *models.Order
		statusChanged bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := FindOrderForUpdate(tx, tc.TenantID, orderID)
		if err != nil {
			return err
		}
		switch o.Status {
		case models.OrderStatusVoid:
			return fmt.Errorf("%w: void orders cannot be edited", ErrInvalidTransition)
		case models.OrderStatusPaid:
			if err := tc.RequireAdmin(); err != nil {
				return err
			}
		}

		var current []models.OrderLine
		if err := tx.Where("order_id = ?", o.ID).Find(&current).Error; err != nil {
			return err
		}
		byID := make(map[string]*models.OrderLine, len(current))
		for i := range current {
			byID[current[i].ID] = &current[i]
		}

		keep := make(map[string]bool, len(in.Lines))
		for _, e := range in.Lines {
			if e.ID == "" {
				continue
			}
			line, ok := byID[e.ID]
			if !ok {
				return invalid(fmt.Sprintf("line %s does not belong to this order", e.ID))
			}
			if e.Quantity == 0 {
				continue
			}
			keep[e.ID] = true
			if line.Quantity == e.Quantity && equalNotes(line.Notes, trimmedPtr(e.Notes)) {
				continue
			}
			total, err := money.CheckedLineTotal(line.UnitPriceCentsSnapshot, e.Quantity)
			if err != nil {
				return invalid(fmt.Sprintf("line %s: %s", e.ID, errAmountTooLarge.Message))
			}
			line.Quantity = e.Quantity
			line.Notes = trimmedPtr(e.Notes)
			line.LineTotalCents = total
			if err := tx.Model(line).Select("quantity", "notes", "line_total_cents").Updates(line).Error; err != nil {
				return err
			}
		}

		var remove []string
		for _, l := range current {
			if !keep[l.ID] {
				remove = append(remove, l.ID)
			}
		}
		if len(remove) == len(current) && len(newLines) == 0 {
			return ErrEmptyOrder
		}
		if len(remove) > 0 {
			if err := tx.Where("order_id = ? AND id IN ?", o.ID, remove).Delete(&models.OrderLine{}).Error; err != nil {
				return err
			}
		}
		if len(newLines) > 0 {
			for i := range newLines {
				newLines[i].OrderID = o.ID
			}
			if err := tx.Create(&newLines).Error; err != nil {
				return err
			}
		}

		var remaining []models.OrderLine
		if err := tx.Where("order_id = ?", o.ID).Order("created_at").Find(&remaining).Error; err != nil {
			return err
		}
		var subtotal int64
		for _, l := range remaining {
			if subtotal, err = money.CheckedAdd(subtotal, l.LineTotalCents); err != nil {
				return errAmountTooLarge
			}
		}

		var t models.Tenant
		if err := tx.Where("id = ?", o.TenantID).First(&t).Error; err != nil {
			return err
		}
		discount := max(o.DiscountCents, 0)
		if discount > subtotal {
			discount = subtotal
		}
		applyTotals(o, totalsFor(&t, subtotal, discount))

		before := o.Status
		cols, err := in.AdminPatch.apply(o, tc, s.now())
		if err != nil {
			return err
		}
		statusChanged = o.Status != before
		cols = append(cols, "subtotal_cents", "tax_cents", "service_charge_cents", "discount_cents", "total_cents", "updated_at")
		if err := tx.Model(o).Select(cols).Updates(o).Error; err != nil {
			return err
		}
		o.Lines = remaining
		order = o
		return nil
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

func equalNotes(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
