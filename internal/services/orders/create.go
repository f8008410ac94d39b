package orders

import (
	"context"
	"errors"
	"fmt"

	"mesa-system/internal/database/models"
	"mesa-system/internal/money"
	"mesa-system/internal/notify"
	"mesa-system/internal/tenant"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Mode int

const (
	// ModeOpen leaves the order OPEN for a deferred payment.
	ModeOpen Mode = iota
	// ModeImmediateCash settles the order with cash at creation.
	ModeImmediateCash
	// ModeOnline is an unauthenticated storefront order.
	ModeOnline
)

func (m Mode) String() string {
	switch m {
	case ModeImmediateCash:
		return "immediate-cash"
	case ModeOnline:
		return "online"
	}
	return "open"
}

// LineInput is one requested line. When MenuItemID is set the catalog name
// and price are snapshotted and Name / UnitPriceCents are ignored; otherwise
// the line is an off-menu item priced by the caller.
type LineInput struct {
	MenuItemID     *string `json:"menu_item_id"`
	Name           string  `json:"name"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	Quantity       int32   `json:"quantity"`
	Notes          *string `json:"notes"`
}

type CreateOrderInput struct {
	LocationID    string
	Mode          Mode
	Lines         []LineInput
	Notes         string
	CustomerName  string
	CustomerPhone string
	DiscountCents int64

	// Immediate cash only. PaymentMethod is CASH (default) or MIXED; MIXED is
	// treated as cash for change.
	PaymentMethod     models.PaymentMethod
	CashReceivedCents int64
}

// CreateOrder validates, prices and persists a new order with its lines in one
// transaction.
func (s *Service) CreateOrder(ctx context.Context, tc tenant.Context, in CreateOrderInput) (*models.Order, error) {
	if in.Mode == ModeOnline {
		if tc.TenantID == "" {
			return nil, tenant.ErrUnauthorized
		}
	} else if err := tc.RequireStaff(); err != nil {
		return nil, err
	}

	if err := validateCreate(in); err != nil {
		return nil, err
	}
	lines, subtotal, err := s.buildLines(ctx, tc.TenantID, in.Lines, in.Mode != ModeOnline)
	if err != nil {
		return nil, err
	}
	if in.DiscountCents > subtotal {
		return nil, invalid("discount cannot exceed the subtotal")
	}

	if in.Mode == ModeOnline {
		actor, err := s.EnsureOnlineActor(ctx, tc.TenantID)
		if err != nil {
			return nil, err
		}
		tc.ActorID = actor.ID
		tc.Role = tenant.RoleEmployee
	}

	var (
		order    models.Order
		shop     *models.Tenant
		location models.Location
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND tenant_id = ?", in.LocationID, tc.TenantID).First(&location).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLocationNotFound
			}
			return err
		}
		if in.Mode == ModeOnline && !location.IsActive {
			return ErrLocationNotFound
		}

		t, number, err := allocateOrderNumber(tx, tc.TenantID)
		if err != nil {
			return err
		}
		shop = t
		totals := totalsFor(t, subtotal, in.DiscountCents)

		order = models.Order{
			TenantID:      tc.TenantID,
			LocationID:    location.ID,
			EmployeeID:    tc.ActorID,
			OrderNumber:   number,
			Status:        models.OrderStatusOpen,
			Notes:         trimmed(in.Notes),
			CustomerName:  trimmed(in.CustomerName),
			CustomerPhone: trimmed(in.CustomerPhone),
		}
		applyTotals(&order, totals)

		if in.Mode == ModeImmediateCash {
			if in.CashReceivedCents < totals.Total {
				return invalid("cash received must be greater than or equal to the total")
			}
			method := in.PaymentMethod
			if method == "" {
				method = models.PaymentMethodCash
			}
			channel := models.PaymentChannelCash
			cash := in.CashReceivedCents
			change := cash - totals.Total
			paidAt := s.now()
			order.Status = models.OrderStatusPaid
			order.PaymentMethod = &method
			order.PaymentChannel = &channel
			order.CashReceivedCents = &cash
			order.ChangeGivenCents = &change
			order.PaidAt = &paidAt
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("create order lines: %w", err)
		}
		order.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("tenant_id", order.TenantID),
		zap.String("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber),
		zap.Stringer("mode", in.Mode),
		zap.Int64("total_cents", order.TotalCents))

	s.Publish(ctx, notify.EventOrderCreated, &order, "")
	if order.Status == models.OrderStatusPaid {
		s.Publish(ctx, notify.EventOrderPaid, &order, "")
	}
	if in.Mode == ModeOnline && s.notifier != nil {
		s.notifier.OrderCreated(summarize(shop, &location, &order))
	}
	return &order, nil
}

func validateCreate(in CreateOrderInput) error {
	if len(in.Lines) == 0 {
		return ErrEmptyOrder
	}
	if in.LocationID == "" {
		return invalid("location is required")
	}
	if in.DiscountCents < 0 {
		return invalid("discount cannot be negative")
	}

	switch in.Mode {
	case ModeOnline:
		if trimmed(in.CustomerName) == nil {
			return invalid("customer name is required")
		}
		if trimmed(in.CustomerPhone) == nil {
			return invalid("customer phone is required")
		}
		if in.DiscountCents != 0 {
			return invalid("online orders cannot carry a discount")
		}
	case ModeOpen:
		if trimmed(in.CustomerName) == nil {
			return invalid("customer name is required for pay later orders")
		}
	case ModeImmediateCash:
		switch in.PaymentMethod {
		case "", models.PaymentMethodCash, models.PaymentMethodMixed:
		default:
			return invalid("immediate payment supports only cash")
		}
	default:
		return invalid("unknown order mode")
	}
	return nil
}

// buildLines snapshots catalog prices and returns unsaved lines with their
// subtotal. Off-menu lines are accepted only when allowOffMenu is set.
func (s *Service) buildLines(ctx context.Context, tenantID string, in []LineInput, allowOffMenu bool) ([]models.OrderLine, int64, error) {
	ids := make([]string, 0, len(in))
	for _, l := range in {
		if l.MenuItemID != nil {
			ids = append(ids, *l.MenuItemID)
		}
	}
	items, err := s.catalog.Items(ctx, tenantID, ids)
	if err != nil {
		return nil, 0, err
	}

	lines := make([]models.OrderLine, 0, len(in))
	var subtotal int64
	for i, l := range in {
		if l.Quantity <= 0 {
			return nil, 0, invalid(fmt.Sprintf("line %d: quantity must be greater than zero", i+1))
		}
		if l.Quantity > money.MaxQuantity {
			return nil, 0, invalid(fmt.Sprintf("line %d: quantity cannot exceed %d", i+1, money.MaxQuantity))
		}
		line := models.OrderLine{Quantity: l.Quantity, Notes: trimmedPtr(l.Notes)}

		if l.MenuItemID != nil {
			item, ok := items[*l.MenuItemID]
			if !ok {
				return nil, 0, invalid(fmt.Sprintf("line %d: menu item not found", i+1))
			}
			if !item.Available {
				return nil, 0, invalid(fmt.Sprintf("line %d: %s is not available", i+1, item.Name))
			}
			id := item.ID
			line.MenuItemID = &id
			line.NameSnapshot = item.Name
			line.UnitPriceCentsSnapshot = item.PriceCents
		} else {
			if !allowOffMenu {
				return nil, 0, invalid(fmt.Sprintf("line %d: menu item is required", i+1))
			}
			name := trimmed(l.Name)
			if name == nil {
				return nil, 0, invalid(fmt.Sprintf("line %d: name is required", i+1))
			}
			if l.UnitPriceCents < 0 {
				return nil, 0, invalid(fmt.Sprintf("line %d: price cannot be negative", i+1))
			}
			line.NameSnapshot = *name
			line.UnitPriceCentsSnapshot = l.UnitPriceCents
		}

		total, err := money.CheckedLineTotal(line.UnitPriceCentsSnapshot, line.Quantity)
		if err != nil {
			return nil, 0, invalid(fmt.Sprintf("line %d: %s", i+1, errAmountTooLarge.Message))
		}
		line.LineTotalCents = total
		if subtotal, err = money.CheckedAdd(subtotal, total); err != nil {
			return nil, 0, errAmountTooLarge
		}
		lines = append(lines, line)
	}
	return lines, subtotal, nil
}

func summarize(t *models.Tenant, loc *models.Location, o *models.Order) notify.OrderSummary {
	sum := notify.OrderSummary{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		RestaurantName: t.Name,
		LocationName:   loc.Name,
		TotalCents:     o.TotalCents,
	}
	if o.CustomerName != nil {
		sum.CustomerName = *o.CustomerName
	}
	if o.CustomerPhone != nil {
		sum.CustomerPhone = *o.CustomerPhone
	}
	if o.Notes != nil {
		sum.Notes = *o.Notes
	}
	for _, l := range o.Lines {
		sum.Items = append(sum.Items, notify.SummaryItem{Name: l.NameSnapshot, Quantity: l.Quantity, LineTotalCents: l.LineTotalCents})
	}
	return sum
}
