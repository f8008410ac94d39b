// Package orders creates orders, edits their lines and moves them through the
// OPEN / PAID / VOID state machine.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/money"
	"mesa-system/internal/notify"
	"mesa-system/internal/services/catalog"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier receives summaries of new online orders. Implementations must not
// block.
type Notifier interface {
	OrderCreated(summary notify.OrderSummary)
}

type Service struct {
	db       *gorm.DB
	catalog  catalog.Lookup
	events   notify.Publisher
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, lookup catalog.Lookup, events notify.Publisher, notifier Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = notify.NopPublisher()
	}
	if lookup == nil {
		lookup = catalog.NewStore(db, nil, log)
	}
	return &Service{
		db:       db,
		catalog:  lookup,
		events:   events,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish announces a committed order change. Failures are logged only.
func (s *Service) Publish(ctx context.Context, eventType string, order *models.Order, paymentID string) {
	ev := notify.OrderEvent{
		EventType:   eventType,
		TenantID:    order.TenantID,
		LocationID:  order.LocationID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		TotalCents:  order.TotalCents,
		PaymentID:   paymentID,
		Timestamp:   s.now(),
	}
	if order.PaymentChannel != nil {
		ev.Channel = string(*order.PaymentChannel)
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("event", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

func totalsFor(t *models.Tenant, subtotal, discount int64) money.Totals {
	if t.TaxOnTop {
		return money.ComputeTotals(subtotal, t.TaxRateBps, t.ServiceChargeBps, discount)
	}
	return money.ComputeInclusiveTotals(subtotal, discount)
}

func applyTotals(o *models.Order, t money.Totals) {
	o.SubtotalCents = t.Subtotal
	o.TaxCents = t.Tax
	o.ServiceChargeCents = t.ServiceCharge
	o.DiscountCents = t.Discount
	o.TotalCents = t.Total
}

func findOrder(tx *gorm.DB, tenantID, orderID string, lock bool) (*models.Order, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var o models.Order
	err := q.Where("id = ? AND tenant_id = ?", orderID, tenantID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindOrderForUpdate loads a tenant's order and locks its row for the rest of
// tx.
func FindOrderForUpdate(tx *gorm.DB, tenantID, orderID string) (*models.Order, error) {
	return findOrder(tx, tenantID, orderID, true)
}

func trimmed(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return trimmed(*s)
}
