package payments

import (
	"fmt"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/services/orders"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type settleResult struct {
	payment        *models.Payment
	order          *models.Order
	paymentChanged bool
	orderChanged   bool
}

func (r settleResult) paymentID() string {
	if r.payment == nil {
		return ""
	}
	return r.payment.ID
}

// settleCard moves p to SUCCEEDED and its order to PAID with the card channel.
// The payment update is conditional on the current status, so only one caller
// can win; the others get paymentChanged == false and no error.
func (s *Service) settleCard(tx *gorm.DB, p *models.Payment, now time.Time) (settleResult, error) {
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", p.ID, p.TenantID, models.PaymentStatusSucceeded).
		Updates(map[string]any{
			"status":       models.PaymentStatusSucceeded,
			"succeeded_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return settleResult{}, fmt.Errorf("settle payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := s.findPayment(tx, p.TenantID, p.ID)
		if err != nil {
			return settleResult{}, err
		}
		return settleResult{payment: current}, nil
	}
	p.Status = models.PaymentStatusSucceeded
	p.SucceededAt = &now

	st := orders.Settlement{Method: models.PaymentMethodCard, Channel: models.PaymentChannelCard}
	order, changed, err := orders.MarkPaid(tx, p.TenantID, p.OrderID, st, now)
	if err != nil {
		return settleResult{}, err
	}
	if !changed {
		s.log.Warn("payment succeeded on an order that was already paid",
			zap.String("payment_id", p.ID),
			zap.String("order_id", p.OrderID))
	}
	return settleResult{payment: p, order: order, paymentChanged: true, orderChanged: changed}, nil
}

// cancelPending cancels the order's other pending payments.
func cancelPending(tx *gorm.DB, tenantID, orderID, keepID string, now time.Time) error {
	q := tx.Model(&models.Payment{}).
		Where("tenant_id = ? AND order_id = ? AND status = ?", tenantID, orderID, models.PaymentStatusPending)
	if keepID != "" {
		q = q.Where("id <> ?", keepID)
	}
	err := q.Updates(map[string]any{"status": models.PaymentStatusCancelled, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("cancel pending payments: %w", err)
	}
	return nil
}

// requireOpen rejects settlement of VOID orders. ok is false when the order is
// already PAID and the caller should return it unchanged.
func requireOpen(o *models.Order) (ok bool, err error) {
	switch o.Status {
	case models.OrderStatusOpen:
		return true, nil
	case models.OrderStatusPaid:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s -> %s", orders.ErrInvalidTransition, o.Status, models.OrderStatusPaid)
}
