package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mesa-system/internal/database/models"
	"mesa-system/internal/money"
	"mesa-system/internal/notify"
	"mesa-system/internal/services/orders"
	"mesa-system/internal/tenant"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PayOpenOrderWithCash settles a pay-later order with cash. Paying an order
// that is already PAID returns it unchanged.
func (s *Service) PayOpenOrderWithCash(ctx context.Context, tc tenant.Context, orderID string, cashReceived int64) (*models.Order, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}
	if cashReceived < 0 {
		return nil, invalid("cash received cannot be negative")
	}

	var (
		order   *models.Order
		changed bool
	)
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := orders.FindOrderForUpdate(tx, tc.TenantID, orderID)
		if err != nil {
			return err
		}
		open, err := requireOpen(o)
		if err != nil {
			return err
		}
		if !open {
			order = o
			return nil
		}
		if cashReceived < o.TotalCents {
			return invalid("cash received must be greater than or equal to the total")
		}
		change := cashReceived - o.TotalCents
		st := orders.Settlement{
			Method:            models.PaymentMethodCash,
			Channel:           models.PaymentChannelCash,
			CashReceivedCents: &cashReceived,
			ChangeGivenCents:  &change,
		}
		order, changed, err = orders.MarkPaid(tx, tc.TenantID, orderID, st, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("order paid with cash",
			zap.String("order_id", order.ID),
			zap.Int64("total_cents", order.TotalCents),
			zap.Int64("change_cents", *order.ChangeGivenCents))
		if s.orders != nil {
			s.orders.Publish(ctx, notify.EventOrderPaid, order, "")
		}
	}
	return order, nil
}

// CompleteTransfer records a bank transfer the staff member has checked by
// hand. No provider is consulted. A second call on the PAID order is a no-op
// and returns the payment recorded by the first.
func (s *Service) CompleteTransfer(ctx context.Context, tc tenant.Context, orderID, reference string) (*models.Order, *models.Payment, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, nil, err
	}
	reference = strings.TrimSpace(reference)

	var (
		order   *models.Order
		payment *models.Payment
		changed bool
	)
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := orders.FindOrderForUpdate(tx, tc.TenantID, orderID)
		if err != nil {
			return err
		}
		open, err := requireOpen(o)
		if err != nil {
			return err
		}
		if !open {
			order = o
			payment, err = succeededPayment(tx, o)
			return err
		}

		meta := map[string]any{"channel": models.PaymentChannelTransfer}
		if reference != "" {
			meta["reference"] = reference
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		payment = &models.Payment{
			TenantID:    o.TenantID,
			LocationID:  o.LocationID,
			OrderID:     o.ID,
			Provider:    models.ProviderManual,
			Type:        models.IntegrationTerminal,
			Status:      models.PaymentStatusSucceeded,
			AmountCents: o.TotalCents,
			Currency:    money.Currency,
			Metadata:    datatypes.JSON(raw),
			SucceededAt: &now,
		}
		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("create transfer payment: %w", err)
		}
		if err := cancelPending(tx, o.TenantID, o.ID, "", now); err != nil {
			return err
		}
		st := orders.Settlement{Method: models.PaymentMethodTransfer, Channel: models.PaymentChannelTransfer}
		order, changed, err = orders.MarkPaid(tx, tc.TenantID, orderID, st, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if changed {
		s.log.Info("order paid by transfer",
			zap.String("order_id", order.ID),
			zap.String("payment_id", payment.ID))
		s.publishSettled(ctx, settleResult{payment: payment, order: order, paymentChanged: true, orderChanged: true})
	}
	return order, payment, nil
}

// TerminalConfirmation is the manual capture of a card terminal approval.
type TerminalConfirmation struct {
	ApprovalCode  string `json:"approval_code"`
	Last4         string `json:"last4"`
	IntegrationID string `json:"integration_id"`
}

// ConfirmTerminal records an approved card terminal charge and settles the
// order. A pending terminal payment of the order is reused; pending link
// payments are cancelled. Confirming an order that already has a succeeded
// payment returns that payment unchanged.
func (s *Service) ConfirmTerminal(ctx context.Context, tc tenant.Context, orderID string, in TerminalConfirmation) (*models.Payment, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}
	approval := strings.TrimSpace(in.ApprovalCode)
	if approval == "" {
		return nil, invalid("approval code is required")
	}
	last4 := lastFour(in.Last4)

	o, err := s.loadOrder(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	provider, integrationID, err := s.resolveTerminal(ctx, tc.TenantID, o.LocationID, strings.TrimSpace(in.IntegrationID))
	if err != nil {
		return nil, err
	}

	var result settleResult
	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := orders.FindOrderForUpdate(tx, tc.TenantID, orderID)
		if err != nil {
			return err
		}
		existing, err := succeededPayment(tx, o)
		if err != nil {
			return err
		}
		if existing != nil {
			result = settleResult{payment: existing, order: o}
			return nil
		}
		open, err := requireOpen(o)
		if err != nil {
			return err
		}
		if !open {
			return fmt.Errorf("%w: order is already paid", orders.ErrInvalidTransition)
		}

		var p models.Payment
		err = tx.Where("tenant_id = ? AND order_id = ? AND type = ? AND status = ?",
			o.TenantID, o.ID, models.IntegrationTerminal, models.PaymentStatusPending).
			Order("created_at DESC").
			First(&p).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		p.TenantID = o.TenantID
		p.LocationID = o.LocationID
		p.OrderID = o.ID
		p.IntegrationID = integrationID
		p.Provider = provider
		p.Type = models.IntegrationTerminal
		p.Status = models.PaymentStatusPending
		p.AmountCents = o.TotalCents
		p.Currency = money.Currency
		p.ApprovalCode = &approval
		p.Last4 = last4
		if err := tx.Save(&p).Error; err != nil {
			return fmt.Errorf("save terminal payment: %w", err)
		}
		if err := cancelPending(tx, o.TenantID, o.ID, p.ID, now); err != nil {
			return err
		}
		result, err = s.settleCard(tx, &p, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.paymentChanged {
		s.log.Info("card terminal payment confirmed",
			zap.String("order_id", orderID),
			zap.String("payment_id", result.payment.ID),
			zap.String("provider", string(provider)))
		s.publishSettled(ctx, result)
	}
	return result.payment, nil
}

// resolveTerminal picks the terminal integration to attribute a capture to:
// the requested one, else the first enabled terminal channel of the location,
// else plain manual capture.
func (s *Service) resolveTerminal(ctx context.Context, tenantID, locationID, integrationID string) (models.Provider, *string, error) {
	if integrationID != "" {
		integ, err := s.enabledIntegration(ctx, tenantID, integrationID, models.IntegrationTerminal)
		if err != nil {
			return "", nil, err
		}
		return integ.Provider, &integ.ID, nil
	}
	channels, err := s.enabledChannels(ctx, tenantID, locationID)
	if err != nil {
		return "", nil, err
	}
	if len(channels.Terminal) > 0 {
		ch := channels.Terminal[0]
		return ch.Provider, &ch.ID, nil
	}
	return models.ProviderManual, nil, nil
}

func succeededPayment(tx *gorm.DB, o *models.Order) (*models.Payment, error) {
	var p models.Payment
	err := tx.Where("tenant_id = ? AND order_id = ? AND status = ?", o.TenantID, o.ID, models.PaymentStatusSucceeded).
		Order("created_at").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// lastFour keeps the final four characters of a card number fragment.
func lastFour(s string) *string {
	r := []rune(strings.TrimSpace(s))
	if len(r) == 0 {
		return nil
	}
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	out := string(r)
	return &out
}
