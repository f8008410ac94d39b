package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mesa-system/internal/database/models"
	"mesa-system/internal/money"
	"mesa-system/internal/payments/providers"
	"mesa-system/internal/services/orders"
	"mesa-system/internal/tenant"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreatePaymentLink asks the provider for a hosted checkout link and records
// a PENDING payment for it. When integrationID is empty the first enabled
// card link channel of the order's location is used.
//
// A provider that cannot create links yet yields a *NotImplementedError and
// leaves no payment behind; the order stays OPEN for terminal capture.
func (s *Service) CreatePaymentLink(ctx context.Context, tc tenant.Context, orderID, integrationID string) (*models.Payment, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}
	o, err := s.loadOrder(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusOpen {
		return nil, fmt.Errorf("%w: payment links need an OPEN order, got %s", orders.ErrInvalidTransition, o.Status)
	}

	integ, err := s.resolveLinkIntegration(ctx, tc.TenantID, o.LocationID, integrationID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Get(integ.Provider)
	if err != nil {
		return nil, err
	}
	creator, err := providers.AsLinkCreator(adapter)
	if err != nil {
		return nil, err
	}
	cfg, err := s.integrationConfig(integ)
	if err != nil {
		return nil, err
	}

	req := providers.LinkRequest{
		TenantID:      o.TenantID,
		LocationID:    o.LocationID,
		OrderID:       o.ID,
		AmountCents:   o.TotalCents,
		Currency:      money.Currency,
		CustomerLabel: customerLabel(o),
	}
	var link providers.LinkResult
	err = s.callProvider(ctx, integ.Provider, "create_link", func(ctx context.Context) error {
		var err error
		link, err = creator.CreatePaymentLink(ctx, cfg, req)
		return err
	})
	if errors.Is(err, providers.ErrNotImplemented) {
		s.log.Info("payment link provider not implemented, offering terminal fallback",
			zap.String("order_id", o.ID),
			zap.String("provider", string(integ.Provider)))
		return nil, &NotImplementedError{
			Provider: integ.Provider,
			OrderID:  o.ID,
			Fallback: models.ProviderManual,
			Err:      err,
		}
	}
	if err != nil {
		s.log.Warn("payment link creation failed",
			zap.String("order_id", o.ID),
			zap.String("provider", string(integ.Provider)),
			zap.Error(err))
		return nil, err
	}
	if link.ExternalID == "" {
		return nil, providers.Classify(integ.Provider, "create_link", errors.New("provider returned no payment id"))
	}

	meta, err := json.Marshal(link.Raw)
	if err != nil {
		return nil, fmt.Errorf("encode provider response: %w", err)
	}
	payment := &models.Payment{
		TenantID:      o.TenantID,
		LocationID:    o.LocationID,
		OrderID:       o.ID,
		IntegrationID: &integ.ID,
		Provider:      integ.Provider,
		Type:          models.IntegrationCardLink,
		Status:        models.PaymentStatusPending,
		AmountCents:   o.TotalCents,
		Currency:      money.Currency,
		ExternalID:    &link.ExternalID,
		Metadata:      datatypes.JSON(meta),
	}
	if link.URL != "" {
		payment.ExternalURL = &link.URL
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := orders.FindOrderForUpdate(tx, tc.TenantID, orderID)
		if err != nil {
			return err
		}
		if locked.Status != models.OrderStatusOpen {
			return fmt.Errorf("%w: order became %s while the link was created", orders.ErrInvalidTransition, locked.Status)
		}
		payment.AmountCents = locked.TotalCents
		if err := cancelPending(tx, locked.TenantID, locked.ID, "", now); err != nil {
			return err
		}
		return tx.Create(payment).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment link created",
		zap.String("order_id", o.ID),
		zap.String("payment_id", payment.ID),
		zap.String("external_id", link.ExternalID))
	return payment, nil
}

// CheckPaymentStatus polls the provider for a pending payment and settles it
// when the provider reports success. Succeeded payments are returned without
// a provider call.
func (s *Service) CheckPaymentStatus(ctx context.Context, tc tenant.Context, paymentID string) (*models.Payment, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}
	p, err := s.findPayment(s.db.WithContext(ctx), tc.TenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusSucceeded {
		return p, nil
	}
	if p.ExternalID == nil || *p.ExternalID == "" {
		return nil, invalid("payment has no provider reference to check")
	}

	integ, err := s.resolvePaymentIntegration(ctx, p)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Get(integ.Provider)
	if err != nil {
		return nil, err
	}
	fetcher, err := providers.AsStatusFetcher(adapter)
	if err != nil {
		return nil, err
	}
	cfg, err := s.integrationConfig(integ)
	if err != nil {
		return nil, err
	}

	var status providers.StatusResult
	err = s.callProvider(ctx, integ.Provider, "fetch_status", func(ctx context.Context) error {
		var err error
		status, err = fetcher.FetchPaymentStatus(ctx, cfg, *p.ExternalID)
		return err
	})
	if err != nil {
		s.log.Warn("payment status check failed",
			zap.String("payment_id", p.ID),
			zap.String("provider", string(integ.Provider)),
			zap.Error(err))
		return nil, err
	}

	now := s.now()
	switch status.Status {
	case models.PaymentStatusSucceeded:
		var result settleResult
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.settleCard(tx, p, now)
			return err
		})
		if err != nil {
			return nil, err
		}
		s.publishSettled(ctx, result)
		return result.payment, nil
	case models.PaymentStatusFailed, models.PaymentStatusCancelled:
		err = s.db.WithContext(ctx).Model(&models.Payment{}).
			Where("id = ? AND tenant_id = ? AND status = ?", p.ID, p.TenantID, models.PaymentStatusPending).
			Updates(map[string]any{"status": status.Status, "updated_at": now}).Error
		if err != nil {
			return nil, fmt.Errorf("update payment status: %w", err)
		}
		return s.findPayment(s.db.WithContext(ctx), p.TenantID, p.ID)
	}
	return p, nil
}

func (s *Service) resolveLinkIntegration(ctx context.Context, tenantID, locationID, integrationID string) (*models.PaymentIntegration, error) {
	if integrationID != "" {
		return s.enabledIntegration(ctx, tenantID, integrationID, models.IntegrationCardLink)
	}
	channels, err := s.enabledChannels(ctx, tenantID, locationID)
	if err != nil {
		return nil, err
	}
	if len(channels.CardLink) == 0 {
		return nil, fmt.Errorf("%w: no card link channel is enabled for this location", ErrIntegrationNotFound)
	}
	return s.enabledIntegration(ctx, tenantID, channels.CardLink[0].ID, models.IntegrationCardLink)
}

// resolvePaymentIntegration returns the integration that created p, or the
// tenant's enabled integration of the same provider and type when that one
// has been disabled or removed since.
func (s *Service) resolvePaymentIntegration(ctx context.Context, p *models.Payment) (*models.PaymentIntegration, error) {
	if p.IntegrationID != nil {
		integ, err := s.enabledIntegration(ctx, p.TenantID, *p.IntegrationID, p.Type)
		if err == nil {
			return integ, nil
		}
		if !errors.Is(err, ErrIntegrationNotFound) {
			return nil, err
		}
	}
	var integ models.PaymentIntegration
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND type = ? AND is_enabled = ?", p.TenantID, p.Provider, p.Type, true).
		Where("location_id = ? OR location_id IS NULL", p.LocationID).
		Order("location_id IS NULL, created_at").
		First(&integ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no enabled %s %s integration", ErrIntegrationNotFound, p.Provider, p.Type)
	}
	if err != nil {
		return nil, err
	}
	return &integ, nil
}

func customerLabel(o *models.Order) string {
	if o.CustomerName != nil && *o.CustomerName != "" {
		return *o.CustomerName
	}
	return fmt.Sprintf("Orden #%d", o.OrderNumber)
}
