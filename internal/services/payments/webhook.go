package payments

import (
	"context"
	"errors"
	"net/http"

	"mesa-system/internal/database/models"
	"mesa-system/internal/payments/providers"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WebhookOutcome tells the HTTP layer what to answer the provider.
type WebhookOutcome struct {
	HTTPStatus int
	Message    string
	// PaymentID is set when the event matched a payment of the tenant.
	PaymentID string
	// Settled reports whether this delivery moved the payment to SUCCEEDED.
	Settled bool
}

// HandleWebhook verifies a provider delivery against each enabled integration
// of that provider for the tenant, in creation order, and settles the matching
// payment on a success event. Once a signature verifies the answer is 200,
// whether or not a payment matched, so providers do not retry unrelated or
// duplicate events.
func (s *Service) HandleWebhook(ctx context.Context, segment, tenantID string, req providers.WebhookRequest) WebhookOutcome {
	provider, ok := providers.ProviderFromSegment(segment)
	if !ok || tenantID == "" {
		return WebhookOutcome{HTTPStatus: http.StatusNotFound, Message: "unknown provider"}
	}
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return WebhookOutcome{HTTPStatus: http.StatusNotFound, Message: "unknown provider"}
	}
	verifier, err := providers.AsWebhookVerifier(adapter)
	if err != nil {
		return WebhookOutcome{HTTPStatus: http.StatusNotImplemented, Message: "webhooks are not supported by this provider"}
	}

	var integrations []models.PaymentIntegration
	err = s.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND is_enabled = ?", tenantID, provider, true).
		Order("created_at").
		Find(&integrations).Error
	if err != nil {
		s.log.Error("failed to load integrations for webhook", zap.String("provider", string(provider)), zap.Error(err))
		return WebhookOutcome{HTTPStatus: http.StatusServiceUnavailable, Message: "temporarily unavailable"}
	}
	if len(integrations) == 0 {
		return WebhookOutcome{HTTPStatus: http.StatusNotImplemented, Message: "no enabled integration for this provider"}
	}

	var (
		event       *providers.WebhookEvent
		verified    bool
		unavailable bool
	)
	for i := range integrations {
		integ := &integrations[i]
		cfg, err := s.integrationConfig(integ)
		if err != nil {
			s.log.Error("skipping integration with unreadable configuration",
				zap.String("integration_id", integ.ID), zap.Error(err))
			continue
		}

		var res providers.WebhookResult
		err = s.callProvider(ctx, provider, "verify_webhook", func(ctx context.Context) error {
			var err error
			res, err = verifier.VerifyWebhook(ctx, cfg, req)
			return err
		})
		switch {
		case errors.Is(err, providers.ErrNotImplemented), errors.Is(err, providers.ErrUnsupported):
			return WebhookOutcome{HTTPStatus: http.StatusNotImplemented, Message: "webhooks are not available for this provider yet"}
		case providers.IsUnavailable(err):
			unavailable = true
			s.log.Warn("webhook verification unavailable", zap.String("integration_id", integ.ID), zap.Error(err))
			continue
		case err != nil:
			s.log.Warn("webhook rejected", zap.String("integration_id", integ.ID), zap.Error(err))
			continue
		}
		if res.OK {
			verified = true
			event = res.Event
			break
		}
	}

	if !verified {
		if unavailable {
			return WebhookOutcome{HTTPStatus: http.StatusServiceUnavailable, Message: "temporarily unavailable"}
		}
		return WebhookOutcome{HTTPStatus: http.StatusBadRequest, Message: "invalid webhook"}
	}

	out := WebhookOutcome{HTTPStatus: http.StatusOK}
	if !event.IsPaymentSuccess() {
		return out
	}

	var p models.Payment
	err = s.db.WithContext(ctx).
		Where("tenant_id = ? AND external_id = ?", tenantID, event.ExternalID).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Info("webhook for unknown payment", zap.String("external_id", event.ExternalID))
		return out
	}
	if err != nil {
		s.log.Error("failed to load webhook payment", zap.String("external_id", event.ExternalID), zap.Error(err))
		return out
	}
	out.PaymentID = p.ID
	if p.Status == models.PaymentStatusSucceeded {
		return out
	}

	var result settleResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.settleCard(tx, &p, s.now())
		return err
	})
	if err != nil {
		s.log.Error("failed to settle webhook payment",
			zap.String("payment_id", p.ID),
			zap.String("order_id", p.OrderID),
			zap.Error(err))
		return out
	}
	out.Settled = result.paymentChanged
	if result.paymentChanged {
		s.log.Info("payment settled by webhook",
			zap.String("payment_id", p.ID),
			zap.String("order_id", p.OrderID))
	}
	s.publishSettled(ctx, result)
	return out
}
