// Package payments settles orders through the cash, transfer, card link and
// card terminal channels, ingests provider webhooks and manages the
// encrypted provider integrations of each tenant.
//
// Every settlement path funnels through the same guarded update: a payment
// moves to SUCCEEDED only while it is not already SUCCEEDED, so concurrent or
// replayed confirmations observe a no-op instead of settling twice.
package payments

import (
	"context"
	"errors"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/notify"
	"mesa-system/internal/payments/providers"
	"mesa-system/internal/services/orders"
	"mesa-system/internal/vault"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	CHANNELS_CACHE_PREFIX = "mesa:channels:"
	CHANNELS_CACHE_TTL    = 2 * time.Minute

	defaultProviderTimeout = 10 * time.Second
)

type Config struct {
	// ProviderTimeout bounds every outbound provider call.
	ProviderTimeout time.Duration
}

type Service struct {
	db       *gorm.DB
	orders   *orders.Service
	registry *providers.Registry
	vault    *vault.Vault
	redis    *redis.Client
	log      *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewService wires the payment engine. redisClient may be nil, in which case
// enabled channels are read from the database on every call.
func NewService(db *gorm.DB, orderSvc *orders.Service, registry *providers.Registry, v *vault.Vault, redisClient *redis.Client, log *zap.Logger, cfg Config) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = providers.DefaultRegistry()
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Service{
		db:       db,
		orders:   orderSvc,
		registry: registry,
		vault:    v,
		redis:    redisClient,
		log:      log,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) findPayment(tx *gorm.DB, tenantID, paymentID string) (*models.Payment, error) {
	var p models.Payment
	err := tx.Where("id = ? AND tenant_id = ?", paymentID, tenantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) loadOrder(ctx context.Context, tenantID, orderID string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", orderID, tenantID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// publishSettled announces a committed settlement.
func (s *Service) publishSettled(ctx context.Context, r settleResult) {
	if s.orders == nil || r.order == nil {
		return
	}
	if r.paymentChanged {
		s.orders.Publish(ctx, notify.EventPaymentSucceeded, r.order, r.payment.ID)
	}
	if r.orderChanged {
		s.orders.Publish(ctx, notify.EventOrderPaid, r.order, r.paymentID())
	}
}

// callProvider runs fn under the provider timeout and normalizes its error.
func (s *Service) callProvider(ctx context.Context, p models.Provider, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return providers.Classify(p, op, fn(ctx))
}
