package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mesa-system/internal/database/models"
	"mesa-system/internal/payments/providers"
	"mesa-system/internal/services/orders"
	"mesa-system/internal/tenant"
	"mesa-system/internal/vault"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IntegrationInput creates or edits an integration. On edit secret fields are
// taken from Secrets only: an absent or null entry keeps the stored value and
// an empty string removes it. Provider and Type are fixed after creation.
type IntegrationInput struct {
	Name       string                        `json:"name"`
	Provider   models.Provider               `json:"provider"`
	Type       models.IntegrationType        `json:"type"`
	LocationID *string                       `json:"location_id"`
	IsEnabled  *bool                         `json:"is_enabled"`
	Config     map[string]any                `json:"config"`
	Secrets    map[string]vault.SecretUpdate `json:"secrets"`
}

// IntegrationView is an integration as shown to admins: secrets masked.
type IntegrationView struct {
	models.PaymentIntegration
	Config map[string]any `json:"config"`
}

func (s *Service) ListIntegrations(ctx context.Context, tc tenant.Context) ([]IntegrationView, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	var rows []models.PaymentIntegration
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tc.TenantID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	views := make([]IntegrationView, 0, len(rows))
	for i := range rows {
		view := IntegrationView{PaymentIntegration: rows[i]}
		cfg, err := s.integrationConfig(&rows[i])
		if err != nil {
			s.log.Error("integration configuration unreadable",
				zap.String("integration_id", rows[i].ID), zap.Error(err))
		} else {
			view.Config = vault.Mask(cfg)
		}
		views = append(views, view)
	}
	return views, nil
}

// GetIntegrationForEdit returns one integration with its secrets masked.
func (s *Service) GetIntegrationForEdit(ctx context.Context, tc tenant.Context, id string) (*IntegrationView, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	integ, err := s.findIntegration(s.db.WithContext(ctx), tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	cfg, err := s.integrationConfig(integ)
	if err != nil {
		return nil, err
	}
	return &IntegrationView{PaymentIntegration: *integ, Config: vault.Mask(cfg)}, nil
}

func (s *Service) CreateIntegration(ctx context.Context, tc tenant.Context, in IntegrationInput) (*IntegrationView, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	for k, v := range in.Config {
		if vault.IsSecretField(k) && v == vault.MaskedPlaceholder {
			return nil, invalid(k + " must be the real secret, not the masked placeholder")
		}
	}
	if err := s.checkLocation(ctx, tc.TenantID, in.LocationID); err != nil {
		return nil, err
	}

	doc := vault.Merge(in.Config, in.Config, in.Secrets)
	cfg, err := providers.ValidateConfig(in.Provider, in.Type, doc)
	if err != nil {
		return nil, configError(err)
	}

	integ := &models.PaymentIntegration{
		TenantID:   tc.TenantID,
		LocationID: trimmedID(in.LocationID),
		Provider:   in.Provider,
		Type:       in.Type,
		Name:       name,
		IsEnabled:  in.IsEnabled == nil || *in.IsEnabled,
	}
	if err := s.seal(integ, cfg); err != nil {
		return nil, err
	}
	if integ.IsEnabled {
		if err := s.checkConflict(ctx, integ); err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Create(integ).Error; err != nil {
		return nil, fmt.Errorf("create integration: %w", err)
	}
	s.invalidateChannels(ctx, tc.TenantID)

	s.log.Info("payment integration created",
		zap.String("integration_id", integ.ID),
		zap.String("provider", string(integ.Provider)),
		zap.String("type", string(integ.Type)))
	return &IntegrationView{PaymentIntegration: *integ, Config: vault.Mask(cfg)}, nil
}

func (s *Service) UpdateIntegration(ctx context.Context, tc tenant.Context, id string, in IntegrationInput) (*IntegrationView, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	integ, err := s.findIntegration(s.db.WithContext(ctx), tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if (in.Provider != "" && in.Provider != integ.Provider) || (in.Type != "" && in.Type != integ.Type) {
		return nil, invalid("provider and type cannot be changed; create a new integration instead")
	}
	// Secret values in config would be ignored by the merge. Only the echoed
	// placeholder from the edit view may appear there.
	for k, v := range in.Config {
		if vault.IsSecretField(k) && v != nil && v != vault.MaskedPlaceholder {
			return nil, invalid(k + " must be sent under secrets")
		}
	}
	current, err := s.integrationConfig(integ)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		integ.Name = name
	}
	if in.LocationID != nil {
		if err := s.checkLocation(ctx, tc.TenantID, in.LocationID); err != nil {
			return nil, err
		}
		integ.LocationID = trimmedID(in.LocationID)
	}
	if in.IsEnabled != nil {
		integ.IsEnabled = *in.IsEnabled
	}

	cfg, err := providers.ValidateConfig(integ.Provider, integ.Type, vault.Merge(current, in.Config, in.Secrets))
	if err != nil {
		return nil, configError(err)
	}
	if err := s.seal(integ, cfg); err != nil {
		return nil, err
	}
	if integ.IsEnabled {
		if err := s.checkConflict(ctx, integ); err != nil {
			return nil, err
		}
	}
	err = s.db.WithContext(ctx).Model(integ).
		Select("name", "location_id", "is_enabled", "config_encrypted", "updated_at").
		Updates(integ).Error
	if err != nil {
		return nil, fmt.Errorf("update integration: %w", err)
	}
	s.invalidateChannels(ctx, tc.TenantID)
	return &IntegrationView{PaymentIntegration: *integ, Config: vault.Mask(cfg)}, nil
}

// SetIntegrationEnabled toggles an integration. Enabling is subject to the
// one-enabled-per-scope rule.
func (s *Service) SetIntegrationEnabled(ctx context.Context, tc tenant.Context, id string, enabled bool) (*models.PaymentIntegration, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	integ, err := s.findIntegration(s.db.WithContext(ctx), tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if integ.IsEnabled == enabled {
		return integ, nil
	}
	integ.IsEnabled = enabled
	if enabled {
		if err := s.checkConflict(ctx, integ); err != nil {
			return nil, err
		}
	}
	err = s.db.WithContext(ctx).Model(integ).Select("is_enabled", "updated_at").Updates(integ).Error
	if err != nil {
		return nil, fmt.Errorf("toggle integration: %w", err)
	}
	s.invalidateChannels(ctx, tc.TenantID)
	return integ, nil
}

func (s *Service) DeleteIntegration(ctx context.Context, tc tenant.Context, id string) error {
	if err := tc.RequireAdmin(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tc.TenantID).
		Delete(&models.PaymentIntegration{})
	if res.Error != nil {
		return fmt.Errorf("delete integration: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrIntegrationNotFound
	}
	s.invalidateChannels(ctx, tc.TenantID)
	return nil
}

// IntegrationConfig returns the decrypted configuration of a tenant's
// integration. It is for server side use only and never reaches a client.
func (s *Service) IntegrationConfig(ctx context.Context, tenantID, id string) (providers.Config, error) {
	integ, err := s.findIntegration(s.db.WithContext(ctx), tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.integrationConfig(integ)
}

// EnabledChannels lists the card link and terminal channels a POS at
// locationID can offer.
func (s *Service) EnabledChannels(ctx context.Context, tc tenant.Context, locationID string) (providers.EnabledChannels, error) {
	if err := tc.RequireStaff(); err != nil {
		return providers.EnabledChannels{}, err
	}
	return s.enabledChannels(ctx, tc.TenantID, locationID)
}

func (s *Service) enabledChannels(ctx context.Context, tenantID, locationID string) (providers.EnabledChannels, error) {
	key := CHANNELS_CACHE_PREFIX + tenantID
	if s.redis != nil {
		cached, err := s.redis.HGet(ctx, key, locationID).Result()
		if err == nil {
			var channels providers.EnabledChannels
			if json.Unmarshal([]byte(cached), &channels) == nil {
				return channels, nil
			}
		} else if err != redis.Nil {
			s.log.Warn("channel cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}

	var rows []models.PaymentIntegration
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_enabled = ?", tenantID, true).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return providers.EnabledChannels{}, err
	}
	channels := providers.MergeEnabled(rows, locationID)

	if s.redis != nil {
		if raw, err := json.Marshal(channels); err == nil {
			pipe := s.redis.TxPipeline()
			pipe.HSet(ctx, key, locationID, raw)
			pipe.Expire(ctx, key, CHANNELS_CACHE_TTL)
			if _, err := pipe.Exec(ctx); err != nil {
				s.log.Warn("channel cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
			}
		}
	}
	return channels, nil
}

func (s *Service) invalidateChannels(ctx context.Context, tenantID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, CHANNELS_CACHE_PREFIX+tenantID).Err(); err != nil {
		s.log.Warn("channel cache invalidation failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (s *Service) findIntegration(db *gorm.DB, tenantID, id string) (*models.PaymentIntegration, error) {
	var integ models.PaymentIntegration
	err := db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&integ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntegrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &integ, nil
}

// enabledIntegration loads an integration that must be enabled and serve t.
func (s *Service) enabledIntegration(ctx context.Context, tenantID, id string, t models.IntegrationType) (*models.PaymentIntegration, error) {
	integ, err := s.findIntegration(s.db.WithContext(ctx), tenantID, id)
	if err != nil {
		return nil, err
	}
	if !integ.IsEnabled {
		return nil, fmt.Errorf("%w: %s is disabled", ErrIntegrationNotFound, integ.Name)
	}
	if integ.Type != t {
		return nil, fmt.Errorf("%w: %s is a %s integration", ErrIntegrationType, integ.Name, integ.Type)
	}
	return integ, nil
}

func (s *Service) integrationConfig(integ *models.PaymentIntegration) (providers.Config, error) {
	if s.vault == nil {
		return nil, errors.New("payments: credential vault is not configured")
	}
	doc, err := s.vault.DecryptMap(integ.ConfigEncrypted)
	if err != nil {
		return nil, fmt.Errorf("integration %s: %w", integ.ID, err)
	}
	return providers.Config(doc), nil
}

func (s *Service) seal(integ *models.PaymentIntegration, cfg providers.Config) error {
	if s.vault == nil {
		return errors.New("payments: credential vault is not configured")
	}
	token, err := s.vault.Encrypt(map[string]any(cfg))
	if err != nil {
		return fmt.Errorf("encrypt integration config: %w", err)
	}
	integ.ConfigEncrypted = token
	return nil
}

// checkConflict enforces at most one enabled integration per tenant,
// provider, type and location scope.
func (s *Service) checkConflict(ctx context.Context, integ *models.PaymentIntegration) error {
	q := s.db.WithContext(ctx).Model(&models.PaymentIntegration{}).
		Where("tenant_id = ? AND provider = ? AND type = ? AND is_enabled = ?",
			integ.TenantID, integ.Provider, integ.Type, true)
	if integ.LocationID == nil {
		q = q.Where("location_id IS NULL")
	} else {
		q = q.Where("location_id = ?", *integ.LocationID)
	}
	if integ.ID != "" {
		q = q.Where("id <> ?", integ.ID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrIntegrationConflict
	}
	return nil
}

func (s *Service) checkLocation(ctx context.Context, tenantID string, locationID *string) error {
	id := trimmedID(locationID)
	if id == nil {
		return nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Location{}).
		Where("id = ? AND tenant_id = ?", *id, tenantID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return orders.ErrLocationNotFound
	}
	return nil
}

func trimmedID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

// configError turns schema failures into caller facing validation errors.
func configError(err error) error {
	var ce *providers.ConfigError
	if errors.As(err, &ce) {
		return invalid(ce.Error())
	}
	if errors.Is(err, providers.ErrUnsupported) || errors.Is(err, providers.ErrUnknownProvider) {
		return invalid(err.Error())
	}
	return err
}
