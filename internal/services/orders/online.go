package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"mesa-system/internal/database/models"
	"mesa-system/internal/tenant"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const onlineActorName = "Online"

func onlineActorEmail(tenantID string) string {
	return fmt.Sprintf("online-%s@system", tenantID)
}

// EnsureOnlineActor returns the tenant's reserved storefront actor, creating
// it on first use. Its password is random and never stored in clear, so the
// account cannot log in.
func (s *Service) EnsureOnlineActor(ctx context.Context, tenantID string) (*models.StaffUser, error) {
	db := s.db.WithContext(ctx)
	email := onlineActorEmail(tenantID)

	var user models.StaffUser
	err := db.Where("tenant_id = ? AND email = ?", tenantID, email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user = models.StaffUser{
		TenantID:     tenantID,
		Name:         onlineActorName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(tenant.RoleEmployee),
		IsActive:     true,
		IsSystem:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		// Lost a race with a concurrent first order.
		var existing models.StaffUser
		if lookupErr := db.Where("email = ?", email).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("create online actor: %w", err)
	}
	return &user, nil
}

type OnlineOrderInput struct {
	RestaurantSlug string
	LocationSlug   string
	Lines          []LineInput
	CustomerName   string
	CustomerPhone  string
	Notes          string
}

// CreateOnlineOrder resolves the storefront by slugs and creates an OPEN order
// attributed to the online actor. Notifications are sent in the background.
func (s *Service) CreateOnlineOrder(ctx context.Context, in OnlineOrderInput) (*models.Order, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if trimmed(in.CustomerName) == nil {
		return nil, invalid("customer name is required")
	}
	if trimmed(in.CustomerPhone) == nil {
		return nil, invalid("customer phone is required")
	}

	db := s.db.WithContext(ctx)
	var t models.Tenant
	if err := db.Where("slug = ?", in.RestaurantSlug).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	var loc models.Location
	if err := db.Where("tenant_id = ? AND slug = ? AND is_active = ?", t.ID, in.LocationSlug, true).First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}

	return s.CreateOrder(ctx, tenant.Context{TenantID: t.ID}, CreateOrderInput{
		LocationID:    loc.ID,
		Mode:          ModeOnline,
		Lines:         in.Lines,
		Notes:         in.Notes,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
	})
}
