// Package staff authenticates tenant members and manages their accounts.
package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/tenant"
	"mesa-system/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSlugTaken          = errors.New("restaurant slug already registered")
)

// InputError is a rejected request field.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

type Service struct {
	db     *gorm.DB
	tokens *utils.TokenIssuer
	log    *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, tokens *utils.TokenIssuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, tokens: tokens, log: log, now: time.Now}
}

type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      models.StaffUser `json:"user"`
}

// Authenticate checks a staff member's password and issues a session token.
// System actors and inactive members cannot log in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, &InputError{Message: "email and password are required"}
	}

	var user models.StaffUser
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ? AND is_system = ?", email, true, false).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.GenerateToken(tenant.Context{
		TenantID: user.TenantID,
		ActorID:  user.ID,
		Role:     tenant.Role(user.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("staff login", zap.String("user_id", user.ID), zap.String("tenant_id", user.TenantID))
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

type CreateStaffInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     tenant.Role `json:"role"`
}

// CreateStaff registers a member of the caller's tenant. Admins only.
func (s *Service) CreateStaff(ctx context.Context, tc tenant.Context, in CreateStaffInput) (*models.StaffUser, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	var user *models.StaffUser
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = createStaff(tx, tc.TenantID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("staff member created", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// ListStaff returns the tenant's members, system actors excluded.
func (s *Service) ListStaff(ctx context.Context, tc tenant.Context) ([]models.StaffUser, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}
	var users []models.StaffUser
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_system = ?", tc.TenantID, false).
		Order("name").
		Find(&users).Error
	return users, err
}

type BootstrapInput struct {
	RestaurantName string
	Slug           string
	LocationName   string
	Owner          CreateStaffInput
}

// Bootstrap creates a restaurant with its first location and its owner.
func (s *Service) Bootstrap(ctx context.Context, in BootstrapInput) (*models.Tenant, *models.StaffUser, error) {
	name := strings.TrimSpace(in.RestaurantName)
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if name == "" || slug == "" {
		return nil, nil, &InputError{Message: "restaurant name and slug are required"}
	}
	locName := strings.TrimSpace(in.LocationName)
	if locName == "" {
		locName = "Principal"
	}
	in.Owner.Role = tenant.RoleOwner

	var (
		t     models.Tenant
		owner *models.StaffUser
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Tenant{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSlugTaken
		}
		t = models.Tenant{Name: name, Slug: slug}
		if err := tx.Create(&t).Error; err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		loc := models.Location{TenantID: t.ID, Name: locName, Slug: slugify(locName), IsActive: true}
		if err := tx.Create(&loc).Error; err != nil {
			return fmt.Errorf("create location: %w", err)
		}
		var err error
		owner, err = createStaff(tx, t.ID, in.Owner)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("restaurant bootstrapped", zap.String("tenant_id", t.ID), zap.String("slug", t.Slug))
	return &t, owner, nil
}

func createStaff(tx *gorm.DB, tenantID string, in CreateStaffInput) (*models.StaffUser, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, &InputError{Message: "name and email are required"}
	}
	if !strings.Contains(email, "@") || strings.HasSuffix(email, "@system") {
		return nil, &InputError{Message: "email is not valid"}
	}
	if len(in.Password) < minPasswordLength {
		return nil, &InputError{Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	role := in.Role
	if role == "" {
		role = tenant.RoleEmployee
	}
	if role != tenant.RoleOwner && role != tenant.RoleAdmin && role != tenant.RoleEmployee {
		return nil, &InputError{Message: fmt.Sprintf("unknown role %q", role)}
	}

	var n int64
	if err := tx.Model(&models.StaffUser{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.StaffUser{
		TenantID:     tenantID,
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(role),
		IsActive:     true,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	return user, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
