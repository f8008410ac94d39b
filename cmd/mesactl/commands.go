package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mesa-system/config"
	"mesa-system/internal/database"
	"mesa-system/internal/database/models"
	"mesa-system/internal/services/staff"
	"mesa-system/internal/tenant"
	"mesa-system/internal/utils"
	"mesa-system/internal/vault"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new ENCRYPTION_KEY for integration configs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := vault.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func migrateCmd(load func() settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context(), load())
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func bootstrapCmd(load func() settings) *cobra.Command {
	var in staff.BootstrapInput

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create a restaurant with its first location and owner",
		Long: `Create a restaurant, its first location and an OWNER account.

Examples:
  mesactl bootstrap --name "Casa Ruta" --slug ruta --owner-email ana@ruta.do --owner-password s3cret-pass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := load()
			db, err := openDB(cmd.Context(), s)
			if err != nil {
				return err
			}
			logger := newLogger()
			defer logger.Sync()

			t, owner, err := staff.NewService(db, nil, logger).Bootstrap(cmd.Context(), in)
			if err != nil {
				return err
			}
			logger.Info("restaurant created",
				zap.String("tenant_id", t.ID),
				zap.String("slug", t.Slug),
				zap.String("owner_id", owner.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %s (%s), owner %s\n", t.ID, t.Slug, owner.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.RestaurantName, "name", "", "restaurant name")
	cmd.Flags().StringVar(&in.Slug, "slug", "", "storefront slug")
	cmd.Flags().StringVar(&in.LocationName, "location", "", "first location name (default Principal)")
	cmd.Flags().StringVar(&in.Owner.Name, "owner-name", "Owner", "owner display name")
	cmd.Flags().StringVar(&in.Owner.Email, "owner-email", "", "owner login email")
	cmd.Flags().StringVar(&in.Owner.Password, "owner-password", "", "owner password (min 8 characters)")
	in.Owner.Role = tenant.RoleOwner
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("slug")
	_ = cmd.MarkFlagRequired("owner-email")
	_ = cmd.MarkFlagRequired("owner-password")

	return cmd
}

func tokenCmd(load func() settings) *cobra.Command {
	var (
		tenantID string
		actorID  string
		role     string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a staff member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, err := utils.NewTokenIssuer(load().JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.GenerateToken(tenant.Context{
				TenantID: tenantID,
				ActorID:  actorID,
				Role:     tenant.Role(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&actorID, "actor", "", "staff user id")
	cmd.Flags().StringVar(&role, "role", string(tenant.RoleAdmin), "OWNER, ADMIN or EMPLOYEE")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func openDB(ctx context.Context, s settings) (*gorm.DB, error) {
	db, err := database.NewConnection(s.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// openRedis connects to the gateway's Redis so admin edits clear its caches.
// Without it the caches expire on their own TTL.
func openRedis(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	rc, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, cached POS channels will expire on their own", zap.Error(err))
		return nil
	}
	return rc
}

// ownerContext acts as the tenant's first active owner or admin.
func ownerContext(ctx context.Context, db *gorm.DB, tenantID string) (tenant.Context, error) {
	var user models.StaffUser
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND is_system = ? AND role IN ?", tenantID, true, false,
			[]string{string(tenant.RoleOwner), string(tenant.RoleAdmin)}).
		Order("created_at").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tenant.Context{}, fmt.Errorf("tenant %s has no active owner or admin", tenantID)
	}
	if err != nil {
		return tenant.Context{}, err
	}
	return tenant.Context{TenantID: tenantID, ActorID: user.ID, Role: tenant.Role(user.Role)}, nil
}
