// Package catalog resolves menu items to their live name and price for new
// order lines.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/money"
	"mesa-system/internal/tenant"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	CATALOG_CACHE_PREFIX    = "mesa:catalog:"
	CATALOG_CHANGES_CHANNEL = "mesa:catalog:changes"
	CACHE_TTL               = 5 * time.Minute
)

var (
	ErrItemNotFound = errors.New("menu item not found")
	ErrInvalidItem  = errors.New("invalid menu item")
)

type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Available  bool   `json:"available"`
}

// Lookup returns the items of tenantID among ids. Unknown ids are absent from
// the result map.
type Lookup interface {
	Items(ctx context.Context, tenantID string, ids []string) (map[string]Item, error)
}

type Store struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger
}

// NewStore returns a gorm backed lookup. redisClient may be nil.
func NewStore(db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, redis: redisClient, log: log}
}

func cacheKey(tenantID, id string) string {
	return fmt.Sprintf("%s%s:%s", CATALOG_CACHE_PREFIX, tenantID, id)
}

func (s *Store) Items(ctx context.Context, tenantID string, ids []string) (map[string]Item, error) {
	out := make(map[string]Item, len(ids))
	missing := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if item, ok := s.cached(ctx, tenantID, id); ok {
			out[id] = item
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	var rows []models.MenuItem
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, missing).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	for _, row := range rows {
		item := itemFrom(row)
		out[row.ID] = item
		s.store(ctx, tenantID, item)
	}
	return out, nil
}

// Invalidate drops cached entries after a menu item edit.
func (s *Store) Invalidate(ctx context.Context, tenantID string, ids ...string) {
	if s.redis == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(tenantID, id))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn("catalog cache invalidation failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (s *Store) cached(ctx context.Context, tenantID, id string) (Item, bool) {
	if s.redis == nil {
		return Item{}, false
	}
	val, err := s.redis.Get(ctx, cacheKey(tenantID, id)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("catalog cache read failed", zap.Error(err))
		}
		return Item{}, false
	}
	var item Item
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return Item{}, false
	}
	return item, true
}

func (s *Store) store(ctx context.Context, tenantID string, item Item) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(tenantID, item.ID), data, CACHE_TTL).Err(); err != nil {
		s.log.Debug("catalog cache write failed", zap.Error(err))
	}
}

// Change announces edited menu items on CATALOG_CHANGES_CHANNEL. Any writer of
// menu rows publishes one so every process drops the stale cache entries.
type Change struct {
	TenantID string   `json:"tenant_id"`
	ItemIDs  []string `json:"item_ids"`
}

// ItemPatch carries the editable fields of a menu item; nil fields are kept.
type ItemPatch struct {
	Name       *string `json:"name"`
	PriceCents *int64  `json:"price_cents"`
	Available  *bool   `json:"available"`
}

// ListItems returns the tenant's menu ordered by name.
func (s *Store) ListItems(ctx context.Context, tc tenant.Context) ([]Item, error) {
	if err := tc.RequireStaff(); err != nil {
		return nil, err
	}
	var rows []models.MenuItem
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tc.TenantID).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFrom(row))
	}
	return items, nil
}

// UpdateItem edits a menu item and announces the change. Lines already on
// orders keep their snapshot; only new lines see the edit.
func (s *Store) UpdateItem(ctx context.Context, tc tenant.Context, id string, patch ItemPatch) (*Item, error) {
	if err := tc.RequireAdmin(); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
		}
		updates["name"] = name
	}
	if patch.PriceCents != nil {
		if *patch.PriceCents < 0 || *patch.PriceCents > money.MaxAmount {
			return nil, fmt.Errorf("%w: price must be between 0 and %s", ErrInvalidItem, money.Format(money.MaxAmount))
		}
		updates["price_cents"] = *patch.PriceCents
	}
	if patch.Available != nil {
		updates["is_available"] = *patch.Available
	}

	var row models.MenuItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND id = ?", tc.TenantID, id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", row.ID).First(&row).Error
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, tc.TenantID, row.ID)
	s.PublishChange(ctx, Change{TenantID: tc.TenantID, ItemIDs: []string{row.ID}})
	item := itemFrom(row)
	return &item, nil
}

// PublishChange tells every subscribed process to drop the listed items.
func (s *Store) PublishChange(ctx context.Context, c Change) {
	if s.redis == nil || len(c.ItemIDs) == 0 {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.redis.Publish(ctx, CATALOG_CHANGES_CHANNEL, data).Err(); err != nil {
		s.log.Warn("catalog change publish failed", zap.String("tenant_id", c.TenantID), zap.Error(err))
	}
}

// Watch invalidates cached items named on CATALOG_CHANGES_CHANNEL until ctx is
// done. It returns immediately without redis.
func (s *Store) Watch(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	sub := s.redis.Subscribe(ctx, CATALOG_CHANGES_CHANNEL)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", CATALOG_CHANGES_CHANNEL, err)
	}

	s.log.Info("watching catalog changes", zap.String("channel", CATALOG_CHANGES_CHANNEL))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handleChange(ctx, msg.Payload)
		}
	}
}

func (s *Store) handleChange(ctx context.Context, payload string) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil || c.TenantID == "" {
		s.log.Warn("ignoring malformed catalog change", zap.String("payload", payload))
		return
	}
	s.Invalidate(ctx, c.TenantID, c.ItemIDs...)
}

func itemFrom(row models.MenuItem) Item {
	return Item{ID: row.ID, Name: row.Name, PriceCents: row.PriceCents, Available: row.IsAvailable}
}
