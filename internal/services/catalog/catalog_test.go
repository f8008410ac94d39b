package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"mesa-system/internal/database/dbtest"
	"mesa-system/internal/money"
	"mesa-system/internal/tenant"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestStoreItemsIsTenantScoped(t *testing.T) {
	db := dbtest.Open(t)
	a := dbtest.Seed(t, db, "a")
	b := dbtest.Seed(t, db, "b")

	s := NewStore(db, nil, nil)
	got, err := s.Items(context.Background(), a.Tenant.ID, []string{a.Burger.ID, b.Fries.ID, "missing", a.Burger.ID, ""})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1: %+v", len(got), got)
	}
	item := got[a.Burger.ID]
	if item.Name != "Burger" || item.PriceCents != 500 || !item.Available {
		t.Errorf("item = %+v", item)
	}
}

func TestStoreItemsEmpty(t *testing.T) {
	db := dbtest.Open(t)
	s := NewStore(db, nil, nil)
	got, err := s.Items(context.Background(), "t", nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("Items(nil) = %v, %v", got, err)
	}
	s.Invalidate(context.Background(), "t", "x")
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStoreItemsUsesCache(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.Seed(t, db, "a")
	mr, client := newRedis(t)
	s := NewStore(db, client, nil)
	ctx := context.Background()

	if _, err := s.Items(ctx, fx.Tenant.ID, []string{fx.Burger.ID}); err != nil {
		t.Fatalf("Items: %v", err)
	}
	if !mr.Exists(cacheKey(fx.Tenant.ID, fx.Burger.ID)) {
		t.Fatal("item was not cached")
	}

	// A direct row edit is invisible until the entry is invalidated.
	db.Model(&fx.Burger).Update("price_cents", 650)
	got, _ := s.Items(ctx, fx.Tenant.ID, []string{fx.Burger.ID})
	if got[fx.Burger.ID].PriceCents != 500 {
		t.Fatalf("cached price = %d, want 500", got[fx.Burger.ID].PriceCents)
	}
	s.Invalidate(ctx, fx.Tenant.ID, fx.Burger.ID)
	got, _ = s.Items(ctx, fx.Tenant.ID, []string{fx.Burger.ID})
	if got[fx.Burger.ID].PriceCents != 650 {
		t.Errorf("price after invalidate = %d, want 650", got[fx.Burger.ID].PriceCents)
	}
}

func TestUpdateItemRefreshesPrice(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.Seed(t, db, "a")
	_, client := newRedis(t)
	s := NewStore(db, client, nil)
	ctx := context.Background()
	admin := tenant.Context{TenantID: fx.Tenant.ID, ActorID: fx.Staff.ID, Role: tenant.RoleAdmin}

	if _, err := s.Items(ctx, fx.Tenant.ID, []string{fx.Fries.ID}); err != nil {
		t.Fatalf("Items: %v", err)
	}
	price := int64(350)
	off := false
	item, err := s.UpdateItem(ctx, admin, fx.Fries.ID, ItemPatch{PriceCents: &price, Available: &off})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if item.PriceCents != 350 || item.Available || item.Name != "Fries" {
		t.Errorf("item = %+v", item)
	}
	got, _ := s.Items(ctx, fx.Tenant.ID, []string{fx.Fries.ID})
	if got[fx.Fries.ID].PriceCents != 350 || got[fx.Fries.ID].Available {
		t.Errorf("lookup after edit = %+v", got[fx.Fries.ID])
	}
}

func TestUpdateItemValidation(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.Seed(t, db, "a")
	other := dbtest.Seed(t, db, "b")
	s := NewStore(db, nil, nil)
	ctx := context.Background()
	admin := tenant.Context{TenantID: fx.Tenant.ID, ActorID: fx.Staff.ID, Role: tenant.RoleAdmin}
	employee := tenant.Context{TenantID: fx.Tenant.ID, ActorID: fx.Staff.ID, Role: tenant.RoleEmployee}

	negative := int64(-1)
	huge := money.MaxAmount + 1
	blank := "  "
	tests := []struct {
		name  string
		tc    tenant.Context
		id    string
		patch ItemPatch
		want  error
	}{
		{"employee", employee, fx.Burger.ID, ItemPatch{}, tenant.ErrUnauthorized},
		{"negative price", admin, fx.Burger.ID, ItemPatch{PriceCents: &negative}, ErrInvalidItem},
		{"price over maximum", admin, fx.Burger.ID, ItemPatch{PriceCents: &huge}, ErrInvalidItem},
		{"blank name", admin, fx.Burger.ID, ItemPatch{Name: &blank}, ErrInvalidItem},
		{"other tenant", admin, other.Burger.ID, ItemPatch{}, ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.UpdateItem(ctx, tt.tc, tt.id, tt.patch); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWatchInvalidatesOnChange(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.Seed(t, db, "a")
	mr, client := newRedis(t)
	s := NewStore(db, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	waitFor(t, "subscriber", func() bool {
		return mr.PubSubNumSub(CATALOG_CHANGES_CHANNEL)[CATALOG_CHANGES_CHANNEL] == 1
	})

	if _, err := s.Items(context.Background(), fx.Tenant.ID, []string{fx.Burger.ID, fx.Fries.ID}); err != nil {
		t.Fatalf("Items: %v", err)
	}
	burgerKey := cacheKey(fx.Tenant.ID, fx.Burger.ID)
	friesKey := cacheKey(fx.Tenant.ID, fx.Fries.ID)

	// Another writer edits the menu and announces it.
	db.Model(&fx.Burger).Update("price_cents", 700)
	mr.Publish(CATALOG_CHANGES_CHANNEL, "not json")
	mr.Publish(CATALOG_CHANGES_CHANNEL, `{"tenant_id":"`+fx.Tenant.ID+`","item_ids":["`+fx.Burger.ID+`"]}`)
	waitFor(t, "invalidation", func() bool { return !mr.Exists(burgerKey) })
	if !mr.Exists(friesKey) {
		t.Error("unrelated item was invalidated")
	}

	got, _ := s.Items(context.Background(), fx.Tenant.ID, []string{fx.Burger.ID})
	if got[fx.Burger.ID].PriceCents != 700 {
		t.Errorf("price = %d, want 700", got[fx.Burger.ID].PriceCents)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop")
	}
}

func TestWatchWithoutRedis(t *testing.T) {
	s := NewStore(dbtest.Open(t), nil, nil)
	if err := s.Watch(context.Background()); err != nil {
		t.Errorf("Watch = %v", err)
	}
	s.PublishChange(context.Background(), Change{TenantID: "t", ItemIDs: []string{"x"}})
}
