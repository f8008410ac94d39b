// Package dbtest opens migrated in-memory SQLite databases and seeds the
// rows most service tests need.
package dbtest

import (
	"strings"
	"testing"

	"mesa-system/internal/database"
	"mesa-system/internal/database/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a private, migrated database named after the test. The pool is
// capped at one connection so concurrent writers serialize the way they do
// behind a row lock in postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type Fixture struct {
	Tenant   models.Tenant
	Location models.Location
	Staff    models.StaffUser
	Burger   models.MenuItem
	Fries    models.MenuItem
}

// Seed creates one tenant with an active location, an admin and two menu items.
func Seed(t testing.TB, db *gorm.DB, slug string) Fixture {
	t.Helper()
	f := Fixture{
		Tenant:   models.Tenant{Name: "Casa " + slug, Slug: slug},
		Location: models.Location{Name: "Centro", Slug: "centro", IsActive: true},
		Staff:    models.StaffUser{Name: "Ana", Email: "ana@" + slug + ".test", PasswordHash: "x", Role: "ADMIN", IsActive: true},
		Burger:   models.MenuItem{Name: "Burger", PriceCents: 500, IsAvailable: true},
		Fries:    models.MenuItem{Name: "Fries", PriceCents: 300, IsAvailable: true},
	}
	must := func(err error) {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(db.Create(&f.Tenant).Error)
	f.Location.TenantID = f.Tenant.ID
	f.Staff.TenantID = f.Tenant.ID
	f.Burger.TenantID = f.Tenant.ID
	f.Fries.TenantID = f.Tenant.ID
	must(db.Create(&f.Location).Error)
	must(db.Create(&f.Staff).Error)
	must(db.Create(&f.Burger).Error)
	must(db.Create(&f.Fries).Error)
	return f
}
