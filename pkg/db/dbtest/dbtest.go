// Package dbtest opens throwaway SQLite databases carrying the sync schema.
package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/commercive/commerce-sync/pkg/db"
	"github.com/commercive/commerce-sync/pkg/db/models"
)

// Open returns an in-memory database private to the test with every model migrated.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// A single connection serializes writers the way row locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromConn(Open(t))
}

// Store inserts an installed store with the given domain.
func Store(t testing.TB, conn *gorm.DB, domain string) models.Store {
	t.Helper()
	store := models.Store{
		ShopDomain:  domain,
		Name:        domain,
		AccessToken: "shpat_test",
		Currency:    "USD",
		Installed:   true,
	}
	if err := conn.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}
