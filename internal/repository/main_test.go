package repository

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tesloshop/backend/internal/domain"
)

var testDBCounter atomic.Int64

// newRepositoryDBForTest opens a private in-memory sqlite database per test
// with the full schema migrated.
func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Role{},
		&domain.Session{},
		&domain.Product{},
		&domain.ProductImage{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
