package database

import (
	"gorm.io/gorm"

	"github.com/tesloshop/backend/internal/domain"
)

// Migrate applies the schema for every persisted aggregate. Order
// matters: users and roles precede the join table, products precede
// their image rows.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Role{},
		&domain.User{},
		&domain.Session{},
		&domain.Product{},
		&domain.ProductImage{},
	)
}
