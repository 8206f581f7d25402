package domain

import "github.com/google/uuid"

// ProductImage belongs to exactly one product. Detaching it from the
// product's image set deletes the row.
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
}
