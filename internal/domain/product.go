package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog aggregate root. Its image rows are owned
// exclusively by the product and are removed with it.
type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null;index" json:"title"`
	Slug        string         `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Price       float64        `gorm:"not null;default:0" json:"price"`
	Description string         `gorm:"type:text" json:"description"`
	Stock       int            `gorm:"not null;default:0" json:"stock"`
	Sizes       []string       `gorm:"serializer:json" json:"sizes"`
	Gender      string         `gorm:"size:16;index" json:"gender"`
	Tags        []string       `gorm:"serializer:json" json:"tags"`
	Images      []ProductImage `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	UserID      *uuid.UUID     `gorm:"type:uuid;index" json:"-"`
	User        *User          `json:"user,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ImageURLs flattens the owned image rows back into their raw URL form,
// preserving insertion order.
func (p *Product) ImageURLs() []string {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, img.URL)
	}
	return urls
}
