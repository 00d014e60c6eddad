package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a catalog listing. StockQty is the single source of
// truth for availability and is only ever mutated through conditional
// updates, never read-modify-write.
type Product struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU                 string         `gorm:"column:sku;not null;uniqueIndex"`
	Name                string         `gorm:"column:name;not null"`
	Brand               *string        `gorm:"column:brand"`
	Description         *string        `gorm:"column:description"`
	Category            string         `gorm:"column:category;not null"`
	Tags                pq.StringArray `gorm:"column:tags;type:text[]"`
	SizeML              *int           `gorm:"column:size_ml"`
	PriceCents          int            `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int           `gorm:"column:compare_at_price_cents"`
	StockQty            int            `gorm:"column:stock_qty;not null;default:0"`
	ImageURL            *string        `gorm:"column:image_url"`
	IsActive            bool           `gorm:"column:is_active;not null;default:true"`
	IsFeatured          bool           `gorm:"column:is_featured;not null;default:false"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
