package models

import (
	"fmt"

	"gorm.io/gorm"
)

// expressionIndexes cannot be expressed as struct tags. The goose migrations
// create the same indexes on Postgres.
var expressionIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_brands_name_lower ON brands (lower(name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_product_models_brand_name_lower ON product_models (brand_id, lower(name))`,
	`CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings (created_at DESC, id DESC)`,
}

// CatalogModels lists every table in dependency order.
func CatalogModels() []any {
	return []any{
		&Brand{},
		&ProductModel{},
		&Item{},
		&Sizing{},
		&Listing{},
		&ListingVariant{},
		&ListingPhoto{},
		&WishlistItem{},
		&OutboxEvent{},
	}
}

// AutoMigrate builds the schema with GORM. It backs the SQLite dev mode and the
// test suites; Postgres deployments use the goose migrations instead.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(CatalogModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range expressionIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
