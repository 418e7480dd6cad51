package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type counter struct {
	table  string
	column string
}

var (
	brandModelsCount       = counter{table: "brands", column: "models_count"}
	modelItemsCount        = counter{table: "product_models", column: "items_count"}
	itemListingCount       = counter{table: "items", column: "listing_count"}
	itemWishlistItemsCount = counter{table: "items", column: "wishlist_items_count"}
)

// adjustCounter applies delta in a single UPDATE so concurrent writers never
// lose increments. It must run on the transaction that made the row change.
func adjustCounter(ctx context.Context, tx *gorm.DB, c counter, id uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	err := tx.WithContext(ctx).
		Table(c.table).
		Where("id = ?", id).
		UpdateColumn(c.column, gorm.Expr(c.column+" + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("adjust %s.%s: %w", c.table, c.column, err)
	}
	return nil
}

// AdjustWishlistCount moves items.wishlist_items_count. Exposed for the
// wishlist service, which shares the counter rules.
func AdjustWishlistCount(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, delta int) error {
	return adjustCounter(ctx, tx, itemWishlistItemsCount, itemID, delta)
}

// recountStatements rewrite every counter from live rows and only touch rows
// whose stored value drifted.
var recountStatements = []struct {
	name string
	sql  string
}{
	{
		name: "brands.models_count",
		sql: `UPDATE brands SET models_count = (
			SELECT COUNT(*) FROM product_models m WHERE m.brand_id = brands.id)
		WHERE models_count <> (
			SELECT COUNT(*) FROM product_models m WHERE m.brand_id = brands.id)`,
	},
	{
		name: "product_models.items_count",
		sql: `UPDATE product_models SET items_count = (
			SELECT COUNT(*) FROM items i WHERE i.model_id = product_models.id)
		WHERE items_count <> (
			SELECT COUNT(*) FROM items i WHERE i.model_id = product_models.id)`,
	},
	{
		name: "items.listing_count",
		sql: `UPDATE items SET listing_count = (
			SELECT COUNT(*) FROM listings l WHERE l.item_id = items.id)
		WHERE listing_count <> (
			SELECT COUNT(*) FROM listings l WHERE l.item_id = items.id)`,
	},
	{
		name: "items.wishlist_items_count",
		sql: `UPDATE items SET wishlist_items_count = (
			SELECT COUNT(*) FROM wishlist_items w JOIN listings l ON l.id = w.listing_id WHERE l.item_id = items.id)
		WHERE wishlist_items_count <> (
			SELECT COUNT(*) FROM wishlist_items w JOIN listings l ON l.id = w.listing_id WHERE l.item_id = items.id)`,
	},
}

// RecountResult reports how many rows were corrected per counter.
type RecountResult struct {
	Fixed map[string]int64 `json:"fixed"`
	Total int64            `json:"total"`
}

func recount(ctx context.Context, tx *gorm.DB) (*RecountResult, error) {
	result := &RecountResult{Fixed: make(map[string]int64, len(recountStatements))}
	for _, stmt := range recountStatements {
		res := tx.WithContext(ctx).Exec(stmt.sql)
		if res.Error != nil {
			return nil, fmt.Errorf("recount %s: %w", stmt.name, res.Error)
		}
		result.Fixed[stmt.name] = res.RowsAffected
		result.Total += res.RowsAffected
	}
	return result, nil
}
