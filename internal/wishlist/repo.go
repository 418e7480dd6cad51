package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// AddItem inserts a wishlist entry and ignores duplicates. It reports whether
// a row was written.
func (r *Repository) AddItem(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || listingID == uuid.Nil {
		return false, gorm.ErrInvalidValue
	}
	res := r.db.WithContext(ctx).
		Exec(`INSERT INTO wishlist_items (user_id, listing_id, created_at) VALUES (?, ?, ?) ON CONFLICT (user_id, listing_id) DO NOTHING`,
			userID, listingID, time.Now().UTC())
	return res.RowsAffected > 0, res.Error
}

// RemoveItem deletes the user-listing entry if it exists and reports whether it did.
func (r *Repository) RemoveItem(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.WishlistItem{})
	return res.RowsAffected > 0, res.Error
}

// LockListing pins the listing and its item for the rest of the transaction
// and returns the item id. The item row is locked for update first, then the
// listing for share, so a concurrent listing delete either finishes before
// the wishlist write or waits for it. SQLite ignores both locks.
func (r *Repository) LockListing(ctx context.Context, listingID uuid.UUID) (uuid.UUID, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Select("id", "item_id").
		Where("id = ?", listingID).
		Take(&listing).Error
	if err != nil {
		return uuid.Nil, err
	}
	var item models.Item
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		Where("id = ?", listing.ItemID).
		Take(&item).Error
	if err != nil {
		return uuid.Nil, err
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthShare}).
		Select("id", "item_id").
		Where("id = ?", listingID).
		Take(&listing).Error
	return listing.ItemID, err
}

// ListItems returns one page of a user's saved listings, newest first.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ?", userID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.WishlistItem
	err := params.Apply(q.Order("created_at DESC").Order("listing_id DESC")).
		Preload("Listing.Item.Model.Brand").
		Preload("Listing.Variants", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("listing_variants.condition ASC").Order("listing_variants.sizing_id ASC")
		}).
		Preload("Listing.Variants.Sizing").
		Preload("Listing.Photos", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("listing_photos.position ASC")
		}).
		Find(&rows).Error
	return rows, total, err
}
