package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem links a user to a saved listing.
type WishlistItem struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey;index:idx_wishlist_items_listing_id"`
	Listing   *Listing  `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
