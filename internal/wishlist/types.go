package wishlist

import (
	"time"

	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
)

// WishlistItemDTO wraps the listing graph included in a wishlist row.
type WishlistItemDTO struct {
	Listing   catalog.ListingDTO `json:"listing"`
	CreatedAt time.Time          `json:"createdAt"`
}

func itemFromModel(row models.WishlistItem) WishlistItemDTO {
	dto := WishlistItemDTO{CreatedAt: row.CreatedAt}
	if row.Listing != nil {
		dto.Listing = catalog.ListingFromModel(*row.Listing)
	}
	return dto
}
