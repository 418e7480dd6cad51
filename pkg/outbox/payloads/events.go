package payloads

import (
	"github.com/google/uuid"
)

// ListingReconciledEvent is emitted when an import or admin write merged a listing.
type ListingReconciledEvent struct {
	ListingID       uuid.UUID `json:"listingId"`
	ItemID          uuid.UUID `json:"itemId"`
	ModelID         uuid.UUID `json:"modelId"`
	BrandID         uuid.UUID `json:"brandId"`
	SKU             string    `json:"sku"`
	ListingCreated  bool      `json:"listingCreated"`
	VariantsWritten int       `json:"variantsWritten"`
}

// ListingUpdatedEvent signals an admin change to listing metadata or variants.
type ListingUpdatedEvent struct {
	ListingID uuid.UUID `json:"listingId"`
	ItemID    uuid.UUID `json:"itemId"`
}

// ListingDeletedEvent is emitted when a listing and its variants are removed.
type ListingDeletedEvent struct {
	ListingID uuid.UUID `json:"listingId"`
	ItemID    uuid.UUID `json:"itemId"`
}

// PhotosAttachedEvent reports the outcome of a media batch.
type PhotosAttachedEvent struct {
	ListingID uuid.UUID   `json:"listingId"`
	PhotoIDs  []uuid.UUID `json:"photoIds"`
	Failed    int         `json:"failed"`
}

// ItemDeletedEvent lists the listings removed together with the item.
type ItemDeletedEvent struct {
	ItemID     uuid.UUID   `json:"itemId"`
	ListingIDs []uuid.UUID `json:"listingIds"`
}

// ModelDeletedEvent lists the items and listings removed with the model.
type ModelDeletedEvent struct {
	ModelID    uuid.UUID   `json:"modelId"`
	BrandID    uuid.UUID   `json:"brandId"`
	ItemIDs    []uuid.UUID `json:"itemIds"`
	ListingIDs []uuid.UUID `json:"listingIds"`
}

// BrandDeletedEvent lists everything removed by a brand cascade.
type BrandDeletedEvent struct {
	BrandID    uuid.UUID   `json:"brandId"`
	ModelIDs   []uuid.UUID `json:"modelIds"`
	ItemIDs    []uuid.UUID `json:"itemIds"`
	ListingIDs []uuid.UUID `json:"listingIds"`
}
