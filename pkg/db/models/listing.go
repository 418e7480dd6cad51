package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/enums"
)

// Listing is the sellable offer for an Item. Reconciliation keeps one per Item;
// when more exist the oldest is authoritative.
type Listing struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ItemID      uuid.UUID        `gorm:"column:item_id;type:uuid;not null;index:idx_listings_item_created,priority:1"`
	Description *string          `gorm:"column:description"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	IsFeatured  bool             `gorm:"column:is_featured;not null"`
	Item        *Item            `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Variants    []ListingVariant `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	Photos      []ListingPhoto   `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime;index:idx_listings_item_created,priority:2"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Listing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ListingVariant is one (sizing, condition) unit of sale. The composite primary
// key guarantees a single row per triple.
type ListingVariant struct {
	ListingID  uuid.UUID       `gorm:"column:listing_id;type:uuid;primaryKey"`
	SizingID   uuid.UUID       `gorm:"column:sizing_id;type:uuid;primaryKey;index:idx_listing_variants_sizing_id"`
	Condition  enums.Condition `gorm:"column:condition;type:text;primaryKey"`
	PriceCents int64           `gorm:"column:price_cents;not null"`
	Stock      int             `gorm:"column:stock;not null"`
	Sizing     *Sizing         `gorm:"foreignKey:SizingID"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ListingPhoto references an image stored in the object store.
type ListingPhoto struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index:idx_listing_photos_listing_position,priority:1"`
	URL        string    `gorm:"column:url;not null"`
	StorageKey string    `gorm:"column:storage_key;not null"`
	IsMain     bool      `gorm:"column:is_main;not null"`
	Position   int       `gorm:"column:position;not null;index:idx_listing_photos_listing_position,priority:2"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *ListingPhoto) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
