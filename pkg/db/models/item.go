package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/enums"
)

// Item is a concrete product identified by SKU.
type Item struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	ModelID            uuid.UUID      `gorm:"column:model_id;type:uuid;not null;index:idx_items_model_id"`
	Name               string         `gorm:"column:name;not null;uniqueIndex:ux_items_name"`
	SKU                string         `gorm:"column:sku;not null;uniqueIndex:ux_items_sku"`
	Category           enums.Category `gorm:"column:category;type:text;not null"`
	Gender             enums.Gender   `gorm:"column:gender;type:text;not null"`
	IsActive           bool           `gorm:"column:is_active;not null"`
	ListingCount       int            `gorm:"column:listing_count;not null"`
	WishlistItemsCount int            `gorm:"column:wishlist_items_count;not null"`
	Model              *ProductModel  `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
