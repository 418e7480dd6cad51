package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductModel is a sneaker model line (e.g. "Airwave") owned by a Brand.
type ProductModel struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BrandID    uuid.UUID `gorm:"column:brand_id;type:uuid;not null;index:idx_product_models_brand_id"`
	Name       string    `gorm:"column:name;not null"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	ItemsCount int       `gorm:"column:items_count;not null"`
	Brand      *Brand    `gorm:"foreignKey:BrandID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductModel) TableName() string {
	return "product_models"
}

func (m *ProductModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
