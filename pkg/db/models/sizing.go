package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/enums"
)

// Sizing is pre-seeded reference data; the catalog never creates rows here.
type Sizing struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Label     string             `gorm:"column:label;not null;uniqueIndex:ux_sizings_label_system,priority:1"`
	System    enums.SizingSystem `gorm:"column:system;type:text;not null;uniqueIndex:ux_sizings_label_system,priority:2"`
	SortOrder int                `gorm:"column:sort_order;not null"`
}

func (s *Sizing) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
