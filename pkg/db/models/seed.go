package models

import (
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soledrop/soledrop-backend/pkg/enums"
)

type sizeRange struct {
	system   enums.SizingSystem
	from, to float64
}

var defaultSizeRanges = []sizeRange{
	{system: enums.SizingSystemEU, from: 35, to: 48},
	{system: enums.SizingSystemUS, from: 4, to: 14},
	{system: enums.SizingSystemUK, from: 3, to: 13},
}

// DefaultSizings returns the reference sizes seeded into every environment:
// half sizes for EU/US/UK plus a single one-size entry.
func DefaultSizings() []Sizing {
	var out []Sizing
	for _, r := range defaultSizeRanges {
		order := 0
		for v := r.from; v <= r.to; v += 0.5 {
			out = append(out, Sizing{
				Label:     strconv.FormatFloat(v, 'f', -1, 64),
				System:    r.system,
				SortOrder: order,
			})
			order++
		}
	}
	out = append(out, Sizing{Label: "OS", System: enums.SizingSystemOneSize})
	return out
}

// SeedSizings inserts DefaultSizings, skipping labels that already exist.
func SeedSizings(db *gorm.DB) error {
	rows := DefaultSizings()
	return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 100).Error
}
