package listings

import (
	"github.com/google/uuid"

	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

// Filters is the facet set of a listing query. Nil and empty facets are not
// applied.
type Filters struct {
	ActiveOnly    bool
	FeaturedOnly  bool
	ItemID        *uuid.UUID
	BrandID       *uuid.UUID
	ModelID       *uuid.UUID
	Search        string
	Condition     *enums.Condition
	MinPriceCents *int64
	MaxPriceCents *int64
	SizingIDs     []uuid.UUID
	Page          int
	Limit         int
}

func (f Filters) params() pagination.Params {
	return pagination.Params{Page: f.Page, Limit: f.Limit}.WithDefaults()
}

// Validate rejects malformed facets before the query runs.
func (f Filters) Validate() error {
	if err := f.params().Validate(); err != nil {
		return err
	}
	problems := pkgerrors.FieldErrors{}
	if f.Condition != nil && !f.Condition.IsValid() {
		problems.Add("condition", "invalid condition")
	}
	if f.MinPriceCents != nil && *f.MinPriceCents < 0 {
		problems.Add("minPrice", "must be non-negative")
	}
	if f.MaxPriceCents != nil && *f.MaxPriceCents < 0 {
		problems.Add("maxPrice", "must be non-negative")
	}
	if f.MinPriceCents != nil && f.MaxPriceCents != nil && *f.MinPriceCents > *f.MaxPriceCents {
		problems.Add("minPrice", "must not exceed maxPrice")
	}
	for _, id := range f.SizingIDs {
		if id == uuid.Nil {
			problems.Add("sizingIds", "must be valid ids")
			break
		}
	}
	return problems.Err("invalid listing filters")
}
