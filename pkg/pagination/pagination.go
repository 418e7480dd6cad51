package pagination

import (
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
	// DefaultPage is the first page; pages are 1-based.
	DefaultPage = 1
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta is the pagination block returned next to a page of results.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// WithDefaults fills zero values with DefaultPage and DefaultLimit.
func (p Params) WithDefaults() Params {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// Validate rejects out-of-range values instead of clamping them.
func (p Params) Validate() error {
	if p.Page < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "page must be >= 1").
			WithDetails(map[string]any{"page": p.Page})
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("limit must be between 1 and %d", MaxLimit)).
			WithDetails(map[string]any{"limit": p.Limit})
	}
	return nil
}

// Offset returns the number of rows to skip for the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Apply adds OFFSET/LIMIT to a query.
func (p Params) Apply(q *gorm.DB) *gorm.DB {
	return q.Offset(p.Offset()).Limit(p.Limit)
}

// NewMeta computes the pagination block for total matching rows.
func NewMeta(p Params, total int64) Meta {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
	}
}
