package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

// ListingPatch holds the mutable listing fields; nil leaves a field untouched
// on an existing listing and falls back to the default on a new one.
type ListingPatch struct {
	Description *string
	IsActive    *bool
	IsFeatured  *bool
}

// VariantInput describes one (sizing, condition) unit of sale.
type VariantInput struct {
	SizingID   uuid.UUID
	Condition  enums.Condition
	PriceCents int64
	Stock      int
}

// MergeResult reports the authoritative listing and what the merge did.
type MergeResult struct {
	Listing         *models.Listing
	Created         bool
	VariantsWritten int
}

type variantKey struct {
	sizingID  uuid.UUID
	condition enums.Condition
}

// ValidateVariants rejects malformed descriptors and repeated (sizing,
// condition) pairs before any store access.
func ValidateVariants(variants []VariantInput) error {
	problems := pkgerrors.FieldErrors{}
	seen := make(map[variantKey]int, len(variants))
	for i, v := range variants {
		field := fmt.Sprintf("variants[%d]", i)
		switch {
		case v.SizingID == uuid.Nil:
			problems.Add(field+".sizingId", "required")
		case !v.Condition.IsValid():
			problems.Add(field+".condition", "invalid condition")
		case v.PriceCents < 0:
			problems.Add(field+".price", "must be non-negative")
		case v.Stock < 0:
			problems.Add(field+".stock", "must be non-negative")
		}
		key := variantKey{sizingID: v.SizingID, condition: v.Condition}
		if first, dup := seen[key]; dup {
			problems.Add(field, fmt.Sprintf("duplicates variants[%d]", first))
			continue
		}
		seen[key] = i
	}
	return problems.Err("invalid variants")
}

// MergeListing makes the item's first listing reflect patch and upserts every
// variant by (listing, sizing, condition). Variants missing from the input are
// left alone. It must run inside the caller's transaction.
func MergeListing(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, patch ListingPatch, variants []VariantInput) (*MergeResult, error) {
	if err := ValidateVariants(variants); err != nil {
		return nil, err
	}
	repo := NewRepository(tx)

	if _, err := repo.LockItem(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock item")
	}
	if err := ensureSizingsExist(ctx, repo, variants); err != nil {
		return nil, err
	}

	result := &MergeResult{}
	listing, err := repo.FirstListingForItem(ctx, itemID)
	switch {
	case err == nil:
		if err := repo.UpdateListing(ctx, listing.ID, patch.updates()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing")
		}
		patch.applyTo(listing)
	case errors.Is(err, gorm.ErrRecordNotFound):
		listing = patch.newListing(itemID)
		if err := repo.CreateListing(ctx, listing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create listing")
		}
		if err := adjustCounter(ctx, tx, itemListingCount, itemID, 1); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count listing")
		}
		result.Created = true
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find listing")
	}

	written, err := upsertVariants(ctx, repo, listing.ID, variants)
	if err != nil {
		return nil, err
	}
	result.VariantsWritten = written
	result.Listing = listing
	return result, nil
}

func upsertVariants(ctx context.Context, repo *Repository, listingID uuid.UUID, variants []VariantInput) (int, error) {
	for i, v := range variants {
		row := &models.ListingVariant{
			ListingID:  listingID,
			SizingID:   v.SizingID,
			Condition:  v.Condition,
			PriceCents: v.PriceCents,
			Stock:      v.Stock,
		}
		if err := repo.UpsertVariant(ctx, row); err != nil {
			return i, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert variant")
		}
	}
	return len(variants), nil
}

func ensureSizingsExist(ctx context.Context, repo *Repository, variants []VariantInput) error {
	if len(variants) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(variants))
	seen := make(map[uuid.UUID]struct{}, len(variants))
	for _, v := range variants {
		if _, ok := seen[v.SizingID]; ok {
			continue
		}
		seen[v.SizingID] = struct{}{}
		ids = append(ids, v.SizingID)
	}
	missing, err := repo.MissingSizings(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check sizings")
	}
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, id := range missing {
		names[i] = id.String()
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "sizing not found: "+strings.Join(names, ", "))
}

func (p ListingPatch) updates() map[string]any {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if p.Description != nil {
		updates["description"] = normalizeDescription(p.Description)
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}
	if p.IsFeatured != nil {
		updates["is_featured"] = *p.IsFeatured
	}
	return updates
}

func (p ListingPatch) applyTo(l *models.Listing) {
	if p.Description != nil {
		l.Description = normalizeDescription(p.Description)
	}
	if p.IsActive != nil {
		l.IsActive = *p.IsActive
	}
	if p.IsFeatured != nil {
		l.IsFeatured = *p.IsFeatured
	}
}

func (p ListingPatch) newListing(itemID uuid.UUID) *models.Listing {
	l := &models.Listing{ItemID: itemID, IsActive: true}
	p.applyTo(l)
	return l
}

// normalizeDescription maps blank text to NULL.
func normalizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
