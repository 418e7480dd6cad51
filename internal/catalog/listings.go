package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
	"github.com/soledrop/soledrop-backend/pkg/outbox/payloads"
)

// ListingInput is an admin listing write: metadata plus an additive variant set.
type ListingInput struct {
	Description *string
	IsActive    *bool
	IsFeatured  *bool
	Variants    []VariantInput
}

func (in ListingInput) patch() ListingPatch {
	return ListingPatch{Description: in.Description, IsActive: in.IsActive, IsFeatured: in.IsFeatured}
}

// CreateListing goes through the merge engine, so an item that already has a
// listing gets that listing patched instead of a second one.
func (s *service) CreateListing(ctx context.Context, itemID uuid.UUID, input ListingInput) (*ListingDTO, error) {
	if err := ValidateVariants(input.Variants); err != nil {
		return nil, err
	}
	var merged *MergeResult
	err := s.withTx(ctx, func(tx *gorm.DB, _ *Repository) error {
		var err error
		merged, err = MergeListing(ctx, tx, itemID, input.patch(), input.Variants)
		if err != nil {
			return err
		}
		return s.emitListing(ctx, tx, enums.EventListingReconciled, merged.Listing.ID, itemID, merged)
	})
	if err != nil {
		return nil, storeError(err, "create listing")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"listing_id":      merged.Listing.ID.String(),
		"listing_created": merged.Created,
	}), "listing written")
	return s.GetListing(ctx, merged.Listing.ID)
}

func (s *service) GetListing(ctx context.Context, id uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.ListingGraph(ctx, id)
	if err != nil {
		return nil, notFound(err, "listing")
	}
	dto := ListingFromModel(*listing)
	return &dto, nil
}

// UpdateListing patches this listing (not necessarily the item's first one)
// and upserts the supplied variants.
func (s *service) UpdateListing(ctx context.Context, id uuid.UUID, input ListingInput) (*ListingDTO, error) {
	if err := ValidateVariants(input.Variants); err != nil {
		return nil, err
	}
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		listing, err := repo.FindListingByID(ctx, id)
		if err != nil {
			return notFound(err, "listing")
		}
		if _, err := repo.LockItem(ctx, listing.ItemID); err != nil {
			return notFound(err, "item")
		}
		if err := ensureSizingsExist(ctx, repo, input.Variants); err != nil {
			return err
		}
		if err := repo.UpdateListing(ctx, id, input.patch().updates()); err != nil {
			return err
		}
		if _, err := upsertVariants(ctx, repo, id, input.Variants); err != nil {
			return err
		}
		return s.emitListing(ctx, tx, enums.EventListingUpdated, id, listing.ItemID, nil)
	})
	if err != nil {
		return nil, storeError(err, "update listing")
	}
	return s.GetListing(ctx, id)
}

// DeleteListing removes the listing, its variants, photos and wishlist rows,
// and releases the matching item counters.
func (s *service) DeleteListing(ctx context.Context, id uuid.UUID) error {
	var keys []string
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		listing, err := repo.FindListingByID(ctx, id)
		if err != nil {
			return notFound(err, "listing")
		}
		// Item before listing, the order merges and wishlist writes use.
		if _, err := repo.LockItem(ctx, listing.ItemID); err != nil {
			return notFound(err, "item")
		}
		if _, err := repo.LockListing(ctx, id); err != nil {
			return notFound(err, "listing")
		}
		wished, err := repo.CountWishlistRows(ctx, id)
		if err != nil {
			return err
		}
		if keys, err = repo.PhotoKeysForListings(ctx, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := repo.DeleteListingsCascade(ctx, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := adjustCounter(ctx, tx, itemListingCount, listing.ItemID, -1); err != nil {
			return err
		}
		if err := adjustCounter(ctx, tx, itemWishlistItemsCount, listing.ItemID, -int(wished)); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingDeleted,
			AggregateType: enums.AggregateListing,
			AggregateID:   id,
			Data:          payloads.ListingDeletedEvent{ListingID: id, ItemID: listing.ItemID},
		})
	})
	if err != nil {
		return storeError(err, "delete listing")
	}
	ctx = s.logg.WithField(ctx, "listing_id", id.String())
	s.logg.Info(ctx, "listing deleted")
	s.cleanupObjects(ctx, keys)
	return nil
}

func (s *service) DeleteVariant(ctx context.Context, listingID, sizingID uuid.UUID, condition enums.Condition) (*ListingDTO, error) {
	if !condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition")
	}
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		listing, err := repo.FindListingByID(ctx, listingID)
		if err != nil {
			return notFound(err, "listing")
		}
		removed, err := repo.DeleteVariant(ctx, listingID, sizingID, condition)
		if err != nil {
			return err
		}
		if removed == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return s.emitListing(ctx, tx, enums.EventListingUpdated, listingID, listing.ItemID, nil)
	})
	if err != nil {
		return nil, storeError(err, "delete variant")
	}
	return s.GetListing(ctx, listingID)
}

func (s *service) emitListing(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, listingID, itemID uuid.UUID, merged *MergeResult) error {
	var data any = payloads.ListingUpdatedEvent{ListingID: listingID, ItemID: itemID}
	if eventType == enums.EventListingReconciled {
		if merged == nil {
			return errors.New("merge result required for reconciled event")
		}
		data = payloads.ListingReconciledEvent{
			ListingID:       listingID,
			ItemID:          itemID,
			ListingCreated:  merged.Created,
			VariantsWritten: merged.VariantsWritten,
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateListing,
		AggregateID:   listingID,
		Data:          data,
	})
}
