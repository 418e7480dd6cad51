package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
	"github.com/soledrop/soledrop-backend/pkg/outbox/payloads"
)

// ReconcileInput is one bulk import record.
type ReconcileInput struct {
	BrandName   string
	ModelName   string
	ItemName    string
	SKU         string
	Category    enums.Category
	Gender      enums.Gender
	Description *string
	IsActive    *bool
	IsFeatured  *bool
	Variants    []VariantInput
}

func (in ReconcileInput) hierarchy() HierarchyInput {
	return HierarchyInput{
		BrandName: in.BrandName,
		ModelName: in.ModelName,
		ItemName:  in.ItemName,
		SKU:       in.SKU,
		Category:  in.Category,
		Gender:    in.Gender,
	}
}

// ReconcileResult is the merged graph plus what this call created. Photos is
// nil when no uploads were supplied.
type ReconcileResult struct {
	Brand          BrandDTO            `json:"brand"`
	Model          ModelDTO            `json:"model"`
	Item           ItemDTO             `json:"item"`
	Listing        ListingDTO          `json:"listing"`
	BrandCreated   bool                `json:"brandCreated"`
	ModelCreated   bool                `json:"modelCreated"`
	ItemCreated    bool                `json:"itemCreated"`
	ListingCreated bool                `json:"listingCreated"`
	Photos         *media.AttachReport `json:"photos,omitempty"`
}

// Reconcile maps one import record onto the catalog. The hierarchy, listing,
// variants and counters commit together or not at all; photos are attached
// afterwards and cannot undo the catalog write.
func (s *service) Reconcile(ctx context.Context, input ReconcileInput, uploads []media.Upload) (result *ReconcileResult, err error) {
	started := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(pkgerrors.CodeOf(err))
		}
		if s.metrics != nil {
			s.metrics.ObserveReconcile(outcome, time.Since(started))
		}
	}()

	hierarchyInput := input.hierarchy().normalized()
	if err := hierarchyInput.validate(); err != nil {
		return nil, err
	}
	if err := ValidateVariants(input.Variants); err != nil {
		return nil, err
	}
	ctx = s.logg.WithField(ctx, "sku", hierarchyInput.SKU)

	var (
		resolved *Hierarchy
		merged   *MergeResult
	)
	err = s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		if err := ensureSizingsExist(ctx, repo, input.Variants); err != nil {
			return err
		}
		var err error
		resolved, err = ResolveHierarchy(ctx, tx, hierarchyInput)
		if err != nil {
			return err
		}
		patch := ListingPatch{Description: input.Description, IsActive: input.IsActive, IsFeatured: input.IsFeatured}
		merged, err = MergeListing(ctx, tx, resolved.Item.ID, patch, input.Variants)
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingReconciled,
			AggregateType: enums.AggregateListing,
			AggregateID:   merged.Listing.ID,
			Data: payloads.ListingReconciledEvent{
				ListingID:       merged.Listing.ID,
				ItemID:          resolved.Item.ID,
				ModelID:         resolved.Model.ID,
				BrandID:         resolved.Brand.ID,
				SKU:             resolved.Item.SKU,
				ListingCreated:  merged.Created,
				VariantsWritten: merged.VariantsWritten,
			},
		})
	})
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Error(ctx, "reconcile failed", err)
		}
		return nil, storeError(err, "reconcile")
	}

	listingID := merged.Listing.ID
	ctx = s.logg.WithFields(ctx, map[string]any{
		"listing_id":      listingID.String(),
		"item_id":         resolved.Item.ID.String(),
		"listing_created": merged.Created,
	})
	s.logg.Info(ctx, "listing reconciled")

	result = &ReconcileResult{
		BrandCreated:   resolved.BrandCreated,
		ModelCreated:   resolved.ModelCreated,
		ItemCreated:    resolved.ItemCreated,
		ListingCreated: merged.Created,
	}
	if len(uploads) > 0 {
		result.Photos = s.attachAfterCommit(ctx, listingID, uploads)
	}

	graph, err := s.repo.ListingGraph(ctx, listingID)
	if err != nil {
		// The catalog write is committed; report it from what the transaction saw.
		s.logg.WarnErr(ctx, "reload reconciled listing", err)
		result.Brand = BrandFromModel(*resolved.Brand)
		result.Model = ModelFromModel(*resolved.Model)
		result.Item = ItemFromModel(*resolved.Item)
		result.Listing = ListingFromModel(*merged.Listing)
		return result, nil
	}
	result.Listing = ListingFromModel(*graph)
	result.Item = *result.Listing.Item
	result.Model = *result.Listing.Model
	result.Brand = *result.Listing.Brand
	return result, nil
}

// attachAfterCommit never fails the caller: a batch-level error marks every
// upload as failed.
func (s *service) attachAfterCommit(ctx context.Context, listingID uuid.UUID, uploads []media.Upload) *media.AttachReport {
	report, err := s.media.AttachPhotos(ctx, listingID, uploads)
	if err == nil {
		return report
	}
	s.logg.WarnErr(ctx, "photo batch rejected", err)
	report = &media.AttachReport{Attached: []media.Photo{}, Failed: make([]media.UploadFailure, len(uploads))}
	for i, upload := range uploads {
		report.Failed[i] = media.UploadFailure{Index: i, FileName: upload.FileName, Reason: err.Error()}
	}
	return report
}
