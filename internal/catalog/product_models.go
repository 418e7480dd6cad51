package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
	"github.com/soledrop/soledrop-backend/pkg/outbox/payloads"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

type ModelInput struct {
	BrandID  uuid.UUID
	Name     string
	IsActive *bool
}

// ModelPatch may move the model to another brand; both brand counters follow.
type ModelPatch struct {
	BrandID  *uuid.UUID
	Name     *string
	IsActive *bool
}

func (s *service) CreateModel(ctx context.Context, input ModelInput) (*ModelDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.BrandID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brandId is required")
	}
	model := &models.ProductModel{
		BrandID:  input.BrandID,
		Name:     name,
		IsActive: input.IsActive == nil || *input.IsActive,
	}
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		if _, err := repo.FindBrandByID(ctx, input.BrandID); err != nil {
			return notFound(err, "brand")
		}
		if err := repo.CreateModel(ctx, model); err != nil {
			return err
		}
		return adjustCounter(ctx, tx, brandModelsCount, input.BrandID, 1)
	})
	if err != nil {
		return nil, storeError(err, "create model")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"model_id": model.ID.String(),
		"brand_id": model.BrandID.String(),
	}), "model created")
	dto := ModelFromModel(*model)
	return &dto, nil
}

func (s *service) GetModel(ctx context.Context, id uuid.UUID) (*ModelDTO, error) {
	model, err := s.repo.FindModelByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "model")
	}
	dto := ModelFromModel(*model)
	return &dto, nil
}

func (s *service) ListModels(ctx context.Context, brandID *uuid.UUID, search string, params pagination.Params) (*Page[ModelDTO], error) {
	params, err := pageParams(params)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListModels(ctx, brandID, search, params)
	if err != nil {
		return nil, storeError(err, "list models")
	}
	out := make([]ModelDTO, len(rows))
	for i, row := range rows {
		out[i] = ModelFromModel(row)
	}
	return NewPage(out, params, total), nil
}

func (s *service) UpdateModel(ctx context.Context, id uuid.UUID, patch ModelPatch) (*ModelDTO, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	var model *models.ProductModel
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		current, err := repo.LockModel(ctx, id)
		if err != nil {
			return notFound(err, "model")
		}
		if patch.BrandID != nil && *patch.BrandID != current.BrandID {
			if _, err := repo.FindBrandByID(ctx, *patch.BrandID); err != nil {
				return notFound(err, "brand")
			}
			updates["brand_id"] = *patch.BrandID
			if err := adjustCounter(ctx, tx, brandModelsCount, current.BrandID, -1); err != nil {
				return err
			}
			if err := adjustCounter(ctx, tx, brandModelsCount, *patch.BrandID, 1); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := repo.UpdateModel(ctx, id, updates); err != nil {
				return err
			}
		}
		model, err = repo.FindModelByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "update model")
	}
	dto := ModelFromModel(*model)
	return &dto, nil
}

// DeleteModel removes the model and cascades to its items and their listings.
func (s *service) DeleteModel(ctx context.Context, id uuid.UUID) error {
	var keys []string
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		model, err := repo.LockModel(ctx, id)
		if err != nil {
			return notFound(err, "model")
		}
		itemIDs, err := repo.ItemIDsForModels(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		listingIDs, err := repo.ListingIDsForItems(ctx, itemIDs)
		if err != nil {
			return err
		}
		if keys, err = repo.PhotoKeysForListings(ctx, listingIDs); err != nil {
			return err
		}
		if err := repo.DeleteListingsCascade(ctx, listingIDs); err != nil {
			return err
		}
		if err := repo.DeleteItems(ctx, itemIDs); err != nil {
			return err
		}
		if err := repo.DeleteModels(ctx, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := adjustCounter(ctx, tx, brandModelsCount, model.BrandID, -1); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventModelDeleted,
			AggregateType: enums.AggregateModel,
			AggregateID:   id,
			Data: payloads.ModelDeletedEvent{
				ModelID:    id,
				BrandID:    model.BrandID,
				ItemIDs:    itemIDs,
				ListingIDs: listingIDs,
			},
		})
	})
	if err != nil {
		return storeError(err, "delete model")
	}
	ctx = s.logg.WithField(ctx, "model_id", id.String())
	s.logg.Info(ctx, "model deleted")
	s.cleanupObjects(ctx, keys)
	return nil
}
