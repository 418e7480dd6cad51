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

type BrandInput struct {
	Name        string
	Description *string
	LogoURL     *string
	IsActive    *bool
}

type BrandPatch struct {
	Name        *string
	Description *string
	LogoURL     *string
	IsActive    *bool
}

func (s *service) CreateBrand(ctx context.Context, input BrandInput) (*BrandDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	brand := &models.Brand{
		Name:        name,
		Description: normalizeDescription(input.Description),
		LogoURL:     normalizeDescription(input.LogoURL),
		IsActive:    input.IsActive == nil || *input.IsActive,
	}
	err := s.withTx(ctx, func(_ *gorm.DB, repo *Repository) error {
		return repo.CreateBrand(ctx, brand)
	})
	if err != nil {
		return nil, storeError(err, "create brand")
	}
	s.logg.Info(s.logg.WithField(ctx, "brand_id", brand.ID.String()), "brand created")
	dto := BrandFromModel(*brand)
	return &dto, nil
}

func (s *service) GetBrand(ctx context.Context, id uuid.UUID) (*BrandDTO, error) {
	brand, err := s.repo.FindBrandByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "brand")
	}
	dto := BrandFromModel(*brand)
	return &dto, nil
}

func (s *service) ListBrands(ctx context.Context, search string, params pagination.Params) (*Page[BrandDTO], error) {
	params, err := pageParams(params)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListBrands(ctx, search, params)
	if err != nil {
		return nil, storeError(err, "list brands")
	}
	out := make([]BrandDTO, len(rows))
	for i, row := range rows {
		out[i] = BrandFromModel(row)
	}
	return NewPage(out, params, total), nil
}

func (s *service) UpdateBrand(ctx context.Context, id uuid.UUID, patch BrandPatch) (*BrandDTO, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = normalizeDescription(patch.Description)
	}
	if patch.LogoURL != nil {
		updates["logo_url"] = normalizeDescription(patch.LogoURL)
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	var brand *models.Brand
	err := s.withTx(ctx, func(_ *gorm.DB, repo *Repository) error {
		if _, err := repo.FindBrandByID(ctx, id); err != nil {
			return notFound(err, "brand")
		}
		if len(updates) > 0 {
			if err := repo.UpdateBrand(ctx, id, updates); err != nil {
				return err
			}
		}
		var err error
		brand, err = repo.FindBrandByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "update brand")
	}
	dto := BrandFromModel(*brand)
	return &dto, nil
}

// DeleteBrand removes the brand with every model, item and listing under it.
func (s *service) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	var keys []string
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		if _, err := repo.FindBrandByID(ctx, id); err != nil {
			return notFound(err, "brand")
		}
		modelIDs, err := repo.ModelIDsForBrand(ctx, id)
		if err != nil {
			return err
		}
		itemIDs, err := repo.ItemIDsForModels(ctx, modelIDs)
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
		if err := repo.DeleteModels(ctx, modelIDs); err != nil {
			return err
		}
		if err := repo.DeleteBrand(ctx, id); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBrandDeleted,
			AggregateType: enums.AggregateBrand,
			AggregateID:   id,
			Data: payloads.BrandDeletedEvent{
				BrandID:    id,
				ModelIDs:   modelIDs,
				ItemIDs:    itemIDs,
				ListingIDs: listingIDs,
			},
		})
	})
	if err != nil {
		return storeError(err, "delete brand")
	}
	ctx = s.logg.WithField(ctx, "brand_id", id.String())
	s.logg.Info(ctx, "brand deleted")
	s.cleanupObjects(ctx, keys)
	return nil
}
