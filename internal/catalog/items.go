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

type ItemInput struct {
	ModelID  uuid.UUID
	Name     string
	SKU      string
	Category enums.Category
	Gender   enums.Gender
	IsActive *bool
}

// ItemPatch may move the item to another model; both model counters follow.
type ItemPatch struct {
	ModelID  *uuid.UUID
	Name     *string
	SKU      *string
	Category *enums.Category
	Gender   *enums.Gender
	IsActive *bool
}

func (in ItemInput) validate() error {
	problems := pkgerrors.FieldErrors{}
	if in.ModelID == uuid.Nil {
		problems.Add("modelId", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		problems.Add("name", "required")
	}
	if strings.TrimSpace(in.SKU) == "" {
		problems.Add("sku", "required")
	}
	if !in.Category.IsValid() {
		problems.Add("category", "invalid category")
	}
	if !in.Gender.IsValid() {
		problems.Add("gender", "invalid gender")
	}
	return problems.Err("invalid item")
}

func (p ItemPatch) updates() (map[string]any, error) {
	updates := map[string]any{}
	problems := pkgerrors.FieldErrors{}
	if p.Name != nil {
		if name := strings.TrimSpace(*p.Name); name == "" {
			problems.Add("name", "cannot be blank")
		} else {
			updates["name"] = name
		}
	}
	if p.SKU != nil {
		if sku := strings.TrimSpace(*p.SKU); sku == "" {
			problems.Add("sku", "cannot be blank")
		} else {
			updates["sku"] = sku
		}
	}
	if p.Category != nil {
		if !p.Category.IsValid() {
			problems.Add("category", "invalid category")
		}
		updates["category"] = *p.Category
	}
	if p.Gender != nil {
		if !p.Gender.IsValid() {
			problems.Add("gender", "invalid gender")
		}
		updates["gender"] = *p.Gender
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}
	if err := problems.Err("invalid item"); err != nil {
		return nil, err
	}
	return updates, nil
}

func (s *service) CreateItem(ctx context.Context, input ItemInput) (*ItemDTO, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	item := &models.Item{
		ModelID:  input.ModelID,
		Name:     strings.TrimSpace(input.Name),
		SKU:      strings.TrimSpace(input.SKU),
		Category: input.Category,
		Gender:   input.Gender,
		IsActive: input.IsActive == nil || *input.IsActive,
	}
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		if _, err := repo.FindModelByID(ctx, input.ModelID); err != nil {
			return notFound(err, "model")
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return err
		}
		return adjustCounter(ctx, tx, modelItemsCount, input.ModelID, 1)
	})
	if err != nil {
		return nil, storeError(err, "create item")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"item_id": item.ID.String(),
		"sku":     item.SKU,
	}), "item created")
	dto := ItemFromModel(*item)
	return &dto, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindItemByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "item")
	}
	dto := ItemFromModel(*item)
	return &dto, nil
}

func (s *service) ListItems(ctx context.Context, modelID *uuid.UUID, search string, params pagination.Params) (*Page[ItemDTO], error) {
	params, err := pageParams(params)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListItems(ctx, modelID, search, params)
	if err != nil {
		return nil, storeError(err, "list items")
	}
	out := make([]ItemDTO, len(rows))
	for i, row := range rows {
		out[i] = ItemFromModel(row)
	}
	return NewPage(out, params, total), nil
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, patch ItemPatch) (*ItemDTO, error) {
	updates, err := patch.updates()
	if err != nil {
		return nil, err
	}
	var item *models.Item
	err = s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		current, err := repo.LockItem(ctx, id)
		if err != nil {
			return notFound(err, "item")
		}
		if patch.ModelID != nil && *patch.ModelID != current.ModelID {
			if _, err := repo.FindModelByID(ctx, *patch.ModelID); err != nil {
				return notFound(err, "model")
			}
			updates["model_id"] = *patch.ModelID
			if err := adjustCounter(ctx, tx, modelItemsCount, current.ModelID, -1); err != nil {
				return err
			}
			if err := adjustCounter(ctx, tx, modelItemsCount, *patch.ModelID, 1); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := repo.UpdateItem(ctx, id, updates); err != nil {
				return err
			}
		}
		item, err = repo.FindItemByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "update item")
	}
	dto := ItemFromModel(*item)
	return &dto, nil
}

// DeleteItem removes the item and its listings.
func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	var keys []string
	err := s.withTx(ctx, func(tx *gorm.DB, repo *Repository) error {
		item, err := repo.LockItem(ctx, id)
		if err != nil {
			return notFound(err, "item")
		}
		listingIDs, err := repo.ListingIDsForItems(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if keys, err = repo.PhotoKeysForListings(ctx, listingIDs); err != nil {
			return err
		}
		if err := repo.DeleteListingsCascade(ctx, listingIDs); err != nil {
			return err
		}
		if err := repo.DeleteItems(ctx, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := adjustCounter(ctx, tx, modelItemsCount, item.ModelID, -1); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemDeleted,
			AggregateType: enums.AggregateItem,
			AggregateID:   id,
			Data:          payloads.ItemDeletedEvent{ItemID: id, ListingIDs: listingIDs},
		})
	})
	if err != nil {
		return storeError(err, "delete item")
	}
	ctx = s.logg.WithField(ctx, "item_id", id.String())
	s.logg.Info(ctx, "item deleted")
	s.cleanupObjects(ctx, keys)
	return nil
}
