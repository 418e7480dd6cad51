package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

// HierarchyInput carries the natural keys of one Brand -> Model -> Item chain.
type HierarchyInput struct {
	BrandName string
	ModelName string
	ItemName  string
	SKU       string
	Category  enums.Category
	Gender    enums.Gender
}

// Hierarchy is the resolved chain plus which levels were created by this call.
type Hierarchy struct {
	Brand        *models.Brand
	Model        *models.ProductModel
	Item         *models.Item
	BrandCreated bool
	ModelCreated bool
	ItemCreated  bool
}

func (in HierarchyInput) normalized() HierarchyInput {
	in.BrandName = strings.TrimSpace(in.BrandName)
	in.ModelName = strings.TrimSpace(in.ModelName)
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.SKU = strings.TrimSpace(in.SKU)
	return in
}

func (in HierarchyInput) validate() error {
	problems := pkgerrors.FieldErrors{}
	if in.BrandName == "" {
		problems.Add("brandName", "required")
	}
	if in.ModelName == "" {
		problems.Add("modelName", "required")
	}
	if in.ItemName == "" {
		problems.Add("itemName", "required")
	}
	if in.SKU == "" {
		problems.Add("sku", "required")
	}
	if !in.Category.IsValid() {
		problems.Add("category", "invalid category")
	}
	if !in.Gender.IsValid() {
		problems.Add("gender", "invalid gender")
	}
	return problems.Err("invalid hierarchy")
}

// ResolveHierarchy finds or creates the brand, model and item named by in,
// bumping the parent counters for every level it creates. It must run inside
// the caller's transaction.
func ResolveHierarchy(ctx context.Context, tx *gorm.DB, in HierarchyInput) (*Hierarchy, error) {
	in = in.normalized()
	if err := in.validate(); err != nil {
		return nil, err
	}
	out := &Hierarchy{}

	brand, created, err := findOrCreate(ctx, tx,
		func(r *Repository) (*models.Brand, error) { return r.FindBrandByName(ctx, in.BrandName) },
		func(sp *gorm.DB) (*models.Brand, error) {
			brand := &models.Brand{Name: in.BrandName, IsActive: true}
			return brand, NewRepository(sp).CreateBrand(ctx, brand)
		},
	)
	if err != nil {
		return nil, levelError("brand", err)
	}
	out.Brand, out.BrandCreated = brand, created

	model, created, err := findOrCreate(ctx, tx,
		func(r *Repository) (*models.ProductModel, error) { return r.FindModelByName(ctx, brand.ID, in.ModelName) },
		func(sp *gorm.DB) (*models.ProductModel, error) {
			model := &models.ProductModel{BrandID: brand.ID, Name: in.ModelName, IsActive: true}
			if err := NewRepository(sp).CreateModel(ctx, model); err != nil {
				return nil, err
			}
			return model, adjustCounter(ctx, sp, brandModelsCount, brand.ID, 1)
		},
	)
	if err != nil {
		return nil, levelError("model", err)
	}
	out.Model, out.ModelCreated = model, created

	item, created, err := findOrCreate(ctx, tx,
		func(r *Repository) (*models.Item, error) { return r.FindItemBySKU(ctx, in.SKU) },
		func(sp *gorm.DB) (*models.Item, error) {
			item := &models.Item{
				ModelID:  model.ID,
				Name:     in.ItemName,
				SKU:      in.SKU,
				Category: in.Category,
				Gender:   in.Gender,
				IsActive: true,
			}
			if err := NewRepository(sp).CreateItem(ctx, item); err != nil {
				return nil, err
			}
			return item, adjustCounter(ctx, sp, modelItemsCount, model.ID, 1)
		},
	)
	if err != nil {
		return nil, levelError("item", err)
	}
	out.Item, out.ItemCreated = item, created

	return out, nil
}

// findOrCreate is an optimistic insert with a fallback read. The create runs in
// a savepoint so a unique violation leaves the outer transaction usable; the
// row another writer committed first is then re-read and returned as found.
func findOrCreate[T any](
	ctx context.Context,
	tx *gorm.DB,
	find func(*Repository) (*T, error),
	create func(sp *gorm.DB) (*T, error),
) (*T, bool, error) {
	repo := NewRepository(tx)
	row, err := find(repo)
	if err == nil {
		return row, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	var created *T
	err = tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		var createErr error
		created, createErr = create(sp)
		return createErr
	})
	if err == nil {
		return created, true, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, false, err
	}

	row, findErr := find(repo)
	switch {
	case findErr == nil:
		return row, false, nil
	case errors.Is(findErr, gorm.ErrRecordNotFound):
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "unique constraint violated by a different row")
	default:
		return nil, false, findErr
	}
}

func levelError(level string, err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("resolve %s", level))
}
