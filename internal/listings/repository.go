package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

// Repository reads listings joined to their item, model and brand.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Joins("JOIN items i ON i.id = listings.item_id").
		Joins("JOIN product_models m ON m.id = i.model_id").
		Joins("JOIN brands b ON b.id = m.brand_id")
}

func withGraph(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Item.Model.Brand").
		Preload("Variants", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("listing_variants.condition ASC").Order("listing_variants.sizing_id ASC")
		}).
		Preload("Variants.Sizing").
		Preload("Photos", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("listing_photos.position ASC")
		})
}

// List counts and reads one page of listings matching pred, newest first.
func (r *Repository) List(ctx context.Context, pred Predicate, params pagination.Params) ([]models.Listing, int64, error) {
	q := r.joined(ctx)
	if !pred.Empty() {
		q = q.Where(pred.SQL, pred.Args...)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.Listing{}, 0, nil
	}

	var rows []models.Listing
	err := withGraph(params.Apply(q.
		Select("listings.*").
		Order("listings.created_at DESC").
		Order("listings.id DESC"))).
		Find(&rows).Error
	return rows, total, err
}

// Get loads one listing graph. activeOnly hides inactive listings.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, activeOnly bool) (*models.Listing, error) {
	q := r.db.WithContext(ctx).Where("listings.id = ?", id)
	if activeOnly {
		q = q.Where("listings.is_active = ?", true)
	}
	var listing models.Listing
	if err := withGraph(q).Take(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}
