package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
)

// Repository exposes listing photo persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a photo repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListingExists reports whether the listing row is present.
func (r *Repository) ListingExists(ctx context.Context, listingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", listingID).Count(&count).Error
	return count > 0, err
}

// LockListing takes a row lock on the listing so photo writes for it
// serialise. It returns gorm.ErrRecordNotFound when the listing is gone.
func (r *Repository) LockListing(ctx context.Context, listingID uuid.UUID) error {
	var listing models.Listing
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		Where("id = ?", listingID).
		Take(&listing).Error
}

// CountPhotos returns how many photos the listing has.
func (r *Repository) CountPhotos(ctx context.Context, listingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ListingPhoto{}).Where("listing_id = ?", listingID).Count(&count).Error
	return count, err
}

// Create persists a photo record.
func (r *Repository) Create(ctx context.Context, photo *models.ListingPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

// FindPhoto retrieves a photo scoped to its listing.
func (r *Repository) FindPhoto(ctx context.Context, listingID, photoID uuid.UUID) (*models.ListingPhoto, error) {
	var photo models.ListingPhoto
	err := r.db.WithContext(ctx).Where("id = ? AND listing_id = ?", photoID, listingID).Take(&photo).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// Delete removes a photo record.
func (r *Repository) Delete(ctx context.Context, photoID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", photoID).Delete(&models.ListingPhoto{}).Error
}

// FirstByPosition returns the listing photo with the lowest position.
func (r *Repository) FirstByPosition(ctx context.Context, listingID uuid.UUID) (*models.ListingPhoto, error) {
	var photo models.ListingPhoto
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("position ASC").
		Order("created_at ASC").
		Take(&photo).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// SetMain marks photoID as the only main photo of the listing.
func (r *Repository) SetMain(ctx context.Context, listingID, photoID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Model(&models.ListingPhoto{}).
		Where("listing_id = ? AND id <> ? AND is_main = ?", listingID, photoID, true).
		UpdateColumn("is_main", false).Error; err != nil {
		return err
	}
	return conn.Model(&models.ListingPhoto{}).
		Where("id = ? AND listing_id = ?", photoID, listingID).
		UpdateColumn("is_main", true).Error
}

// List returns the listing photos in display order.
func (r *Repository) List(ctx context.Context, listingID uuid.UUID) ([]models.ListingPhoto, error) {
	var photos []models.ListingPhoto
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&photos).Error
	return photos, err
}
