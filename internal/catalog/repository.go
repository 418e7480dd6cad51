package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

// Repository persists the Brand -> Model -> Item -> Listing hierarchy.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
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

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}


// FindBrandByName matches the brand name case-insensitively.
func (r *Repository) FindBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	var brand models.Brand
	if err := r.conn(ctx).Where("lower(name) = lower(?)", name).Take(&brand).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// FindBrandByID loads a brand by primary key.
func (r *Repository) FindBrandByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	var brand models.Brand
	if err := r.conn(ctx).Where("id = ?", id).Take(&brand).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// CreateBrand inserts the brand; a clashing name surfaces as a unique violation.
func (r *Repository) CreateBrand(ctx context.Context, brand *models.Brand) error {
	return r.conn(ctx).Create(brand).Error
}

// UpdateBrand applies the column updates to one brand.
func (r *Repository) UpdateBrand(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.conn(ctx).Model(&models.Brand{}).Where("id = ?", id).Updates(updates).Error
}

// ListBrands returns one page of brands ordered by name, optionally filtered
// by a name substring, plus the total match count.
func (r *Repository) ListBrands(ctx context.Context, search string, params pagination.Params) ([]models.Brand, int64, error) {
	q := r.conn(ctx).Model(&models.Brand{})
	if term := db.LikePattern(search); term != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, term)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Brand
	err := params.Apply(q.Order("name ASC").Order("id ASC")).Find(&rows).Error
	return rows, total, err
}


// FindModelByName matches a model name case-insensitively within one brand.
func (r *Repository) FindModelByName(ctx context.Context, brandID uuid.UUID, name string) (*models.ProductModel, error) {
	var model models.ProductModel
	err := r.conn(ctx).
		Where("brand_id = ? AND lower(name) = lower(?)", brandID, name).
		Take(&model).Error
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// FindModelByID loads a model by primary key.
func (r *Repository) FindModelByID(ctx context.Context, id uuid.UUID) (*models.ProductModel, error) {
	var model models.ProductModel
	if err := r.conn(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

// CreateModel inserts the model without touching associations.
func (r *Repository) CreateModel(ctx context.Context, model *models.ProductModel) error {
	return r.conn(ctx).Omit(clause.Associations).Create(model).Error
}

// LockModel reads the model with a row lock so moves and deletes of the same
// model see each other's brand. SQLite ignores the locking clause.
func (r *Repository) LockModel(ctx context.Context, id uuid.UUID) (*models.ProductModel, error) {
	var model models.ProductModel
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		Take(&model).Error
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// UpdateModel applies the column updates to one model.
func (r *Repository) UpdateModel(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.conn(ctx).Model(&models.ProductModel{}).Where("id = ?", id).Updates(updates).Error
}

// ListModels returns one page of models, optionally scoped to a brand and a
// name substring, plus the total match count.
func (r *Repository) ListModels(ctx context.Context, brandID *uuid.UUID, search string, params pagination.Params) ([]models.ProductModel, int64, error) {
	q := r.conn(ctx).Model(&models.ProductModel{})
	if brandID != nil {
		q = q.Where("brand_id = ?", *brandID)
	}
	if term := db.LikePattern(search); term != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, term)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ProductModel
	err := params.Apply(q.Order("name ASC").Order("id ASC")).Find(&rows).Error
	return rows, total, err
}

// ModelIDsForBrand lists the ids of every model under the brand.
func (r *Repository) ModelIDsForBrand(ctx context.Context, brandID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.conn(ctx).Model(&models.ProductModel{}).Where("brand_id = ?", brandID).Pluck("id", &ids).Error
	return ids, err
}


// FindItemBySKU loads an item by its exact SKU.
func (r *Repository) FindItemBySKU(ctx context.Context, sku string) (*models.Item, error) {
	var item models.Item
	if err := r.conn(ctx).Where("sku = ?", sku).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByID loads an item by primary key.
func (r *Repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.conn(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// LockItem reads the item with a row lock so concurrent merges for the same
// item serialise. SQLite ignores the locking clause.
func (r *Repository) LockItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		Take(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts the item without touching associations.
func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.conn(ctx).Omit(clause.Associations).Create(item).Error
}

// UpdateItem applies the column updates to one item.
func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.conn(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(updates).Error
}

// ListItems returns one page of items, newest first, optionally scoped to a
// model and a name or SKU substring.
func (r *Repository) ListItems(ctx context.Context, modelID *uuid.UUID, search string, params pagination.Params) ([]models.Item, int64, error) {
	q := r.conn(ctx).Model(&models.Item{})
	if modelID != nil {
		q = q.Where("model_id = ?", *modelID)
	}
	if term := db.LikePattern(search); term != "" {
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\')`, term, term)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Item
	err := params.Apply(q.Order("created_at DESC").Order("id DESC")).Find(&rows).Error
	return rows, total, err
}

// ItemIDsForModels lists the ids of every item under the given models.
func (r *Repository) ItemIDsForModels(ctx context.Context, modelIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(modelIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.conn(ctx).Model(&models.Item{}).Where("model_id IN ?", modelIDs).Pluck("id", &ids).Error
	return ids, err
}


// FirstListingForItem returns the authoritative listing for an item: the oldest
// by creation time, ties broken by id.
func (r *Repository) FirstListingForItem(ctx context.Context, itemID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.conn(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Order("id ASC").
		Take(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindListingByID loads a listing row without its graph.
func (r *Repository) FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.conn(ctx).Where("id = ?", id).Take(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// LockListing reads the listing with a row lock. Callers lock the owning item
// first.
func (r *Repository) LockListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		Take(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// CreateListing inserts the listing without touching associations.
func (r *Repository) CreateListing(ctx context.Context, listing *models.Listing) error {
	return r.conn(ctx).Omit(clause.Associations).Create(listing).Error
}

// UpdateListing applies the column updates to one listing.
func (r *Repository) UpdateListing(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.conn(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(updates).Error
}

// ListingIDsForItems lists the ids of every listing under the given items.
func (r *Repository) ListingIDsForItems(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.conn(ctx).Model(&models.Listing{}).Where("item_id IN ?", itemIDs).Pluck("id", &ids).Error
	return ids, err
}

// ListingGraph loads a listing with its item, model, brand, variants and photos.
func (r *Repository) ListingGraph(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.conn(ctx).
		Preload("Item.Model.Brand").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_variants.condition ASC").Order("listing_variants.sizing_id ASC")
		}).
		Preload("Variants.Sizing").
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_photos.position ASC")
		}).
		Where("id = ?", id).
		Take(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}


// UpsertVariant inserts the variant or overwrites price and stock of the row
// with the same (listing, sizing, condition) key.
func (r *Repository) UpsertVariant(ctx context.Context, variant *models.ListingVariant) error {
	return r.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}, {Name: "sizing_id"}, {Name: "condition"}},
			DoUpdates: clause.AssignmentColumns([]string{"price_cents", "stock", "updated_at"}),
		}).
		Create(variant).Error
}

// DeleteVariant removes one variant and reports how many rows went.
func (r *Repository) DeleteVariant(ctx context.Context, listingID, sizingID uuid.UUID, condition enums.Condition) (int64, error) {
	res := r.conn(ctx).
		Where("listing_id = ? AND sizing_id = ? AND condition = ?", listingID, sizingID, condition).
		Delete(&models.ListingVariant{})
	return res.RowsAffected, res.Error
}

// CountVariants counts the variants left on a listing.
func (r *Repository) CountVariants(ctx context.Context, listingID uuid.UUID) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.ListingVariant{}).Where("listing_id = ?", listingID).Count(&count).Error
	return count, err
}

// MissingSizings returns the ids from the input that have no sizing row.
func (r *Repository) MissingSizings(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	if err := r.conn(ctx).Model(&models.Sizing{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ListSizings returns the sizing reference rows, optionally for one system,
// in display order.
func (r *Repository) ListSizings(ctx context.Context, system *enums.SizingSystem) ([]models.Sizing, error) {
	q := r.conn(ctx).Model(&models.Sizing{})
	if system != nil {
		q = q.Where("system = ?", *system)
	}
	var rows []models.Sizing
	err := q.Order("system ASC").Order("sort_order ASC").Find(&rows).Error
	return rows, err
}


// PhotoKeysForListings collects the object keys of the listings' photos so
// they can be removed from storage after commit.
func (r *Repository) PhotoKeysForListings(ctx context.Context, listingIDs []uuid.UUID) ([]string, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}
	var keys []string
	err := r.conn(ctx).Model(&models.ListingPhoto{}).Where("listing_id IN ?", listingIDs).Pluck("storage_key", &keys).Error
	return keys, err
}

// CountWishlistRows counts the wishlist entries pointing at a listing.
func (r *Repository) CountWishlistRows(ctx context.Context, listingID uuid.UUID) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.WishlistItem{}).Where("listing_id = ?", listingID).Count(&count).Error
	return count, err
}

// DeleteListingsCascade removes listings and every row that hangs off them.
// Counter maintenance is the caller's job.
func (r *Repository) DeleteListingsCascade(ctx context.Context, listingIDs []uuid.UUID) error {
	if len(listingIDs) == 0 {
		return nil
	}
	conn := r.conn(ctx)
	for _, model := range []any{&models.WishlistItem{}, &models.ListingVariant{}, &models.ListingPhoto{}} {
		if err := conn.Where("listing_id IN ?", listingIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	return conn.Where("id IN ?", listingIDs).Delete(&models.Listing{}).Error
}

// DeleteItems removes item rows. Their listings must already be gone.
func (r *Repository) DeleteItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(ctx).Where("id IN ?", ids).Delete(&models.Item{}).Error
}

// DeleteModels removes model rows. Their items must already be gone.
func (r *Repository) DeleteModels(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(ctx).Where("id IN ?", ids).Delete(&models.ProductModel{}).Error
}

// DeleteBrand removes the brand row. Its models must already be gone.
func (r *Repository) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Where("id = ?", id).Delete(&models.Brand{}).Error
}
