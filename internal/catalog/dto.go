package catalog

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

type BrandDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	LogoURL     *string   `json:"logoUrl,omitempty"`
	IsActive    bool      `json:"isActive"`
	ModelsCount int       `json:"modelsCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ModelDTO struct {
	ID         uuid.UUID `json:"id"`
	BrandID    uuid.UUID `json:"brandId"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"isActive"`
	ItemsCount int       `json:"itemsCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ItemDTO struct {
	ID                 uuid.UUID      `json:"id"`
	ModelID            uuid.UUID      `json:"modelId"`
	Name               string         `json:"name"`
	SKU                string         `json:"sku"`
	Category           enums.Category `json:"category"`
	Gender             enums.Gender   `json:"gender"`
	IsActive           bool           `json:"isActive"`
	ListingCount       int            `json:"listingCount"`
	WishlistItemsCount int            `json:"wishlistItemsCount"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

type SizingDTO struct {
	ID        uuid.UUID          `json:"id"`
	Label     string             `json:"label"`
	System    enums.SizingSystem `json:"system"`
	SortOrder int                `json:"sortOrder"`
}

type VariantDTO struct {
	SizingID  uuid.UUID       `json:"sizingId"`
	Sizing    *SizingDTO      `json:"sizing,omitempty"`
	Condition enums.Condition `json:"condition"`
	Price     string          `json:"price"`
	Stock     int             `json:"stock"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ListingDTO is the listing graph returned by admin writes and storefront reads.
type ListingDTO struct {
	ID          uuid.UUID     `json:"id"`
	ItemID      uuid.UUID     `json:"itemId"`
	Description *string       `json:"description,omitempty"`
	IsActive    bool          `json:"isActive"`
	IsFeatured  bool          `json:"isFeatured"`
	Item        *ItemDTO      `json:"item,omitempty"`
	Model       *ModelDTO     `json:"model,omitempty"`
	Brand       *BrandDTO     `json:"brand,omitempty"`
	Variants    []VariantDTO  `json:"variants"`
	Photos      []media.Photo `json:"photos"`
	MainPhoto   *media.Photo  `json:"mainPhoto,omitempty"`
	MinPrice    *string       `json:"minPrice,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Page is the paginated envelope used by every list operation.
type Page[T any] struct {
	Data       []T             `json:"data"`
	Pagination pagination.Meta `json:"pagination"`
}

func NewPage[T any](data []T, params pagination.Params, total int64) *Page[T] {
	if data == nil {
		data = []T{}
	}
	return &Page[T]{Data: data, Pagination: pagination.NewMeta(params, total)}
}

func BrandFromModel(b models.Brand) BrandDTO {
	return BrandDTO{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		LogoURL:     b.LogoURL,
		IsActive:    b.IsActive,
		ModelsCount: b.ModelsCount,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func ModelFromModel(m models.ProductModel) ModelDTO {
	return ModelDTO{
		ID:         m.ID,
		BrandID:    m.BrandID,
		Name:       m.Name,
		IsActive:   m.IsActive,
		ItemsCount: m.ItemsCount,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func ItemFromModel(i models.Item) ItemDTO {
	return ItemDTO{
		ID:                 i.ID,
		ModelID:            i.ModelID,
		Name:               i.Name,
		SKU:                i.SKU,
		Category:           i.Category,
		Gender:             i.Gender,
		IsActive:           i.IsActive,
		ListingCount:       i.ListingCount,
		WishlistItemsCount: i.WishlistItemsCount,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func SizingFromModel(s models.Sizing) SizingDTO {
	return SizingDTO{ID: s.ID, Label: s.Label, System: s.System, SortOrder: s.SortOrder}
}

// ListingFromModel maps a listing and whatever associations were preloaded.
func ListingFromModel(l models.Listing) ListingDTO {
	dto := ListingDTO{
		ID:          l.ID,
		ItemID:      l.ItemID,
		Description: l.Description,
		IsActive:    l.IsActive,
		IsFeatured:  l.IsFeatured,
		Variants:    make([]VariantDTO, 0, len(l.Variants)),
		Photos:      make([]media.Photo, 0, len(l.Photos)),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.Item != nil {
		item := ItemFromModel(*l.Item)
		dto.Item = &item
		if l.Item.Model != nil {
			model := ModelFromModel(*l.Item.Model)
			dto.Model = &model
			if l.Item.Model.Brand != nil {
				brand := BrandFromModel(*l.Item.Model.Brand)
				dto.Brand = &brand
			}
		}
	}

	var minCents *int64
	for _, v := range l.Variants {
		variant := VariantDTO{
			SizingID:  v.SizingID,
			Condition: v.Condition,
			Price:     FormatCents(v.PriceCents),
			Stock:     v.Stock,
			UpdatedAt: v.UpdatedAt,
		}
		if v.Sizing != nil {
			sizing := SizingFromModel(*v.Sizing)
			variant.Sizing = &sizing
		}
		dto.Variants = append(dto.Variants, variant)
		if minCents == nil || v.PriceCents < *minCents {
			cents := v.PriceCents
			minCents = &cents
		}
	}
	if minCents != nil {
		price := FormatCents(*minCents)
		dto.MinPrice = &price
	}

	photos := append([]models.ListingPhoto(nil), l.Photos...)
	sort.SliceStable(photos, func(i, j int) bool { return photos[i].Position < photos[j].Position })
	for _, p := range photos {
		photo := media.PhotoFromModel(p)
		dto.Photos = append(dto.Photos, photo)
		if photo.IsMain && dto.MainPhoto == nil {
			main := photo
			dto.MainPhoto = &main
		}
	}
	return dto
}
