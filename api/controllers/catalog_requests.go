package controllers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

type variantRequest struct {
	SizingID  uuid.UUID        `json:"sizingId" validate:"required"`
	Condition string           `json:"condition" validate:"required"`
	Price     *decimal.Decimal `json:"price" validate:"required"`
	Stock     int              `json:"stock" validate:"gte=0"`
}

type reconcileRequest struct {
	BrandName   string           `json:"brandName" validate:"required,max=120"`
	ModelName   string           `json:"modelName" validate:"required,max=120"`
	ItemName    string           `json:"itemName" validate:"required,max=200"`
	SKU         string           `json:"sku" validate:"required,max=64"`
	Category    string           `json:"category" validate:"required"`
	Gender      string           `json:"gender" validate:"required"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"isActive"`
	IsFeatured  *bool            `json:"isFeatured"`
	Variants    []variantRequest `json:"variants" validate:"dive"`
}

type brandRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logoUrl" validate:"omitempty,url"`
	IsActive    *bool   `json:"isActive"`
}

type brandPatchRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logoUrl" validate:"omitempty,url"`
	IsActive    *bool   `json:"isActive"`
}

type modelRequest struct {
	BrandID  uuid.UUID `json:"brandId" validate:"required"`
	Name     string    `json:"name" validate:"required,max=120"`
	IsActive *bool     `json:"isActive"`
}

type modelPatchRequest struct {
	BrandID  *uuid.UUID `json:"brandId"`
	Name     *string    `json:"name" validate:"omitempty,max=120"`
	IsActive *bool      `json:"isActive"`
}

type itemRequest struct {
	ModelID  uuid.UUID `json:"modelId" validate:"required"`
	Name     string    `json:"name" validate:"required,max=200"`
	SKU      string    `json:"sku" validate:"required,max=64"`
	Category string    `json:"category" validate:"required"`
	Gender   string    `json:"gender" validate:"required"`
	IsActive *bool     `json:"isActive"`
}

type itemPatchRequest struct {
	ModelID  *uuid.UUID `json:"modelId"`
	Name     *string    `json:"name" validate:"omitempty,max=200"`
	SKU      *string    `json:"sku" validate:"omitempty,max=64"`
	Category *string    `json:"category"`
	Gender   *string    `json:"gender"`
	IsActive *bool      `json:"isActive"`
}

type listingRequest struct {
	ItemID      uuid.UUID        `json:"itemId" validate:"required"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"isActive"`
	IsFeatured  *bool            `json:"isFeatured"`
	Variants    []variantRequest `json:"variants" validate:"dive"`
}

type listingPatchRequest struct {
	Description *string          `json:"description"`
	IsActive    *bool            `json:"isActive"`
	IsFeatured  *bool            `json:"isFeatured"`
	Variants    []variantRequest `json:"variants" validate:"dive"`
}

func toVariantInputs(reqs []variantRequest, problems pkgerrors.FieldErrors) []catalog.VariantInput {
	out := make([]catalog.VariantInput, 0, len(reqs))
	for i, v := range reqs {
		field := fmt.Sprintf("variants[%d]", i)
		condition, err := enums.ParseCondition(v.Condition)
		if err != nil {
			problems.Add(field+".condition", "must be one of new used")
		}
		var cents int64
		if v.Price == nil {
			problems.Add(field+".price", "is required")
		} else if cents, err = catalog.PriceToCents(*v.Price); err != nil {
			problems.Add(field+".price", pkgerrors.As(err).Message())
		}
		out = append(out, catalog.VariantInput{
			SizingID:   v.SizingID,
			Condition:  condition,
			PriceCents: cents,
			Stock:      v.Stock,
		})
	}
	return out
}

func parseCategoryGender(category, gender string, problems pkgerrors.FieldErrors) (enums.Category, enums.Gender) {
	c, err := enums.ParseCategory(category)
	if err != nil {
		problems.Add("category", "invalid category")
	}
	g, err := enums.ParseGender(gender)
	if err != nil {
		problems.Add("gender", "invalid gender")
	}
	return c, g
}

func (r reconcileRequest) toInput() (catalog.ReconcileInput, error) {
	problems := pkgerrors.FieldErrors{}
	category, gender := parseCategoryGender(r.Category, r.Gender, problems)
	variants := toVariantInputs(r.Variants, problems)
	if err := problems.Err("validation failed"); err != nil {
		return catalog.ReconcileInput{}, err
	}
	return catalog.ReconcileInput{
		BrandName:   r.BrandName,
		ModelName:   r.ModelName,
		ItemName:    r.ItemName,
		SKU:         r.SKU,
		Category:    category,
		Gender:      gender,
		Description: r.Description,
		IsActive:    r.IsActive,
		IsFeatured:  r.IsFeatured,
		Variants:    variants,
	}, nil
}

func (r itemRequest) toInput() (catalog.ItemInput, error) {
	problems := pkgerrors.FieldErrors{}
	category, gender := parseCategoryGender(r.Category, r.Gender, problems)
	if err := problems.Err("validation failed"); err != nil {
		return catalog.ItemInput{}, err
	}
	return catalog.ItemInput{
		ModelID:  r.ModelID,
		Name:     r.Name,
		SKU:      r.SKU,
		Category: category,
		Gender:   gender,
		IsActive: r.IsActive,
	}, nil
}

func (r itemPatchRequest) toPatch() (catalog.ItemPatch, error) {
	problems := pkgerrors.FieldErrors{}
	patch := catalog.ItemPatch{
		ModelID:  r.ModelID,
		Name:     r.Name,
		SKU:      r.SKU,
		IsActive: r.IsActive,
	}
	if r.Category != nil {
		c, err := enums.ParseCategory(*r.Category)
		if err != nil {
			problems.Add("category", "invalid category")
		}
		patch.Category = &c
	}
	if r.Gender != nil {
		g, err := enums.ParseGender(*r.Gender)
		if err != nil {
			problems.Add("gender", "invalid gender")
		}
		patch.Gender = &g
	}
	return patch, problems.Err("validation failed")
}

func toListingInput(description *string, isActive, isFeatured *bool, variants []variantRequest) (catalog.ListingInput, error) {
	problems := pkgerrors.FieldErrors{}
	inputs := toVariantInputs(variants, problems)
	if err := problems.Err("validation failed"); err != nil {
		return catalog.ListingInput{}, err
	}
	return catalog.ListingInput{
		Description: description,
		IsActive:    isActive,
		IsFeatured:  isFeatured,
		Variants:    inputs,
	}, nil
}

// pageFromQuery reads page and limit; range checks happen in the services.
func pageFromQuery(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, 1<<30)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}
