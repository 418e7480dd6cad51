package controllers

import (
	"net/http"

	"github.com/soledrop/soledrop-backend/api/responses"
	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/internal/listings"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

const maxSearchLen = 100

// filtersFromQuery maps query parameters onto listing facets. The storefront
// always sees active listings only; admins may pass active=false.
func filtersFromQuery(r *http.Request, storefront bool) (listings.Filters, error) {
	var f listings.Filters
	var err error

	if f.ItemID, err = validators.ParseQueryUUID(r, "itemId"); err != nil {
		return f, err
	}
	if f.BrandID, err = validators.ParseQueryUUID(r, "brandId"); err != nil {
		return f, err
	}
	if f.ModelID, err = validators.ParseQueryUUID(r, "modelId"); err != nil {
		return f, err
	}
	if f.SizingIDs, err = validators.ParseQueryUUIDList(r, "sizingId"); err != nil {
		return f, err
	}
	if f.FeaturedOnly, err = validators.ParseQueryBool(r, "featured", false); err != nil {
		return f, err
	}
	if storefront {
		f.ActiveOnly = true
	} else if f.ActiveOnly, err = validators.ParseQueryBool(r, "active", false); err != nil {
		return f, err
	}
	f.Search = validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLen)

	if raw := r.URL.Query().Get("condition"); raw != "" {
		condition, err := enums.ParseCondition(raw)
		if err != nil {
			return f, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition").WithDetails(map[string]any{"field": "condition"})
		}
		f.Condition = &condition
	}
	if f.MinPriceCents, err = priceQuery(r, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPriceCents, err = priceQuery(r, "maxPrice"); err != nil {
		return f, err
	}

	params, err := pageFromQuery(r)
	if err != nil {
		return f, err
	}
	f.Page, f.Limit = params.Page, params.Limit
	return f, nil
}

func priceQuery(r *http.Request, key string) (*int64, error) {
	price, err := validators.ParseQueryDecimal(r, key)
	if err != nil || price == nil {
		return nil, err
	}
	cents, err := catalog.PriceToCents(*price)
	if err != nil {
		return nil, pkgerrors.As(err).WithDetails(map[string]any{"field": key})
	}
	return &cents, nil
}

// ListingsList serves the storefront listing query.
func ListingsList(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return listListings(svc, logg, true)
}

// AdminListingsList runs the same query without forcing the active facet.
func AdminListingsList(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return listListings(svc, logg, false)
}

func listListings(svc listings.Service, logg *logger.Logger, storefront bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		filters, err := filtersFromQuery(r, storefront)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

// ListingsGet returns one active listing for the storefront.
func ListingsGet(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		id, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Get(r.Context(), id, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
