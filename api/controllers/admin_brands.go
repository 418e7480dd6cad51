package controllers

import (
	"net/http"

	"github.com/soledrop/soledrop-backend/api/responses"
	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

func AdminBrandsCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		var req brandRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		brand, err := svc.CreateBrand(ctx, catalog.BrandInput{
			Name:        req.Name,
			Description: req.Description,
			LogoURL:     req.LogoURL,
			IsActive:    req.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, brand)
	}
}

func AdminBrandsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		params, err := pageFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		search := validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLen)
		page, err := svc.ListBrands(ctx, search, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

func AdminBrandsGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "brandId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		brand, err := svc.GetBrand(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, brand)
	}
}

func AdminBrandsUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "brandId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req brandPatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		brand, err := svc.UpdateBrand(ctx, id, catalog.BrandPatch{
			Name:        req.Name,
			Description: req.Description,
			LogoURL:     req.LogoURL,
			IsActive:    req.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, brand)
	}
}

// AdminBrandsDelete removes the brand and everything beneath it.
func AdminBrandsDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "brandId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteBrand(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
