package controllers

import (
	"net/http"

	"github.com/soledrop/soledrop-backend/api/responses"
	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

func AdminModelsCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		var req modelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		model, err := svc.CreateModel(ctx, catalog.ModelInput{BrandID: req.BrandID, Name: req.Name, IsActive: req.IsActive})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, model)
	}
}

// AdminModelsList filters by ?brandId= when present.
func AdminModelsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		brandID, err := validators.ParseQueryUUID(r, "brandId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := pageFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		search := validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLen)
		page, err := svc.ListModels(ctx, brandID, search, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

func AdminModelsGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "modelId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		model, err := svc.GetModel(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, model)
	}
}

func AdminModelsUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "modelId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req modelPatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		model, err := svc.UpdateModel(ctx, id, catalog.ModelPatch{BrandID: req.BrandID, Name: req.Name, IsActive: req.IsActive})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, model)
	}
}

func AdminModelsDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "modelId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteModel(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
