package controllers

import (
	"net/http"

	"github.com/soledrop/soledrop-backend/api/responses"
	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

func AdminItemsCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		var req itemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.CreateItem(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// AdminItemsList filters by ?modelId= when present; search matches name or SKU.
func AdminItemsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		modelID, err := validators.ParseQueryUUID(r, "modelId")
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
		page, err := svc.ListItems(ctx, modelID, search, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

func AdminItemsGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.GetItem(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AdminItemsUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req itemPatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		patch, err := req.toPatch()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.UpdateItem(ctx, id, patch)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AdminItemsDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteItem(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
