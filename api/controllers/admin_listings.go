package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soledrop/soledrop-backend/api/responses"
	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// AdminListingsCreate opens the listing of an item. An item that already has
// one gets a Conflict; use reconcile to merge into it.
func AdminListingsCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		var req listingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := toListingInput(req.Description, req.IsActive, req.IsFeatured, req.Variants)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listing, err := svc.CreateListing(ctx, req.ItemID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

func AdminListingsGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listing, err := svc.GetListing(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// AdminListingsUpdate patches metadata and upserts the given variants.
// Variants absent from the body are left untouched.
func AdminListingsUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req listingPatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := toListingInput(req.Description, req.IsActive, req.IsFeatured, req.Variants)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listing, err := svc.UpdateListing(ctx, id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func AdminListingsDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteListing(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdminVariantsDelete removes one (sizing, condition) variant and returns the
// listing as it stands afterwards.
func AdminVariantsDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		listingID, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sizingID, err := validators.ParseURLUUID(r, "sizingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		condition, err := enums.ParseCondition(chi.URLParam(r, "condition"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition").
				WithDetails(map[string]any{"field": "condition"}))
			return
		}
		listing, err := svc.DeleteVariant(ctx, listingID, sizingID, condition)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
