package controllers

import (
	"net/http"

	"github.com/soledrop/soledrop-backend/api/responses"
	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/internal/media"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// AdminReconcile accepts one item record either as JSON or as a multipart
// form whose payload field carries the JSON and whose images fields carry files.
func AdminReconcile(svc catalog.Service, limits UploadLimits, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var req reconcileRequest
		var uploads []media.Upload
		if isMultipart(r) {
			if err := parseMultipart(w, r, limits); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			payload := r.FormValue(payloadField)
			if payload == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payload field is required").
					WithDetails(map[string]any{"field": payloadField}))
				return
			}
			if err := validators.DecodeJSONBytes([]byte(payload), &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			var err error
			if uploads, err = readUploads(r.MultipartForm, limits); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		} else if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Reconcile(ctx, input, uploads)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if report := result.Photos; report != nil && len(report.Failed) > 0 {
			logg.Warn(logg.WithFields(ctx, map[string]any{
				"listing_id": result.Listing.ID.String(),
				"failed":     len(report.Failed),
			}), "reconcile photo uploads partially failed")
		}
		status := http.StatusOK
		if result.ListingCreated {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// AdminRecount rebuilds every denormalised counter from the rows.
func AdminRecount(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		result, err := svc.Recount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
