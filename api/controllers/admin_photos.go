package controllers

import (
	"net/http"

	"github.com/soledrop/soledrop-backend/api/responses"
	"github.com/soledrop/soledrop-backend/api/validators"
	"github.com/soledrop/soledrop-backend/internal/media"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// AdminPhotosUpload attaches the images of a multipart body to a listing.
// Files that fail are reported next to the ones that were attached; the
// request only fails outright when nothing could be attached.
func AdminPhotosUpload(svc media.Service, limits UploadLimits, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("media"))
			return
		}
		listingID, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !isMultipart(r) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "multipart/form-data body required"))
			return
		}
		if err := parseMultipart(w, r, limits); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		uploads, err := readUploads(r.MultipartForm, limits)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(uploads) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required").
				WithDetails(map[string]any{"field": imagesField}))
			return
		}

		report, err := svc.AttachPhotos(ctx, listingID, uploads)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(report.Attached) == 0 {
			responses.WriteError(ctx, logg, w, report.Err())
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, report)
	}
}

func AdminPhotosDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("media"))
			return
		}
		listingID, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		photoID, err := validators.ParseURLUUID(r, "photoId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeletePhoto(ctx, listingID, photoID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdminPhotosSetMain returns the listing's photos in display order.
func AdminPhotosSetMain(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("media"))
			return
		}
		listingID, err := validators.ParseURLUUID(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		photoID, err := validators.ParseURLUUID(r, "photoId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		photos, err := svc.SetMainPhoto(ctx, listingID, photoID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, photos)
	}
}
