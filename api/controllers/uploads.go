package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/soledrop/soledrop-backend/internal/media"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

const (
	payloadField = "payload"
	imagesField  = "images"
)

// UploadLimits bounds multipart bodies accepted by the admin endpoints.
type UploadLimits struct {
	MaxBytes int64
	MaxFiles int
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

func parseMultipart(w http.ResponseWriter, r *http.Request, limits UploadLimits) error {
	if limits.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBytes)
	}
	if err := r.ParseMultipartForm(limits.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
				WithDetails(map[string]any{"maxBytes": limits.MaxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	return nil
}

// readUploads loads every file under the images field into memory. Payload
// bytes are sniffed and normalised by the media pipeline.
func readUploads(form *multipart.Form, limits UploadLimits) ([]media.Upload, error) {
	if form == nil {
		return nil, nil
	}
	files := form.File[imagesField]
	if limits.MaxFiles > 0 && len(files) > limits.MaxFiles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images per request", limits.MaxFiles)).
			WithDetails(map[string]any{"field": imagesField, "count": len(files)})
	}
	uploads := make([]media.Upload, 0, len(files))
	for i, fh := range files {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable image").
				WithDetails(map[string]any{"field": fmt.Sprintf("%s[%d]", imagesField, i)})
		}
		uploads = append(uploads, media.Upload{FileName: fh.Filename, Data: data})
	}
	return uploads, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
