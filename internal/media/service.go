package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
	"github.com/soledrop/soledrop-backend/pkg/outbox/payloads"
)

type objectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

type txRunner interface {
	WithBoundedTx(ctx context.Context, opts db.TxOptions, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type uploadObserver interface {
	ObservePhotoUploads(attached, failed int)
}

// Service attaches, removes and orders listing photos. It always runs after
// the catalog transaction that produced the listing has committed.
type Service interface {
	AttachPhotos(ctx context.Context, listingID uuid.UUID, uploads []Upload) (*AttachReport, error)
	ListPhotos(ctx context.Context, listingID uuid.UUID) ([]Photo, error)
	DeletePhoto(ctx context.Context, listingID, photoID uuid.UUID) error
	SetMainPhoto(ctx context.Context, listingID, photoID uuid.UUID) ([]Photo, error)
	DeleteObjects(ctx context.Context, keys []string) error
}

// Upload is one image payload as received from the caller.
type Upload struct {
	FileName string
	Data     []byte
}

// UploadFailure describes why a single file of a batch was not attached.
type UploadFailure struct {
	Index    int    `json:"index"`
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

func (f UploadFailure) Error() string {
	return fmt.Sprintf("upload %d (%s): %s", f.Index, f.FileName, f.Reason)
}

// AttachReport separates attached photos from per-file failures.
type AttachReport struct {
	Attached []Photo         `json:"attached"`
	Failed   []UploadFailure `json:"failed"`
}

// Err folds every failure into one UPLOAD_FAILURE error, or nil.
func (r *AttachReport) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	var combined error
	for _, f := range r.Failed {
		combined = multierr.Append(combined, f)
	}
	return pkgerrors.Wrap(pkgerrors.CodeUploadFailure, combined, fmt.Sprintf("%d of %d uploads failed", len(r.Failed), len(r.Failed)+len(r.Attached))).
		WithDetails(r.Failed)
}

// Photo is the public view of a listing photo.
type Photo struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listingId"`
	URL       string    `json:"url"`
	IsMain    bool      `json:"isMain"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
}

// PhotoFromModel maps a stored photo to its public view.
func PhotoFromModel(p models.ListingPhoto) Photo {
	return Photo{
		ID:        p.ID,
		ListingID: p.ListingID,
		URL:       p.URL,
		IsMain:    p.IsMain,
		Order:     p.Position,
		CreatedAt: p.CreatedAt,
	}
}

// ServiceParams wires the media service.
type ServiceParams struct {
	Repo      *Repository
	Store     objectStore
	Tx        txRunner
	TxOptions db.TxOptions
	Outbox    eventEmitter
	Metrics   uploadObserver
	Logger    *logger.Logger
	Normalize NormalizeOptions
	MaxFiles  int
	MaxBytes  int64
}

type service struct {
	repo      *Repository
	store     objectStore
	tx        txRunner
	txOpts    db.TxOptions
	outbox    eventEmitter
	metrics   uploadObserver
	logg      *logger.Logger
	normalize NormalizeOptions
	maxFiles  int
	maxBytes  int64
}

// NewService constructs the media service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("photo repository required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      p.Repo,
		store:     p.Store,
		tx:        p.Tx,
		txOpts:    p.TxOptions,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
		logg:      p.Logger,
		normalize: p.Normalize,
		maxFiles:  p.MaxFiles,
		maxBytes:  p.MaxBytes,
	}, nil
}

func (s *service) AttachPhotos(ctx context.Context, listingID uuid.UUID, uploads []Upload) (*AttachReport, error) {
	report := &AttachReport{Attached: []Photo{}, Failed: []UploadFailure{}}
	if len(uploads) == 0 {
		return report, nil
	}
	if s.maxFiles > 0 && len(uploads) > s.maxFiles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d photos per request", s.maxFiles))
	}

	exists, err := s.repo.ListingExists(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: check listing")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	existing, err := s.repo.CountPhotos(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: count photos")
	}

	ctx = s.logg.WithField(ctx, "listing_id", listingID.String())
	for i, upload := range uploads {
		photo, err := s.attachOne(ctx, listingID, int(existing)+i, upload)
		if err != nil {
			report.Failed = append(report.Failed, UploadFailure{Index: i, FileName: upload.FileName, Reason: err.Error()})
			continue
		}
		report.Attached = append(report.Attached, PhotoFromModel(*photo))
	}

	if s.metrics != nil {
		s.metrics.ObservePhotoUploads(len(report.Attached), len(report.Failed))
	}
	if err := report.Err(); err != nil {
		s.logg.WarnErr(ctx, "some listing photos were not attached", err)
	}
	if len(report.Attached) > 0 {
		s.emitAttached(ctx, listingID, report)
	}
	return report, nil
}

func (s *service) attachOne(ctx context.Context, listingID uuid.UUID, position int, upload Upload) (*models.ListingPhoto, error) {
	if len(upload.Data) == 0 {
		return nil, errors.New("empty file")
	}
	if s.maxBytes > 0 && int64(len(upload.Data)) > s.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.maxBytes)
	}
	detected, format, ok := sniffImage(upload.Data)
	if !ok {
		return nil, fmt.Errorf("unsupported content type %s", detected)
	}
	img, err := normalizeImage(upload.Data, format, s.normalize)
	if err != nil {
		return nil, err
	}

	key := buildObjectKey(listingID, uuid.New(), upload.FileName, img.ext)
	url, err := s.store.Put(ctx, key, img.contentType, bytes.NewReader(img.data))
	if err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	photo := &models.ListingPhoto{
		ListingID:  listingID,
		URL:        url,
		StorageKey: key,
		Position:   position,
	}
	err = s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockListing(ctx, listingID); err != nil {
			return err
		}
		count, err := repo.CountPhotos(ctx, listingID)
		if err != nil {
			return err
		}
		photo.IsMain = count == 0
		return repo.Create(ctx, photo)
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logg.WarnErr(s.logg.WithField(ctx, "storage_key", key), "orphaned photo object", delErr)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("listing was deleted")
		}
		return nil, fmt.Errorf("record photo: %w", err)
	}
	return photo, nil
}

func (s *service) emitAttached(ctx context.Context, listingID uuid.UUID, report *AttachReport) {
	if s.outbox == nil {
		return
	}
	ids := make([]uuid.UUID, len(report.Attached))
	for i, p := range report.Attached {
		ids[i] = p.ID
	}
	err := s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPhotosAttached,
			AggregateType: enums.AggregateListing,
			AggregateID:   listingID,
			Data: payloads.PhotosAttachedEvent{
				ListingID: listingID,
				PhotoIDs:  ids,
				Failed:    len(report.Failed),
			},
		})
	})
	if err != nil {
		s.logg.WarnErr(ctx, "queue photos attached event", err)
	}
}

func (s *service) ListPhotos(ctx context.Context, listingID uuid.UUID) ([]Photo, error) {
	rows, err := s.repo.List(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list photos")
	}
	out := make([]Photo, len(rows))
	for i, row := range rows {
		out[i] = PhotoFromModel(row)
	}
	return out, nil
}

// DeletePhoto removes the record and, when it was the main photo, promotes the
// photo with the lowest order. The stored object is removed after commit.
func (s *service) DeletePhoto(ctx context.Context, listingID, photoID uuid.UUID) error {
	var key string
	err := s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockListing(ctx, listingID); err != nil {
			return notFoundOr(err, "listing not found", "db: lock listing")
		}
		photo, err := repo.FindPhoto(ctx, listingID, photoID)
		if err != nil {
			return notFoundOr(err, "photo not found", "db: find photo")
		}
		key = photo.StorageKey
		if err := repo.Delete(ctx, photo.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: delete photo")
		}
		if !photo.IsMain {
			return nil
		}
		next, err := repo.FirstByPosition(ctx, listingID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: find next main photo")
		}
		return repo.SetMain(ctx, listingID, next.ID)
	})
	if err != nil {
		return err
	}
	if err := s.DeleteObjects(ctx, []string{key}); err != nil {
		s.logg.WarnErr(ctx, "delete photo object", err)
	}
	return nil
}

func (s *service) SetMainPhoto(ctx context.Context, listingID, photoID uuid.UUID) ([]Photo, error) {
	err := s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockListing(ctx, listingID); err != nil {
			return notFoundOr(err, "listing not found", "db: lock listing")
		}
		if _, err := repo.FindPhoto(ctx, listingID, photoID); err != nil {
			return notFoundOr(err, "photo not found", "db: find photo")
		}
		if err := repo.SetMain(ctx, listingID, photoID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: set main photo")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListPhotos(ctx, listingID)
}

// DeleteObjects removes stored objects best-effort and returns every failure
// combined.
func (s *service) DeleteObjects(ctx context.Context, keys []string) error {
	var combined error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

func notFoundOr(err error, notFound, wrap string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, wrap)
}

func buildObjectKey(listingID, id uuid.UUID, fileName, ext string) string {
	base := sanitizeFileName(fileName)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" {
		return fmt.Sprintf("listings/%s/%s%s", listingID, id, ext)
	}
	return fmt.Sprintf("listings/%s/%s-%s%s", listingID, id, base, ext)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case r == '?' || r == '#' || r == '%':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
