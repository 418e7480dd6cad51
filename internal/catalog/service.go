package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

type txRunner interface {
	WithBoundedTx(ctx context.Context, opts db.TxOptions, fn func(tx *gorm.DB) error) error
}

type photoPipeline interface {
	AttachPhotos(ctx context.Context, listingID uuid.UUID, uploads []media.Upload) (*media.AttachReport, error)
	DeleteObjects(ctx context.Context, keys []string) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type reconcileObserver interface {
	ObserveReconcile(outcome string, duration time.Duration)
}

// Service exposes catalog reconciliation and admin maintenance.
type Service interface {
	Reconcile(ctx context.Context, input ReconcileInput, uploads []media.Upload) (*ReconcileResult, error)
	Recount(ctx context.Context) (*RecountResult, error)
	ListSizings(ctx context.Context, system *enums.SizingSystem) ([]SizingDTO, error)

	CreateBrand(ctx context.Context, input BrandInput) (*BrandDTO, error)
	GetBrand(ctx context.Context, id uuid.UUID) (*BrandDTO, error)
	ListBrands(ctx context.Context, search string, params pagination.Params) (*Page[BrandDTO], error)
	UpdateBrand(ctx context.Context, id uuid.UUID, patch BrandPatch) (*BrandDTO, error)
	DeleteBrand(ctx context.Context, id uuid.UUID) error

	CreateModel(ctx context.Context, input ModelInput) (*ModelDTO, error)
	GetModel(ctx context.Context, id uuid.UUID) (*ModelDTO, error)
	ListModels(ctx context.Context, brandID *uuid.UUID, search string, params pagination.Params) (*Page[ModelDTO], error)
	UpdateModel(ctx context.Context, id uuid.UUID, patch ModelPatch) (*ModelDTO, error)
	DeleteModel(ctx context.Context, id uuid.UUID) error

	CreateItem(ctx context.Context, input ItemInput) (*ItemDTO, error)
	GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	ListItems(ctx context.Context, modelID *uuid.UUID, search string, params pagination.Params) (*Page[ItemDTO], error)
	UpdateItem(ctx context.Context, id uuid.UUID, patch ItemPatch) (*ItemDTO, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	CreateListing(ctx context.Context, itemID uuid.UUID, input ListingInput) (*ListingDTO, error)
	GetListing(ctx context.Context, id uuid.UUID) (*ListingDTO, error)
	UpdateListing(ctx context.Context, id uuid.UUID, input ListingInput) (*ListingDTO, error)
	DeleteListing(ctx context.Context, id uuid.UUID) error
	DeleteVariant(ctx context.Context, listingID, sizingID uuid.UUID, condition enums.Condition) (*ListingDTO, error)
}

// ServiceParams wires the catalog service.
type ServiceParams struct {
	Repo      *Repository
	Tx        txRunner
	TxOptions db.TxOptions
	Media     photoPipeline
	Outbox    eventEmitter
	Metrics   reconcileObserver
	Logger    *logger.Logger
}

type service struct {
	repo    *Repository
	tx      txRunner
	txOpts  db.TxOptions
	media   photoPipeline
	outbox  eventEmitter
	metrics reconcileObserver
	logg    *logger.Logger
}

// NewService constructs the catalog service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Media == nil {
		return nil, fmt.Errorf("media pipeline required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    p.Repo,
		tx:      p.Tx,
		txOpts:  p.TxOptions,
		media:   p.Media,
		outbox:  p.Outbox,
		metrics: p.Metrics,
		logg:    p.Logger,
	}, nil
}

// withTx runs fn in the bounded transaction with a repository bound to it.
func (s *service) withTx(ctx context.Context, fn func(tx *gorm.DB, repo *Repository) error) error {
	return s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		return fn(tx, s.repo.WithTx(tx))
	})
}

// cleanupObjects removes stored photos of rows that a committed delete removed.
func (s *service) cleanupObjects(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := s.media.DeleteObjects(ctx, keys); err != nil {
		s.logg.WarnErr(ctx, "photo objects left behind after delete", err)
	}
}

func (s *service) Recount(ctx context.Context) (*RecountResult, error) {
	var result *RecountResult
	err := s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		var err error
		result, err = recount(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recount counters")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Total > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "fixed", result.Fixed), "counters drifted and were repaired")
	}
	return result, nil
}

func (s *service) ListSizings(ctx context.Context, system *enums.SizingSystem) ([]SizingDTO, error) {
	if system != nil && !system.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sizing system")
	}
	rows, err := s.repo.ListSizings(ctx, system)
	if err != nil {
		return nil, storeError(err, "list sizings")
	}
	out := make([]SizingDTO, len(rows))
	for i, row := range rows {
		out[i] = SizingFromModel(row)
	}
	return out, nil
}

// storeError keeps typed errors and classifies raw store errors.
func storeError(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, op+": already exists")
	}
	if db.IsForeignKeyViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, op+": referenced row missing")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: "+op)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return storeError(err, "find "+what)
}

func pageParams(params pagination.Params) (pagination.Params, error) {
	params = params.WithDefaults()
	return params, params.Validate()
}
