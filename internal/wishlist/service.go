package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/pkg/db"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

type txRunner interface {
	WithBoundedTx(ctx context.Context, opts db.TxOptions, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repo      *Repository
	Tx        txRunner
	TxOptions db.TxOptions
	Logger    *logger.Logger
}

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*catalog.Page[WishlistItemDTO], error)
	Add(ctx context.Context, userID, listingID uuid.UUID) error
	Remove(ctx context.Context, userID, listingID uuid.UUID) error
}

type service struct {
	repo   *Repository
	tx     txRunner
	txOpts db.TxOptions
	logg   *logger.Logger
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		txOpts: params.TxOptions,
		logg:   params.Logger,
	}, nil
}

// List returns the paginated wishlist of a user.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*catalog.Page[WishlistItemDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListItems(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list wishlist")
	}
	data := make([]WishlistItemDTO, len(rows))
	for i, row := range rows {
		data[i] = itemFromModel(row)
	}
	return catalog.NewPage(data, params, total), nil
}

// Add saves the listing for the user. Saving twice is a no-op and does not
// move the item counter.
func (s *service) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	if err := validateIDs(userID, listingID); err != nil {
		return err
	}
	var inserted bool
	err := s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		itemID, err := repo.LockListing(ctx, listingID)
		if err != nil {
			return lookupError(err)
		}
		if inserted, err = repo.AddItem(ctx, userID, listingID); err != nil || !inserted {
			return err
		}
		return catalog.AdjustWishlistCount(ctx, tx, itemID, 1)
	})
	if err != nil {
		return wrapStore(err, "add wishlist item")
	}
	if inserted {
		s.logg.Info(s.logg.WithField(ctx, "listing_id", listingID.String()), "wishlist item added")
	}
	return nil
}

// Remove drops the wishlist entry regardless of prior state.
func (s *service) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	if err := validateIDs(userID, listingID); err != nil {
		return err
	}
	err := s.tx.WithBoundedTx(ctx, s.txOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		itemID, err := repo.LockListing(ctx, listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		removed, err := repo.RemoveItem(ctx, userID, listingID)
		if err != nil || !removed {
			return err
		}
		return catalog.AdjustWishlistCount(ctx, tx, itemID, -1)
	})
	if err != nil {
		return wrapStore(err, "remove wishlist item")
	}
	return nil
}

func validateIDs(userID, listingID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if listingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
	}
	return err
}

func wrapStore(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: "+op)
}
