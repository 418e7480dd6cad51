package listings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/internal/catalog"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// Service answers storefront and admin listing queries.
type Service interface {
	List(ctx context.Context, filters Filters) (*catalog.Page[catalog.ListingDTO], error)
	Get(ctx context.Context, id uuid.UUID, activeOnly bool) (*catalog.ListingDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("listings repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, filters Filters) (*catalog.Page[catalog.ListingDTO], error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	params := filters.params()
	rows, total, err := s.repo.List(ctx, Compile(filters), params)
	if err != nil {
		s.logg.Error(ctx, "listing query failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list listings")
	}
	data := make([]catalog.ListingDTO, len(rows))
	for i, row := range rows {
		data[i] = catalog.ListingFromModel(row)
	}
	return catalog.NewPage(data, params, total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, activeOnly bool) (*catalog.ListingDTO, error) {
	listing, err := s.repo.Get(ctx, id, activeOnly)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: get listing")
	}
	dto := catalog.ListingFromModel(*listing)
	return &dto, nil
}
