package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/soledrop/soledrop-backend/api/middleware"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/internal/listings"
	"github.com/soledrop/soledrop-backend/internal/wishlist"
	"github.com/soledrop/soledrop-backend/pkg/config"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

type stubListingService struct {
	filters  listings.Filters
	getID    uuid.UUID
	active   bool
	listings []catalog.ListingDTO
}

func (s *stubListingService) List(ctx context.Context, filters listings.Filters) (*catalog.Page[catalog.ListingDTO], error) {
	s.filters = filters
	return catalog.NewPage(s.listings, pagination.Params{Page: filters.Page, Limit: filters.Limit}, int64(len(s.listings))), nil
}

func (s *stubListingService) Get(ctx context.Context, id uuid.UUID, activeOnly bool) (*catalog.ListingDTO, error) {
	s.getID, s.active = id, activeOnly
	return &catalog.ListingDTO{ID: id}, nil
}

func TestListingsListForcesActiveAndParsesFacets(t *testing.T) {
	svc := &stubListingService{listings: []catalog.ListingDTO{{ID: uuid.New()}}}
	brandID := uuid.New()
	sizeA, sizeB := uuid.New(), uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings?active=false&brandId="+brandID.String()+
		"&minPrice=10.50&maxPrice=200&condition=used&sizingId="+sizeA.String()+","+sizeB.String()+
		"&search=jordan&featured=true&page=2&limit=5", nil)
	resp := httptest.NewRecorder()
	ListingsList(svc, logger.Nop()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	f := svc.filters
	if !f.ActiveOnly {
		t.Fatalf("storefront must force the active facet")
	}
	if !f.FeaturedOnly || f.Search != "jordan" {
		t.Fatalf("unexpected flags %+v", f)
	}
	if f.BrandID == nil || *f.BrandID != brandID {
		t.Fatalf("brand facet not parsed: %+v", f.BrandID)
	}
	if f.MinPriceCents == nil || *f.MinPriceCents != 1050 || f.MaxPriceCents == nil || *f.MaxPriceCents != 20000 {
		t.Fatalf("price facets not converted to cents: %v %v", f.MinPriceCents, f.MaxPriceCents)
	}
	if f.Condition == nil || *f.Condition != enums.ConditionUsed {
		t.Fatalf("condition facet not parsed")
	}
	if len(f.SizingIDs) != 2 || f.SizingIDs[0] != sizeA || f.SizingIDs[1] != sizeB {
		t.Fatalf("sizing facet not parsed: %v", f.SizingIDs)
	}
	if f.Page != 2 || f.Limit != 5 {
		t.Fatalf("pagination not parsed: %d/%d", f.Page, f.Limit)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["pagination"]; !ok {
		t.Fatalf("expected pagination envelope, got %v", body)
	}
}

func TestAdminListingsListHonoursActiveParam(t *testing.T) {
	svc := &stubListingService{}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/listings", nil)
	resp := httptest.NewRecorder()
	AdminListingsList(svc, logger.Nop()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.filters.ActiveOnly {
		t.Fatalf("admin query should include inactive listings by default")
	}
}

func TestListingsListRejectsBadFacets(t *testing.T) {
	cases := map[string]string{
		"condition":  "/api/v1/listings?condition=mint",
		"price":      "/api/v1/listings?minPrice=1.005",
		"negative":   "/api/v1/listings?maxPrice=-1",
		"overflow":   "/api/v1/listings?maxPrice=184467440737095516.16",
		"brand uuid": "/api/v1/listings?brandId=nope",
		"limit":      "/api/v1/listings?limit=1000",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			ListingsList(&stubListingService{}, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
			expectError(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")
		})
	}
}

func TestListingsGetUsesActiveOnly(t *testing.T) {
	svc := &stubListingService{}
	id := uuid.New()
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/listings/"+id.String(), nil), "listingId", id.String())
	resp := httptest.NewRecorder()
	ListingsGet(svc, logger.Nop()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.getID != id || !svc.active {
		t.Fatalf("expected active-only lookup of %s, got %s active=%v", id, svc.getID, svc.active)
	}
}

func TestListingsNilServiceIsInternal(t *testing.T) {
	resp := httptest.NewRecorder()
	ListingsList(nil, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil))
	expectError(t, resp, http.StatusInternalServerError, "INTERNAL_ERROR")
}

type stubWishlistService struct {
	user    uuid.UUID
	listing uuid.UUID
	removed bool
}

func (s *stubWishlistService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*catalog.Page[wishlist.WishlistItemDTO], error) {
	s.user = userID
	return catalog.NewPage[wishlist.WishlistItemDTO](nil, params, 0), nil
}

func (s *stubWishlistService) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	s.user, s.listing = userID, listingID
	return nil
}

func (s *stubWishlistService) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	s.user, s.listing, s.removed = userID, listingID, true
	return nil
}

func TestWishlistRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	WishlistList(&stubWishlistService{}, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil))
	expectError(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestWishlistAddAndRemove(t *testing.T) {
	svc := &stubWishlistService{}
	userID, listingID := uuid.New(), uuid.New()

	newReq := func(method string) *http.Request {
		req := httptest.NewRequest(method, "/api/v1/wishlist/"+listingID.String(), nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		return withURLParams(req, "listingId", listingID.String())
	}

	resp := httptest.NewRecorder()
	WishlistAdd(svc, logger.Nop()).ServeHTTP(resp, newReq(http.MethodPut))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if svc.user != userID || svc.listing != listingID {
		t.Fatalf("unexpected add call %s/%s", svc.user, svc.listing)
	}

	resp = httptest.NewRecorder()
	WishlistRemove(svc, logger.Nop()).ServeHTTP(resp, newReq(http.MethodDelete))
	if resp.Code != http.StatusNoContent || !svc.removed {
		t.Fatalf("expected remove to succeed, got %d", resp.Code)
	}
}

type stubSizingCatalog struct {
	catalog.Service
	system *enums.SizingSystem
}

func (s *stubSizingCatalog) ListSizings(ctx context.Context, system *enums.SizingSystem) ([]catalog.SizingDTO, error) {
	s.system = system
	return []catalog.SizingDTO{}, nil
}

func TestSizingsListParsesSystem(t *testing.T) {
	svc := &stubSizingCatalog{}
	resp := httptest.NewRecorder()
	SizingsList(svc, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/sizings?system=eu", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.system == nil || *svc.system != enums.SizingSystemEU {
		t.Fatalf("expected eu system filter")
	}

	resp = httptest.NewRecorder()
	SizingsList(svc, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/sizings?system=mars", nil))
	expectError(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	cfg := &config.Config{}
	deps := map[string]Pinger{
		"db":    pingerFunc(func(context.Context) error { return nil }),
		"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		"gcs":   nil,
	}
	resp := httptest.NewRecorder()
	HealthReady(cfg, deps, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	expectError(t, resp, http.StatusServiceUnavailable, "DEPENDENCY_ERROR")

	delete(deps, "redis")
	resp = httptest.NewRecorder()
	HealthReady(cfg, deps, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.Code)
	}
}
