package listings

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

type fixture struct {
	conn   *gorm.DB
	svc    Service
	eu42   uuid.UUID
	eu43   uuid.UUID
	clock  time.Time
	brands map[string]*models.Brand
	models map[string]*models.ProductModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, err := db.OpenSQLite(db.MemoryDSN("listings_" + strings.ReplaceAll(uuid.NewString(), "-", "")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	conn := client.DB()
	require.NoError(t, models.AutoMigrate(conn))
	require.NoError(t, models.SeedSizings(conn))

	svc, err := NewService(NewRepository(conn), logger.Nop())
	require.NoError(t, err)
	f := &fixture{
		conn:   conn,
		svc:    svc,
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		brands: map[string]*models.Brand{},
		models: map[string]*models.ProductModel{},
	}
	f.eu42 = f.sizing(t, "42")
	f.eu43 = f.sizing(t, "43")
	return f
}

func (f *fixture) sizing(t *testing.T, label string) uuid.UUID {
	var s models.Sizing
	require.NoError(t, f.conn.Where("system = ? AND label = ?", enums.SizingSystemEU, label).Take(&s).Error)
	return s.ID
}

type listingSeed struct {
	brand, model, item, sku string
	active, featured        bool
	variants                []models.ListingVariant
}

// add inserts the hierarchy for seed; each call is one tick newer than the last.
func (f *fixture) add(t *testing.T, seed listingSeed) *models.Listing {
	t.Helper()
	brand, ok := f.brands[seed.brand]
	if !ok {
		brand = &models.Brand{Name: seed.brand, IsActive: true}
		require.NoError(t, f.conn.Create(brand).Error)
		f.brands[seed.brand] = brand
	}
	key := seed.brand + "/" + seed.model
	model, ok := f.models[key]
	if !ok {
		model = &models.ProductModel{BrandID: brand.ID, Name: seed.model, IsActive: true}
		require.NoError(t, f.conn.Create(model).Error)
		f.models[key] = model
	}
	item := &models.Item{
		ModelID:  model.ID,
		Name:     seed.item,
		SKU:      seed.sku,
		Category: enums.CategorySneaker,
		Gender:   enums.GenderUnisex,
		IsActive: true,
	}
	require.NoError(t, f.conn.Create(item).Error)

	f.clock = f.clock.Add(time.Minute)
	listing := &models.Listing{ItemID: item.ID, IsActive: seed.active, IsFeatured: seed.featured, CreatedAt: f.clock}
	require.NoError(t, f.conn.Create(listing).Error)
	for _, v := range seed.variants {
		v.ListingID = listing.ID
		require.NoError(t, f.conn.Create(&v).Error)
	}
	return listing
}

func variant(sizing uuid.UUID, cond enums.Condition, cents int64) models.ListingVariant {
	return models.ListingVariant{SizingID: sizing, Condition: cond, PriceCents: cents, Stock: 1}
}

func ids(t *testing.T, svc Service, filters Filters) []uuid.UUID {
	t.Helper()
	page, err := svc.List(context.Background(), filters)
	require.NoError(t, err)
	out := make([]uuid.UUID, len(page.Data))
	for i, l := range page.Data {
		out[i] = l.ID
	}
	return out
}

func TestVariantFacetsMustHoldOnOneVariant(t *testing.T) {
	f := newFixture(t)
	mixed := f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero OG", sku: "NZ-1", active: true, variants: []models.ListingVariant{
		variant(f.eu42, enums.ConditionNew, 20000),
		variant(f.eu43, enums.ConditionUsed, 5000),
	}})
	cond := enums.ConditionNew
	max100, max250 := int64(10000), int64(25000)

	require.Empty(t, ids(t, f.svc, Filters{Condition: &cond, MaxPriceCents: &max100}))
	require.Equal(t, []uuid.UUID{mixed.ID}, ids(t, f.svc, Filters{Condition: &cond, MaxPriceCents: &max250}))

	// NEW only exists in 42, so asking for NEW in 43 must miss.
	require.Empty(t, ids(t, f.svc, Filters{Condition: &cond, SizingIDs: []uuid.UUID{f.eu43}}))
	require.Equal(t, []uuid.UUID{mixed.ID}, ids(t, f.svc, Filters{SizingIDs: []uuid.UUID{f.eu43, f.eu42}}))
}

func TestSearchMatchesBrandModelOrSku(t *testing.T) {
	f := newFixture(t)
	byBrand := f.add(t, listingSeed{brand: "Air Co", model: "Runner", item: "Runner One", sku: "RC-1", active: true})
	byModel := f.add(t, listingSeed{brand: "Nova", model: "Airwave", item: "Wave Low", sku: "NW-1", active: true})
	bySKU := f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero OG", sku: "AIR-01", active: true})
	f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero Mid", sku: "NZ-2", active: true})

	got := ids(t, f.svc, Filters{Search: "air"})
	require.Equal(t, []uuid.UUID{bySKU.ID, byModel.ID, byBrand.ID}, got)

	require.Equal(t, []uuid.UUID{byModel.ID}, ids(t, f.svc, Filters{Search: "AIR", ModelID: &f.models["Nova/Airwave"].ID}))
	require.Empty(t, ids(t, f.svc, Filters{Search: "air%"}))
}

func TestFlagsAndIdentityFacetsAreAnded(t *testing.T) {
	f := newFixture(t)
	featured := f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero OG", sku: "NZ-1", active: true, featured: true})
	f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero Mid", sku: "NZ-2", active: true})
	hidden := f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero Low", sku: "NZ-3", active: false, featured: true})
	f.add(t, listingSeed{brand: "Orbit", model: "One", item: "One OG", sku: "OO-1", active: true, featured: true})

	nova := f.brands["Nova"].ID
	require.Equal(t, []uuid.UUID{featured.ID}, ids(t, f.svc, Filters{ActiveOnly: true, FeaturedOnly: true, BrandID: &nova}))
	require.Equal(t, []uuid.UUID{hidden.ID, featured.ID}, ids(t, f.svc, Filters{FeaturedOnly: true, BrandID: &nova}))
	require.Len(t, ids(t, f.svc, Filters{ActiveOnly: true}), 3)
	require.Equal(t, []uuid.UUID{hidden.ID}, ids(t, f.svc, Filters{ItemID: &hidden.ItemID}))
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	var created []uuid.UUID
	for i, sku := range []string{"A-1", "A-2", "A-3"} {
		l := f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero " + sku, sku: sku, active: true,
			variants: []models.ListingVariant{variant(f.eu42, enums.ConditionNew, int64(100*(i+1)))}})
		created = append(created, l.ID)
	}

	page, err := f.svc.List(context.Background(), Filters{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.Equal(t, 2, page.Pagination.Limit)
	require.Len(t, page.Data, 2)
	require.Equal(t, created[2], page.Data[0].ID)
	require.Equal(t, created[1], page.Data[1].ID)
	require.NotNil(t, page.Data[0].Brand)
	require.Equal(t, "Nova", page.Data[0].Brand.Name)
	require.Len(t, page.Data[0].Variants, 1)

	page, err = f.svc.List(context.Background(), Filters{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Equal(t, created[0], page.Data[0].ID)

	page, err = f.svc.List(context.Background(), Filters{Page: 5, Limit: 2})
	require.NoError(t, err)
	require.Empty(t, page.Data)
	require.NotNil(t, page.Data)
	require.EqualValues(t, 3, page.Pagination.Total)
}

func TestListRejectsInvalidFilters(t *testing.T) {
	f := newFixture(t)
	lo, hi := int64(500), int64(100)
	_, err := f.svc.List(context.Background(), Filters{MinPriceCents: &lo, MaxPriceCents: &hi})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestGetHidesInactiveForStorefront(t *testing.T) {
	f := newFixture(t)
	hidden := f.add(t, listingSeed{brand: "Nova", model: "Zero", item: "Zero OG", sku: "NZ-1", active: false})
	ctx := context.Background()

	_, err := f.svc.Get(ctx, hidden.ID, true)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	dto, err := f.svc.Get(ctx, hidden.ID, false)
	require.NoError(t, err)
	require.False(t, dto.IsActive)
	require.Equal(t, "NZ-1", dto.Item.SKU)

	_, err = f.svc.Get(ctx, uuid.New(), false)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
