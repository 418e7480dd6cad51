package catalog

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
)

type fakeMedia struct {
	mu      sync.Mutex
	calls   int
	uploads int
	err     error
	deleted []string
}

func (f *fakeMedia) AttachPhotos(_ context.Context, listingID uuid.UUID, uploads []media.Upload) (*media.AttachReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.uploads += len(uploads)
	if f.err != nil {
		return nil, f.err
	}
	report := &media.AttachReport{Attached: []media.Photo{}, Failed: []media.UploadFailure{}}
	for i := range uploads {
		report.Attached = append(report.Attached, media.Photo{ID: uuid.New(), ListingID: listingID, Order: i, IsMain: i == 0})
	}
	return report, nil
}

func (f *fakeMedia) DeleteObjects(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
	return nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingMetrics) ObserveReconcile(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

type testEnv struct {
	client  *db.Client
	repo    *Repository
	svc     Service
	media   *fakeMedia
	metrics *recordingMetrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client, err := db.OpenSQLite(db.MemoryDSN("catalog_" + strings.ReplaceAll(uuid.NewString(), "-", "")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, models.AutoMigrate(client.DB()))
	require.NoError(t, models.SeedSizings(client.DB()))

	logg := logger.Nop()
	fm := &fakeMedia{}
	rm := &recordingMetrics{}
	repo := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Tx:        client,
		TxOptions: db.TxOptions{MaxWait: 5 * time.Second, Timeout: 10 * time.Second},
		Media:     fm,
		Outbox:    outbox.NewService(outbox.NewRepository(client.DB()), logg),
		Metrics:   rm,
		Logger:    logg,
	})
	require.NoError(t, err)
	return &testEnv{client: client, repo: repo, svc: svc, media: fm, metrics: rm}
}

func (e *testEnv) sizing(t *testing.T, system enums.SizingSystem, label string) uuid.UUID {
	t.Helper()
	var row models.Sizing
	require.NoError(t, e.client.DB().Where("system = ? AND label = ?", system, label).Take(&row).Error)
	return row.ID
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.client.DB().Model(model).Count(&n).Error)
	return n
}

func (e *testEnv) item(t *testing.T, sku string) models.Item {
	t.Helper()
	var row models.Item
	require.NoError(t, e.client.DB().Where("sku = ?", sku).Take(&row).Error)
	return row
}

// assertCountersMatchRows compares every denormalised counter with a live count.
func (e *testEnv) assertCountersMatchRows(t *testing.T) {
	t.Helper()
	conn := e.client.DB()

	var brands []models.Brand
	require.NoError(t, conn.Find(&brands).Error)
	for _, b := range brands {
		var live int64
		require.NoError(t, conn.Model(&models.ProductModel{}).Where("brand_id = ?", b.ID).Count(&live).Error)
		require.EqualValues(t, live, b.ModelsCount, "brand %s models_count", b.Name)
	}

	var productModels []models.ProductModel
	require.NoError(t, conn.Find(&productModels).Error)
	for _, m := range productModels {
		var live int64
		require.NoError(t, conn.Model(&models.Item{}).Where("model_id = ?", m.ID).Count(&live).Error)
		require.EqualValues(t, live, m.ItemsCount, "model %s items_count", m.Name)
	}

	var items []models.Item
	require.NoError(t, conn.Find(&items).Error)
	for _, i := range items {
		var listings, wished int64
		require.NoError(t, conn.Model(&models.Listing{}).Where("item_id = ?", i.ID).Count(&listings).Error)
		require.NoError(t, conn.Model(&models.WishlistItem{}).
			Joins("JOIN listings ON listings.id = wishlist_items.listing_id").
			Where("listings.item_id = ?", i.ID).Count(&wished).Error)
		require.EqualValues(t, listings, i.ListingCount, "item %s listing_count", i.SKU)
		require.EqualValues(t, wished, i.WishlistItemsCount, "item %s wishlist_items_count", i.SKU)
	}
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

func decimalFrom(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
