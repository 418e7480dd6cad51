package media

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
)

type memoryStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	failPut  func(key string) bool
	deleted  []string
	failDels bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Put(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if m.failPut != nil && m.failPut(key) {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if m.failDels {
		return errors.New("delete refused")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type fixture struct {
	client  *db.Client
	store   *memoryStore
	svc     Service
	listing uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, err := db.OpenSQLite(db.MemoryDSN("media_" + strings.ReplaceAll(uuid.NewString(), "-", "")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, models.AutoMigrate(client.DB()))

	store := newMemoryStore()
	logg := logger.Nop()
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(client.DB()),
		Store:     store,
		Tx:        client,
		TxOptions: db.TxOptions{MaxWait: time.Second, Timeout: 5 * time.Second},
		Outbox:    outbox.NewService(outbox.NewRepository(client.DB()), logg),
		Logger:    logg,
		Normalize: NormalizeOptions{MaxWidth: 800, MaxHeight: 800, Quality: 80},
		MaxFiles:  10,
		MaxBytes:  5 << 20,
	})
	require.NoError(t, err)

	return &fixture{client: client, store: store, svc: svc, listing: seedListing(t, client)}
}

func seedListing(t *testing.T, client *db.Client) uuid.UUID {
	t.Helper()
	conn := client.DB()
	brand := &models.Brand{Name: "Nova", IsActive: true}
	require.NoError(t, conn.Create(brand).Error)
	model := &models.ProductModel{BrandID: brand.ID, Name: "Zero", IsActive: true}
	require.NoError(t, conn.Create(model).Error)
	item := &models.Item{ModelID: model.ID, Name: "Nova Zero", SKU: "NZ-" + uuid.NewString()[:8], Category: enums.CategorySneaker, Gender: enums.GenderUnisex, IsActive: true}
	require.NoError(t, conn.Create(item).Error)
	listing := &models.Listing{ItemID: item.ID, IsActive: true}
	require.NoError(t, conn.Create(listing).Error)
	return listing.ID
}

func encodeImage(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func (f *fixture) photos(t *testing.T) []models.ListingPhoto {
	t.Helper()
	var rows []models.ListingPhoto
	require.NoError(t, f.client.DB().Where("listing_id = ?", f.listing).Order("position ASC").Find(&rows).Error)
	return rows
}

func mainCount(rows []models.ListingPhoto) int {
	n := 0
	for _, r := range rows {
		if r.IsMain {
			n++
		}
	}
	return n
}

func TestAttachPhotosOrdersAndMarksFirstMain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.AttachPhotos(ctx, f.listing, []Upload{
		{FileName: "front.jpg", Data: encodeImage(t, 64, 64, imaging.JPEG)},
		{FileName: "side.png", Data: encodeImage(t, 64, 64, imaging.PNG)},
	})
	require.NoError(t, err)
	require.Len(t, report.Attached, 2)
	require.Empty(t, report.Failed)
	require.NoError(t, report.Err())

	require.True(t, report.Attached[0].IsMain)
	require.False(t, report.Attached[1].IsMain)
	require.Equal(t, 0, report.Attached[0].Order)
	require.Equal(t, 1, report.Attached[1].Order)

	report, err = f.svc.AttachPhotos(ctx, f.listing, []Upload{
		{FileName: "back.jpg", Data: encodeImage(t, 32, 32, imaging.JPEG)},
	})
	require.NoError(t, err)
	require.Len(t, report.Attached, 1)
	require.Equal(t, 2, report.Attached[0].Order)
	require.False(t, report.Attached[0].IsMain)

	rows := f.photos(t)
	require.Len(t, rows, 3)
	require.Equal(t, 1, mainCount(rows))
	for _, row := range rows {
		require.True(t, strings.HasPrefix(row.StorageKey, "listings/"+f.listing.String()+"/"))
		require.Contains(t, f.store.objects, row.StorageKey)
	}
	require.Equal(t, "image/png", f.store.types[rows[1].StorageKey])
	require.Equal(t, "image/jpeg", f.store.types[rows[0].StorageKey])

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPhotosAttached).Count(&events).Error)
	require.EqualValues(t, 2, events)
}

func TestAttachPhotosReportsPerFileFailures(t *testing.T) {
	f := newFixture(t)
	f.store.failPut = func(key string) bool { return strings.Contains(key, "broken-bucket") }

	report, err := f.svc.AttachPhotos(context.Background(), f.listing, []Upload{
		{FileName: "notes.txt", Data: []byte("definitely not an image")},
		{FileName: "broken-bucket.jpg", Data: encodeImage(t, 16, 16, imaging.JPEG)},
		{FileName: "ok.jpg", Data: encodeImage(t, 16, 16, imaging.JPEG)},
		{FileName: "empty.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, report.Attached, 1)
	require.Len(t, report.Failed, 3)
	require.Equal(t, 0, report.Failed[0].Index)
	require.Equal(t, "broken-bucket.jpg", report.Failed[1].FileName)
	require.Equal(t, 3, report.Failed[2].Index)

	// Position keeps the batch index even when earlier files failed.
	require.Equal(t, 2, report.Attached[0].Order)
	require.True(t, report.Attached[0].IsMain)

	combined := report.Err()
	require.Error(t, combined)
	require.Equal(t, pkgerrors.CodeUploadFailure, pkgerrors.CodeOf(combined))
	require.Len(t, f.store.objects, 1)
}

func TestAttachPhotosUnknownListing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AttachPhotos(context.Background(), uuid.New(), []Upload{
		{FileName: "a.jpg", Data: encodeImage(t, 8, 8, imaging.JPEG)},
	})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestAttachPhotosRejectsOversizedBatch(t *testing.T) {
	f := newFixture(t)
	uploads := make([]Upload, 11)
	_, err := f.svc.AttachPhotos(context.Background(), f.listing, uploads)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestAttachPhotosResizesLargeImages(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.AttachPhotos(context.Background(), f.listing, []Upload{
		{FileName: "wide.png", Data: encodeImage(t, 1600, 400, imaging.PNG)},
	})
	require.NoError(t, err)
	require.Len(t, report.Attached, 1)

	rows := f.photos(t)
	stored := f.store.objects[rows[0].StorageKey]
	img, err := imaging.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	require.Equal(t, 800, img.Bounds().Dx())
	require.Equal(t, 200, img.Bounds().Dy())
}

func TestDeletePhotoPromotesLowestOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.AttachPhotos(ctx, f.listing, []Upload{
		{FileName: "1.jpg", Data: encodeImage(t, 8, 8, imaging.JPEG)},
		{FileName: "2.jpg", Data: encodeImage(t, 8, 8, imaging.JPEG)},
		{FileName: "3.jpg", Data: encodeImage(t, 8, 8, imaging.JPEG)},
	})
	require.NoError(t, err)
	mainID := report.Attached[0].ID

	require.NoError(t, f.svc.DeletePhoto(ctx, f.listing, mainID))
	rows := f.photos(t)
	require.Len(t, rows, 2)
	require.True(t, rows[0].IsMain)
	require.Equal(t, report.Attached[1].ID, rows[0].ID)
	require.Len(t, f.store.deleted, 1)

	err = f.svc.DeletePhoto(ctx, f.listing, mainID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestDeletePhotoIgnoresObjectStoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.AttachPhotos(ctx, f.listing, []Upload{{FileName: "1.jpg", Data: encodeImage(t, 8, 8, imaging.JPEG)}})
	require.NoError(t, err)

	f.store.failDels = true
	require.NoError(t, f.svc.DeletePhoto(ctx, f.listing, report.Attached[0].ID))
	require.Empty(t, f.photos(t))
}

func TestSetMainPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.AttachPhotos(ctx, f.listing, []Upload{
		{FileName: "1.jpg", Data: encodeImage(t, 8, 8, imaging.JPEG)},
		{FileName: "2.jpg", Data: encodeImage(t, 8, 8, imaging.JPEG)},
	})
	require.NoError(t, err)

	photos, err := f.svc.SetMainPhoto(ctx, f.listing, report.Attached[1].ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	require.False(t, photos[0].IsMain)
	require.True(t, photos[1].IsMain)

	_, err = f.svc.SetMainPhoto(ctx, uuid.New(), report.Attached[1].ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestMainPhotoInvariantAcrossRandomSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	jpeg := encodeImage(t, 8, 8, imaging.JPEG)

	for step := 0; step < 40; step++ {
		rows := f.photos(t)
		switch op := rng.Intn(3); {
		case op == 0 || len(rows) == 0:
			n := rng.Intn(3) + 1
			uploads := make([]Upload, n)
			for i := range uploads {
				uploads[i] = Upload{FileName: "p.jpg", Data: jpeg}
			}
			_, err := f.svc.AttachPhotos(ctx, f.listing, uploads)
			require.NoError(t, err)
		case op == 1:
			require.NoError(t, f.svc.DeletePhoto(ctx, f.listing, rows[rng.Intn(len(rows))].ID))
		default:
			_, err := f.svc.SetMainPhoto(ctx, f.listing, rows[rng.Intn(len(rows))].ID)
			require.NoError(t, err)
		}

		rows = f.photos(t)
		if len(rows) == 0 {
			continue
		}
		require.Equal(t, 1, mainCount(rows), "step %d", step)
	}
}

func TestDeleteObjectsCombinesFailures(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.DeleteObjects(context.Background(), []string{"a", "", "b"}))
	require.Equal(t, []string{"a", "b"}, f.store.deleted)

	f.store.failDels = true
	err := f.svc.DeleteObjects(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "delete refused")
}

func TestBuildObjectKey(t *testing.T) {
	listingID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	cases := map[string]string{
		"front view.webp":    "listings/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222-front-view.jpg",
		`..\..\etc\pass.jpg`: "listings/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222-pass.jpg",
		"":                   "listings/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222.jpg",
	}
	for name, want := range cases {
		require.Equal(t, want, buildObjectKey(listingID, id, name, ".jpg"), name)
	}
}

func TestSniffImage(t *testing.T) {
	_, format, ok := sniffImage(encodeImage(t, 4, 4, imaging.PNG))
	require.True(t, ok)
	require.Equal(t, formatPNG, format)

	detected, _, ok := sniffImage([]byte("%PDF-1.4 fake"))
	require.False(t, ok)
	require.Equal(t, "application/pdf", detected)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
