package wishlist

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
	"github.com/soledrop/soledrop-backend/pkg/pagination"
)

func setup(t *testing.T) (*db.Client, Service) {
	t.Helper()
	client, err := db.OpenSQLite(db.MemoryDSN("wishlist_" + strings.ReplaceAll(uuid.NewString(), "-", "")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, models.AutoMigrate(client.DB()))

	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(client.DB()),
		Tx:        client,
		TxOptions: db.TxOptions{MaxWait: time.Second, Timeout: 5 * time.Second},
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return client, svc
}

func seedListing(t *testing.T, client *db.Client, sku string) *models.Listing {
	t.Helper()
	conn := client.DB()
	brand := &models.Brand{Name: "Brand " + sku, IsActive: true}
	require.NoError(t, conn.Create(brand).Error)
	model := &models.ProductModel{BrandID: brand.ID, Name: "Model", IsActive: true}
	require.NoError(t, conn.Create(model).Error)
	item := &models.Item{ModelID: model.ID, Name: "Item " + sku, SKU: sku, Category: enums.CategorySneaker, Gender: enums.GenderMen, IsActive: true, ListingCount: 1}
	require.NoError(t, conn.Create(item).Error)
	listing := &models.Listing{ItemID: item.ID, IsActive: true}
	require.NoError(t, conn.Create(listing).Error)
	return listing
}

func wishlistCount(t *testing.T, client *db.Client, itemID uuid.UUID) int {
	t.Helper()
	var item models.Item
	require.NoError(t, client.DB().First(&item, "id = ?", itemID).Error)
	return item.WishlistItemsCount
}

func TestAddIsIdempotentAndCountsOnce(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()
	listing := seedListing(t, client, "NZ-1")
	user, other := uuid.New(), uuid.New()

	require.NoError(t, svc.Add(ctx, user, listing.ID))
	require.NoError(t, svc.Add(ctx, user, listing.ID))
	require.Equal(t, 1, wishlistCount(t, client, listing.ItemID))

	require.NoError(t, svc.Add(ctx, other, listing.ID))
	require.Equal(t, 2, wishlistCount(t, client, listing.ItemID))

	require.NoError(t, svc.Remove(ctx, user, listing.ID))
	require.NoError(t, svc.Remove(ctx, user, listing.ID))
	require.Equal(t, 1, wishlistCount(t, client, listing.ItemID))
}

func TestAddUnknownListing(t *testing.T) {
	_, svc := setup(t)
	err := svc.Add(context.Background(), uuid.New(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	err = svc.Add(context.Background(), uuid.Nil, uuid.New())
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRemoveUnknownListingIsNoop(t *testing.T) {
	_, svc := setup(t)
	require.NoError(t, svc.Remove(context.Background(), uuid.New(), uuid.New()))
}

func TestListReturnsListingGraphs(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()
	user := uuid.New()
	first := seedListing(t, client, "NZ-1")
	second := seedListing(t, client, "NZ-2")
	require.NoError(t, svc.Add(ctx, user, first.ID))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.Add(ctx, user, second.ID))
	require.NoError(t, svc.Add(ctx, uuid.New(), first.ID))

	page, err := svc.List(ctx, user, pagination.Params{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Data, 1)
	require.Equal(t, second.ID, page.Data[0].Listing.ID)
	require.Equal(t, "NZ-2", page.Data[0].Listing.Item.SKU)
	require.NotNil(t, page.Data[0].Listing.Brand)
}

func TestLockListingReturnsOwningItem(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()
	listing := seedListing(t, client, "NZ-1")

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		itemID, err := NewRepository(client.DB()).WithTx(tx).LockListing(ctx, listing.ID)
		require.NoError(t, err)
		require.Equal(t, listing.ItemID, itemID)
		return nil
	})
	require.NoError(t, err)
}

func TestAddAfterListingDeleteIsNotFound(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()
	listing := seedListing(t, client, "NZ-1")
	require.NoError(t, client.DB().Delete(&models.Listing{}, "id = ?", listing.ID).Error)

	err := svc.Add(ctx, uuid.New(), listing.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	require.Zero(t, wishlistCount(t, client, listing.ItemID))
}
