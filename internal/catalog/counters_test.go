package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
)

func (e *testEnv) wish(t *testing.T, listingID, itemID uuid.UUID) {
	t.Helper()
	require.NoError(t, e.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&models.WishlistItem{UserID: uuid.New(), ListingID: listingID}).Error; err != nil {
			return err
		}
		return AdjustWishlistCount(context.Background(), tx, itemID, 1)
	}))
}

func TestCountersStayConsistentUnderRandomOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	eu42 := env.sizing(t, enums.SizingSystemEU, "42")
	brands := []string{"Nova", "Orbit"}
	modelNames := []string{"Zero", "One"}

	for step := 0; step < 60; step++ {
		switch op := rng.Intn(6); op {
		case 0, 1, 2:
			n := rng.Intn(6)
			input := novaInput(VariantInput{SizingID: eu42, Condition: enums.ConditionNew, PriceCents: int64(1000 + step), Stock: 1})
			input.BrandName = brands[n%len(brands)]
			input.ModelName = modelNames[(n/2)%len(modelNames)]
			input.SKU = fmt.Sprintf("SKU-%d", n)
			input.ItemName = fmt.Sprintf("Item %d", n)
			_, err := env.svc.Reconcile(ctx, input, nil)
			require.NoError(t, err, "step %d", step)
		case 3:
			var listings []models.Listing
			require.NoError(t, env.client.DB().Find(&listings).Error)
			if len(listings) > 0 {
				l := listings[rng.Intn(len(listings))]
				env.wish(t, l.ID, l.ItemID)
			}
		case 4:
			var listings []models.Listing
			require.NoError(t, env.client.DB().Find(&listings).Error)
			if len(listings) > 0 {
				require.NoError(t, env.svc.DeleteListing(ctx, listings[rng.Intn(len(listings))].ID), "step %d", step)
			}
		case 5:
			var items []models.Item
			require.NoError(t, env.client.DB().Find(&items).Error)
			if len(items) > 0 {
				require.NoError(t, env.svc.DeleteItem(ctx, items[rng.Intn(len(items))].ID), "step %d", step)
			}
		}
		env.assertCountersMatchRows(t)
	}

	res, err := env.svc.Recount(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Total)
}

func TestRecountRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.svc.Reconcile(ctx, novaInput(), nil)
	require.NoError(t, err)
	env.wish(t, res.Listing.ID, res.Item.ID)

	conn := env.client.DB()
	require.NoError(t, conn.Exec("UPDATE brands SET models_count = 7").Error)
	require.NoError(t, conn.Exec("UPDATE items SET listing_count = -2, wishlist_items_count = 0").Error)

	fixed, err := env.svc.Recount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, fixed.Total)
	require.EqualValues(t, 1, fixed.Fixed["brands.models_count"])
	require.EqualValues(t, 0, fixed.Fixed["product_models.items_count"])
	require.EqualValues(t, 1, fixed.Fixed["items.listing_count"])
	require.EqualValues(t, 1, fixed.Fixed["items.wishlist_items_count"])
	env.assertCountersMatchRows(t)
}

func TestAdjustCounterIsNotClamped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	brand := &models.Brand{Name: "Nova", IsActive: true}
	require.NoError(t, env.client.DB().Create(brand).Error)

	require.NoError(t, env.client.WithTx(ctx, func(tx *gorm.DB) error {
		return adjustCounter(ctx, tx, brandModelsCount, brand.ID, -1)
	}))
	var stored models.Brand
	require.NoError(t, env.client.DB().First(&stored, "id = ?", brand.ID).Error)
	require.Equal(t, -1, stored.ModelsCount)
}
