package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

func novaInput(variants ...VariantInput) ReconcileInput {
	return ReconcileInput{
		BrandName: "Nova",
		ModelName: "Zero",
		ItemName:  "Nova Zero OG",
		SKU:       "NZ-1",
		Category:  enums.CategorySneaker,
		Gender:    enums.GenderUnisex,
		IsActive:  boolPtr(true),
		Variants:  variants,
	}
}

func TestReconcileNovaZeroScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eu42 := env.sizing(t, enums.SizingSystemEU, "42")
	eu43 := env.sizing(t, enums.SizingSystemEU, "43")

	first, err := env.svc.Reconcile(ctx, novaInput(
		VariantInput{SizingID: eu42, Condition: enums.ConditionNew, PriceCents: 12000, Stock: 2},
	), nil)
	require.NoError(t, err)
	require.True(t, first.BrandCreated)
	require.True(t, first.ModelCreated)
	require.True(t, first.ItemCreated)
	require.True(t, first.ListingCreated)
	require.Len(t, first.Listing.Variants, 1)
	require.Equal(t, "120.00", first.Listing.Variants[0].Price)
	require.Nil(t, first.Photos)

	second, err := env.svc.Reconcile(ctx, novaInput(
		VariantInput{SizingID: eu43, Condition: enums.ConditionNew, PriceCents: 12000, Stock: 1},
	), nil)
	require.NoError(t, err)
	require.False(t, second.BrandCreated)
	require.False(t, second.ModelCreated)
	require.False(t, second.ItemCreated)
	require.False(t, second.ListingCreated)
	require.Equal(t, first.Listing.ID, second.Listing.ID)
	require.Len(t, second.Listing.Variants, 2)
	require.Equal(t, 1, second.Item.ListingCount)
	require.Equal(t, 1, second.Brand.ModelsCount)
	require.Equal(t, 1, second.Model.ItemsCount)

	require.EqualValues(t, 1, env.count(t, &models.Listing{}))
	require.EqualValues(t, 2, env.count(t, &models.ListingVariant{}))
	require.EqualValues(t, 2, env.count(t, &models.OutboxEvent{}))
	require.Equal(t, []string{"ok", "ok"}, env.metrics.outcomes)
	env.assertCountersMatchRows(t)
}

func TestReconcileIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eu42 := env.sizing(t, enums.SizingSystemEU, "42")
	input := novaInput(VariantInput{SizingID: eu42, Condition: enums.ConditionNew, PriceCents: 12000, Stock: 2})

	for i := 0; i < 3; i++ {
		_, err := env.svc.Reconcile(ctx, input, nil)
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, env.count(t, &models.Brand{}))
	require.EqualValues(t, 1, env.count(t, &models.ProductModel{}))
	require.EqualValues(t, 1, env.count(t, &models.Item{}))
	require.EqualValues(t, 1, env.count(t, &models.Listing{}))
	require.EqualValues(t, 1, env.count(t, &models.ListingVariant{}))
	env.assertCountersMatchRows(t)
}

func TestReconcileMatchesBrandAndModelIgnoringCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Reconcile(ctx, novaInput(), nil)
	require.NoError(t, err)

	input := novaInput()
	input.BrandName = "  NOVA "
	input.ModelName = "zero"
	input.SKU = "NZ-2"
	input.ItemName = "Nova Zero Low"
	res, err := env.svc.Reconcile(ctx, input, nil)
	require.NoError(t, err)
	require.False(t, res.BrandCreated)
	require.False(t, res.ModelCreated)
	require.True(t, res.ItemCreated)
	require.Equal(t, 2, res.Model.ItemsCount)
	require.Equal(t, "Nova", res.Brand.Name)
}

func TestReconcileModelNameIsScopedToBrand(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Reconcile(ctx, novaInput(), nil)
	require.NoError(t, err)

	input := novaInput()
	input.BrandName = "Orbit"
	input.SKU = "OZ-1"
	input.ItemName = "Orbit Zero"
	res, err := env.svc.Reconcile(ctx, input, nil)
	require.NoError(t, err)
	require.True(t, res.BrandCreated)
	require.True(t, res.ModelCreated)
	require.EqualValues(t, 2, env.count(t, &models.ProductModel{}))
}

func TestReconcileConcurrentCallsConverge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eu42 := env.sizing(t, enums.SizingSystemEU, "42")
	input := novaInput(VariantInput{SizingID: eu42, Condition: enums.ConditionNew, PriceCents: 12000, Stock: 2})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Reconcile(ctx, input, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, env.count(t, &models.Brand{}))
	require.EqualValues(t, 1, env.count(t, &models.ProductModel{}))
	require.EqualValues(t, 1, env.count(t, &models.Item{}))
	require.EqualValues(t, 1, env.count(t, &models.Listing{}))
	require.EqualValues(t, 1, env.count(t, &models.ListingVariant{}))
	env.assertCountersMatchRows(t)
}

func TestReconcileFailureOnFinalVariantLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.client.DB().Exec(`CREATE TRIGGER fail_variant BEFORE INSERT ON listing_variants
		WHEN NEW.stock = 999 BEGIN SELECT RAISE(ABORT, 'boom'); END`).Error)

	eu42 := env.sizing(t, enums.SizingSystemEU, "42")
	eu43 := env.sizing(t, enums.SizingSystemEU, "43")
	_, err := env.svc.Reconcile(context.Background(), novaInput(
		VariantInput{SizingID: eu42, Condition: enums.ConditionNew, PriceCents: 12000, Stock: 2},
		VariantInput{SizingID: eu43, Condition: enums.ConditionNew, PriceCents: 12000, Stock: 999},
	), nil)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))

	for _, model := range []any{&models.Brand{}, &models.ProductModel{}, &models.Item{}, &models.Listing{}, &models.ListingVariant{}, &models.OutboxEvent{}} {
		require.Zero(t, env.count(t, model), "%T", model)
	}
	require.Equal(t, []string{string(pkgerrors.CodeInternal)}, env.metrics.outcomes)
}

func TestReconcileRejectsInvalidInputBeforeWriting(t *testing.T) {
	env := newTestEnv(t)
	eu42 := env.sizing(t, enums.SizingSystemEU, "42")

	cases := map[string]func(*ReconcileInput){
		"category": func(in *ReconcileInput) { in.Category = "boots" },
		"gender":   func(in *ReconcileInput) { in.Gender = "" },
		"sku":      func(in *ReconcileInput) { in.SKU = "  " },
		"condition": func(in *ReconcileInput) {
			in.Variants = []VariantInput{{SizingID: eu42, Condition: "mint", PriceCents: 1, Stock: 1}}
		},
		"negative price": func(in *ReconcileInput) {
			in.Variants = []VariantInput{{SizingID: eu42, Condition: enums.ConditionNew, PriceCents: -1, Stock: 1}}
		},
		"duplicate pair": func(in *ReconcileInput) {
			v := VariantInput{SizingID: eu42, Condition: enums.ConditionNew, PriceCents: 1, Stock: 1}
			in.Variants = []VariantInput{v, v}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := novaInput()
			mutate(&input)
			_, err := env.svc.Reconcile(context.Background(), input, nil)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
	require.Zero(t, env.count(t, &models.Brand{}))
}

func TestReconcileUnknownSizingIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	input := novaInput(VariantInput{SizingID: [16]byte{1}, Condition: enums.ConditionNew, PriceCents: 100, Stock: 1})
	_, err := env.svc.Reconcile(context.Background(), input, nil)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	require.Zero(t, env.count(t, &models.Brand{}))
}

func TestReconcileExpiredDeadlineIsTransactionTimeout(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := env.svc.Reconcile(ctx, novaInput(), nil)
	require.Equal(t, pkgerrors.CodeTxTimeout, pkgerrors.CodeOf(err))
	require.Zero(t, env.count(t, &models.Brand{}))
}

func TestReconcileAttachesPhotosAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	uploads := []media.Upload{{FileName: "a.jpg", Data: []byte{1}}, {FileName: "b.jpg", Data: []byte{2}}}

	res, err := env.svc.Reconcile(context.Background(), novaInput(), uploads)
	require.NoError(t, err)
	require.NotNil(t, res.Photos)
	require.Len(t, res.Photos.Attached, 2)
	require.Equal(t, 1, env.media.calls)
}

func TestReconcilePhotoFailureKeepsCatalogWrite(t *testing.T) {
	env := newTestEnv(t)
	env.media.err = pkgerrors.Wrap(pkgerrors.CodeUploadFailure, errors.New("bucket offline"), "attach")
	uploads := []media.Upload{{FileName: "a.jpg"}, {FileName: "b.jpg"}}

	res, err := env.svc.Reconcile(context.Background(), novaInput(), uploads)
	require.NoError(t, err)
	require.True(t, res.ListingCreated)
	require.Empty(t, res.Photos.Attached)
	require.Len(t, res.Photos.Failed, 2)
	require.Equal(t, "b.jpg", res.Photos.Failed[1].FileName)
	require.EqualValues(t, 1, env.count(t, &models.Listing{}))
}

func TestReconcileManySkusUnderOneModel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		input := novaInput()
		input.SKU = fmt.Sprintf("NZ-%d", i)
		input.ItemName = fmt.Sprintf("Nova Zero %d", i)
		_, err := env.svc.Reconcile(ctx, input, nil)
		require.NoError(t, err)
	}
	env.assertCountersMatchRows(t)
	var model models.ProductModel
	require.NoError(t, env.client.DB().Take(&model).Error)
	require.Equal(t, 5, model.ItemsCount)
}
