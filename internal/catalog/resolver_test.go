package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

func TestFindOrCreateFetchesRowCommittedByAnotherWriter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing := &models.Brand{Name: "Nova", IsActive: true}
	require.NoError(t, env.client.DB().Create(existing).Error)

	calls := 0
	err := env.client.WithTx(ctx, func(tx *gorm.DB) error {
		brand, created, err := findOrCreate(ctx, tx,
			func(r *Repository) (*models.Brand, error) {
				calls++
				if calls == 1 {
					// Simulates losing the race: the first read ran before the other commit.
					return nil, gorm.ErrRecordNotFound
				}
				return r.FindBrandByName(ctx, "nova")
			},
			func(sp *gorm.DB) (*models.Brand, error) {
				brand := &models.Brand{Name: "NOVA", IsActive: true}
				return brand, NewRepository(sp).CreateBrand(ctx, brand)
			},
		)
		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, existing.ID, brand.ID)

		// The savepoint rollback leaves the transaction usable.
		return tx.Create(&models.Brand{Name: "Orbit", IsActive: true}).Error
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.EqualValues(t, 2, env.count(t, &models.Brand{}))
}

func TestFindOrCreateReportsConflictWhenRefetchMisses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.client.DB().Create(&models.Brand{Name: "Nova", IsActive: true}).Error)

	err := env.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, _, err := findOrCreate(ctx, tx,
			func(*Repository) (*models.Brand, error) { return nil, gorm.ErrRecordNotFound },
			func(sp *gorm.DB) (*models.Brand, error) {
				brand := &models.Brand{Name: "Nova", IsActive: true}
				return brand, NewRepository(sp).CreateBrand(ctx, brand)
			},
		)
		return err
	})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestResolveHierarchyCreatesThenFinds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := HierarchyInput{BrandName: "Nova", ModelName: "Zero", ItemName: "Nova Zero OG", SKU: "NZ-1", Category: enums.CategorySneaker, Gender: enums.GenderMen}

	var first, second *Hierarchy
	require.NoError(t, env.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		first, err = ResolveHierarchy(ctx, tx, in)
		return err
	}))
	require.NoError(t, env.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		second, err = ResolveHierarchy(ctx, tx, in)
		return err
	}))

	require.True(t, first.BrandCreated && first.ModelCreated && first.ItemCreated)
	require.False(t, second.BrandCreated || second.ModelCreated || second.ItemCreated)
	require.Equal(t, first.Item.ID, second.Item.ID)
	require.Equal(t, 1, second.Brand.ModelsCount)
	require.Equal(t, 1, second.Model.ItemsCount)
	require.True(t, second.Brand.IsActive)
}

func TestResolveHierarchyItemNameTakenBySkuIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Reconcile(ctx, novaInput(), nil)
	require.NoError(t, err)

	input := novaInput()
	input.SKU = "NZ-9"
	_, err = env.svc.Reconcile(ctx, input, nil)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	require.EqualValues(t, 1, env.count(t, &models.Item{}))
	env.assertCountersMatchRows(t)
}

func TestResolveHierarchyKeepsExistingItemModel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Reconcile(ctx, novaInput(), nil)
	require.NoError(t, err)

	// A known SKU resolves to the stored item even when the record names another model.
	input := novaInput()
	input.ModelName = "Zero II"
	res, err := env.svc.Reconcile(ctx, input, nil)
	require.NoError(t, err)
	require.False(t, res.ItemCreated)
	require.True(t, res.ModelCreated)
	require.Equal(t, "Zero", res.Model.Name)
	env.assertCountersMatchRows(t)
}

func TestResolveHierarchyValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	err := env.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := ResolveHierarchy(ctx, tx, HierarchyInput{BrandName: " ", Category: enums.CategorySneaker, Gender: enums.GenderMen})
		return err
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "brandName")
	require.Contains(t, details, "sku")
}
