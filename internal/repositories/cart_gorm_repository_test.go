package repositories_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

func TestGORMCartRepository_GetOrCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	user := seedUser(t, db, "alice")

	first, err := repo.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, user.ID, first.UserID)
	assert.Empty(t, first.Items)

	var count int64
	require.NoError(t, db.Model(&models.Cart{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGORMCartRepository_GetOrCreateConcurrent(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	user := seedUser(t, db, "alice")

	const callers = 10
	ids := make([]uint, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := repo.GetOrCreate(ctx, user.ID)
			errs[i] = err
			if err == nil {
				ids[i] = cart.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGORMCartRepository_AddOrIncrementItem(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	user := seedUser(t, db, "alice")
	product := seedProduct(t, db, "Lamp", 2)

	cart, err := repo.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)

	first, err := repo.AddOrIncrementItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quantity)
	require.NotNil(t, first.Product)
	assert.Equal(t, "Lamp", first.Product.Name)

	second, err := repo.AddOrIncrementItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Quantity)

	third, err := repo.AddOrIncrementItem(ctx, cart.ID, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, third.Quantity)

	reloaded, err := repo.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 5, reloaded.TotalItems())
}

func TestGORMCartRepository_AddOrIncrementItemConcurrent(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	user := seedUser(t, db, "alice")
	product := seedProduct(t, db, "Lamp", 2)

	cart, err := repo.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)

	const clicks = 8
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddOrIncrementItem(ctx, cart.ID, product.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var items []models.CartItem
	require.NoError(t, db.Where("cart_id = ?", cart.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, clicks, items[0].Quantity)
}

func TestGORMCartRepository_ItemOperationsAreOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	alice := seedUser(t, db, "alice")
	mallory := seedUser(t, db, "mallory")
	product := seedProduct(t, db, "Lamp", 2)

	cart, err := repo.GetOrCreate(ctx, alice.ID)
	require.NoError(t, err)
	item, err := repo.AddOrIncrementItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = repo.GetOrCreate(ctx, mallory.ID)
	require.NoError(t, err)

	_, err = repo.GetItem(ctx, mallory.ID, item.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = repo.SetItemQuantity(ctx, mallory.ID, item.ID, 10)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = repo.RemoveItem(ctx, mallory.ID, item.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	untouched, err := repo.GetItem(ctx, alice.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, untouched.Quantity)
}

func TestGORMCartRepository_SetAndRemoveItem(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	user := seedUser(t, db, "alice")
	product := seedProduct(t, db, "Lamp", 2)

	cart, err := repo.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	item, err := repo.AddOrIncrementItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)

	updated, err := repo.SetItemQuantity(ctx, user.ID, item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	require.NotNil(t, updated.Product)

	removed, err := repo.RemoveItem(ctx, user.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, removed.ID)
	assert.Equal(t, product.ID, removed.ProductID)

	_, err = repo.GetItem(ctx, user.ID, item.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = repo.RemoveItem(ctx, user.ID, item.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	empty, err := repo.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, cart.ID, empty.ID)
}
