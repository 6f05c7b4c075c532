package repo

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesAndTopProducts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, db := newRepo(t)
	u := testutil.SeedUser(t, db, "a@x.io", "")
	pen := testutil.SeedProduct(t, db, "Pen", "1.25", 100, nil)
	ink := testutil.SeedProduct(t, db, "Ink", "4.00", 100, nil)

	_, err := r.CreateOrder(ctx, u.ID, []OrderLine{{ProductID: pen.ID, Quantity: 4}})
	require.NoError(t, err)
	_, err = r.CreateOrder(ctx, u.ID, []OrderLine{{ProductID: pen.ID, Quantity: 2}, {ProductID: ink.ID, Quantity: 1}})
	require.NoError(t, err)
	old, err := r.CreateOrder(ctx, u.ID, []OrderLine{{ProductID: ink.ID, Quantity: 10}})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().UTC().AddDate(0, 0, -30)).Error)

	all, err := r.SalesSummary(ctx, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.OrdersCount)
	assert.True(t, all.TotalRevenue.Equal(decimal.RequireFromString("51.50")), all.TotalRevenue.String())

	from := time.Now().UTC().AddDate(0, 0, -1)
	recent, err := r.SalesSummary(ctx, &from, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, recent.OrdersCount)
	assert.True(t, recent.TotalRevenue.Equal(decimal.RequireFromString("11.50")))

	top, err := r.TopProducts(ctx, 5, nil, nil)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Ink", top[0].Name)
	assert.EqualValues(t, 11, top[0].TotalUnits)

	top, err = r.TopProducts(ctx, 1, &from, nil)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, pen.ID, top[0].ID)
	assert.EqualValues(t, 6, top[0].TotalUnits)
	assert.True(t, top[0].Revenue.Equal(decimal.RequireFromString("7.50")))
}

func TestRecommendationQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, db := newRepo(t)
	u := testutil.SeedUser(t, db, "a@x.io", "")
	books := testutil.SeedCategory(t, db, "Books")
	toys := testutil.SeedCategory(t, db, "Toys")
	novel := testutil.SeedProduct(t, db, "Novel", "5.00", 10, &books.ID)
	atlas := testutil.SeedProduct(t, db, "Atlas", "9.00", 10, &books.ID)
	testutil.SeedProduct(t, db, "Out of print", "9.00", 0, &books.ID)
	ball := testutil.SeedProduct(t, db, "Ball", "2.00", 10, &toys.ID)

	cats, err := r.TopOrderedCategories(ctx, u.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, cats)

	_, err = r.AddToCart(ctx, u.ID, ball.ID, 1)
	require.NoError(t, err)
	cats, err = r.CartCategories(ctx, u.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{toys.ID}, cats)

	_, err = r.CreateOrder(ctx, u.ID, []OrderLine{{ProductID: atlas.ID, Quantity: 3}})
	require.NoError(t, err)
	cats, err = r.TopOrderedCategories(ctx, u.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{books.ID}, cats)

	ranked, err := r.PopularInCategories(ctx, cats, 12)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, atlas.ID, ranked[0].ID)
	assert.EqualValues(t, 3, ranked[0].SoldQty)

	newest, err := r.NewestInStock(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, newest, 3)

	base, same, err := r.SameCategory(ctx, novel.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, novel.ID, base.ID)
	require.Len(t, same, 1)
	assert.Equal(t, atlas.ID, same[0].ID)

	_, _, err = r.SameCategory(ctx, 999, 8)
	assert.True(t, IsNotFound(err))
}
