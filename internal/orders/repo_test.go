package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercive/commerce-sync/pkg/db/dbtest"
	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/types"
)

func sampleOrder(store models.Store, orderID int64, subtotal string) models.Order {
	amount := decimal.RequireFromString(subtotal)
	return models.Order{
		OrderID:           orderID,
		StoreID:           store.ID,
		OrderNumber:       "1077",
		Currency:          "USD",
		ReferenceCurrency: "USD",
		Subtotal:          amount,
		SubtotalRef:       amount,
		Total:             amount,
		FinancialStatus:   "paid",
		FulfillmentStatus: "unfulfilled",
		LineItems: types.LineItemSnapshots{
			{LineItemID: 1, ProductID: 10, Quantity: 1, Price: amount},
		},
		ShippingAddress: &types.Address{City: "Austin", CountryCode: "US"},
	}
}

func TestUpsertOrderTwiceKeepsOneRowWithLatestValues(t *testing.T) {
	conn := dbtest.Open(t)
	store := dbtest.Store(t, conn, "demo.myshopify.com")
	repo := NewRepository(conn)
	ctx := context.Background()

	first := sampleOrder(store, 77, "10.00")
	require.NoError(t, repo.UpsertOrder(ctx, &first))

	second := sampleOrder(store, 77, "12.50")
	second.FinancialStatus = "refunded"
	require.NoError(t, repo.UpsertOrder(ctx, &second))

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindOrder(ctx, store.ID, 77)
	require.NoError(t, err)
	assert.True(t, stored.Subtotal.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "refunded", stored.FinancialStatus)
	require.Len(t, stored.LineItems, 1)
	require.NotNil(t, stored.ShippingAddress)
	assert.Equal(t, "Austin", stored.ShippingAddress.City)
}

func TestUpsertOrderScopesNaturalKeyByStore(t *testing.T) {
	conn := dbtest.Open(t)
	a := dbtest.Store(t, conn, "a.myshopify.com")
	b := dbtest.Store(t, conn, "b.myshopify.com")
	repo := NewRepository(conn)
	ctx := context.Background()

	orderA := sampleOrder(a, 5, "1.00")
	orderB := sampleOrder(b, 5, "2.00")
	require.NoError(t, repo.UpsertOrders(ctx, []models.Order{orderA, orderB}))

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestUpsertOrdersLastSightingWins(t *testing.T) {
	conn := dbtest.Open(t)
	store := dbtest.Store(t, conn, "demo.myshopify.com")
	repo := NewRepository(conn)
	ctx := context.Background()

	batch := []models.Order{
		sampleOrder(store, 1, "1.00"),
		sampleOrder(store, 2, "2.00"),
		sampleOrder(store, 1, "3.00"),
	}
	require.NoError(t, repo.UpsertOrders(ctx, batch))

	stored, err := repo.FindOrder(ctx, store.ID, 1)
	require.NoError(t, err)
	assert.True(t, stored.Subtotal.Equal(decimal.RequireFromString("3.00")))
}

func TestUpsertLineItemsOnePerOrderAndProduct(t *testing.T) {
	conn := dbtest.Open(t)
	store := dbtest.Store(t, conn, "demo.myshopify.com")
	repo := NewRepository(conn)
	ctx := context.Background()

	items := []models.LineItem{
		{OrderID: 77, ProductID: 10, StoreID: store.ID, LineItemID: 1, Quantity: 1, Price: decimal.NewFromInt(5)},
		{OrderID: 77, ProductID: 11, StoreID: store.ID, LineItemID: 2, Quantity: 2, Price: decimal.NewFromInt(6)},
		{OrderID: 77, ProductID: 10, StoreID: store.ID, LineItemID: 3, Quantity: 4, Price: decimal.NewFromInt(5)},
	}
	require.NoError(t, repo.UpsertLineItems(ctx, items))

	resent := []models.LineItem{
		{OrderID: 77, ProductID: 11, StoreID: store.ID, LineItemID: 2, Quantity: 9, Price: decimal.NewFromInt(6),
			DiscountAllocations: types.JSONBlob(`[{"amount":"1.00"}]`)},
	}
	require.NoError(t, repo.UpsertLineItems(ctx, resent))

	stored, err := repo.ListLineItems(ctx, 77)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, int64(2), stored[0].LineItemID)
	assert.Equal(t, 9, stored[0].Quantity)
	assert.JSONEq(t, `[{"amount":"1.00"}]`, string(stored[0].DiscountAllocations))
	assert.Equal(t, int64(3), stored[1].LineItemID)
	assert.Equal(t, 4, stored[1].Quantity)
}

func TestSaveWritesOrderAndLineItems(t *testing.T) {
	conn := dbtest.Open(t)
	store := dbtest.Store(t, conn, "demo.myshopify.com")
	repo := NewRepository(conn)
	ctx := context.Background()

	order := sampleOrder(store, 90, "8.00")
	items := []models.LineItem{{OrderID: 90, ProductID: 10, StoreID: store.ID, LineItemID: 1, Quantity: 1, Price: decimal.NewFromInt(8)}}
	require.NoError(t, Save(ctx, repo, &order, items))

	stored, err := repo.ListLineItems(ctx, 90)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Error(t, Save(ctx, repo, nil, nil))
}
