package trackings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/db/dbtest"
	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/types"
)

func TestLaterFulfillmentOverwritesTracking(t *testing.T) {
	conn := dbtest.Open(t)
	store := dbtest.Store(t, conn, "demo.myshopify.com")
	repo := NewRepository(conn)
	ctx := context.Background()

	first := &models.TrackingRecord{
		OrderID:         77,
		StoreID:         store.ID,
		FulfillmentID:   1,
		Carrier:         "UPS",
		TrackingNumbers: types.StringList{"1Z1"},
		TrackingURLs:    types.StringList{},
		Status:          "success",
		Origin:          &types.Address{City: "Austin"},
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.TrackingRecord{
		OrderID:         77,
		StoreID:         store.ID,
		FulfillmentID:   2,
		Carrier:         "DHL",
		TrackingNumbers: types.StringList{"JD2", "JD3"},
		TrackingURLs:    types.StringList{"https://dhl.example/JD2"},
		Status:          "success",
		ShipmentStatus:  "delivered",
	}
	require.NoError(t, repo.Upsert(ctx, second))

	stored, err := repo.FindByOrder(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.FulfillmentID)
	assert.Equal(t, "DHL", stored.Carrier)
	assert.Equal(t, types.StringList{"JD2", "JD3"}, stored.TrackingNumbers)
	assert.Equal(t, "delivered", stored.ShipmentStatus)
	assert.Nil(t, stored.Origin)

	var count int64
	require.NoError(t, conn.Model(&models.TrackingRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertAllKeepsLastPerOrder(t *testing.T) {
	conn := dbtest.Open(t)
	store := dbtest.Store(t, conn, "demo.myshopify.com")
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.UpsertAll(ctx, []models.TrackingRecord{
		{OrderID: 1, StoreID: store.ID, Carrier: "UPS"},
		{OrderID: 2, StoreID: store.ID, Carrier: "USPS"},
		{OrderID: 1, StoreID: store.ID, Carrier: "FedEx"},
	}))

	stored, err := repo.FindByOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "FedEx", stored.Carrier)

	_, err = repo.FindByOrder(ctx, 3)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
