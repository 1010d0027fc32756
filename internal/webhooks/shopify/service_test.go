package shopifywebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/internal/backorders"
	"github.com/commercive/commerce-sync/internal/inventory"
	"github.com/commercive/commerce-sync/internal/normalize"
	"github.com/commercive/commerce-sync/internal/orders"
	"github.com/commercive/commerce-sync/internal/stores"
	"github.com/commercive/commerce-sync/internal/trackings"
	"github.com/commercive/commerce-sync/internal/webhooklog"
	"github.com/commercive/commerce-sync/pkg/db/dbtest"
	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/enums"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/metrics"
	"github.com/commercive/commerce-sync/pkg/pagination"
	"github.com/commercive/commerce-sync/pkg/shopify"
)

type fakePlatform struct {
	mu      sync.Mutex
	items   map[int64]string
	panicOn int64
	calls   int
}

func (f *fakePlatform) InventoryItem(_ context.Context, s shopify.Session, id int64) (*shopify.InventoryItemNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if id == f.panicOn {
		panic("boom")
	}
	if s.AccessToken == "" {
		return nil, errors.New("missing token")
	}
	raw, ok := f.items[id]
	if !ok {
		return nil, shopify.ErrNotFound
	}
	var node shopify.InventoryItemNode
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// memoryKV backs both the delivery guard and the backorder lock.
type memoryKV struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryKV() *memoryKV { return &memoryKV{entries: map[string]string{}} }

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

func (m *memoryKV) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.entries[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryKV) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[key] != owner {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *memoryKV) IdempotencyKey(scope, id string) string { return "test:idem:" + scope + ":" + id }

func (m *memoryKV) LockKey(scope string, ids ...string) string {
	return "test:lock:" + scope + ":" + strings.Join(ids, ":")
}

type usdOnly struct{}

func (usdOnly) Reference() string { return "USD" }
func (usdOnly) Convert(_ context.Context, amount decimal.Decimal, _ string) (decimal.Decimal, error) {
	return amount, nil
}

type fixture struct {
	svc       *Service
	conn      *gorm.DB
	platform  *fakePlatform
	inventory inventory.Repository
	orders    orders.Repository
	trackings trackings.Repository
	store     models.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	kv := newMemoryKV()

	f := &fixture{
		conn:      conn,
		platform:  &fakePlatform{items: map[int64]string{}},
		inventory: inventory.NewRepository(conn),
		orders:    orders.NewRepository(conn),
		trackings: trackings.NewRepository(conn),
		store:     dbtest.Store(t, conn, "demo.myshopify.com"),
	}
	storeSvc, err := stores.NewService(stores.NewRepository(conn))
	require.NoError(t, err)
	reconciler, err := backorders.NewReconciler(backorders.ReconcilerParams{
		DB:        client,
		Inventory: f.inventory,
		Ledger:    backorders.NewLedger(conn),
		Locks:     kv,
		LockTTL:   time.Minute,
		Logger:    logg,
	})
	require.NoError(t, err)
	guard, err := NewIdempotencyGuard(kv, time.Hour, "shopify-webhook")
	require.NoError(t, err)

	f.svc, err = NewService(ServiceParams{
		Platform:   f.platform,
		Orders:     f.orders,
		Inventory:  f.inventory,
		Trackings:  f.trackings,
		AuditLog:   webhooklog.NewRepository(conn),
		Stores:     storeSvc,
		Reconciler: reconciler,
		Normalizer: normalize.New(usdOnly{}, logg, nil),
		Guard:      guard,
		Logger:     logg,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) event(topic enums.WebhookTopic, deliveryID, payload string) Event {
	return Event{Store: &f.store, Topic: topic, DeliveryID: deliveryID, Payload: json.RawMessage(payload)}
}

func (f *fixture) auditRows(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.WebhookLogEntry{}).Count(&n).Error)
	return n
}

func itemJSON(itemID, variantID, productID int64, available int) string {
	return fmt.Sprintf(`{
  "id": "gid://shopify/InventoryItem/%d",
  "sku": "SKU-%d",
  "tracked": true,
  "variant": {
    "id": "gid://shopify/ProductVariant/%d",
    "title": "Large",
    "product": {"id": "gid://shopify/Product/%d", "title": "Hoodie"}
  },
  "inventoryLevels": {"edges": [{"node": {
    "location": {"id": "gid://shopify/Location/1", "name": "Main"},
    "quantities": [{"name": "available", "quantity": %d}, {"name": "on_hand", "quantity": %d}]
  }}]}
}`, itemID, itemID, variantID, productID, available, available)
}

func orderJSON(orderID, lineID, variantID int64, qty int) string {
	return fmt.Sprintf(`{
  "id": %d,
  "name": "#%d",
  "currency": "USD",
  "subtotal_price": "40.00",
  "total_tax": "0.00",
  "total_discounts": "0.00",
  "total_price": "40.00",
  "financial_status": "paid",
  "line_items": [{"id": %d, "product_id": 7001, "variant_id": %d, "sku": "SKU", "title": "Hoodie", "quantity": %d, "price": "20.00"}]
}`, orderID, orderID, lineID, variantID, qty)
}

func TestDisconnectOnlyWritesAuditRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.svc.Handle(ctx, f.event(enums.WebhookTopicInventoryLevelsDisconnect, "d-1", `{"inventory_item_id": 501, "location_id": 1}`))

	assert.Equal(t, enums.WebhookOutcomeSkipped, res.Outcome)
	assert.Equal(t, int64(1), f.auditRows(t))
	assert.Zero(t, f.platform.calls)
	var n int64
	require.NoError(t, f.conn.Model(&models.InventoryRecord{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestInventoryLevelThenItemDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform.items[501] = itemJSON(501, 901, 7001, 4)

	res := f.svc.Handle(ctx, f.event(enums.WebhookTopicInventoryLevelsUpdate, "d-1", `{"inventory_item_id": 501, "location_id": 1, "available": 4}`))
	require.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)

	rec, err := f.inventory.FindByItem(ctx, f.store.ID, 501)
	require.NoError(t, err)
	assert.Equal(t, int64(901), rec.VariantID)
	available, ok := rec.Levels.Available()
	require.True(t, ok)
	assert.Equal(t, 4, available)

	res = f.svc.Handle(ctx, f.event(enums.WebhookTopicInventoryItemsDelete, "d-2", `{"id": 501}`))
	require.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)
	_, err = f.inventory.FindByItem(ctx, f.store.ID, 501)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The order still lands, its backorder check is skipped for the missing item.
	res = f.svc.Handle(ctx, f.event(enums.WebhookTopicOrdersCreate, "d-3", orderJSON(3001, 1, 901, 1)))
	assert.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)
	order, err := f.orders.FindOrder(ctx, f.store.ID, 3001)
	require.NoError(t, err)
	assert.Len(t, order.LineItems, 1)
	assert.Equal(t, int64(3), f.auditRows(t))
}

func TestOrderBackorderCountedOnceAcrossRedeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform.items[502] = itemJSON(502, 902, 7002, 0)
	require.Equal(t, enums.WebhookOutcomeApplied,
		f.svc.Handle(ctx, f.event(enums.WebhookTopicInventoryItemsUpdate, "i-1", `{"id": 502}`)).Outcome)

	payload := orderJSON(3002, 11, 902, 2)
	first := f.svc.Handle(ctx, f.event(enums.WebhookTopicOrdersCreate, "o-1", payload))
	assert.Equal(t, enums.WebhookOutcomeApplied, first.Outcome)

	// Same delivery id is dropped by the guard, a new id for the same order by the ledger.
	dup := f.svc.Handle(ctx, f.event(enums.WebhookTopicOrdersCreate, "o-1", payload))
	assert.Equal(t, enums.WebhookOutcomeSkipped, dup.Outcome)
	again := f.svc.Handle(ctx, f.event(enums.WebhookTopicOrdersUpdated, "o-2", payload))
	assert.Equal(t, enums.WebhookOutcomeApplied, again.Outcome)

	rec, err := f.inventory.FindByItem(ctx, f.store.ID, 502)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.BackOrders)
	assert.Equal(t, int64(4), f.auditRows(t))
}

func TestInventoryRefreshKeepsBackorders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform.items[503] = itemJSON(503, 903, 7003, 0)
	f.svc.Handle(ctx, f.event(enums.WebhookTopicInventoryItemsCreate, "i-1", `{"id": 503}`))
	f.svc.Handle(ctx, f.event(enums.WebhookTopicOrdersCreate, "o-1", orderJSON(3003, 21, 903, 1)))

	f.platform.items[503] = itemJSON(503, 903, 7003, 12)
	res := f.svc.Handle(ctx, f.event(enums.WebhookTopicProductsUpdate, "p-1",
		`{"id": 7003, "variants": [{"id": 903, "inventory_item_id": 503}, {"id": 904, "inventory_item_id": 503}]}`))
	require.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)

	rec, err := f.inventory.FindByItem(ctx, f.store.ID, 503)
	require.NoError(t, err)
	available, _ := rec.Levels.Available()
	assert.Equal(t, 12, available)
	assert.Equal(t, 1, rec.BackOrders)

	res = f.svc.Handle(ctx, f.event(enums.WebhookTopicProductsDelete, "p-2", `{"id": 7003}`))
	require.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)
	_, err = f.inventory.FindByItem(ctx, f.store.ID, 503)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFulfillmentUsesStoreOrigin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.svc.Handle(ctx, f.event(enums.WebhookTopicFulfillmentsCreate, "f-1", `{
  "id": 81,
  "order_id": 3004,
  "status": "success",
  "tracking_company": "UPS",
  "tracking_number": "1Z999",
  "tracking_url": "https://ups.example/1Z999"
}`))
	require.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)

	rec, err := f.trackings.FindByOrder(ctx, 3004)
	require.NoError(t, err)
	assert.Equal(t, f.store.ID, rec.StoreID)
}

func TestUnknownTopicIsSkipped(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Handle(context.Background(), f.event(enums.WebhookTopic("CUSTOMERS_CREATE"), "c-1", `{"id": 1}`))
	assert.Equal(t, enums.WebhookOutcomeSkipped, res.Outcome)
	assert.Equal(t, int64(1), f.auditRows(t))
}

func TestMalformedPayloadIsSkipped(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Handle(context.Background(), f.event(enums.WebhookTopicOrdersCreate, "m-1", `{"id": "not-a-number"`))
	assert.Equal(t, enums.WebhookOutcomeSkipped, res.Outcome)
	assert.Equal(t, int64(1), f.auditRows(t))
}

func TestMissingPlatformItemIsSkipped(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Handle(context.Background(), f.event(enums.WebhookTopicInventoryItemsUpdate, "x-1", `{"id": 999}`))
	assert.Equal(t, enums.WebhookOutcomeSkipped, res.Outcome)
	assert.Contains(t, res.Reason, "not found")
}

func TestProductRefreshContinuesPastMissingVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform.items[602] = itemJSON(602, 912, 7012, 6)

	payload := `{"id": 7012, "title": "Hoodie", "variants": [
  {"id": 911, "product_id": 7012, "inventory_item_id": 601},
  {"id": 912, "product_id": 7012, "inventory_item_id": 602}
]}`
	res := f.svc.Handle(ctx, f.event(enums.WebhookTopicProductsUpdate, "p-1", payload))

	assert.Equal(t, enums.WebhookOutcomeSkipped, res.Outcome)
	assert.Contains(t, res.Reason, "601")
	assert.Equal(t, 2, f.platform.calls)

	rec, err := f.inventory.FindByItem(ctx, f.store.ID, 602)
	require.NoError(t, err)
	assert.Equal(t, int64(912), rec.VariantID)
	available, ok := rec.Levels.Available()
	require.True(t, ok)
	assert.Equal(t, 6, available)

	_, err = f.inventory.FindByItem(ctx, f.store.ID, 601)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLookupFailureClasses(t *testing.T) {
	cases := map[string]struct {
		err   error
		class string
	}{
		"missing resource": {err: fmt.Errorf("fetch inventory item 1: %w", shopify.ErrNotFound), class: metrics.FailureMalformedPayload},
		"malformed page":   {err: fmt.Errorf("decode: %w", pagination.ErrMalformedPage), class: metrics.FailureMalformedPayload},
		"network":          {err: errors.New("dial tcp: connection refused"), class: metrics.FailureTransport},
	}
	for name, tc := range cases {
		var ae *applyError
		require.True(t, errors.As(lookupFailed(tc.err), &ae), name)
		assert.Equal(t, tc.class, ae.class, name)
		assert.Equal(t, enums.WebhookOutcomeSkipped, ae.outcome, name)
	}
}

func TestCombineFailsOnAnyPersistenceError(t *testing.T) {
	assert.NoError(t, combine(nil))

	var ae *applyError
	skipped := lookupFailed(shopify.ErrNotFound)
	require.True(t, errors.As(combine(skipped), &ae))
	assert.Equal(t, enums.WebhookOutcomeSkipped, ae.outcome)

	mixed := multierr.Combine(skipped, persistence(errors.New("disk full")))
	ae = nil
	require.True(t, errors.As(combine(mixed), &ae))
	assert.Equal(t, enums.WebhookOutcomeFailed, ae.outcome)
	assert.Equal(t, metrics.FailurePersistence, ae.class)
}

func TestPanicIsRecoveredAndDeliveryReleased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform.panicOn = 504

	res := f.svc.Handle(ctx, f.event(enums.WebhookTopicInventoryItemsUpdate, "x-1", `{"id": 504}`))
	assert.Equal(t, enums.WebhookOutcomeFailed, res.Outcome)

	f.platform.panicOn = 0
	f.platform.items[504] = itemJSON(504, 905, 7005, 3)
	res = f.svc.Handle(ctx, f.event(enums.WebhookTopicInventoryItemsUpdate, "x-1", `{"id": 504}`))
	assert.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)
}

func TestAppUninstalledMarksStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.svc.Handle(ctx, f.event(enums.WebhookTopicAppUninstalled, "u-1", `{"id": 1}`))
	require.Equal(t, enums.WebhookOutcomeApplied, res.Outcome)

	var store models.Store
	require.NoError(t, f.conn.First(&store, "id = ?", f.store.ID).Error)
	assert.False(t, store.Installed)
	assert.NotNil(t, store.UninstalledAt)
}
