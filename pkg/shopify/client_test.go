package shopify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercive/commerce-sync/pkg/config"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/pagination"
)

var testSession = Session{ShopDomain: "demo.myshopify.com", AccessToken: "shpat_123"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ShopifyConfig{APIVersion: "2024-10", BaseURL: srv.URL, RequestTimeout: time.Second}, nil)
}

func decodeRequest(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var req graphQLRequest
	require.NoError(t, json.Unmarshal(raw, &req))
	return req
}

func TestOrdersPageSendsCredentialsAndDecodesPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_123", r.Header.Get(accessTokenHeader))
		req := decodeRequest(t, r)
		assert.EqualValues(t, pagination.PageSize, req.Variables["first"])
		assert.Equal(t, "cursor-1", req.Variables["cursor"])

		_, _ = io.WriteString(w, `{"data":{"orders":{
			"edges":[{"node":{"id":"gid://shopify/Order/1106","name":"#1106","currencyCode":"EUR",
				"subtotalPriceSet":{"shopMoney":{"amount":"12.50","currencyCode":"EUR"}}}}],
			"pageInfo":{"hasNextPage":true,"endCursor":"cursor-2"}}}}`)
	})

	cursor := "cursor-1"
	page, err := client.OrdersPage(context.Background(), testSession, &cursor)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.HasNextPage)
	require.NotNil(t, page.EndCursor)
	assert.Equal(t, "cursor-2", *page.EndCursor)
	assert.Equal(t, "#1106", page.Items[0].Name)
	assert.True(t, AmountOf(page.Items[0].SubtotalPriceSet).Equal(decimal.RequireFromString("12.5")))
}

func TestPageWithoutEnvelopeIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"inventoryItems":null}}`)
	})

	_, err := client.InventoryItemsPage(context.Background(), testSession, nil)
	assert.ErrorIs(t, err, pagination.ErrMalformedPage)
}

func TestMissingDataIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":null}`)
	})

	_, err := client.FulfillmentsPage(context.Background(), testSession, nil)
	assert.ErrorIs(t, err, pagination.ErrMalformedPage)
}

func TestGraphQLErrorsAreDependencyErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"Throttled"}]}`)
	})

	_, err := client.OrdersPage(context.Background(), testSession, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Contains(t, typed.Message(), "Throttled")
}

func TestNonOKStatusIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Shop(context.Background(), testSession)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestTimeoutIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.OrdersPage(ctx, testSession, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestInventoryItemLooksUpByGlobalID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		if req.Variables["id"] == "gid://shopify/InventoryItem/404" {
			_, _ = io.WriteString(w, `{"data":{"inventoryItem":null}}`)
			return
		}
		assert.Equal(t, "gid://shopify/InventoryItem/42", req.Variables["id"])
		_, _ = io.WriteString(w, `{"data":{"inventoryItem":{"id":"gid://shopify/InventoryItem/42","sku":"SKU-42",
			"inventoryLevels":{"edges":[{"node":{"location":{"id":"gid://shopify/Location/7","name":"Main"},
			"quantities":[{"name":"available","quantity":3}]}}]}}}}`)
	})

	item, err := client.InventoryItem(context.Background(), testSession, 42)
	require.NoError(t, err)
	assert.Equal(t, "SKU-42", item.SKU)
	require.Len(t, item.InventoryLevels.Nodes(), 1)

	_, err = client.InventoryItem(context.Background(), testSession, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryRequiresSession(t *testing.T) {
	client := NewClient(config.ShopifyConfig{}, nil)
	err := client.Query(context.Background(), Session{ShopDomain: "x.myshopify.com"}, shopQuery, nil, &struct{}{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "https://x.myshopify.com/admin/api/2024-10/graphql.json", client.endpoint("x.myshopify.com"))
}

func TestIDFromGID(t *testing.T) {
	cases := map[string]int64{
		"gid://shopify/Order/1106":               1106,
		"gid://shopify/InventoryItem/42?foo=bar": 42,
		GID(KindProduct, 987654321):              987654321,
	}
	for gid, want := range cases {
		got, ok := IDFromGID(gid)
		assert.True(t, ok, gid)
		assert.Equal(t, want, got, gid)
	}
	for _, bad := range []string{"", "gid://shopify/Order/", "gid://shopify/Order/abc", "1106x"} {
		_, ok := IDFromGID(bad)
		assert.False(t, ok, bad)
	}
	id, ok := IDFromGID("1106")
	assert.True(t, ok)
	assert.EqualValues(t, 1106, id)
}
