package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/commercive/commerce-sync/pkg/config"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/pagination"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"
	defaultAPIVersion = "2024-10"
	defaultTimeout    = 30 * time.Second
	maxResponseBytes  = 16 << 20
)

// ErrNotFound is returned when a single resource lookup resolves to null.
var ErrNotFound = errors.New("shopify: resource not found")

// Session is the credential of one store.
type Session struct {
	ShopDomain  string
	AccessToken string
}

// Client talks to the Admin GraphQL API.
type Client struct {
	http       *http.Client
	apiVersion string
	baseURL    string
}

// NewClient builds a client from config. httpClient may be nil.
func NewClient(cfg config.ShopifyConfig, httpClient *http.Client) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = defaultAPIVersion
	}
	return &Client{
		http:       httpClient,
		apiVersion: version,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) endpoint(shop string) string {
	base := c.baseURL
	if base == "" {
		base = "https://" + shop
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", base, c.apiVersion)
}

// Query executes a GraphQL document and decodes the data member into out.
// A response without data wraps pagination.ErrMalformedPage.
func (c *Client) Query(ctx context.Context, s Session, query string, vars map[string]any, out any) error {
	if strings.TrimSpace(s.ShopDomain) == "" || strings.TrimSpace(s.AccessToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shopify session requires shop domain and access token")
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode graphql request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(s.ShopDomain), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build graphql request")
	}
	req.Header.Set(accessTokenHeader, s.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "shopify request timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shopify request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read shopify response")
	}
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shopify responded %d", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode, "shop": s.ShopDomain})
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode graphql envelope: %w: %w", pagination.ErrMalformedPage, err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return pkgerrors.New(pkgerrors.CodeDependency, "shopify graphql: "+strings.Join(msgs, "; "))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("graphql response without data: %w", pagination.ErrMalformedPage)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w: %w", pagination.ErrMalformedPage, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func pageVars(cursor *string) map[string]any {
	vars := map[string]any{"first": pagination.PageSize}
	if cursor != nil {
		vars["cursor"] = *cursor
	}
	return vars
}

func toPage[T any](conn *Connection[T]) (*pagination.Page[T], error) {
	if conn == nil || conn.PageInfo == nil {
		return nil, pagination.ErrMalformedPage
	}
	return &pagination.Page[T]{
		Items:       conn.Nodes(),
		HasNextPage: conn.PageInfo.HasNextPage,
		EndCursor:   conn.PageInfo.EndCursor,
	}, nil
}

// OrdersPage fetches one page of orders.
func (c *Client) OrdersPage(ctx context.Context, s Session, cursor *string) (*pagination.Page[OrderNode], error) {
	var data struct {
		Orders *Connection[OrderNode] `json:"orders"`
	}
	if err := c.Query(ctx, s, ordersQuery, pageVars(cursor), &data); err != nil {
		return nil, err
	}
	return toPage(data.Orders)
}

// FulfillmentsPage fetches one page of fulfilled orders with their fulfillments.
func (c *Client) FulfillmentsPage(ctx context.Context, s Session, cursor *string) (*pagination.Page[FulfilledOrderNode], error) {
	var data struct {
		Orders *Connection[FulfilledOrderNode] `json:"orders"`
	}
	if err := c.Query(ctx, s, fulfillmentsQuery, pageVars(cursor), &data); err != nil {
		return nil, err
	}
	return toPage(data.Orders)
}

// InventoryItemsPage fetches one page of inventory items.
func (c *Client) InventoryItemsPage(ctx context.Context, s Session, cursor *string) (*pagination.Page[InventoryItemNode], error) {
	var data struct {
		InventoryItems *Connection[InventoryItemNode] `json:"inventoryItems"`
	}
	if err := c.Query(ctx, s, inventoryItemsQuery, pageVars(cursor), &data); err != nil {
		return nil, err
	}
	return toPage(data.InventoryItems)
}

// InventoryItem fetches one inventory item with its levels by numeric id.
func (c *Client) InventoryItem(ctx context.Context, s Session, id int64) (*InventoryItemNode, error) {
	var data struct {
		InventoryItem *InventoryItemNode `json:"inventoryItem"`
	}
	vars := map[string]any{"id": GID(KindInventoryItem, id)}
	if err := c.Query(ctx, s, inventoryItemByIDQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.InventoryItem == nil {
		return nil, ErrNotFound
	}
	return data.InventoryItem, nil
}

// Shop fetches the store profile.
func (c *Client) Shop(ctx context.Context, s Session) (*Shop, error) {
	var data struct {
		Shop *Shop `json:"shop"`
	}
	if err := c.Query(ctx, s, shopQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Shop == nil {
		return nil, ErrNotFound
	}
	return data.Shop, nil
}
