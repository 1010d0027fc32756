package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commercive/commerce-sync/pkg/config"
)

// ErrRateUnavailable is returned when no usable rate exists for a currency.
var ErrRateUnavailable = errors.New("currency: rate unavailable")

const maxRatesBytes = 1 << 20

// RateCache keeps the latest rate table between requests.
type RateCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CurrencyRatesKey(base string) string
}

// Converter turns store-currency amounts into the reference currency using a
// rates table quoted against the reference currency: converted = amount / rate.
type Converter struct {
	http      *http.Client
	apiURL    string
	apiKey    string
	reference string
	ttl       time.Duration
	cache     RateCache
}

// NewConverter builds a converter. cache and httpClient may be nil.
func NewConverter(cfg config.CurrencyConfig, cache RateCache, httpClient *http.Client) *Converter {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Converter{
		http:      httpClient,
		apiURL:    cfg.APIURL,
		apiKey:    cfg.APIKey,
		reference: cfg.Reference(),
		ttl:       cfg.CacheTTL,
		cache:     cache,
	}
}

// Reference returns the currency amounts are converted into.
func (c *Converter) Reference() string {
	return c.reference
}

// Convert converts amount from the given currency into the reference currency.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	if from == "" {
		return amount, fmt.Errorf("missing source currency: %w", ErrRateUnavailable)
	}
	if from == c.reference {
		return amount, nil
	}

	rates, err := c.rates(ctx)
	if err != nil {
		return amount, err
	}
	rate, ok := rates[from]
	if !ok || !rate.IsPositive() {
		return amount, fmt.Errorf("no rate for %s: %w", from, ErrRateUnavailable)
	}
	return amount.Div(rate).Round(4), nil
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (c *Converter) rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	var key string
	if c.cache != nil {
		key = c.cache.CurrencyRatesKey(c.reference)
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var cached ratesResponse
			if json.Unmarshal([]byte(raw), &cached) == nil && len(cached.Rates) > 0 {
				return cached.Rates, nil
			}
		}
	}

	if c.apiKey == "" || c.apiURL == "" {
		return nil, fmt.Errorf("rates api not configured: %w", ErrRateUnavailable)
	}

	endpoint, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse rates url: %w", err)
	}
	q := endpoint.Query()
	q.Set("apikey", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w: %w", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRatesBytes))
	if err != nil {
		return nil, fmt.Errorf("read rates: %w: %w", ErrRateUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates api responded %d: %w", resp.StatusCode, ErrRateUnavailable)
	}

	var parsed ratesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode rates: %w: %w", ErrRateUnavailable, err)
	}
	if parsed.Base != "" && !strings.EqualFold(parsed.Base, c.reference) {
		return nil, fmt.Errorf("rates quoted against %s, want %s: %w", parsed.Base, c.reference, ErrRateUnavailable)
	}
	if len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("empty rates table: %w", ErrRateUnavailable)
	}

	if c.cache != nil && c.ttl > 0 {
		_ = c.cache.Set(ctx, key, string(raw), c.ttl)
	}
	return parsed.Rates, nil
}
