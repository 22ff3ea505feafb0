// Package pricing fetches day-ahead wholesale prices from a market API
// and turns them into a time-of-use purchase tariff.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config locates the day-ahead price API.
type Config struct {
	// Enabled switches the purchase tariff to fetched market prices.
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url"`
	// Auth is optional; when empty requests go out unauthenticated.
	Auth Credentials `json:"auth"`
	// TimeoutS bounds the fetch in seconds.
	TimeoutS int `json:"timeout_s"`
}

// Validate checks the endpoint configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BaseURL == "" {
		return fmt.Errorf("pricing: base_url required")
	}
	if !c.Auth.empty() {
		if c.Auth.ClientID == "" || c.Auth.ClientSecret == "" || c.Auth.TokenURL == "" {
			return fmt.Errorf("pricing: partial credentials, need client_id, client_secret and token_url")
		}
	}
	return nil
}

// Timeout returns the configured fetch timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutS) * time.Second
}

// HourlyPrice is one market price slot.
type HourlyPrice struct {
	Start     time.Time
	EURPerMWh float64
}

// Client queries the day-ahead market API.
type Client struct {
	baseURL string
	auth    *TokenSource
	hc      *http.Client
}

// New builds a Client from the configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("pricing: base_url required")
	}
	c := &Client{baseURL: cfg.BaseURL, hc: &http.Client{Timeout: cfg.Timeout()}}
	if !cfg.Auth.empty() {
		c.auth = NewTokenSource(cfg.Auth)
	}
	return c, nil
}

type priceResponse struct {
	Prices []struct {
		StartDate   string  `json:"start_date"`
		EndDate     string  `json:"end_date"`
		PriceEURMWh float64 `json:"price_eur_mwh"`
	} `json:"prices"`
}

// FetchDayAhead retrieves the hourly prices published for [start, end).
func (c *Client) FetchDayAhead(ctx context.Context, start, end time.Time) ([]HourlyPrice, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pricing: build request: %w", err)
	}
	if c.auth != nil {
		if err := c.auth.Authorize(ctx, req); err != nil {
			return nil, err
		}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pricing: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing: unexpected status %s", resp.Status)
	}
	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("pricing: decode response: %w", err)
	}
	prices := make([]HourlyPrice, 0, len(body.Prices))
	for _, p := range body.Prices {
		ts, err := time.Parse(time.RFC3339, p.StartDate)
		if err != nil {
			return nil, fmt.Errorf("pricing: bad slot start %q: %w", p.StartDate, err)
		}
		prices = append(prices, HourlyPrice{Start: ts, EURPerMWh: p.PriceEURMWh})
	}
	return prices, nil
}
