package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the forecasting microservice. All calls are bounded by
// the configured timeout via the request context.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ForecastResponse: predicted daily outflow for a SKU starting at StartDate.
type ForecastResponse struct {
	SkuID     string    `json:"sku_id"`
	StartDate string    `json:"start_date"`
	Horizon   int       `json:"horizon"`
	Forecast  []float64 `json:"forecast"`
}

// ReorderResponse: reorder-point suggestion for a SKU.
type ReorderResponse struct {
	SkuID          string  `json:"sku_id"`
	LeadTimeDays   int     `json:"lead_time_days"`
	SafetyStock    float64 `json:"safety_stock"`
	ReorderPoint   float64 `json:"reorder_point"`
	SuggestedOrder float64 `json:"suggested_order"`
}

func (c *Client) Forecast(ctx context.Context, sku string, horizon int) (*ForecastResponse, error) {
	q := url.Values{}
	q.Set("sku_id", sku)
	q.Set("horizon", strconv.Itoa(horizon))

	var out ForecastResponse
	if err := c.get(ctx, "/ml/forecast", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reorder(ctx context.Context, sku string, leadTimeDays int, z float64) (*ReorderResponse, error) {
	q := url.Values{}
	q.Set("sku_id", sku)
	q.Set("lead_time_days", strconv.Itoa(leadTimeDays))
	q.Set("z", strconv.FormatFloat(z, 'f', -1, 64))

	var out ReorderResponse
	if err := c.get(ctx, "/ml/reorder", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ml service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ml service returned %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
