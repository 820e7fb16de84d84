// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package shopify fetches recent orders from the Shopify Admin REST API
// and formats them as a single knowledge-base text document.
package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taurbull/kbsync/internal/httputil"
	"github.com/taurbull/kbsync/pkg/types"
)

const (
	defaultOrderLimit = 50
	defaultSinceDays  = 30
	defaultStatus     = "any"

	// Only the fields the formatter consumes are requested.
	orderFields = "id,order_number,created_at,total_price,currency,customer," +
		"line_items,shipping_address,financial_status,fulfillment_status,shipping_lines,tags"
)

// Client talks to the Shopify Admin REST API.
type Client struct {
	baseURL     string
	apiVersion  string
	accessToken string
	userAgent   string
	orderLimit  int
	sinceDays   int
	status      string
	httpClient  *http.Client
	now         func() time.Time
}

// NewClient builds a Client from config. A nil httpClient falls back to a
// client with the configured timeout.
func NewClient(cfg types.ShopifyConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + cfg.ShopName
	}
	limit := cfg.OrderLimit
	if limit <= 0 {
		limit = defaultOrderLimit
	}
	sinceDays := cfg.SinceDays
	if sinceDays <= 0 {
		sinceDays = defaultSinceDays
	}
	status := cfg.Status
	if status == "" {
		status = defaultStatus
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiVersion:  cfg.APIVersion,
		accessToken: cfg.AccessToken,
		userAgent:   cfg.UserAgent,
		orderLimit:  limit,
		sinceDays:   sinceDays,
		status:      status,
		httpClient:  httpClient,
		now:         time.Now,
	}
}

// Order mirrors the slice of the Shopify order payload the formatter
// needs.
type Order struct {
	ID                int64          `json:"id"`
	OrderNumber       int            `json:"order_number"`
	CreatedAt         string         `json:"created_at"`
	TotalPrice        string         `json:"total_price"`
	Currency          string         `json:"currency"`
	FinancialStatus   string         `json:"financial_status"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	Tags              string         `json:"tags"`
	Customer          Customer       `json:"customer"`
	ShippingAddress   Address        `json:"shipping_address"`
	ShippingLines     []ShippingLine `json:"shipping_lines"`
	LineItems         []LineItem     `json:"line_items"`
}

// Customer is the order's customer block.
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Address is the order's shipping address.
type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// ShippingLine names the delivery method chosen at checkout.
type ShippingLine struct {
	Title string `json:"title"`
}

// LineItem is one purchased product.
type LineItem struct {
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

// Orders fetches recent orders subject to the configured limit, status,
// and created-at window.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json", c.baseURL, c.apiVersion)

	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.orderLimit))
	params.Set("status", c.status)
	params.Set("created_at_min", c.now().AddDate(0, 0, -c.sinceDays).Format(time.RFC3339))
	params.Set("fields", orderFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetching orders: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded ordersResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("parsing orders response: %w", err)
	}
	return decoded.Orders, nil
}
