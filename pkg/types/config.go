// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "kbsync/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PageConfig describes one storefront page to scrape.
type PageConfig struct {
	// Name is the page slug, used as the document id and remote filename.
	Name string `json:"name" yaml:"name"`

	// URL is the page address.
	URL string `json:"url" yaml:"url"`

	// Kind selects the extraction strategy: faq or legal.
	Kind SourceKind `json:"kind" yaml:"kind"`
}

// ScrapeConfig holds settings for the storefront page source.
type ScrapeConfig struct {
	HTTPConfig `yaml:",inline"`

	// Pages lists the pages to scrape each run.
	Pages []PageConfig `json:"pages" yaml:"pages"`
}

// ProductConfig holds settings for the product-catalog source.
type ProductConfig struct {
	HTTPConfig `yaml:",inline"`

	// CatalogURL is the collection listing to crawl, e.g.
	// "https://shop.example.com/collections/all". When empty the product
	// source is disabled.
	CatalogURL string `json:"catalog_url" yaml:"catalog_url"`

	// MaxPages bounds catalog pagination (default 10).
	MaxPages int `json:"max_pages" yaml:"max_pages"`
}

// ShopifyConfig holds settings for the Shopify order source.
type ShopifyConfig struct {
	HTTPConfig `yaml:",inline"`

	// ShopName is the myshopify hostname (e.g. "example.myshopify.com").
	ShopName string `json:"shop_name" yaml:"shop_name"`

	// APIVersion selects the Admin REST API version (e.g. "2024-01").
	APIVersion string `json:"api_version" yaml:"api_version"`

	// AccessToken authenticates Admin API requests. When empty the order
	// source is disabled.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`

	// BaseURL overrides the shop URL, mainly for tests. When empty it is
	// derived from ShopName.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// OrderLimit is the maximum number of orders to fetch (default 50).
	OrderLimit int `json:"order_limit" yaml:"order_limit"`

	// SinceDays fetches orders created in the last n days (default 30).
	SinceDays int `json:"since_days" yaml:"since_days"`

	// Status filters orders by status: any, open, closed, cancelled
	// (default "any").
	Status string `json:"status" yaml:"status"`
}

// KnowledgeBaseConfig holds settings for the remote knowledge-base client.
type KnowledgeBaseConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the API root (default "https://api.elevenlabs.io/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates knowledge-base requests.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries bounds retry attempts for transient failures (default 2,
	// i.e. 3 attempts total).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SyncConfig holds settings for the sync engine and fingerprint store.
type SyncConfig struct {
	// StateDir is the directory holding the fingerprint database, the run
	// lock, and state exports (default "state").
	StateDir string `json:"state_dir" yaml:"state_dir"`

	// Force makes every document take the create-or-update path regardless
	// of hash match.
	Force bool `json:"force" yaml:"force"`

	// AgentIDs lists the conversational agents every synced document is
	// assigned to.
	AgentIDs []string `json:"agent_ids" yaml:"agent_ids"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Scrape        ScrapeConfig        `json:"scrape" yaml:"scrape"`
	Product       ProductConfig       `json:"product" yaml:"product"`
	Shopify       ShopifyConfig       `json:"shopify" yaml:"shopify"`
	KnowledgeBase KnowledgeBaseConfig `json:"knowledge_base" yaml:"knowledge_base"`
	Sync          SyncConfig          `json:"sync" yaml:"sync"`
}
