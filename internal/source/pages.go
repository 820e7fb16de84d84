// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/taurbull/kbsync/pkg/types"
)

// PageSource scrapes a configured list of storefront pages into text
// documents. The page name doubles as the document id.
type PageSource struct {
	client *http.Client
	cfg    types.ScrapeConfig
}

// NewPageSource builds a PageSource. A nil client falls back to one with
// the configured timeout.
func NewPageSource(client *http.Client, cfg types.ScrapeConfig) *PageSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &PageSource{client: client, cfg: cfg}
}

// Name identifies the source in run output.
func (s *PageSource) Name() string { return "pages" }

// Documents fetches and extracts every configured page. Page failures
// are collected; documents from surviving pages are returned alongside
// the joined error.
func (s *PageSource) Documents(ctx context.Context) ([]types.Document, error) {
	var docs []types.Document
	var errs []error

	for _, page := range s.cfg.Pages {
		doc, err := s.fetchPage(ctx, page)
		if err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w", page.Name, err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errors.Join(errs...)
}

func (s *PageSource) fetchPage(ctx context.Context, page types.PageConfig) (types.Document, error) {
	html, err := fetchHTML(ctx, s.client, s.cfg.UserAgent, page.URL)
	if err != nil {
		return types.Document{}, err
	}

	var body string
	switch page.Kind {
	case types.KindFAQ:
		body, err = ExtractFAQ(html)
	case types.KindLegal:
		body, err = ExtractLegal(html)
	default:
		return types.Document{}, fmt.Errorf("unsupported page kind %q", page.Kind)
	}
	if err != nil {
		return types.Document{}, err
	}

	return types.Document{
		ID:    page.Name,
		Title: page.Name,
		Body:  body,
		Kind:  page.Kind,
	}, nil
}
