// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source produces the documents each sync run considers:
// storefront pages scraped for FAQ and legal content. Sources are plain
// producers; change detection lives in the syncer.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/taurbull/kbsync/internal/httputil"
	"github.com/taurbull/kbsync/pkg/types"
)

// Source produces named documents from one external content origin.
type Source interface {
	Name() string
	Documents(ctx context.Context) ([]types.Document, error)
}

// Collect gathers documents from all sources. Source failures are
// isolated: a failing source is reported on w and skipped, and any
// documents it produced before failing are still included.
func Collect(ctx context.Context, sources []Source, w io.Writer) []types.Document {
	var docs []types.Document
	for _, src := range sources {
		got, err := src.Documents(ctx)
		docs = append(docs, got...)
		if err != nil {
			fmt.Fprintf(w, "source %s failed: %v\n", src.Name(), err)
		}
	}
	return docs
}

// fetchHTML GETs url and returns the response body, retrying transient
// failures.
func fetchHTML(ctx context.Context, client *http.Client, userAgent, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(data), nil
}
