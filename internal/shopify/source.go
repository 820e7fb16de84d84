// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package shopify

import (
	"context"

	"github.com/taurbull/kbsync/pkg/types"
)

// OrderDocID is the stable document id the order dump syncs under.
const OrderDocID = "orders"

// OrderSource adapts the order client to the content-source contract:
// every run it produces one "orders" document holding the formatted
// recent-order dump.
type OrderSource struct {
	client *Client
}

// NewOrderSource wraps client as a document source.
func NewOrderSource(client *Client) *OrderSource {
	return &OrderSource{client: client}
}

// Name identifies the source in run output.
func (s *OrderSource) Name() string { return "shopify-orders" }

// Documents fetches recent orders and renders them as one document.
func (s *OrderSource) Documents(ctx context.Context) ([]types.Document, error) {
	orders, err := s.client.Orders(ctx)
	if err != nil {
		return nil, err
	}
	return []types.Document{{
		ID:    OrderDocID,
		Title: "Customer Orders",
		Body:  FormatOrders(orders),
		Kind:  types.KindOrders,
	}}, nil
}
