// Package search provides an Elasticsearch-backed lookup projection over
// orders, so the operator HTTP surface can find an order by order number,
// SKU, or tracking number without a LIKE scan on Postgres.
//
// Index lifecycle:
//   - The orchestrator calls IndexOrder after every successful upsert
//     (best-effort — a search indexing failure never fails the order's
//     transaction, which has already committed by the time IndexOrder runs).
//   - The operator HTTP surface calls SearchOrders to serve lookups.
//   - Postgres remains the source of truth; Elasticsearch is a
//     read-optimised projection that can be rebuilt from it at any time.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"shopee-ingest/internal/models"
)

const ordersIndex = "shopee_orders"

// Client wraps the Elasticsearch client with domain-level operations.
type Client struct {
	es *elasticsearch.Client
}

// New creates an Elasticsearch client pointed at the given URL.
func New(url string) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{url},
	}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}
	return &Client{es: es}, nil
}

// document is the flattened shape indexed per order.
type document struct {
	OrderID     string   `json:"order_id"`
	OrderNum    string   `json:"order_num"`
	Status      string   `json:"status"`
	TrackingNos []string `json:"tracking_numbers"`
	SKUs        []string `json:"skus"`
	ShopID      int64    `json:"marketplace_shop_id"`
}

// IndexOrder upserts an order document keyed by its surrogate id — using
// the order id as the Elasticsearch document id makes re-indexing on retry
// idempotent.
func (c *Client) IndexOrder(ctx context.Context, order models.Order, logistic models.Logistic, items []models.OrderItem) error {
	doc := document{
		OrderID:  order.ID.String(),
		OrderNum: order.OrderNum,
		Status:   order.Status,
		ShopID:   order.MarketplaceShopID,
	}
	if logistic.TrackingNo != "" {
		doc.TrackingNos = append(doc.TrackingNos, logistic.TrackingNo)
	}
	for _, item := range items {
		doc.SKUs = append(doc.SKUs, item.SKU)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := c.es.Index(
		ordersIndex,
		bytes.NewReader(body),
		c.es.Index.WithDocumentID(doc.OrderID),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		respBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: index error [%s]: %s", res.Status(), respBody)
	}
	return nil
}

// SearchOrders runs a multi-field match across order_num, tracking_numbers,
// and skus, returning the raw Elasticsearch response for the caller to
// project however it likes.
func (c *Client) SearchOrders(ctx context.Context, term string) (json.RawMessage, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  term,
				"fields": []string{"order_num", "tracking_numbers", "skus"},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(ordersIndex),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search: query request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		respBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: query error [%s]: %s", res.Status(), respBody)
	}

	return io.ReadAll(res.Body)
}
