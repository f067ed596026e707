// Package cache provides a Redis-backed read-through cache in front of the
// order repository, used by the operator HTTP surface's order lookup
// endpoint to avoid a Postgres round trip on repeated polling.
//
// Cache-aside pattern:
//   - On read:  Redis is checked first (cache HIT). On a miss, the caller
//     falls back to Postgres and calls SetOrder to back-fill the cache.
//   - On write: the orchestrator invalidates (or re-populates) the entry
//     after every successful upsert, so a cached order never lags more
//     than one ingestion cycle behind Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"shopee-ingest/internal/models"
)

const (
	orderKeyPrefix = "order_cache:"
	orderTTL       = 10 * time.Minute
)

// ErrNotFound is returned when a key does not exist in the cache.
var ErrNotFound = errors.New("cache: key not found")

// Client wraps the Redis client and exposes domain-level operations.
type Client struct {
	rdb *redis.Client
}

// New creates a Redis client and verifies the connection with a PING.
func New(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

// Close shuts down the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// orderView is the flattened shape cached per order — order row plus its
// current logistic row, mirroring what the operator lookup endpoint returns.
type orderView struct {
	Order    models.Order    `json:"order"`
	Logistic models.Logistic `json:"logistic"`
}

// SetOrder serialises an order and its logistic row and stores them in
// Redis with a fixed TTL.
func (c *Client) SetOrder(ctx context.Context, order models.Order, logistic models.Logistic) error {
	data, err := json.Marshal(orderView{Order: order, Logistic: logistic})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, orderKeyPrefix+order.ID.String(), data, orderTTL).Err()
}

// GetOrder fetches a cached order and its logistic row by surrogate id.
// Returns ErrNotFound when the key does not exist or has expired.
func (c *Client) GetOrder(ctx context.Context, id string) (models.Order, models.Logistic, error) {
	data, err := c.rdb.Get(ctx, orderKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Order{}, models.Logistic{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, models.Logistic{}, err
	}

	var view orderView
	if err := json.Unmarshal(data, &view); err != nil {
		return models.Order{}, models.Logistic{}, err
	}
	return view.Order, view.Logistic, nil
}

// Invalidate removes a cached order, forcing the next read to go to
// Postgres. The orchestrator calls this after every upsert.
func (c *Client) Invalidate(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, orderKeyPrefix+id).Err()
}
