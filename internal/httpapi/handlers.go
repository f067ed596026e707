// Package httpapi is the thin operator-facing HTTP surface: health, queue
// depth, manual order collection, and order lookup. It never runs ingestion
// logic itself — it only reads repository/queue state or enqueues jobs for
// the worker runtime to pick up.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"shopee-ingest/internal/ingesterr"
	"shopee-ingest/internal/models"
	"shopee-ingest/internal/queue"
)

// OrderLookup is the subset of the orchestrator the handler needs for
// GET /order/{id}.
type OrderLookup interface {
	GetOrder(ctx context.Context, idOrNumber string) (models.Order, error)
}

// JobEnqueuer is the subset of the queue client needed to trigger a manual
// collection and report queue depth.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, q queue.Name, jobName string, payload any, opts queue.EnqueueOptions) (string, error)
	Depth(ctx context.Context, q queue.Name) (int64, error)
}

// OrderSearcher is the full-text search contract, optional.
type OrderSearcher interface {
	SearchOrders(ctx context.Context, term string) (json.RawMessage, error)
}

// Handler holds every dependency the operator HTTP surface needs. The
// Orders, Jobs and Search fields are interfaces so tests can inject fakes.
type Handler struct {
	Orders OrderLookup
	Jobs   JobEnqueuer
	Search OrderSearcher // may be nil
	Log    *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

// Health — GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SystemInfo — GET /system/info
func (h *Handler) SystemInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service":  "shopee-ingest",
		"platform": models.Platform,
	})
}

// QueueStatus — GET /queue/status
func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names := []queue.Name{queue.OrderCollection, queue.OrderDetail, queue.ShipmentInfo, queue.Inventory}

	depths := make(map[string]int64, len(names))
	for _, name := range names {
		depth, err := h.Jobs.Depth(ctx, name)
		if err != nil {
			h.logger().Error("httpapi: queue depth failed", "queue", name, "error", err)
			http.Error(w, "failed to read queue depth", http.StatusInternalServerError)
			return
		}
		depths[string(name)] = depth
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(depths)
}

// collectRequest is the body for POST /order/collect/{shopId}.
type collectRequest struct {
	ShopKey string `json:"shop_key"`
}

// CollectOrders — POST /order/collect/{shopId}
//
// Enqueues a manual-order-collect job for one shop rather than running the
// orchestrator inline, so the HTTP request returns immediately and the
// worker runtime's existing retry/backoff machinery applies uniformly.
func (h *Handler) CollectOrders(w http.ResponseWriter, r *http.Request) {
	shopIDParam := r.PathValue("shopId")
	if shopIDParam == "" {
		http.Error(w, "missing shop id", http.StatusBadRequest)
		return
	}

	var req collectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // body optional
	}

	marketplaceShopID, err := strconv.ParseInt(shopIDParam, 10, 64)
	if err != nil {
		http.Error(w, "invalid shop id", http.StatusBadRequest)
		return
	}

	jobID, err := h.Jobs.Enqueue(r.Context(), queue.OrderCollection, "manual-order-collect", map[string]any{
		"shop_key":            req.ShopKey,
		"marketplace_shop_id": marketplaceShopID,
	}, queue.EnqueueOptions{Priority: -1, Dedup: false})
	if err != nil {
		h.logger().Error("httpapi: enqueue manual collect failed", "marketplace_shop_id", marketplaceShopID, "error", err)
		http.Error(w, "failed to enqueue collection", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID, "status": "queued"})
}

// GetOrder — GET /order/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing order id", http.StatusBadRequest)
		return
	}

	order, err := h.Orders.GetOrder(r.Context(), id)
	var dataErr *ingesterr.DataError
	if errors.As(err, &dataErr) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger().Error("httpapi: get order failed", "order_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// SearchOrders — GET /order/search?q={term}
func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	if h.Search == nil {
		http.Error(w, "search is not configured", http.StatusServiceUnavailable)
		return
	}
	term := r.URL.Query().Get("q")
	if term == "" {
		http.Error(w, "missing required query parameter: q", http.StatusBadRequest)
		return
	}

	result, err := h.Search.SearchOrders(r.Context(), term)
	if err != nil {
		h.logger().Error("httpapi: search failed", "term", term, "error", err)
		http.Error(w, "search engine error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}
