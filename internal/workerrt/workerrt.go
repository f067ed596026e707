// Package workerrt is the worker process that actually runs ingestion work:
// it registers one handler per queue (every job on a queue goes to that
// queue's handler, whatever its job name), tracks active jobs, and
// publishes periodic heartbeats upstream (spec.md §4.8).
package workerrt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"shopee-ingest/internal/models"
	"shopee-ingest/internal/orchestrator"
	"shopee-ingest/internal/queue"
	"shopee-ingest/internal/scheduler"
	"shopee-ingest/internal/shoprepo"
)

// Status mirrors the heartbeat status enum from spec.md §4.8.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusProcessingOrders    Status = "processing-orders"
	StatusProcessingDetails   Status = "processing-details"
	StatusProcessingShipment  Status = "processing-shipment"
	StatusUpdatingInventory   Status = "updating-inventory"
)

const heartbeatInterval = 10 * time.Second

// Heartbeat is published upstream to the supervisor on a timer.
type Heartbeat struct {
	Status     Status `json:"status"`
	ActiveJobs int64  `json:"active_jobs"`
}

// HeartbeatSink receives heartbeats — typically a thin HTTP POST or a log
// line in single-process deployments.
type HeartbeatSink func(Heartbeat)

// Runtime owns the consumers for every registered job name.
type Runtime struct {
	shops        *shoprepo.Repository
	orchestrator *orchestrator.Orchestrator
	jobs         *queue.Client
	log          *slog.Logger

	activeJobs int64
	status     atomic.Value // Status

	heartbeat HeartbeatSink
}

// New constructs a Runtime.
func New(shops *shoprepo.Repository, orch *orchestrator.Orchestrator, jobs *queue.Client, heartbeat HeartbeatSink, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	if heartbeat == nil {
		heartbeat = func(Heartbeat) {}
	}
	r := &Runtime{shops: shops, orchestrator: orch, jobs: jobs, heartbeat: heartbeat, log: log}
	r.status.Store(StatusIdle)
	return r
}

// Run registers every handler from spec.md §4.8 and blocks, consuming from
// all four queues with bounded per-queue concurrency, until ctx is
// cancelled.
func (r *Runtime) Run(ctx context.Context, concurrency int, baseBackoff time.Duration) {
	go r.heartbeatLoop(ctx)

	consumers := []*queue.Consumer{
		queue.NewConsumer(r.jobs, queue.OrderCollection, r.dispatch(StatusProcessingOrders, r.handleCollectShopOrders), concurrency, baseBackoff, r.log),
		queue.NewConsumer(r.jobs, queue.OrderDetail, r.dispatch(StatusProcessingDetails, r.handleProcessOrderDetails), concurrency, baseBackoff, r.log),
		queue.NewConsumer(r.jobs, queue.ShipmentInfo, r.dispatch(StatusProcessingShipment, r.handleProcessShipmentInfo), concurrency, baseBackoff, r.log),
		queue.NewConsumer(r.jobs, queue.Inventory, r.dispatch(StatusUpdatingInventory, r.handleUpdateInventory), concurrency, baseBackoff, r.log),
	}

	done := make(chan struct{})
	for _, c := range consumers {
		go func(c *queue.Consumer) {
			c.Run(ctx)
			done <- struct{}{}
		}(c)
	}
	for range consumers {
		<-done
	}
}

// dispatch wraps a handler with the activeJobs counter and status update
// spec.md §4.8 requires around every handler invocation. Handler failures
// propagate unchanged so the queue records the attempt and retries.
func (r *Runtime) dispatch(status Status, handler queue.Handler) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		atomic.AddInt64(&r.activeJobs, 1)
		r.status.Store(status)
		defer func() {
			atomic.AddInt64(&r.activeJobs, -1)
			if atomic.LoadInt64(&r.activeJobs) == 0 {
				r.status.Store(StatusIdle)
			}
		}()
		return handler(ctx, job)
	}
}

func (r *Runtime) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.heartbeat(Heartbeat{
				Status:     r.status.Load().(Status),
				ActiveJobs: atomic.LoadInt64(&r.activeJobs),
			})
		}
	}
}

// resolveShop implements spec.md §4.8's resilient lookup: try by internal
// shop key first, then fall back to a lookup by marketplace shop id when
// the key is empty or the direct lookup misses.
func (r *Runtime) resolveShop(ctx context.Context, shopKey string, marketplaceShopID int64) (models.Shop, error) {
	if shopKey != "" {
		if shop, err := r.shops.GetByKey(ctx, shopKey); err == nil {
			return shop, nil
		}
	}
	return r.shops.GetByMarketplaceShopID(ctx, marketplaceShopID)
}

func (r *Runtime) handleCollectShopOrders(ctx context.Context, job queue.Job) error {
	var payload scheduler.CollectShopOrdersPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("workerrt: decode collect-shop-orders payload: %w", err)
	}

	shop, err := r.resolveShop(ctx, payload.ShopKey, payload.MarketplaceShopID)
	if err != nil {
		return fmt.Errorf("workerrt: resolve shop: %w", err)
	}

	stats, err := r.orchestrator.Run(ctx, shop.Key)
	if err != nil {
		return err
	}
	r.log.Info("workerrt: shop collection complete", "shop_key", shop.Key, "total", stats.Total, "success", stats.Success, "failed", stats.Failed)
	return nil
}

// ManualCollectPayload is the job body decoded by the order-detail,
// shipment-info and inventory handlers. Manual collect jobs from the
// operator HTTP surface go to the order-collection queue and are decoded
// by handleCollectShopOrders as scheduler.CollectShopOrdersPayload.
type ManualCollectPayload struct {
	ShopKey           string `json:"shop_key"`
	MarketplaceShopID int64  `json:"marketplace_shop_id"`
}

func (r *Runtime) handleProcessOrderDetails(ctx context.Context, job queue.Job) error {
	var payload ManualCollectPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("workerrt: decode process-order-details payload: %w", err)
	}
	shop, err := r.resolveShop(ctx, payload.ShopKey, payload.MarketplaceShopID)
	if err != nil {
		return fmt.Errorf("workerrt: resolve shop: %w", err)
	}
	_, err = r.orchestrator.Run(ctx, shop.Key)
	return err
}

func (r *Runtime) handleProcessShipmentInfo(ctx context.Context, job queue.Job) error {
	var payload ManualCollectPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("workerrt: decode process-shipment-info payload: %w", err)
	}
	shop, err := r.resolveShop(ctx, payload.ShopKey, payload.MarketplaceShopID)
	if err != nil {
		return fmt.Errorf("workerrt: resolve shop: %w", err)
	}
	_, err = r.orchestrator.Run(ctx, shop.Key)
	return err
}

// handleUpdateInventory is the optional handler named in spec.md §4.8. No
// inventory feed is specified beyond order ingestion, so this currently
// just resolves the shop and logs — a placeholder wired to the queue so a
// future inventory job body has somewhere to land without a routing change.
func (r *Runtime) handleUpdateInventory(ctx context.Context, job queue.Job) error {
	var payload ManualCollectPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("workerrt: decode update-inventory payload: %w", err)
	}
	if _, err := r.resolveShop(ctx, payload.ShopKey, payload.MarketplaceShopID); err != nil {
		return fmt.Errorf("workerrt: resolve shop: %w", err)
	}
	r.log.Info("workerrt: update-inventory handler invoked", "shop_key", payload.ShopKey)
	return nil
}
