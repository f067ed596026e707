// Package scheduler runs the single OrderScheduler instance described in
// spec.md §4.7: on each cron tick it fans out one collect-shop-orders job
// per active shop onto the queue. It never runs the orchestrator directly —
// a worker does that — so the scheduler process can stay lightweight and
// a single instance is enough regardless of how many workers are scaled out.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shopee-ingest/internal/models"
	"shopee-ingest/internal/queue"
	"shopee-ingest/internal/shoprepo"
)

// CollectShopOrdersPayload is the job body enqueued for each shop.
type CollectShopOrdersPayload struct {
	ShopKey           string `json:"shop_key"`
	MarketplaceShopID int64  `json:"marketplace_shop_id"`
}

// Scheduler owns the cron trigger and the isRunning/currentJobs single-flight
// guard from spec.md §4.7.
type Scheduler struct {
	shops   *shoprepo.Repository
	jobs    *queue.Client
	sandbox bool
	log     *slog.Logger

	cron *cron.Cron

	mu          sync.Mutex
	isRunning   bool
	currentJobs map[int64]struct{}
}

// New constructs a Scheduler. sandbox is the process-level runtime flag
// shops are filtered against (spec.md §4.7's "sandbox flag must match the
// runtime's").
func New(shops *shoprepo.Repository, jobs *queue.Client, sandbox bool, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		shops:       shops,
		jobs:        jobs,
		sandbox:     sandbox,
		log:         log,
		cron:        cron.New(),
		currentJobs: make(map[int64]struct{}),
	}
}

// Start registers the cron trigger, performs one immediate pass, and starts
// the scheduler loop. The returned error is non-nil only for a malformed
// cron expression.
func (s *Scheduler) Start(ctx context.Context, cronExpression string) error {
	_, err := s.cron.AddFunc(cronExpression, func() { s.tick(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", "component", "scheduler", "cron", cronExpression)

	go s.tick(ctx)
	return nil
}

// Stop stops the cron trigger and blocks until any cron-triggered tick in
// flight has finished dispatching. The immediate pass started by Start is
// not waited for.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped", "component", "scheduler")
}

// tick implements the single-flight guard: if a previous tick's fan-out is
// still in flight, this tick is skipped entirely.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		s.log.Warn("scheduler: tick skipped, previous run still in flight", "component", "scheduler")
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	shops, err := s.shops.ListActiveShops(ctx, s.sandbox)
	if err != nil {
		s.log.Error("scheduler: list active shops failed", "component", "scheduler", "error", err)
		return
	}

	for _, shop := range shops {
		s.enqueueShop(ctx, shop)
	}
}

func (s *Scheduler) enqueueShop(ctx context.Context, shop models.Shop) {
	s.mu.Lock()
	if _, inFlight := s.currentJobs[shop.MarketplaceShopID]; inFlight {
		s.mu.Unlock()
		s.log.Debug("scheduler: shop already has a job in flight, skipping", "component", "scheduler", "marketplace_shop_id", shop.MarketplaceShopID)
		return
	}
	s.currentJobs[shop.MarketplaceShopID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.currentJobs, shop.MarketplaceShopID)
		s.mu.Unlock()
	}()

	// Dedup is scoped to (queue, jobName): the job name must carry the shop
	// id, or every shop after the first in a tick collides on one dedup key
	// and is silently dropped.
	jobName := fmt.Sprintf("collect-shop-orders:%d", shop.MarketplaceShopID)

	_, err := s.jobs.Enqueue(ctx, queue.OrderCollection, jobName, CollectShopOrdersPayload{
		ShopKey:           shop.Key,
		MarketplaceShopID: shop.MarketplaceShopID,
	}, queue.EnqueueOptions{
		MaxAttempts: 3,
		BaseBackoff: time.Second,
		Dedup:       true,
	})
	if err != nil && err != queue.ErrDuplicate {
		s.log.Error("scheduler: enqueue collect-shop-orders failed", "component", "scheduler", "marketplace_shop_id", shop.MarketplaceShopID, "error", err)
	}
}
