package main

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"shopee-ingest/internal/cache"
	"shopee-ingest/internal/config"
	"shopee-ingest/internal/orchestrator"
	"shopee-ingest/internal/orderrepo"
	"shopee-ingest/internal/queue"
	"shopee-ingest/internal/search"
	"shopee-ingest/internal/shopeeclient"
	"shopee-ingest/internal/shoprepo"
	"shopee-ingest/internal/signer"
	"shopee-ingest/internal/tokenmanager"
	"shopee-ingest/internal/tracing"
	"shopee-ingest/internal/workerrt"

	"os/signal"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	// ── Infrastructure ──────────────────────────────────────────────────

	shutdownTracing, err := tracing.Init("shopee-ingest-worker")
	if err != nil {
		slog.Error("tracing init failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	shops, err := shoprepo.Connect(cfg.PostgresDSN(), cfg.DBPoolSize)
	if err != nil {
		slog.Error("postgres connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	orders := orderrepo.New(shops.DB())

	redisCache, err := cache.New(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("redis cache connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	jobs, err := queue.New(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("redis queue connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	var searchClient *search.Client
	if cfg.ElasticsearchURL != "" {
		searchClient, err = search.New(cfg.ElasticsearchURL)
		if err != nil {
			slog.Error("elasticsearch init failed", "component", "worker", "error", err)
			os.Exit(1)
		}
	}

	s := signer.New(cfg.ShopeePartnerID, cfg.ShopeePartnerKey)
	shopeeAPI := shopeeclient.New(cfg.ShopeeBaseURL(cfg.ShopeeIsSandbox), s)
	tokens := tokenmanager.New(shopeeAPI, shops)
	orch := orchestrator.New(shops, orders, shopeeAPI, tokens, searchClient, redisCache, cfg.MaxRetryCount, slog.Default())

	runtime := workerrt.New(shops, orch, jobs, func(hb workerrt.Heartbeat) {
		slog.Info("worker heartbeat", "component", "worker", "status", hb.Status, "active_jobs", hb.ActiveJobs)
	}, slog.Default())

	// ── Run ────────────────────────────────────────────────────────────
	//
	// ctx is cancelled on SIGINT/SIGTERM, which stops every queue consumer
	// after its current job finishes before we close connections.

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker started", "component", "worker", "concurrency", cfg.JobConcurrency)
	runtime.Run(ctx, cfg.JobConcurrency, time.Second)

	// ── Graceful shutdown ────────────────────────────────────────────────
	//
	// Run() has returned — every consumer loop is done. Close connections in
	// reverse init order.

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracing shutdown error", "component", "worker", "error", err)
	}

	jobs.Close()
	redisCache.Close()
	shops.Close()

	slog.Info("worker stopped", "component", "worker")
}
