package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"shopee-ingest/internal/config"
	"shopee-ingest/internal/queue"
	"shopee-ingest/internal/scheduler"
	"shopee-ingest/internal/shoprepo"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	// ── Infrastructure ──────────────────────────────────────────────────

	shops, err := shoprepo.Connect(cfg.PostgresDSN(), cfg.DBPoolSize)
	if err != nil {
		slog.Error("postgres connect failed", "component", "scheduler", "error", err)
		os.Exit(1)
	}

	jobs, err := queue.New(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("redis queue connect failed", "component", "scheduler", "error", err)
		os.Exit(1)
	}

	// ── Run ────────────────────────────────────────────────────────────
	//
	// A single scheduler instance fans collect-shop-orders jobs out onto the
	// queue; it never runs the orchestrator itself, so running more than one
	// instance would only double-enqueue work rather than parallelize it.

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(shops, jobs, cfg.ShopeeIsSandbox, slog.Default())
	if err := s.Start(ctx, cfg.CronExpression); err != nil {
		slog.Error("scheduler start failed", "component", "scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutdown signal received", "component", "scheduler")

	s.Stop()

	// ── Graceful shutdown ────────────────────────────────────────────────

	jobs.Close()
	shops.Close()

	slog.Info("shutdown complete", "component", "scheduler")
}
