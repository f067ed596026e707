package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopee-ingest/internal/cache"
	"shopee-ingest/internal/config"
	"shopee-ingest/internal/httpapi"
	"shopee-ingest/internal/orderrepo"
	"shopee-ingest/internal/queue"
	"shopee-ingest/internal/search"
	"shopee-ingest/internal/shoprepo"
	"shopee-ingest/internal/signer"
	"shopee-ingest/internal/shopeeclient"
	"shopee-ingest/internal/tokenmanager"
	"shopee-ingest/internal/orchestrator"
	"shopee-ingest/internal/tracing"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	// ── Infrastructure ──────────────────────────────────────────────────

	shutdownTracing, err := tracing.Init("shopee-ingest-api")
	if err != nil {
		slog.Error("tracing init failed", "component", "api", "error", err)
		os.Exit(1)
	}

	shops, err := shoprepo.Connect(cfg.PostgresDSN(), cfg.DBPoolSize)
	if err != nil {
		slog.Error("postgres connect failed", "component", "api", "error", err)
		os.Exit(1)
	}

	orders := orderrepo.New(shops.DB())

	redisCache, err := cache.New(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("redis cache connect failed", "component", "api", "error", err)
		os.Exit(1)
	}

	jobs, err := queue.New(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("redis queue connect failed", "component", "api", "error", err)
		os.Exit(1)
	}

	var searchClient *search.Client
	if cfg.ElasticsearchURL != "" {
		searchClient, err = search.New(cfg.ElasticsearchURL)
		if err != nil {
			slog.Error("elasticsearch init failed", "component", "api", "error", err)
			os.Exit(1)
		}
	}

	s := signer.New(cfg.ShopeePartnerID, cfg.ShopeePartnerKey)
	shopeeAPI := shopeeclient.New(cfg.ShopeeBaseURL(cfg.ShopeeIsSandbox), s)
	tokens := tokenmanager.New(shopeeAPI, shops)
	orch := orchestrator.New(shops, orders, shopeeAPI, tokens, searchClient, redisCache, cfg.MaxRetryCount, slog.Default())

	// ── HTTP server ──────────────────────────────────────────────────────

	h := &httpapi.Handler{
		Orders: orch,
		Jobs:   jobs,
		Log:    slog.Default(),
	}
	if searchClient != nil {
		h.Search = searchClient
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         cfg.APIHost + ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api started", "component", "api", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "component", "api", "error", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received", "component", "api")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "component", "api", "error", err)
	}

	tracingCtx, tracingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer tracingCancel()
	if err := shutdownTracing(tracingCtx); err != nil {
		slog.Error("tracing shutdown error", "component", "api", "error", err)
	}

	redisCache.Close()
	jobs.Close()
	shops.Close()

	slog.Info("shutdown complete", "component", "api")
}
