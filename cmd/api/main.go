package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okuznetsov/balance-service/internal/api"
	"github.com/okuznetsov/balance-service/internal/config"
	"github.com/okuznetsov/balance-service/internal/db"
	"github.com/okuznetsov/balance-service/internal/logger"
	"github.com/okuznetsov/balance-service/internal/metrics"
	"github.com/okuznetsov/balance-service/internal/rates"
	"github.com/okuznetsov/balance-service/internal/repository"
	"github.com/okuznetsov/balance-service/internal/repository/memory"
	"github.com/okuznetsov/balance-service/internal/repository/postgres"
	"github.com/okuznetsov/balance-service/internal/services"
	"github.com/okuznetsov/balance-service/internal/worker"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DATABASE_URL=memory runs against the in-process store, for demos
	// and local development without Postgres.
	var store repository.Store
	if cfg.DatabaseURL == "memory" {
		store = memory.NewStore()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				log.Error("migrations", "err", err)
				os.Exit(1)
			}
		}
		store = postgres.NewStore(pool)
	}

	var rateCache *redis.Client
	if cfg.RedisAddr != "" {
		rateCache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rateCache.Close()
	}

	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	provider := rates.NewClient(cfg.RatesURL, cfg.RatesTimeout, rateCache, cfg.RatesCacheTTL, log)
	ledgerSvc := services.NewLedgerService(store, wp, cfg.LazyCreate, log)
	querySvc := services.NewQueryService(store, provider, cfg.BaseCurrency, log)

	metrics.Init()
	r := api.NewRouter(cfg, ledgerSvc, querySvc)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "lazy_create", cfg.LazyCreate)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
