package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/okuznetsov/balance-service/internal/api/handlers"
	"github.com/okuznetsov/balance-service/internal/auth"
	"github.com/okuznetsov/balance-service/internal/config"
	"github.com/okuznetsov/balance-service/internal/metrics"
	"github.com/okuznetsov/balance-service/internal/middleware"
	"github.com/okuznetsov/balance-service/internal/services"
)

func NewRouter(cfg config.Config, ledger *services.LedgerService, query *services.QueryService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	var tm *auth.TokenManager
	if cfg.AuthSecret != "" {
		tm = auth.NewTokenManager(cfg.AuthSecret, 15*time.Minute)
	}

	lh := handlers.NewLedgerHandler(ledger, slog.Default())
	qh := handlers.NewQueryHandler(query, slog.Default())

	r.Route("/api", func(r chi.Router) {
		// mutations, optionally behind bearer auth
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tm))
			r.Post("/change-balance", lh.ChangeBalance)
			r.Post("/make-transfer", lh.MakeTransfer)
		})

		r.Get("/get-balance/{user_id}", qh.GetBalance)
		r.Get("/get-balance/{user_id}/currency={currency}", qh.GetBalance)
		r.Get("/get-transactions/{user_id}", qh.GetTransactions)
		r.Get("/get-transactions/{user_id}/sort_by={sort_by}", qh.GetTransactions)
	})

	return r
}
