package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"supplyhub/internal/catalog"
	"supplyhub/internal/config"
	"supplyhub/internal/database"
	"supplyhub/internal/engine"
	"supplyhub/internal/handler"
	"supplyhub/internal/ledger"
	"supplyhub/internal/store"
	"supplyhub/internal/token"
	"supplyhub/internal/worker"
)

func main() {
	cfg := config.New()

	cat := catalog.Load()

	feeRate, err := decimal.NewFromString(cfg.FeeRate)
	if err != nil {
		slog.Error("invalid fee rate", "value", cfg.FeeRate, "error", err)
		os.Exit(1)
	}

	var st store.Store
	if cfg.DatabaseURI != "" {
		db, err := database.NewDB(cfg.DatabaseURI)
		if err != nil {
			slog.Error("failed to connect to DB", "error", err)
			os.Exit(1)
		}
		defer database.CloseDB(context.Background(), db)

		if err := database.InitSchema(db); err != nil {
			slog.Error("failed to init DB schema", "error", err)
			os.Exit(1)
		}
		pg := database.NewPostgres(db)
		if err := pg.SeedSuppliers(context.Background(), cat.Suppliers()); err != nil {
			slog.Error("failed to seed suppliers", "error", err)
			os.Exit(1)
		}
		st = pg
	} else {
		slog.Info("no database URI given, using in-memory store")
		st = store.NewMemory(cat.Suppliers())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ldg, err := ledger.Dial(ctx, ledger.Config{
		RPCURL:        cfg.LedgerURL,
		OperatorKey:   cfg.OperatorKey,
		EscrowAddress: cfg.EscrowContractAddress,
		TokenAddress:  cfg.TokenContractAddress,
		GasMargin:     cfg.GasMargin,
	})
	if err != nil {
		slog.Error("failed to connect to ledger", "url", cfg.LedgerURL, "error", err)
		os.Exit(1)
	}
	defer ldg.Close()

	reb := token.NewRebaser(int32(cfg.CurrencyDecimals), ldg.TokenDecimals)

	eng := engine.New(st, ldg, cat, reb, engine.Config{
		Operator:         ldg.OperatorAddress(),
		FeeRate:          feeRate,
		CurrencyDecimals: int32(cfg.CurrencyDecimals),
		SubmitTimeout:    cfg.SubmitTimeout,
	})

	sweeper := worker.NewSweepWorker(eng, cfg.SweepInterval, cfg.StuckAfter)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/api/customers", handler.RegisterCustomerHandler(st))
	r.Get("/api/customers/{address}", handler.GetCustomerHandler(st))
	r.Get("/api/customers/{address}/orders", handler.ListCustomerOrdersHandler(st, reb))

	r.Get("/api/items", handler.ListItemsHandler(cat))

	r.Post("/api/orders", handler.CreateOrderHandler(eng, reb))
	r.Get("/api/orders/{id}", handler.GetOrderHandler(st, reb))
	r.Post("/api/orders/{id}/confirm", handler.ConfirmOrderHandler(eng, st))
	r.Post("/api/orders/{id}/settle", handler.SettleOrderHandler(eng, st))

	r.Post("/api/funding/nominate", handler.NominateFundingHandler(eng))
	r.Post("/api/funding/cancel", handler.CancelFundingHandler(eng))

	r.Post("/api/mint", handler.MintHandler(eng))

	r.Post("/api/suppliers", handler.RegisterSupplierHandler(st))
	r.Get("/api/suppliers/{address}", handler.GetSupplierHandler(st))
	r.Get("/api/suppliers/{address}/orders", handler.SupplierOrdersHandler(st))
	r.Get("/api/suppliers/id/{supplierID}/parts", handler.SupplierPartsHandler(cat))

	r.Get("/api/chain", handler.ChainHandler(ldg))
	r.Get("/api/chain/contracts/{name}", handler.ContractHandler(ldg))
	r.Get("/api/chain/labels", handler.AddressLabelsHandler(st, cat, ldg))

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go ldg.Run(ctx)
	go eng.Run(ctx)
	go sweeper.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop workers and the event loop
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
