package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/printhouse/printflow/internal/config"
	invapp "github.com/printhouse/printflow/internal/inventory/application"
	invpg "github.com/printhouse/printflow/internal/inventory/infrastructure/postgres"
	"github.com/printhouse/printflow/internal/order/application"
	orderhttp "github.com/printhouse/printflow/internal/order/infrastructure/http"
	orderpg "github.com/printhouse/printflow/internal/order/infrastructure/postgres"
	"github.com/printhouse/printflow/pkg/logging"
	"github.com/printhouse/printflow/pkg/postgres"
	"github.com/printhouse/printflow/pkg/shutdown"
	"github.com/printhouse/printflow/pkg/tracing"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load("printflow-server")
	log := logging.New(cfg.ServiceName)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	db := postgres.NewDB(pool)

	// Inventory side
	materials := invpg.NewRepository(log)
	compositions := invpg.NewCompositionStore()
	ledger := invapp.NewLedger(log, materials)
	reservations := invapp.NewReservationService(log, materials)
	deduction := invapp.NewAutoDeductionService(log, ledger, materials, compositions)

	// Order side
	orders := orderpg.NewOrderRepository(log)
	items := orderpg.NewLineItemRepository(log)
	chat := orderpg.NewChatOrderRepository(log)
	pool2 := orderpg.NewPoolRepository(log)

	svc := application.NewService(log, db, orders, items, chat, reservations, deduction, ledger, compositions)
	agg := application.NewAggregator(log, db, orders, items, chat, pool2)
	handler := orderhttp.NewHandler(log, svc, agg, ledger, db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/", handler.Routes())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("server shutdown complete")
}
