package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/printhouse/printflow/internal/config"
	"github.com/printhouse/printflow/internal/notification/application"
	notifkafka "github.com/printhouse/printflow/internal/notification/infrastructure/kafka"
	notifpg "github.com/printhouse/printflow/internal/notification/infrastructure/postgres"
	"github.com/printhouse/printflow/pkg/logging"
	"github.com/printhouse/printflow/pkg/passlock"
	"github.com/printhouse/printflow/pkg/postgres"
	"github.com/printhouse/printflow/pkg/shutdown"
	"github.com/printhouse/printflow/pkg/tracing"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load("printflow-notifier")
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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()

	writer := notifkafka.NewWriter(cfg.KafkaBrokers)
	defer func() { _ = writer.Close() }()

	repo := notifpg.NewRepository(log, db)
	sender := notifkafka.NewSender(log, writer, cfg.NotifyTopic)
	engine := application.NewEngine(log, repo, repo, repo, sender)
	lock := passlock.New(rdb, "notifier:pass", cfg.PassLockTTL)
	runner := application.NewRunner(log, engine, lock, cfg.NotifyInterval)

	log.Info("notifier starting", "interval", cfg.NotifyInterval.String())
	if err := runner.Run(ctx); err != nil {
		log.Error("runner stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("notifier shutdown complete")
}
