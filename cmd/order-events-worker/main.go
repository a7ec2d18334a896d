package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/portfolios-backend/internal/portfolios"
	"github.com/angelmondragon/portfolios-backend/internal/purchases"
	"github.com/angelmondragon/portfolios-backend/pkg/config"
	"github.com/angelmondragon/portfolios-backend/pkg/db"
	"github.com/angelmondragon/portfolios-backend/pkg/idempotency"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/metrics"
	"github.com/angelmondragon/portfolios-backend/pkg/migrate"
	"github.com/angelmondragon/portfolios-backend/pkg/pubsub"
	"github.com/angelmondragon/portfolios-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "order-events-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "order-events-worker"

	logg = logger.New(logger.Options{
		ServiceName: "order-events-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.OrdersSubscription,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	subscription := pubsubClient.OrdersSubscription()
	if subscription == nil {
		logg.Error(ctx, "orders subscription not configured", errors.New("missing orders subscription"))
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	opts, err := portfolios.OptionsFromConfig(cfg.Lifecycle)
	if err != nil {
		logg.Error(ctx, "invalid lifecycle config", err)
		os.Exit(1)
	}
	portfolioService, err := portfolios.Build(logg, dbClient, metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer), opts, nil)
	if err != nil {
		logg.Error(ctx, "failed to create portfolio service", err)
		os.Exit(1)
	}

	consumer, err := purchases.NewConsumer(purchases.ConsumerParams{
		Logger:       logg,
		Subscription: subscription,
		Recorder:     portfolioService,
		Idempotency:  manager,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order events consumer", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting order events worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "order events worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "order events worker shutting down gracefully")
}
