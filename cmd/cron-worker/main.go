package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/portfolios-backend/internal/cron"
	"github.com/angelmondragon/portfolios-backend/internal/portfolios"
	"github.com/angelmondragon/portfolios-backend/pkg/config"
	"github.com/angelmondragon/portfolios-backend/pkg/db"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/metrics"
	"github.com/angelmondragon/portfolios-backend/pkg/migrate"
	"github.com/angelmondragon/portfolios-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run the selected jobs a single time and exit")
	jobs := flag.String("jobs", "", "comma separated job names to run (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	opts, err := portfolios.OptionsFromConfig(cfg.Lifecycle)
	if err != nil {
		logg.Error(context.Background(), "invalid lifecycle config", err)
		os.Exit(1)
	}
	portfolioService, err := portfolios.Build(logg, dbClient, metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer), opts, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create portfolio service", err)
		os.Exit(1)
	}

	jobList, err := cron.DefaultJobs(cron.OperatorJobParams{
		Logger:   logg,
		Operator: portfolioService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron jobs", err)
		os.Exit(1)
	}
	registry, err := cron.NewRegistry(jobList...).Select(splitJobs(*jobs)...)
	if err != nil {
		logg.Error(context.Background(), "invalid -jobs value", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron", lockScope(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        strings.Join(registry.Names(), ","),
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			// per-client failures are retried by the next run
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "cron run finished with failures")
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockScope(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

func splitJobs(value string) []string {
	var names []string
	for _, name := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
