package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/portfolios-backend/internal/cli"
	"github.com/angelmondragon/portfolios-backend/internal/portfolios"
	"github.com/angelmondragon/portfolios-backend/pkg/config"
	"github.com/angelmondragon/portfolios-backend/pkg/db"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/metrics"
	"github.com/angelmondragon/portfolios-backend/pkg/migrate"
)

const serviceName = "portfolios-cli"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCmd(bootstrap)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context) (cli.Lifecycle, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = "cli"

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap database: %w", err)
	}
	closeFn := func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("run dev migrations: %w", err)
	}

	opts, err := portfolios.OptionsFromConfig(cfg.Lifecycle)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	svc, err := portfolios.Build(logg, dbClient, metrics.NewLifecycleMetrics(prometheus.NewRegistry()), opts, nil)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("build portfolio service: %w", err)
	}
	return svc, closeFn, nil
}
