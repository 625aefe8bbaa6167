// Command ciq harvests GSA CALC labour rates into a canonical catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/InfinityXone/construct-iq/internal/adapters/driven/config/env"
	"github.com/InfinityXone/construct-iq/internal/adapters/driven/config/file"
	"github.com/InfinityXone/construct-iq/internal/adapters/driven/metrics/prom"
	"github.com/InfinityXone/construct-iq/internal/adapters/driving/cli"
	"github.com/InfinityXone/construct-iq/internal/connectors/calc"
	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
	"github.com/InfinityXone/construct-iq/internal/core/services"
	"github.com/InfinityXone/construct-iq/internal/logger"
	calcnorm "github.com/InfinityXone/construct-iq/internal/normalisers/calc"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return err
	}

	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	configStore, err := env.New(fileStore)
	if err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := logger.SetFormat(settings.LogFormat); err != nil {
		logger.Warnw("ignoring log format", "format", settings.LogFormat, "error", err)
	}

	store, err := openStore(ctx, settings.DatabaseURL, filepath.Join(configDir, "data"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnw("closing store failed", "error", err)
		}
	}()

	recorder := prom.New()
	connector := calc.New(
		calc.NewConfig(settings.Harvest),
		calc.WithRetryHook(services.RetryReporter(recorder)),
	)
	defer connector.Close()

	normaliser, err := newNormaliser(settings.Harvest.FieldTable)
	if err != nil {
		return err
	}

	harvest := services.NewHarvestService(connector, normaliser, store,
		services.WithHarvestMetrics(recorder),
		services.WithWalkOptions(driven.WalkOptions{
			MaxPages:       settings.Harvest.MaxPages,
			EmptyPageLimit: settings.Harvest.EmptyPageLimit,
		}),
	)

	svc := cli.Services{
		Harvest:  harvest,
		Rates:    services.NewRateService(store),
		Settings: settingsService,
		NewScheduler: func(cfg domain.SchedulerConfig) driving.Scheduler {
			return services.NewScheduler(cfg, store.SchedulerStore(), harvest)
		},
		Metrics: recorder.Handler(),
	}
	if path := settings.Harvest.FieldTable; path != "" {
		svc.WatchFields = func(ctx context.Context) error {
			return calcnorm.Watch(ctx, path, normaliser, func(t *calcnorm.Table, err error) {
				if err != nil {
					logger.Warnw("field table reload failed", "path", path, "error", err)
					return
				}
				logger.Infow("field table reloaded", "path", path, "metadata_keys", len(t.MetadataKeys()))
			})
		}
	}

	cli.SetServices(svc)
	cli.SetVersion(version)
	return cli.Execute(ctx)
}

// resolveConfigDir returns CIQ_CONFIG_DIR or ~/.construct-iq.
func resolveConfigDir() (string, error) {
	if dir := os.Getenv("CIQ_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".construct-iq"), nil
}

func newNormaliser(tablePath string) (*calcnorm.Normaliser, error) {
	if tablePath == "" {
		return calcnorm.New(), nil
	}
	table, err := calcnorm.LoadTableFile(tablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load field table: %w", err)
	}
	n, err := calcnorm.NewWithTable(table)
	if err != nil {
		return nil, fmt.Errorf("invalid field table %s: %w", tablePath, err)
	}
	return n, nil
}
