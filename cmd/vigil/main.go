// Command vigil aggregates adverse-event drug data from multiple
// public sources into one unified, locally stored list.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/pharmos-labs/vigil-cli/internal/adapters/driven/config/file"
	"github.com/pharmos-labs/vigil-cli/internal/adapters/driven/storage/memory"
	"github.com/pharmos-labs/vigil-cli/internal/adapters/driven/storage/sqlite"
	"github.com/pharmos-labs/vigil-cli/internal/adapters/driving/cli"
	"github.com/pharmos-labs/vigil-cli/internal/config"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
	"github.com/pharmos-labs/vigil-cli/internal/core/services"
	"github.com/pharmos-labs/vigil-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vigil: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	sourceStore, err := file.NewSourceStore(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("opening source configuration: %w", err)
	}

	entryStore, err := newEntryStore(cfg)
	if err != nil {
		return fmt.Errorf("opening entry storage: %w", err)
	}
	defer entryStore.Close()

	executor := services.NewSafeExecutor(log)

	regOpts := []services.RegistryOption{
		services.WithRetryPolicy(domain.RetryPolicy{
			Attempts:          cfg.Retry.Attempts,
			MinWait:           cfg.Retry.MinWait,
			MaxWait:           cfg.Retry.MaxWait,
			Multiplier:        2,
			PerAttemptTimeout: cfg.Retry.PerAttemptTimeout,
		}),
	}
	if cfg.Breaker.Enabled {
		regOpts = append(regOpts, services.WithCircuitBreaker())
	}

	registry := services.NewSourceRegistry(log, executor, regOpts...)
	if err := registry.Load(context.Background(), sourceStore); err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}
	defer registry.Close()

	manager := services.NewIngestionManager(log, registry, sourceStore,
		services.WithEntryStore(entryStore),
		services.WithMaxConcurrent(cfg.Fetch.MaxConcurrent),
	)

	cli.Configure(cli.Dependencies{
		Manager:    manager,
		EntryStore: entryStore,
		Version:    version,
	})

	if err := cli.Execute(); err != nil {
		log.Debug("command failed", zap.Error(err))
		return err
	}
	return nil
}

func newEntryStore(cfg *config.Config) (driven.EntryStore, error) {
	if cfg.Storage.Backend == "memory" {
		return memory.NewEntryStore(), nil
	}
	return sqlite.NewEntryStore(cfg.DataDir)
}
