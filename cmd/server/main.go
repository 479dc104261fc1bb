package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/microgridplanner/planner-core/internal/api"
	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/internal/services"
	"github.com/microgridplanner/planner-core/internal/tracing"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

func main() {
	// PLANNER_ENV picks an environment profile on top of the loaded config.
	cfg, err := config.LoadEnvironmentConfig(os.Getenv("PLANNER_ENV"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	logg.Info("starting planner-core",
		"version", config.ServiceVersion,
		"environment", cfg.Environment,
	)

	// Tracing is optional; compute runs are spanned when it is on.
	if cfg.Monitoring.TracingEnabled && cfg.Monitoring.OTLPEndpoint != "" {
		tp, err := tracing.NewTracerProvider(config.ServiceName, config.ServiceVersion, cfg.Monitoring.OTLPEndpoint)
		if err != nil {
			logg.Warn("tracing disabled: provider init failed", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			}()
		}
		tracing.InitGlobalTracer(config.ServiceName)
	}

	valkeyCache, err := cache.New(cfg.Cache.Nodes, cfg.Cache.DB, cfg.Cache.Password, time.Duration(cfg.Cache.TTL)*time.Second)
	if err != nil {
		if cfg.Environment == "production" {
			logg.Fatal("failed to initialize Valkey cache", "error", err)
		}
		logg.Warn("Valkey unavailable, using in-memory cache", "error", err)
		valkeyCache = cache.NewNoopValkeyCluster()
	}
	logg.Info("Valkey cache initialized", "nodes", len(cfg.Cache.Nodes))

	store := repo.NewValkeyStore(
		valkeyCache,
		logg,
		time.Duration(cfg.Compute.JobTTLHours)*time.Hour,
		time.Duration(cfg.Compute.ResultTTLHours)*time.Hour,
	)

	notifications := services.NewNotificationService(cfg.Integrations, logg)
	authService := services.NewAuthService(store, valkeyCache, cfg.Auth, logg)
	computeService := services.NewComputeService(store, valkeyCache, cfg.Compute, notifications, tracing.GetGlobalTracer(), logg)

	apiServer := api.NewServer(cfg, logg, valkeyCache, store, authService, computeService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hot-reload of the config file; only log level changes take effect
	// without a restart.
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		watcher := config.NewConfigWatcher(configPath, logg)
		watcher.RegisterWatcher(func(updated *config.Config) {
			logg.Info("configuration reloaded", "log_level", updated.LogLevel)
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logg.Warn("configuration watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logg.Info("shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		logg.Fatal("server failed", "error", err)
	}

	logg.Info("planner-core shutdown complete")
}
