package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/adapter/rest"
	"github.com/driftfs/driftfs/pkg/auth"
	"github.com/driftfs/driftfs/pkg/config"
	"github.com/driftfs/driftfs/pkg/redirect"
	"github.com/driftfs/driftfs/pkg/server"
	"github.com/driftfs/driftfs/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (default: search standard locations)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	fmt.Println("DriftFS - distributed file storage gateway")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		log.Fatalf("Failed to create metadata store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close metadata store: %v", err)
		}
	}()

	pool, descriptors, err := config.CreateStoragePool(ctx, cfg.Storages)
	if err != nil {
		log.Fatalf("Failed to create storage pool: %v", err)
	}

	// Reseed the configured node descriptors. Upsert preserves the cached
	// used_space of nodes that were already known.
	for _, descriptor := range descriptors {
		if _, err := store.UpsertStorage(ctx, descriptor); err != nil {
			log.Fatalf("Failed to register storage %s: %v", descriptor.ID, err)
		}
		logger.Info("registered storage node %s (%s, capacity %d, priority %d)",
			descriptor.ID, descriptor.URL, descriptor.Capacity, descriptor.Priority)
	}

	sessions := session.New(cfg.Auth.ChallengeTTL, cfg.Auth.MaxChallenges)
	authenticator := auth.NewAuthenticator(store, sessions, auth.Config{
		DefaultStorageLimit: cfg.Auth.DefaultStorageLimit,
		AutoActivate:        cfg.Auth.AutoActivate,
	})
	redirector := redirect.NewRedirector(store, pool)
	handler := rest.NewHandler(authenticator, store, redirector)

	srv := server.New(server.Config{
		ListenAddress:   cfg.Server.ListenAddress,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handler.Routes())

	logger.Info("metadata store: %s", cfg.Metadata.Type)
	logger.Info("storage nodes: %d", len(cfg.Storages))

	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
		logger.Error("server error: %v", err)
		os.Exit(1)
	}
}
