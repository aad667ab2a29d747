// Package main provides the entry point for the API server.
package main

import (
	"log/slog"
	"os"

	"github.com/launchdeck/launchdeck/internal/api"
	"github.com/launchdeck/launchdeck/internal/auth"
	"github.com/launchdeck/launchdeck/internal/gitinspect"
	"github.com/launchdeck/launchdeck/internal/logs"
	"github.com/launchdeck/launchdeck/internal/orchestrator"
	"github.com/launchdeck/launchdeck/internal/provider"
	"github.com/launchdeck/launchdeck/internal/secrets"
	"github.com/launchdeck/launchdeck/internal/shutdown"
	pgstore "github.com/launchdeck/launchdeck/internal/store/postgres"
	"github.com/launchdeck/launchdeck/pkg/config"
	"github.com/launchdeck/launchdeck/pkg/logger"
)

func main() {
	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storeCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
	store, err := pgstore.NewPostgresStore(storeCfg, log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	vercelCfg := cfg.Providers["vercel"]
	netlifyCfg := cfg.Providers["netlify"]
	registry := provider.NewRegistry(
		provider.NewVercelAdapter(vercelCfg.BaseURL, vercelCfg.Token, log.Logger),
		provider.NewNetlifyAdapter(netlifyCfg.BaseURL, netlifyCfg.Token, log.Logger),
	)

	var inspector gitinspect.Inspector
	if cfg.RepoDir != "" {
		inspector = gitinspect.NewExecInspector(cfg.RepoDir, log.Logger)
	}

	var secretsSvc *secrets.Service
	if cfg.Secrets.AgePublicKey != "" || cfg.Secrets.AgePrivateKey != "" {
		secretsSvc, err = secrets.NewService(&secrets.Config{
			PublicKey:  cfg.Secrets.AgePublicKey,
			PrivateKey: cfg.Secrets.AgePrivateKey,
		}, log.Logger)
		if err != nil {
			log.Error("failed to initialize secrets service", "error", err)
			os.Exit(1)
		}
		log.Info("secrets service initialized",
			"can_encrypt", secretsSvc.CanEncrypt(),
			"can_decrypt", secretsSvc.CanDecrypt(),
		)
	} else {
		log.Warn("age keys not configured, environment variable updates will be rejected")
	}

	broker := logs.NewBroker(log.Logger)
	orch := orchestrator.NewService(
		store,
		registry,
		inspector,
		secretsSvc,
		broker,
		orchestrator.NewClock(),
		&orchestrator.Config{
			ResolveInterval: cfg.Orchestrator.ResolveInterval,
			ResolveTimeout:  cfg.Orchestrator.ResolveTimeout,
			HistoryLimit:    cfg.Orchestrator.HistoryLimit,
		},
		log.Logger,
	)

	authService := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, log.Logger)

	server := api.NewServer(cfg, store, registry, orch, authService, log.Logger)

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("store", store))
	coordinator.Register(shutdown.NewServerComponent("api", server))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		if err := <-errCh; err != nil {
			log.Error("server error", "error", err)
			coordinator.Shutdown()
		}
	}()

	go coordinator.WaitForSignal()
	coordinator.Wait()
	log.Info("server stopped")
	os.Exit(coordinator.ExitCode())
}
