// Package orchestrator coordinates the deployment lifecycle: it gates new
// deployments on quota, hands them to the hosting provider adapter, tracks
// their state in the store, and drives rollbacks and cancellations.
package orchestrator

import (
	"log/slog"
	"time"

	"github.com/launchdeck/launchdeck/internal/gitinspect"
	"github.com/launchdeck/launchdeck/internal/logs"
	"github.com/launchdeck/launchdeck/internal/provider"
	"github.com/launchdeck/launchdeck/internal/secrets"
	"github.com/launchdeck/launchdeck/internal/store"
)

// Config holds orchestrator tuning knobs.
type Config struct {
	// ResolveInterval is the polling interval for in-flight deployments.
	ResolveInterval time.Duration
	// ResolveTimeout bounds how long a deployment may stay in flight before
	// the resolver gives up and marks it failed.
	ResolveTimeout time.Duration
	// HistoryLimit caps the default deployment history page size.
	HistoryLimit int
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		ResolveInterval: 2 * time.Second,
		ResolveTimeout:  10 * time.Minute,
		HistoryLimit:    20,
	}
}

// Service is the deployment orchestration engine.
type Service struct {
	store     store.Store
	providers *provider.Registry
	inspector gitinspect.Inspector
	secrets   *secrets.Service
	broker    *logs.Broker
	clock     Clock
	cfg       *Config
	logger    *slog.Logger
}

// NewService creates the orchestrator. inspector and secretsSvc may be nil;
// previews then run without git context and environment variables are not
// forwarded to providers.
func NewService(
	s store.Store,
	providers *provider.Registry,
	inspector gitinspect.Inspector,
	secretsSvc *secrets.Service,
	broker *logs.Broker,
	clock Clock,
	cfg *Config,
	logger *slog.Logger,
) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if clock == nil {
		clock = NewClock()
	}
	if broker == nil {
		broker = logs.NewBroker(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     s,
		providers: providers,
		inspector: inspector,
		secrets:   secretsSvc,
		broker:    broker,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Broker exposes the log broker for stream handlers.
func (s *Service) Broker() *logs.Broker {
	return s.broker
}

// monthStart returns midnight UTC on the first day of t's month. Quota usage
// windows reset at this boundary.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
