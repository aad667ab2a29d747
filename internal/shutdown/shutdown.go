// Package shutdown coordinates graceful termination of the deploy engine.
// Components register in dependency order and are stopped in reverse, so the
// API server drains before the store closes underneath it.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout bounds how long shutdown may take before giving up.
const DefaultTimeout = 30 * time.Second

// Component is anything the coordinator can stop.
type Component interface {
	// Name identifies the component in logs.
	Name() string
	// Shutdown stops the component, returning within the context deadline.
	Shutdown(ctx context.Context) error
}

// Coordinator stops registered components in reverse registration order when
// a termination signal arrives or Shutdown is called directly.
type Coordinator struct {
	mu         sync.Mutex
	components []Component
	timeout    time.Duration
	logger     *slog.Logger

	signalCh chan os.Signal

	once     sync.Once
	done     chan struct{}
	exitCode int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shutdown timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) { c.timeout = timeout }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithSignalChannel injects a signal channel so tests can trigger shutdown
// without sending a real signal.
func WithSignalChannel(ch chan os.Signal) Option {
	return func(c *Coordinator) { c.signalCh = ch }
}

// NewCoordinator creates a shutdown coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a component. Register dependencies first; they stop last.
func (c *Coordinator) Register(component Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component)
}

// WaitForSignal blocks until SIGINT or SIGTERM, then runs shutdown.
func (c *Coordinator) WaitForSignal() {
	sigCh := c.signalCh
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}

	sig := <-sigCh
	c.logger.Info("received shutdown signal", "signal", sig)
	c.Shutdown()
}

// Shutdown stops every registered component in reverse order. A component
// failure is logged and does not stop the remaining components. Safe to call
// more than once; only the first call does the work.
func (c *Coordinator) Shutdown() {
	c.once.Do(func() {
		c.logger.Info("shutting down", "timeout", c.timeout)

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		c.mu.Lock()
		components := make([]Component, len(c.components))
		copy(components, c.components)
		c.mu.Unlock()

		for i := len(components) - 1; i >= 0; i-- {
			component := components[i]
			if ctx.Err() != nil {
				c.logger.Warn("shutdown timeout exceeded", "remaining", i+1)
				c.exitCode = 1
				break
			}
			if err := component.Shutdown(ctx); err != nil {
				c.logger.Error("component shutdown failed",
					"name", component.Name(),
					"error", err,
				)
				c.exitCode = 1
				continue
			}
			c.logger.Debug("component stopped", "name", component.Name())
		}

		close(c.done)
	})
}

// Wait blocks until shutdown completes.
func (c *Coordinator) Wait() {
	<-c.done
}

// ExitCode is 0 after a clean shutdown, 1 when any component failed or the
// timeout was exceeded.
func (c *Coordinator) ExitCode() int {
	return c.exitCode
}
