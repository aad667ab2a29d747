package shutdown

import (
	"context"
	"io"
)

// Shutdowner matches the api server's graceful shutdown signature.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ServerComponent wraps the API server for coordinated shutdown. It stops
// accepting connections and drains in-flight requests.
type ServerComponent struct {
	name   string
	server Shutdowner
}

// NewServerComponent creates a server shutdown component.
func NewServerComponent(name string, server Shutdowner) *ServerComponent {
	return &ServerComponent{name: name, server: server}
}

func (c *ServerComponent) Name() string { return c.name }

func (c *ServerComponent) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

// CloserComponent wraps an io.Closer, typically the store.
type CloserComponent struct {
	name   string
	closer io.Closer
}

// NewCloserComponent creates a closer shutdown component.
func NewCloserComponent(name string, closer io.Closer) *CloserComponent {
	return &CloserComponent{name: name, closer: closer}
}

func (c *CloserComponent) Name() string { return c.name }

func (c *CloserComponent) Shutdown(ctx context.Context) error {
	return c.closer.Close()
}

// FuncComponent wraps a plain function.
type FuncComponent struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncComponent creates a function-based shutdown component.
func NewFuncComponent(name string, fn func(ctx context.Context) error) *FuncComponent {
	return &FuncComponent{name: name, fn: fn}
}

func (c *FuncComponent) Name() string { return c.name }

func (c *FuncComponent) Shutdown(ctx context.Context) error {
	return c.fn(ctx)
}
