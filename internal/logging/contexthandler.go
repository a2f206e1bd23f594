package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes to attach to every record, typically
// live flight metadata such as the flight id and vehicle class.
type ContextProvider func() []slog.Attr

// ContextHandler decorates records with attributes from a ContextProvider
// before delegating to the wrapped handler.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler wraps a handler so that every record carries the
// attributes returned by provider at handle time.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (c *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.inner.Enabled(ctx, level)
}

func (c *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if c.provider != nil {
		if attrs := c.provider(); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return c.inner.Handle(ctx, r)
}

func (c *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: c.inner.WithAttrs(attrs), provider: c.provider}
}

func (c *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: c.inner.WithGroup(name), provider: c.provider}
}
