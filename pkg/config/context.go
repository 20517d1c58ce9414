package config

import (
	"context"
)

// ContextKey is an alias used for storing values in context
type ContextKey string

const (
	// ManagerCtxKey is the context key used to store the *Manager instance
	ManagerCtxKey ContextKey = "config_manager"
)

// ContextWithManager stores the configuration manager in the context
func ContextWithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ManagerCtxKey, m)
}

// ManagerFromContext retrieves the configuration manager from the context.
// There is intentionally no process-wide fallback manager; callers that
// need configuration must construct a Manager and attach it explicitly.
func ManagerFromContext(ctx context.Context) *Manager {
	if ctx == nil {
		return nil
	}
	if m, ok := ctx.Value(ManagerCtxKey).(*Manager); ok && m != nil {
		return m
	}
	return nil
}

// FromContext returns the active configuration (*Config) for the provided
// context, or nil when no manager is attached.
func FromContext(ctx context.Context) *Config {
	m := ManagerFromContext(ctx)
	if m == nil {
		return nil
	}
	return m.Get()
}
