// Package daemon runs PSA's long-lived components in dependency order and
// stops them in reverse on shutdown.
package daemon

import (
	"context"
)

// HealthStatus is the daemon-wide lifecycle state.
type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	// StatusDegraded means the daemon is serving but the last health sweep
	// found at least one unhealthy component.
	StatusDegraded HealthStatus = "degraded"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// Healthy reports name as healthy.
func Healthy(name string) *ComponentHealth {
	return &ComponentHealth{Name: name, Healthy: true}
}

// Unhealthy reports name as failing with err.
func Unhealthy(name string, err error) *ComponentHealth {
	return &ComponentHealth{Name: name, Error: err}
}

// Component is one unit of the daemon. Init runs for every component, in
// dependency order, before any Start. Stop must be safe to call on a component
// whose Start never ran.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
