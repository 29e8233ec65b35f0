// Package health runs component checks behind the health, readiness and
// liveness endpoints.
package health

import (
	"context"
	"time"
)

// CheckTimeout bounds a single check.
const CheckTimeout = 5 * time.Second

// NewChecker creates a checker reporting version.
func NewChecker(version string) *Checker {
	return &Checker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		version:     version,
		started:     time.Now(),
	}
}

// Register adds a check to the health endpoint.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RegisterReadiness adds a check to both the health and readiness endpoints.
func (c *Checker) RegisterReadiness(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
	c.readyChecks[name] = check
}

// Check runs every registered check.
func (c *Checker) Check(ctx context.Context) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run(ctx, c.checks)
}

// CheckReadiness runs the readiness checks.
func (c *Checker) CheckReadiness(ctx context.Context) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run(ctx, c.readyChecks)
}

// CheckLiveness reports healthy while the process can serve.
func (c *Checker) CheckLiveness() Response {
	return c.response(StatusHealthy, nil)
}

func (c *Checker) run(ctx context.Context, checks map[string]CheckFunc) Response {
	results := make(map[string]Check, len(checks))
	status := StatusHealthy

	for name, fn := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
		start := time.Now()
		check := fn(checkCtx)
		cancel()

		check.Name = name
		check.Duration = time.Since(start)
		check.LastChecked = start
		results[name] = check

		// Worst status wins
		switch {
		case check.Status == StatusUnhealthy:
			status = StatusUnhealthy
		case check.Status == StatusDegraded && status != StatusUnhealthy:
			status = StatusDegraded
		}
	}

	return c.response(status, results)
}

func (c *Checker) response(status Status, checks map[string]Check) Response {
	return Response{
		Status:    status,
		Version:   c.version,
		Timestamp: time.Now(),
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Checks:    checks,
	}
}
