// Package handler reports liveness and readiness over HTTP and the standard gRPC health protocol.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"identity-gateway/backend/internal/server/response"
)

const defaultCheckTimeout = 2 * time.Second

// Pinger is a dependency whose reachability gates readiness (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

type dependency struct {
	name   string
	pinger Pinger
}

// Checker runs the readiness checks. A Checker with no dependencies is always ready.
type Checker struct {
	deps    []dependency
	timeout time.Duration
}

// NewChecker returns a checker with the default per-check timeout.
func NewChecker() *Checker {
	return &Checker{timeout: defaultCheckTimeout}
}

// Add registers a named dependency. Nil pingers are ignored.
func (c *Checker) Add(name string, p Pinger) *Checker {
	if p != nil {
		c.deps = append(c.deps, dependency{name: name, pinger: p})
	}
	return c
}

// Ready pings every dependency and returns the failures joined, or nil.
func (c *Checker) Ready(ctx context.Context) error {
	var errs []error
	for _, d := range c.deps {
		pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := d.pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		}
	}
	return errors.Join(errs...)
}

type statusResponse struct {
	Status string `json:"status"`
}

// Live handles GET /healthz. It never touches dependencies.
func (c *Checker) Live(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Readiness handles GET /readyz.
func (c *Checker) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := c.Ready(r.Context()); err != nil {
		response.WriteError(w, http.StatusServiceUnavailable, "not ready", response.CodeUnavailable)
		return
	}
	response.JSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
