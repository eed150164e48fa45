// Package upstream wraps outbound HTTP calls to third-party services behind a
// circuit breaker, so a failing dependency is cut off quickly instead of
// stalling every request that needs it.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrNotConfigured is returned when the upstream has no base URL.
var ErrNotConfigured = errors.New("upstream not configured")

// BreakerSettings controls when the breaker trips and how long it stays open.
type BreakerSettings struct {
	MaxFailures uint32
	OpenFor     time.Duration
}

// Upstream is one remote JSON API.
type Upstream struct {
	name    string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// New builds an Upstream rooted at base. An empty base is allowed: every call then
// fails with ErrNotConfigured and callers fall back.
func New(name, base string, timeout time.Duration, bs BreakerSettings) *Upstream {
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 3
	}
	if bs.OpenFor <= 0 {
		bs.OpenFor = 30 * time.Second
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: bs.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= bs.MaxFailures
		},
	})

	u := &Upstream{name: name, client: client, breaker: breaker}
	if base == "" {
		u.client = nil
	}
	return u
}

// Name identifies the upstream in logs and metrics.
func (u *Upstream) Name() string { return u.name }

// State exposes the breaker state for readiness reporting.
func (u *Upstream) State() gobreaker.State { return u.breaker.State() }

// GetJSON performs GET path?query and decodes the JSON body into out.
// Transport errors, non-2xx statuses and undecodable bodies all count as failures.
func (u *Upstream) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	if u == nil || u.client == nil {
		return ErrNotConfigured
	}
	_, err := u.breaker.Execute(func() (any, error) {
		resp, err := u.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			return nil, fmt.Errorf("%s request error: %w", u.name, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%s upstream status %d", u.name, resp.StatusCode())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return nil, fmt.Errorf("%s decode error: %w", u.name, err)
		}
		return nil, nil
	})
	return err
}
