// Package gateway wraps a textual completion provider with the resilience
// layer every enrichment call goes through: per-call timeouts, retry with
// jittered exponential backoff, and a circuit breaker.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aguntuk/jobora/internal/model"
)

// Config tunes the resilience behavior. Zero values fall back to defaults.
type Config struct {
	MaxRetries       int           // additional attempts after the first (default 3)
	BaseDelay        time.Duration // first backoff delay (default 1s)
	MaxDelay         time.Duration // backoff cap (default 30s)
	CallTimeout      time.Duration // per-attempt timeout (default 30s)
	FailureThreshold int           // consecutive failures before opening (default 5)
	RecoveryTimeout  time.Duration // open-state cooldown (default 60s)
}

func (c Config) withDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	return c
}

// Gateway is the single client for the completion capability. Safe for
// concurrent use; breaker state mutation is serialized internally.
type Gateway struct {
	provider Provider
	cfg      Config
	breaker  *breaker
	logger   *slog.Logger
}

// New wraps provider with retry, timeout and circuit-breaker behavior.
func New(provider Provider, cfg Config, logger *slog.Logger) *Gateway {
	cfg = cfg.withDefaults()
	return &Gateway{
		provider: provider,
		cfg:      cfg,
		breaker:  newBreaker(cfg.FailureThreshold, cfg.RecoveryTimeout),
		logger:   logger,
	}
}

// State returns the current circuit state.
func (g *Gateway) State() State {
	return g.breaker.currentState()
}

// Complete sends the request through the resilience layer and returns the
// raw reply text.
//
// Classification: auth failures (401/403) abort immediately without retry
// but still count against the breaker; timeouts and transient errors are
// retried up to MaxRetries times with delay min(BaseDelay×2^attempt,
// MaxDelay) jittered ±25%; an open circuit fails fast with ErrUnavailable
// and no network call.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if err := g.breaker.allow(); err != nil {
			return "", err
		}

		reply, err := g.attempt(ctx, req)
		if err == nil {
			g.breaker.success()
			return reply, nil
		}

		g.breaker.failure()
		lastErr = err

		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsAuthError() {
			return "", fmt.Errorf("completion auth failure: %w", err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("completion cancelled: %w", ctx.Err())
		}

		if attempt == g.cfg.MaxRetries {
			break
		}

		delay := g.backoffDelay(attempt)
		g.logger.Warn("completion attempt failed, retrying",
			"attempt", attempt+1,
			"max_retries", g.cfg.MaxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("completion retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", g.cfg.MaxRetries+1, lastErr)
}

// attempt runs one provider call bounded by the per-call timeout. A timeout
// cancels the in-flight request rather than abandoning it.
func (g *Gateway) attempt(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	reply, err := g.provider.Complete(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("completion timed out after %v: %w", g.cfg.CallTimeout, err)
		}
		return "", err
	}
	return reply, nil
}

// backoffDelay computes min(BaseDelay×2^attempt, MaxDelay) with ±25% jitter,
// clamped to MaxDelay.
func (g *Gateway) backoffDelay(attempt int) time.Duration {
	delay := g.cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= g.cfg.MaxDelay {
			delay = g.cfg.MaxDelay
			break
		}
	}

	jitter := float64(delay) * 0.25
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
	if delay > g.cfg.MaxDelay {
		delay = g.cfg.MaxDelay
	}
	return delay
}

// IsAuthError reports whether err stems from a 401/403 provider response.
func IsAuthError(err error) bool {
	var httpErr *model.HTTPError
	return errors.As(err, &httpErr) && httpErr.IsAuthError()
}
