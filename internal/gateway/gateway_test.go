package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aguntuk/jobora/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProvider calls fn on each invocation, tracking call count.
type mockProvider struct {
	calls int
	fn    func(attempt int) (string, error)
}

func (m *mockProvider) Complete(_ context.Context, _ Request) (string, error) {
	m.calls++
	return m.fn(m.calls)
}

func testConfig() Config {
	return Config{
		MaxRetries:       3,
		BaseDelay:        time.Millisecond,
		MaxDelay:         10 * time.Millisecond,
		CallTimeout:      time.Second,
		FailureThreshold: 5,
		RecoveryTimeout:  time.Minute,
	}
}

func TestComplete_SucceedsFirstAttempt(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return `{"ok":true}`, nil
	}}
	g := New(mock, testConfig(), discardLogger())

	reply, err := g.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != `{"ok":true}` {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestComplete_RetriesTransientThenSucceeds(t *testing.T) {
	mock := &mockProvider{fn: func(attempt int) (string, error) {
		if attempt < 3 {
			return "", &model.HTTPError{StatusCode: 503}
		}
		return "ok", nil
	}}
	g := New(mock, testConfig(), discardLogger())

	reply, err := g.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
}

func TestComplete_ExactlyMaxRetriesPlusOneAttempts(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return "", errors.New("connection reset")
	}}
	cfg := testConfig()
	cfg.FailureThreshold = 100 // keep the breaker out of this test
	g := New(mock, cfg, discardLogger())

	_, err := g.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != cfg.MaxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", cfg.MaxRetries+1, mock.calls)
	}
}

func TestComplete_AuthFailureAbortsWithoutRetry(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 403}
	}}
	g := New(mock, testConfig(), discardLogger())

	_, err := g.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestComplete_AuthFailuresStillCountTowardBreaker(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 401}
	}}
	g := New(mock, testConfig(), discardLogger())

	for i := 0; i < 5; i++ {
		_, _ = g.Complete(context.Background(), Request{})
	}
	if g.State() != StateOpen {
		t.Fatalf("expected open circuit after 5 auth failures, got %s", g.State())
	}
}

func TestComplete_CircuitOpensAndFailsFast(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 500}
	}}
	cfg := testConfig()
	cfg.MaxRetries = 0
	g := New(mock, cfg, discardLogger())

	for i := 0; i < 5; i++ {
		_, _ = g.Complete(context.Background(), Request{})
	}
	if mock.calls != 5 {
		t.Fatalf("expected 5 provider calls, got %d", mock.calls)
	}
	if g.State() != StateOpen {
		t.Fatalf("expected open state, got %s", g.State())
	}

	// Next call fails fast without touching the provider.
	_, err := g.Complete(context.Background(), Request{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if mock.calls != 5 {
		t.Fatalf("expected no additional provider call, got %d", mock.calls)
	}
}

func TestComplete_HalfOpenTrialAfterRecoveryWindow(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 500}
	}}
	cfg := testConfig()
	cfg.MaxRetries = 0
	cfg.RecoveryTimeout = 20 * time.Millisecond
	g := New(mock, cfg, discardLogger())

	for i := 0; i < 5; i++ {
		_, _ = g.Complete(context.Background(), Request{})
	}
	if g.State() != StateOpen {
		t.Fatalf("expected open state, got %s", g.State())
	}

	time.Sleep(25 * time.Millisecond)

	// The window elapsed: exactly one trial call goes through. It fails, so
	// the circuit re-opens with a fresh window.
	_, _ = g.Complete(context.Background(), Request{})
	if mock.calls != 6 {
		t.Fatalf("expected 6 provider calls (one trial), got %d", mock.calls)
	}
	if g.State() != StateOpen {
		t.Fatalf("expected re-opened circuit, got %s", g.State())
	}

	// Still within the new window: fail fast again.
	_, err := g.Complete(context.Background(), Request{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if mock.calls != 6 {
		t.Fatalf("expected no further provider call, got %d", mock.calls)
	}
}

func TestComplete_SuccessfulTrialClosesCircuit(t *testing.T) {
	failing := true
	mock := &mockProvider{fn: func(_ int) (string, error) {
		if failing {
			return "", &model.HTTPError{StatusCode: 500}
		}
		return "recovered", nil
	}}
	cfg := testConfig()
	cfg.MaxRetries = 0
	cfg.RecoveryTimeout = 10 * time.Millisecond
	g := New(mock, cfg, discardLogger())

	for i := 0; i < 5; i++ {
		_, _ = g.Complete(context.Background(), Request{})
	}
	failing = false
	time.Sleep(15 * time.Millisecond)

	reply, err := g.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "recovered" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if g.State() != StateClosed {
		t.Fatalf("expected closed circuit, got %s", g.State())
	}
}

func TestBackoffDelay_WithinBounds(t *testing.T) {
	cfg := Config{
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}
	g := New(&mockProvider{}, cfg, discardLogger())

	for attempt := 0; attempt < 8; attempt++ {
		for i := 0; i < 50; i++ {
			delay := g.backoffDelay(attempt)

			raw := time.Second << attempt
			if raw > 30*time.Second {
				raw = 30 * time.Second
			}
			lower := time.Duration(float64(raw) * 0.75)

			if delay < lower || delay > 30*time.Second {
				t.Fatalf("attempt %d: delay %v outside [%v, 30s]", attempt, delay, lower)
			}
		}
	}
}

func TestComplete_PerCallTimeoutIsRetried(t *testing.T) {
	mock := &mockProvider{}
	mock.fn = func(attempt int) (string, error) {
		if attempt == 1 {
			// Simulate a hung call that only returns once cancelled.
			time.Sleep(30 * time.Millisecond)
			return "", context.DeadlineExceeded
		}
		return "ok", nil
	}
	cfg := testConfig()
	cfg.CallTimeout = 10 * time.Millisecond
	g := New(mock, cfg, discardLogger())

	reply, err := g.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if mock.calls != 2 {
		t.Fatalf("expected timeout then success (2 calls), got %d", mock.calls)
	}
}
