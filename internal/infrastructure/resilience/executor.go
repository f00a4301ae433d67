package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Verdict tells the executor how to treat a failed call: whether another
// attempt makes sense and whether the failure should count against the
// operation's circuit breaker.
type Verdict struct {
	Retry       bool
	TripBreaker bool
}

// Classifier inspects an error from a guarded call and produces a Verdict.
type Classifier func(err error) Verdict

// Executor guards calls to flaky collaborators (embedding service, vector
// store, queue) with bounded retries and one circuit breaker per named
// operation. Breakers are created lazily on first use.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute runs fn under the operation's breaker, retrying per the
// classifier's verdicts. A nil classifier treats every error as final.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil call for operation %q", operation)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unnamed"
	}
	if classify == nil {
		classify = func(error) Verdict { return Verdict{TripBreaker: true} }
	}

	if !e.cfg.BreakerEnabled {
		return e.attempt(ctx, op, fn, classify)
	}
	_, err := e.breakerFor(op, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.attempt(ctx, op, fn, classify)
	})
	return err
}

func (e *Executor) attempt(ctx context.Context, op string, fn func(context.Context) error, classify Classifier) error {
	var err error
	for try := 1; ; try++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if try >= e.cfg.MaxAttempts || !classify(err).Retry {
			return err
		}

		delay := e.delayFor(try)
		slog.Warn("operation_retrying",
			"operation", op,
			"attempt", try,
			"max_attempts", e.cfg.MaxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		if !sleepCtx(ctx, delay) {
			return err
		}
	}
}

// delayFor grows the base delay geometrically with the attempt number,
// capped at MaxDelay.
func (e *Executor) delayFor(attempt int) time.Duration {
	d := float64(e.cfg.BaseDelay) * math.Pow(e.cfg.DelayFactor, float64(attempt-1))
	if capped := float64(e.cfg.MaxDelay); d > capped {
		d = capped
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) breakerFor(op string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[op]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        op,
		MaxRequests: e.cfg.BreakerProbeCalls,
		Timeout:     e.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinCalls {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).TripBreaker
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("breaker_state_changed", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[op] = cb
	return cb
}

// CircuitOpen reports whether err means the operation's breaker rejected
// the call without running it.
func CircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
