package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NonRetriableError marks a step failure no retry can help with. The runner
// aborts the run immediately when a step returns one.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return fmt.Sprintf("non-retriable: %v", e.Err)
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

// NonRetriable wraps err so the runner will not retry the failing step.
func NonRetriable(err error) error {
	return &NonRetriableError{Err: err}
}

// IsNonRetriable reports whether err carries the non-retriable marker.
func IsNonRetriable(err error) bool {
	var target *NonRetriableError
	return errors.As(err, &target)
}

// Runner executes flows as sequences of named, independently retried steps.
type Runner struct {
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

// NewRunner builds a runner. maxAttempts below 1 defaults to 3.
func NewRunner(maxAttempts int, logger *zap.Logger) *Runner {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Runner{maxAttempts: maxAttempts, retryDelay: 200 * time.Millisecond, logger: logger}
}

// Run tracks one execution of a flow for a single event. Step results are
// memoized by name, so re-entering a completed step returns its cached
// result instead of re-executing side effects.
type Run struct {
	runner *Runner
	flow   string
	key    string

	mu      sync.Mutex
	results map[string]any
}

// NewRun starts a run of the named flow keyed by the triggering event id.
func (r *Runner) NewRun(flow, key string) *Run {
	return &Run{
		runner:  r,
		flow:    flow,
		key:     key,
		results: make(map[string]any),
	}
}

// Step executes fn under the run's retry and memoization policy. A cached
// result short-circuits; otherwise fn is attempted up to the runner's max,
// aborting early on context cancellation or a non-retriable error.
func Step[T any](ctx context.Context, run *Run, name string, fn func(context.Context) (T, error)) (T, error) {
	run.mu.Lock()
	if cached, ok := run.results[name]; ok {
		run.mu.Unlock()
		return cached.(T), nil
	}
	run.mu.Unlock()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= run.runner.maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			run.mu.Lock()
			run.results[name] = result
			run.mu.Unlock()
			return result, nil
		}
		lastErr = err

		if IsNonRetriable(err) {
			run.runner.logger.Error("step aborted",
				zap.String("flow", run.flow),
				zap.String("key", run.key),
				zap.String("step", name),
				zap.Error(err))
			return zero, err
		}

		run.runner.logger.Warn("step failed",
			zap.String("flow", run.flow),
			zap.String("key", run.key),
			zap.String("step", name),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < run.runner.maxAttempts {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(run.runner.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return zero, fmt.Errorf("step %s exhausted %d attempts: %w", name, run.runner.maxAttempts, lastErr)
}
