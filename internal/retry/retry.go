package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"codesummary/internal/logging"
	"codesummary/internal/services"
)

// ErrEmptyOutput marks a model response with no usable text.
var ErrEmptyOutput = errors.New("empty model output")

// Policy configures backoff. Attempts are MaxRetries+1.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter adds up to this fraction of the computed delay.
	Jitter float64
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2,
		Jitter:     0.25,
	}
}

// ExhaustedError reports an operation that failed on every attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Handler executes operations under a Policy.
type Handler struct {
	policy   Policy
	classify func(error) bool
	sleep    Sleeper
	random   func() float64
	logger   *slog.Logger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithClassifier sets the predicate deciding whether an error is worth
// retrying. ErrEmptyOutput is always retried regardless.
func WithClassifier(fn func(error) bool) Option {
	return func(h *Handler) {
		if fn != nil {
			h.classify = fn
		}
	}
}

// WithSleeper replaces the wall-clock wait, mainly for tests.
func WithSleeper(fn Sleeper) Option {
	return func(h *Handler) {
		if fn != nil {
			h.sleep = fn
		}
	}
}

// WithRandom replaces the jitter source; fn must return values in [0,1).
func WithRandom(fn func() float64) Option {
	return func(h *Handler) {
		if fn != nil {
			h.random = fn
		}
	}
}

// WithLogger attaches a logger for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logging.NewComponentLogger(logger, "retry")
	}
}

// New constructs a Handler. Zero policy fields fall back to DefaultPolicy.
func New(policy Policy, opts ...Option) *Handler {
	def := DefaultPolicy()
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = def.BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = def.MaxDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = def.Multiplier
	}
	if policy.Jitter < 0 {
		policy.Jitter = 0
	}
	h := &Handler{
		policy:   policy,
		classify: func(err error) bool { return !services.Permanent(err) },
		sleep:    sleepContext,
		random:   rand.Float64,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Policy returns the effective policy.
func (h *Handler) Policy() Policy { return h.policy }

// Attempts is the total number of tries an operation receives.
func (h *Handler) Attempts() int { return h.policy.MaxRetries + 1 }

// Delay returns the wait before retry number attempt (1-based), jitter included.
func (h *Handler) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(h.policy.BaseDelay) * math.Pow(h.policy.Multiplier, float64(attempt-1))
	if base > float64(h.policy.MaxDelay) {
		base = float64(h.policy.MaxDelay)
	}
	if h.policy.Jitter > 0 {
		base += base * h.policy.Jitter * h.random()
	}
	return time.Duration(base)
}

// Retryable reports whether err should be attempted again.
func (h *Handler) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyOutput) {
		return true
	}
	return h.classify(err)
}

// Run calls fn until it succeeds, fails permanently, attempts run out, or ctx
// ends. It returns the number of attempts made.
func (h *Handler) Run(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	attempts := h.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, fmt.Errorf("%s: %w", op, err)
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if !h.Retryable(lastErr) {
			return attempt, fmt.Errorf("%s: %w", op, lastErr)
		}
		if attempt == attempts {
			break
		}
		delay := h.delayFor(attempt, lastErr)
		logging.WarnWithContext(logging.WithContext(ctx, h.logger), "operation failed; retrying", "retry_scheduled",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.String("reason", summarize(lastErr)),
			logging.String(logging.FieldErrorHint, "transient model or network failure"),
			logging.String(logging.FieldImpact, "request delayed"),
		)
		if err := h.sleep(ctx, delay); err != nil {
			return attempt, fmt.Errorf("%s: %w", op, err)
		}
	}
	return attempts, &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}

func (h *Handler) delayFor(attempt int, err error) time.Duration {
	var hinted interface{ RetryAfter() time.Duration }
	if errors.As(err, &hinted) {
		if d := hinted.RetryAfter(); d > 0 {
			if d > h.policy.MaxDelay {
				return h.policy.MaxDelay
			}
			return d
		}
	}
	return h.Delay(attempt)
}

// Do runs fn under h and returns its value together with the attempt count.
func Do[T any](ctx context.Context, h *Handler, op string, fn func(context.Context) (T, error)) (T, int, error) {
	var out T
	attempts, err := h.Run(ctx, op, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		out = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, attempts, err
	}
	return out, attempts, nil
}

// Text runs fn under h and treats whitespace-only output as ErrEmptyOutput.
func Text(ctx context.Context, h *Handler, op string, fn func(context.Context) (string, error)) (string, int, error) {
	return Do(ctx, h, op, func(ctx context.Context) (string, error) {
		text, err := fn(ctx)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyOutput
		}
		return text, nil
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func summarize(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}
