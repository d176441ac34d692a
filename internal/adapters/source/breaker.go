package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/covidmap/pkg/logger"
	"github.com/okian/covidmap/pkg/metrics"
)

// Default breaker configuration constants.
const (
	defaultBreakerName        = "jhu-csse"
	defaultBreakerMaxFailures = 5
	defaultBreakerTimeout     = time.Minute
	defaultBreakerInterval    = 5 * time.Minute
	halfOpenMaxRequests       = 1
)

// BreakerGetter guards a Getter with a circuit breaker. Not-found answers are
// counted as successes, since a missing daily file means the host is healthy.
// The body is read fully inside the breaker so slow or truncated downloads
// count as failures.
type BreakerGetter struct {
	next        Getter
	cb          *gobreaker.CircuitBreaker[[]byte]
	name        string
	maxFailures uint32
	timeout     time.Duration
	logger      logger.Logger
}

// BreakerOption applies a configuration option to the BreakerGetter.
type BreakerOption func(*BreakerGetter)

// WithBreakerName sets the breaker name used in logs and metrics.
func WithBreakerName(name string) BreakerOption {
	return func(b *BreakerGetter) {
		if name != "" {
			b.name = name
		}
	}
}

// WithMaxFailures sets how many consecutive failures open the circuit.
func WithMaxFailures(n int) BreakerOption {
	return func(b *BreakerGetter) {
		if n > 0 {
			b.maxFailures = uint32(n) //nolint:gosec // bounded by n > 0
		}
	}
}

// WithOpenTimeout sets how long the circuit stays open before probing again.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(b *BreakerGetter) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBreakerLogger sets a custom logger.
func WithBreakerLogger(l logger.Logger) BreakerOption {
	return func(b *BreakerGetter) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBreakerGetter wraps next with a circuit breaker.
func NewBreakerGetter(next Getter, opts ...BreakerOption) *BreakerGetter {
	b := &BreakerGetter{
		next:        next,
		name:        defaultBreakerName,
		maxFailures: defaultBreakerMaxFailures,
		timeout:     defaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get()
	}

	metrics.UpdateBreakerState(b.name, stateToFloat(gobreaker.StateClosed))
	metrics.UpdateBreakerConsecutiveFailures(b.name, 0)

	b.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        b.name,
		MaxRequests: halfOpenMaxRequests,
		Interval:    defaultBreakerInterval,
		Timeout:     b.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.maxFailures
		},
		IsSuccessful: func(err error) bool {
			var gone *callerGoneError
			return err == nil || errors.Is(err, ErrNotFound) || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn(context.Background(), "upstream circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateBreakerState(name, stateToFloat(to))
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			if to == gobreaker.StateClosed {
				metrics.UpdateBreakerConsecutiveFailures(name, 0)
			}
		},
	})
	return b
}

// callerGoneError marks a failure caused by the caller's own context being
// canceled or past its deadline. It says nothing about upstream health.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }
func (e *callerGoneError) Unwrap() error { return e.err }

// Get fetches url through the breaker. An open circuit yields an error
// wrapping gobreaker.ErrOpenState. Failures while the caller's context is done
// are returned but not counted against upstream; a client timeout with the
// caller still waiting is counted.
func (b *BreakerGetter) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	body, err := b.cb.Execute(func() ([]byte, error) {
		data, err := b.fetch(ctx, url)
		if err != nil && ctx.Err() != nil {
			return nil, &callerGoneError{err: err}
		}
		return data, err
	})
	metrics.UpdateBreakerConsecutiveFailures(b.name, b.cb.Counts().ConsecutiveFailures)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordBreakerRejected(b.name)
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (b *BreakerGetter) fetch(ctx context.Context, url string) ([]byte, error) {
	rc, err := b.next.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

// State returns the current breaker state.
func (b *BreakerGetter) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
