package circuitbreaker

import (
	"errors"

	"github.com/sony/gobreaker/v2"
)

type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half-open"
	StateOpen     State = "open"
)

// CircuitBreaker guards calls to a flaky dependency.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New returns nil when cfg is disabled, Execute then calls straight through.
func New[T any](cfg Config) *CircuitBreaker[T] {
	if !cfg.Enabled {
		return nil
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.MaxRequests),
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: cfg.IsSuccessful,
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, fromGobreaker(from), fromGobreaker(to))
		}
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

func (c *CircuitBreaker[T]) Name() string {
	return c.cb.Name()
}

// State reports the current state, a nil breaker is always closed.
func (c *CircuitBreaker[T]) State() State {
	if c == nil {
		return StateClosed
	}

	return fromGobreaker(c.cb.State())
}

// Execute runs fn through the breaker and maps rejections to ErrCircuitOpen
// or ErrTooManyRequests.
func Execute[T any](cb *CircuitBreaker[T], fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}

	result, err := cb.cb.Execute(fn)

	var zero T

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState):
		return zero, ErrCircuitOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return zero, ErrTooManyRequests
	default:
		return result, err
	}
}

func fromGobreaker(state gobreaker.State) State {
	switch state {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
