package circuitbreaker

import "errors"

var (
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when the half-open trial budget is used up.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)
