package circuitbreaker

import "time"

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name identifies the circuit breaker in logs and metrics.
	Name string

	// Enabled determines whether the circuit breaker is active.
	// When false, New returns nil and Execute passes through directly.
	Enabled bool

	// MaxRequests is the number of trial requests allowed while half-open.
	// Zero means a single trial request.
	MaxRequests uint

	// Interval is the cyclic period of the closed state after which the
	// failure counts are cleared. Zero keeps the counts until a state change.
	Interval time.Duration

	// Timeout is how long the breaker stays open before turning half-open.
	// Zero defaults to 60 seconds.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint

	// IsSuccessful classifies a returned error. Errors it accepts do not count
	// as failures, so caller mistakes do not open the breaker. Nil counts every error.
	IsSuccessful func(err error) bool

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State)
}
