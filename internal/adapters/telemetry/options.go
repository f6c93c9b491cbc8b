package telemetry

import (
	"net/http"
	"time"

	"github.com/architeacher/checkpoint/pkg/circuitbreaker"
	"github.com/architeacher/checkpoint/pkg/metrics"
)

// Option configures the AxiomSink.
type Option func(*AxiomSink)

// WithHTTPClient replaces the client used for ingest calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *AxiomSink) {
		s.httpClient = client
	}
}

func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker[struct{}]) Option {
	return func(s *AxiomSink) {
		s.breaker = cb
	}
}

// WithMetrics counts sent, failed and dropped events.
func WithMetrics(client metrics.Client) Option {
	return func(s *AxiomSink) {
		s.metrics = client
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *AxiomSink) {
		s.now = now
	}
}
