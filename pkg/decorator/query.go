package decorator

import (
	"context"
	"time"

	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Query  any
	Result any

	QueryHandler[Q Query, R Result] interface {
		Execute(ctx context.Context, query Q) (R, error)
	}

	QueryOption func(*queryOptions)

	queryOptions struct {
		timeout time.Duration
	}

	queryTimeoutDecorator[Q Query, R Result] struct {
		base    QueryHandler[Q, R]
		timeout time.Duration
	}
)

// WithQueryTimeout bounds each execution. The deadline is set inside the trace
// span, so a query that runs out of time is recorded as failed.
func WithQueryTimeout(timeout time.Duration) QueryOption {
	return func(o *queryOptions) {
		o.timeout = timeout
	}
}

// ApplyQueryDecorators wraps handler with logging, metrics and tracing. Reads
// are logged at debug level only.
func ApplyQueryDecorators[Q Query, R Result](
	handler QueryHandler[Q, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
	opts ...QueryOption,
) QueryHandler[Q, R] {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.timeout > 0 {
		handler = queryTimeoutDecorator[Q, R]{base: handler, timeout: o.timeout}
	}

	return queryLoggingDecorator[Q, R]{
		base: queryMetricsDecorator[Q, R]{
			base: queryTracingDecorator[Q, R]{
				base:           handler,
				tracerProvider: tracerProvider,
			},
			client: metricsClient,
		},
		logger: log,
	}
}

func (d queryTimeoutDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.base.Execute(ctx, query)
}
