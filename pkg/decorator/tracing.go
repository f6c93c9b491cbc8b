package decorator

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/architeacher/checkpoint/pkg/decorator"

type (
	commandTracingDecorator[C Command, R any] struct {
		base           CommandHandler[C, R]
		tracerProvider otelTrace.TracerProvider
	}

	queryTracingDecorator[Q Query, R Result] struct {
		base           QueryHandler[Q, R]
		tracerProvider otelTrace.TracerProvider
	}
)

func (d commandTracingDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	ctx, span := startSpan(ctx, d.tracerProvider, "command."+generateActionName(cmd))
	defer func() { endSpan(span, err) }()

	return d.base.Handle(ctx, cmd)
}

func (d queryTracingDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	ctx, span := startSpan(ctx, d.tracerProvider, "query."+generateActionName(query))
	defer func() { endSpan(span, err) }()

	return d.base.Execute(ctx, query)
}

func startSpan(ctx context.Context, tp otelTrace.TracerProvider, name string) (context.Context, otelTrace.Span) {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	return tp.Tracer(tracerName).Start(ctx, name, otelTrace.WithSpanKind(otelTrace.SpanKindInternal))
}

func endSpan(span otelTrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
