package infrastructure

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/architeacher/checkpoint/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	exporterTypeGRPC   = "grpc"
	exporterTypeStdOut = "stdout"
)

// NewTracerProvider installs a global tracer provider exporting over OTLP gRPC or to stdout.
func NewTracerProvider(appConfig config.App, telemetryConfig config.Telemetry) (trace.TracerProvider, func(context.Context) error, error) {
	ctx := context.Background()

	traceExporter, err := newSpanExporter(ctx, telemetryConfig)
	if err != nil {
		return nil, nil, err
	}

	hostName, err := os.Hostname()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get host name: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(appConfig.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("env", appConfig.Env.Name),
			attribute.String("host", hostName),
			attribute.String("commit_sha", config.CommitSHA),
			attribute.String("Product-Cluster", telemetryConfig.OtelProductCluster),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	sampler := sdktrace.TraceIDRatioBased(telemetryConfig.Traces.SamplerRatio)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sampler,
			sdktrace.WithRemoteParentSampled(sampler),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, tp.Shutdown, nil
}

func NewNoopTracerProvider() trace.TracerProvider {
	return noop.NewTracerProvider()
}

func newSpanExporter(ctx context.Context, cfg config.Telemetry) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.ExporterType) {
	case exporterTypeGRPC:
		exporter, err := newGRPCExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC exporter: %w", err)
		}

		return exporter, nil
	case exporterTypeStdOut:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}

		return exporter, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type %q", cfg.ExporterType)
	}
}

func newGRPCExporter(ctx context.Context, cfg config.Telemetry) (*otlptrace.Exporter, error) {
	conn, err := grpc.NewClient(
		net.JoinHostPort(cfg.OtelGRPCHost, cfg.OtelGRPCPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create a gRPC client connection to collector: %w", err)
	}

	return otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
}
