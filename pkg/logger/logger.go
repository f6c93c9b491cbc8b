package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	JSONLoggingFormat = "json"

	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarn    = "warn"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelFatal   = "fatal"
	LogLevelPanic   = "panic"

	ContextKeyRequestID     contextKey = "requestID"
	ContextKeyCorrelationID contextKey = "correlationID"
)

type (
	Logger struct {
		zerolog.Logger
	}

	Option func(*options)

	options struct {
		writer  io.Writer
		service string
		version string
	}
)

// WithWriter redirects the output, stdout is used otherwise.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithService stamps every entry with the service name and version.
func WithService(name, version string) Option {
	return func(o *options) {
		o.service = name
		o.version = version
	}
}

func New(level, format string, opts ...Option) Logger {
	o := &options{writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: o.writer, TimeFormat: time.RFC3339})

	if format == JSONLoggingFormat {
		logger = zerolog.New(o.writer)
	}

	ctx := logger.Level(ParseLevel(level)).With().Timestamp()

	if o.service != "" {
		ctx = ctx.Str("service", o.service)
	}

	if o.version != "" {
		ctx = ctx.Str("version", o.version)
	}

	return Logger{
		Logger: ctx.Logger(),
	}
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn, LogLevelWarning:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelFatal:
		return zerolog.FatalLevel
	case LogLevelPanic:
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with the given component name.
func (l Logger) Component(name string) Logger {
	return Logger{Logger: l.With().Str("component", name).Logger()}
}

func (l Logger) WithContext(ctx context.Context) zerolog.Logger {
	logger := l.Logger

	if correlationID, ok := ctx.Value(ContextKeyCorrelationID).(string); ok && correlationID != "" {
		logger = logger.With().Str("correlation_id", correlationID).Logger()
	}

	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok && requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}
