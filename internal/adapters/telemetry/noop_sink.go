package telemetry

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
)

// NoopSink discards every event. It is used when no Axiom token is configured.
type NoopSink struct{}

var _ ports.TelemetrySink = NoopSink{}

func NewNoopSink() NoopSink {
	return NoopSink{}
}

func (NoopSink) RecordRequest(context.Context, model.RequestEvent) {}

func (NoopSink) RecordError(context.Context, model.ErrorEvent) {}

func (NoopSink) RecordInfo(context.Context, model.InfoEvent) {}

func (NoopSink) Flush(context.Context) error { return nil }

func (NoopSink) Shutdown(context.Context) error { return nil }
