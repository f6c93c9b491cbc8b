package ports

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
)

// TelemetrySink receives request and error events. Recording never blocks
// the caller and never fails it.
type TelemetrySink interface {
	RecordRequest(ctx context.Context, event model.RequestEvent)
	RecordError(ctx context.Context, event model.ErrorEvent)
	RecordInfo(ctx context.Context, event model.InfoEvent)

	// Flush delivers everything buffered so far.
	Flush(ctx context.Context) error

	// Shutdown flushes and stops accepting events.
	Shutdown(ctx context.Context) error
}
