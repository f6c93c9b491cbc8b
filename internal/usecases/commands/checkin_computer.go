package commands

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/pkg/decorator"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	CheckinComputerCommand struct {
		Request model.ComputerRequest
	}

	CheckinComputerCommandHandler = decorator.CommandHandler[CheckinComputerCommand, *model.Device]

	checkinComputerCommandHandler struct {
		computerService ports.ComputerService
	}
)

func NewCheckinComputerCommandHandler(
	svc ports.ComputerService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CheckinComputerCommandHandler {
	return decorator.ApplyCommandDecorators[CheckinComputerCommand, *model.Device](
		checkinComputerCommandHandler{computerService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h checkinComputerCommandHandler) Handle(ctx context.Context, cmd CheckinComputerCommand) (*model.Device, error) {
	return h.computerService.CheckinComputer(ctx, cmd.Request)
}
