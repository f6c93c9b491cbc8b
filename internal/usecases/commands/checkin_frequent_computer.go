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
	CheckinFrequentComputerCommand struct {
		ID model.DeviceID
	}

	CheckinFrequentComputerCommandHandler = decorator.CommandHandler[CheckinFrequentComputerCommand, *model.Device]

	checkinFrequentComputerCommandHandler struct {
		computerService ports.ComputerService
	}
)

func NewCheckinFrequentComputerCommandHandler(
	svc ports.ComputerService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CheckinFrequentComputerCommandHandler {
	return decorator.ApplyCommandDecorators[CheckinFrequentComputerCommand, *model.Device](
		checkinFrequentComputerCommandHandler{computerService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h checkinFrequentComputerCommandHandler) Handle(ctx context.Context, cmd CheckinFrequentComputerCommand) (*model.Device, error) {
	return h.computerService.CheckinFrequentComputer(ctx, cmd.ID)
}
