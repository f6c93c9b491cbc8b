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
	RegisterFrequentComputerCommand struct {
		Request model.ComputerRequest
	}

	RegisterFrequentComputerCommandHandler = decorator.CommandHandler[RegisterFrequentComputerCommand, *model.Device]

	registerFrequentComputerCommandHandler struct {
		computerService ports.ComputerService
	}
)

func NewRegisterFrequentComputerCommandHandler(
	svc ports.ComputerService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) RegisterFrequentComputerCommandHandler {
	return decorator.ApplyCommandDecorators[RegisterFrequentComputerCommand, *model.Device](
		registerFrequentComputerCommandHandler{computerService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h registerFrequentComputerCommandHandler) Handle(ctx context.Context, cmd RegisterFrequentComputerCommand) (*model.Device, error) {
	return h.computerService.RegisterFrequentComputer(ctx, cmd.Request)
}
