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
	CheckinMedicalDeviceCommand struct {
		Request model.MedicalDeviceRequest
	}

	CheckinMedicalDeviceCommandHandler = decorator.CommandHandler[CheckinMedicalDeviceCommand, *model.Device]

	checkinMedicalDeviceCommandHandler struct {
		medicalDeviceService ports.MedicalDeviceService
	}
)

func NewCheckinMedicalDeviceCommandHandler(
	svc ports.MedicalDeviceService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CheckinMedicalDeviceCommandHandler {
	return decorator.ApplyCommandDecorators[CheckinMedicalDeviceCommand, *model.Device](
		checkinMedicalDeviceCommandHandler{medicalDeviceService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h checkinMedicalDeviceCommandHandler) Handle(ctx context.Context, cmd CheckinMedicalDeviceCommand) (*model.Device, error) {
	return h.medicalDeviceService.CheckinMedicalDevice(ctx, cmd.Request)
}
