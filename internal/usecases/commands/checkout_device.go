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
	CheckoutDeviceCommand struct {
		ID model.DeviceID
	}

	CheckoutDeviceCommandHandler = decorator.CommandHandler[CheckoutDeviceCommand, *model.Device]

	checkoutDeviceCommandHandler struct {
		deviceService ports.DeviceService
	}
)

func NewCheckoutDeviceCommandHandler(
	svc ports.DeviceService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CheckoutDeviceCommandHandler {
	return decorator.ApplyCommandDecorators[CheckoutDeviceCommand, *model.Device](
		checkoutDeviceCommandHandler{deviceService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h checkoutDeviceCommandHandler) Handle(ctx context.Context, cmd CheckoutDeviceCommand) (*model.Device, error) {
	return h.deviceService.CheckoutDevice(ctx, cmd.ID)
}
