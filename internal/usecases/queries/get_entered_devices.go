package queries

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
	GetEnteredDevicesQuery struct {
		Criteria model.Criteria
	}

	GetEnteredDevicesQueryHandler = decorator.QueryHandler[GetEnteredDevicesQuery, *model.EnteredDeviceList]

	getEnteredDevicesQueryHandler struct {
		deviceService ports.DeviceService
	}
)

func NewGetEnteredDevicesQueryHandler(
	svc ports.DeviceService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetEnteredDevicesQueryHandler {
	return decorator.ApplyQueryDecorators[GetEnteredDevicesQuery, *model.EnteredDeviceList](
		getEnteredDevicesQueryHandler{deviceService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h getEnteredDevicesQueryHandler) Execute(ctx context.Context, query GetEnteredDevicesQuery) (*model.EnteredDeviceList, error) {
	return h.deviceService.GetEnteredDevices(ctx, query.Criteria)
}
