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
	GetMedicalDevicesQuery struct {
		Criteria model.Criteria
	}

	GetMedicalDevicesQueryHandler = decorator.QueryHandler[GetMedicalDevicesQuery, *model.DeviceList]

	getMedicalDevicesQueryHandler struct {
		medicalDeviceService ports.MedicalDeviceService
	}
)

func NewGetMedicalDevicesQueryHandler(
	svc ports.MedicalDeviceService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetMedicalDevicesQueryHandler {
	return decorator.ApplyQueryDecorators[GetMedicalDevicesQuery, *model.DeviceList](
		getMedicalDevicesQueryHandler{medicalDeviceService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h getMedicalDevicesQueryHandler) Execute(ctx context.Context, query GetMedicalDevicesQuery) (*model.DeviceList, error) {
	return h.medicalDeviceService.GetMedicalDevices(ctx, query.Criteria)
}
