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
	GetFrequentComputersQuery struct {
		Criteria model.Criteria
	}

	GetFrequentComputersQueryHandler = decorator.QueryHandler[GetFrequentComputersQuery, *model.DeviceList]

	getFrequentComputersQueryHandler struct {
		computerService ports.ComputerService
	}
)

func NewGetFrequentComputersQueryHandler(
	svc ports.ComputerService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetFrequentComputersQueryHandler {
	return decorator.ApplyQueryDecorators[GetFrequentComputersQuery, *model.DeviceList](
		getFrequentComputersQueryHandler{computerService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h getFrequentComputersQueryHandler) Execute(ctx context.Context, query GetFrequentComputersQuery) (*model.DeviceList, error) {
	return h.computerService.GetFrequentComputers(ctx, query.Criteria)
}
