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
	GetComputersQuery struct {
		Criteria model.Criteria
	}

	GetComputersQueryHandler = decorator.QueryHandler[GetComputersQuery, *model.DeviceList]

	getComputersQueryHandler struct {
		computerService ports.ComputerService
	}
)

func NewGetComputersQueryHandler(
	svc ports.ComputerService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetComputersQueryHandler {
	return decorator.ApplyQueryDecorators[GetComputersQuery, *model.DeviceList](
		getComputersQueryHandler{computerService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h getComputersQueryHandler) Execute(ctx context.Context, query GetComputersQuery) (*model.DeviceList, error) {
	return h.computerService.GetComputers(ctx, query.Criteria)
}
