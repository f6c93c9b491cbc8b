package queries

import (
	"context"
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/pkg/decorator"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

// inventoryQueryTimeout bounds the repository counts behind readiness and the health report.
const inventoryQueryTimeout = 2 * time.Second

type (
	// FetchLivenessQuery only asks whether the process answers, the inventory is not touched.
	FetchLivenessQuery struct{}

	// FetchReadinessQuery adds the device inventory to the dependency checks,
	// a repository that cannot count takes the service out of rotation.
	FetchReadinessQuery struct{}

	// FetchHealthReportQuery returns the full report with inventory counts.
	FetchHealthReportQuery struct{}

	FetchLivenessQueryHandler     = decorator.QueryHandler[FetchLivenessQuery, *model.LivenessReport]
	FetchReadinessQueryHandler    = decorator.QueryHandler[FetchReadinessQuery, *model.ReadinessReport]
	FetchHealthReportQueryHandler = decorator.QueryHandler[FetchHealthReportQuery, *model.HealthReport]

	fetchLivenessQueryHandler struct {
		healthChecker ports.HealthChecker
	}

	fetchReadinessQueryHandler struct {
		healthChecker ports.HealthChecker
		now           func() time.Time
	}

	fetchHealthReportQueryHandler struct {
		healthChecker ports.HealthChecker
	}
)

func NewFetchLivenessQueryHandler(
	healthChecker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchLivenessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchLivenessQuery, *model.LivenessReport](
		fetchLivenessQueryHandler{healthChecker: healthChecker},
		log,
		metricsClient,
		tracerProvider,
	)
}

func NewFetchReadinessQueryHandler(
	healthChecker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchReadinessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchReadinessQuery, *model.ReadinessReport](
		fetchReadinessQueryHandler{healthChecker: healthChecker, now: time.Now},
		log,
		metricsClient,
		tracerProvider,
		decorator.WithQueryTimeout(inventoryQueryTimeout),
	)
}

func NewFetchHealthReportQueryHandler(
	healthChecker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchHealthReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchHealthReportQuery, *model.HealthReport](
		fetchHealthReportQueryHandler{healthChecker: healthChecker},
		log,
		metricsClient,
		tracerProvider,
		decorator.WithQueryTimeout(inventoryQueryTimeout),
	)
}

func (h fetchLivenessQueryHandler) Execute(ctx context.Context, _ FetchLivenessQuery) (*model.LivenessReport, error) {
	return h.healthChecker.Liveness(ctx)
}

func (h fetchReadinessQueryHandler) Execute(ctx context.Context, _ FetchReadinessQuery) (*model.ReadinessReport, error) {
	report, err := h.healthChecker.Readiness(ctx)
	if err != nil {
		return nil, err
	}

	start := h.now()
	_, err = h.healthChecker.Inventory(ctx)
	check := model.DependencyCheck{
		Status:      model.DependencyStatusUp,
		LatencyMs:   uint64(max(h.now().Sub(start).Milliseconds(), 0)),
		LastChecked: start.UTC(),
	}

	if err != nil {
		check.Status = model.DependencyStatusDown
		check.Error = err.Error()
	}

	return report.WithCheck(model.InventoryCheck, check), nil
}

func (h fetchHealthReportQueryHandler) Execute(ctx context.Context, _ FetchHealthReportQuery) (*model.HealthReport, error) {
	report, err := h.healthChecker.Health(ctx)
	if err != nil {
		return nil, err
	}

	inventory, err := h.healthChecker.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	report.Inventory = inventory

	return report, nil
}
