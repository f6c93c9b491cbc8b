package ports

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
)

type (
	HealthChecker interface {
		Liveness(ctx context.Context) (*model.LivenessReport, error)
		Readiness(ctx context.Context) (*model.ReadinessReport, error)
		Health(ctx context.Context) (*model.HealthReport, error)
		// Inventory counts the devices on record. It fails when the repository does.
		Inventory(ctx context.Context) (model.InventoryInfo, error)
	}

	// DependencyMonitor reports on one external dependency for readiness.
	DependencyMonitor interface {
		Name() string
		Check(ctx context.Context) model.DependencyCheck
	}
)
