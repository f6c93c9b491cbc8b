package services

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
)

const bytesPerMB = 1024 * 1024

type HealthService struct {
	repo       ports.DevicesRepository
	monitors   []ports.DependencyMonitor
	apiVersion string
	startedAt  time.Time
	options    options
}

var _ ports.HealthChecker = (*HealthService)(nil)

func NewHealthService(
	repo ports.DevicesRepository,
	apiVersion string,
	monitors []ports.DependencyMonitor,
	opts ...Option,
) *HealthService {
	o := newOptions(opts)

	return &HealthService{
		repo:       repo,
		monitors:   monitors,
		apiVersion: apiVersion,
		startedAt:  o.now().UTC(),
		options:    o,
	}
}

func (s *HealthService) Liveness(context.Context) (*model.LivenessReport, error) {
	return &model.LivenessReport{
		Status:    model.HealthStatusOK,
		Timestamp: s.options.now().UTC(),
		Version:   config.ServiceVersion,
	}, nil
}

func (s *HealthService) Readiness(ctx context.Context) (*model.ReadinessReport, error) {
	checks := s.runChecks(ctx)

	return &model.ReadinessReport{
		Status:    model.AggregateStatus(checks),
		Timestamp: s.options.now().UTC(),
		Version:   config.ServiceVersion,
		Checks:    checks,
	}, nil
}

// Health reports process and dependency state. The inventory section is left
// empty, FetchHealthReport fills it from Inventory.
func (s *HealthService) Health(ctx context.Context) (*model.HealthReport, error) {
	now := s.options.now().UTC()
	checks := s.runChecks(ctx)
	uptime := now.Sub(s.startedAt)

	return &model.HealthReport{
		Status:    model.AggregateStatus(checks),
		Timestamp: now,
		Version: model.VersionInfo{
			API:   s.apiVersion,
			Build: config.CommitSHA,
			Go:    runtime.Version(),
		},
		Uptime: model.UptimeInfo{
			StartedAt:       s.startedAt,
			Duration:        uptime.Round(time.Second).String(),
			DurationSeconds: uint64(max(uptime.Seconds(), 0)),
		},
		Checks: checks,
		System: systemInfo(),
	}, nil
}

func (s *HealthService) Inventory(ctx context.Context) (model.InventoryInfo, error) {
	present := make(map[model.Kind]uint, len(model.AllKinds()))
	checkedOut := make(map[model.Kind]uint, len(model.AllKinds()))

	for _, kind := range model.AllKinds() {
		inside, err := s.repo.Count(ctx, model.Must(model.OfKind(kind), model.StillInside()))
		if err != nil {
			return model.InventoryInfo{}, fmt.Errorf("counting present %s devices: %w", kind, err)
		}

		left, err := s.repo.Count(ctx, model.Must(model.OfKind(kind), model.InState(model.StateCheckedOut)))
		if err != nil {
			return model.InventoryInfo{}, fmt.Errorf("counting checked out %s devices: %w", kind, err)
		}

		present[kind], checkedOut[kind] = inside, left
	}

	return model.NewInventoryInfo(present, checkedOut), nil
}

func (s *HealthService) runChecks(ctx context.Context) map[string]model.DependencyCheck {
	checks := make(map[string]model.DependencyCheck, len(s.monitors))

	for _, monitor := range s.monitors {
		checks[monitor.Name()] = monitor.Check(ctx)
	}

	return checks
}

func systemInfo() model.SystemInfo {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return model.SystemInfo{
		Memory: model.MemoryInfo{
			AllocMB:      float64(stats.Alloc) / bytesPerMB,
			TotalAllocMB: float64(stats.TotalAlloc) / bytesPerMB,
			SysMB:        float64(stats.Sys) / bytesPerMB,
			GCCycles:     stats.NumGC,
		},
		Goroutines: uint(runtime.NumGoroutine()),
		CPUCores:   uint(runtime.NumCPU()),
	}
}
