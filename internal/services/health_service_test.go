package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/internal/services"
	"github.com/stretchr/testify/require"
)

var errConnectionRefused = errors.New("connection refused")

type countFailingRepository struct {
	ports.DevicesRepository
}

func (countFailingRepository) Count(context.Context, model.Specification) (uint, error) {
	return 0, errConnectionRefused
}

func TestHealthService_Readiness(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		monitors   []ports.DependencyMonitor
		wantStatus model.HealthStatus
		wantChecks map[string]model.DependencyStatus
	}{
		{
			name:       "no dependencies",
			wantStatus: model.HealthStatusOK,
			wantChecks: map[string]model.DependencyStatus{},
		},
		{
			name: "healthy cache",
			monitors: []ports.DependencyMonitor{
				services.NewMonitor("keydb", func(context.Context) error { return nil }),
			},
			wantStatus: model.HealthStatusOK,
			wantChecks: map[string]model.DependencyStatus{"keydb": model.DependencyStatusUp},
		},
		{
			name: "disabled dependency does not count",
			monitors: []ports.DependencyMonitor{
				services.NewDisabledMonitor("vault"),
				services.NewMonitor("keydb", func(context.Context) error { return nil }),
			},
			wantStatus: model.HealthStatusOK,
			wantChecks: map[string]model.DependencyStatus{
				"vault": model.DependencyStatusDisabled,
				"keydb": model.DependencyStatusUp,
			},
		},
		{
			name: "unreachable cache",
			monitors: []ports.DependencyMonitor{
				services.NewMonitor("keydb", func(context.Context) error { return errConnectionRefused }),
			},
			wantStatus: model.HealthStatusDown,
			wantChecks: map[string]model.DependencyStatus{"keydb": model.DependencyStatusDown},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := services.NewHealthService(newRepository(), "v1", tc.monitors)

			report, err := svc.Readiness(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.wantStatus, report.Status)

			got := make(map[string]model.DependencyStatus, len(report.Checks))
			for name, check := range report.Checks {
				got[name] = check.Status
			}

			require.Equal(t, tc.wantChecks, got)

			if check, ok := report.Checks["keydb"]; ok && check.Status == model.DependencyStatusDown {
				require.Equal(t, errConnectionRefused.Error(), check.Error)
			}
		})
	}
}

func TestHealthService_Liveness(t *testing.T) {
	t.Parallel()

	clock := newStepClock()
	svc := services.NewHealthService(newRepository(), "v1", nil, services.WithClock(clock.Now))

	report, err := svc.Liveness(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.HealthStatusOK, report.Status)
	require.False(t, report.Timestamp.IsZero())
}

func TestHealthService_Health(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newStepClock()
	repo := newRepository()
	computers := services.NewComputerService(repo, &fakePhotoStore{})
	devices := services.NewDeviceService(repo)

	for range 3 {
		_, err := computers.CheckinComputer(ctx, computerRequest())
		require.NoError(t, err)
	}

	gone, err := computers.CheckinComputer(ctx, computerRequest())
	require.NoError(t, err)

	_, err = devices.CheckoutDevice(ctx, gone.ID)
	require.NoError(t, err)

	svc := services.NewHealthService(repo, "v1", []ports.DependencyMonitor{
		services.NewMonitor("keydb", func(context.Context) error { return nil }),
	}, services.WithClock(clock.Now))

	report, err := svc.Health(ctx)
	require.NoError(t, err)

	require.Equal(t, model.HealthStatusOK, report.Status)
	require.Equal(t, "v1", report.Version.API)
	require.NotEmpty(t, report.Version.Go)
	require.Zero(t, report.Inventory)
	require.Positive(t, report.System.CPUCores)
	require.Positive(t, report.System.Goroutines)
	require.Equal(t, uint64(60), report.Uptime.DurationSeconds)
	require.Equal(t, "1m0s", report.Uptime.Duration)
}

func TestHealthService_Inventory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepository()
	computers := services.NewComputerService(repo, &fakePhotoStore{})
	devices := services.NewDeviceService(repo)

	for range 3 {
		_, err := computers.CheckinComputer(ctx, computerRequest())
		require.NoError(t, err)
	}

	gone, err := computers.CheckinComputer(ctx, computerRequest())
	require.NoError(t, err)

	_, err = devices.CheckoutDevice(ctx, gone.ID)
	require.NoError(t, err)

	inventory, err := services.NewHealthService(repo, "v1", nil).Inventory(ctx)
	require.NoError(t, err)

	require.Equal(t, uint(4), inventory.Devices)
	require.Equal(t, uint(3), inventory.Present)
	require.Equal(t, uint(1), inventory.CheckedOut)
	require.Equal(t, uint(4), inventory.ByKind[model.KindComputer])
	require.Zero(t, inventory.ByKind[model.KindMedicalDevice])
}

func TestHealthService_InventoryFailsWhenRepositoryCannotCount(t *testing.T) {
	t.Parallel()

	svc := services.NewHealthService(countFailingRepository{}, "v1", nil)

	_, err := svc.Inventory(context.Background())
	require.ErrorIs(t, err, errConnectionRefused)

	report, err := svc.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.HealthStatusOK, report.Status)
}
