package runtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/architeacher/checkpoint/internal/adapters/photos"
	"github.com/architeacher/checkpoint/internal/adapters/telemetry"
	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/infrastructure"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/internal/usecases"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	"github.com/throttled/throttled/v2"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	infrastructureDep struct {
		publicHttpServer *http.Server
		adminHttpServer  *http.Server
		mediaHttpServer  *http.Server
		cacheClient      *infrastructure.KeyDBClient
		logger           logger.Logger
		metricsClient    metrics.Client
		tracerProvider   otelTrace.TracerProvider
		telemetrySink    ports.TelemetrySink

		// axiomSink is kept apart so reloaded secrets can rotate its token.
		axiomSink *telemetry.AxiomSink
	}

	repositories struct {
		secretsRepo     ports.SecretsRepository
		devicesRepo     ports.DevicesRepository
		photoStore      *photos.FilesystemStore
		idempotencyRepo ports.IdempotencyCache
		rateLimitStore  throttled.GCRAStoreCtx
	}

	servicesDep struct {
		computers      ports.ComputerService
		medicalDevices ports.MedicalDeviceService
		devices        ports.DeviceService
		healthChecker  ports.HealthChecker
		monitors         []ports.DependencyMonitor
	}

	dependencies struct {
		config       *config.ServiceConfig
		configLoader *config.Loader

		infra infrastructureDep

		repos repositories

		services servicesDep

		app *usecases.Application

		cleanupFuncs map[string]func(ctx context.Context) error
	}

	DependencyOption func(*dependencies) error
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*dependencies, error) {
	deps := &dependencies{
		cleanupFuncs: make(map[string]func(ctx context.Context) error),
	}

	allOpts := append(defaultOptions(ctx), opts...)

	for _, opt := range allOpts {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	return deps, nil
}
