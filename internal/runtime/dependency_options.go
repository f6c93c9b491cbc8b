package runtime

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"

	inboundhttp "github.com/architeacher/checkpoint/internal/adapters/inbound/http"
	"github.com/architeacher/checkpoint/internal/adapters/photos"
	"github.com/architeacher/checkpoint/internal/adapters/repos"
	"github.com/architeacher/checkpoint/internal/adapters/telemetry"
	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/infrastructure"
	"github.com/architeacher/checkpoint/internal/services"
	"github.com/architeacher/checkpoint/internal/usecases"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics/noop"
	"github.com/architeacher/checkpoint/pkg/metrics/prometheus"
	"github.com/hashicorp/vault/api"
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithLogger(),
		WithSecretsRepository(),
		WithConfigLoader(ctx),
		WithMetrics(),
		WithTracing(),
		WithCache(),
		WithTelemetrySink(),
		WithDevicesRepository(),
		WithPhotoStore(),
		WithServices(),
		WithApplication(),
		WithHTTPServer(),
		WithAdminServer(),
		WithMediaServer(),
	}
}

func WithConfig() DependencyOption {
	return func(d *dependencies) error {
		cfg, err := config.Init()
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}

		d.config = cfg

		return nil
	}
}

func WithLogger() DependencyOption {
	return func(d *dependencies) error {
		d.infra.logger = logger.New(
			d.config.Logging.Level,
			d.config.Logging.Format,
			logger.WithService(d.config.App.ServiceName, config.ServiceVersion),
		)

		return nil
	}
}

func WithSecretsRepository() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SecretsStorage.Enabled {
			return nil
		}

		vaultConfig := api.DefaultConfig()
		vaultConfig.Address = d.config.SecretsStorage.Address
		vaultConfig.Timeout = d.config.SecretsStorage.Timeout
		vaultConfig.MaxRetries = int(d.config.SecretsStorage.MaxRetries)

		if d.config.SecretsStorage.TLSSkipVerify {
			vaultConfig.HttpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}

		client, err := api.NewClient(vaultConfig)
		if err != nil {
			return fmt.Errorf("creating Vault client: %w", err)
		}

		if d.config.SecretsStorage.Namespace != "" {
			client.SetNamespace(d.config.SecretsStorage.Namespace)
		}

		d.repos.secretsRepo = repos.NewVaultRepository(client)

		return nil
	}
}

func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SecretsStorage.Enabled || d.repos.secretsRepo == nil {
			return nil
		}

		loader := config.NewLoader(d.config, d.repos.secretsRepo, 0)

		version, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading secrets from Vault: %w", err)
		}

		d.infra.logger.Info().Uint("secret_version", version).Msg("secrets loaded")

		d.configLoader = loader

		return nil
	}
}

func WithMetrics() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Metrics.Enabled {
			d.infra.metricsClient = noop.NewMetricsClient()

			return nil
		}

		d.infra.metricsClient = prometheus.NewClient(d.config.Telemetry.Metrics.Namespace)

		return nil
	}
}

func WithTracing() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Enabled || !d.config.Telemetry.Traces.Enabled {
			d.infra.tracerProvider = infrastructure.NewNoopTracerProvider()

			return nil
		}

		tp, shutdown, err := infrastructure.NewTracerProvider(d.config.App, d.config.Telemetry)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}

		d.infra.tracerProvider = tp
		d.cleanupFuncs["tracer"] = shutdown

		return nil
	}
}

// WithCache connects KeyDB for idempotent checkins and the shared rate limiter.
// Without it both fall back to their process local behaviour.
func WithCache() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Cache.Enabled {
			d.services.monitors = append(d.services.monitors, services.NewDisabledMonitor("keydb"))

			return nil
		}

		client := infrastructure.NewKeyDBClient(d.config.Cache, d.infra.logger)

		d.infra.cacheClient = client
		d.repos.idempotencyRepo = repos.NewIdempotencyRepository(client)
		d.repos.rateLimitStore = repos.NewRateLimitStore(client)
		d.services.monitors = append(d.services.monitors, services.NewMonitor("keydb", client.Ping))
		d.cleanupFuncs["keydb"] = func(context.Context) error {
			return client.Close()
		}

		return nil
	}
}

// WithTelemetrySink ships request and error events to Axiom. With Vault enabled the
// sink is started even without a token, a reloaded secret may provide one later.
func WithTelemetrySink() DependencyOption {
	return func(d *dependencies) error {
		axiomCfg := d.config.Telemetry.Axiom

		if !axiomCfg.Enabled() && d.configLoader == nil {
			d.infra.telemetrySink = telemetry.NewNoopSink()

			return nil
		}

		sink := telemetry.NewAxiomSink(
			d.config.App,
			axiomCfg,
			d.config.Backoff,
			d.infra.logger,
			telemetry.WithMetrics(d.infra.metricsClient),
		)

		d.infra.axiomSink = sink
		d.infra.telemetrySink = sink
		d.cleanupFuncs["telemetry_sink"] = sink.Shutdown

		return nil
	}
}

func WithDevicesRepository() DependencyOption {
	return func(d *dependencies) error {
		d.repos.devicesRepo = repos.NewMemoryDevicesRepository(
			d.infra.logger,
			repos.WithShardCount(int(d.config.Repository.Shards)),
		)

		return nil
	}
}

func WithPhotoStore() DependencyOption {
	return func(d *dependencies) error {
		store, err := photos.NewFilesystemStore(
			d.config.PhotoStorage.Dir,
			d.config.MediaServer.PublicBaseURL(d.config.App.BaseURL),
			d.config.PhotoStorage.AllowedExtensions,
			d.infra.logger,
		)
		if err != nil {
			return fmt.Errorf("initializing photo storage: %w", err)
		}

		d.repos.photoStore = store

		return nil
	}
}

func WithServices() DependencyOption {
	return func(d *dependencies) error {
		d.services.computers = services.NewComputerService(d.repos.devicesRepo, d.repos.photoStore)
		d.services.medicalDevices = services.NewMedicalDeviceService(d.repos.devicesRepo, d.repos.photoStore)
		d.services.devices = services.NewDeviceService(d.repos.devicesRepo)
		d.services.healthChecker = services.NewHealthService(
			d.repos.devicesRepo,
			d.config.App.APIVersion,
			d.services.monitors,
		)

		return nil
	}
}

func WithApplication() DependencyOption {
	return func(d *dependencies) error {
		d.app = usecases.NewApplication(
			usecases.Services{
				Computers:      d.services.computers,
				MedicalDevices: d.services.medicalDevices,
				Devices:        d.services.devices,
				Health:         d.services.healthChecker,
			},
			d.infra.logger,
			d.infra.tracerProvider,
			d.infra.metricsClient,
		)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *dependencies) error {
		routerCfg := inboundhttp.RouterConfig{
			App:              d.app,
			Telemetry:        d.infra.telemetrySink,
			Logger:           d.infra.logger,
			MetricsClient:    d.infra.metricsClient,
			TracerProvider:   d.infra.tracerProvider,
			Config:           d.config,
			IdempotencyCache: d.repos.idempotencyRepo,
			RateLimitStore:   d.repos.rateLimitStore,
		}

		router, err := inboundhttp.NewRouter(routerCfg)
		if err != nil {
			return fmt.Errorf("building public router: %w", err)
		}

		serverCfg := d.config.PublicHTTPServer
		d.infra.publicHttpServer = &http.Server{
			Addr:         hostPort(serverCfg.Host, serverCfg.Port),
			Handler:      router,
			ReadTimeout:  serverCfg.ReadTimeout,
			WriteTimeout: serverCfg.WriteTimeout,
			IdleTimeout:  serverCfg.IdleTimeout,
		}

		return nil
	}
}

func WithAdminServer() DependencyOption {
	return func(d *dependencies) error {
		serverCfg := d.config.AdminHTTPServer
		if !serverCfg.Enabled {
			return nil
		}

		router := inboundhttp.NewAdminRouter(inboundhttp.AdminRouterConfig{
			App:           d.app,
			MetricsClient: d.infra.metricsClient,
			Logger:        d.infra.logger,
		})

		d.infra.adminHttpServer = &http.Server{
			Addr:         hostPort(serverCfg.Host, serverCfg.Port),
			Handler:      router,
			ReadTimeout:  serverCfg.ReadTimeout,
			WriteTimeout: serverCfg.WriteTimeout,
			IdleTimeout:  serverCfg.IdleTimeout,
		}

		return nil
	}
}

func WithMediaServer() DependencyOption {
	return func(d *dependencies) error {
		serverCfg := d.config.MediaServer
		if !serverCfg.Enabled {
			return nil
		}

		router, closeRoot, err := photos.NewMediaRouter(d.repos.photoStore.Dir(), d.infra.logger)
		if err != nil {
			return fmt.Errorf("building media router: %w", err)
		}

		d.infra.mediaHttpServer = &http.Server{
			Addr:         hostPort(serverCfg.Host, serverCfg.Port),
			Handler:      router,
			ReadTimeout:  serverCfg.ReadTimeout,
			WriteTimeout: serverCfg.WriteTimeout,
			IdleTimeout:  serverCfg.IdleTimeout,
		}
		d.cleanupFuncs["media_root"] = func(context.Context) error {
			return closeRoot()
		}

		return nil
	}
}

func hostPort(host string, port uint) string {
	return net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10))
}
