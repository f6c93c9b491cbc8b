package http

import (
	"fmt"
	"net/http"

	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/internal/usecases"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const baseURL = "/api"

type RouterConfig struct {
	App            *usecases.Application
	Telemetry      ports.TelemetrySink
	Logger         logger.Logger
	MetricsClient  metrics.Client
	TracerProvider otelTrace.TracerProvider
	Config         *config.ServiceConfig

	// IdempotencyCache is nil when no cache is configured, checkins are then never replayed.
	IdempotencyCache ports.IdempotencyCache

	// RateLimitStore falls back to a process local store when nil.
	RateLimitStore throttled.GCRAStoreCtx
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestTracking())
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(chimiddleware.Timeout(cfg.Config.PublicHTTPServer.RequestTimeout))
	router.Use(middleware.SecurityHeaders(cfg.Config.App.APIVersion))
	router.Use(middleware.CORS(cfg.Config.PublicHTTPServer.AllowedOrigins))

	if cfg.Config.Telemetry.Traces.Enabled {
		router.Use(middleware.Tracer(cfg.Config.App.ServiceName, cfg.TracerProvider))
		cfg.Logger.Info().Msg("distributed tracing enabled")
	}

	router.Use(middleware.Telemetry(cfg.Telemetry))

	if cfg.Config.Telemetry.Metrics.Enabled {
		metricsMiddleware := middleware.NewMetricsMiddleware(cfg.MetricsClient)
		router.Use(metricsMiddleware.Middleware)
		cfg.Logger.Info().Msg("HTTP metrics collection enabled")
	}

	if cfg.Config.Logging.AccessLog.Enabled {
		healthFilter := middleware.NewHealthCheckFilter(cfg.Config.Logging.AccessLog.LogHealthChecks)

		router.Use(healthFilter.Middleware)
		router.Use(middleware.AccessLogger(cfg.Logger, cfg.Config.Logging.AccessLog.IncludeQueryParams))
		cfg.Logger.Info().
			Bool("log_health_checks", cfg.Config.Logging.AccessLog.LogHealthChecks).
			Msg("structured access logging enabled")
	}

	if cfg.Config.ThrottledRateLimiting.Enabled {
		rateLimiter, err := newRateLimiter(cfg)
		if err != nil {
			return nil, err
		}

		router.Use(rateLimiter)
	}

	deviceHandler := handlers.NewDeviceHandler(
		cfg.App,
		cfg.Telemetry,
		cfg.Logger,
		cfg.Config.App.APIVersion,
		cfg.Config.PhotoStorage.MaxUploadBytes,
	)
	healthHandler := handlers.NewHealthHandler(cfg.App)

	idempotent := middleware.Idempotency(cfg.IdempotencyCache, cfg.Config.Idempotency, cfg.Logger)

	requestValidator, err := newRequestValidator(cfg, deviceHandler)
	if err != nil {
		return nil, err
	}

	router.Route(baseURL, func(r chi.Router) {
		if requestValidator != nil {
			r.Use(requestValidator)
		}

		r.Get("/health", healthHandler.Health)
		r.Get("/liveness", healthHandler.Liveness)
		r.Get("/readiness", healthHandler.Readiness)

		r.Group(func(r chi.Router) {
			r.Use(idempotent)

			r.Post("/computers/checkin", deviceHandler.CheckinComputer)
			r.Post("/computers/frequent", deviceHandler.RegisterFrequentComputer)
			r.Post("/medicaldevices/checkin", deviceHandler.CheckinMedicalDevice)
			r.Patch("/computers/frequent/checkin/{"+handlers.IDParam+"}", deviceHandler.CheckinFrequentComputer)
			r.Patch("/devices/checkout/{"+handlers.IDParam+"}", deviceHandler.CheckoutDevice)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compression(cfg.Config.Compression, cfg.Logger, cfg.MetricsClient))
			r.Use(middleware.CacheControl(cfg.Config.HTTPCaching.MaxAge))

			if cfg.Config.HTTPCaching.Enabled {
				r.Use(middleware.ConditionalGET(middleware.NewETagGenerator()))
			}

			r.Get("/computers", deviceHandler.GetComputers)
			r.Get("/computers/frequent", deviceHandler.GetFrequentComputers)
			r.Get("/medicaldevices", deviceHandler.GetMedicalDevices)
			r.Get("/devices/entered", deviceHandler.GetEnteredDevices)
			r.Get("/devices/{"+handlers.IDParam+"}", deviceHandler.GetDevice)
		})
	})

	return router, nil
}

// newRequestValidator checks /api requests against the OpenAPI document before
// any handler runs. It returns nil when validation is switched off.
func newRequestValidator(cfg RouterConfig, deviceHandler *handlers.DeviceHandler) (func(http.Handler) http.Handler, error) {
	if !cfg.Config.RequestValidation.Enabled {
		return nil, nil
	}

	swagger, err := handlers.GetSwagger()
	if err != nil {
		return nil, err
	}

	swagger.Servers = openapi3.Servers{
		&openapi3.Server{URL: baseURL},
	}

	validator, err := middleware.OapiRequestValidatorWithOptions(
		cfg.Logger,
		swagger,
		&middleware.RequestValidatorOptions{
			Options: openapi3filter.Options{
				MultiError:          false,
				SkipSettingDefaults: true,
			},
			MaxBodyBytes: cfg.Config.PhotoStorage.MaxUploadBytes,
			ErrorHandler: deviceHandler.RejectRequest,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating request validator: %w", err)
	}

	cfg.Logger.Info().Msg("OpenAPI request validation enabled")

	return validator, nil
}

func newRateLimiter(cfg RouterConfig) (func(http.Handler) http.Handler, error) {
	store := cfg.RateLimitStore
	if store == nil {
		memStore, err := memstore.NewCtx(int(cfg.Config.ThrottledRateLimiting.MaxKeys))
		if err != nil {
			return nil, fmt.Errorf("creating in-memory rate limit store: %w", err)
		}

		store = memStore
	}

	rateLimiter, err := middleware.ThrottledRateLimiting(cfg.Config.ThrottledRateLimiting, store, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating rate limiter: %w", err)
	}

	cfg.Logger.Info().
		Uint("requests_per_second", cfg.Config.ThrottledRateLimiting.RequestsPerSecond).
		Uint("burst_size", cfg.Config.ThrottledRateLimiting.BurstSize).
		Msg("rate limiting enabled")

	return rateLimiter, nil
}
