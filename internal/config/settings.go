package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
)

const (
	Development = 1 << iota
	Sandbox
	Staging
	Production
)

type (
	ServiceConfig struct {
		App                   App                   `json:"app"`
		SecretsStorage        SecretsStorage        `json:"secrets_storage"`
		PublicHTTPServer      PublicHTTPServer      `json:"public_http_server"`
		AdminHTTPServer       AdminHTTPServer       `json:"admin_http_server"`
		MediaServer           MediaServer           `json:"media_server"`
		PhotoStorage          PhotoStorage          `json:"photo_storage"`
		Repository            Repository            `json:"repository"`
		Backoff               Backoff               `json:"backoff"`
		Cache                 Cache                 `json:"cache"`
		HTTPCaching           HTTPCaching           `json:"http_caching"`
		Compression           Compression           `json:"compression"`
		RequestValidation     RequestValidation     `json:"request_validation"`
		ThrottledRateLimiting ThrottledRateLimiting `json:"throttled_rate_limiting"`
		Idempotency           Idempotency           `json:"idempotency"`
		Logging               Logging               `json:"logging"`
		Telemetry             Telemetry             `json:"telemetry"`
	}

	App struct {
		ServiceName string      `envconfig:"APP_SERVICE_NAME" default:"svc-checkpoint" json:"service_name"`
		APIVersion  string      `envconfig:"APP_API_VERSION" default:"v1" json:"api_version"`
		BaseURL     string      `envconfig:"APP_URL" default:"http://localhost" json:"base_url"`
		Env         Environment `json:"environment"`
	}

	Environment struct {
		Name string `envconfig:"APP_ENVIRONMENT" default:"development" json:"env"`
	}

	SecretsStorage struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"" json:"-"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"-"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"-"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"svc-checkpoint" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    uint          `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"24h" json:"poll_interval"`
	}

	PublicHTTPServer struct {
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port            uint          `envconfig:"PORT" default:"3000" json:"port"`
		ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		RequestTimeout  time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"20s" json:"request_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
		AllowedOrigins  []string      `envconfig:"HTTP_ALLOWED_ORIGINS" default:"*" json:"allowed_origins"`
	}

	AdminHTTPServer struct {
		Enabled         bool          `envconfig:"ADMIN_HTTP_SERVER_ENABLED" default:"true" json:"enabled"`
		Host            string        `envconfig:"ADMIN_HTTP_SERVER_HOST" default:"127.0.0.1" json:"host"`
		Port            uint          `envconfig:"ADMIN_HTTP_SERVER_PORT" default:"8089" json:"port"`
		ReadTimeout     time.Duration `envconfig:"ADMIN_HTTP_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"ADMIN_HTTP_WRITE_TIMEOUT" default:"15s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"ADMIN_HTTP_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"ADMIN_HTTP_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
	}

	// MediaServer serves stored photos. BaseURL defaults to App.BaseURL on Port.
	MediaServer struct {
		Enabled         bool          `envconfig:"MEDIA_SERVER_ENABLED" default:"true" json:"enabled"`
		Host            string        `envconfig:"MEDIA_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port            uint          `envconfig:"MEDIA_PORT" default:"8081" json:"port"`
		BaseURL         string        `envconfig:"MEDIA_BASE_URL" default:"" json:"base_url"`
		ReadTimeout     time.Duration `envconfig:"MEDIA_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"MEDIA_WRITE_TIMEOUT" default:"60s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"MEDIA_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"MEDIA_SHUTDOWN_TIMEOUT" default:"10s" json:"shutdown_timeout"`
	}

	PhotoStorage struct {
		Dir               string   `envconfig:"PHOTO_STORAGE_DIR" default:"./public" json:"dir"`
		AllowedExtensions []string `envconfig:"PHOTO_ALLOWED_EXTENSIONS" default:"jpg,jpeg,png,webp,gif" json:"allowed_extensions"`
		MaxUploadBytes    int64    `envconfig:"PHOTO_MAX_UPLOAD_BYTES" default:"10485760" json:"max_upload_bytes"`
	}

	Repository struct {
		Shards uint `envconfig:"DEVICES_REPOSITORY_SHARDS" default:"32" json:"shards"`
	}

	Backoff struct {
		BaseDelay  time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"500ms" json:"base_delay"`
		Multiplier float64       `envconfig:"BACKOFF_MULTIPLIER" default:"1.5" json:"multiplier"`
		Jitter     float64       `envconfig:"BACKOFF_JITTER" default:"0.3" json:"jitter"`
		MaxDelay   time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"10s" json:"max_delay"`
		MaxRetries uint          `envconfig:"BACKOFF_MAX_RETRIES" default:"3" json:"max_retries"`
		MaxElapsed time.Duration `envconfig:"BACKOFF_MAX_ELAPSED" default:"30s" json:"max_elapsed"`
	}

	Cache struct {
		Enabled       bool          `envconfig:"CACHE_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"CACHE_ADDRESS" default:"keydb:6379" json:"address"`
		Password      string        `envconfig:"CACHE_PASSWORD" default:"" json:"-"`
		DB            uint          `envconfig:"CACHE_DB" default:"0" json:"db"`
		PoolSize      uint          `envconfig:"CACHE_POOL_SIZE" default:"10" json:"pool_size"`
		MinIdleConns  uint          `envconfig:"CACHE_MIN_IDLE_CONNS" default:"3" json:"min_idle_conns"`
		DialTimeout   time.Duration `envconfig:"CACHE_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
		ReadTimeout   time.Duration `envconfig:"CACHE_READ_TIMEOUT" default:"3s" json:"read_timeout"`
		WriteTimeout  time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"3s" json:"write_timeout"`
		PoolTimeout   time.Duration `envconfig:"CACHE_POOL_TIMEOUT" default:"5s" json:"pool_timeout"`
		MaxRetries    uint          `envconfig:"CACHE_MAX_RETRIES" default:"3" json:"max_retries"`
		DefaultExpiry time.Duration `envconfig:"CACHE_DEFAULT_EXPIRY" default:"24h" json:"default_expiry"`
	}

	// HTTPCaching controls ETag validation on list endpoints. Lists are never
	// cached server side, clients revalidate with If-None-Match.
	HTTPCaching struct {
		Enabled bool `envconfig:"HTTP_CACHING_ENABLED" default:"true" json:"enabled"`
		MaxAge  uint `envconfig:"HTTP_CACHING_MAX_AGE" default:"0" json:"max_age"`
	}

	// Compression negotiates br, gzip or deflate for list responses. Bodies below
	// MinSize bytes are sent as is.
	Compression struct {
		Enabled      bool     `envconfig:"COMPRESSION_ENABLED" default:"true" json:"enabled"`
		Level        int      `envconfig:"COMPRESSION_LEVEL" default:"5" json:"level"`
		MinSize      int      `envconfig:"COMPRESSION_MIN_SIZE" default:"1024" json:"min_size"`
		ContentTypes []string `envconfig:"COMPRESSION_CONTENT_TYPES" default:"application/json" json:"content_types"`
	}

	RequestValidation struct {
		Enabled bool `envconfig:"REQUEST_VALIDATION_ENABLED" default:"true" json:"enabled"`
	}

	ThrottledRateLimiting struct {
		Enabled           bool     `envconfig:"RATE_LIMITING_ENABLED" default:"true" json:"enabled"`
		RequestsPerSecond uint     `envconfig:"RATE_LIMITING_REQUESTS_PER_SECOND" default:"50" json:"requests_per_second"`
		BurstSize         uint     `envconfig:"RATE_LIMITING_BURST_SIZE" default:"100" json:"burst_size"`
		EnableIPLimiting  bool     `envconfig:"RATE_LIMITING_ENABLE_IP_LIMITING" default:"true" json:"enable_ip_limiting"`
		MaxKeys           uint     `envconfig:"RATE_LIMITING_MAX_KEYS" default:"65536" json:"max_keys"`
		SkipPaths         []string `envconfig:"RATE_LIMITING_SKIP_PATHS" default:"/api/health,/api/liveness,/api/readiness" json:"skip_paths"`
		GracefulDegraded  bool     `envconfig:"RATE_LIMITING_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	Idempotency struct {
		Enabled          bool          `envconfig:"IDEMPOTENCY_ENABLED" default:"true" json:"enabled"`
		CacheTTL         time.Duration `envconfig:"IDEMPOTENCY_CACHE_TTL" default:"24h" json:"cache_ttl"`
		LockTTL          time.Duration `envconfig:"IDEMPOTENCY_LOCK_TTL" default:"30s" json:"lock_ttl"`
		RequiredMethods  []string      `envconfig:"IDEMPOTENCY_REQUIRED_METHODS" default:"POST,PATCH" json:"required_methods"`
		HeaderName       string        `envconfig:"IDEMPOTENCY_HEADER" default:"Idempotency-Key" json:"header_name"`
		ReplayedHeader   string        `envconfig:"IDEMPOTENCY_REPLAYED_HEADER" default:"Idempotent-Replayed" json:"replayed_header"`
		MaxBodyBytes     int64         `envconfig:"IDEMPOTENCY_MAX_BODY_BYTES" default:"10485760" json:"max_body_bytes"`
		GracefulDegraded bool          `envconfig:"IDEMPOTENCY_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	Logging struct {
		Level     string    `envconfig:"LOG_LEVEL" default:"info" json:"level"`
		Format    string    `envconfig:"LOG_FORMAT" default:"json" json:"format"`
		AccessLog AccessLog `json:"access_log"`
	}

	AccessLog struct {
		Enabled            bool `envconfig:"ACCESS_LOG_ENABLED" default:"true" json:"enabled"`
		LogHealthChecks    bool `envconfig:"ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
		IncludeQueryParams bool `envconfig:"ACCESS_LOG_INCLUDE_QUERY_PARAMS" default:"true" json:"include_query_params"`
	}

	Telemetry struct {
		Enabled      bool   `envconfig:"OTEL_ENABLED" default:"false" json:"enabled"`
		ExporterType string `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`

		OtelGRPCHost       string `envconfig:"OTEL_HOST" json:"otel_grpc_host"`
		OtelGRPCPort       string `envconfig:"OTEL_PORT" default:"4317" json:"otel_grpc_port"`
		OtelProductCluster string `envconfig:"OTEL_PRODUCT_CLUSTER" json:"otel_product_cluster"`

		Metrics Metrics `json:"metrics"`
		Traces  Traces  `json:"traces"`
		Axiom   Axiom   `json:"axiom"`
	}

	Metrics struct {
		Enabled   bool   `envconfig:"METRICS_ENABLED" default:"true" json:"enabled"`
		Namespace string `envconfig:"METRICS_NAMESPACE" default:"checkpoint" json:"namespace"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1.0" json:"sampler_ratio"`
	}

	// Axiom configures the request and error event sink. It stays a no-op until a token is set.
	Axiom struct {
		Token          string               `envconfig:"AXIOM_TOKEN" default:"" json:"-"`
		Dataset        string               `envconfig:"AXIOM_DATASET" default:"checkpoint" json:"dataset"`
		URL            string               `envconfig:"AXIOM_URL" default:"https://api.axiom.co" json:"url"`
		BatchSize      uint                 `envconfig:"AXIOM_BATCH_SIZE" default:"25" json:"batch_size"`
		FlushInterval  time.Duration        `envconfig:"AXIOM_FLUSH_INTERVAL" default:"5s" json:"flush_interval"`
		BufferSize     uint                 `envconfig:"AXIOM_BUFFER_SIZE" default:"1024" json:"buffer_size"`
		Timeout        time.Duration        `envconfig:"AXIOM_TIMEOUT" default:"10s" json:"timeout"`
		CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
	}

	CircuitBreakerConfig struct {
		Enabled          bool          `envconfig:"AXIOM_CB_ENABLED" default:"true" json:"enabled"`
		MaxRequests      uint          `envconfig:"AXIOM_CB_MAX_REQUESTS" default:"1" json:"max_requests"`
		Interval         time.Duration `envconfig:"AXIOM_CB_INTERVAL" default:"60s" json:"interval"`
		Timeout          time.Duration `envconfig:"AXIOM_CB_TIMEOUT" default:"30s" json:"timeout"`
		FailureThreshold uint          `envconfig:"AXIOM_CB_FAILURE_THRESHOLD" default:"5" json:"failure_threshold"`
	}
)

func (c *ServiceConfig) GetEnvironment() int {
	switch c.App.Env.Name {
	case "production", "prod":
		return Production
	case "staging", "stg":
		return Staging
	case "sandbox", "sbx":
		return Sandbox
	default:
		return Development
	}
}

func (c *ServiceConfig) IsProduction() bool {
	return c.GetEnvironment() == Production
}

// Validate rejects settings the service cannot start with.
func (c *ServiceConfig) Validate() error {
	if c.PublicHTTPServer.Port == 0 || c.PublicHTTPServer.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.PublicHTTPServer.Port)
	}

	if c.MediaServer.Enabled && c.MediaServer.Port == c.PublicHTTPServer.Port {
		return fmt.Errorf("MEDIA_PORT must differ from PORT, both are %d", c.PublicHTTPServer.Port)
	}

	if len(c.PhotoStorage.AllowedExtensions) == 0 {
		return fmt.Errorf("PHOTO_ALLOWED_EXTENSIONS must not be empty")
	}

	if c.PhotoStorage.MaxUploadBytes <= 0 {
		return fmt.Errorf("PHOTO_MAX_UPLOAD_BYTES must be positive, got %d", c.PhotoStorage.MaxUploadBytes)
	}

	if c.Telemetry.Axiom.Enabled() && c.Telemetry.Axiom.BatchSize == 0 {
		return fmt.Errorf("AXIOM_BATCH_SIZE must be positive")
	}

	return nil
}

func (a Axiom) Enabled() bool {
	return strings.TrimSpace(a.Token) != ""
}

// PublicBaseURL is where photo URLs point to. Without MEDIA_BASE_URL it is
// the application URL with the media port.
func (m MediaServer) PublicBaseURL(appBaseURL string) string {
	if m.BaseURL != "" {
		return strings.TrimSuffix(m.BaseURL, "/")
	}

	port := strconv.FormatUint(uint64(m.Port), 10)

	base, err := url.Parse(appBaseURL)
	if err != nil || base.Hostname() == "" {
		return "http://" + net.JoinHostPort("localhost", port)
	}

	base.Host = net.JoinHostPort(base.Hostname(), port)
	base.Path = ""
	base.RawQuery = ""

	return base.String()
}
