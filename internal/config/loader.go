package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"
)

const (
	vaultKVDataKey     = "data"
	vaultKVMetadataKey = "metadata"
)

// Loader pulls secrets from Vault into a ServiceConfig and keeps them fresh
// on SIGHUP or on every poll interval. SIGUSR1 dumps the configuration.
type Loader struct {
	mu               sync.Mutex
	cfg              *ServiceConfig
	secretsRepo      ports.SecretsRepository
	configSignalChan chan os.Signal
	reloadErrors     chan error
	ticker           *time.Ticker
	lastVersion      uint
	retryInterval    time.Duration
	dumpWriter       io.Writer
}

func NewLoader(cfg *ServiceConfig, secretsRepo ports.SecretsRepository, initialVersion uint) *Loader {
	return &Loader{
		cfg:              cfg,
		secretsRepo:      secretsRepo,
		configSignalChan: make(chan os.Signal, 1),
		reloadErrors:     make(chan error, 1),
		lastVersion:      initialVersion,
		retryInterval:    time.Second,
		dumpWriter:       os.Stdout,
	}
}

func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	return cfg, nil
}

// WatchConfigSignals reports the outcome of every reload that found a new
// secret version. A nil error means the config was updated in place.
func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.configSignalChan, syscall.SIGHUP, syscall.SIGUSR1)

	if l.cfg.SecretsStorage.Enabled && l.cfg.SecretsStorage.PollInterval > 0 {
		l.ticker = time.NewTicker(l.cfg.SecretsStorage.PollInterval)
	}

	go func() {
		defer signal.Stop(l.configSignalChan)
		defer close(l.reloadErrors)

		var reloadTickerChan <-chan time.Time
		if l.ticker != nil {
			defer l.ticker.Stop()

			reloadTickerChan = l.ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-reloadTickerChan:
				l.handleConfigReload(ctx)

			case sig := <-l.configSignalChan:
				switch sig {
				case syscall.SIGHUP:
					l.handleConfigReload(ctx)

				case syscall.SIGUSR1:
					l.DumpConfig()
				}
			}
		}
	}()

	return l.reloadErrors
}

// DumpConfig prints the configuration. Secrets are excluded by their json tags.
func (l *Loader) DumpConfig() {
	l.mu.Lock()
	configJSON, err := json.MarshalIndent(l.cfg, "", "  ")
	l.mu.Unlock()

	if err != nil {
		_, _ = fmt.Fprintf(l.dumpWriter, "Error marshaling config: %v\n", err)

		return
	}

	_, _ = fmt.Fprintf(l.dumpWriter, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", configJSON)
}

// Load authenticates, applies the current secret and returns its version.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	if !l.cfg.SecretsStorage.Enabled {
		return 0, fmt.Errorf("secret storage is not enabled")
	}

	if err := authenticateVault(ctx, l.secretsRepo, l.cfg.SecretsStorage); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	data, metadata, err := l.readSecret(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	l.mu.Lock()
	err = applySecretsToConfig(l.cfg, data)
	l.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("failed to apply secrets to config: %w", err)
	}

	version, err := secretVersion(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to get secret version: %w", err)
	}

	l.mu.Lock()
	l.lastVersion = version
	l.mu.Unlock()

	return version, nil
}

// Snapshot returns a copy of the current configuration.
func (l *Loader) Snapshot() ServiceConfig {
	l.mu.Lock()
	defer l.mu.Unlock()

	return *l.cfg
}

func (l *Loader) handleConfigReload(ctx context.Context) {
	_, metadata, err := l.readSecret(ctx)
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to load secret metadata: %w", err))

		return
	}

	currentVersion, err := secretVersion(metadata)
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to get secret version: %w", err))

		return
	}

	l.mu.Lock()
	unchanged := currentVersion == l.lastVersion
	l.mu.Unlock()

	if unchanged {
		return
	}

	if _, err := l.Load(ctx); err != nil {
		l.reportReloadStatus(err)

		return
	}

	l.reportReloadStatus(nil)
}

// readSecret reads the KV v2 entry of the service, which carries both the
// secret values and their metadata.
func (l *Loader) readSecret(ctx context.Context) (map[string]any, map[string]any, error) {
	storage := l.cfg.SecretsStorage
	path := fmt.Sprintf("apps/%s/%s", vaultKVDataKey, storage.MountPath)

	if storage.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, storage.Timeout)
		defer cancel()
	}

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.InitialInterval = l.retryInterval

	secret, err := backoff.Retry(
		ctx,
		func() (*api.Secret, error) {
			return l.secretsRepo.GetSecrets(ctx, path)
		},
		backoff.WithBackOff(retryPolicy),
		backoff.WithMaxTries(storage.MaxRetries+1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read from path %s after %d retries: %w", path, storage.MaxRetries, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, nil, nil
	}

	data, ok := secret.Data[vaultKVDataKey].(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("invalid secret format at path %s, missing %q key", path, vaultKVDataKey)
	}

	metadata, _ := secret.Data[vaultKVMetadataKey].(map[string]any)

	return data, metadata, nil
}

func (l *Loader) reportReloadStatus(err error) {
	select {
	case l.reloadErrors <- err:
	default:
	}
}

func authenticateVault(ctx context.Context, client ports.SecretsRepository, config SecretsStorage) error {
	switch strings.ToLower(config.AuthMethod) {
	case "token":
		if config.Token == "" {
			return fmt.Errorf("token is required for token auth method")
		}

		client.SetToken(config.Token)

		return nil

	case "approle":
		if config.RoleID == "" || config.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for approle auth method")
		}

		resp, err := client.WriteWithContext(ctx, "auth/approle/login", map[string]any{
			"role_id":   config.RoleID,
			"secret_id": config.SecretID,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("no auth info returned from Vault")
		}

		client.SetToken(resp.Auth.ClientToken)

		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", config.AuthMethod)
	}
}

func secretVersion(metadata map[string]any) (uint, error) {
	currentVersion, ok := metadata["current_version"]
	if !ok {
		if rawVersion, found := metadata["version"]; found {
			currentVersion = rawVersion
		} else {
			return 0, nil
		}
	}

	switch v := currentVersion.(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case uint:
		return v, nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(version), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", currentVersion)
	}
}

func applySecretsToConfig(cfg *ServiceConfig, data map[string]any) error {
	for key, value := range data {
		strValue, ok := value.(string)
		if !ok || strValue == "" {
			continue
		}

		if err := applySecretToConfig(cfg, key, strValue); err != nil {
			return err
		}
	}

	return nil
}

func applySecretToConfig(cfg *ServiceConfig, key, value string) error {
	switch key {
	case "AXIOM_TOKEN":
		cfg.Telemetry.Axiom.Token = value
	case "AXIOM_DATASET":
		cfg.Telemetry.Axiom.Dataset = value
	case "CACHE_PASSWORD":
		cfg.Cache.Password = value
	default:
		return nil
	}

	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("failed to set environment variable %s: %w", key, err)
	}

	return nil
}
