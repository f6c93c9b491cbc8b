package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type ServiceCtx struct {
	deps              *dependencies
	dependencyOptions []DependencyOption
	shutdownChannel   chan os.Signal
	serverCtx         context.Context
	serverStopFunc    context.CancelFunc
	serverReady       chan struct{}
}

func New(opts ...ServiceOption) *ServiceCtx {
	ctx := &ServiceCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(ctx)
	}

	return ctx
}

func (c *ServiceCtx) Run() {
	if err := c.build(); err != nil {
		log.Fatalf("failed to build service: %v", err)
	}

	c.startService()
	c.shutdownHook()
	c.monitorConfigChanges()

	// Waits for one of the following shutdown conditions to happen.
	select {
	case <-c.serverCtx.Done():
	case <-c.shutdownChannel:
		defer close(c.shutdownChannel)
	}

	c.shutdown()
}

func (c *ServiceCtx) build() error {
	c.serverCtx, c.serverStopFunc = context.WithCancel(context.Background())

	var err error

	c.deps, err = initializeDependencies(c.serverCtx, c.dependencyOptions...)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}

	return nil
}

func (c *ServiceCtx) startService() {
	addr := c.deps.infra.publicHttpServer.Addr

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	c.deps.infra.logger.Info().
		Str("address", listener.Addr().String()).
		Str("api_version", c.deps.config.App.APIVersion).
		Msg("starting the http server")

	go func() {
		if err := c.deps.infra.publicHttpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("public http server error: %v", err)
		}
	}()

	c.startAuxiliaryServer("admin", c.deps.infra.adminHttpServer)
	c.startAuxiliaryServer("media", c.deps.infra.mediaHttpServer)

	if c.serverReady != nil {
		close(c.serverReady)
	}
}

func (c *ServiceCtx) startAuxiliaryServer(name string, server *http.Server) {
	if server == nil {
		return
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatalf("failed to listen on %s server %s: %v", name, server.Addr, err)
	}

	c.deps.infra.logger.Info().
		Str("address", listener.Addr().String()).
		Msgf("starting the %s http server", name)

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s http server error: %v", name, err)
		}
	}()
}

// monitorConfigChanges rotates the telemetry token whenever Vault hands out a new secret.
func (c *ServiceCtx) monitorConfigChanges() {
	if c.deps.configLoader == nil {
		return
	}

	reloadErrors := c.deps.configLoader.WatchConfigSignals(c.serverCtx)
	go func() {
		for err := range reloadErrors {
			if err != nil {
				c.deps.infra.logger.Error().Err(err).Msg("config reload failed")

				continue
			}

			snapshot := c.deps.configLoader.Snapshot()
			if c.deps.infra.axiomSink != nil {
				c.deps.infra.axiomSink.UpdateToken(snapshot.Telemetry.Axiom.Token)
			}

			c.deps.infra.logger.Info().Msg("config reloaded successfully")
		}
	}()
}

func (c *ServiceCtx) shutdownHook() {
	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
}

func (c *ServiceCtx) shutdown() {
	c.deps.infra.logger.Info().Msg("shutting down service...")

	// Cancel context that underlying processes would start cleanup.
	c.serverStopFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.config.PublicHTTPServer.ShutdownTimeout)
	defer cancel()

	go func() {
		<-shutdownCtx.Done()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			c.deps.infra.logger.Error().Msg("graceful shutdown timed out.. forcing exit.")
			os.Exit(1)
		}
	}()

	c.stopServers(shutdownCtx)
	c.cleanup(shutdownCtx)

	c.deps.infra.logger.Info().Msg("service shutdown complete")
}

// stopServers drains in-flight requests before any dependency they use is released.
func (c *ServiceCtx) stopServers(shutdownCtx context.Context) {
	servers := map[string]*http.Server{
		"public": c.deps.infra.publicHttpServer,
		"admin":  c.deps.infra.adminHttpServer,
		"media":  c.deps.infra.mediaHttpServer,
	}

	var wg sync.WaitGroup

	for name, server := range servers {
		if server == nil {
			continue
		}

		wg.Go(func() {
			if err := server.Shutdown(shutdownCtx); err != nil {
				c.deps.infra.logger.Error().
					Err(err).
					Str("server", name).
					Msg("failed to shutdown the http server gracefully")
			}
		})
	}

	wg.Wait()
}

// WaitForServer blocks until the http servers are listening.
// If you want to be notified when the server is running,
// make sure you instantiate your server with WithWaitingForServer.
//
// Example:
//
//	srv := runtime.New(WithWaitingForServer())
//	go func() {
//		srv.Run()
//	}()
//
//	srv.WaitForServer()
func (c *ServiceCtx) WaitForServer() {
	if c.serverReady != nil {
		<-c.serverReady
	}
}

// Stop triggers the same graceful shutdown as SIGTERM.
func (c *ServiceCtx) Stop() {
	c.shutdownChannel <- syscall.SIGTERM
}

func (c *ServiceCtx) cleanup(shutdownCtx context.Context) {
	c.deps.infra.logger.Info().Msg("cleaning up resources...")

	// The sink drains its buffer before the other resources go away.
	if sinkShutdown, ok := c.deps.cleanupFuncs["telemetry_sink"]; ok {
		c.runCleanup(shutdownCtx, "telemetry_sink", sinkShutdown)
	}

	for resource, cleanupFn := range c.deps.cleanupFuncs {
		if resource == "telemetry_sink" {
			continue
		}

		c.runCleanup(shutdownCtx, resource, cleanupFn)
	}

	c.deps.infra.logger.Info().Msg("cleanup completed")
}

func (c *ServiceCtx) runCleanup(ctx context.Context, resource string, cleanupFn func(ctx context.Context) error) {
	if err := cleanupFn(ctx); err != nil {
		c.deps.infra.logger.Error().
			Err(err).
			Str("resource", resource).
			Msg("failed to shutdown the resource gracefully")
	}
}
