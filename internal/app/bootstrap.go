// Package app bootstraps the gateway: loading configuration, wiring the
// event bus, manager, and HTTP gateway together, and running them until a
// shutdown signal arrives.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NexusAI-AX/mcp-gateway/internal/config"
	"github.com/NexusAI-AX/mcp-gateway/internal/events"
	"github.com/NexusAI-AX/mcp-gateway/internal/gateway"
	"github.com/NexusAI-AX/mcp-gateway/internal/mcpclient"
	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

const shutdownGracePeriod = 10 * time.Second

// Application wires together the configuration loader, the MCP client
// manager, the event bus, and the HTTP gateway, and owns their lifecycle.
type Application struct {
	config  *Config
	bus     *events.Bus
	manager *mcpclient.Manager
	loader  *config.Loader
	server  *gateway.Server
}

// NewApplication performs the full bootstrap sequence: configures logging,
// loads the initial configuration, and constructs (but does not start) the
// Manager and HTTP gateway.
func NewApplication(cfg *Config) (*Application, error) {
	logLevel := logging.LevelInfo
	if cfg.Debug {
		logLevel = logging.LevelDebug
	}
	logging.Init(logLevel, os.Stdout)

	bus := events.NewBus(events.DefaultCapacity)
	manager := mcpclient.NewManager(bus)
	loader := config.NewLoader(cfg.ConfigPath)

	servers, err := loader.Load()
	if err != nil {
		logging.Error("Bootstrap", err, "failed to load configuration from %s", cfg.ConfigPath)
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	manager.ApplyConfig(servers)
	logging.Info("Bootstrap", "loaded %d server(s) from %s", len(servers), cfg.ConfigPath)

	if cfg.Reload {
		if err := loader.Watch(func() {
			reloaded, err := loader.Load()
			if err != nil {
				logging.Warn("Bootstrap", "configuration reload failed: %v", err)
				bus.Publish(events.New(events.TypeConfigError, events.ConfigErrorData{Error: err.Error()}))
				return
			}
			manager.ApplyConfig(reloaded)
		}); err != nil {
			logging.Warn("Bootstrap", "could not start configuration watch: %v", err)
		}
	}

	server := gateway.NewServer(cfg.Host, cfg.Port, manager, bus, loader)

	return &Application{
		config:  cfg,
		bus:     bus,
		manager: manager,
		loader:  loader,
		server:  server,
	}, nil
}

// Run auto-starts configured servers, serves the HTTP gateway, and blocks
// until ctx is canceled or a termination signal arrives, then tears
// everything down.
func (a *Application) Run(ctx context.Context) error {
	if started, err := a.manager.AutoStart(ctx); err != nil {
		logging.Warn("Bootstrap", "auto_start returned an error: %v", err)
	} else {
		logging.Info("Bootstrap", "auto-started %d server(s): %v", len(started), started)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-sigCh:
		logging.Info("Bootstrap", "shutdown signal received")
	case <-ctx.Done():
		logging.Info("Bootstrap", "context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Bootstrap", "gateway shutdown error: %v", err)
	}
	if err := a.loader.Close(); err != nil {
		logging.Debug("Bootstrap", "configuration watcher close error: %v", err)
	}
	a.manager.Shutdown(shutdownCtx)

	return runErr
}
