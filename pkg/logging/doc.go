// Package logging provides a structured logging system for the gateway's CLI
// and background services with unified log handling and flexible output
// formatting.
//
// # Log Levels
//   - Debug: detailed information for debugging and development
//   - Info: general informational messages about application operation
//   - Warn: warning messages that indicate potential issues
//   - Error: error messages for failures and exceptional conditions
//
// # Usage
//
//	import "github.com/NexusAI-AX/mcp-gateway/pkg/logging"
//
//	logging.Init(logging.LevelInfo, os.Stdout)
//	logging.Info("Bootstrap", "application starting up")
//	logging.Debug("Config", "loaded configuration from %s", configPath)
//	logging.Warn("Manager", "server %s has no auto_start entry", id)
//	logging.Error("Session", err, "failed to initialize server %s", id)
//
// # Subsystem organization
//
// Logs are tagged by subsystem to enable filtering and categorization:
// Bootstrap, Config, EventBus, Process, Session, Manager, Gateway, CLI.
//
// The package wraps log/slog; Init installs a text handler at the requested
// level and every call attaches the subsystem as a structured attribute.
package logging
