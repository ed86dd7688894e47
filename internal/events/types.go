// Package events implements a bounded, multi-producer single-consumer bus of
// timestamped events describing every significant state change in the
// gateway: config reloads, server lifecycle transitions, and dispatch
// outcomes.
package events

import "time"

// Type enumerates the closed set of event kinds the bus carries.
type Type string

const (
	TypeConfigLoaded             Type = "config_loaded"
	TypeConfigError              Type = "config_error"
	TypeServerStarting           Type = "server_starting"
	TypeServerStarted            Type = "server_started"
	TypeServerStopped            Type = "server_stopped"
	TypeServerError              Type = "server_error"
	TypeServerInitError          Type = "server_init_error"
	TypeServerInitialized        Type = "server_initialized"
	TypeServerCapabilitiesLoaded Type = "server_capabilities_loaded"
	TypeServerStderr             Type = "server_stderr"
	TypeToolExecuted             Type = "tool_executed"
	TypeToolError                Type = "tool_error"
	TypeResourceRead             Type = "resource_read"
	TypeResourceError            Type = "resource_error"
	TypePromptRetrieved          Type = "prompt_retrieved"
	TypePromptError              Type = "prompt_error"
	TypeHeartbeat                Type = "heartbeat"
)

// Event is a single timestamped occurrence published onto the bus. Data
// carries one of the typed payload structs below; wire serialization
// flattens it to a plain JSON object alongside type and timestamp.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Data      any       `json:"data"`
}

// ConfigLoadedData is the payload for TypeConfigLoaded.
type ConfigLoadedData struct {
	ServerCount int `json:"serverCount"`
}

// ConfigErrorData is the payload for TypeConfigError.
type ConfigErrorData struct {
	Error string `json:"error"`
}

// ServerLifecycleData is the payload for server_starting/started/stopped/
// initialized and the error variants.
type ServerLifecycleData struct {
	ServerID string `json:"serverId"`
	PID      int    `json:"pid,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CapabilitiesLoadedData is the payload for server_capabilities_loaded.
type CapabilitiesLoadedData struct {
	ServerID       string `json:"serverId"`
	ToolsCount     int    `json:"toolsCount"`
	ResourcesCount int    `json:"resourcesCount"`
	PromptsCount   int    `json:"promptsCount"`
}

// StderrData is the payload for server_stderr.
type StderrData struct {
	ServerID string `json:"serverId"`
	Line     string `json:"line"`
}

// OperationData is the payload for tool_executed/tool_error, resource_read/
// resource_error, and prompt_retrieved/prompt_error.
type OperationData struct {
	ServerID      string `json:"serverId"`
	Name          string `json:"name"`
	CorrelationID string `json:"correlationId"`
	Arguments     any    `json:"arguments,omitempty"`
	ResultSummary string `json:"resultSummary,omitempty"`
	Error         string `json:"error,omitempty"`
}

func New(t Type, data any) Event {
	return Event{Timestamp: time.Now(), Type: t, Data: data}
}
