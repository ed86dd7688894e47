package mcpclient

import "time"

// State is a server's lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateError    State = "error"
)

// Status is a point-in-time snapshot of a server's state, never a pointer
// into the Manager's live state: concurrent readers always observe a
// consistent copy, never a record being mutated underneath them.
type Status struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	PID            int       `json:"pid,omitempty"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
	LastError      string    `json:"lastError,omitempty"`
	ToolsCount     int       `json:"toolsCount"`
	ResourcesCount int       `json:"resourcesCount"`
	PromptsCount   int       `json:"promptsCount"`
}

// serverState is the Manager's mutable per-server record. It is only ever
// mutated on the Manager's own methods, guarded by Manager.mu; everything
// outside the package sees copies via Status/catalog snapshot methods.
type serverState struct {
	status    Status
	session   *Session
	process   *Process
	tools     []Tool
	resources []Resource
	prompts   []Prompt
}

func newServerState(id string) *serverState {
	return &serverState{status: Status{ID: id, State: StateStopped}}
}

func (s *serverState) clearCatalogs() {
	s.tools = nil
	s.resources = nil
	s.prompts = nil
	s.status.ToolsCount = 0
	s.status.ResourcesCount = 0
	s.status.PromptsCount = 0
}
