package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NexusAI-AX/mcp-gateway/internal/config"
	"github.com/NexusAI-AX/mcp-gateway/internal/events"
	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

// restartQuiesce is how long Manager.RestartServer waits between stopping and
// restarting a server.
const restartQuiesce = 1 * time.Second

// Manager is the top-level orchestrator: it owns the map of server
// descriptors, the map of live Sessions, and the per-server catalogs, and
// exposes the public operations safe to call concurrently from multiple
// callers. There is exactly one Manager per running gateway, constructed once
// at application entry and passed by reference, not a package-level
// singleton.
type Manager struct {
	bus *events.Bus

	mu          sync.RWMutex
	descriptors map[string]config.ServerDescriptor
	servers     map[string]*serverState
}

// NewManager creates an empty Manager publishing to bus.
func NewManager(bus *events.Bus) *Manager {
	return &Manager{
		bus:         bus,
		descriptors: make(map[string]config.ServerDescriptor),
		servers:     make(map[string]*serverState),
	}
}

// ApplyConfig replaces the descriptor set wholesale: running servers whose id
// no longer appears are stopped; new ids appear in the stopped state; servers
// present in both sets are left untouched.
func (m *Manager) ApplyConfig(descriptors map[string]config.ServerDescriptor) {
	m.mu.Lock()
	var toStop []string
	for id := range m.descriptors {
		if _, stillPresent := descriptors[id]; !stillPresent {
			toStop = append(toStop, id)
		}
	}
	for id := range descriptors {
		if _, existed := m.servers[id]; !existed {
			m.servers[id] = newServerState(id)
		}
	}
	m.descriptors = descriptors
	m.mu.Unlock()

	for _, id := range toStop {
		_, _ = m.StopServer(context.Background(), id)
		m.mu.Lock()
		delete(m.servers, id)
		m.mu.Unlock()
	}

	m.bus.Publish(events.New(events.TypeConfigLoaded, events.ConfigLoadedData{ServerCount: len(descriptors)}))
}

// ListServers returns a snapshot of every known descriptor.
func (m *Manager) ListServers() []config.ServerDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]config.ServerDescriptor, 0, len(m.descriptors))
	for _, d := range m.descriptors {
		out = append(out, d)
	}
	return out
}

// GetStatus returns a ServerStatus snapshot for id.
func (m *Manager) GetStatus(id string) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.servers[id]
	if !ok {
		return Status{}, ErrUnknownServer
	}
	return st.status, nil
}

// ListTools returns a catalog snapshot for id.
func (m *Manager) ListTools(id string) ([]Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.servers[id]
	if !ok {
		return nil, ErrUnknownServer
	}
	out := make([]Tool, len(st.tools))
	copy(out, st.tools)
	return out, nil
}

// ListResources returns a catalog snapshot for id.
func (m *Manager) ListResources(id string) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.servers[id]
	if !ok {
		return nil, ErrUnknownServer
	}
	out := make([]Resource, len(st.resources))
	copy(out, st.resources)
	return out, nil
}

// ListPrompts returns a catalog snapshot for id.
func (m *Manager) ListPrompts(id string) ([]Prompt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.servers[id]
	if !ok {
		return nil, ErrUnknownServer
	}
	out := make([]Prompt, len(st.prompts))
	copy(out, st.prompts)
	return out, nil
}

// StartServer spawns the child process, runs the initialize handshake, and
// loads its tool/resource/prompt catalogs. It returns (true, nil) with no
// further action if the server is already starting or running.
func (m *Manager) StartServer(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	descriptor, ok := m.descriptors[id]
	if !ok {
		m.mu.Unlock()
		return false, ErrUnknownServer
	}
	st := m.servers[id]
	if st.status.State == StateStarting || st.status.State == StateRunning {
		m.mu.Unlock()
		return true, nil
	}
	st.status.State = StateStarting
	st.status.LastError = ""
	st.clearCatalogs()
	m.mu.Unlock()

	m.bus.Publish(events.New(events.TypeServerStarting, events.ServerLifecycleData{ServerID: id}))

	// The child outlives the call that started it, so its lifetime is not
	// tied to ctx's cancellation (an HTTP request or the auto_start group).
	process, err := Spawn(context.WithoutCancel(ctx), id, descriptor.Command, descriptor.Args, descriptor.Env)
	if err != nil {
		spawnErr := &SpawnError{ServerID: id, Err: err}
		m.transitionToError(id, spawnErr.Error())
		return false, spawnErr
	}

	session := NewSession(process)

	m.mu.Lock()
	st.process = process
	st.session = session
	st.status.State = StateRunning
	st.status.PID = process.PID()
	st.status.StartedAt = process.StartedAt()
	m.mu.Unlock()

	m.bus.Publish(events.New(events.TypeServerStarted, events.ServerLifecycleData{ServerID: id, PID: process.PID()}))

	go m.monitorStderr(id, process)
	go m.monitorExit(id, process)

	if err := m.handshake(ctx, id, session); err != nil {
		m.bus.Publish(events.New(events.TypeServerInitError, events.ServerLifecycleData{ServerID: id, Error: err.Error()}))
		// Clear st.process first so monitorExit sees the mismatch and stands
		// down instead of racing this teardown into a spurious
		// server_stopped event.
		m.mu.Lock()
		st.process = nil
		st.session = nil
		m.mu.Unlock()
		// Tear the child down before the state flips to error so no observer
		// can see state=error alongside a still-live process.
		_ = process.Stop()
		session.Close()
		m.transitionToError(id, err.Error())
		return false, err
	}

	m.bus.Publish(events.New(events.TypeServerInitialized, events.ServerLifecycleData{ServerID: id}))

	m.loadCapabilities(ctx, id, session)

	return true, nil
}

func (m *Manager) transitionToError(id, lastError string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.servers[id]
	if !ok {
		return
	}
	st.status.State = StateError
	st.status.LastError = lastError
	st.clearCatalogs()
	st.session = nil
	st.process = nil
	m.bus.Publish(events.New(events.TypeServerError, events.ServerLifecycleData{ServerID: id, Error: lastError}))
}

// handshake performs the initialize request followed by the
// notifications/initialized notification.
func (m *Manager) handshake(ctx context.Context, id string, session *Session) error {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities: ClientCapabilities{
			Roots:    &RootsCapability{ListChanged: true},
			Sampling: map[string]interface{}{},
		},
		ClientInfo: Implementation{Name: clientName, Version: clientVersion},
	}

	raw, err := session.SendRequest(ctx, "initialize", params)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	var result initializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		logging.Debug("Manager", "server %s returned an unparseable initialize result: %v", id, err)
	}

	if err := session.SendNotification("notifications/initialized", nil); err != nil {
		return fmt.Errorf("notifications/initialized: %w", err)
	}
	return nil
}

// loadCapabilities issues the three capability-listing requests concurrently.
// Each is independent: an error on one leaves its catalog empty without
// aborting the others.
func (m *Manager) loadCapabilities(ctx context.Context, id string, session *Session) {
	var tools []Tool
	var resources []Resource
	var prompts []Prompt

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		raw, err := session.SendRequest(ctx, "tools/list", nil)
		if err != nil {
			logging.Debug("Manager", "server %s tools/list failed: %v", id, err)
			return
		}
		var result toolsListResult
		if err := json.Unmarshal(raw, &result); err != nil {
			logging.Debug("Manager", "server %s returned an unparseable tools/list result: %v", id, err)
			return
		}
		tools = result.Tools
	}()

	go func() {
		defer wg.Done()
		raw, err := session.SendRequest(ctx, "resources/list", nil)
		if err != nil {
			logging.Debug("Manager", "server %s resources/list failed: %v", id, err)
			return
		}
		var result resourcesListResult
		if err := json.Unmarshal(raw, &result); err != nil {
			logging.Debug("Manager", "server %s returned an unparseable resources/list result: %v", id, err)
			return
		}
		resources = result.Resources
	}()

	go func() {
		defer wg.Done()
		raw, err := session.SendRequest(ctx, "prompts/list", nil)
		if err != nil {
			logging.Debug("Manager", "server %s prompts/list failed: %v", id, err)
			return
		}
		var result promptsListResult
		if err := json.Unmarshal(raw, &result); err != nil {
			logging.Debug("Manager", "server %s returned an unparseable prompts/list result: %v", id, err)
			return
		}
		prompts = result.Prompts
	}()

	wg.Wait()

	m.mu.Lock()
	st, ok := m.servers[id]
	if ok {
		st.tools = tools
		st.resources = resources
		st.prompts = prompts
		st.status.ToolsCount = len(tools)
		st.status.ResourcesCount = len(resources)
		st.status.PromptsCount = len(prompts)
	}
	m.mu.Unlock()

	m.bus.Publish(events.New(events.TypeServerCapabilitiesLoaded, events.CapabilitiesLoadedData{
		ServerID:       id,
		ToolsCount:     len(tools),
		ResourcesCount: len(resources),
		PromptsCount:   len(prompts),
	}))
}

// monitorStderr publishes each non-noise stderr line as a server_stderr
// event. Stderr output is never treated as an error condition on its own.
func (m *Manager) monitorStderr(id string, p *Process) {
	for line := range p.StderrLines() {
		if IsStderrNoise(line) {
			continue
		}
		m.bus.Publish(events.New(events.TypeServerStderr, events.StderrData{ServerID: id, Line: line}))
	}
}

// monitorExit watches for the child exiting on its own. When that happens
// without StopServer having been called, the Manager tears down the
// server's state as if StopServer had run.
func (m *Manager) monitorExit(id string, p *Process) {
	<-p.Done()

	m.mu.Lock()
	st, ok := m.servers[id]
	if !ok || st.process != p {
		// StopServer already replaced/cleared this process; nothing to do.
		m.mu.Unlock()
		return
	}
	alreadyStopped := st.status.State == StateStopped
	st.status.State = StateStopped
	st.status.PID = 0
	st.clearCatalogs()
	st.session = nil
	st.process = nil
	m.mu.Unlock()

	if !alreadyStopped {
		m.bus.Publish(events.New(events.TypeServerStopped, events.ServerLifecycleData{ServerID: id}))
	}
}

// StopServer tears down a running server's session and child process. It
// returns false (not an error) if the server was not running.
func (m *Manager) StopServer(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	st, ok := m.servers[id]
	if !ok {
		m.mu.Unlock()
		return false, ErrUnknownServer
	}
	if st.status.State != StateRunning && st.status.State != StateStarting {
		m.mu.Unlock()
		return false, nil
	}
	session := st.session
	process := st.process
	st.status.State = StateStopped
	st.status.PID = 0
	st.clearCatalogs()
	st.session = nil
	st.process = nil
	m.mu.Unlock()

	// Stop the child first: Session.Close waits for the stdout reader, which
	// only finishes once the child has exited.
	if process != nil {
		_ = process.Stop()
	}
	if session != nil {
		session.Close()
	}

	m.bus.Publish(events.New(events.TypeServerStopped, events.ServerLifecycleData{ServerID: id}))
	return true, nil
}

// RestartServer stops then, after a quiesce period, starts a server again.
func (m *Manager) RestartServer(ctx context.Context, id string) (bool, error) {
	if _, err := m.StopServer(ctx, id); err != nil {
		return false, err
	}

	select {
	case <-time.After(restartQuiesce):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	return m.StartServer(ctx, id)
}

// AutoStart starts every descriptor with AutoStart set, concurrently, and
// returns the ids that started. A per-server failure is logged and does not
// abort the batch; the per-server errors are not returned, and the returned
// error is always nil.
func (m *Manager) AutoStart(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	var ids []string
	for id, d := range m.descriptors {
		if d.AutoStart {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	started := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			ok, err := m.StartServer(gctx, id)
			if err != nil {
				logging.Warn("Manager", "auto_start: server %s failed to start: %v", id, err)
				return nil // logged, not fatal to the batch
			}
			started[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	var result []string
	for i, id := range ids {
		if started[i] {
			result = append(result, id)
		}
	}
	return result, nil
}

// Shutdown best-effort stops every live child.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.servers))
	for id := range m.servers {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := m.StopServer(ctx, id); err != nil {
				logging.Debug("Manager", "shutdown: error stopping %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()
}

// dispatch looks up the live session for id, returning ErrUnknownServer or
// ErrNotRunning as appropriate. Callers hold no lock across the RPC call
// itself: sessions are safe for concurrent use independently of Manager.mu.
func (m *Manager) dispatch(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.servers[id]
	if !ok {
		return nil, ErrUnknownServer
	}
	if st.session == nil {
		return nil, ErrNotRunning
	}
	return st.session, nil
}

// CallTool dispatches a tools/call request.
func (m *Manager) CallTool(ctx context.Context, id, name string, args map[string]interface{}) (*CallToolResult, error) {
	session, err := m.dispatch(id)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{"name": name, "arguments": args}
	raw, err := session.SendRequest(ctx, "tools/call", params)
	if err != nil {
		m.bus.Publish(events.New(events.TypeToolError, events.OperationData{
			ServerID: id, Name: name, CorrelationID: uuid.NewString(), Arguments: args, Error: err.Error(),
		}))
		return nil, err
	}

	var result CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding tools/call result: %w", err)
	}

	m.bus.Publish(events.New(events.TypeToolExecuted, events.OperationData{
		ServerID: id, Name: name, CorrelationID: uuid.NewString(), Arguments: args,
		ResultSummary: summarizeToolResult(&result),
	}))
	return &result, nil
}

func summarizeToolResult(r *CallToolResult) string {
	if len(r.Content) == 0 {
		return ""
	}
	return fmt.Sprintf("%d content block(s)", len(r.Content))
}

// ReadResource dispatches a resources/read request, returning the first
// content block's text (or "" if there is none).
func (m *Manager) ReadResource(ctx context.Context, id, uri string) (string, error) {
	session, err := m.dispatch(id)
	if err != nil {
		return "", err
	}

	params := map[string]interface{}{"uri": uri}
	raw, err := session.SendRequest(ctx, "resources/read", params)
	if err != nil {
		m.bus.Publish(events.New(events.TypeResourceError, events.OperationData{
			ServerID: id, Name: uri, CorrelationID: uuid.NewString(), Error: err.Error(),
		}))
		return "", err
	}

	var result ReadResourceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decoding resources/read result: %w", err)
	}

	m.bus.Publish(events.New(events.TypeResourceRead, events.OperationData{
		ServerID: id, Name: uri, CorrelationID: uuid.NewString(),
		ResultSummary: fmt.Sprintf("%d content entries", len(result.Contents)),
	}))

	if len(result.Contents) == 0 {
		return "", nil
	}
	return result.Contents[0].Text, nil
}

// GetPrompt dispatches a prompts/get request.
func (m *Manager) GetPrompt(ctx context.Context, id, name string, args map[string]interface{}) (*GetPromptResult, error) {
	session, err := m.dispatch(id)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{"name": name, "arguments": args}
	raw, err := session.SendRequest(ctx, "prompts/get", params)
	if err != nil {
		m.bus.Publish(events.New(events.TypePromptError, events.OperationData{
			ServerID: id, Name: name, CorrelationID: uuid.NewString(), Arguments: args, Error: err.Error(),
		}))
		return nil, err
	}

	var result GetPromptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding prompts/get result: %w", err)
	}

	m.bus.Publish(events.New(events.TypePromptRetrieved, events.OperationData{
		ServerID: id, Name: name, CorrelationID: uuid.NewString(), Arguments: args,
	}))
	return &result, nil
}
