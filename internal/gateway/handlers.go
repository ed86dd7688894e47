package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NexusAI-AX/mcp-gateway/internal/config"
	"github.com/NexusAI-AX/mcp-gateway/internal/mcpclient"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusCodeFor maps a Manager/Session error to the HTTP status that best
// describes it.
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, mcpclient.ErrUnknownServer):
		return http.StatusNotFound
	case errors.Is(err, mcpclient.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, mcpclient.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		var invalid *config.InvalidError
		if errors.As(err, &invalid) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"eventsQueued": s.bus.Len(),
		"serverCount":  len(s.manager.ListServers()),
	})
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.ListServers())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		writeError(w, http.StatusServiceUnavailable, errNoLoader)
		return
	}
	servers, err := s.loader.Load()
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	s.manager.ApplyConfig(servers)
	writeJSON(w, http.StatusOK, map[string]int{"serverCount": len(servers)})
}

func (s *Server) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]mcpclient.Status)
	for _, d := range s.manager.ListServers() {
		status, err := s.manager.GetStatus(d.ID)
		if err == nil {
			out[d.ID] = status
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatusOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := s.manager.GetStatus(id)
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type serversControlRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

func (s *Server) handleServersControl(w http.ResponseWriter, r *http.Request) {
	var req serversControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var ok bool
	var err error
	switch req.Action {
	case "start":
		ok, err = s.manager.StartServer(r.Context(), req.ID)
	case "stop":
		ok, err = s.manager.StopServer(r.Context(), req.ID)
	case "restart":
		ok, err = s.manager.RestartServer(r.Context(), req.ID)
	default:
		writeError(w, http.StatusBadRequest, errUnknownAction)
		return
	}
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

func (s *Server) handleToolsAll(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]mcpclient.Tool)
	for _, d := range s.manager.ListServers() {
		tools, err := s.manager.ListTools(d.ID)
		if err == nil {
			out[d.ID] = tools
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleToolsOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tools, err := s.manager.ListTools(id)
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

type toolCallRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request) {
	var req toolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.manager.CallTool(r.Context(), req.ID, req.Name, req.Arguments)
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResourcesAll(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]mcpclient.Resource)
	for _, d := range s.manager.ListServers() {
		resources, err := s.manager.ListResources(d.ID)
		if err == nil {
			out[d.ID] = resources
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResourcesOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resources, err := s.manager.ListResources(id)
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

type resourceReadRequest struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(w http.ResponseWriter, r *http.Request) {
	var req resourceReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	text, err := s.manager.ReadResource(r.Context(), req.ID, req.URI)
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handlePromptsAll(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]mcpclient.Prompt)
	for _, d := range s.manager.ListServers() {
		prompts, err := s.manager.ListPrompts(d.ID)
		if err == nil {
			out[d.ID] = prompts
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePromptsOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	prompts, err := s.manager.ListPrompts(id)
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

type promptGetRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handlePromptsGet(w http.ResponseWriter, r *http.Request) {
	var req promptGetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.manager.GetPrompt(r.Context(), req.ID, req.Name, req.Arguments)
	if err != nil {
		writeError(w, statusCodeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAutoStart(w http.ResponseWriter, r *http.Request) {
	started, err := s.manager.AutoStart(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"started": started})
}
