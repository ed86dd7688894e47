package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

var socketUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// socketRequest is one inbound message on the /ws connection.
type socketRequest struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"request_id"`
	ServerID  string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// socketResponse mirrors a request back with either a result or an error.
type socketResponse struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// handleSocket upgrades the connection and serves ping/get_status/call_tool
// requests until the client disconnects.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := socketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Gateway", "websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req socketRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("Gateway", "websocket read error: %v", err)
			}
			return
		}

		resp := s.dispatchSocketRequest(r, req)
		if err := conn.WriteJSON(resp); err != nil {
			logging.Debug("Gateway", "websocket write error: %v", err)
			return
		}
	}
}

func (s *Server) dispatchSocketRequest(r *http.Request, req socketRequest) socketResponse {
	resp := socketResponse{Type: req.Type, RequestID: req.RequestID}

	switch req.Type {
	case "ping":
		resp.Result = "pong"

	case "get_status":
		status, err := s.manager.GetStatus(req.ServerID)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = status

	case "call_tool":
		result, err := s.manager.CallTool(r.Context(), req.ServerID, req.Name, req.Arguments)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = result

	default:
		resp.Error = "unknown request type: " + req.Type
	}
	return resp
}
