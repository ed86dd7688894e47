package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/NexusAI-AX/mcp-gateway/internal/events"
	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

// heartbeatIdle is how long the stream must go without a real event before a
// heartbeat event is emitted in its place.
const heartbeatIdle = 1 * time.Second

// handleEvents streams the bus's events as an SSE feed. Each connected
// client replays the bus's bounded history first, then follows live events;
// once the bus has been idle for heartbeatIdle, a heartbeat event is emitted
// so clients and intermediate proxies can tell the connection is still
// alive.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, e := range s.bus.Snapshot(0) {
		if !writeSSEEvent(w, e) {
			return
		}
	}
	flusher.Flush()

	idle := time.NewTimer(heartbeatIdle)
	defer idle.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.bus.Events():
			if !writeSSEEvent(w, e) {
				return
			}
			flusher.Flush()
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(heartbeatIdle)
		case <-idle.C:
			if !writeSSEEvent(w, events.New(events.TypeHeartbeat, struct{}{})) {
				return
			}
			flusher.Flush()
			idle.Reset(heartbeatIdle)
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, e interface{}) bool {
	payload, err := json.Marshal(e)
	if err != nil {
		logging.Warn("Gateway", "dropping unmarshalable event from SSE stream: %v", err)
		return true
	}
	_, err = fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
	return err == nil
}
