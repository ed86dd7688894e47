// Package gateway exposes the MCP Client Manager over HTTP: a REST surface
// for status/control/dispatch, an SSE stream of bus events, and a
// bidirectional websocket for the same dispatch operations.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/NexusAI-AX/mcp-gateway/internal/config"
	"github.com/NexusAI-AX/mcp-gateway/internal/events"
	"github.com/NexusAI-AX/mcp-gateway/internal/mcpclient"
	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server owns the gateway's HTTP listener and wires its handlers to a
// Manager and Bus.
type Server struct {
	httpServer *http.Server
	manager    *mcpclient.Manager
	bus        *events.Bus
	loader     *config.Loader
}

// NewServer builds a Server listening on host:port. loader may be nil, in
// which case POST /config/reload reports 503. It does not start listening
// until ListenAndServe is called.
func NewServer(host string, port int, manager *mcpclient.Manager, bus *events.Bus, loader *config.Loader) *Server {
	s := &Server{manager: manager, bus: bus, loader: loader}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /config", s.handleListServers)
	mux.HandleFunc("POST /config/reload", s.handleReload)
	mux.HandleFunc("GET /status", s.handleStatusAll)
	mux.HandleFunc("GET /status/{id}", s.handleStatusOne)
	mux.HandleFunc("POST /servers/control", s.handleServersControl)
	mux.HandleFunc("GET /tools", s.handleToolsAll)
	mux.HandleFunc("GET /tools/{id}", s.handleToolsOne)
	mux.HandleFunc("POST /tools/call", s.handleToolsCall)
	mux.HandleFunc("GET /resources", s.handleResourcesAll)
	mux.HandleFunc("GET /resources/{id}", s.handleResourcesOne)
	mux.HandleFunc("POST /resources/read", s.handleResourcesRead)
	mux.HandleFunc("GET /prompts", s.handlePromptsAll)
	mux.HandleFunc("GET /prompts/{id}", s.handlePromptsOne)
	mux.HandleFunc("POST /prompts/get", s.handlePromptsGet)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("POST /auto-start", s.handleAutoStart)
	mux.HandleFunc("GET /ws", s.handleSocket)
}

// ListenAndServe blocks serving HTTP until Shutdown is called or a fatal
// listener error occurs.
func (s *Server) ListenAndServe() error {
	logging.Info("Gateway", "listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
