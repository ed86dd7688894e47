package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

// DefaultRequestTimeout is the default per-request RPC deadline.
const DefaultRequestTimeout = 10 * time.Second

// pendingRequest is a one-shot completion slot keyed by request id: the
// caller's receive end is simply dropped on timeout or cancellation, and any
// later reply is a no-op send on a channel nobody reads.
type pendingRequest struct {
	reply chan rpcMessage
}

// Session wraps a Process and implements JSON-RPC 2.0 client semantics with
// newline-delimited framing: request/reply correlation by id, notification
// send, per-request timeouts, and teardown that fails every outstanding call.
type Session struct {
	ServerID string
	process  *Process

	// RequestTimeout is the per-request deadline applied when the caller's
	// context carries no earlier deadline. It defaults to
	// DefaultRequestTimeout but individual call sites (e.g. a longer budget
	// for tools/call than tools/list) may override it.
	RequestTimeout time.Duration

	sendMu sync.Mutex // serializes writes so concurrent callers never interleave frames

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pendingRequest
	closed  bool

	readerDone chan struct{}
}

// NewSession creates a Session over an already-spawned Process and starts its
// inbound stdout dispatch loop.
func NewSession(p *Process) *Session {
	s := &Session{
		ServerID:       p.ServerID,
		process:        p,
		RequestTimeout: DefaultRequestTimeout,
		pending:        make(map[int64]*pendingRequest),
		readerDone:     make(chan struct{}),
	}
	go s.dispatchLoop()
	return s
}

// dispatchLoop is the stdout-line reader: a line with an id matching a
// pending entry completes that entry; a line with a method field and no
// matching pending entry is a server-initiated notification, logged but not
// dispatched further; malformed lines are logged and skipped.
func (s *Session) dispatchLoop() {
	defer close(s.readerDone)
	defer s.teardown()

	for line := range s.process.StdoutLines() {
		var msg rpcMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			logging.Debug("Session", "server %s sent a non-JSON line, ignoring: %q", s.ServerID, line)
			continue
		}

		if msg.ID != nil && (s.complete(*msg.ID, msg) || msg.Method == "") {
			continue
		}

		if msg.Method != "" {
			logging.Debug("Session", "server %s sent notification %s", s.ServerID, msg.Method)
			continue
		}

		logging.Debug("Session", "server %s sent an unrecognized message, ignoring", s.ServerID)
	}
}

// complete delivers msg to the pending entry for id and reports whether one
// was found.
func (s *Session) complete(id int64, msg rpcMessage) bool {
	s.mu.Lock()
	entry, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		// Entry was already removed by timeout or teardown; a plain reply is
		// discarded silently.
		return false
	}
	entry.reply <- msg
	return true
}

// teardown fails every pending entry with ErrNotRunning. It runs once the
// stdout reader observes EOF (child exited) or Close is called.
func (s *Session) teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.pending
	s.pending = make(map[int64]*pendingRequest)
	s.mu.Unlock()

	for _, entry := range pending {
		close(entry.reply)
	}
}

// Close tears down the session: every pending request fails with
// ErrNotRunning and the reader loop's exit is awaited.
func (s *Session) Close() {
	s.teardown()
	<-s.readerDone
}

func (s *Session) allocateID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// SendRequest writes a framed JSON-RPC request and awaits its correlated
// reply up to RequestTimeout (or ctx's own deadline, whichever is sooner). On
// an RPC-level error reply it returns *RPCError.
func (s *Session) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := s.allocateID()

	entry := &pendingRequest{reply: make(chan rpcMessage, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrNotRunning
	}
	s.pending[id] = entry
	s.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
	frame, err := json.Marshal(req)
	if err != nil {
		s.dropPending(id)
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout())
	defer cancel()

	s.sendMu.Lock()
	err = s.process.Write(frame)
	s.sendMu.Unlock()
	if err != nil {
		s.dropPending(id)
		return nil, err
	}

	select {
	case msg, ok := <-entry.reply:
		if !ok {
			return nil, ErrNotRunning
		}
		if msg.Error != nil {
			return nil, &RPCError{ServerID: s.ServerID, Code: msg.Error.Code, Message: msg.Error.Message}
		}
		return msg.Result, nil

	case <-ctx.Done():
		s.dropPending(id)
		return nil, ErrTimeout
	}
}

// dropPending removes a pending entry without completing it, used when a
// request fails before or during send, or times out, so the entry does not
// leak and any late reply is discarded.
func (s *Session) dropPending(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Session) requestTimeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return s.RequestTimeout
}

// SendNotification writes a framed JSON-RPC notification: no id, no reply
// wait.
func (s *Session) SendNotification(method string, params interface{}) error {
	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params}
	frame, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.process.Write(frame)
}
