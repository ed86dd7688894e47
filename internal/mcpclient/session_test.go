package mcpclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoScript replies to every request it receives (echoing the id back) with
// a trivial result object, except it silently drops any request whose method
// equals "hang" (used to exercise the timeout path) and exits immediately on
// "crash".
const echoScript = `
while IFS= read -r line; do
  id=$(printf '%s' "$line" | grep -o '"id":[0-9]*' | cut -d: -f2)
  method=$(printf '%s' "$line" | grep -o '"method":"[^"]*"' | cut -d'"' -f4)
  case "$method" in
    hang) ;;
    crash) exit 0 ;;
    *) printf '{"jsonrpc":"2.0","id":%s,"result":{"ok":true}}\n' "$id" ;;
  esac
done
`

func spawnEcho(t *testing.T) (*Process, *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	p, err := Spawn(ctx, "demo", []string{"/bin/sh", "-c", echoScript}, nil, nil)
	require.NoError(t, err)

	s := NewSession(p)
	t.Cleanup(func() {
		s.Close()
		p.Stop()
	})
	return p, s
}

func TestSession_SendRequestRoundTrip(t *testing.T) {
	_, s := spawnEcho(t)

	raw, err := s.SendRequest(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestSession_IDsAreMonotonicAndUnique(t *testing.T) {
	_, s := spawnEcho(t)

	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		id := s.allocateID()
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}
}

func TestSession_Timeout(t *testing.T) {
	_, s := spawnEcho(t)
	s.RequestTimeout = 200 * time.Millisecond

	_, err := s.SendRequest(context.Background(), "hang", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSession_LateReplyAfterTimeoutIsDiscarded(t *testing.T) {
	_, s := spawnEcho(t)
	s.RequestTimeout = 100 * time.Millisecond

	_, err := s.SendRequest(context.Background(), "hang", nil)
	assert.ErrorIs(t, err, ErrTimeout)

	// A further request must still work normally; the pending table must not
	// have been corrupted by the discarded late entry.
	raw, err := s.SendRequest(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestSession_CrashFailsPendingWithNotRunning(t *testing.T) {
	_, s := spawnEcho(t)

	_, err := s.SendRequest(context.Background(), "crash", nil)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestSession_SendNotificationDoesNotWaitForReply(t *testing.T) {
	_, s := spawnEcho(t)

	err := s.SendNotification("notifications/initialized", nil)
	require.NoError(t, err)
}
