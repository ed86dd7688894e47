package mcpclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawn_LinesRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := Spawn(ctx, "demo", []string{"/bin/sh", "-c", "cat"}, nil, nil)
	require.NoError(t, err)
	defer p.Stop()

	require.NoError(t, p.Write([]byte(`{"hello":"world"}`)))

	select {
	case line := <-p.StdoutLines():
		assert.Equal(t, `{"hello":"world"}`, line)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a line to be echoed back")
	}
}

func TestSpawn_EnvOverlay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := Spawn(ctx, "demo", []string{"/bin/sh", "-c", `echo "$GREETING"`}, nil, map[string]string{"GREETING": "hi-there"})
	require.NoError(t, err)
	defer p.Stop()

	select {
	case line := <-p.StdoutLines():
		assert.Equal(t, "hi-there", line)
	case <-time.After(2 * time.Second):
		t.Fatal("expected env var to be visible to the child")
	}
}

func TestProcess_StopIsIdempotentAndBlocksUntilExit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := Spawn(ctx, "demo", []string{"/bin/sh", "-c", "sleep 30"}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, p.Stop())
	assert.True(t, p.Exited())

	require.NoError(t, p.Stop()) // second call is a no-op, not an error
}

func TestProcess_StderrNoiseSuppression(t *testing.T) {
	assert.True(t, IsStderrNoise("DOSKEY macro cannot be used"))
	assert.False(t, IsStderrNoise("connection refused"))
}

func TestBuildArgv(t *testing.T) {
	argv, err := buildArgv([]string{"node"}, []string{"server.js", "--verbose"})
	require.NoError(t, err)
	assert.Equal(t, []string{"node", "server.js", "--verbose"}, argv)

	_, err = buildArgv(nil, []string{"x"})
	require.Error(t, err)
}
