package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	doc := `{
		"mcpServers": {
			"demo": { "command": "echo-mcp" }
		}
	}`

	servers, err := LoadFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	require.Contains(t, servers, "demo")

	d := servers["demo"]
	assert.Equal(t, "demo", d.ID)
	assert.Equal(t, "demo", d.Name, "name should default to id")
	assert.Equal(t, "", d.Description)
	assert.Equal(t, []string{"echo-mcp"}, d.Command)
	assert.Empty(t, d.Args)
	assert.NotNil(t, d.Env)
	assert.False(t, d.AutoStart)
}

func TestLoadFromReader_UnionCommandAndArgs(t *testing.T) {
	doc := `{
		"mcpServers": {
			"a": { "command": "node", "args": "server.js" },
			"b": { "command": ["node", "server.js"], "args": ["--verbose", "--port=1"] }
		}
	}`

	servers, err := LoadFromReader(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"node"}, servers["a"].Command)
	assert.Equal(t, []string{"server.js"}, servers["a"].Args)

	assert.Equal(t, []string{"node", "server.js"}, servers["b"].Command)
	assert.Equal(t, []string{"--verbose", "--port=1"}, servers["b"].Args)
}

func TestLoadFromReader_InvalidJSON(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("{not json"))
	require.Error(t, err)
}

func TestLoaderLoad_MissingFileIsNotAnError(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.json"))
	servers, err := l.Load()
	require.NoError(t, err)
	assert.Empty(t, servers)
}

func TestLoaderLoad_InvalidFileReturnsInvalidError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte("{bad"), 0o644))

	l := NewLoader(path)
	_, err := l.Load()
	require.Error(t, err)

	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, path, invalid.Path)
}

func TestLoaderWatch_TriggersReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o644))

	l := NewLoader(path)
	defer l.Close()

	changed := make(chan struct{}, 4)
	require.NoError(t, l.Watch(func() { changed <- struct{}{} }))

	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{"demo":{"command":"echo"}}}`), 0o644))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected watch to notify of file change")
	}

	servers, err := l.Load()
	require.NoError(t, err)
	assert.Contains(t, servers, "demo")
}
