// Package config loads the gateway's mcp_config.json document into a map of
// ServerDescriptor values keyed by server id.
package config

// ServerDescriptor describes one external MCP server program the Manager may
// spawn. It is created by the Loader on load/reload, immutable until the next
// reload, and replaced wholesale (never mutated in place) when the document
// changes.
type ServerDescriptor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Command     []string          `json:"command"`
	Args        []string          `json:"args"`
	Env         map[string]string `json:"env"`
	AutoStart   bool              `json:"auto_start"`
}

// rawDocument mirrors the on-disk shape of mcp_config.json.
type rawDocument struct {
	MCPServers map[string]rawServerDescriptor `json:"mcpServers"`
}

// rawServerDescriptor mirrors one entry of mcpServers before normalization.
// Command and Args accept either a bare string or a list of strings on the
// wire; StringOrSlice absorbs that union and normalizes to []string.
type rawServerDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Command     StringOrSlice     `json:"command"`
	Args        StringOrSlice     `json:"args"`
	Env         map[string]string `json:"env"`
	AutoStart   bool              `json:"auto_start"`
}

func (r rawServerDescriptor) normalize(id string) ServerDescriptor {
	name := r.Name
	if name == "" {
		name = id
	}
	env := r.Env
	if env == nil {
		env = map[string]string{}
	}
	return ServerDescriptor{
		ID:          id,
		Name:        name,
		Description: r.Description,
		Command:     []string(r.Command),
		Args:        []string(r.Args),
		Env:         env,
		AutoStart:   r.AutoStart,
	}
}
