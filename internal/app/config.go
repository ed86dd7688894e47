package app

// Config holds the application configuration assembled from CLI flags.
type Config struct {
	// Debug enables verbose logging across the application.
	Debug bool

	// ConfigPath is the path to the mcp_config.json document.
	ConfigPath string

	// Host and Port are the gateway's listen address.
	Host string
	Port int

	// Reload enables watching ConfigPath's directory for changes and
	// automatically reapplying the configuration.
	Reload bool
}

// NewConfig creates a new application configuration.
func NewConfig(debug bool, configPath, host string, port int, reload bool) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Reload:     reload,
	}
}
