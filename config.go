package conduit

// Config holds the configuration for a conduit registry.
type Config struct {
	// BaseURL is the default base URL services resolve relative paths
	// against, unless overridden per service.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Headers are base headers applied to every request of every service.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// TimeoutSeconds bounds each request/response transport call. Zero
	// means the protocol default. Streaming connections are never bounded.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	// Services holds per-service overrides keyed by service key.
	Services map[string]ServiceConfig `json:"services,omitempty" yaml:"services,omitempty"`
	// Plugins declares globally registered plugins built through the
	// factory registry (optional).
	Plugins []PluginConfig `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}

// ServiceConfig overrides registry defaults for one service.
type ServiceConfig struct {
	BaseURL string            `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// PluginConfig holds one config-driven plugin declaration.
type PluginConfig struct {
	Name    string                 `json:"name" yaml:"name"`
	Enabled bool                   `json:"enabled" yaml:"enabled"`
	Config  map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}
