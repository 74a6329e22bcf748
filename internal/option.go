package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mcpMode bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMCPMode runs the process as an MCP stdio server instead of the HTTP
// server. Logs go to stderr so stdout stays a clean protocol channel.
func WithMCPMode() Option {
	return func(a *application) {
		a.mcpMode = true
	}
}
