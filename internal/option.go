package internal

// Option configures the application before Run wires its components.
type Option func(*application)

// application collects everything Run needs up front. Today that is only
// the configuration; options keep the Run signature stable as more is added.
type application struct {
	config *Config
}

// WithConfig supplies the loaded configuration. Run fails without it.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
