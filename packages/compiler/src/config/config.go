package config

import (
	"ng2c-go/packages/compiler/src/change_detection"
)

// CompilerConfig represents the compiler configuration
type CompilerConfig struct {
	// DevMode enables ChangeDetectorRef.CheckNoChanges on the arenas the
	// compiler creates.
	DevMode bool
	// GenDebugInfo attaches debug contexts to detection errors.
	GenDebugInfo bool
	// LogBindingUpdate reports every dispatched binding value.
	LogBindingUpdate bool
	// SchemaStrict validates element property bindings against the DOM
	// schema. When false any property is accepted.
	SchemaStrict bool
}

// NewCompilerConfig creates a new CompilerConfig with optional parameters
func NewCompilerConfig(opts ...CompilerConfigOption) *CompilerConfig {
	config := &CompilerConfig{
		DevMode:          false,
		GenDebugInfo:     false,
		LogBindingUpdate: false,
		SchemaStrict:     true,
	}

	for _, opt := range opts {
		opt(config)
	}

	return config
}

// CompilerConfigOption is a function that modifies CompilerConfig
type CompilerConfigOption func(*CompilerConfig)

// WithDevMode sets dev mode. Dev mode implies debug info and binding
// update logging unless they are set explicitly afterwards.
func WithDevMode(enabled bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.DevMode = enabled
		c.GenDebugInfo = enabled
		c.LogBindingUpdate = enabled
	}
}

// WithGenDebugInfo sets whether detectors carry debug info
func WithGenDebugInfo(enabled bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.GenDebugInfo = enabled
	}
}

// WithLogBindingUpdate sets whether binding updates are logged
func WithLogBindingUpdate(enabled bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.LogBindingUpdate = enabled
	}
}

// WithSchemaStrict sets whether unknown element properties are errors
func WithSchemaStrict(strict bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.SchemaStrict = strict
	}
}

// GenConfig returns the detector generation flags.
func (c *CompilerConfig) GenConfig() change_detection.ChangeDetectorGenConfig {
	return change_detection.ChangeDetectorGenConfig{
		GenDebugInfo:     c.GenDebugInfo,
		LogBindingUpdate: c.LogBindingUpdate,
	}
}

// ArenaOptions returns the options for arenas hosting compiled detectors.
func (c *CompilerConfig) ArenaOptions() []change_detection.ArenaOption {
	return []change_detection.ArenaOption{change_detection.WithDevMode(c.DevMode)}
}
