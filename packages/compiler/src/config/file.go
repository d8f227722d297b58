package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFileName is looked up in the working directory when no config
// file is given.
const DefaultFileName = ".ng2c.yml"

// EnvPrefix prefixes every environment override, e.g.
// NG2C_COMPILER_DEV_MODE=true or NG2C_LOG_LEVEL=debug.
const EnvPrefix = "NG2C"

// File is the content of a .ng2c.yml file.
type File struct {
	Compiler   CompilerSection   `mapstructure:"compiler" yaml:"compiler"`
	Log        LogSection        `mapstructure:"log" yaml:"log"`
	Components ComponentsSection `mapstructure:"components" yaml:"components"`
	Watch      WatchSection      `mapstructure:"watch" yaml:"watch"`
}

type CompilerSection struct {
	DevMode          bool `mapstructure:"dev_mode" yaml:"dev_mode"`
	GenDebugInfo     bool `mapstructure:"gen_debug_info" yaml:"gen_debug_info"`
	LogBindingUpdate bool `mapstructure:"log_binding_update" yaml:"log_binding_update"`
	SchemaStrict     bool `mapstructure:"schema_strict" yaml:"schema_strict"`
}

type LogSection struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ComponentsSection struct {
	ScanPaths       []string `mapstructure:"scan_paths" yaml:"scan_paths"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
}

type WatchSection struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// flagKeys binds CLI flags to config keys.
var flagKeys = map[string]string{
	"dev":        "compiler.dev_mode",
	"log-level":  "log.level",
	"log-format": "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("compiler.dev_mode", false)
	v.SetDefault("compiler.gen_debug_info", false)
	v.SetDefault("compiler.log_binding_update", false)
	v.SetDefault("compiler.schema_strict", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("components.scan_paths", []string{"."})
	v.SetDefault("components.exclude_patterns", []string{"node_modules", ".git"})
	v.SetDefault("watch.debounce", 200*time.Millisecond)
}

// Load reads the config file at path, or DefaultFileName in the working
// directory when path is empty. A missing default file is not an error.
// Environment variables override the file and flags that were changed on
// the command line override both. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*File, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &file, nil
}

// Validate checks enumerated values.
func (f *File) Validate() error {
	var errs []error
	if !slices.Contains(validLogLevels, f.Log.Level) {
		errs = append(errs, &ValidationError{Field: "log.level", Value: f.Log.Level,
			Message: "must be one of " + strings.Join(validLogLevels, ", ")})
	}
	if !slices.Contains(validLogFormats, f.Log.Format) {
		errs = append(errs, &ValidationError{Field: "log.format", Value: f.Log.Format,
			Message: "must be one of " + strings.Join(validLogFormats, ", ")})
	}
	if f.Watch.Debounce < 0 {
		errs = append(errs, &ValidationError{Field: "watch.debounce", Value: f.Watch.Debounce,
			Message: "must not be negative"})
	}
	return errors.Join(errs...)
}

// CompilerConfig converts the compiler section. Dev mode turns on debug
// info and binding update logging regardless of their own settings.
func (f *File) CompilerConfig() *CompilerConfig {
	c := f.Compiler
	opts := []CompilerConfigOption{WithSchemaStrict(c.SchemaStrict)}
	if c.DevMode {
		opts = append(opts, WithDevMode(true))
	} else {
		opts = append(opts, WithGenDebugInfo(c.GenDebugInfo), WithLogBindingUpdate(c.LogBindingUpdate))
	}
	return NewCompilerConfig(opts...)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s (got %v)", ve.Field, ve.Message, ve.Value)
}
