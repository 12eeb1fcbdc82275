// Package config provides layered, hot-reloadable configuration for the
// Pick BASIC client host. User settings come from a viper-managed
// .pickhost TOML file (with PICKHOST_* environment overrides); each
// workspace may overlay them with a .pickhost.toml at its root.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName = "pickhost"

	// DefaultPythonPath is the interpreter used to launch the language
	// server when no setting overrides it.
	DefaultPythonPath = "python3"

	// DefaultWatchGlob selects the Pick BASIC source files whose on-disk
	// changes are forwarded to the server.
	DefaultWatchGlob = "**/*.{bp,b,bas,basic}"
)

// Config is the full client host configuration.
type Config struct {
	Server ServerConfig `toml:"server" mapstructure:"server"`
	Watch  WatchConfig  `toml:"watch" mapstructure:"watch"`
	Log    LogConfig    `toml:"log" mapstructure:"log"`
}

// ServerConfig controls how the language server process is launched.
type ServerConfig struct {
	// PythonPath is the Python interpreter executable, either a bare name
	// resolved via PATH or an absolute path.
	PythonPath string `toml:"python_path" mapstructure:"python_path"`

	// Args are extra arguments appended after "-m pickbasic_lsp".
	Args []string `toml:"args" mapstructure:"args"`
}

// WatchConfig controls the workspace file watcher.
type WatchConfig struct {
	Glob string `toml:"glob" mapstructure:"glob"`

	// DebounceMS batches rapid file events before notifying the server.
	DebounceMS int `toml:"debounce_ms" mapstructure:"debounce_ms"`
}

// LogConfig controls client-side logging.
type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			PythonPath: DefaultPythonPath,
		},
		Watch: WatchConfig{
			Glob:       DefaultWatchGlob,
			DebounceMS: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.PythonPath == "" {
		return fmt.Errorf("server.python_path must not be empty")
	}
	if c.Watch.Glob == "" {
		return fmt.Errorf("watch.glob must not be empty")
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative")
	}
	return nil
}

// Load reads user-level settings with viper and overlays workspace-level
// settings from workspaceRoot (if non-empty). Missing files are not errors;
// the defaults fill every gap.
func Load(workspaceRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("." + appName)
	v.SetConfigType("toml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath("$XDG_CONFIG_HOME/" + appName)
	v.AddConfigPath("$HOME/.config/" + appName)
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("server.python_path", def.Server.PythonPath)
	v.SetDefault("watch.glob", def.Watch.Glob)
	v.SetDefault("watch.debounce_ms", def.Watch.DebounceMS)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling user config: %w", err)
	}

	if workspaceRoot != "" {
		overlaid, err := LoadWorkspace(workspaceRoot, cfg)
		if err != nil {
			return nil, err
		}
		cfg = overlaid
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
