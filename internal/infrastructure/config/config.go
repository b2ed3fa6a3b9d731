package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the host configuration, derived from the environment.
type Config struct {
	// PluginPath is the ordered search path for plugin executables,
	// os.PathListSeparator separated, like PATH.
	PluginPath string `env:"SPEXPLUG_PLUGIN_PATH"`

	// OverrideDir, when set, is prepended to the search path so a local
	// build wins over installed plugins.
	OverrideDir string `env:"SPEXPLUG_PLUGIN_DIR"`

	// HandshakeTimeout bounds the wait for a plugin's handshake line.
	HandshakeTimeout time.Duration `env:"SPEXPLUG_HANDSHAKE_TIMEOUT" envDefault:"10s"`

	// Debug enables host-side discovery and launch tracing on stderr.
	Debug bool `env:"SPEXPLUG_DEBUG"`
}

// DefaultInstallDir is searched when SPEXPLUG_PLUGIN_PATH is unset.
const DefaultInstallDir = "~/.spexplug/plugins"

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// SearchPath composes the effective ordered directory list: the override
// directory first (if set), then the configured path, falling back to the
// default install location.
func (c Config) SearchPath() []string {
	var dirs []string
	if c.OverrideDir != "" {
		dirs = append(dirs, c.OverrideDir)
	}
	if c.PluginPath != "" {
		dirs = append(dirs, filepath.SplitList(c.PluginPath)...)
	} else {
		dirs = append(dirs, DefaultInstallDir)
	}
	return dirs
}
