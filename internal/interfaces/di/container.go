package di

import (
	"github.com/renbytes/spexplug/internal/core/ports"
	"github.com/renbytes/spexplug/internal/infrastructure/config"
	"github.com/renbytes/spexplug/internal/infrastructure/logging"
	"github.com/renbytes/spexplug/internal/infrastructure/plugins"
	"github.com/renbytes/spexplug/internal/infrastructure/process"
)

// Container holds the wired dependencies for CLI commands.
type Container struct {
	Config    config.Config
	Sink      ports.DiagnosticSink
	Discovery ports.PluginDiscovery
	Executor  ports.ProcessExecutor
	Launcher  *plugins.Launcher
}

// NewContainer loads configuration from the environment and wires the
// launch pipeline: config -> sink -> discovery -> executor -> launcher.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sink := logging.NewConsoleSink(cfg.Debug)
	discovery := plugins.NewSearchPathDiscovery(cfg.SearchPath(), sink)
	executor := process.NewExecutor()
	launcher := plugins.NewLauncher(discovery, executor, sink, cfg.HandshakeTimeout)

	return &Container{
		Config:    cfg,
		Sink:      sink,
		Discovery: discovery,
		Executor:  executor,
		Launcher:  launcher,
	}, nil
}

// EnableDebug rebuilds the pipeline with debug tracing on, used when the
// --debug flag overrides the environment.
func (c *Container) EnableDebug() {
	if c.Config.Debug {
		return
	}
	c.Config.Debug = true
	c.Sink = logging.NewConsoleSink(true)
	c.Discovery = plugins.NewSearchPathDiscovery(c.Config.SearchPath(), c.Sink)
	c.Launcher = plugins.NewLauncher(c.Discovery, c.Executor, c.Sink, c.Config.HandshakeTimeout)
}
