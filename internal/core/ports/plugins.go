package ports

import "github.com/renbytes/spexplug/internal/core/domain"

// PluginDiscovery locates plugin executables on an ordered search path.
// Every call performs a fresh filesystem scan; there is no process-wide
// cache of discoverable plugins, so environment changes between calls are
// always observed.
type PluginDiscovery interface {
	// Resolve returns the first executable named exactly name in search
	// order, or ErrPluginNotFound.
	Resolve(name string) (domain.PluginDescriptor, error)

	// Candidates returns every match in search order without executing any
	// of them. Used to surface version-skew: multiple installed copies of
	// the same plugin name commonly coexist, and callers debugging a launch
	// need to see the losers, not just the winner.
	Candidates(name string) ([]domain.PluginDescriptor, error)

	// SearchPath returns the effective ordered directory list.
	SearchPath() []string
}

// DiagnosticSink receives a plugin's side-channel output and host-side
// discovery tracing. Implementations must never write to the host's stdout,
// which may itself be a handshake stream when the host is nested as a
// plugin.
type DiagnosticSink interface {
	// PluginLine forwards one line of a plugin's stderr.
	PluginLine(pluginName, line string)

	// Debugf logs host-side tracing when debug mode is on.
	Debugf(format string, args ...any)
}
