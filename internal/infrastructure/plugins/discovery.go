package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/renbytes/spexplug/internal/core/domain"
	"github.com/renbytes/spexplug/internal/core/ports"
)

// SearchPathDiscovery implements plugin discovery over an ordered list of
// directories. Matching is by exact file name, not prefix or suffix, and
// every call rescans the filesystem so the result always reflects the
// current state of the search path.
type SearchPathDiscovery struct {
	dirs []string
	sink ports.DiagnosticSink
}

// NewSearchPathDiscovery creates a discovery over dirs, in priority order.
// An override directory for local builds, if any, should already be first.
func NewSearchPathDiscovery(dirs []string, sink ports.DiagnosticSink) *SearchPathDiscovery {
	expanded := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		expanded = append(expanded, expandPath(dir))
	}
	return &SearchPathDiscovery{dirs: expanded, sink: sink}
}

// SearchPath returns the effective ordered directory list.
func (d *SearchPathDiscovery) SearchPath() []string {
	return append([]string(nil), d.dirs...)
}

// Resolve returns the first executable named exactly name in search order.
func (d *SearchPathDiscovery) Resolve(name string) (domain.PluginDescriptor, error) {
	candidates, err := d.Candidates(name)
	if err != nil {
		return domain.PluginDescriptor{}, err
	}
	if len(candidates) > 1 {
		d.sink.Debugf("plugin %q has %d candidates on the search path; using %s",
			name, len(candidates), candidates[0].Path)
	}
	return candidates[0], nil
}

// Candidates returns every executable named exactly name, in search order,
// without executing any of them. An empty result is ErrPluginNotFound with
// the searched directories in the message.
func (d *SearchPathDiscovery) Candidates(name string) ([]domain.PluginDescriptor, error) {
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return nil, fmt.Errorf("%w: invalid plugin name %q", domain.ErrPluginNotFound, name)
	}

	var found []domain.PluginDescriptor
	for _, dir := range d.dirs {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				d.sink.Debugf("discovery: cannot stat %s: %v", path, err)
			}
			continue
		}
		if info.IsDir() || info.Mode()&0111 == 0 {
			d.sink.Debugf("discovery: %s exists but is not an executable file", path)
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		found = append(found, domain.PluginDescriptor{Name: name, Path: abs, Dir: dir})
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no executable named %q in search path [%s]",
			domain.ErrPluginNotFound, name, strings.Join(d.dirs, ", "))
	}
	return found, nil
}

// expandPath expands ~ to the user home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
