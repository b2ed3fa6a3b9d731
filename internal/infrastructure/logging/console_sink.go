package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleSink writes forwarded plugin diagnostics and host tracing to a
// single writer, stderr by default. It never touches stdout: when spexplug
// is itself run as a plugin, its stdout is a handshake stream.
type ConsoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	debug bool
}

// NewConsoleSink creates a sink writing to stderr.
func NewConsoleSink(debug bool) *ConsoleSink {
	return &ConsoleSink{w: os.Stderr, debug: debug}
}

// NewConsoleSinkTo creates a sink writing to w.
func NewConsoleSinkTo(w io.Writer, debug bool) *ConsoleSink {
	return &ConsoleSink{w: w, debug: debug}
}

// PluginLine prints one forwarded stderr line, prefixed with the plugin name.
func (s *ConsoleSink) PluginLine(pluginName, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[%s] %s\n", pluginName, line)
}

// Debugf prints host-side tracing when debug mode is on.
func (s *ConsoleSink) Debugf(format string, args ...any) {
	if !s.debug {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[spexplug] "+format+"\n", args...)
}
