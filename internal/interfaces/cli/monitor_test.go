package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/renbytes/spexplug/internal/infrastructure/plugins"
	"github.com/renbytes/spexplug/internal/infrastructure/process"
)

// A plugin that floods stderr after the handshake must not wedge shutdown
// once the TUI stops draining events: the sink drops lines instead of
// parking the forwarding goroutine, so session.Close can reap it.
func TestMonitorSink_ChattyPluginDoesNotStallShutdown(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "plugin")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"+
		"printf '1|1|tcp|127.0.0.1:54321|grpc\\n'\n"+
		"i=0\n"+
		"while [ $i -lt 500 ]; do echo \"diagnostic line $i\" 1>&2; i=$((i+1)); done\n"+
		"exec sleep 30\n"), 0o755))

	// Deliberately tiny buffer with nobody draining it.
	sink := &monitorSink{events: make(chan tea.Msg, 4)}
	launcher := plugins.NewLauncher(
		plugins.NewSearchPathDiscovery([]string{dir}, sink),
		process.NewExecutor(), sink, 5*time.Second)

	session, err := launcher.Launch(context.Background(), "plugin")
	require.NoError(t, err)

	// Give the plugin time to overflow the sink's buffer.
	time.Sleep(500 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		session.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("session close stalled behind an undrained monitor sink")
	}
}
