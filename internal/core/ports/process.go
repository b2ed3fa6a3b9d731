package ports

import (
	"context"
	"io"
)

// ProcessSignal represents signals that can be sent to a plugin process
type ProcessSignal int

const (
	SignalTerminate ProcessSignal = iota // SIGTERM
	SignalInterrupt                      // SIGINT
	SignalKill                           // SIGKILL
)

// Command describes a plugin executable to spawn.
type Command struct {
	// Executable is the absolute path to the binary.
	Executable string

	// Args are passed to the plugin verbatim.
	Args []string

	// Dir is the working directory; empty means inherit.
	Dir string

	// Env holds additional environment variables merged over the host's.
	Env map[string]string
}

// Process is a live plugin child process. The two output streams carry
// permanently distinct roles and are never merged: HandshakeStream is the
// protocol channel that must carry the handshake line and nothing else for
// the process's entire lifetime, DiagnosticStream carries all logs. The
// names make the contract visible in the type so a reader cannot mistake
// diagnostics for protocol data.
type Process interface {
	// PID returns the OS process ID.
	PID() int

	// HandshakeStream returns the child's stdout: handshake-only, forever.
	HandshakeStream() io.ReadCloser

	// DiagnosticStream returns the child's stderr: logs, warnings, traces.
	DiagnosticStream() io.ReadCloser

	// Signal sends a signal for graceful shutdown.
	Signal(sig ProcessSignal) error

	// Kill forcefully terminates the process. Idempotent.
	Kill() error

	// Wait blocks until the process exits and returns its wait error.
	Wait() error

	// IsRunning reports whether the process has not yet exited.
	IsRunning() bool

	// ExitCode returns the exit code, or -1 while still running.
	ExitCode() int
}

// ProcessExecutor spawns plugin processes with their streams captured.
// Cancelling the context guarantees the child is terminated, not merely
// abandoned.
type ProcessExecutor interface {
	Execute(ctx context.Context, cmd Command) (Process, error)
}
