package plugins

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/renbytes/spexplug/internal/core/domain"
	"github.com/renbytes/spexplug/internal/core/ports"
)

// DefaultHandshakeTimeout bounds how long a freshly spawned plugin may take
// to emit its handshake line.
const DefaultHandshakeTimeout = 10 * time.Second

// Launcher resolves a plugin on the search path, spawns it, and decodes the
// handshake. Each launch is independent: no mutable state is shared between
// concurrent launches, and a failed or cancelled handshake wait always
// terminates the child before returning.
type Launcher struct {
	discovery ports.PluginDiscovery
	executor  ports.ProcessExecutor
	sink      ports.DiagnosticSink
	timeout   time.Duration
}

// NewLauncher creates a launcher. A non-positive timeout selects
// DefaultHandshakeTimeout.
func NewLauncher(discovery ports.PluginDiscovery, executor ports.ProcessExecutor, sink ports.DiagnosticSink, timeout time.Duration) *Launcher {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	return &Launcher{discovery: discovery, executor: executor, sink: sink, timeout: timeout}
}

// Session is a successfully handshaken plugin process. The handshake stream
// has served its purpose; from here on any byte appearing on it is a
// protocol violation surfaced through Err.
type Session struct {
	ID         uuid.UUID
	Descriptor domain.PluginDescriptor
	Handshake  domain.HandshakeLine

	proc      ports.Process
	cancel    context.CancelFunc
	group     *errgroup.Group
	errc      chan error
	closed    atomic.Bool
	closeOnce sync.Once
}

// PID returns the plugin's OS process ID.
func (s *Session) PID() int { return s.proc.PID() }

// Err delivers fatal post-handshake conditions: a protocol violation on the
// handshake stream or an unexpected plugin exit. At most two errors are
// ever sent; the channel is never closed.
func (s *Session) Err() <-chan error { return s.errc }

// Close terminates the plugin and reaps it. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.proc.Kill()
		s.proc.Wait()
		s.group.Wait()
	})
	return nil
}

type handshakeResult struct {
	line string
	err  error
}

// Launch discovers, spawns, and handshakes with the named plugin. On any
// failure after the spawn the child is terminated before the error is
// returned; cancelling ctx during the wait does the same. ctx only governs
// the launch: the returned session lives until Close.
func (l *Launcher) Launch(ctx context.Context, name string, args ...string) (*Session, error) {
	descriptor, err := l.discovery.Resolve(name)
	if err != nil {
		return nil, err
	}
	l.sink.Debugf("launching %s from %s", name, descriptor.Path)

	// The process gets its own lifetime context so a successful session
	// outlives the launch ctx; the select below covers launch cancellation.
	procCtx, procCancel := context.WithCancel(context.Background())
	proc, err := l.executor.Execute(procCtx, ports.Command{Executable: descriptor.Path, Args: args})
	if err != nil {
		procCancel()
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}

	// Diagnostics forward for the whole process lifetime, independently of
	// the handshake read: a stall on either stream never blocks the other.
	var stderrLines atomic.Int64
	group, _ := errgroup.WithContext(procCtx)
	group.Go(func() error {
		scanner := bufio.NewScanner(proc.DiagnosticStream())
		for scanner.Scan() {
			stderrLines.Add(1)
			l.sink.PluginLine(name, scanner.Text())
		}
		return nil
	})

	reader := bufio.NewReader(proc.HandshakeStream())
	results := make(chan handshakeResult, 1)
	go func() {
		line, err := reader.ReadString('\n')
		results <- handshakeResult{line: line, err: err}
	}()

	started := time.Now()
	terminate := func() {
		procCancel()
		proc.Kill()
		proc.Wait()
		group.Wait()
	}

	select {
	case <-ctx.Done():
		terminate()
		return nil, fmt.Errorf("plugin %s: launch cancelled after %s: %w", name, time.Since(started).Round(time.Millisecond), ctx.Err())

	case <-time.After(l.timeout):
		terminate()
		activity := "the plugin wrote nothing at all"
		if n := stderrLines.Load(); n > 0 {
			activity = fmt.Sprintf("the plugin wrote %d diagnostic lines but no handshake", n)
		}
		return nil, fmt.Errorf("plugin %s: %w: no handshake line on stdout within %s (%s); process terminated",
			name, domain.ErrHandshakeTimeout, l.timeout, activity)

	case result := <-results:
		if result.err != nil {
			terminate()
			return nil, fmt.Errorf("plugin %s: %w: process exited (code %d) before emitting a handshake line; partial output %q",
				name, domain.ErrMalformedHandshake, proc.ExitCode(), result.line)
		}
		handshake, err := domain.ParseHandshakeLine(strings.TrimSuffix(result.line, "\n"))
		if err != nil {
			terminate()
			return nil, fmt.Errorf("plugin %s: %w", name, err)
		}

		session := &Session{
			ID:         uuid.New(),
			Descriptor: descriptor,
			Handshake:  handshake,
			proc:       proc,
			cancel:     procCancel,
			group:      group,
			errc:       make(chan error, 2),
		}
		session.watch(reader)
		l.sink.Debugf("plugin %s ready: %s", name, handshake)
		return session, nil
	}
}

// watch runs the post-handshake guards: a zero-tolerance watchdog on the
// handshake stream and an unexpected-exit monitor.
func (s *Session) watch(reader *bufio.Reader) {
	s.group.Go(func() error {
		buf := make([]byte, 1)
		n, _ := reader.Read(buf)
		if n > 0 && !s.closed.Load() {
			s.report(fmt.Errorf("%w: plugin %s wrote to stdout after the handshake; logs are leaking onto the protocol stream",
				domain.ErrProtocolViolation, s.Descriptor.Name))
		}
		return nil
	})
	s.group.Go(func() error {
		s.proc.Wait()
		if !s.closed.Load() {
			s.report(fmt.Errorf("plugin %s exited unexpectedly with code %d", s.Descriptor.Name, s.proc.ExitCode()))
		}
		return nil
	})
}

func (s *Session) report(err error) {
	select {
	case s.errc <- err:
	default:
	}
}
