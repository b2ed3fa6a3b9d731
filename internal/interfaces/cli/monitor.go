package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/renbytes/spexplug/internal/core/ports"
	"github.com/renbytes/spexplug/internal/infrastructure/plugins"
	"github.com/renbytes/spexplug/internal/interfaces/di"
)

// MonitorFlags holds command-line flags for the monitor command
type MonitorFlags struct {
	Timeout  time.Duration
	MaxLines int
}

// NewMonitorCommand creates the monitor command
func NewMonitorCommand(container *di.Container) *cobra.Command {
	flags := &MonitorFlags{}

	cmd := &cobra.Command{
		Use:   "monitor <plugin> [-- plugin args]",
		Short: "Launch a plugin with a live view of its handshake and diagnostics",
		Long: `Monitor launches a plugin and shows an interactive terminal view of the
handshake status and the scrolling diagnostic stream from the plugin's
stderr. Like 'run', but for watching a misbehaving plugin start up.

Keys: q or Ctrl-C quits and terminates the plugin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(container, flags, args[0], args[1:])
		},
	}

	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Handshake deadline (default from SPEXPLUG_HANDSHAKE_TIMEOUT)")
	cmd.Flags().IntVar(&flags.MaxLines, "max-lines", 200, "Maximum diagnostic lines to keep on screen")

	return cmd
}

// Messages flowing into the bubbletea model.
type (
	diagLineMsg     struct{ line string }
	sessionReadyMsg struct{ session *plugins.Session }
	launchFailedMsg struct{ err error }
	sessionErrMsg   struct{ err error }
)

// monitorSink forwards plugin diagnostics into the TUI event stream.
type monitorSink struct {
	events chan tea.Msg
}

func (s *monitorSink) PluginLine(pluginName, line string) {
	s.send(diagLineMsg{line: line})
}

func (s *monitorSink) Debugf(format string, args ...any) {
	s.send(diagLineMsg{line: "debug: " + fmt.Sprintf(format, args...)})
}

// send never blocks. Once the TUI stops draining (user quit), further
// lines are dropped so the stderr-forwarding goroutine can finish and
// session.Close can reap it.
func (s *monitorSink) send(msg tea.Msg) {
	select {
	case s.events <- msg:
	default:
	}
}

var _ ports.DiagnosticSink = (*monitorSink)(nil)

func runMonitor(container *di.Container, flags *MonitorFlags, name string, args []string) error {
	events := make(chan tea.Msg, 64)
	sink := &monitorSink{events: events}

	timeout := flags.Timeout
	if timeout <= 0 {
		timeout = container.Config.HandshakeTimeout
	}
	launcher := plugins.NewLauncher(container.Discovery, container.Executor, sink, timeout)

	var mu sync.Mutex
	var session *plugins.Session
	var launchErr error

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		s, err := launcher.Launch(ctx, name, args...)
		if err != nil {
			// Recorded outside the model: the event may be dropped if the
			// TUI has already stopped draining, but the command must still
			// fail.
			mu.Lock()
			launchErr = err
			mu.Unlock()
			sink.send(launchFailedMsg{err: err})
			return
		}
		mu.Lock()
		session = s
		mu.Unlock()
		sink.send(sessionReadyMsg{session: s})

		select {
		case err := <-s.Err():
			sink.send(sessionErrMsg{err: err})
		case <-ctx.Done():
		}
	}()

	model := newMonitorModel(name, events, flags.MaxLines)
	program := tea.NewProgram(model, tea.WithAltScreen())

	_, err := program.Run()
	cancel()
	mu.Lock()
	defer mu.Unlock()
	if session != nil {
		session.Close()
	}
	if err != nil {
		return fmt.Errorf("monitor failed: %w", err)
	}

	// A launch failure observed inside the TUI still fails the command.
	return launchErr
}

var (
	titleBarStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	statusOKStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusBadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	diagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type monitorModel struct {
	pluginName string
	events     chan tea.Msg
	maxLines   int

	status    string
	ok        bool
	endpoint  string
	lines     []string
	launchErr error
	width     int
	height    int
}

func newMonitorModel(pluginName string, events chan tea.Msg, maxLines int) monitorModel {
	return monitorModel{
		pluginName: pluginName,
		events:     events,
		maxLines:   maxLines,
		status:     "waiting for handshake...",
	}
}

func (m monitorModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m monitorModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case diagLineMsg:
		m.lines = append(m.lines, msg.line)
		if len(m.lines) > m.maxLines {
			m.lines = m.lines[len(m.lines)-m.maxLines:]
		}
		return m, m.waitForEvent()

	case sessionReadyMsg:
		m.ok = true
		m.status = fmt.Sprintf("handshake ok (pid %d)", msg.session.PID())
		m.endpoint = fmt.Sprintf("%s://%s (%s, core v%d, app v%d)",
			msg.session.Handshake.Network, msg.session.Handshake.Address,
			msg.session.Handshake.RPCProtocol,
			msg.session.Handshake.CoreProtocolVersion, msg.session.Handshake.AppProtocolVersion)
		return m, m.waitForEvent()

	case launchFailedMsg:
		m.ok = false
		m.launchErr = msg.err
		m.status = "launch failed: " + msg.err.Error()
		return m, m.waitForEvent()

	case sessionErrMsg:
		m.ok = false
		m.status = "session error: " + msg.err.Error()
		return m, m.waitForEvent()
	}

	return m, nil
}

func (m monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleBarStyle.Render("spexplug monitor - "+m.pluginName) + "\n\n")

	statusStyle := statusBadStyle
	if m.ok {
		statusStyle = statusOKStyle
	}
	b.WriteString(statusStyle.Render("status: "+m.status) + "\n")
	if m.endpoint != "" {
		b.WriteString(statusOKStyle.Render("endpoint: "+m.endpoint) + "\n")
	}
	b.WriteString("\n")

	visible := m.lines
	if m.height > 8 && len(visible) > m.height-8 {
		visible = visible[len(visible)-(m.height-8):]
	}
	for _, line := range visible {
		b.WriteString(diagStyle.Render(line) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("q: quit and terminate plugin"))
	return b.String()
}
