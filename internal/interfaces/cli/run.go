package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/renbytes/spexplug/internal/infrastructure/plugins"
	"github.com/renbytes/spexplug/internal/interfaces/di"
)

// RunFlags holds command-line flags for the run command
type RunFlags struct {
	Timeout time.Duration
	NoDial  bool
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// NewRunCommand creates the run command
func NewRunCommand(container *di.Container) *cobra.Command {
	flags := &RunFlags{}

	cmd := &cobra.Command{
		Use:   "run <plugin> [-- plugin args]",
		Short: "Launch a plugin, decode its handshake, and hold the session",
		Long: `Launch resolves the plugin on the search path, spawns it with stdout
captured as the handshake stream, decodes the handshake line, and opens
the advertised gRPC channel. Diagnostics from the plugin's stderr are
forwarded until the session ends.

Examples:
  spexplug run spex-rust
  spexplug run spex-rust --timeout 5s
  spexplug run spex-rust -- --templates ./templates`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlugin(cmd, container, flags, args[0], args[1:])
		},
	}

	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Handshake deadline (default from SPEXPLUG_HANDSHAKE_TIMEOUT)")
	cmd.Flags().BoolVar(&flags.NoDial, "no-dial", false, "Decode the handshake but do not open the RPC channel")

	return cmd
}

func runPlugin(cmd *cobra.Command, container *di.Container, flags *RunFlags, name string, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	launcher := container.Launcher
	if flags.Timeout > 0 {
		launcher = plugins.NewLauncher(container.Discovery, container.Executor, container.Sink, flags.Timeout)
	}

	session, err := launcher.Launch(ctx, name, args...)
	if err != nil {
		return err
	}
	defer session.Close()

	out := cmd.OutOrStdout()
	printField(out, "Plugin", session.Descriptor.Name)
	printField(out, "Executable", session.Descriptor.Path)
	printField(out, "PID", fmt.Sprintf("%d", session.PID()))
	printField(out, "Protocol", fmt.Sprintf("core v%d, app v%d", session.Handshake.CoreProtocolVersion, session.Handshake.AppProtocolVersion))
	printField(out, "Endpoint", fmt.Sprintf("%s://%s (%s)", session.Handshake.Network, session.Handshake.Address, session.Handshake.RPCProtocol))

	if !flags.NoDial {
		conn, err := plugins.OpenChannel(ctx, session.Handshake)
		if err != nil {
			return fmt.Errorf("handshake succeeded but the channel could not be established: %w", err)
		}
		defer conn.Close()
		printField(out, "Channel", "established")
	}

	fmt.Fprintln(out, "\nForwarding plugin diagnostics; press Ctrl-C to stop.")

	select {
	case <-ctx.Done():
		return nil
	case err := <-session.Err():
		return err
	}
}

func printField(out io.Writer, label, value string) {
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}
