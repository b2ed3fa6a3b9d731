package cli

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/renbytes/spexplug/internal/interfaces/di"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// NewRootCommand builds the base command when called without any subcommands
func NewRootCommand(container *di.Container) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spexplug",
		Short: "Spexplug - plugin handshake and discovery host",
		Long: `Spexplug launches externally-built plugin executables as sidecars,
establishes a private RPC channel to each by decoding a single handshake
line from its stdout, and keeps stdout protocol-clean for the life of the
process while all diagnostics flow over stderr.

Plugins are discovered by exact name across the directories listed in
SPEXPLUG_PLUGIN_PATH, with SPEXPLUG_PLUGIN_DIR prepended for local builds.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugFlag, _ := cmd.Flags().GetBool("debug"); debugFlag {
				container.EnableDebug()
			}
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable discovery and launch tracing on stderr")

	rootCmd.AddCommand(NewRunCommand(container))
	rootCmd.AddCommand(NewPluginsCommand(container))
	rootCmd.AddCommand(NewPackageCommand(container))
	rootCmd.AddCommand(NewMonitorCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the root command and exits nonzero on error.
func Execute(container *di.Container) {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
