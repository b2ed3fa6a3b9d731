package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/renbytes/spexplug/internal/interfaces/di"
)

// PluginsFlags holds command-line flags for the plugins commands
type PluginsFlags struct {
	JSON bool
}

var (
	winnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	candidateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
)

// NewPluginsCommand creates the plugins command group
func NewPluginsCommand(container *di.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect plugin discovery",
	}

	cmd.AddCommand(newPluginsListCommand(container))
	cmd.AddCommand(newPluginsPathCommand(container))

	return cmd
}

func newPluginsListCommand(container *di.Container) *cobra.Command {
	flags := &PluginsFlags{}

	cmd := &cobra.Command{
		Use:   "list <plugin>",
		Short: "List every candidate for a plugin name, in search order",
		Long: `List performs a discovery scan and prints all executables matching the
name across the search path, without executing any of them. Multiple
installed versions of the same plugin commonly coexist; the first entry
is the one a launch would pick, the rest reveal version skew.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCandidates(cmd, container, flags, args[0])
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Emit the candidate list as JSON")

	return cmd
}

func newPluginsPathCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the effective search path, in scan order",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dir := range container.Discovery.SearchPath() {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
			return nil
		},
	}
}

func listCandidates(cmd *cobra.Command, container *di.Container, flags *PluginsFlags, name string) error {
	candidates, err := container.Discovery.Candidates(name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if flags.JSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(candidates)
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d candidate(s) for %q", len(candidates), name)))
	for i, candidate := range candidates {
		marker := "  "
		style := candidateStyle
		if i == 0 {
			marker = "* "
			style = winnerStyle
		}
		fmt.Fprintln(out, style.Render(fmt.Sprintf("%s%s", marker, candidate.Path)))
	}
	if len(candidates) > 1 {
		fmt.Fprintln(out, candidateStyle.Render("\n* marks the binary a launch would pick (first match wins)."))
	}
	return nil
}
