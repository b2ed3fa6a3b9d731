package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/renbytes/spexplug/internal/infrastructure/packaging"
	"github.com/renbytes/spexplug/internal/interfaces/di"
)

// PackageFlags holds command-line flags for the package command
type PackageFlags struct {
	ConfigPath string
	Plugin     string
	Dist       string
}

// NewPackageCommand creates the package command
func NewPackageCommand(container *di.Container) *cobra.Command {
	flags := &PackageFlags{}

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build and archive release assets for the configured target matrix",
		Long: `Package runs the release matrix from a YAML config: for each target
triple it runs the build step, maps the triple to the arch/os tags the
downloader recognizes, and zips the single binary at the archive root as
<plugin>-<archTag>-<osTag>.zip. Unrecognized or failed optional targets
are skipped with a warning; required targets fail the run.

Example config:
  plugin: spex-rust
  dist: dist
  targets:
    - triple: aarch64-apple-darwin
      build: ["cargo", "build", "--release", "--target", "{{triple}}"]
    - triple: x86_64-unknown-linux-gnu
      required: true`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackage(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.ConfigPath, "config", "release.yaml", "Release matrix config file")
	cmd.Flags().StringVar(&flags.Plugin, "plugin", "", "Override the plugin name from the config")
	cmd.Flags().StringVar(&flags.Dist, "dist", "", "Override the output directory from the config")

	return cmd
}

func runPackage(cmd *cobra.Command, flags *PackageFlags) error {
	matrix, err := packaging.LoadMatrix(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Plugin != "" {
		matrix.Plugin = flags.Plugin
	}
	if flags.Dist != "" {
		matrix.Dist = flags.Dist
	}

	// Build output and warnings go to stderr; stdout stays clean.
	packager := packaging.NewPackager(cmd.ErrOrStderr())
	result := packager.Run(cmd.Context(), matrix)

	fmt.Fprintf(cmd.ErrOrStderr(), "packaged %d target(s), skipped %d, failed %d\n",
		len(result.Built), len(result.Skipped), len(result.Failed))

	return result.Err()
}
