// Package packaging implements the build-time release matrix: compile a
// plugin for each configured target triple, map the triple to the arch/os
// tags the host-side downloader recognizes, and archive the single binary
// at the root of a conventionally named zip. One target's failure never
// aborts the rest of the matrix.
package packaging

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/renbytes/spexplug/internal/core/domain"
)

// Target is one entry of the release matrix.
type Target struct {
	// Triple is the compiler target, e.g. "aarch64-apple-darwin".
	Triple domain.TargetTriple `yaml:"triple"`

	// Build is the argv of the compile step. "{{triple}}" and "{{output}}"
	// placeholders are substituted in every argument. Empty means the
	// binary is expected to already exist at the output path.
	Build []string `yaml:"build,omitempty"`

	// Required marks a target whose failure fails the whole run instead of
	// being skipped with a warning.
	Required bool `yaml:"required,omitempty"`
}

// Matrix is the release packaging configuration.
type Matrix struct {
	// Plugin is the plugin name; it names both the binary inside each
	// archive and the archive itself.
	Plugin string `yaml:"plugin"`

	// Dist is the output directory for binaries and archives. Default "dist".
	Dist string `yaml:"dist,omitempty"`

	// Targets is the platform matrix.
	Targets []Target `yaml:"targets"`
}

// LoadMatrix reads and validates a matrix from a YAML file.
func LoadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Matrix{}, fmt.Errorf("reading matrix config: %w", err)
	}
	var matrix Matrix
	if err := yaml.Unmarshal(data, &matrix); err != nil {
		return Matrix{}, fmt.Errorf("parsing matrix config %s: %w", path, err)
	}
	if matrix.Plugin == "" {
		return Matrix{}, fmt.Errorf("matrix config %s: plugin name is required", path)
	}
	if len(matrix.Targets) == 0 {
		return Matrix{}, fmt.Errorf("matrix config %s: at least one target is required", path)
	}
	if matrix.Dist == "" {
		matrix.Dist = "dist"
	}
	return matrix, nil
}

// Built records one produced archive.
type Built struct {
	Triple      domain.TargetTriple
	ArchivePath string
}

// Skipped records one target that was passed over with a warning.
type Skipped struct {
	Triple domain.TargetTriple
	Reason error
}

// Failed records one required target that could not be packaged.
type Failed struct {
	Triple domain.TargetTriple
	Err    error
}

// Result summarizes a matrix run.
type Result struct {
	Built   []Built
	Skipped []Skipped
	Failed  []Failed
}

// Err returns non-nil if any required target failed. Skips never fail a run.
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Triple, f.Err))
	}
	return fmt.Errorf("%d release target(s) failed: %s", len(r.Failed), strings.Join(parts, "; "))
}

// Packager runs release matrices. Warnings go to its writer, never stdout.
type Packager struct {
	out  io.Writer
	warn *color.Color
}

// NewPackager creates a packager writing warnings and build output to out
// (stderr in the CLI).
func NewPackager(out io.Writer) *Packager {
	return &Packager{out: out, warn: color.New(color.FgYellow)}
}

// Run executes the matrix sequentially: each target's build and archive
// step is self-contained, and re-running overwrites prior archives of the
// same name without manual cleanup.
func (p *Packager) Run(ctx context.Context, matrix Matrix) Result {
	var result Result
	for _, target := range matrix.Targets {
		built, err := p.packageTarget(ctx, matrix, target)
		switch {
		case err == nil:
			fmt.Fprintf(p.out, "packaged %s -> %s\n", target.Triple, built.ArchivePath)
			result.Built = append(result.Built, built)
		case target.Required:
			result.Failed = append(result.Failed, Failed{Triple: target.Triple, Err: err})
			p.warn.Fprintf(p.out, "warning: required target %s failed: %v\n", target.Triple, err)
		default:
			result.Skipped = append(result.Skipped, Skipped{Triple: target.Triple, Reason: err})
			p.warn.Fprintf(p.out, "warning: skipping target %s: %v\n", target.Triple, err)
		}
	}
	return result
}

func (p *Packager) packageTarget(ctx context.Context, matrix Matrix, target Target) (Built, error) {
	asset, err := domain.AssetForTarget(matrix.Plugin, target.Triple)
	if err != nil {
		return Built{}, err
	}

	binaryPath := filepath.Join(matrix.Dist, string(target.Triple), matrix.Plugin)
	if err := os.MkdirAll(filepath.Dir(binaryPath), 0o755); err != nil {
		return Built{}, fmt.Errorf("creating build dir: %w", err)
	}

	if len(target.Build) > 0 {
		if err := p.runBuild(ctx, target, binaryPath); err != nil {
			return Built{}, err
		}
	}

	// The compile step may have failed upstream or produced nothing; an
	// empty or absent binary must never become an empty archive.
	info, err := os.Stat(binaryPath)
	if err != nil || info.Size() == 0 {
		return Built{}, fmt.Errorf("%w: no binary at %s after build step", domain.ErrArtifactMissing, binaryPath)
	}

	archivePath := filepath.Join(matrix.Dist, asset.Filename())
	if err := writeArchive(archivePath, matrix.Plugin, binaryPath); err != nil {
		return Built{}, err
	}
	return Built{Triple: target.Triple, ArchivePath: archivePath}, nil
}

func (p *Packager) runBuild(ctx context.Context, target Target, binaryPath string) error {
	argv := make([]string, len(target.Build))
	for i, arg := range target.Build {
		arg = strings.ReplaceAll(arg, "{{triple}}", string(target.Triple))
		arg = strings.ReplaceAll(arg, "{{output}}", binaryPath)
		argv[i] = arg
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = p.out
	cmd.Stderr = p.out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build command %q: %w", strings.Join(argv, " "), err)
	}
	return nil
}

// writeArchive zips the single binary at the archive root, named after the
// plugin with no directory prefix. An existing archive is overwritten.
func writeArchive(archivePath, pluginName, binaryPath string) error {
	archive, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	writer := zip.NewWriter(archive)

	header := &zip.FileHeader{Name: pluginName, Method: zip.Deflate}
	header.SetMode(0o755)
	entry, err := writer.CreateHeader(header)
	if err != nil {
		archive.Close()
		return fmt.Errorf("creating archive entry: %w", err)
	}

	binary, err := os.Open(binaryPath)
	if err != nil {
		archive.Close()
		return fmt.Errorf("opening binary: %w", err)
	}

	_, copyErr := io.Copy(entry, binary)
	binary.Close()
	if copyErr != nil {
		archive.Close()
		return fmt.Errorf("writing archive entry: %w", copyErr)
	}
	if err := writer.Close(); err != nil {
		archive.Close()
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return archive.Close()
}
