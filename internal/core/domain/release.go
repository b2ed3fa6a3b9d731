package domain

import (
	"fmt"
	"sort"
)

// TargetTriple is a compiler target identifier, e.g. "aarch64-apple-darwin".
type TargetTriple string

// ReleaseAsset is the identity of a packaged, platform-tagged archive
// containing a single plugin binary.
type ReleaseAsset struct {
	PluginName string
	ArchTag    string
	OSTag      string
}

// Filename composes the distribution archive name:
// <plugin>-<archTag>-<osTag>.zip
func (a ReleaseAsset) Filename() string {
	return fmt.Sprintf("%s-%s-%s.zip", a.PluginName, a.ArchTag, a.OSTag)
}

// platformTags maps target triples to the arch/os tags the host-side
// downloader recognizes. A static table, not conditionals: a triple that is
// missing here must be skipped loudly, never guessed at.
var platformTags = map[TargetTriple]struct{ arch, os string }{
	"aarch64-apple-darwin":       {"arm64", "apple-darwin"},
	"x86_64-apple-darwin":        {"x86_64", "apple-darwin"},
	"aarch64-unknown-linux-gnu":  {"arm64", "unknown-linux-gnu"},
	"x86_64-unknown-linux-gnu":   {"x86_64", "unknown-linux-gnu"},
	"x86_64-unknown-linux-musl":  {"x86_64", "unknown-linux-musl"},
	"aarch64-unknown-linux-musl": {"arm64", "unknown-linux-musl"},
	"x86_64-pc-windows-msvc":     {"x86_64", "pc-windows-msvc"},
}

// AssetForTarget maps a target triple to its release asset identity.
// Unmapped triples fail with ErrUnrecognizedPlatformTarget.
func AssetForTarget(pluginName string, triple TargetTriple) (ReleaseAsset, error) {
	tags, ok := platformTags[triple]
	if !ok {
		return ReleaseAsset{}, fmt.Errorf("%w: %q has no arch/os tag mapping (known targets: %v)",
			ErrUnrecognizedPlatformTarget, triple, KnownTargets())
	}
	return ReleaseAsset{PluginName: pluginName, ArchTag: tags.arch, OSTag: tags.os}, nil
}

// KnownTargets lists every triple in the tag table, sorted for stable output.
func KnownTargets() []TargetTriple {
	targets := make([]TargetTriple, 0, len(platformTags))
	for t := range platformTags {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}
