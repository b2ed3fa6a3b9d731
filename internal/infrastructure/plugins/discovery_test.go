package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renbytes/spexplug/internal/core/domain"
	"github.com/renbytes/spexplug/internal/infrastructure/logging"
)

func newTestDiscovery(t *testing.T, dirs ...string) *SearchPathDiscovery {
	t.Helper()
	return NewSearchPathDiscovery(dirs, logging.NewConsoleSinkTo(os.Stderr, false))
}

// placeExecutable drops an executable file named name into dir.
func placeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func TestDiscovery_FirstMatchWins(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	pathA := placeExecutable(t, dirA, "plugin")
	pathB := placeExecutable(t, dirB, "plugin")

	discovery := newTestDiscovery(t, dirA, dirB)

	resolved, err := discovery.Resolve("plugin")
	require.NoError(t, err)
	assert.Equal(t, pathA, resolved.Path, "the earlier directory must win")
	assert.Equal(t, dirA, resolved.Dir)

	candidates, err := discovery.Candidates("plugin")
	require.NoError(t, err)
	require.Len(t, candidates, 2, "disambiguation listing must include every match")
	assert.Equal(t, pathA, candidates[0].Path)
	assert.Equal(t, pathB, candidates[1].Path)
}

func TestDiscovery_ExactNameMatchOnly(t *testing.T) {
	dir := t.TempDir()
	placeExecutable(t, dir, "plugin-v2")
	placeExecutable(t, dir, "my-plugin")

	discovery := newTestDiscovery(t, dir)

	_, err := discovery.Resolve("plugin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound,
		"prefix and suffix matches must not count")
}

func TestDiscovery_NotFoundListsSearchedDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	discovery := newTestDiscovery(t, dirA, dirB)

	_, err := discovery.Resolve("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
	assert.Contains(t, err.Error(), dirA)
	assert.Contains(t, err.Error(), dirB)
}

func TestDiscovery_SkipsNonExecutablesAndDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	// Same name, but not runnable: a plain file in A, a directory in B.
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "plugin"), []byte("data"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dirB, "plugin"), 0o755))

	discovery := newTestDiscovery(t, dirA, dirB)

	_, err := discovery.Resolve("plugin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}

func TestDiscovery_MissingDirsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	path := placeExecutable(t, dir, "plugin")

	discovery := newTestDiscovery(t, filepath.Join(dir, "does-not-exist"), dir)

	resolved, err := discovery.Resolve("plugin")
	require.NoError(t, err)
	assert.Equal(t, path, resolved.Path)
}

func TestDiscovery_FreshScanPerCall(t *testing.T) {
	dir := t.TempDir()
	discovery := newTestDiscovery(t, dir)

	_, err := discovery.Resolve("plugin")
	require.ErrorIs(t, err, domain.ErrPluginNotFound)

	// The binary appears between calls; no cache may hide it.
	path := placeExecutable(t, dir, "plugin")
	resolved, err := discovery.Resolve("plugin")
	require.NoError(t, err)
	assert.Equal(t, path, resolved.Path)
}

func TestDiscovery_RejectsPathSeparatorInName(t *testing.T) {
	discovery := newTestDiscovery(t, t.TempDir())

	_, err := discovery.Resolve("../sneaky")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}
