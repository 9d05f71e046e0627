package workspace

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
)

func TestIsEmptyOrMissing(t *testing.T) {
	dir := t.TempDir()
	empty, err := IsEmptyOrMissing(dir)
	require.NoError(t, err)
	assert.True(t, empty)

	empty, err = IsEmptyOrMissing(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))
	empty, err = IsEmptyOrMissing(dir)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestHasWorkingTree(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, HasWorkingTree(dir))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o750))
	assert.True(t, HasWorkingTree(dir))
}

func TestPurgeRemovesTree(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "s")
	require.NoError(t, os.MkdirAll(filepath.Join(target, ".git", "objects", "pack"), 0o750))
	packFile := filepath.Join(target, ".git", "objects", "pack", "pack-1.pack")
	require.NoError(t, os.WriteFile(packFile, []byte("data"), 0o644))
	// git object packs are read-only on disk
	require.NoError(t, os.Chmod(packFile, 0o444))

	require.NoError(t, Purge(context.Background(), target))
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestPurgeMissingDirIsNoop(t *testing.T) {
	assert.NoError(t, Purge(context.Background(), filepath.Join(t.TempDir(), "missing")))
}

func TestPurgeHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "s")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "sub"), 0o750))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Purge(ctx, target)
	require.Error(t, err)
	assert.True(t, agerrors.IsCanceled(err))
	// tree untouched: cancellation short-circuits before deletion
	_, statErr := os.Stat(target)
	assert.NoError(t, statErr)
}

func TestWriteAskpassHelper(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteAskpassHelper(dir, "key-pass")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o775), info.Mode().Perm())
	}
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "key-pass")
}

func TestSweepAskpassHelpers(t *testing.T) {
	dir := t.TempDir()
	stale, err := WriteAskpassHelper(dir, "old")
	require.NoError(t, err)
	fresh, err := WriteAskpassHelper(dir, "new")
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed := SweepAskpassHelpers(dir, time.Hour)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
