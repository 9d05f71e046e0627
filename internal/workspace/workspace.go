// Package workspace handles build directory operations: probing working
// trees, purging them cooperatively, and temp-file hygiene for askpass
// helpers.
package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
)

// askpassPrefix namespaces helper scripts in the agent temp directory.
const askpassPrefix = "buildagent-askpass-"

// IsEmptyOrMissing reports whether dir does not exist or holds no entries.
func IsEmptyOrMissing(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, agerrors.FileSystemError("read directory", err)
	}
	return len(entries) == 0, nil
}

// HasWorkingTree reports whether dir contains a git metadata directory.
func HasWorkingTree(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// IndexLockPath returns the path of the index lock file for a working tree.
func IndexLockPath(dir string) string {
	return filepath.Join(dir, ".git", "index.lock")
}

// Purge deletes dir recursively, honoring cancellation at each directory
// level so a canceled job stops deleting promptly instead of finishing a
// multi-gigabyte removal.
func Purge(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return agerrors.Canceled(err)
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return agerrors.FileSystemError("read directory", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return agerrors.Canceled(err)
		}
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := Purge(ctx, path); err != nil {
				return err
			}
			continue
		}
		if err := os.Remove(path); err != nil {
			// Read-only files (git object packs) need a mode fix first.
			_ = os.Chmod(path, 0o600)
			if err := os.Remove(path); err != nil {
				return agerrors.FileSystemError("remove file", err)
			}
		}
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return agerrors.FileSystemError("remove directory", err)
	}
	return nil
}

// WriteAskpassHelper writes an executable helper script that prints secret on
// stdout, for git's core.askpass. The caller owns deletion.
func WriteAskpassHelper(tempDir, secret string) (string, error) {
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return "", agerrors.FileSystemError("create temp directory", err)
	}
	f, err := os.CreateTemp(tempDir, askpassPrefix+"*"+askpassExt)
	if err != nil {
		return "", agerrors.FileSystemError("create askpass helper", err)
	}
	path := f.Name()
	if _, err := f.WriteString(askpassScript(secret)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", agerrors.FileSystemError("write askpass helper", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", agerrors.FileSystemError("close askpass helper", err)
	}
	if err := os.Chmod(path, 0o775); err != nil {
		_ = os.Remove(path)
		return "", agerrors.FileSystemError("chmod askpass helper", err)
	}
	return path, nil
}

// SweepAskpassHelpers removes helper scripts older than maxAge. Crashed
// acquisitions leave helpers behind; the periodic sweep keeps the temp
// directory from accumulating secrets.
func SweepAskpassHelpers(tempDir string, maxAge time.Duration) int {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), askpassPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Could not remove stale askpass helper", logfields.Path(path), logfields.Error(err))
			continue
		}
		removed++
	}
	return removed
}
