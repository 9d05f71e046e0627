package gitcli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// The operation set mirrors what the orchestrator needs, one method per git
// subcommand. All return the child exit code; err is reserved for start
// failures and cancellation.

func (c *Client) Init(ctx context.Context, workDir string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "init")
}

func (c *Client) RemoteAdd(ctx context.Context, workDir, name, url string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "remote", "add", name, url)
}

func (c *Client) RemoteSetURL(ctx context.Context, workDir, name, url string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "remote", "set-url", name, url)
}

func (c *Client) RemoteSetPushURL(ctx context.Context, workDir, name, url string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "remote", "set-url", "--push", name, url)
}

// FetchURL reads the recorded fetch URL of a remote. A missing remote yields
// an empty string with the git exit code.
func (c *Client) FetchURL(ctx context.Context, workDir, remote string) (string, int, error) {
	return c.runCapture(ctx, workDir, nil, "config", "--get", fmt.Sprintf("remote.%s.url", remote))
}

func (c *Client) ConfigGet(ctx context.Context, workDir, key string) (string, int, error) {
	return c.runCapture(ctx, workDir, nil, "config", "--get-all", key)
}

func (c *Client) ConfigSet(ctx context.Context, workDir, key, value string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "config", key, value)
}

func (c *Client) ConfigUnset(ctx context.Context, workDir, key string) (int, error) {
	return c.Run(ctx, workDir, nil, "config", "--unset-all", key)
}

// ConfigExists reports whether key is present in the working tree config.
func (c *Client) ConfigExists(ctx context.Context, workDir, key string) (bool, error) {
	_, code, err := c.runCapture(ctx, workDir, nil, "config", "--get-all", key)
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

// DisableAutoGC keeps background gc from racing the acquisition.
func (c *Client) DisableAutoGC(ctx context.Context, workDir string) (int, error) {
	return c.Run(ctx, workDir, nil, "config", "gc.auto", "0")
}

// Fetch runs the main fetch: tags, prune, progress, submodule recursion off.
// depth > 0 produces a shallow fetch; 0 fetches full history (and unshallows
// an existing shallow clone).
func (c *Client) Fetch(ctx context.Context, workDir, remote string, refspecs []string, depth int, extra []string) (int, error) {
	args := []string{"fetch", "--tags", "--prune", "--progress", "--no-recurse-submodules", remote}
	if depth > 0 {
		args = append(args, fmt.Sprintf("--depth=%d", depth))
	} else if fileExists(workDir, "shallow") {
		args = append(args, "--unshallow")
	}
	args = append(args, refspecs...)
	return c.Run(ctx, workDir, extra, args...)
}

func (c *Client) LFSInstall(ctx context.Context, workDir string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "lfs", "install", "--local")
}

func (c *Client) LFSFetch(ctx context.Context, workDir, remote, ref string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "lfs", "fetch", remote, ref)
}

// LFSLogs surfaces the last LFS failure for diagnostics after a failed fetch.
func (c *Client) LFSLogs(ctx context.Context, workDir string) (int, error) {
	return c.Run(ctx, workDir, nil, "lfs", "logs", "last")
}

func (c *Client) Checkout(ctx context.Context, workDir, ref string, extra []string) (int, error) {
	return c.Run(ctx, workDir, extra, "checkout", "--progress", "--force", ref)
}

func (c *Client) Clean(ctx context.Context, workDir string) (int, error) {
	return c.Run(ctx, workDir, nil, "clean", "-fdx")
}

func (c *Client) ResetHard(ctx context.Context, workDir string) (int, error) {
	return c.Run(ctx, workDir, nil, "reset", "--hard", "HEAD")
}

func (c *Client) SubmoduleSync(ctx context.Context, workDir string, recursive bool, extra []string) (int, error) {
	args := []string{"submodule", "sync"}
	if recursive {
		args = append(args, "--recursive")
	}
	return c.Run(ctx, workDir, extra, args...)
}

func (c *Client) SubmoduleUpdate(ctx context.Context, workDir string, recursive bool, extra []string) (int, error) {
	args := []string{"submodule", "update", "--init", "--force"}
	if recursive {
		args = append(args, "--recursive")
	}
	return c.Run(ctx, workDir, extra, args...)
}

func (c *Client) SubmoduleForeachClean(ctx context.Context, workDir string) (int, error) {
	return c.Run(ctx, workDir, nil, "submodule", "foreach", "git", "clean", "-fdx")
}

func (c *Client) SubmoduleForeachReset(ctx context.Context, workDir string) (int, error) {
	return c.Run(ctx, workDir, nil, "submodule", "foreach", "git", "reset", "--hard", "HEAD")
}

// fileExists checks for a file under the working tree's metadata directory.
func fileExists(workDir, gitFile string) bool {
	_, err := os.Stat(filepath.Join(workDir, ".git", gitFile))
	return err == nil
}
