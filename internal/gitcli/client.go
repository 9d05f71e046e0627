// Package gitcli adapts the external git binary (and its LFS extension) for
// the acquisition orchestrator: binary discovery, version probing, and
// per-invocation execution with streamed, secret-masked output.
package gitcli

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/trace"
)

// Client drives one git binary. Invocations against the same working tree are
// serialized by the orchestrator; the client itself holds no mutable state
// beyond the probed versions.
type Client struct {
	gitPath string
	lfsPath string
	version Version

	lfsOnce    sync.Once
	lfsVersion Version
	lfsProbed  bool

	sink trace.Sink
}

// NewClient locates the git binary per opts and probes its version.
func NewClient(ctx context.Context, sink trace.Sink, opts BinaryOptions) (*Client, error) {
	gitPath, err := locateGit(opts)
	if err != nil {
		return nil, err
	}
	c := &Client{
		gitPath: gitPath,
		lfsPath: locateLFS(gitPath),
		sink:    sink,
	}
	out, code, err := c.runCapture(ctx, "", nil, "version")
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, agerrors.GitExitError("version", code)
	}
	v, ok := ParseVersion(out)
	if !ok {
		return nil, agerrors.New(agerrors.CategoryGit, agerrors.SeverityFatal, "could not parse git version").
			WithContext("output", out)
	}
	c.version = v
	return c, nil
}

// Path returns the resolved git binary path.
func (c *Client) Path() string { return c.gitPath }

// Version returns the probed git version.
func (c *Client) Version() Version { return c.version }

// EnsureVersion checks the probed git version against min. With strict=false
// the result is advisory; with strict=true a too-old binary is a hard failure.
func (c *Client) EnsureVersion(min Version, strict bool) (bool, error) {
	if c.version.AtLeast(min) {
		return true, nil
	}
	if strict {
		return false, agerrors.RequirementNotMet("git >= "+min.String(), c.version.String())
	}
	return false, nil
}

// LFSVersion probes git-lfs once and caches the result. The bool is false
// when no LFS binary could be found or probed.
func (c *Client) LFSVersion(ctx context.Context) (Version, bool) {
	c.lfsOnce.Do(func() {
		if c.lfsPath == "" {
			return
		}
		out, code, err := c.runCapture(ctx, "", nil, "lfs", "version")
		if err != nil || code != 0 {
			return
		}
		if v, ok := ParseVersion(out); ok {
			c.lfsVersion = v
			c.lfsProbed = true
		}
	})
	return c.lfsVersion, c.lfsProbed
}

// EnsureLFSVersion mirrors EnsureVersion for the LFS extension.
func (c *Client) EnsureLFSVersion(ctx context.Context, min Version, strict bool) (bool, error) {
	v, ok := c.LFSVersion(ctx)
	if ok && v.AtLeast(min) {
		return true, nil
	}
	if strict {
		actual := "absent"
		if ok {
			actual = v.String()
		}
		return false, agerrors.RequirementNotMet("git-lfs >= "+min.String(), actual)
	}
	return false, nil
}

// newCommand builds the child process: working directory set, stdin closed,
// extra config args spliced before the subcommand verb. Cancellation sends
// terminateSignal (SIGTERM on Unix) and gives the process up to ten seconds
// (WaitDelay) to finish before it is killed.
func (c *Client) newCommand(ctx context.Context, workDir string, extra []string, args ...string) *exec.Cmd {
	argv := make([]string, 0, len(extra)+len(args))
	argv = append(argv, extra...)
	argv = append(argv, args...)
	cmd := exec.CommandContext(ctx, c.gitPath, argv...)
	cmd.Dir = workDir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(terminateSignal)
	}
	cmd.WaitDelay = 10 * time.Second
	c.sink.Command(c.gitPath + " " + strings.Join(argv, " "))
	return cmd
}

// Run executes git with the given working directory, extra `-c` config args,
// and subcommand arguments, streaming stdout/stderr to the sink line by line.
// The returned exit code is valid whenever err is nil.
func (c *Client) Run(ctx context.Context, workDir string, extra []string, args ...string) (int, error) {
	cmd := c.newCommand(ctx, workDir, extra, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, agerrors.GitStartError(args[0], err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, agerrors.GitStartError(args[0], err)
	}
	if err := cmd.Start(); err != nil {
		return -1, agerrors.GitStartError(args[0], err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			c.sink.Output(sc.Text())
		}
	}()
	go func() {
		defer wg.Done()
		sc := bufio.NewScanner(stderr)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			c.sink.Output(sc.Text())
		}
	}()
	wg.Wait()

	err = cmd.Wait()
	if ctx.Err() != nil {
		return -1, agerrors.Canceled(ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, agerrors.GitStartError(args[0], err)
	}
	return 0, nil
}

// runCapture executes git and returns trimmed stdout instead of streaming it.
// The command line is still logged (masked); stdout is not, so config reads
// never echo values into the job log. Stderr reaches the sink only when git
// exits non-zero.
func (c *Client) runCapture(ctx context.Context, workDir string, extra []string, args ...string) (string, int, error) {
	cmd := c.newCommand(ctx, workDir, extra, args...)
	out, err := cmd.Output()
	if ctx.Err() != nil {
		return "", -1, agerrors.Canceled(ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			for _, line := range strings.Split(strings.TrimSpace(string(exitErr.Stderr)), "\n") {
				if line != "" {
					c.sink.Output(line)
				}
			}
			return strings.TrimSpace(string(out)), exitErr.ExitCode(), nil
		}
		return "", -1, agerrors.GitStartError(args[0], err)
	}
	return strings.TrimSpace(string(out)), 0, nil
}
