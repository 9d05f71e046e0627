package gitcli

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
)

// BinaryOptions controls how the git and git-lfs binaries are located.
type BinaryOptions struct {
	// PreferPath forces PATH resolution even where a bundled binary exists.
	PreferPath bool
	// ExternalsDir is the agent externals directory holding the bundled git
	// on Windows. Empty means "next to the executable".
	ExternalsDir string
}

// locateGit resolves the git binary. Windows prefers the agent-bundled git
// (its TLS stack can be redirected to schannel) unless PreferPath is set; all
// other systems always use PATH.
func locateGit(opts BinaryOptions) (string, error) {
	if runtime.GOOS == "windows" && !opts.PreferPath {
		if p := bundledGitPath(opts.ExternalsDir); p != "" {
			return p, nil
		}
	}
	p, err := exec.LookPath("git")
	if err != nil {
		return "", agerrors.FileSystemError("locate git", err)
	}
	return p, nil
}

// locateLFS resolves git-lfs from the same directory as git when possible,
// falling back to PATH. Missing LFS is not an error until an LFS repository
// shows up.
func locateLFS(gitPath string) string {
	candidate := filepath.Join(filepath.Dir(gitPath), lfsBinaryName())
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	p, err := exec.LookPath("git-lfs")
	if err != nil {
		return ""
	}
	return p
}

func bundledGitPath(externalsDir string) string {
	if externalsDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return ""
		}
		externalsDir = filepath.Join(filepath.Dir(exe), "externals")
	}
	candidate := filepath.Join(externalsDir, "git", "cmd", "git.exe")
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

func lfsBinaryName() string {
	if runtime.GOOS == "windows" {
		return "git-lfs.exe"
	}
	return "git-lfs"
}
