package acquire

import (
	"context"

	"git.home.luguber.info/inful/buildagent/internal/gitcli"
)

// Git is the slice of the external-binary adapter the orchestrator drives.
// *gitcli.Client satisfies it; tests substitute a recorder.
type Git interface {
	Version() gitcli.Version
	EnsureVersion(min gitcli.Version, strict bool) (bool, error)
	EnsureLFSVersion(ctx context.Context, min gitcli.Version, strict bool) (bool, error)

	Init(ctx context.Context, workDir string, extra []string) (int, error)
	RemoteAdd(ctx context.Context, workDir, name, url string, extra []string) (int, error)
	RemoteSetURL(ctx context.Context, workDir, name, url string, extra []string) (int, error)
	RemoteSetPushURL(ctx context.Context, workDir, name, url string, extra []string) (int, error)
	FetchURL(ctx context.Context, workDir, remote string) (string, int, error)

	ConfigGet(ctx context.Context, workDir, key string) (string, int, error)
	ConfigSet(ctx context.Context, workDir, key, value string, extra []string) (int, error)
	ConfigUnset(ctx context.Context, workDir, key string) (int, error)
	ConfigExists(ctx context.Context, workDir, key string) (bool, error)
	DisableAutoGC(ctx context.Context, workDir string) (int, error)

	Fetch(ctx context.Context, workDir, remote string, refspecs []string, depth int, extra []string) (int, error)
	Checkout(ctx context.Context, workDir, ref string, extra []string) (int, error)
	Clean(ctx context.Context, workDir string) (int, error)
	ResetHard(ctx context.Context, workDir string) (int, error)

	LFSInstall(ctx context.Context, workDir string, extra []string) (int, error)
	LFSFetch(ctx context.Context, workDir, remote, ref string, extra []string) (int, error)
	LFSLogs(ctx context.Context, workDir string) (int, error)

	SubmoduleSync(ctx context.Context, workDir string, recursive bool, extra []string) (int, error)
	SubmoduleUpdate(ctx context.Context, workDir string, recursive bool, extra []string) (int, error)
	SubmoduleForeachClean(ctx context.Context, workDir string) (int, error)
	SubmoduleForeachReset(ctx context.Context, workDir string) (int, error)
}
