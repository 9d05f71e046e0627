package acquire

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/buildagent/internal/gitcli"
)

// fakeGit records adapter invocations and plays back configured exit codes.
type fakeGit struct {
	version    gitcli.Version
	lfsVersion gitcli.Version
	lfsOK      bool

	calls []string
	// exitCodes overrides the zero default per operation name.
	exitCodes map[string]int
	// remoteURL simulates the recorded origin fetch URL; fetchURLCode its
	// config exit code.
	remoteURL    string
	fetchURLCode int
	// configs is the simulated on-disk config store.
	configs map[string]string
	// onFetch, when set, runs inside Fetch (used to trigger cancellation).
	onFetch func()
}

func newFakeGit(version gitcli.Version) *fakeGit {
	return &fakeGit{
		version:    version,
		lfsVersion: gitcli.Version{Major: 2, Minor: 13},
		lfsOK:      true,
		exitCodes:  map[string]int{},
		configs:    map[string]string{},
	}
}

func (f *fakeGit) recordCall(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeGit) code(op string) int { return f.exitCodes[op] }

func (f *fakeGit) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeGit) callsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGit) Version() gitcli.Version { return f.version }

func (f *fakeGit) EnsureVersion(min gitcli.Version, strict bool) (bool, error) {
	if f.version.AtLeast(min) {
		return true, nil
	}
	if strict {
		return false, fmt.Errorf("requirement (fatal): minimum requirement not met")
	}
	return false, nil
}

func (f *fakeGit) EnsureLFSVersion(_ context.Context, min gitcli.Version, strict bool) (bool, error) {
	if f.lfsOK && f.lfsVersion.AtLeast(min) {
		return true, nil
	}
	if strict {
		return false, fmt.Errorf("requirement (fatal): minimum requirement not met")
	}
	return false, nil
}

func (f *fakeGit) Init(_ context.Context, workDir string, extra []string) (int, error) {
	f.recordCall("init %s", workDir)
	return f.code("init"), nil
}

func (f *fakeGit) RemoteAdd(_ context.Context, _, name, url string, _ []string) (int, error) {
	f.recordCall("remote-add %s %s", name, url)
	return f.code("remote-add"), nil
}

func (f *fakeGit) RemoteSetURL(_ context.Context, _, name, url string, _ []string) (int, error) {
	f.recordCall("remote-set-url %s %s", name, url)
	if f.code("remote-set-url") == 0 {
		f.remoteURL = url
	}
	return f.code("remote-set-url"), nil
}

func (f *fakeGit) RemoteSetPushURL(_ context.Context, _, name, url string, _ []string) (int, error) {
	f.recordCall("remote-set-push-url %s %s", name, url)
	return f.code("remote-set-push-url"), nil
}

func (f *fakeGit) FetchURL(_ context.Context, _, remote string) (string, int, error) {
	f.recordCall("fetch-url %s", remote)
	return f.remoteURL, f.fetchURLCode, nil
}

func (f *fakeGit) ConfigGet(_ context.Context, _, key string) (string, int, error) {
	f.recordCall("config-get %s", key)
	if v, ok := f.configs[key]; ok {
		return v, 0, nil
	}
	return "", 1, nil
}

func (f *fakeGit) ConfigSet(_ context.Context, _, key, value string, _ []string) (int, error) {
	f.recordCall("config-set %s=%s", key, value)
	if f.code("config-set") == 0 {
		f.configs[key] = value
	}
	return f.code("config-set"), nil
}

func (f *fakeGit) ConfigUnset(_ context.Context, _, key string) (int, error) {
	f.recordCall("config-unset %s", key)
	if f.code("config-unset") == 0 {
		delete(f.configs, key)
	}
	return f.code("config-unset"), nil
}

func (f *fakeGit) ConfigExists(_ context.Context, _, key string) (bool, error) {
	_, ok := f.configs[key]
	return ok, nil
}

func (f *fakeGit) DisableAutoGC(_ context.Context, _ string) (int, error) {
	f.recordCall("disable-autogc")
	return f.code("disable-autogc"), nil
}

func (f *fakeGit) Fetch(ctx context.Context, _, remote string, refspecs []string, depth int, extra []string) (int, error) {
	f.recordCall("fetch %s depth=%d refspecs=%v extra=%s", remote, depth, refspecs, strings.Join(extra, " "))
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.code("fetch"), nil
}

func (f *fakeGit) Checkout(_ context.Context, _, ref string, extra []string) (int, error) {
	f.recordCall("checkout %s", ref)
	return f.code("checkout"), nil
}

func (f *fakeGit) Clean(_ context.Context, _ string) (int, error) {
	f.recordCall("clean")
	return f.code("clean"), nil
}

func (f *fakeGit) ResetHard(_ context.Context, _ string) (int, error) {
	f.recordCall("reset")
	return f.code("reset"), nil
}

func (f *fakeGit) LFSInstall(_ context.Context, _ string, _ []string) (int, error) {
	f.recordCall("lfs-install")
	return f.code("lfs-install"), nil
}

func (f *fakeGit) LFSFetch(_ context.Context, _, remote, ref string, extra []string) (int, error) {
	f.recordCall("lfs-fetch %s %s extra=%s", remote, ref, strings.Join(extra, " "))
	return f.code("lfs-fetch"), nil
}

func (f *fakeGit) LFSLogs(_ context.Context, _ string) (int, error) {
	f.recordCall("lfs-logs")
	return f.code("lfs-logs"), nil
}

func (f *fakeGit) SubmoduleSync(_ context.Context, _ string, recursive bool, extra []string) (int, error) {
	f.recordCall("submodule-sync recursive=%v extra=%s", recursive, strings.Join(extra, " "))
	return f.code("submodule-sync"), nil
}

func (f *fakeGit) SubmoduleUpdate(_ context.Context, _ string, recursive bool, extra []string) (int, error) {
	f.recordCall("submodule-update recursive=%v extra=%s", recursive, strings.Join(extra, " "))
	return f.code("submodule-update"), nil
}

func (f *fakeGit) SubmoduleForeachClean(_ context.Context, _ string) (int, error) {
	f.recordCall("submodule-foreach-clean")
	return f.code("submodule-foreach-clean"), nil
}

func (f *fakeGit) SubmoduleForeachReset(_ context.Context, _ string) (int, error) {
	f.recordCall("submodule-foreach-reset")
	return f.code("submodule-foreach-reset"), nil
}
