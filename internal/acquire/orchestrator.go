// Package acquire reconciles the on-disk state of a working tree with a
// requested revision: the provider-aware state machine between the job
// message and the git binary.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/gitcli"
	"git.home.luguber.info/inful/buildagent/internal/journal"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/provider"
	"git.home.luguber.info/inful/buildagent/internal/trace"
	"git.home.luguber.info/inful/buildagent/internal/workspace"
)

// Acquisition runs the source-acquisition state machine. One instance may
// serve many sequential acquisitions; all per-run state lives in runState.
type Acquisition struct {
	git     Git
	sink    trace.Sink
	journal *journal.Store // nil disables persistence
}

// New builds an orchestrator over the given adapter and sink. jr may be nil.
func New(git Git, sink trace.Sink, jr *journal.Store) *Acquisition {
	return &Acquisition{git: git, sink: sink, journal: jr}
}

// kv is one `-c key=value` pair destined for a git invocation or, in the
// expose-credentials case, the on-disk config.
type kv struct {
	key   string
	value string
}

// runState is the per-acquisition working set.
type runState struct {
	opts   Options
	policy provider.Policy

	fetchPairs     []kv
	lfsPairs       []kv
	submodulePairs []kv

	mod         *ConfigModification
	askpassPath string
	// embeddedURL is set when credentials were written into the remote URL
	// (the fallback for binaries without cmdline header support).
	embeddedURL string
	useHeader   bool
}

func args(pairs []kv) []string {
	out := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		out = append(out, "-c", p.key+"="+p.value)
	}
	return out
}

func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return agerrors.Canceled(err)
	}
	return nil
}

// Acquire produces a working tree at opts.Descriptor.TargetPath positioned at
// the requested revision, submodules updated when requested, and injected
// credentials removed unless ExposeCredentials. Cancellation is honored at
// every phase boundary; a canceled acquisition performs no scrubbing (the
// caller's post-job cleanup is authoritative).
func (a *Acquisition) Acquire(ctx context.Context, opts Options) error {
	if err := opts.Descriptor.Validate(); err != nil {
		return err
	}

	st := &runState{
		opts:   opts,
		policy: provider.ForType(opts.Descriptor.EffectiveType()),
		mod:    NewConfigModification(),
	}

	// Strict requirements fail before any filesystem mutation.
	if err := st.policy.CheckRequirement(a.git.Version()); err != nil {
		return err
	}
	if st.policy.StrictMinimum != nil && opts.Descriptor.LFS {
		if _, err := a.git.EnsureLFSVersion(ctx, gitcli.MinLFSAuthHeaderVersion, true); err != nil {
			return err
		}
	}

	if err := checkCancel(ctx); err != nil {
		return err
	}
	needInit, err := a.probe(ctx, st)
	if err != nil {
		return err
	}
	if needInit {
		if err := a.initialize(ctx, st); err != nil {
			return err
		}
	}
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if err := a.prepare(ctx, st); err != nil {
		return err
	}
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if err := a.fetch(ctx, st); err != nil {
		return err
	}
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if err := a.resolveCheckout(ctx, st); err != nil {
		return err
	}
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if err := a.submodules(ctx, st); err != nil {
		return err
	}
	if err := checkCancel(ctx); err != nil {
		return err
	}
	return a.finalize(ctx, st)
}

// probe inspects the target path and decides between the incremental path
// and a purge. Returns true when the tree must be (re-)initialized.
func (a *Acquisition) probe(ctx context.Context, st *runState) (bool, error) {
	desc := st.opts.Descriptor

	empty, err := workspace.IsEmptyOrMissing(desc.TargetPath)
	if err != nil {
		return false, err
	}
	if empty {
		return true, nil
	}
	if !workspace.HasWorkingTree(desc.TargetPath) {
		a.sink.Debug("Target directory holds no working tree; purging " + desc.TargetPath)
		return true, workspace.Purge(ctx, desc.TargetPath)
	}

	recordedURL, code, err := a.git.FetchURL(ctx, desc.TargetPath, "origin")
	if err != nil {
		return false, err
	}
	if code != 0 || recordedURL != desc.URL {
		a.sink.Debug(fmt.Sprintf("Recorded origin %q does not match %q; purging", recordedURL, desc.URL))
		return true, workspace.Purge(ctx, desc.TargetPath)
	}

	// Reconcile: the tree matches. Clear a stale index lock first.
	lockPath := workspace.IndexLockPath(desc.TargetPath)
	if _, statErr := os.Stat(lockPath); statErr == nil {
		if rmErr := os.Remove(lockPath); rmErr != nil {
			slog.Warn("Could not remove index lock", logfields.Path(lockPath), logfields.Error(rmErr))
		}
	}

	if desc.Clean {
		if ok, err := a.softClean(ctx, st); err != nil {
			return false, err
		} else if !ok {
			a.sink.Warning("Clean failed; falling back to deleting the working tree")
			return true, workspace.Purge(ctx, desc.TargetPath)
		}
	}
	return false, nil
}

// softClean attempts the in-place clean sequence. The first non-zero exit
// aborts and reports false; hard errors (start failure, cancel) propagate.
func (a *Acquisition) softClean(ctx context.Context, st *runState) (bool, error) {
	desc := st.opts.Descriptor
	steps := []func() (int, error){
		func() (int, error) { return a.git.Clean(ctx, desc.TargetPath) },
		func() (int, error) { return a.git.ResetHard(ctx, desc.TargetPath) },
	}
	if desc.Submodules {
		steps = append(steps,
			func() (int, error) { return a.git.SubmoduleForeachClean(ctx, desc.TargetPath) },
			func() (int, error) { return a.git.SubmoduleForeachReset(ctx, desc.TargetPath) },
		)
	}
	for _, step := range steps {
		code, err := step()
		if err != nil {
			return false, err
		}
		if code != 0 {
			return false, nil
		}
	}
	return true, nil
}

// initialize creates a fresh working tree with origin pointing at the
// descriptor URL.
func (a *Acquisition) initialize(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	if err := os.MkdirAll(desc.TargetPath, 0o750); err != nil {
		return agerrors.FileSystemError("create target directory", err)
	}
	if code, err := a.git.Init(ctx, desc.TargetPath, nil); err != nil {
		return err
	} else if code != 0 {
		return agerrors.GitExitError("init", code)
	}
	if code, err := a.git.RemoteAdd(ctx, desc.TargetPath, "origin", desc.URL, nil); err != nil {
		return err
	} else if code != 0 {
		return agerrors.GitExitError("remote add", code)
	}
	return nil
}

// fetch runs the main fetch with the prepared config pairs, adding explicit
// refspecs for pull-request refs.
func (a *Acquisition) fetch(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	a.sink.Progress(0, "Fetching "+desc.URL)

	var refspecs []string
	if IsPullRequestRef(desc.Branch) {
		refspecs = pullRequestRefspecs(desc.Branch)
	}
	code, err := a.git.Fetch(ctx, desc.TargetPath, "origin", refspecs, desc.FetchDepth, args(st.fetchPairs))
	if err != nil {
		return err
	}
	if code != 0 {
		return agerrors.GitExitError("fetch", code)
	}
	return nil
}

// resolveCheckout computes the checkout target, pre-fetches LFS content when
// requested, and checks the tree out.
func (a *Acquisition) resolveCheckout(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor

	target := desc.Commit
	if IsPullRequestRef(desc.Branch) || desc.Commit == "" {
		target = ToRemoteRef(desc.Branch)
	}

	if desc.LFS {
		if code, err := a.git.LFSInstall(ctx, desc.TargetPath, args(st.lfsPairs)); err != nil {
			return err
		} else if code != 0 {
			return agerrors.GitExitError("lfs install", code)
		}
		code, err := a.git.LFSFetch(ctx, desc.TargetPath, "origin", target, args(st.lfsPairs))
		if err != nil {
			return err
		}
		if code != 0 {
			logsCode, logsErr := a.git.LFSLogs(ctx, desc.TargetPath)
			if logsErr != nil {
				return logsErr
			}
			return agerrors.GitExitError("lfs fetch", code).
				WithContext("lfs_logs_exit_code", logsCode)
		}
	}

	a.sink.Progress(80, "Checking out "+target)
	code, err := a.git.Checkout(ctx, desc.TargetPath, target, args(st.fetchPairs))
	if err != nil {
		return err
	}
	if code != 0 {
		if desc.FetchDepth > 0 {
			a.sink.Warning(fmt.Sprintf(
				"Checkout failed on a shallow repository (fetch depth %d); the requested revision may be outside the fetched history",
				desc.FetchDepth))
		}
		return agerrors.GitExitError("checkout", code)
	}
	return nil
}

// submodules syncs and updates submodules with authority-scoped config.
func (a *Acquisition) submodules(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	if !desc.Submodules {
		return nil
	}
	a.sink.Progress(90, "Updating submodules")
	extra := args(st.submodulePairs)
	if code, err := a.git.SubmoduleSync(ctx, desc.TargetPath, desc.NestedSubmodules, extra); err != nil {
		return err
	} else if code != 0 {
		return agerrors.GitExitError("submodule sync", code)
	}
	if code, err := a.git.SubmoduleUpdate(ctx, desc.TargetPath, desc.NestedSubmodules, extra); err != nil {
		return err
	} else if code != 0 {
		return agerrors.GitExitError("submodule update", code)
	}
	return nil
}
