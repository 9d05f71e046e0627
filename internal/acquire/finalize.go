package acquire

import (
	"context"
	"log/slog"
	"os"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
)

// finalize either persists the credential configuration into the working
// tree (ExposeCredentials) or scrubs every credential the acquisition
// injected. Never reached on cancellation.
func (a *Acquisition) finalize(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor

	if st.opts.SelfManagedCreds {
		return a.clearJournal(ctx, st)
	}

	if desc.ExposeCredentials {
		if err := a.persistCredentials(ctx, st); err != nil {
			return err
		}
		return nil
	}
	if err := a.scrubCredentials(ctx, st); err != nil {
		return err
	}
	return a.clearJournal(ctx, st)
}

// persistCredentials writes the per-invocation config pairs into the on-disk
// config so later build steps can use the tree with credentials intact.
// Every write is recorded in the modification set and the journal.
func (a *Acquisition) persistCredentials(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	for _, pair := range st.fetchPairs {
		key := pair.key
		if key == "http.extraheader" {
			// Persisted form is URL-scoped, matching what fetch saw.
			key = "http." + desc.URL + ".extraheader"
		}
		if code, err := a.git.ConfigSet(ctx, desc.TargetPath, key, pair.value, nil); err != nil {
			return err
		} else if code != 0 {
			return agerrors.GitExitError("config "+key, code)
		}
		a.record(ctx, st, key, pair.value)
	}
	return nil
}

// scrubCredentials removes everything prepare persisted: the
// credential-embedded remote URL, LFS URL keys, and the askpass helper.
func (a *Acquisition) scrubCredentials(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor

	if st.embeddedURL != "" {
		if err := a.sanitizeRemoteURLs(ctx, st); err != nil {
			return err
		}
	}

	for _, key := range []string{"remote.origin.lfsurl", "remote.origin.lfspushurl"} {
		value, ok := st.mod.Value(key)
		if !ok {
			exists, err := a.git.ConfigExists(ctx, desc.TargetPath, key)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			value, _, err = a.git.ConfigGet(ctx, desc.TargetPath, key)
			if err != nil {
				return err
			}
		}
		if err := a.unsetWithFallback(ctx, desc.TargetPath, key, value); err != nil {
			return err
		}
		st.mod.Forget(key)
	}

	if st.askpassPath != "" {
		if err := os.Remove(st.askpassPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("Could not remove askpass helper", logfields.Path(st.askpassPath), logfields.Error(err))
		}
		st.askpassPath = ""
	}
	return nil
}

// sanitizeRemoteURLs restores the credential-free URL on remote.origin.url
// and remote.origin.pushurl, with a textual config edit as the fallback when
// set-url fails: a partially-written secret must never remain on disk.
func (a *Acquisition) sanitizeRemoteURLs(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	sanitized := desc.URL
	fallback := false

	if code, err := a.git.RemoteSetURL(ctx, desc.TargetPath, "origin", sanitized, nil); err != nil {
		return err
	} else if code != 0 {
		fallback = true
	}

	hasPush, err := a.git.ConfigExists(ctx, desc.TargetPath, "remote.origin.pushurl")
	if err != nil {
		return err
	}
	if hasPush {
		if code, err := a.git.RemoteSetPushURL(ctx, desc.TargetPath, "origin", sanitized, nil); err != nil {
			return err
		} else if code != 0 {
			fallback = true
		}
	}

	if fallback {
		if err := replaceConfigText(desc.TargetPath, st.embeddedURL, sanitized); err != nil {
			return err
		}
	}
	st.mod.Forget("remote.origin.url")
	st.embeddedURL = ""
	return nil
}

// clearJournal drops the per-target journal rows after a clean finish.
func (a *Acquisition) clearJournal(ctx context.Context, st *runState) error {
	if a.journal == nil {
		return nil
	}
	if err := a.journal.ClearTarget(ctx, st.opts.Descriptor.TargetPath); err != nil {
		a.sink.Warning("Could not clear config journal: " + err.Error())
	}
	return nil
}
