package acquire

import (
	"context"
	"net/url"
	"runtime"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/gitcli"
	"git.home.luguber.info/inful/buildagent/internal/provider"
	"git.home.luguber.info/inful/buildagent/internal/urlutil"
	"git.home.luguber.info/inful/buildagent/internal/workspace"
)

// prepare disables autogc, scrubs stale credential config from earlier runs,
// and assembles the per-invocation config pairs for fetch, LFS, and
// submodule operations.
func (a *Acquisition) prepare(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor

	if code, err := a.git.DisableAutoGC(ctx, desc.TargetPath); err != nil {
		return err
	} else if code != 0 {
		a.sink.Warning("Could not disable automatic garbage collection")
	}

	if err := a.scrubStaleKeys(ctx, st); err != nil {
		return err
	}
	if err := a.prepareCredentials(ctx, st); err != nil {
		return err
	}
	if err := a.prepareProxy(st); err != nil {
		return err
	}
	if err := a.prepareTLS(st); err != nil {
		return err
	}

	if runtime.GOOS == "windows" && a.git.Version().AtLeast(gitcli.MinSchannelVersion) {
		st.fetchPairs = append(st.fetchPairs, kv{"http.sslbackend", "schannel"})
		st.submodulePairs = append(st.submodulePairs, kv{"http.sslbackend", "schannel"})
	}
	return nil
}

// scrubStaleKeys removes credential config a previous run may have left in
// the working tree before this run injects its own.
func (a *Acquisition) scrubStaleKeys(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	for _, key := range []string{
		"http." + desc.URL + ".extraheader",
		"http.proxy",
	} {
		value, code, err := a.git.ConfigGet(ctx, desc.TargetPath, key)
		if err != nil {
			return err
		}
		if code != 0 {
			continue
		}
		if err := a.unsetWithFallback(ctx, desc.TargetPath, key, value); err != nil {
			return err
		}
	}
	return nil
}

// prepareCredentials picks between the cmdline auth header and URL embedding
// per the provider policy and binary version.
func (a *Acquisition) prepareCredentials(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	cred := st.opts.Credential
	if cred.Kind == provider.CredentialNone && st.policy.BearerHeader {
		// On-prem central hosts authenticate with the system connection's JWT
		// when the job carries no repository credential.
		cred = st.opts.System.Credential
	}
	if st.opts.SelfManagedCreds || cred.Kind == provider.CredentialNone {
		return nil
	}

	st.useHeader = st.policy.SupportsAuthHeader(a.git.Version())
	if st.useHeader {
		header, secret, err := st.policy.GenerateAuthHeader(cred)
		if err != nil {
			if agerrors.CategoryOf(err) == agerrors.CategoryAuth {
				// Unsupported scheme degrades to anonymous access.
				a.sink.Warning(err.Error())
				return nil
			}
			return err
		}
		a.sink.SetSecret(secret)
		headerValue := "AUTHORIZATION: " + header
		authority, err := urlutil.Authority(desc.URL)
		if err != nil {
			return err
		}
		st.fetchPairs = append(st.fetchPairs, kv{"http.extraheader", headerValue})
		st.submodulePairs = append(st.submodulePairs, kv{"http." + authority + "/.extraheader", headerValue})
		if desc.LFS {
			if ok, err := a.git.EnsureLFSVersion(ctx, gitcli.MinLFSAuthHeaderVersion, false); err != nil {
				return err
			} else if ok {
				st.lfsPairs = append(st.lfsPairs, kv{"http.extraheader", headerValue})
			} else if err := a.embedLFSURL(ctx, st); err != nil {
				return err
			}
		}
		return nil
	}

	// Fallback: write the credential into the remote URL. Finalize removes
	// it again unless ExposeCredentials.
	username, password := cred.BasicPair()
	embedded, err := urlutil.EmbedCredentials(desc.URL, username, password)
	if err != nil {
		return err
	}
	a.sink.SetSecret(password)
	a.sink.SetSecret(url.QueryEscape(password))
	st.embeddedURL = embedded

	if code, err := a.git.RemoteSetURL(ctx, desc.TargetPath, "origin", embedded, nil); err != nil {
		return err
	} else if code != 0 {
		return agerrors.GitExitError("remote set-url", code)
	}
	a.record(ctx, st, "remote.origin.url", embedded)

	if desc.LFS {
		return a.embedLFSURL(ctx, st)
	}
	return nil
}

// embedLFSURL persists a credential-embedded LFS endpoint for binaries (or
// LFS versions) without header support.
func (a *Acquisition) embedLFSURL(ctx context.Context, st *runState) error {
	desc := st.opts.Descriptor
	username, password := st.opts.Credential.BasicPair()
	embedded, err := urlutil.EmbedCredentials(desc.URL, username, password)
	if err != nil {
		return err
	}
	a.sink.SetSecret(password)
	endpoint := urlutil.LFSEndpoint(embedded)
	if code, err := a.git.ConfigSet(ctx, desc.TargetPath, "remote.origin.lfsurl", endpoint, nil); err != nil {
		return err
	} else if code != 0 {
		return agerrors.GitExitError("config lfsurl", code)
	}
	a.record(ctx, st, "remote.origin.lfsurl", endpoint)
	return nil
}

// prepareProxy renders the http.proxy pair when the configured proxy applies
// to the repository.
func (a *Acquisition) prepareProxy(st *runState) error {
	proxyURL, err := st.opts.Proxy.ProxyURL(st.opts.Descriptor.URL)
	if err != nil {
		return err
	}
	if proxyURL == "" {
		return nil
	}
	if st.opts.Proxy.Password != "" {
		a.sink.SetSecret(st.opts.Proxy.Password)
		a.sink.SetSecret(url.QueryEscape(st.opts.Proxy.Password))
	}
	pair := kv{"http.proxy", proxyURL}
	st.fetchPairs = append(st.fetchPairs, pair)
	st.lfsPairs = append(st.lfsPairs, pair)
	st.submodulePairs = append(st.submodulePairs, pair)
	return nil
}

// prepareTLS wires server validation, CA, and client certificate options.
// The certificate bundle applies only when the repository shares scheme and
// host with the control-plane endpoint.
func (a *Acquisition) prepareTLS(st *runState) error {
	desc := st.opts.Descriptor
	certs := st.opts.Certs

	if desc.AcceptUntrustedCerts || certs.SkipServerValidation {
		pair := kv{"http.sslVerify", "false"}
		st.fetchPairs = append(st.fetchPairs, pair)
		st.lfsPairs = append(st.lfsPairs, pair)
		st.submodulePairs = append(st.submodulePairs, pair)
	}

	if st.opts.System.URL == "" || !urlutil.SameSchemeAndHost(desc.URL, st.opts.System.URL) {
		return nil
	}
	authority, err := urlutil.Authority(desc.URL)
	if err != nil {
		return err
	}

	if certs.CAFile != "" {
		st.fetchPairs = append(st.fetchPairs, kv{"http.sslcainfo", certs.CAFile})
		st.lfsPairs = append(st.lfsPairs, kv{"http.sslcainfo", certs.CAFile})
		st.submodulePairs = append(st.submodulePairs, kv{"http." + authority + "/.sslcainfo", certs.CAFile})
	}
	if certs.HasClientCert() {
		st.fetchPairs = append(st.fetchPairs,
			kv{"http.sslcert", certs.ClientCertFile},
			kv{"http.sslkey", certs.ClientKeyFile})
		st.lfsPairs = append(st.lfsPairs,
			kv{"http.sslcert", certs.ClientCertFile},
			kv{"http.sslkey", certs.ClientKeyFile})
		st.submodulePairs = append(st.submodulePairs,
			kv{"http." + authority + "/.sslcert", certs.ClientCertFile},
			kv{"http." + authority + "/.sslkey", certs.ClientKeyFile})

		if certs.ClientKeyPassword != "" {
			a.sink.SetSecret(certs.ClientKeyPassword)
			helper, err := workspace.WriteAskpassHelper(st.opts.TempDir, certs.ClientKeyPassword)
			if err != nil {
				return err
			}
			st.askpassPath = helper
			askpassPairs := []kv{
				{"http.sslCertPasswordProtected", "true"},
				{"core.askpass", helper},
			}
			st.fetchPairs = append(st.fetchPairs, askpassPairs...)
			st.lfsPairs = append(st.lfsPairs, askpassPairs...)
			st.submodulePairs = append(st.submodulePairs, askpassPairs...)
		}
	}
	return nil
}

// record notes a persisted config write in both the in-memory modification
// set and the journal.
func (a *Acquisition) record(ctx context.Context, st *runState, key, value string) {
	st.mod.Record(key, value)
	if a.journal != nil {
		if err := a.journal.Record(ctx, st.opts.Descriptor.TargetPath, key, value); err != nil {
			a.sink.Warning("Could not journal config modification: " + err.Error())
		}
	}
}
