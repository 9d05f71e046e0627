package acquire

import (
	"path/filepath"
	"regexp"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/provider"
	"git.home.luguber.info/inful/buildagent/internal/urlutil"
)

// Descriptor is the requested state of one repository within a job.
type Descriptor struct {
	Alias      string                  `json:"alias"`
	Type       provider.RepositoryType `json:"type"`
	URL        string                  `json:"url"`
	Branch     string                  `json:"branch"`
	Commit     string                  `json:"commit,omitempty"`
	TargetPath string                  `json:"targetPath"`

	Clean                bool `json:"clean,omitempty"`
	Submodules           bool `json:"submodules,omitempty"`
	NestedSubmodules     bool `json:"nestedSubmodules,omitempty"`
	AcceptUntrustedCerts bool `json:"acceptUntrustedCerts,omitempty"`
	FetchDepth           int  `json:"fetchDepth,omitempty"`
	LFS                  bool `json:"lfs,omitempty"`
	ExposeCredentials    bool `json:"exposeCredentials,omitempty"`
	OnPremHosted         bool `json:"onPremHosted,omitempty"`
}

var commitPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// Validate enforces the descriptor invariants before any filesystem mutation.
func (d Descriptor) Validate() error {
	if d.Alias == "" {
		return agerrors.BadInput("alias", "required")
	}
	if _, err := urlutil.Authority(d.URL); err != nil {
		return err
	}
	if !filepath.IsAbs(d.TargetPath) {
		return agerrors.BadInput("targetPath", "must be absolute")
	}
	if d.FetchDepth < 0 {
		return agerrors.BadInput("fetchDepth", "must be >= 0")
	}
	if d.Commit != "" && !commitPattern.MatchString(d.Commit) {
		return agerrors.BadInput("commit", "must be 40 hex characters")
	}
	return nil
}

// EffectiveType folds the on-prem flag into the provider type.
func (d Descriptor) EffectiveType() provider.RepositoryType {
	if d.Type == provider.CentralHosted && d.OnPremHosted {
		return provider.CentralOnPrem
	}
	return d.Type
}

// CertificateBundle holds the agent's TLS material. It applies to a
// repository only when the repository shares scheme and host with the
// configured control-plane endpoint.
type CertificateBundle struct {
	CAFile               string `yaml:"ca_file"`
	ClientCertFile       string `yaml:"client_cert_file"`
	ClientKeyFile        string `yaml:"client_key_file"`
	ClientKeyPassword    string `yaml:"client_key_password"`
	SkipServerValidation bool   `yaml:"skip_server_validation"`
}

// HasClientCert reports whether mutual TLS is configured.
func (c CertificateBundle) HasClientCert() bool {
	return c.ClientCertFile != "" && c.ClientKeyFile != ""
}

// SystemConnection describes the control-plane endpoint, used to decide
// whether the TLS bundle applies to a repository host and to source the
// on-prem bearer JWT.
type SystemConnection struct {
	URL        string
	Credential provider.Credential
}

// Options is the full argument bundle for one acquisition. It replaces the
// ambient context object of older agents: everything the orchestrator needs
// arrives here explicitly.
type Options struct {
	Descriptor Descriptor
	Credential provider.Credential
	Certs      CertificateBundle
	Proxy      urlutil.ProxySettings
	System     SystemConnection

	// SelfManagedCreds skips every auth-header, URL-embedding, and
	// config-cleanup path; the caller owns credential handling.
	SelfManagedCreds bool

	// TempDir hosts askpass helper scripts (agent temp directory).
	TempDir string
}
