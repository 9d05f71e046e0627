// Package provider encodes the per-provider authentication policy: which
// repository hosts accept a command-line auth header, at what git version,
// and how the header is rendered.
package provider

import (
	"encoding/base64"
	"fmt"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/gitcli"
)

// RepositoryType identifies the hosting provider of a repository.
type RepositoryType string

const (
	External         RepositoryType = "external"
	GitHub           RepositoryType = "github"
	GitHubEnterprise RepositoryType = "githubenterprise"
	Bitbucket        RepositoryType = "bitbucket"
	CentralHosted    RepositoryType = "centralhosted"
	CentralOnPrem    RepositoryType = "centralonprem"
)

// CredentialKind discriminates the Credential union.
type CredentialKind string

const (
	CredentialNone   CredentialKind = "none"
	CredentialBasic  CredentialKind = "basic"
	CredentialBearer CredentialKind = "bearer"
	CredentialOAuth  CredentialKind = "oauth"
)

// Credential is the tagged union of supported credential shapes.
type Credential struct {
	Kind     CredentialKind
	Username string
	Password string // password, access token, or JWT depending on Kind
}

// None is the absent credential.
var None = Credential{Kind: CredentialNone}

// Basic builds a username/password credential.
func Basic(username, password string) Credential {
	return Credential{Kind: CredentialBasic, Username: username, Password: password}
}

// Bearer builds an opaque-token credential.
func Bearer(token string) Credential {
	return Credential{Kind: CredentialBearer, Password: token}
}

// OAuth builds an access-token credential rendered as Basic with the literal
// username "OAuth".
func OAuth(token string) Credential {
	return Credential{Kind: CredentialOAuth, Username: "OAuth", Password: token}
}

// BasicPair returns the username/password to embed in a URL or encode as a
// Basic header.
func (c Credential) BasicPair() (string, string) {
	switch c.Kind {
	case CredentialBasic, CredentialOAuth:
		return c.Username, c.Password
	case CredentialBearer:
		// URL embedding of a bearer token mirrors the OAuth shape.
		return "OAuth", c.Password
	default:
		return "", ""
	}
}

// Policy is the per-provider decision table entry. A nil StrictMinimum means
// the provider degrades to URL embedding on old binaries.
type Policy struct {
	Type RepositoryType

	// UseAuthHeader gates the cmdline auth header path entirely.
	UseAuthHeader bool
	// StrictMinimum, when set, makes the auth-header git minimum a hard
	// requirement instead of a preference.
	StrictMinimum *gitcli.Version
	// BearerHeader renders "bearer <token>" instead of basic base64.
	BearerHeader bool
}

var policies = map[RepositoryType]Policy{
	External:         {Type: External},
	GitHub:           {Type: GitHub, UseAuthHeader: true},
	GitHubEnterprise: {Type: GitHubEnterprise, UseAuthHeader: true},
	Bitbucket:        {Type: Bitbucket, UseAuthHeader: true},
	CentralHosted:    {Type: CentralHosted, UseAuthHeader: true},
	CentralOnPrem:    {Type: CentralOnPrem, UseAuthHeader: true, StrictMinimum: &gitcli.MinAuthHeaderVersion, BearerHeader: true},
}

// ForType returns the policy for a repository type, defaulting to External
// for unknown values.
func ForType(t RepositoryType) Policy {
	if p, ok := policies[t]; ok {
		return p
	}
	return policies[External]
}

// SupportsAuthHeader reports whether the cmdline auth header path applies for
// the probed git version.
func (p Policy) SupportsAuthHeader(gitVersion gitcli.Version) bool {
	return p.UseAuthHeader && gitVersion.AtLeast(gitcli.MinAuthHeaderVersion)
}

// SupportsLFSAuthHeader reports whether git-lfs honors the auth header.
func (p Policy) SupportsLFSAuthHeader(lfsVersion gitcli.Version) bool {
	return p.UseAuthHeader && lfsVersion.AtLeast(gitcli.MinLFSAuthHeaderVersion)
}

// CheckRequirement enforces the provider's strict git minimum, if any.
func (p Policy) CheckRequirement(gitVersion gitcli.Version) error {
	if p.StrictMinimum == nil || gitVersion.AtLeast(*p.StrictMinimum) {
		return nil
	}
	return agerrors.RequirementNotMet("git >= "+p.StrictMinimum.String(), gitVersion.String())
}

// GenerateAuthHeader renders the Authorization header value for cred and
// returns the secret component that must enter the registry before use.
func (p Policy) GenerateAuthHeader(cred Credential) (header, secret string, err error) {
	if !p.UseAuthHeader {
		return "", "", agerrors.AuthSchemeUnsupported(string(cred.Kind))
	}
	switch {
	case p.BearerHeader:
		if cred.Password == "" {
			return "", "", agerrors.BadInput("credential", "bearer token required")
		}
		return "bearer " + cred.Password, cred.Password, nil
	case cred.Kind == CredentialBasic || cred.Kind == CredentialOAuth:
		b64 := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", cred.Username, cred.Password)))
		return "basic " + b64, b64, nil
	case cred.Kind == CredentialBearer:
		return "bearer " + cred.Password, cred.Password, nil
	default:
		return "", "", agerrors.AuthSchemeUnsupported(string(cred.Kind))
	}
}
