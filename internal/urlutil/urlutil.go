// Package urlutil handles credential embedding and stripping in repository
// URLs. Every URL that carries a secret passes through here on its way to the
// git binary or the on-disk config.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
)

// escapeUserinfo percent-encodes s for use in the userinfo component.
// The reserved set (@:/?#[] and friends) must never appear raw there.
func escapeUserinfo(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUserinfoSafe(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUserinfoSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	case c == '!' || c == '$' || c == '&' || c == '\'' || c == '(' || c == ')' ||
		c == '*' || c == '+' || c == ',' || c == ';' || c == '=':
		// sub-delims are legal in userinfo
		return true
	}
	return false
}

// EmbedCredentials returns rawURL with username/password inserted in the
// userinfo component, escaped per RFC 3986. When net/url would render the URL
// differently from its literal form (a default port elided, for example) the
// literal form wins: git requires explicit port notation in some setups.
func EmbedCredentials(rawURL, username, password string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", agerrors.MalformedURL(rawURL, err)
	}
	if !u.IsAbs() {
		return "", agerrors.BadInput("url", "must be absolute")
	}

	userinfo := escapeUserinfo(username)
	if password != "" {
		userinfo += ":" + escapeUserinfo(password)
	}

	// Splice into the original text rather than re-rendering through net/url:
	// rendering can elide a default port, and git requires the explicit
	// notation in some setups. The literal form always wins.
	stripped := stripUserinfoText(rawURL)
	return insertUserinfo(stripped, userinfo), nil
}

// insertUserinfo splices an already-escaped userinfo component after the
// scheme separator.
func insertUserinfo(rawURL, userinfo string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 || userinfo == "" {
		return rawURL
	}
	return rawURL[:idx+3] + userinfo + "@" + rawURL[idx+3:]
}

// stripUserinfoText removes any userinfo component textually, leaving the
// rest of the URL byte-identical.
func stripUserinfoText(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	slash := strings.IndexByte(rest, '/')
	authority := rest
	if slash >= 0 {
		authority = rest[:slash]
	}
	at := strings.LastIndexByte(authority, '@')
	if at < 0 {
		return rawURL
	}
	return rawURL[:idx+3] + rest[at+1:]
}

// StripCredentials removes the userinfo component from rawURL. The edit is
// textual so a secret never survives a parse failure and the remainder of the
// URL comes back byte-identical.
func StripCredentials(rawURL string) string {
	return stripUserinfoText(rawURL)
}

// HasUserinfo reports whether rawURL carries a userinfo component.
func HasUserinfo(rawURL string) bool {
	return StripCredentials(rawURL) != rawURL
}

// Authority returns the scheme://host[:port] prefix of rawURL, used to scope
// http config keys for submodule updates.
func Authority(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", agerrors.MalformedURL(rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", agerrors.BadInput("url", "authority requires scheme and host")
	}
	return u.Scheme + "://" + u.Host, nil
}

// SameSchemeAndHost reports whether two URLs share scheme and host. Used to
// decide whether the agent's mutual-TLS material applies to a repository.
func SameSchemeAndHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Hostname(), ub.Hostname())
}

// LFSEndpoint derives the LFS endpoint for a repository URL by string append:
// "/info/lfs" when the path already ends in ".git", ".git/info/lfs" otherwise.
// Mirrors upstream behavior; URLs carrying a query string or fragment come out
// wrong the same way they always have.
func LFSEndpoint(repoURL string) string {
	if strings.HasSuffix(repoURL, ".git") {
		return repoURL + "/info/lfs"
	}
	return repoURL + ".git/info/lfs"
}
