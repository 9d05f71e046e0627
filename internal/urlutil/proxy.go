package urlutil

import (
	"net/url"
	"strings"

	"golang.org/x/net/http/httpproxy"
)

// ProxySettings describes the outbound proxy the agent was configured with.
// An empty Address disables proxying entirely.
type ProxySettings struct {
	Address    string   `yaml:"address"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	BypassList []string `yaml:"bypass_list"`
}

// Enabled reports whether a proxy address is configured.
func (p ProxySettings) Enabled() bool { return p.Address != "" }

// IsBypassed reports whether rawURL matches the bypass list. Matching follows
// NO_PROXY conventions (host suffixes, CIDR ranges, wildcards).
func (p ProxySettings) IsBypassed(rawURL string) bool {
	if !p.Enabled() {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	cfg := httpproxy.Config{
		HTTPProxy:  p.Address,
		HTTPSProxy: p.Address,
		NoProxy:    strings.Join(p.BypassList, ","),
	}
	proxyURL, err := cfg.ProxyFunc()(u)
	if err != nil {
		return false
	}
	return proxyURL == nil
}

// ProxyURL renders the proxy address with embedded credentials for the
// http.proxy config value. Returns empty when the proxy does not apply to
// repoURL. The rendered value must be registered as a secret by the caller
// when credentials are present.
func (p ProxySettings) ProxyURL(repoURL string) (string, error) {
	if !p.Enabled() || p.IsBypassed(repoURL) {
		return "", nil
	}
	if p.Username == "" {
		return p.Address, nil
	}
	return EmbedCredentials(p.Address, p.Username, p.Password)
}
