package provider

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/gitcli"
)

func TestForTypeDefaultsToExternal(t *testing.T) {
	p := ForType(RepositoryType("unknown"))
	assert.Equal(t, External, p.Type)
	assert.False(t, p.UseAuthHeader)
}

func TestSupportsAuthHeaderByVersion(t *testing.T) {
	gh := ForType(GitHub)
	assert.True(t, gh.SupportsAuthHeader(gitcli.Version{Major: 2, Minor: 9}))
	assert.True(t, gh.SupportsAuthHeader(gitcli.Version{Major: 2, Minor: 20}))
	// one minor release below the minimum
	assert.False(t, gh.SupportsAuthHeader(gitcli.Version{Major: 2, Minor: 8, Patch: 4}))

	ext := ForType(External)
	assert.False(t, ext.SupportsAuthHeader(gitcli.Version{Major: 2, Minor: 40}))
}

func TestSupportsLFSAuthHeader(t *testing.T) {
	gh := ForType(GitHub)
	assert.True(t, gh.SupportsLFSAuthHeader(gitcli.Version{Major: 2, Minor: 1}))
	assert.False(t, gh.SupportsLFSAuthHeader(gitcli.Version{Major: 2, Minor: 0, Patch: 9}))
}

func TestOnPremIsStrict(t *testing.T) {
	p := ForType(CentralOnPrem)
	require.NotNil(t, p.StrictMinimum)
	assert.Equal(t, gitcli.MinAuthHeaderVersion, *p.StrictMinimum)
	assert.True(t, p.BearerHeader)

	// exactly at the minimum passes; one minor below fails hard
	assert.NoError(t, p.CheckRequirement(gitcli.Version{Major: 2, Minor: 9}))
	err := p.CheckRequirement(gitcli.Version{Major: 2, Minor: 8})
	require.Error(t, err)
	assert.Equal(t, agerrors.CategoryRequirement, agerrors.CategoryOf(err))

	// non-strict providers never fail the requirement check
	assert.NoError(t, ForType(GitHub).CheckRequirement(gitcli.Version{Major: 1, Minor: 0}))
}

func TestGenerateBasicHeader(t *testing.T) {
	p := ForType(GitHub)
	header, secret, err := p.GenerateAuthHeader(Basic("x", "tok"))
	require.NoError(t, err)
	expected := base64.StdEncoding.EncodeToString([]byte("x:tok"))
	assert.Equal(t, "basic "+expected, header)
	assert.Equal(t, expected, secret)
}

func TestGenerateOAuthHeaderUsesLiteralUsername(t *testing.T) {
	p := ForType(CentralHosted)
	header, _, err := p.GenerateAuthHeader(OAuth("access-token"))
	require.NoError(t, err)
	expected := base64.StdEncoding.EncodeToString([]byte("OAuth:access-token"))
	assert.Equal(t, "basic "+expected, header)
}

func TestGenerateBearerHeaderOnPrem(t *testing.T) {
	p := ForType(CentralOnPrem)
	header, secret, err := p.GenerateAuthHeader(Bearer("jwt-token"))
	require.NoError(t, err)
	assert.Equal(t, "bearer jwt-token", header)
	assert.Equal(t, "jwt-token", secret)
}

func TestGenerateHeaderExternalUnsupported(t *testing.T) {
	p := ForType(External)
	_, _, err := p.GenerateAuthHeader(Basic("u", "p"))
	require.Error(t, err)
	assert.Equal(t, agerrors.CategoryAuth, agerrors.CategoryOf(err))
}

func TestBasicPair(t *testing.T) {
	u, pw := Basic("user", "pass").BasicPair()
	assert.Equal(t, "user", u)
	assert.Equal(t, "pass", pw)

	u, pw = OAuth("tok").BasicPair()
	assert.Equal(t, "OAuth", u)
	assert.Equal(t, "tok", pw)

	u, pw = Bearer("jwt").BasicPair()
	assert.Equal(t, "OAuth", u)
	assert.Equal(t, "jwt", pw)

	u, pw = None.BasicPair()
	assert.Empty(t, u)
	assert.Empty(t, pw)
}
