package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRemoteRef(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"", "refs/remotes/origin/master"},
		{"master", "refs/remotes/origin/master"},
		{"refs/heads/main", "refs/remotes/origin/main"},
		{"refs/heads/feature/x", "refs/remotes/origin/feature/x"},
		{"refs/pull/7/merge", "refs/remotes/pull/7/merge"},
		{"refs/tags/v1.0", "refs/tags/v1.0"},
		{"develop", "develop"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, ToRemoteRef(tc.in), "input %q", tc.in)
	}
}

// Applying the mapping twice must equal applying it once.
func TestToRemoteRefIdempotent(t *testing.T) {
	inputs := []string{"", "master", "refs/heads/main", "refs/pull/7/merge", "refs/tags/v1", "develop"}
	for _, in := range inputs {
		once := ToRemoteRef(in)
		assert.Equal(t, once, ToRemoteRef(once), "input %q", in)
	}
}

func TestIsPullRequestRef(t *testing.T) {
	assert.True(t, IsPullRequestRef("refs/pull/7/merge"))
	assert.True(t, IsPullRequestRef("refs/remotes/pull/7/merge"))
	assert.False(t, IsPullRequestRef("refs/heads/main"))
	assert.False(t, IsPullRequestRef("main"))
}

func TestPullRequestRefspecs(t *testing.T) {
	specs := pullRequestRefspecs("refs/pull/7/merge")
	assert.Equal(t, []string{
		"+refs/heads/*:refs/remotes/origin/*",
		"+refs/pull/7/merge:refs/remotes/pull/7/merge",
	}, specs)
}
