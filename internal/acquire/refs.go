package acquire

import "strings"

// IsPullRequestRef reports whether branch is a server-synthesized
// pull-request ref.
func IsPullRequestRef(branch string) bool {
	return strings.HasPrefix(branch, "refs/pull/") ||
		strings.HasPrefix(branch, "refs/remotes/pull/")
}

// ToRemoteRef maps a requested branch to the remote-tracking ref to check
// out. Idempotent: mapping an already-mapped ref returns it unchanged.
func ToRemoteRef(branch string) string {
	switch {
	case branch == "" || branch == "master":
		return "refs/remotes/origin/master"
	case strings.HasPrefix(branch, "refs/heads/"):
		return "refs/remotes/origin/" + strings.TrimPrefix(branch, "refs/heads/")
	case strings.HasPrefix(branch, "refs/pull/"):
		return "refs/remotes/pull/" + strings.TrimPrefix(branch, "refs/pull/")
	default:
		return branch
	}
}

// pullRequestRefspecs returns the explicit refspecs a pull-request fetch
// needs: all heads plus the synthesized ref itself.
func pullRequestRefspecs(branch string) []string {
	return []string{
		"+refs/heads/*:refs/remotes/origin/*",
		"+" + branch + ":" + ToRemoteRef(branch),
	}
}
