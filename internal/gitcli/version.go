package gitcli

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is a parsed git or git-lfs version number.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Feature minimums. On-prem central hosts hard-require the auth header
// minimum; everything else degrades to URL embedding below it.
var (
	// MinAuthHeaderVersion supports http.extraheader on the command line.
	MinAuthHeaderVersion = Version{Major: 2, Minor: 9}
	// MinSchannelVersion supports overriding http.sslbackend on Windows.
	MinSchannelVersion = Version{Major: 2, Minor: 14, Patch: 2}
	// MinLFSAuthHeaderVersion is the first git-lfs honoring http.extraheader.
	MinLFSAuthHeaderVersion = Version{Major: 2, Minor: 1}
)

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether v >= min.
func (v Version) AtLeast(min Version) bool {
	if v.Major != min.Major {
		return v.Major > min.Major
	}
	if v.Minor != min.Minor {
		return v.Minor > min.Minor
	}
	return v.Patch >= min.Patch
}

// versionPattern tolerates suffixes like "2.39.2.windows.1" and "git-lfs/2.13.3".
var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the first X.Y[.Z] group from probe output.
// Expected formats:
//
//	git version 2.39.2
//	git version 2.39.2.windows.1
//	git-lfs/2.13.3 (GitHub; linux amd64; go 1.19)
func ParseVersion(output string) (Version, bool) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return Version{}, false
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return Version{Major: major, Minor: minor, Patch: patch}, true
}
