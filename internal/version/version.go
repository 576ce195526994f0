// Package version holds the proxy's own build version, compared with
// blang/semver against whatever a client or control-socket caller
// reports.
package version

import "github.com/blang/semver"

// Current is the proxy's build version. Bumped at release time.
var Current = semver.MustParse("0.1.0")

// Compatible reports whether peer, a version string reported by a
// client or control-socket caller, is compatible with this build: same
// major and minor version, since under semver a pre-1.0 minor bump may
// break the contract.
func Compatible(peer string) bool {
	v, err := semver.Parse(peer)
	if err != nil {
		return false
	}
	return v.Major == Current.Major && v.Minor == Current.Minor
}
