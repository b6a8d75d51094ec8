package version // import "github.com/Xunop/e-oasis-mcp/internal/version"

import (
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the current application version. Schema migrations are tagged
// with the version that introduced them.
var Version = "0.4.0"

func GetCurrentVersion() string {
	return Version
}

// Canonical returns v in the "vMAJOR.MINOR.PATCH" form expected by semver.
func Canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// IsVersionGreaterThan reports whether v is strictly newer than w.
func IsVersionGreaterThan(v, w string) bool {
	return semver.Compare(Canonical(v), Canonical(w)) > 0
}

// SortVersion sorts versions in place from oldest to newest.
func SortVersion(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		return semver.Compare(Canonical(a), Canonical(b))
	})
}
