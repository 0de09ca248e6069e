package config

import (
	"fmt"
	"strings"

	"github.com/tinyrange/dfsum/internal/version"
	"golang.org/x/mod/semver"
)

// CheckVersion fails if the running dfsum is older than minVersion. An
// empty minVersion always passes, as do development builds.
func CheckVersion(minVersion string) error {
	return checkVersion(minVersion, version.Version)
}

func checkVersion(minVersion, current string) error {
	if minVersion == "" {
		return nil
	}

	required := canonical(minVersion)
	if !semver.IsValid(required) {
		return &Error{Field: "minVersion", Err: fmt.Errorf("%q is not a semantic version", minVersion)}
	}

	current = canonical(current)
	if current == "vdev" || current == "v0.0.0" || !semver.IsValid(current) {
		return nil
	}

	if semver.Compare(current, required) < 0 {
		return &Error{Field: "minVersion", Err: fmt.Errorf("%w: have %s, need %s", ErrVersionTooOld, current, required)}
	}
	return nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
