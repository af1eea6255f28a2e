package stationstats

import (
	"fmt"

	"golang.org/x/mod/semver"
)

const Version = "v0.3.0"

// IsCompatibleVersion checks if a config file version is compatible with this build.
// Compatibility rules:
// - Major version must match exactly.
// - Minor and patch versions can differ.
func IsCompatibleVersion(configVersion, buildVersion string) (bool, error) {
	if !semver.IsValid(configVersion) {
		return false, fmt.Errorf("invalid config version: %s", configVersion)
	}
	if !semver.IsValid(buildVersion) {
		return false, fmt.Errorf("invalid build version: %s", buildVersion)
	}

	return semver.Major(configVersion) == semver.Major(buildVersion), nil
}

// CheckVersion returns ErrIncompatibleVersion when configVersion cannot be
// used with this build. An empty version is accepted.
func CheckVersion(configVersion string) error {
	if configVersion == "" {
		return nil
	}

	ok, err := IsCompatibleVersion(configVersion, Version)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
	}
	if !ok {
		return fmt.Errorf("%w: config version %s, build %s (required %s.x.x)",
			ErrIncompatibleVersion, configVersion, Version, semver.Major(Version))
	}

	return nil
}
