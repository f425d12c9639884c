package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
)

// CheckStrategyCompatibility reports whether a strategy built against the
// given API version can run on this engine.
//
// Rules:
//   - "main" on either side is a development build; the check is skipped
//   - major and minor versions must match exactly
//   - patch versions may differ
func CheckStrategyCompatibility(engineVersion, strategyVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	strategyVersion = strings.TrimPrefix(strategyVersion, "v")

	if engineVersion == "main" || strategyVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version %q", engineVersion)
	}

	strategySemver, err := semver.NewVersion(strategyVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid strategy version %q", strategyVersion)
	}

	if engineSemver.Major() != strategySemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: engine is %d.x.x but strategy requires %d.x.x",
			engineSemver.Major(), strategySemver.Major())
	}

	if engineSemver.Minor() != strategySemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: engine is %d.%d.x but strategy requires %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			strategySemver.Major(), strategySemver.Minor())
	}

	return nil
}
