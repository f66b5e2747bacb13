package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/sidkik/configsync/pkg/errors"
)

const (
	// DefaultCanonicalDir is where the application keeps its configuration
	// when nothing overrides it.
	DefaultCanonicalDir = "~/.atelier"

	// DefaultLegacyDir is the configuration directory written by releases
	// that predate the rename. It lives next to the canonical directory.
	DefaultLegacyDir = "~/.atelier-desktop"

	// CanonicalDirEnvKey is the environment variable that overrides the
	// canonical configuration directory.
	CanonicalDirEnvKey = "CONFIGSYNC_CANONICAL_DIR"

	logFileName = "configsync/configsync.log"
)

// Mocked out for unit testing.
var (
	getenv     = os.Getenv
	xdgLogFile = xdg.StateFile
)

// Roots are the two configuration trees that get reconciled.
type Roots struct {
	// Legacy is the old configuration root. It is only ever read.
	Legacy string

	// Canonical is the current configuration root, and the only tree that
	// is ever written to.
	Canonical string
}

// ResolveRoots decides where the legacy and canonical trees live.
// Non-empty fields in `overrides` take precedence over everything else. The
// canonical root then falls back to the environment, the user config, and
// finally the default. The legacy root falls back to the user config and the
// default.
func ResolveRoots(user User, overrides Roots) (Roots, error) {
	canonical := firstNonEmpty(overrides.Canonical, getenv(CanonicalDirEnvKey),
		user.CanonicalDir, DefaultCanonicalDir)
	legacy := firstNonEmpty(overrides.Legacy, user.LegacyDir, DefaultLegacyDir)

	var roots Roots
	var err error
	if roots.Canonical, err = expandAbs(canonical); err != nil {
		return Roots{}, errors.WithContext(err, "resolve canonical root")
	}
	if roots.Legacy, err = expandAbs(legacy); err != nil {
		return Roots{}, errors.WithContext(err, "resolve legacy root")
	}

	if err := roots.Validate(); err != nil {
		return Roots{}, err
	}
	return roots, nil
}

// Validate checks that the roots are distinct, non-overlapping trees.
func (r Roots) Validate() error {
	if r.Legacy == "" || r.Canonical == "" {
		return errors.NewFriendlyError("Both the legacy and canonical " +
			"configuration directories must be set.")
	}

	if within(r.Legacy, r.Canonical) || within(r.Canonical, r.Legacy) {
		return errors.NewFriendlyError("The legacy configuration directory "+
			"(%s) and the canonical configuration directory (%s) overlap.\n"+
			"They must be two separate directories.", r.Legacy, r.Canonical)
	}
	return nil
}

// LogFilePath returns the path of the file that sync runs append their log
// lines to. Its parent directory is created if necessary.
func LogFilePath() (string, error) {
	path, err := xdgLogFile(logFileName)
	if err != nil {
		return "", errors.WithContext(err, "locate state directory")
	}
	return path, nil
}

func expandAbs(path string) (string, error) {
	expanded, err := homedirExpand(path)
	if err != nil {
		return "", errors.WithContext(err, "expand homedir")
	}
	return filepath.Abs(expanded)
}

// within returns whether `path` is `dir` or a descendant of it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
