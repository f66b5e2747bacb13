package sync

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/sidkik/configsync/pkg/config"
	"github.com/sidkik/configsync/pkg/errors"
)

// Guard remembers the state of both trees before a run so that the run can be
// checked afterwards. A run may add to the canonical tree and replace files in
// it, but it must never remove anything from it, and it must never touch the
// legacy tree at all.
type Guard struct {
	fs        afero.Fs
	roots     config.Roots
	legacy    TreeSnapshot
	canonical TreeSnapshot
}

// NewGuard snapshots both trees.
func NewGuard(fs afero.Fs, roots config.Roots) (Guard, error) {
	legacy, err := SnapshotTree(fs, roots.Legacy)
	if err != nil {
		return Guard{}, errors.WithContext(err, "snapshot legacy")
	}

	canonical, err := SnapshotTree(fs, roots.Canonical)
	if err != nil {
		return Guard{}, errors.WithContext(err, "snapshot canonical")
	}

	return Guard{fs: fs, roots: roots, legacy: legacy, canonical: canonical}, nil
}

// Check snapshots the trees again, and returns an error describing every
// violation since NewGuard.
func (g Guard) Check() error {
	legacy, err := SnapshotTree(g.fs, g.roots.Legacy)
	if err != nil {
		return errors.WithContext(err, "snapshot legacy")
	}

	canonical, err := SnapshotTree(g.fs, g.roots.Canonical)
	if err != nil {
		return errors.WithContext(err, "snapshot canonical")
	}

	var violations []string
	legacyChanged, legacyRemoved := g.legacy.Diff(legacy)
	for _, path := range legacyChanged {
		violations = append(violations, fmt.Sprintf("legacy %s was modified", path))
	}
	for _, path := range legacyRemoved {
		violations = append(violations, fmt.Sprintf("legacy %s was removed", path))
	}

	_, canonicalRemoved := g.canonical.Diff(canonical)
	for _, path := range canonicalRemoved {
		violations = append(violations, fmt.Sprintf("canonical %s was removed", path))
	}

	if len(violations) == 0 {
		return nil
	}
	return errors.NewFriendlyError("The migration changed data it must never change:\n%s",
		"  "+strings.Join(violations, "\n  "))
}
