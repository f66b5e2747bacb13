package sync

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sidkik/configsync/pkg/errors"
)

// ListWorkspaces returns the slugs of the workspaces in the legacy tree, in
// lexical order. Entries of the collection that aren't directories, or
// symlinks to directories, are ignored. A tree without a workspaces
// collection has no workspaces.
func ListWorkspaces(fs afero.Fs, legacyRoot string) ([]string, error) {
	collection := filepath.Join(legacyRoot, WorkspacesDir)
	entries, err := afero.ReadDir(fs, collection)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithContext(err, "read workspaces")
	}

	var slugs []string
	for _, entry := range entries {
		isDir := entry.IsDir()
		if entry.Mode()&os.ModeSymlink != 0 {
			// Dangling links aren't workspaces.
			isDir, _ = afero.IsDir(fs, filepath.Join(collection, entry.Name()))
		}

		if isDir {
			slugs = append(slugs, entry.Name())
		}
	}
	return slugs, nil
}

// listEntries returns the names of the entries directly inside `dir`.
func listEntries(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.WithContext(err, "read dir")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}
