package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/configsync/pkg/errors"
)

// Attributes is what a Policy knows about one side of a unit.
type Attributes struct {
	Exists  bool
	IsDir   bool
	Size    int64
	ModTime time.Time
}

func (a Attributes) kind() string {
	switch {
	case !a.Exists:
		return "absent"
	case a.IsDir:
		return "a directory"
	default:
		return "a file"
	}
}

// statAttributes stats `path`. A path that doesn't exist isn't an error, it
// just has `Exists` unset.
func statAttributes(fs afero.Fs, path string) (Attributes, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Attributes{}, nil
		}
		return Attributes{}, errors.WithContext(err, "stat")
	}

	return Attributes{
		Exists:  true,
		IsDir:   fi.IsDir(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, nil
}

// FileAttributes contains some metadata used to compare whether two files are
// equal.
type FileAttributes struct {
	// ContentsHash is the sha512 hash of the contents of the file.
	ContentsHash string

	// Mode is the file mode of the file.
	Mode os.FileMode

	// ModTime is the time of the last file modification.
	ModTime time.Time
}

// Equal returns whether two files have the same contents and metadata.
func (f FileAttributes) Equal(otherFile FileAttributes) bool {
	return f.ContentsHash == otherFile.ContentsHash &&
		f.Mode == otherFile.Mode &&
		f.ModTime.Equal(otherFile.ModTime)
}

// TreeSnapshot maps slash-separated paths relative to a root to the
// attributes of the files beneath it. Directories are keyed too, with an
// empty hash, so that empty directories are part of the snapshot.
type TreeSnapshot map[string]FileAttributes

// SnapshotTree records every path beneath `root`. A missing root yields an
// empty snapshot. Symlinks are recorded as their targets, except that linked
// directories aren't descended into, and dangling links are recorded by mode
// alone.
func SnapshotTree(fs afero.Fs, root string) (TreeSnapshot, error) {
	snapshot := TreeSnapshot{}
	exists, err := afero.Exists(fs, root)
	if err != nil {
		return nil, errors.WithContext(err, "check root")
	}
	if !exists {
		return snapshot, nil
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithContext(err, "relative path")
		}
		relPath = filepath.ToSlash(relPath)

		// Walk describes symlinks rather than their targets, and doesn't
		// descend into linked directories.
		if fi.Mode()&os.ModeSymlink != 0 {
			target, err := fs.Stat(path)
			if err != nil {
				if os.IsNotExist(err) {
					snapshot[relPath] = FileAttributes{Mode: fi.Mode()}
					return nil
				}
				return errors.WithContext(err, "stat symlink target")
			}
			fi = target
		}

		if fi.IsDir() {
			snapshot[relPath] = FileAttributes{Mode: fi.Mode()}
			return nil
		}

		contentsHash, err := HashFile(fs, path)
		if err != nil {
			return err
		}
		snapshot[relPath] = FileAttributes{
			ContentsHash: contentsHash,
			Mode:         fi.Mode(),
			ModTime:      fi.ModTime(),
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "walk")
	}
	return snapshot, nil
}

// HashFile returns the sha512 hash of the file at the given path.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// Diff returns the paths whose attributes differ between the two snapshots,
// and the paths that are in `snapshot` but missing from `after`.
func (snapshot TreeSnapshot) Diff(after TreeSnapshot) (changed, removed []string) {
	for path, exp := range snapshot {
		curr, ok := after[path]
		if !ok {
			removed = append(removed, path)
		} else if !curr.Equal(exp) {
			changed = append(changed, path)
		}
	}

	sort.Strings(changed)
	sort.Strings(removed)
	return
}
