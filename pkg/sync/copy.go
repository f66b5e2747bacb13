package sync

import (
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/configsync/pkg/errors"
)

// stagingInfix is part of the name of every temporary path created in the
// canonical tree, so that leftovers from a killed process are recognizable.
const stagingInfix = ".configsync-"

// copyTree copies the file or directory at `src` to `dst`. Nothing is visible
// at `dst` until the copy is complete: files are written to a temporary file
// and renamed into place, and directories are assembled in a temporary
// sibling directory that is renamed into place.
// Symlinks are followed. Links that dangle or that lead back to a directory
// being copied are skipped with a warning.
// Modes and file modification times are preserved.
func copyTree(fs afero.Fs, logger *log.Entry, src, dst string) error {
	fi, err := fs.Stat(src)
	if err != nil {
		return errors.WithContext(err, "stat source")
	}

	if err := ensureParent(fs, dst); err != nil {
		return err
	}

	if !fi.IsDir() {
		return copyFile(fs, logger, src, dst)
	}

	staging, err := afero.TempDir(fs, filepath.Dir(dst), stagingName(dst))
	if err != nil {
		return errors.WithContext(err, "create staging dir")
	}

	if err := copyDirContents(fs, logger, src, staging, []os.FileInfo{fi}); err != nil {
		removeStaging(fs, logger, staging)
		return errors.WithContext(err, "copy into staging dir")
	}

	// Another process may have created the destination while we were
	// copying. Never replace it.
	exists, err := afero.Exists(fs, dst)
	if err != nil || exists {
		removeStaging(fs, logger, staging)
		if err != nil {
			return errors.WithContext(err, "check destination")
		}
		return errors.ErrStagingConflict
	}

	if err := fs.Rename(staging, dst); err != nil {
		removeStaging(fs, logger, staging)
		return errors.WithContext(err, "move staging dir into place")
	}
	return nil
}

// copyDirContents recursively copies the entries of `src` into the existing
// directory `dst`, then gives `dst` the mode of `src`. The mode is applied
// last so that read-only directories can still be filled. `parents` holds
// `src` and the directories above it, innermost last.
func copyDirContents(fs afero.Fs, logger *log.Entry, src, dst string, parents []os.FileInfo) error {
	names, err := listEntries(fs, src)
	if err != nil {
		return err
	}

	for _, name := range names {
		srcPath := filepath.Join(src, name)
		dstPath := filepath.Join(dst, name)

		// Stat rather than trust the directory listing, which describes
		// symlinks rather than their targets.
		fi, err := fs.Stat(srcPath)
		if err != nil {
			if os.IsNotExist(err) {
				logger.WithField("path", srcPath).Warn(
					"Skipping symlink to a path that doesn't exist")
				continue
			}
			return errors.WithContext(err, "stat")
		}

		if !fi.IsDir() {
			if err := writeCopy(fs, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if isAncestor(fi, parents) {
			logger.WithField("path", srcPath).Warn(
				"Skipping symlink to a directory that contains it")
			continue
		}

		if err := fs.Mkdir(dstPath, 0700); err != nil {
			return errors.WithContext(err, "make dir")
		}
		if err := copyDirContents(fs, logger, srcPath, dstPath, append(parents, fi)); err != nil {
			return err
		}
	}

	if err := fs.Chmod(dst, parents[len(parents)-1].Mode().Perm()); err != nil {
		return errors.WithContext(err, "set dir mode")
	}
	return nil
}

// isAncestor returns whether `dir` is one of `parents`. Filesystems that don't
// expose file identity, such as afero.MemMapFs, have no symlinks, so they
// never report a match.
func isAncestor(dir os.FileInfo, parents []os.FileInfo) bool {
	for _, parent := range parents {
		if os.SameFile(dir, parent) {
			return true
		}
	}
	return false
}

// copyFile replaces `dst` with a copy of `src` by writing a temporary file
// next to `dst` and renaming it into place.
func copyFile(fs afero.Fs, logger *log.Entry, src, dst string) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(dst), stagingName(dst))
	if err != nil {
		return errors.WithContext(err, "create temp file")
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		removeStaging(fs, logger, tmpPath)
		return errors.WithContext(err, "close temp file")
	}

	if err := writeCopy(fs, src, tmpPath); err != nil {
		removeStaging(fs, logger, tmpPath)
		return err
	}

	if err := fs.Rename(tmpPath, dst); err != nil {
		removeStaging(fs, logger, tmpPath)
		return errors.WithContext(err, "move temp file into place")
	}
	return nil
}

// writeCopy writes the contents, mode and modification time of `src` to
// `dst`, creating or truncating `dst`.
func writeCopy(fs afero.Fs, src, dst string) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return errors.WithContext(err, "stat")
	}

	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.WithContext(err, "copy")
	}

	if err := dstFile.Close(); err != nil {
		return errors.WithContext(err, "close destination")
	}

	if err := fs.Chmod(dst, fileInfo.Mode().Perm()); err != nil {
		return errors.WithContext(err, "set file mode")
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := fs.Chtimes(dst, time.Now(), fileInfo.ModTime()); err != nil {
		return errors.WithContext(err, "set file modtime")
	}
	return nil
}

func ensureParent(fs afero.Fs, dst string) error {
	dstParent := filepath.Dir(dst)
	dstParentExists, err := afero.DirExists(fs, dstParent)
	if err != nil {
		return errors.WithContext(err, "check if parent exists")
	}

	if !dstParentExists {
		if err := fs.MkdirAll(dstParent, 0755); err != nil {
			return errors.WithContext(err, "make parent")
		}
	}
	return nil
}

func stagingName(dst string) string {
	return "." + filepath.Base(dst) + stagingInfix
}

func removeStaging(fs afero.Fs, logger *log.Entry, path string) {
	if err := fs.RemoveAll(path); err != nil {
		logger.WithError(err).WithField("path", path).Warn(
			"Failed to clean up staged copy. It can be removed by hand.")
	}
}
