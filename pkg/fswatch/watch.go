package fswatch

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/configsync/pkg/errors"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// Watch watches every directory beneath `root` for changes. It sends an event
// on the returned channel whenever something within the tree changes. Bursts
// of changes are combined into a single pending event.
// Directories created after the watch starts are watched as well. The
// returned function stops the watch.
func Watch(root string) (chan struct{}, func() error, error) {
	pathsToWatch, err := getPathsToWatch(root)
	if err != nil {
		return nil, nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	go logErrors(watcher.Errors)

	watchNewDirs := func(path string) {
		watchTree(watcher.Add, path)
	}
	return combineUpdates(watcher.Events, watchNewDirs), watcher.Close, nil
}

// watchTree watches `root` and every directory beneath it, if `root` is a
// directory. A directory that's moved into the watched tree arrives with its
// subdirectories already in place, and fsnotify only reports the top one.
func watchTree(add func(string) error, root string) {
	if isDir, _ := afero.IsDir(fs, root); !isDir {
		return
	}

	paths, err := getPathsToWatch(root)
	if err != nil {
		log.WithError(err).WithField("path", root).Debug("Failed to list new directories")
		return
	}

	for _, path := range paths {
		if err := add(path); err != nil {
			log.WithError(err).WithField("path", path).Debug("Failed to watch new directory")
		}
	}
}

func combineUpdates(updates <-chan fsnotify.Event, onCreate func(string)) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for event := range updates {
			if event.Op&fsnotify.Create == fsnotify.Create && onCreate != nil {
				onCreate(event.Name)
			}

			select {
			case combined <- struct{}{}:
			default:
			}
		}
		close(combined)
	}()
	return combined
}

func logErrors(errs <-chan error) {
	for err := range errs {
		log.WithError(err).Debug("File watcher error")
	}
}

// getPathsToWatch returns `root` and every directory beneath it. fsnotify
// doesn't watch directories recursively, but watching a directory reports
// changes to the files directly inside it.
func getPathsToWatch(root string) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return []string{root}, nil
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if fi.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
