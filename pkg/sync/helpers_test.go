package sync

import (
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/configsync/pkg/config"
)

const (
	legacyRoot    = "/home/me/.atelier-desktop"
	canonicalRoot = "/home/me/.atelier"
)

var (
	testRoots = config.Roots{Legacy: legacyRoot, Canonical: canonicalRoot}

	// baseTime is rounded to the second so that it survives filesystems with
	// coarse timestamps.
	baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	testLog = func() *log.Entry {
		logger, _ := test.NewNullLogger()
		return log.NewEntry(logger)
	}()
)

type mockFile struct {
	path     string
	contents string
	modTime  time.Time
}

func (f mockFile) writeToFs(t *testing.T, fs afero.Fs) {
	modTime := f.modTime
	if modTime.IsZero() {
		modTime = baseTime
	}

	require.NoError(t, fs.MkdirAll(filepath.Dir(f.path), 0755))
	require.NoError(t, afero.WriteFile(fs, f.path, []byte(f.contents), 0644))
	require.NoError(t, fs.Chtimes(f.path, modTime, modTime))
}

func writeFiles(t *testing.T, fs afero.Fs, files ...mockFile) {
	for _, f := range files {
		f.writeToFs(t, fs)
	}
}

func legacyFile(relPath, contents string) mockFile {
	return mockFile{path: filepath.Join(legacyRoot, relPath), contents: contents}
}

func canonicalFile(relPath, contents string) mockFile {
	return mockFile{path: filepath.Join(canonicalRoot, relPath), contents: contents}
}

func (f mockFile) at(modTime time.Time) mockFile {
	f.modTime = modTime
	return f
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	contents, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(contents)
}

func snapshot(t *testing.T, fs afero.Fs, root string) TreeSnapshot {
	snap, err := SnapshotTree(fs, root)
	require.NoError(t, err)
	return snap
}

func newTestSyncer(fs afero.Fs, opts Options) (*Syncer, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	opts.Logger = logger
	return New(fs, testRoots, opts), hook
}
