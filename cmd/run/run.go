package run

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/configsync/cmd/util"
	"github.com/sidkik/configsync/pkg/config"
	"github.com/sidkik/configsync/pkg/errors"
	"github.com/sidkik/configsync/pkg/fswatch"
	"github.com/sidkik/configsync/pkg/sync"
)

// settleTime is how long watch mode waits after a change in the legacy tree
// before syncing, so that a burst of writes is picked up by one run.
const settleTime = 500 * time.Millisecond

// Mocked out for unit testing.
var (
	syncFs        afero.Fs  = afero.NewOsFs()
	clock                   = clockwork.NewRealClock()
	watch                   = fswatch.Watch
	logFilePath             = config.LogFilePath
	resolveConfig           = util.ResolveConfig
	stdout        io.Writer = os.Stdout
)

type runCmd struct {
	roots     util.RootFlags
	workers   int
	dryRun    bool
	watch     bool
	verify    bool
	noLogFile bool
}

// New creates a new `run` command.
func New() *cobra.Command {
	var cmd runCmd
	cobraCmd := &cobra.Command{
		Use:   "run",
		Short: "Merge the legacy configuration directory into the current one",
		Long: "Copy configuration from the directory used by releases before the\n" +
			"rename into the current configuration directory.\n\n" +
			"Nothing is ever deleted. Files that exist in both directories are\n" +
			"only replaced if the legacy copy is newer (or, for event logs,\n" +
			"larger). Running it again is safe and does nothing if the\n" +
			"directories are already in sync.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := cmd.run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	flags := cobraCmd.Flags()
	flags.StringVar(&cmd.roots.Legacy, "legacy", "", "The legacy configuration directory")
	flags.StringVar(&cmd.roots.Canonical, "canonical", "", "The current configuration directory")
	flags.IntVar(&cmd.workers, "workers", 0, "The number of units to merge concurrently")
	flags.BoolVar(&cmd.dryRun, "dry-run", false, "Report what would change without writing anything")
	flags.BoolVar(&cmd.watch, "watch", false, "Keep running, and merge again whenever the legacy directory changes")
	flags.BoolVar(&cmd.verify, "verify", false,
		"Check after every run that the legacy directory is untouched and nothing was removed from the current one")
	flags.BoolVar(&cmd.noLogFile, "no-log-file", false, "Only log to stderr")
	return cobraCmd
}

func (cmd runCmd) run() error {
	user, roots, err := resolveConfig(cmd.roots)
	if err != nil {
		return err
	}

	if !cmd.noLogFile {
		closeLog, err := teeLogToFile()
		if err != nil {
			log.WithError(err).Warn("Failed to open log file. Only logging to stderr.")
		} else {
			defer closeLog()
		}
	}

	workers := cmd.workers
	if workers == 0 {
		workers = user.Workers
	}
	if workers < 0 {
		return errors.NewFriendlyError("--workers must be positive, got %d.", workers)
	}

	syncer := sync.New(syncFs, roots, sync.Options{
		Workers: workers,
		DryRun:  cmd.dryRun,
		Clock:   clock,
	})
	if err := cmd.runOnce(syncer, roots); err != nil {
		return err
	}

	if !cmd.watch {
		return nil
	}
	return cmd.watchLegacy(syncer, roots)
}

func (cmd runCmd) runOnce(syncer *sync.Syncer, roots config.Roots) error {
	if !cmd.verify {
		printResult(roots, syncer.Run(), cmd.dryRun)
		return nil
	}

	guard, err := sync.NewGuard(syncFs, roots)
	if err != nil {
		return errors.WithContext(err, "snapshot configuration")
	}
	printResult(roots, syncer.Run(), cmd.dryRun)
	return guard.Check()
}

// watchLegacy runs `syncer` every time the legacy tree changes. It only
// returns if the watch fails, or if a run fails verification.
func (cmd runCmd) watchLegacy(syncer *sync.Syncer, roots config.Roots) error {
	updates, stop, err := watch(roots.Legacy)
	if err != nil {
		return errors.WithContext(err, "watch legacy directory")
	}
	defer stop()

	fmt.Fprintf(stdout, "Watching %s for changes..\n", roots.Legacy)
	for range updates {
		clock.Sleep(settleTime)

		// Drop the event for changes that happened while we were settling,
		// since this run picks them up.
		select {
		case <-updates:
		default:
		}

		if err := cmd.runOnce(syncer, roots); err != nil {
			return err
		}
	}
	return nil
}

func printResult(roots config.Roots, result sync.Result, dryRun bool) {
	verb := "Migrated"
	if dryRun {
		verb = "Would migrate"
	}

	fmt.Fprintf(stdout, "%s %d configuration units from %s to %s.\n",
		verb, result.Changed, roots.Legacy, roots.Canonical)
	if result.Failed > 0 {
		fmt.Fprintf(stdout, "%d units couldn't be migrated. See the log for details.\n",
			result.Failed)
	}
}

func teeLogToFile() (func(), error) {
	path, err := logFilePath()
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.WithContext(err, "open log file")
	}

	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
