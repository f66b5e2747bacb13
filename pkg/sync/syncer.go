package sync

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/sidkik/configsync/pkg/config"
	"github.com/sidkik/configsync/pkg/errors"
)

// component tags every log line written by the synchronizer.
const component = "config-sync"

// Options tune a Syncer. The zero value runs sequentially, writes changes,
// and logs to the standard logrus logger.
type Options struct {
	// Workers is the number of units that may be reconciled at once.
	Workers int

	// DryRun evaluates every unit without writing anything.
	DryRun bool

	Logger *log.Logger
	Clock  clockwork.Clock
}

// Outcome is the result of evaluating one unit.
type Outcome struct {
	Unit      Unit
	Legacy    Attributes
	Canonical Attributes
	Decision  Decision

	// Changed is set if the unit changed the canonical tree, or would have
	// during a dry run.
	Changed bool
	Err     error
}

// Result summarizes a run.
type Result struct {
	// Changed is the number of units that changed the canonical tree.
	Changed  int
	Failed   int
	Outcomes []Outcome
	Elapsed  time.Duration
}

// ChangedPaths returns the paths of the units that changed the canonical tree.
func (r Result) ChangedPaths() (paths []string) {
	for _, o := range r.Outcomes {
		if o.Changed {
			paths = append(paths, o.Unit.Path)
		}
	}
	return paths
}

// Syncer merges a legacy configuration tree into the canonical tree.
type Syncer struct {
	fs      afero.Fs
	roots   config.Roots
	workers int
	dryRun  bool
	log     *log.Entry
	clock   clockwork.Clock
	locks   *pathLocks

	outcomesLock sync.Mutex
	outcomes     []Outcome
}

// Run merges `roots.Legacy` into `roots.Canonical` on the local filesystem and
// returns the number of units that changed. It never fails: problems with
// individual units are logged and skipped.
func Run(roots config.Roots) int {
	return New(afero.NewOsFs(), roots, Options{}).Run().Changed
}

// New creates a Syncer that reads and writes through `fs`.
func New(fs afero.Fs, roots config.Roots, opts Options) *Syncer {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Syncer{
		fs:      fs,
		roots:   roots,
		workers: workers,
		dryRun:  opts.DryRun,
		log:     logger.WithField("component", component),
		clock:   clock,
		locks:   newPathLocks(),
	}
}

// Run reconciles every unit once. Each call observes the trees afresh, so a
// Syncer can be run repeatedly.
func (s *Syncer) Run() Result {
	start := s.clock.Now()
	s.outcomesLock.Lock()
	s.outcomes = nil
	s.outcomesLock.Unlock()

	legacy, err := statAttributes(s.fs, s.roots.Legacy)
	if err != nil {
		s.log.WithError(err).WithField("path", s.roots.Legacy).Warn(
			"Failed to check for the legacy configuration directory. Skipping migration.")
		return Result{}
	}

	if !legacy.Exists || !legacy.IsDir {
		s.log.WithField("path", s.roots.Legacy).Debug(
			"No legacy configuration directory. Nothing to migrate.")
		return Result{}
	}

	if !s.dryRun {
		if err := s.fs.MkdirAll(s.roots.Canonical, 0755); err != nil {
			s.log.WithError(err).WithField("path", s.roots.Canonical).Warn(
				"Failed to create the configuration directory. Skipping migration.")
			return Result{}
		}
	}

	var group errgroup.Group
	group.SetLimit(s.workers)
	for _, unit := range TopLevelPlan() {
		unit := unit
		group.Go(func() error {
			s.syncUnit(unit)
			return nil
		})
	}

	slugs, err := ListWorkspaces(s.fs, s.roots.Legacy)
	if err != nil {
		s.log.WithError(err).Warn("Failed to list legacy workspaces. Skipping them.")
	}
	for _, slug := range slugs {
		slug := slug
		group.Go(func() error {
			s.syncWorkspace(slug)
			return nil
		})
	}
	_ = group.Wait()

	result := s.result(s.clock.Now().Sub(start))
	s.logResult(result)
	return result
}

// syncWorkspace copies the workspace if the canonical tree doesn't have it,
// and otherwise reconciles each of its parts on its own.
func (s *Syncer) syncWorkspace(slug string) {
	outcome := s.apply(WorkspaceUnit(slug))
	if outcome.Err != nil || outcome.Decision.Action != ActionSkip || !outcome.Legacy.Exists {
		return
	}

	if !outcome.Canonical.IsDir {
		s.log.WithFields(log.Fields{
			"path":   outcome.Unit.Path,
			"reason": kindMismatch(outcome.Legacy, outcome.Canonical).Reason,
		}).Warn("Canonical workspace isn't a directory. Skipping it.")
		return
	}

	for _, unit := range WorkspacePlan(slug) {
		s.syncUnit(unit)
	}
}

// syncUnit applies `unit`, descending into the entries of directories that
// exist in both trees.
func (s *Syncer) syncUnit(unit Unit) {
	outcome := s.apply(unit)
	if outcome.Decision.Action != ActionMergeEntries {
		return
	}

	names, err := listEntries(s.fs, s.legacyPath(unit.Path))
	if err != nil {
		s.record(Outcome{Unit: unit, Err: errors.WithContext(err, "list entries")})
		return
	}

	for _, name := range names {
		s.apply(Unit{Path: path.Join(unit.Path, name), Policy: CopyIfAbsent})
	}
}

// apply evaluates `unit` and carries out the decision. Errors are recorded in
// the returned Outcome rather than returned.
func (s *Syncer) apply(unit Unit) Outcome {
	release := s.locks.acquire(unit.Path)
	defer release()

	legacyPath, canonicalPath := s.legacyPath(unit.Path), s.canonicalPath(unit.Path)

	legacy, err := statAttributes(s.fs, legacyPath)
	if err != nil {
		return s.record(Outcome{Unit: unit, Err: errors.WithContext(err, "legacy")})
	}

	canonical, err := statAttributes(s.fs, canonicalPath)
	if err != nil {
		return s.record(Outcome{Unit: unit, Legacy: legacy,
			Err: errors.WithContext(err, "canonical")})
	}

	outcome := Outcome{
		Unit:      unit,
		Legacy:    legacy,
		Canonical: canonical,
		Decision:  Decide(unit.Policy, legacy, canonical),
	}
	if outcome.Decision.Action.Writes() {
		if !s.dryRun {
			outcome.Err = copyTree(s.fs, s.log, legacyPath, canonicalPath)
		}
		outcome.Changed = outcome.Err == nil
	}
	return s.record(outcome)
}

func (s *Syncer) record(outcome Outcome) Outcome {
	s.logOutcome(outcome)

	s.outcomesLock.Lock()
	defer s.outcomesLock.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return outcome
}

func (s *Syncer) logOutcome(outcome Outcome) {
	entry := s.log.WithFields(log.Fields{
		"path":   outcome.Unit.Path,
		"policy": outcome.Unit.Policy.String(),
	})

	if outcome.Err != nil {
		entry.WithError(outcome.Err).Warn(
			"Failed to migrate legacy configuration. Leaving it as is.")
		return
	}

	entry = entry.WithField("reason", outcome.Decision.Reason)
	switch action := outcome.Decision.Action; {
	case action.Writes() && s.dryRun:
		entry.Info(fmt.Sprintf("Would %s legacy configuration", action))
	case action == ActionCopy:
		entry.Info("Copied legacy configuration")
	case action == ActionOverwrite:
		entry.Info("Replaced configuration with newer legacy copy")
	case isKindMismatch(outcome.Decision):
		entry.Warn("Legacy and canonical configuration have different types. Skipping.")
	default:
		entry.Debug(fmt.Sprintf("Decided to %s", action))
	}
}

func (s *Syncer) result(elapsed time.Duration) Result {
	s.outcomesLock.Lock()
	defer s.outcomesLock.Unlock()

	outcomes := append([]Outcome(nil), s.outcomes...)
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Unit.Path < outcomes[j].Unit.Path
	})

	result := Result{Outcomes: outcomes, Elapsed: elapsed}
	for _, o := range outcomes {
		if o.Changed {
			result.Changed++
		}
		if o.Err != nil {
			result.Failed++
		}
	}
	return result
}

func (s *Syncer) logResult(result Result) {
	fields := log.Fields{
		"changed": result.Changed,
		"failed":  result.Failed,
		"elapsed": result.Elapsed,
		"legacy":  s.roots.Legacy,
	}
	if result.Changed == 0 && result.Failed == 0 {
		s.log.WithFields(fields).Debug("Configuration already in sync with legacy directory")
		return
	}

	fields["paths"] = truncateSlice(result.ChangedPaths(), 5)
	msg := "Migrated legacy configuration"
	if s.dryRun {
		msg = "Dry run of legacy configuration migration"
	}
	s.log.WithFields(fields).Info(msg)
}

func (s *Syncer) legacyPath(relPath string) string {
	return filepath.Join(s.roots.Legacy, filepath.FromSlash(relPath))
}

func (s *Syncer) canonicalPath(relPath string) string {
	return filepath.Join(s.roots.Canonical, filepath.FromSlash(relPath))
}

func isKindMismatch(d Decision) bool {
	return d.Action == ActionSkip && strings.HasPrefix(d.Reason, kindMismatchReason)
}

// truncateSlice truncates the given slice of strings to the given length. If
// the slice is longer than `length`, a message is appended saying how many
// more items are in the slice.
func truncateSlice(slc []string, length int) (truncated []string) {
	if len(slc) <= length {
		return slc
	}
	msg := fmt.Sprintf("... %d more ...", len(slc)-length)
	return append(slc[:length:length], msg)
}

// pathLocks serializes operations on the same destination path.
type pathLocks struct {
	lock  sync.Mutex
	paths map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{paths: map[string]*sync.Mutex{}}
}

func (l *pathLocks) acquire(relPath string) (release func()) {
	l.lock.Lock()
	pathLock, ok := l.paths[relPath]
	if !ok {
		pathLock = &sync.Mutex{}
		l.paths[relPath] = pathLock
	}
	l.lock.Unlock()

	pathLock.Lock()
	return pathLock.Unlock
}
