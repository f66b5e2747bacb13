package sync

import (
	"path"
)

// WorkspacesDir is the collection of workspaces in both trees.
const WorkspacesDir = "workspaces"

var (
	// topLevelFiles are small settings files that are edited in place.
	topLevelFiles = []string{
		"credentials.enc",
		"config.json",
		"preferences.json",
		"drafts.json",
		"config-defaults.json",
	}

	// topLevelDirs are owned as a whole by whichever tree has them first.
	topLevelDirs = []string{
		"permissions",
		"themes",
		"tool-icons",
		"docs",
		"release-notes",
		"logs",
		"mcp-servers",
	}

	workspaceFiles = []string{
		"config.json",
		"hooks.json",
		"views.json",
		"projects.json",
	}

	workspaceEventLog = "events.jsonl"

	// workspaceCollections hold independently meaningful entries, such as
	// one directory per session.
	workspaceCollections = []string{
		"sessions",
		"sources",
		"skills",
		"labels",
		"scripts",
		"statuses",
	}
)

// Unit is one path that gets reconciled with one Policy. Path is slash
// separated and relative to both roots.
type Unit struct {
	Path   string
	Policy Policy
}

func (u Unit) String() string {
	return u.Path + " (" + u.Policy.String() + ")"
}

// TopLevelPlan returns the units for the files and directories directly under
// the roots. The workspaces collection isn't part of it.
func TopLevelPlan() []Unit {
	var units []Unit
	for _, f := range topLevelFiles {
		units = append(units, Unit{Path: f, Policy: NewerWins})
	}
	for _, d := range topLevelDirs {
		units = append(units, Unit{Path: d, Policy: CopyIfAbsent})
	}
	return units
}

// WorkspaceUnit is the unit that copies a whole workspace when the
// canonical tree doesn't have it yet.
func WorkspaceUnit(slug string) Unit {
	return Unit{Path: path.Join(WorkspacesDir, slug), Policy: CopyIfAbsent}
}

// WorkspacePlan returns the units that reconcile a workspace present in both
// trees.
func WorkspacePlan(slug string) []Unit {
	dir := path.Join(WorkspacesDir, slug)

	var units []Unit
	for _, f := range workspaceFiles {
		units = append(units, Unit{Path: path.Join(dir, f), Policy: NewerWins})
	}
	units = append(units, Unit{Path: path.Join(dir, workspaceEventLog), Policy: LargerWins})
	for _, c := range workspaceCollections {
		units = append(units, Unit{Path: path.Join(dir, c), Policy: EntryUnion})
	}
	return units
}
