package sync

import (
	"fmt"
)

// Policy decides how one unit of the legacy tree is merged into the canonical
// tree.
type Policy int

const (
	// CopyIfAbsent copies the whole subtree if the canonical side doesn't
	// have it. Once the canonical side has the path, it owns it.
	CopyIfAbsent Policy = iota

	// NewerWins copies a file if the legacy copy has a strictly later
	// modification time.
	NewerWins

	// LargerWins copies an append-only file if the legacy copy has strictly
	// more bytes.
	LargerWins

	// EntryUnion copies the entries of a directory that are missing on the
	// canonical side, one level deep.
	EntryUnion
)

func (p Policy) String() string {
	switch p {
	case CopyIfAbsent:
		return "copy-if-absent"
	case NewerWins:
		return "newer-wins"
	case LargerWins:
		return "larger-wins"
	case EntryUnion:
		return "entry-union"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Action is what a Policy decided to do with a unit.
type Action int

const (
	// ActionSkip leaves the canonical tree untouched.
	ActionSkip Action = iota

	// ActionCopy creates a path that is missing from the canonical tree.
	ActionCopy

	// ActionOverwrite replaces a canonical file with the legacy copy.
	ActionOverwrite

	// ActionMergeEntries means both sides have the directory, and each
	// legacy entry has to be considered on its own.
	ActionMergeEntries
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCopy:
		return "copy"
	case ActionOverwrite:
		return "overwrite"
	case ActionMergeEntries:
		return "merge-entries"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Writes returns whether the action changes the canonical tree by itself.
func (a Action) Writes() bool {
	return a == ActionCopy || a == ActionOverwrite
}

// Decision is the outcome of evaluating a Policy.
type Decision struct {
	Action Action
	Reason string
}

// Decide evaluates `policy` against the state of the legacy and canonical
// copies of one path. It only looks at its arguments, so the same trees
// always produce the same decision.
func Decide(policy Policy, legacy, canonical Attributes) Decision {
	if !legacy.Exists {
		return Decision{ActionSkip, "absent from legacy tree"}
	}

	if !canonical.Exists {
		return Decision{ActionCopy, "absent from canonical tree"}
	}

	switch policy {
	case CopyIfAbsent:
		return Decision{ActionSkip, "already present in canonical tree"}

	case NewerWins:
		if legacy.IsDir || canonical.IsDir {
			return kindMismatch(legacy, canonical)
		}
		if legacy.ModTime.After(canonical.ModTime) {
			return Decision{ActionOverwrite, "legacy copy is newer"}
		}
		return Decision{ActionSkip, "canonical copy is at least as new"}

	case LargerWins:
		if legacy.IsDir || canonical.IsDir {
			return kindMismatch(legacy, canonical)
		}
		if legacy.Size > canonical.Size {
			return Decision{ActionOverwrite, "legacy copy is larger"}
		}
		return Decision{ActionSkip, "canonical copy is at least as large"}

	case EntryUnion:
		if !legacy.IsDir || !canonical.IsDir {
			return kindMismatch(legacy, canonical)
		}
		return Decision{ActionMergeEntries, "present in both trees"}
	}

	return Decision{ActionSkip, fmt.Sprintf("unknown policy %s", policy)}
}

// kindMismatchReason prefixes the reason of decisions that skipped a path
// because it's a file on one side and a directory on the other.
const kindMismatchReason = "kind mismatch"

func kindMismatch(legacy, canonical Attributes) Decision {
	return Decision{ActionSkip, fmt.Sprintf("%s: legacy is %s, canonical is %s",
		kindMismatchReason, legacy.kind(), canonical.kind())}
}
