package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	absent := Attributes{}
	dir := Attributes{Exists: true, IsDir: true, ModTime: older}
	file := func(size int64, modTime time.Time) Attributes {
		return Attributes{Exists: true, Size: size, ModTime: modTime}
	}

	tests := []struct {
		name      string
		policy    Policy
		legacy    Attributes
		canonical Attributes
		exp       Action
	}{
		{"CopyIfAbsent/LegacyAbsent", CopyIfAbsent, absent, dir, ActionSkip},
		{"CopyIfAbsent/BothAbsent", CopyIfAbsent, absent, absent, ActionSkip},
		{"CopyIfAbsent/CanonicalAbsent", CopyIfAbsent, dir, absent, ActionCopy},
		{"CopyIfAbsent/BothPresent", CopyIfAbsent, Attributes{Exists: true, IsDir: true, ModTime: newer}, dir, ActionSkip},

		{"NewerWins/LegacyAbsent", NewerWins, absent, file(10, older), ActionSkip},
		{"NewerWins/CanonicalAbsent", NewerWins, file(10, older), absent, ActionCopy},
		{"NewerWins/LegacyNewer", NewerWins, file(10, newer), file(10, older), ActionOverwrite},
		{"NewerWins/LegacyOlder", NewerWins, file(10, older), file(10, newer), ActionSkip},
		{"NewerWins/SameTime", NewerWins, file(99, older), file(10, older), ActionSkip},
		{"NewerWins/CanonicalIsDir", NewerWins, file(10, newer), dir, ActionSkip},

		{"LargerWins/LegacyAbsent", LargerWins, absent, file(300, older), ActionSkip},
		{"LargerWins/CanonicalAbsent", LargerWins, file(300, older), absent, ActionCopy},
		{"LargerWins/LegacyLarger", LargerWins, file(500, older), file(300, newer), ActionOverwrite},
		{"LargerWins/LegacySmaller", LargerWins, file(300, newer), file(500, older), ActionSkip},
		{"LargerWins/SameSize", LargerWins, file(300, newer), file(300, older), ActionSkip},
		{"LargerWins/LegacyIsDir", LargerWins, dir, file(300, older), ActionSkip},

		{"EntryUnion/LegacyAbsent", EntryUnion, absent, dir, ActionSkip},
		{"EntryUnion/CanonicalAbsent", EntryUnion, dir, absent, ActionCopy},
		{"EntryUnion/BothPresent", EntryUnion, dir, dir, ActionMergeEntries},
		{"EntryUnion/CanonicalIsFile", EntryUnion, dir, file(1, older), ActionSkip},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			decision := Decide(test.policy, test.legacy, test.canonical)
			assert.Equal(t, test.exp, decision.Action)
			assert.NotEmpty(t, decision.Reason)
		})
	}
}

func TestDecideKindMismatchReason(t *testing.T) {
	decision := Decide(NewerWins,
		Attributes{Exists: true},
		Attributes{Exists: true, IsDir: true})
	assert.True(t, isKindMismatch(decision))
	assert.Equal(t, "kind mismatch: legacy is a file, canonical is a directory", decision.Reason)

	assert.False(t, isKindMismatch(Decide(CopyIfAbsent,
		Attributes{Exists: true},
		Attributes{Exists: true, IsDir: true})))
}

func TestNoPolicyWritesWithoutLegacy(t *testing.T) {
	for _, policy := range []Policy{CopyIfAbsent, NewerWins, LargerWins, EntryUnion} {
		for _, canonical := range []Attributes{{}, {Exists: true}, {Exists: true, IsDir: true}} {
			decision := Decide(policy, Attributes{}, canonical)
			assert.Equal(t, ActionSkip, decision.Action, "%s: %+v", policy, canonical)
		}
	}
}

func TestActionWrites(t *testing.T) {
	assert.False(t, ActionSkip.Writes())
	assert.True(t, ActionCopy.Writes())
	assert.True(t, ActionOverwrite.Writes())
	assert.False(t, ActionMergeEntries.Writes())
}
