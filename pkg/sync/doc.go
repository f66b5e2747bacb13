/*
The sync package merges the configuration directory left behind by releases
that predate the application rename (the legacy tree) into the current
configuration directory (the canonical tree). It runs on every start, before
anything reads the canonical tree.

The legacy tree is only ever read, and nothing is ever removed from the
canonical tree. Every run decides what to do purely from what's on disk, so
running it again against trees that are already in sync doesn't write
anything.

The trees are reconciled one unit at a time. Each unit is a path with a
Policy:

1) CopyIfAbsent -- Top-level directories, and whole workspaces. Copied only if
   the canonical tree doesn't have them. Once the canonical side has the path,
   it owns everything beneath it.
2) NewerWins -- Settings files. The legacy copy wins if its modification time
   is strictly later.
3) LargerWins -- The append-only workspace event log. The legacy copy wins if
   it has strictly more bytes. Timestamps aren't a safe signal here because
   the log is only ever appended to.
4) EntryUnion -- Workspace collections such as sessions. Each entry is an
   independent unit, so entries missing from the canonical collection are
   copied even if the collection itself already exists.

Units are independent. A unit that fails is logged and skipped, and never
stops the rest of the run.
*/
package sync
