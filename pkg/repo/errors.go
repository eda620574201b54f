package repo

import (
	"errors"
	"fmt"

	"github.com/rosavcs/rosa/pkg/object"
)

var (
	// ErrInvalidRepository reports a missing or corrupt metadata directory.
	ErrInvalidRepository = errors.New("not a rosa repository")

	// ErrUnknownRef reports a reference name that does not exist.
	ErrUnknownRef = errors.New("unknown reference")

	// ErrRefCycle reports symbolic indirection that never reaches a
	// direct reference within the resolution bound.
	ErrRefCycle = errors.New("reference cycle")

	// ErrRefCASMismatch reports a compare-and-swap update that found a
	// different current value than expected. Callers should re-read the
	// reference and decide; the update is never retried internally.
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

	// ErrRefConflict reports a reference name clashing with an existing
	// ref file or directory (e.g. "a" vs "a/b").
	ErrRefConflict = errors.New("reference name conflict")

	// ErrCorruptIndex reports an index file whose checksum trailer does
	// not match its contents.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrIndexLocked reports that another process holds the index lock.
	ErrIndexLocked = errors.New("index is locked")

	// ErrDirtyWorktree reports unstaged changes that a checkout or hard
	// reset would overwrite.
	ErrDirtyWorktree = errors.New("working tree has uncommitted changes")

	// ErrNothingToCommit reports a commit that would record no change.
	ErrNothingToCommit = errors.New("nothing to commit")
)

// RefCASError carries the expected and observed values of a failed
// compare-and-swap reference update.
type RefCASError struct {
	Ref      string
	Expected object.Hash
	Found    object.Hash
}

func (e *RefCASError) Error() string {
	return fmt.Sprintf("update ref %q: %v (expected %s, found %s)",
		e.Ref, ErrRefCASMismatch, e.Expected, e.Found)
}

func (e *RefCASError) Is(target error) bool {
	return target == ErrRefCASMismatch
}

// DirtyPathError names the first path that blocked a checkout or reset.
type DirtyPathError struct {
	Path string
}

func (e *DirtyPathError) Error() string {
	return fmt.Sprintf("%v: %q would be overwritten", ErrDirtyWorktree, e.Path)
}

func (e *DirtyPathError) Is(target error) bool {
	return target == ErrDirtyWorktree
}
