package repo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rosavcs/rosa/pkg/diff3"
	"github.com/rosavcs/rosa/pkg/object"
)

// ErrMergeConflict reports that a merge stopped with conflict markers
// in the worktree and MERGE_HEAD recorded.
var ErrMergeConflict = errors.New("merge conflict")

// MergeResult describes how a merge concluded.
type MergeResult struct {
	// Hash is the resulting commit: the fast-forward target or the new
	// merge commit. Empty when conflicts stopped the merge.
	Hash object.Hash

	FastForward     bool
	AlreadyUpToDate bool

	// Conflicts lists paths left with conflict markers, sorted.
	Conflicts []string
}

// Merge integrates the named branch (or commit-ish) into the current
// branch. Histories that have not diverged fast-forward; diverged
// histories get a three-way content merge against the common ancestor.
// Conflicting paths are written with markers, MERGE_HEAD is recorded,
// and ErrMergeConflict is returned so the caller can resolve and
// commit.
func (r *Repo) Merge(target string, committer object.Identity) (*MergeResult, error) {
	head, err := r.ReadHead()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if head.Detached() {
		return nil, errors.New("merge: HEAD is detached, check out a branch first")
	}
	if head.Commit == "" {
		return nil, errors.New("merge: current branch has no commits")
	}
	if pending, err := r.mergeHead(); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	} else if pending != "" {
		return nil, errors.New("merge: a merge is already in progress, commit or reset first")
	}

	theirsRef, err := r.resolveCommitish(target)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	theirs, _, err := r.peelToCommit(theirsRef)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	ours := head.Commit

	base, err := r.MergeBase(ours, theirs)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	if base == theirs || ours == theirs {
		return &MergeResult{Hash: ours, AlreadyUpToDate: true}, nil
	}
	if base == ours {
		if err := r.Checkout(string(theirs), false); err != nil {
			return nil, fmt.Errorf("merge: fast-forward: %w", err)
		}
		if err := r.UpdateRefCAS("refs/heads/"+head.Branch, ours, theirs,
			"merge "+target+": fast-forward"); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		// Checkout detached HEAD at theirs; reattach to the branch.
		if err := r.SetHeadBranch(head.Branch); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		return &MergeResult{Hash: theirs, FastForward: true}, nil
	}

	if err := r.ensureCleanForMerge(); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	merged, conflicts, err := r.mergeTrees(base, ours, theirs, head.Branch, target)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	lock, err := r.LockIndex()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	ix := NewIndex()
	for _, f := range merged {
		entry := IndexEntry{Path: f.Path, BlobHash: f.BlobHash, Mode: f.Mode, Size: -1}
		ix.Stage(entry)
	}
	if err := r.applyMergeToWorktree(merged); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("merge: %w", err)
	}
	if err := r.WriteIndex(ix); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("merge: %w", err)
	}
	lock.Unlock()

	if len(conflicts) > 0 {
		if err := r.setMergeHead(theirs); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		sort.Strings(conflicts)
		return &MergeResult{Conflicts: conflicts}, ErrMergeConflict
	}

	if err := r.setMergeHead(theirs); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	result, err := r.Commit(CommitOptions{
		Message: fmt.Sprintf("Merge %s into %s", target, head.Branch),
		Author:  committer,
	})
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return &MergeResult{Hash: result.Hash}, nil
}

// MergeBase finds a best common ancestor of a and b: every ancestor of
// a is collected, then a breadth-first walk from b returns the first
// commit in that set.
func (r *Repo) MergeBase(a, b object.Hash) (object.Hash, error) {
	ancestors := make(map[object.Hash]bool)
	queue := []object.Hash{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if ancestors[cur] {
			continue
		}
		ancestors[cur] = true
		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			return "", fmt.Errorf("merge base: read %s: %w", cur.Short(), err)
		}
		queue = append(queue, commit.Parents...)
	}

	seen := make(map[object.Hash]bool)
	queue = []object.Hash{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if ancestors[cur] {
			return cur, nil
		}
		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			return "", fmt.Errorf("merge base: read %s: %w", cur.Short(), err)
		}
		queue = append(queue, commit.Parents...)
	}
	return "", fmt.Errorf("no common ancestor between %s and %s", a.Short(), b.Short())
}

// mergeTrees merges the flattened trees of ours and theirs against the
// base tree and returns the combined file list plus conflicted paths.
// Conflicted file content (with markers) is written as new blobs so the
// worktree and index materialize from the store like any other file.
func (r *Repo) mergeTrees(base, ours, theirs object.Hash, ourLabel, theirLabel string) ([]TreeFileEntry, []string, error) {
	baseFiles, err := r.flattenCommit(base)
	if err != nil {
		return nil, nil, err
	}
	ourFiles, err := r.flattenCommit(ours)
	if err != nil {
		return nil, nil, err
	}
	theirFiles, err := r.flattenCommit(theirs)
	if err != nil {
		return nil, nil, err
	}

	paths := make(map[string]bool)
	for p := range baseFiles {
		paths[p] = true
	}
	for p := range ourFiles {
		paths[p] = true
	}
	for p := range theirFiles {
		paths[p] = true
	}

	var merged []TreeFileEntry
	var conflicts []string
	for path := range paths {
		b, hasB := baseFiles[path]
		o, hasO := ourFiles[path]
		t, hasT := theirFiles[path]

		switch {
		case hasO && hasT && o.BlobHash == t.BlobHash && o.Mode == t.Mode:
			merged = append(merged, o)
		case !hasO && !hasT:
			// Deleted on both sides.
		case hasB && hasO && b.BlobHash == o.BlobHash && b.Mode == o.Mode:
			// Only theirs changed (or deleted) this path.
			if hasT {
				merged = append(merged, t)
			}
		case hasB && hasT && b.BlobHash == t.BlobHash && b.Mode == t.Mode:
			if hasO {
				merged = append(merged, o)
			}
		case hasO && hasT:
			entry, conflicted, err := r.mergeFileContent(path, b, hasB, o, t, ourLabel, theirLabel)
			if err != nil {
				return nil, nil, err
			}
			merged = append(merged, entry)
			if conflicted {
				conflicts = append(conflicts, path)
			}
		default:
			// Modify/delete conflict: keep the surviving side's content
			// so nothing is silently lost.
			if hasO {
				merged = append(merged, o)
			} else {
				merged = append(merged, t)
			}
			conflicts = append(conflicts, path)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Path < merged[j].Path })
	return merged, conflicts, nil
}

func (r *Repo) mergeFileContent(path string, base TreeFileEntry, hasBase bool, ours, theirs TreeFileEntry, ourLabel, theirLabel string) (TreeFileEntry, bool, error) {
	var baseData []byte
	if hasBase {
		blob, err := r.Store.ReadBlob(base.BlobHash)
		if err != nil {
			return TreeFileEntry{}, false, err
		}
		baseData = blob.Data
	}
	ourBlob, err := r.Store.ReadBlob(ours.BlobHash)
	if err != nil {
		return TreeFileEntry{}, false, err
	}
	theirBlob, err := r.Store.ReadBlob(theirs.BlobHash)
	if err != nil {
		return TreeFileEntry{}, false, err
	}

	result := diff3.Merge(baseData, ourBlob.Data, theirBlob.Data, diff3.Labels{
		Ours:   ourLabel,
		Theirs: theirLabel,
	})

	mergedHash, err := r.Store.WriteBlob(&object.Blob{Data: result.Content})
	if err != nil {
		return TreeFileEntry{}, false, err
	}

	mode := ours.Mode
	if hasBase && base.Mode == ours.Mode {
		mode = theirs.Mode
	}
	return TreeFileEntry{Path: path, BlobHash: mergedHash, Mode: mode}, result.Conflicts, nil
}

func (r *Repo) flattenCommit(h object.Hash) (map[string]TreeFileEntry, error) {
	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, err
	}
	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, err
	}
	m := make(map[string]TreeFileEntry, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m, nil
}

// applyMergeToWorktree materializes the merged file set over the
// current worktree.
func (r *Repo) applyMergeToWorktree(merged []TreeFileEntry) error {
	mergedMap := make(map[string]TreeFileEntry, len(merged))
	for _, f := range merged {
		mergedMap[f.Path] = f
	}
	return r.materializeTree(merged, mergedMap)
}

// ensureCleanForMerge refuses a three-way merge unless index and
// worktree both match HEAD.
func (r *Repo) ensureCleanForMerge() error {
	entries, err := r.Status()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Staged != StatusClean || e.Worktree == StatusModified || e.Worktree == StatusDeleted {
			return &DirtyPathError{Path: e.Path}
		}
	}
	return nil
}
