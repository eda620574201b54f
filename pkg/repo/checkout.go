package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
)

// Checkout switches the working directory to the state of target, which
// may be a branch name, a commit hash, or an annotated tag hash (peeled
// to its commit).
//
// Paths that carry unstaged changes and would be overwritten or removed
// fail the whole operation with ErrDirtyWorktree before anything is
// touched, unless force is set. On success the worktree matches the
// target tree exactly, the index is rebuilt from the target tree, and
// HEAD is attached to the branch (or detached at the commit when target
// was a raw id).
func (r *Repo) Checkout(target string, force bool) error {
	targetHash, isBranch, err := r.resolveCheckoutTarget(target)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	commitHash, commit, err := r.peelToCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	targetFiles, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("checkout: flatten target tree: %w", err)
	}
	targetMap := make(map[string]TreeFileEntry, len(targetFiles))
	for _, f := range targetFiles {
		targetMap[f.Path] = f
	}

	if !force {
		if err := r.ensureReconcilable(targetMap); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	}

	lock, err := r.LockIndex()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	defer lock.Unlock()

	if err := r.materializeTree(targetFiles, targetMap); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	ix, err := r.indexForMaterializedTree(targetFiles)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.WriteIndex(ix); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if isBranch {
		if err := r.SetHeadBranch(target); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	} else {
		if err := r.SetHeadDetached(commitHash); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	}
	return nil
}

func (r *Repo) resolveCheckoutTarget(target string) (object.Hash, bool, error) {
	if h, err := r.ResolveRef("refs/heads/" + target); err == nil {
		return h, true, nil
	}
	if h, err := r.ResolveRef("refs/tags/" + target); err == nil {
		return h, false, nil
	}
	if strings.HasPrefix(target, "refs/") {
		if h, err := r.ResolveRef(target); err == nil {
			return h, false, nil
		}
	}
	h := object.Hash(strings.TrimSpace(target))
	if !h.IsValid() {
		return "", false, fmt.Errorf("target %q is neither a branch nor a commit id: %w", target, ErrUnknownRef)
	}
	return h, false, nil
}

// peelToCommit resolves tag indirection until a commit is found.
func (r *Repo) peelToCommit(h object.Hash) (object.Hash, *object.CommitObj, error) {
	for depth := 0; depth < maxSymbolicDepth; depth++ {
		objType, data, err := r.Store.Read(h)
		if err != nil {
			return "", nil, err
		}
		switch objType {
		case object.TypeCommit:
			c, err := object.UnmarshalCommit(data)
			if err != nil {
				return "", nil, err
			}
			return h, c, nil
		case object.TypeTag:
			t, err := object.UnmarshalTag(data)
			if err != nil {
				return "", nil, err
			}
			h = t.TargetHash
		default:
			return "", nil, fmt.Errorf("object %s is a %s, not a commit: %w", h, objType, object.ErrMalformedObject)
		}
	}
	return "", nil, fmt.Errorf("tag chain too deep at %s: %w", h, object.ErrMalformedObject)
}

// ensureReconcilable refuses to proceed when a path the reconciliation
// would write or remove carries unstaged changes, or when an untracked
// file would be clobbered by the target tree.
func (r *Repo) ensureReconcilable(targetMap map[string]TreeFileEntry) error {
	entries, err := r.Status()
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}

	for _, e := range entries {
		switch e.Worktree {
		case StatusModified:
			return &DirtyPathError{Path: e.Path}
		case StatusUntracked:
			if tf, inTarget := targetMap[e.Path]; inTarget {
				// Writing an untracked file is fine only when the
				// content already matches.
				info, err := os.Lstat(r.worktreePath(e.Path))
				if err != nil {
					return &DirtyPathError{Path: e.Path}
				}
				content, err := r.readWorktreeBlob(e.Path, info)
				if err != nil {
					return &DirtyPathError{Path: e.Path}
				}
				if object.HashObject(object.TypeBlob, content) != tf.BlobHash {
					return &DirtyPathError{Path: e.Path}
				}
			}
		}
	}
	return nil
}

// materializeTree makes the worktree match the target exactly: tracked
// files absent from the target are removed, target files are written.
func (r *Repo) materializeTree(targetFiles []TreeFileEntry, targetMap map[string]TreeFileEntry) error {
	for path := range r.trackedFiles() {
		if _, keep := targetMap[path]; keep {
			continue
		}
		abs := r.worktreePath(path)
		if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %q: %w", path, err)
		}
		r.removeEmptyParents(filepath.Dir(abs))
	}

	for _, f := range targetFiles {
		if err := r.writeWorktreeFile(f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) writeWorktreeFile(f TreeFileEntry) error {
	abs := r.worktreePath(f.Path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("mkdir for %q: %w", f.Path, err)
	}

	blob, err := r.Store.ReadBlob(f.BlobHash)
	if err != nil {
		return fmt.Errorf("read blob for %q: %w", f.Path, err)
	}

	if normalizeFileMode(f.Mode) == object.TreeModeSymlink {
		if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("replace symlink %q: %w", f.Path, err)
		}
		if err := os.Symlink(string(blob.Data), abs); err != nil {
			return fmt.Errorf("symlink %q: %w", f.Path, err)
		}
		return nil
	}

	if err := os.WriteFile(abs, blob.Data, filePermFromMode(f.Mode)); err != nil {
		return fmt.Errorf("write %q: %w", f.Path, err)
	}
	// WriteFile does not chmod existing files; force the mode so an
	// executable-bit change materializes.
	if err := os.Chmod(abs, filePermFromMode(f.Mode)); err != nil {
		return fmt.Errorf("chmod %q: %w", f.Path, err)
	}
	return nil
}

// indexForMaterializedTree builds the index matching freshly written
// files, capturing their stat metadata so the next status stays cheap.
func (r *Repo) indexForMaterializedTree(files []TreeFileEntry) (*Index, error) {
	ix := NewIndex()
	for _, f := range files {
		entry := IndexEntry{
			Path:     f.Path,
			BlobHash: f.BlobHash,
			Mode:     f.Mode,
			Size:     -1,
		}
		if info, err := os.Lstat(r.worktreePath(f.Path)); err == nil {
			entry.Size = info.Size()
			entry.ModTimeNano = info.ModTime().UnixNano()
		}
		ix.Stage(entry)
	}
	return ix, nil
}

// trackedFiles merges the path sets of the HEAD tree and the index.
func (r *Repo) trackedFiles() map[string]bool {
	files := make(map[string]bool)

	if headEntries, err := r.headTreeFiles(); err == nil {
		for path := range headEntries {
			files[path] = true
		}
	}
	if ix, err := r.ReadIndex(); err == nil {
		for _, e := range ix.Entries() {
			files[e.Path] = true
		}
	}
	return files
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
