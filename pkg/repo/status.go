package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rosavcs/rosa/pkg/object"
)

// FileStatus classifies one side of the three-way comparison.
type FileStatus int

const (
	StatusClean     FileStatus = iota // no difference on this axis
	StatusNew                         // in index, not in HEAD tree
	StatusModified                    // content or mode differs
	StatusDeleted                     // present upstream, gone downstream
	StatusUntracked                   // in working dir, not in index
)

// StatusEntry records the status of a single path across the three trees.
// Staged compares index against HEAD ("staged-new", "staged-modified",
// "staged-deleted"); Worktree compares the working directory against the
// index ("unstaged-modified", "unstaged-deleted", "untracked"). A path
// clean on both axes is unmodified.
type StatusEntry struct {
	Path     string
	Staged   FileStatus
	Worktree FileStatus
}

// Unmodified reports whether the path matches across all three trees.
func (e StatusEntry) Unmodified() bool {
	return e.Staged == StatusClean && e.Worktree == StatusClean
}

// statusRacyWindow guards against edits landing within mtime granularity
// of the cached stat: paths modified that recently are always re-hashed.
const statusRacyWindow = 2 * time.Second

// Status computes the working tree status for the repository.
//
// Each path known to HEAD, the index, or the working directory is
// compared across the three. Worktree hashes are recomputed only for
// paths whose stat metadata disagrees with the index cache; a stat
// mismatch falls back to hashing, so classification never depends on
// the cache.
func (r *Repo) Status() ([]StatusEntry, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return r.statusWithIndex(ix, true)
}

func (r *Repo) statusWithIndex(ix *Index, refreshStats bool) ([]StatusEntry, error) {
	workFiles, err := r.walkWorktree()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	headFiles, err := r.headTreeFiles()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	result := make(map[string]*StatusEntry)
	entryFor := func(path string) *StatusEntry {
		e, ok := result[path]
		if !ok {
			e = &StatusEntry{Path: path}
			result[path] = e
		}
		return e
	}

	// Working tree vs index.
	staleStats := false
	for path, info := range workFiles {
		se, inIndex := ix.Get(path)
		if !inIndex {
			entryFor(path).Worktree = StatusUntracked
			continue
		}

		if statMatchesIndex(se, info) {
			continue
		}
		content, err := r.readWorktreeBlob(path, info)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		workMode := modeFromFileInfo(info)
		workHash := object.HashObject(object.TypeBlob, content)
		if workHash != se.BlobHash || normalizeFileMode(workMode) != normalizeFileMode(se.Mode) {
			entryFor(path).Worktree = StatusModified
		} else if refreshStatCache(se, info) {
			staleStats = true
		}
	}
	for _, se := range ix.Entries() {
		if _, onDisk := workFiles[se.Path]; !onDisk {
			entryFor(se.Path).Worktree = StatusDeleted
		}
	}

	// Index vs HEAD.
	for _, se := range ix.Entries() {
		head, inHead := headFiles[se.Path]
		switch {
		case !inHead:
			entryFor(se.Path).Staged = StatusNew
		case se.BlobHash != head.BlobHash || normalizeFileMode(se.Mode) != normalizeFileMode(head.Mode):
			entryFor(se.Path).Staged = StatusModified
		}
	}
	for path := range headFiles {
		if _, inIndex := ix.Get(path); !inIndex {
			entryFor(path).Staged = StatusDeleted
		}
	}

	entries := make([]StatusEntry, 0, len(result))
	for _, e := range result {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	// Refresh stat caches opportunistically; skipping on a held lock is
	// fine, status must stay read-only from the caller's view.
	if staleStats && refreshStats {
		if lock, err := r.LockIndex(); err == nil {
			_ = r.WriteIndex(ix)
			lock.Unlock()
		}
	}

	return entries, nil
}

// walkWorktree collects all non-ignored worktree files keyed by
// repo-relative slash path.
func (r *Repo) walkWorktree() (map[string]os.FileInfo, error) {
	ic := NewIgnoreChecker(r.RootDir)
	files := make(map[string]os.FileInfo)

	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if ic.IsIgnored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		files[rel] = info
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return files, nil
}

// statMatchesIndex reports whether the cached stat metadata proves the
// worktree file unchanged. Any doubt returns false and forces a hash.
func statMatchesIndex(se *IndexEntry, info os.FileInfo) bool {
	if se.Size < 0 || se.ModTimeNano == 0 {
		return false
	}
	if normalizeFileMode(se.Mode) != normalizeFileMode(modeFromFileInfo(info)) {
		return false
	}
	if se.Size != info.Size() {
		return false
	}
	mod := info.ModTime()
	now := time.Now()
	if mod.After(now) || now.Sub(mod) < statusRacyWindow {
		return false
	}
	// Coarse (second-level) mtimes can hide same-size edits in a second.
	if mod.Nanosecond() == 0 {
		return false
	}
	return se.ModTimeNano == mod.UnixNano()
}

func refreshStatCache(se *IndexEntry, info os.FileInfo) bool {
	nextMode := normalizeFileMode(modeFromFileInfo(info))
	nextMod := info.ModTime().UnixNano()
	nextSize := info.Size()
	if se.ModTimeNano == nextMod && se.Size == nextSize && normalizeFileMode(se.Mode) == nextMode {
		return false
	}
	se.Mode = nextMode
	se.ModTimeNano = nextMod
	se.Size = nextSize
	return true
}
