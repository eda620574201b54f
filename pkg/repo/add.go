package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
)

// Add stages the given paths. Files are hashed into the object store as
// blobs; directories are walked recursively (honoring ignore rules); a
// path that is staged but gone from the worktree stages its deletion.
// The whole operation runs under the exclusive index lock.
func (r *Repo) Add(paths []string) error {
	lock, err := r.LockIndex()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	defer lock.Unlock()

	ix, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	ic := NewIgnoreChecker(r.RootDir)
	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("add: resolve path %q: %w", p, err)
		}

		info, err := os.Lstat(r.worktreePath(rel))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if staged := r.unstagePrefix(ix, rel); staged {
					continue
				}
				return fmt.Errorf("add: pathspec %q matched no files", p)
			}
			return fmt.Errorf("add: stat %q: %w", rel, err)
		}

		if info.IsDir() {
			if err := r.addDir(ix, ic, rel); err != nil {
				return fmt.Errorf("add: %w", err)
			}
			continue
		}
		if err := r.stageFile(ix, rel, info); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	}

	if err := r.WriteIndex(ix); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Remove unstages paths. Unless cached is true, the worktree files are
// removed as well.
func (r *Repo) Remove(paths []string, cached bool) error {
	lock, err := r.LockIndex()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	defer lock.Unlock()

	ix, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("rm: resolve path %q: %w", p, err)
		}
		if !r.unstagePrefix(ix, rel) {
			return fmt.Errorf("rm: pathspec %q did not match any staged files", p)
		}
		if !cached {
			if err := os.Remove(r.worktreePath(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("rm: %q: %w", rel, err)
			}
			r.removeEmptyParents(filepath.Dir(r.worktreePath(rel)))
		}
	}

	if err := r.WriteIndex(ix); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	return nil
}

func (r *Repo) addDir(ix *Index, ic *IgnoreChecker, dirRel string) error {
	root := r.worktreePath(dirRel)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
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
			return err
		}
		return r.stageFile(ix, rel, info)
	})
}

// validateStagePath checks every component of a repo-relative path
// against the tree encoding rules, so a file whose name the tree format
// cannot carry (a newline, say) is refused before anything is stored.
func validateStagePath(rel string) error {
	for _, seg := range strings.Split(rel, "/") {
		if err := object.ValidateEntryName(seg); err != nil {
			return fmt.Errorf("path %q: %w", rel, err)
		}
	}
	return nil
}

func (r *Repo) stageFile(ix *Index, rel string, info os.FileInfo) error {
	if err := validateStagePath(rel); err != nil {
		return err
	}
	content, err := r.readWorktreeBlob(rel, info)
	if err != nil {
		return err
	}

	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return fmt.Errorf("write blob %q: %w", rel, err)
	}

	ix.Stage(IndexEntry{
		Path:        rel,
		BlobHash:    blobHash,
		Mode:        modeFromFileInfo(info),
		Size:        info.Size(),
		ModTimeNano: info.ModTime().UnixNano(),
	})
	return nil
}

// readWorktreeBlob returns the blob content for a worktree path: file
// bytes for regular files, the link destination for symlinks.
func (r *Repo) readWorktreeBlob(rel string, info os.FileInfo) ([]byte, error) {
	abs := r.worktreePath(rel)
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(abs)
		if err != nil {
			return nil, fmt.Errorf("readlink %q: %w", rel, err)
		}
		return []byte(target), nil
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", rel, err)
	}
	return content, nil
}

// unstagePrefix removes rel and everything under rel/ from the index,
// reporting whether anything was removed.
func (r *Repo) unstagePrefix(ix *Index, rel string) bool {
	removed := ix.Unstage(rel)
	prefix := rel + "/"
	var nested []string
	for _, e := range ix.Entries() {
		if len(e.Path) > len(prefix) && e.Path[:len(prefix)] == prefix {
			nested = append(nested, e.Path)
		}
	}
	sort.Strings(nested)
	for _, p := range nested {
		ix.Unstage(p)
		removed = true
	}
	return removed
}
