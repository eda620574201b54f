package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
	Mode     string
}

// BuildTreeFromIndex converts the flat index into a hierarchical tree,
// writing a TreeObj per directory to the store bottom-up and returning
// the root hash. Because tree serialization sorts entries, staging the
// same paths in any order yields the same root id.
func (r *Repo) BuildTreeFromIndex(ix *Index) (object.Hash, error) {
	return r.buildTreeDir(ix, "")
}

func (r *Repo) buildTreeDir(ix *Index, prefix string) (object.Hash, error) {
	// Collect direct children: files and immediate subdirectory names.
	files := make(map[string]*IndexEntry)
	subdirs := make(map[string]struct{})

	for _, entry := range ix.Entries() {
		p := entry.Path
		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			files[rel] = entry
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	names := make([]string, 0, len(files)+len(subdirs))
	for name := range files {
		names = append(names, name)
	}
	for name := range subdirs {
		// A name cannot be both a file and a directory.
		if _, isFile := files[name]; !isFile {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var entries []object.TreeEntry
	for _, name := range names {
		if entry, isFile := files[name]; isFile {
			entries = append(entries, object.TreeEntry{
				Name:   name,
				Mode:   normalizeFileMode(entry.Mode),
				Target: entry.BlobHash,
			})
		} else {
			childPrefix := name
			if prefix != "" {
				childPrefix = prefix + "/" + name
			}
			subHash, err := r.buildTreeDir(ix, childPrefix)
			if err != nil {
				return "", fmt.Errorf("build tree %q: %w", childPrefix, err)
			}
			entries = append(entries, object.TreeEntry{
				Name:   name,
				Mode:   object.TreeModeDir,
				Target: subHash,
			})
		}
	}

	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// LoadIndexFromTree repopulates an index from a stored tree: the inverse
// of BuildTreeFromIndex. Stat metadata is cleared (Size -1) so the next
// status re-hashes the worktree instead of trusting stale stats.
func (r *Repo) LoadIndexFromTree(treeHash object.Hash) (*Index, error) {
	entries, err := r.FlattenTree(treeHash)
	if err != nil {
		return nil, fmt.Errorf("load index from tree: %w", err)
	}

	ix := NewIndex()
	for _, e := range entries {
		ix.Stage(IndexEntry{
			Path:        e.Path,
			BlobHash:    e.BlobHash,
			Mode:        e.Mode,
			Size:        -1,
			ModTimeNano: 0,
		})
	}
	return ix, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full slash-separated paths.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Target, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{
				Path:     fullPath,
				BlobHash: entry.Target,
				Mode:     entry.Mode,
			})
		}
	}
	return result, nil
}

// headTreeFiles flattens HEAD's tree into a path-keyed map. A repository
// with no commits yields an empty map.
func (r *Repo) headTreeFiles() (map[string]TreeFileEntry, error) {
	result := make(map[string]TreeFileEntry)

	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		return result, nil
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	entries, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("flatten HEAD tree: %w", err)
	}
	for _, e := range entries {
		result[e.Path] = e
	}
	return result, nil
}
