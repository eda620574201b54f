package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rosavcs/rosa/pkg/object"
)

// GCSummary reports what a garbage collection pass did.
type GCSummary struct {
	Examined int
	Pruned   int
}

// GC removes loose objects not reachable from any ref, HEAD, MERGE_HEAD,
// the index, or any reflog entry. Reflog hashes count as roots so
// recently abandoned commits survive until their log lines age out.
func (r *Repo) GC() (*GCSummary, error) {
	roots, err := r.gcRoots()
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}
	live, err := r.Store.ReachableSet(roots)
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}

	summary := &GCSummary{}
	objectsDir := filepath.Join(r.MetaDir, "objects")

	err = filepath.WalkDir(objectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return err
		}
		h := object.Hash(filepath.Dir(rel) + filepath.Base(rel))
		if !h.IsValid() {
			// Not an object file, leave it alone.
			return nil
		}

		summary.Examined++
		if _, ok := live[h]; ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("prune %s: %w", h.Short(), err)
		}
		summary.Pruned++
		r.removeEmptyParentsUnder(objectsDir, filepath.Dir(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}
	return summary, nil
}

func (r *Repo) gcRoots() ([]object.Hash, error) {
	roots, err := r.refRoots()
	if err != nil {
		return nil, err
	}

	if h, err := r.mergeHead(); err == nil && h != "" {
		roots = append(roots, h)
	}

	logged, err := r.reflogHashes()
	if err != nil {
		return nil, err
	}
	roots = append(roots, logged...)

	ix, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	for _, e := range ix.Entries() {
		roots = append(roots, e.BlobHash)
	}
	return roots, nil
}

func (r *Repo) removeEmptyParentsUnder(stop, dir string) {
	for dir != stop && len(dir) > len(stop) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
