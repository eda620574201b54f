package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rosavcs/rosa/pkg/object"
)

const symbolicRefPrefix = "ref: "

// maxSymbolicDepth bounds symbolic indirection during resolution; a chain
// longer than this is treated as a cycle.
const maxSymbolicDepth = 5

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// RefEntry is one reference in a listing.
type RefEntry struct {
	Name string // relative to the metadata dir, e.g. "refs/heads/main"
	Hash object.Hash
}

// normalizeRefName expands shorthand names: "HEAD" stays as-is, names
// under refs/ stay as-is, everything else is assumed to be a branch.
func normalizeRefName(name string) string {
	name = strings.TrimSpace(name)
	if name == "HEAD" || name == "MERGE_HEAD" || strings.HasPrefix(name, "refs/") {
		return name
	}
	return "refs/heads/" + name
}

func (r *Repo) refFilePath(name string) string {
	return filepath.Join(r.MetaDir, filepath.FromSlash(normalizeRefName(name)))
}

// readRefContent reads the raw trimmed content of a ref file.
func (r *Repo) readRefContent(name string) (string, error) {
	data, err := os.ReadFile(r.refFilePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("ref %q: %w", name, ErrUnknownRef)
		}
		return "", fmt.Errorf("ref %q: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ResolveRef resolves a ref name to an object hash, following symbolic
// indirection up to maxSymbolicDepth levels. A missing ref fails with
// ErrUnknownRef; indirection that never bottoms out fails with
// ErrRefCycle.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	cur := name
	for depth := 0; depth <= maxSymbolicDepth; depth++ {
		content, err := r.readRefContent(cur)
		if err != nil {
			return "", err
		}
		if target, ok := strings.CutPrefix(content, symbolicRefPrefix); ok {
			cur = strings.TrimSpace(target)
			continue
		}
		h := object.Hash(content)
		if !h.IsValid() {
			return "", fmt.Errorf("ref %q: invalid content %q: %w", cur, content, ErrUnknownRef)
		}
		return h, nil
	}
	return "", fmt.Errorf("ref %q: symbolic depth exceeded: %w", name, ErrRefCycle)
}

// SymbolicRefTarget returns the immediate target name of a symbolic ref,
// or ok=false when the ref is direct.
func (r *Repo) SymbolicRefTarget(name string) (string, bool, error) {
	content, err := r.readRefContent(name)
	if err != nil {
		return "", false, err
	}
	if target, ok := strings.CutPrefix(content, symbolicRefPrefix); ok {
		return strings.TrimSpace(target), true, nil
	}
	return "", false, nil
}

// UpdateRef writes a hash to the named ref without comparing the old
// value. Branch advances from a known tip should use UpdateRefCAS.
func (r *Repo) UpdateRef(name string, h object.Hash, reason string) error {
	return r.updateRef(name, h, "", false, reason)
}

// UpdateRefCAS writes a hash to the named ref using lockfile + rename
// atomic semantics. The update only succeeds if the current value
// matches expectedOld (empty means the ref must not exist yet):
// concurrent updates from the same tip leave exactly one winner, the
// loser gets a RefCASError and must re-read before deciding to retry.
func (r *Repo) UpdateRefCAS(name string, expectedOld, h object.Hash, reason string) error {
	return r.updateRef(name, h, expectedOld, true, reason)
}

func (r *Repo) updateRef(name string, h, expectedOld object.Hash, compareOld bool, reason string) error {
	name = normalizeRefName(name)
	refPath := r.refFilePath(name)

	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w (%v)", name, ErrRefConflict, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if compareOld && oldHash != expectedOld {
		return &RefCASError{Ref: name, Expected: expectedOld, Found: oldHash}
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if reason == "" {
		reason = "update"
	}
	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		return fmt.Errorf("update ref %q: reflog: %w", name, err)
	}
	return nil
}

// CreateSymbolicRef writes a "ref: <target>" file for name. The target is
// not required to exist yet (HEAD in a fresh repository points at an
// unborn branch).
func (r *Repo) CreateSymbolicRef(name, target string) error {
	name = normalizeRefName(name)
	target = normalizeRefName(target)
	if name == target {
		return fmt.Errorf("symbolic ref %q: self reference: %w", name, ErrRefCycle)
	}

	refPath := r.refFilePath(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("symbolic ref %q: mkdir: %w (%v)", name, ErrRefConflict, err)
	}
	if err := atomicWriteFile(refPath, []byte(symbolicRefPrefix+target+"\n"), 0o644); err != nil {
		return fmt.Errorf("symbolic ref %q: %w", name, err)
	}
	return nil
}

// DeleteRef removes a reference. Deleting a missing ref fails with
// ErrUnknownRef.
func (r *Repo) DeleteRef(name string) error {
	name = normalizeRefName(name)
	if err := os.Remove(r.refFilePath(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete ref %q: %w", name, ErrUnknownRef)
		}
		return fmt.Errorf("delete ref %q: %w", name, err)
	}
	return nil
}

// ListRefs enumerates references under a namespace prefix (e.g.
// "refs/heads/") in name-sorted order. An empty prefix lists everything
// under refs/.
func (r *Repo) ListRefs(prefix string) ([]RefEntry, error) {
	root := filepath.Join(r.MetaDir, "refs")
	dir := root
	sub := strings.TrimPrefix(strings.TrimSpace(prefix), "refs/")
	if sub != "" {
		dir = filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(sub, "/")))
	}

	var refs []RefEntry
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(path, ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		refs = append(refs, RefEntry{
			Name: "refs/" + filepath.ToSlash(rel),
			Hash: object.Hash(strings.TrimSpace(string(data))),
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// ImportRefs installs a name→hash mapping supplied by a transport
// collaborator. Updates are blind overwrites: the remote advertisement is
// authoritative for the names it covers.
func (r *Repo) ImportRefs(refs map[string]object.Hash) error {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.UpdateRef(name, refs[name], "fetch"); err != nil {
			return fmt.Errorf("import refs: %w", err)
		}
	}
	return nil
}

// ReachableFromRefs returns the sorted set of object hashes reachable
// from all refs plus HEAD, for pack generation by a transport
// collaborator.
func (r *Repo) ReachableFromRefs() ([]object.Hash, error) {
	roots, err := r.refRoots()
	if err != nil {
		return nil, err
	}
	return r.Store.ReachableList(roots)
}

func (r *Repo) refRoots() ([]object.Hash, error) {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}

	var roots []object.Hash
	for _, ref := range refs {
		roots = append(roots, ref.Hash)
	}
	if h, err := r.ResolveRef("HEAD"); err == nil {
		roots = append(roots, h)
	}
	return roots, nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
