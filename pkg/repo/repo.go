package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rosavcs/rosa/pkg/object"
)

// MetaDirName is the repository metadata directory created at the
// worktree root.
const MetaDirName = ".rosa"

// Repo is an opened repository: a worktree root plus its metadata
// directory. Every component takes the handle explicitly, so multiple
// repositories can be open in one process without shared state.
type Repo struct {
	RootDir string        // working directory root
	MetaDir string        // .rosa/ directory
	Store   *object.Store // content-addressed object store
}

// Init creates a new repository at path: the .rosa/ directory with
// objects/, refs/heads/, refs/tags/, logs/, a HEAD pointing at the
// configured default branch, and a default config. Fails if .rosa/
// already exists.
func Init(path string) (*Repo, error) {
	metaDir := filepath.Join(path, MetaDirName)

	if _, err := os.Stat(metaDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", metaDir)
	}

	dirs := []string{
		filepath.Join(metaDir, "objects"),
		filepath.Join(metaDir, "refs", "heads"),
		filepath.Join(metaDir, "refs", "tags"),
		filepath.Join(metaDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	headPath := filepath.Join(metaDir, "HEAD")
	if err := os.WriteFile(headPath, []byte(symbolicRefPrefix+"refs/heads/"+DefaultBranch+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	descPath := filepath.Join(metaDir, "description")
	if err := os.WriteFile(descPath, []byte("Unnamed repository; edit this file to name it.\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write description: %w", err)
	}

	r := &Repo{
		RootDir: path,
		MetaDir: metaDir,
		Store:   object.NewStore(metaDir),
	}
	if err := r.WriteConfig(DefaultConfig()); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return r, nil
}

// Open searches upward from path for a .rosa/ directory and opens the
// repository. A .rosa entry that exists but is not a directory fails with
// ErrInvalidRepository rather than being skipped.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		metaDir := filepath.Join(cur, MetaDirName)
		info, err := os.Stat(metaDir)
		if err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("open %s: metadata path is a file: %w", metaDir, ErrInvalidRepository)
			}
			return &Repo{
				RootDir: cur,
				MetaDir: metaDir,
				Store:   object.NewStore(metaDir),
			}, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open %s: %w (searched up to filesystem root)", abs, ErrInvalidRepository)
		}
		cur = parent
	}
}

// repoRelPath converts a path (absolute, or relative to CWD) into a
// slash-separated path relative to the repository root. Paths are stored
// with forward slashes internally regardless of host OS.
func (r *Repo) repoRelPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
		return filepath.ToSlash(rel), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	abs := filepath.Join(cwd, p)
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	// Outside the repo root: treat the original as already repo-relative.
	if len(rel) >= 2 && rel[:2] == ".." {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	return filepath.ToSlash(rel), nil
}

// worktreePath converts a repo-relative slash path to an absolute host
// path under the worktree root.
func (r *Repo) worktreePath(rel string) string {
	return filepath.Join(r.RootDir, filepath.FromSlash(rel))
}
