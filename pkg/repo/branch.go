package repo

import (
	"fmt"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
)

// CreateBranch points a new branch at target, which defaults to the
// current HEAD commit when empty. Overwriting an existing branch is
// refused.
func (r *Repo) CreateBranch(name, target string) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("branch: %w", err)
	}
	ref := "refs/heads/" + name
	if _, err := r.ResolveRef(ref); err == nil {
		return fmt.Errorf("branch %q already exists: %w", name, ErrRefConflict)
	}

	var targetHash object.Hash
	if target == "" {
		head, err := r.ReadHead()
		if err != nil {
			return fmt.Errorf("branch: %w", err)
		}
		if head.Commit == "" {
			return fmt.Errorf("branch: no commits yet: %w", ErrUnknownRef)
		}
		targetHash = head.Commit
	} else {
		h, err := r.resolveCommitish(target)
		if err != nil {
			return fmt.Errorf("branch: %w", err)
		}
		targetHash, _, err = r.peelToCommit(h)
		if err != nil {
			return fmt.Errorf("branch: %w", err)
		}
	}

	if err := r.UpdateRefCAS(ref, "", targetHash, "branch: created from "+targetHash.Short()); err != nil {
		return fmt.Errorf("branch: %w", err)
	}
	return nil
}

// DeleteBranch removes a branch ref. The currently checked-out branch
// cannot be deleted.
func (r *Repo) DeleteBranch(name string) error {
	head, err := r.ReadHead()
	if err != nil {
		return fmt.Errorf("branch: %w", err)
	}
	if head.Branch == name {
		return fmt.Errorf("branch %q is checked out: %w", name, ErrRefConflict)
	}
	if err := r.DeleteRef("refs/heads/" + name); err != nil {
		return fmt.Errorf("branch: %w", err)
	}
	return nil
}

// ListBranches returns all branches sorted by name.
func (r *Repo) ListBranches() ([]RefEntry, error) {
	entries, err := r.ListRefs("refs/heads/")
	if err != nil {
		return nil, fmt.Errorf("branch: %w", err)
	}
	for i := range entries {
		entries[i].Name = strings.TrimPrefix(entries[i].Name, "refs/heads/")
	}
	return entries, nil
}

func validateBranchName(name string) error {
	if name == "" || name == "HEAD" ||
		strings.HasPrefix(name, "-") || strings.HasPrefix(name, "/") ||
		strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".lock") ||
		strings.Contains(name, "..") || strings.ContainsAny(name, " \t\n~^:?*[\\") {
		return fmt.Errorf("invalid branch name %q: %w", name, ErrRefConflict)
	}
	return nil
}
