package repo

import (
	"fmt"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
)

// ResetMode selects how much state Reset rewrites besides HEAD.
type ResetMode int

const (
	// ResetSoft moves HEAD only; index and worktree are untouched.
	ResetSoft ResetMode = iota
	// ResetMixed moves HEAD and rebuilds the index from the target
	// commit, leaving the worktree alone.
	ResetMixed
	// ResetHard moves HEAD and forces both index and worktree to the
	// target commit, discarding local changes.
	ResetHard
)

func (m ResetMode) String() string {
	switch m {
	case ResetSoft:
		return "soft"
	case ResetMixed:
		return "mixed"
	case ResetHard:
		return "hard"
	}
	return fmt.Sprintf("ResetMode(%d)", int(m))
}

// Reset moves the current branch tip (or the detached HEAD) to target
// and reconciles index and worktree according to mode.
func (r *Repo) Reset(target string, mode ResetMode) error {
	targetHash, err := r.resolveCommitish(target)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	commitHash, commit, err := r.peelToCommit(targetHash)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	head, err := r.ReadHead()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	if head.Branch != "" {
		err = r.UpdateRefCAS("refs/heads/"+head.Branch, head.Commit, commitHash,
			fmt.Sprintf("reset: moving to %s", commitHash.Short()))
	} else {
		err = r.SetHeadDetached(commitHash)
	}
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	// Abandoning a half-done merge is the point of resetting.
	if err := r.clearMergeHead(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	if mode == ResetSoft {
		return nil
	}

	lock, err := r.LockIndex()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer lock.Unlock()

	if mode == ResetMixed {
		ix, err := r.LoadIndexFromTree(commit.TreeHash)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		if err := r.WriteIndex(ix); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		return nil
	}

	targetFiles, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	targetMap := make(map[string]TreeFileEntry, len(targetFiles))
	for _, f := range targetFiles {
		targetMap[f.Path] = f
	}
	if err := r.materializeTree(targetFiles, targetMap); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	ix, err := r.indexForMaterializedTree(targetFiles)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := r.WriteIndex(ix); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// resolveCommitish accepts a ref name (branch, tag, HEAD) or a raw
// object id.
func (r *Repo) resolveCommitish(target string) (object.Hash, error) {
	if h, err := r.ResolveRef(target); err == nil {
		return h, nil
	}
	if !strings.HasPrefix(target, "refs/") {
		if h, err := r.ResolveRef("refs/tags/" + target); err == nil {
			return h, nil
		}
	}
	h := object.Hash(target)
	if h.IsValid() {
		return h, nil
	}
	return "", fmt.Errorf("cannot resolve %q: %w", target, ErrUnknownRef)
}
