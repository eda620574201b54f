package repo

import (
	"fmt"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
)

// CreateTag points a lightweight tag directly at the resolved target.
func (r *Repo) CreateTag(name, target string) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	ref := "refs/tags/" + name
	if _, err := r.ResolveRef(ref); err == nil {
		return fmt.Errorf("tag %q already exists: %w", name, ErrRefConflict)
	}
	targetHash, err := r.resolveCommitish(targetOrHead(target))
	if err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	if err := r.UpdateRefCAS(ref, "", targetHash, "tag: "+name); err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	return nil
}

// CreateAnnotatedTag records a tag object carrying a message and
// tagger, then points refs/tags/<name> at it.
func (r *Repo) CreateAnnotatedTag(name, target, message string, tagger object.Identity) (object.Hash, error) {
	if err := validateBranchName(name); err != nil {
		return "", fmt.Errorf("tag: %w", err)
	}
	ref := "refs/tags/" + name
	if _, err := r.ResolveRef(ref); err == nil {
		return "", fmt.Errorf("tag %q already exists: %w", name, ErrRefConflict)
	}

	targetHash, err := r.resolveCommitish(targetOrHead(target))
	if err != nil {
		return "", fmt.Errorf("tag: %w", err)
	}
	targetType, _, err := r.Store.Read(targetHash)
	if err != nil {
		return "", fmt.Errorf("tag: read target: %w", err)
	}

	tagHash, err := r.Store.WriteTag(&object.TagObj{
		TargetHash: targetHash,
		TargetType: targetType,
		Name:       name,
		Tagger:     tagger,
		Message:    message,
	})
	if err != nil {
		return "", fmt.Errorf("tag: write: %w", err)
	}
	if err := r.UpdateRefCAS(ref, "", tagHash, "tag: "+name); err != nil {
		return "", fmt.Errorf("tag: %w", err)
	}
	return tagHash, nil
}

func (r *Repo) DeleteTag(name string) error {
	if err := r.DeleteRef("refs/tags/" + name); err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	return nil
}

// ListTags returns all tags sorted by name.
func (r *Repo) ListTags() ([]RefEntry, error) {
	entries, err := r.ListRefs("refs/tags/")
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	for i := range entries {
		entries[i].Name = strings.TrimPrefix(entries[i].Name, "refs/tags/")
	}
	return entries, nil
}

func targetOrHead(target string) string {
	if target == "" {
		return "HEAD"
	}
	return target
}
