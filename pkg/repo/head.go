package repo

import (
	"fmt"
	"strings"

	"github.com/rosavcs/rosa/pkg/object"
)

// Head is the tagged state of the HEAD reference: attached to a branch,
// or detached at a commit.
type Head struct {
	// Branch is the branch name (e.g. "main") when attached, "" when
	// detached.
	Branch string
	// Commit is the resolved commit id. Empty while attached to an
	// unborn branch with no commits.
	Commit object.Hash
}

// Detached reports whether HEAD points directly at a commit id.
func (h Head) Detached() bool { return h.Branch == "" }

// ReadHead reads .rosa/HEAD into its tagged form.
func (r *Repo) ReadHead() (Head, error) {
	content, err := r.readRefContent("HEAD")
	if err != nil {
		return Head{}, fmt.Errorf("read HEAD: %w", err)
	}

	if target, ok := strings.CutPrefix(content, symbolicRefPrefix); ok {
		target = strings.TrimSpace(target)
		branch := strings.TrimPrefix(target, "refs/heads/")
		head := Head{Branch: branch}
		// Unborn branches resolve to nothing; that is not an error here.
		if h, err := r.ResolveRef(target); err == nil {
			head.Commit = h
		}
		return head, nil
	}

	h := object.Hash(content)
	if !h.IsValid() {
		return Head{}, fmt.Errorf("read HEAD: invalid content %q: %w", content, ErrInvalidRepository)
	}
	return Head{Commit: h}, nil
}

// SetHeadBranch attaches HEAD to the named branch.
func (r *Repo) SetHeadBranch(branch string) error {
	return r.CreateSymbolicRef("HEAD", "refs/heads/"+branch)
}

// SetHeadDetached points HEAD directly at a commit id.
func (r *Repo) SetHeadDetached(h object.Hash) error {
	if !h.IsValid() {
		return fmt.Errorf("detach HEAD: invalid hash %q", h)
	}
	old, _ := r.ResolveRef("HEAD")
	if err := atomicWriteFile(r.refFilePath("HEAD"), []byte(string(h)+"\n"), 0o644); err != nil {
		return fmt.Errorf("detach HEAD: %w", err)
	}
	if err := r.appendReflog("HEAD", old, h, "checkout"); err != nil {
		return fmt.Errorf("detach HEAD: reflog: %w", err)
	}
	return nil
}

// CurrentBranch returns the branch HEAD is attached to, or "" when
// detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.ReadHead()
	if err != nil {
		return "", err
	}
	return head.Branch, nil
}
