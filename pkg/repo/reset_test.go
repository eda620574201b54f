package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rosavcs/rosa/pkg/object"
)

// twoCommitRepo commits a.txt twice and returns both hashes.
func twoCommitRepo(t *testing.T) (*Repo, object.Hash, object.Hash) {
	t.Helper()
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	c1 := testCommit(t, r, "one")

	writeFile(t, filepath.Join(r.RootDir, "a.txt"), []byte("v2"))
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	c2 := testCommit(t, r, "two")
	return r, c1, c2
}

func TestReset_SoftMovesHeadOnly(t *testing.T) {
	r, c1, c2 := twoCommitRepo(t)

	if err := r.Reset(string(c1), ResetSoft); err != nil {
		t.Fatalf("Reset --soft: %v", err)
	}

	head, _ := r.ReadHead()
	if head.Commit != c1 || head.Branch != DefaultBranch {
		t.Fatalf("HEAD = %+v, want %s on %s", head, c1.Short(), DefaultBranch)
	}

	// Index still carries c2's content, so a.txt shows staged-modified.
	e := statusFor(t, r, "a.txt")
	if e.Staged != StatusModified {
		t.Fatalf("Staged = %v, want StatusModified after soft reset", e.Staged)
	}
	if e.Worktree != StatusClean {
		t.Fatalf("Worktree = %v, want clean", e.Worktree)
	}
	_ = c2
}

func TestReset_MixedRebuildsIndex(t *testing.T) {
	r, c1, _ := twoCommitRepo(t)

	if err := r.Reset(string(c1), ResetMixed); err != nil {
		t.Fatalf("Reset --mixed: %v", err)
	}

	// Index matches c1, worktree still has v2: unstaged-modified.
	e := statusFor(t, r, "a.txt")
	if e.Staged != StatusClean {
		t.Fatalf("Staged = %v, want clean after mixed reset", e.Staged)
	}
	if e.Worktree != StatusModified {
		t.Fatalf("Worktree = %v, want StatusModified", e.Worktree)
	}
	data, _ := os.ReadFile(filepath.Join(r.RootDir, "a.txt"))
	if string(data) != "v2" {
		t.Fatalf("worktree = %q, mixed reset must not touch files", data)
	}
}

func TestReset_HardRestoresWorktree(t *testing.T) {
	r, c1, _ := twoCommitRepo(t)

	// Local noise that hard reset must flatten.
	writeFile(t, filepath.Join(r.RootDir, "a.txt"), []byte("local mess"))

	if err := r.Reset(string(c1), ResetHard); err != nil {
		t.Fatalf("Reset --hard: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(r.RootDir, "a.txt"))
	if string(data) != "v1" {
		t.Fatalf("worktree = %q, want v1", data)
	}
	entries, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, e := range entries {
		if !e.Unmodified() {
			t.Fatalf("entry %+v should be clean after hard reset", e)
		}
	}
}

func TestReset_BranchNameTarget(t *testing.T) {
	r, c1, c2 := twoCommitRepo(t)

	if err := r.CreateBranch("pin", string(c1)); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.Reset("pin", ResetSoft); err != nil {
		t.Fatalf("Reset to branch name: %v", err)
	}
	head, _ := r.ReadHead()
	if head.Commit != c1 {
		t.Fatalf("HEAD = %s, want %s", head.Commit.Short(), c1.Short())
	}

	// The reflog still knows the abandoned tip.
	entries, err := r.ReadReflog("refs/heads/" + DefaultBranch)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.New == c2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("reflog should retain the pre-reset tip %s", c2.Short())
	}
}

func TestReset_HardAbortsMerge(t *testing.T) {
	r := conflictRepo(t)
	if _, err := r.Merge("feature", testAuthor()); err == nil {
		t.Fatal("Merge should conflict")
	}

	head, _ := r.ReadHead()
	if err := r.Reset(string(head.Commit), ResetHard); err != nil {
		t.Fatalf("Reset --hard: %v", err)
	}

	if pending, _ := r.mergeHead(); pending != "" {
		t.Fatalf("MERGE_HEAD = %s, want cleared", pending.Short())
	}
	data, _ := os.ReadFile(filepath.Join(r.RootDir, "shared.txt"))
	if string(data) != "top\nours\nbottom\n" {
		t.Fatalf("shared.txt = %q, want pre-merge content", data)
	}
}
