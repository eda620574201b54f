package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMerge_FastForward(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	if err := r.CreateBranch("feature", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.Checkout("feature", false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, "b.txt"), []byte("new file"))
	if err := r.Add([]string{"b.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tip := testCommit(t, r, "feature work")
	if err := r.Checkout(DefaultBranch, false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	result, err := r.Merge("feature", testAuthor())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.FastForward {
		t.Fatalf("result = %+v, want fast-forward", result)
	}
	if result.Hash != tip {
		t.Fatalf("Hash = %s, want %s", result.Hash.Short(), tip.Short())
	}

	head, _ := r.ReadHead()
	if head.Detached() || head.Branch != DefaultBranch || head.Commit != tip {
		t.Fatalf("HEAD = %+v, want %s attached to %s", head, tip.Short(), DefaultBranch)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "b.txt")); err != nil {
		t.Fatalf("b.txt should exist after fast-forward: %v", err)
	}
}

func TestMerge_AlreadyUpToDate(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	if err := r.CreateBranch("old", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, "a.txt"), []byte("v2"))
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tip := testCommit(t, r, "second")

	result, err := r.Merge("old", testAuthor())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.AlreadyUpToDate {
		t.Fatalf("result = %+v, want already up to date", result)
	}
	if result.Hash != tip {
		t.Fatalf("Hash = %s, branch tip must not move", result.Hash.Short())
	}
}

func TestMerge_ThreeWayAutoCommit(t *testing.T) {
	r := twoBranchRepo(t)

	mainTip, _ := r.ResolveRef("refs/heads/" + DefaultBranch)
	featureTip, _ := r.ResolveRef("refs/heads/feature")

	result, err := r.Merge("feature", testAuthor())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.FastForward || result.AlreadyUpToDate || len(result.Conflicts) != 0 {
		t.Fatalf("result = %+v, want a plain merge commit", result)
	}

	commit, err := r.Store.ReadCommit(result.Hash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 2 || commit.Parents[0] != mainTip || commit.Parents[1] != featureTip {
		t.Fatalf("Parents = %v, want [%s %s]", commit.Parents, mainTip.Short(), featureTip.Short())
	}
	if !strings.HasPrefix(commit.Message, "Merge feature into "+DefaultBranch) {
		t.Fatalf("Message = %q", commit.Message)
	}

	// Both sides' work survives.
	a, _ := os.ReadFile(filepath.Join(r.RootDir, "a.txt"))
	if string(a) != "main-v2" {
		t.Fatalf("a.txt = %q, want main-v2", a)
	}
	f, err := os.ReadFile(filepath.Join(r.RootDir, "feature.txt"))
	if err != nil || string(f) != "feature work" {
		t.Fatalf("feature.txt = %q, %v", f, err)
	}

	if pending, _ := r.mergeHead(); pending != "" {
		t.Fatalf("MERGE_HEAD = %s, want cleared", pending.Short())
	}
}

// conflictRepo edits the same line of shared.txt on both branches.
func conflictRepo(t *testing.T) *Repo {
	t.Helper()
	r := initRepoWithFile(t, "shared.txt", []byte("top\nmiddle\nbottom\n"))
	testCommit(t, r, "initial")

	if err := r.CreateBranch("feature", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	writeFile(t, filepath.Join(r.RootDir, "shared.txt"), []byte("top\nours\nbottom\n"))
	if err := r.Add([]string{"shared.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	testCommit(t, r, "main edit")

	if err := r.Checkout("feature", false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, "shared.txt"), []byte("top\ntheirs\nbottom\n"))
	if err := r.Add([]string{"shared.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	testCommit(t, r, "feature edit")

	if err := r.Checkout(DefaultBranch, false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	return r
}

func TestMerge_ConflictStopsWithMarkers(t *testing.T) {
	r := conflictRepo(t)
	featureTip, _ := r.ResolveRef("refs/heads/feature")

	result, err := r.Merge("feature", testAuthor())
	if !errors.Is(err, ErrMergeConflict) {
		t.Fatalf("err = %v, want ErrMergeConflict", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0] != "shared.txt" {
		t.Fatalf("Conflicts = %v", result.Conflicts)
	}

	data, _ := os.ReadFile(filepath.Join(r.RootDir, "shared.txt"))
	text := string(data)
	for _, marker := range []string{"<<<<<<< " + DefaultBranch, "ours", "=======", "theirs", ">>>>>>> feature"} {
		if !strings.Contains(text, marker) {
			t.Fatalf("shared.txt missing %q:\n%s", marker, text)
		}
	}

	pending, err := r.mergeHead()
	if err != nil {
		t.Fatalf("mergeHead: %v", err)
	}
	if pending != featureTip {
		t.Fatalf("MERGE_HEAD = %s, want %s", pending.Short(), featureTip.Short())
	}
}

func TestMerge_ResolveConflictThenCommit(t *testing.T) {
	r := conflictRepo(t)
	mainTip, _ := r.ResolveRef("refs/heads/" + DefaultBranch)
	featureTip, _ := r.ResolveRef("refs/heads/feature")

	if _, err := r.Merge("feature", testAuthor()); !errors.Is(err, ErrMergeConflict) {
		t.Fatalf("Merge err = %v, want ErrMergeConflict", err)
	}

	writeFile(t, filepath.Join(r.RootDir, "shared.txt"), []byte("top\nresolved\nbottom\n"))
	if err := r.Add([]string{"shared.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	result, err := r.Commit(CommitOptions{Message: "merge resolution", Author: testAuthor()})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	commit, err := r.Store.ReadCommit(result.Hash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 2 || commit.Parents[0] != mainTip || commit.Parents[1] != featureTip {
		t.Fatalf("Parents = %v, want [%s %s]", commit.Parents, mainTip.Short(), featureTip.Short())
	}
	if pending, _ := r.mergeHead(); pending != "" {
		t.Fatalf("MERGE_HEAD = %s, want cleared", pending.Short())
	}
}

func TestMerge_RefusesDirtyWorktree(t *testing.T) {
	r := conflictRepo(t)
	writeFile(t, filepath.Join(r.RootDir, "shared.txt"), []byte("uncommitted"))

	var dirty *DirtyPathError
	if _, err := r.Merge("feature", testAuthor()); !errors.As(err, &dirty) {
		t.Fatalf("err = %v, want DirtyPathError", err)
	}
}

func TestMerge_RefusesSecondMergeInProgress(t *testing.T) {
	r := conflictRepo(t)
	if _, err := r.Merge("feature", testAuthor()); !errors.Is(err, ErrMergeConflict) {
		t.Fatalf("Merge err = %v, want ErrMergeConflict", err)
	}
	if _, err := r.Merge("feature", testAuthor()); err == nil {
		t.Fatal("second Merge should refuse while MERGE_HEAD is set")
	}
}

func TestMergeBase_DivergedBranches(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	base := testCommit(t, r, "initial")

	if err := r.CreateBranch("feature", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, "a.txt"), []byte("main"))
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	mainTip := testCommit(t, r, "main edit")

	if err := r.Checkout("feature", false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, "b.txt"), []byte("side"))
	if err := r.Add([]string{"b.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	featureTip := testCommit(t, r, "feature edit")

	got, err := r.MergeBase(mainTip, featureTip)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if got != base {
		t.Fatalf("MergeBase = %s, want %s", got.Short(), base.Short())
	}

	// An ancestor pair resolves to the ancestor itself.
	got, err = r.MergeBase(base, mainTip)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if got != base {
		t.Fatalf("MergeBase = %s, want %s", got.Short(), base.Short())
	}
}
