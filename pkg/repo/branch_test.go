package repo

import (
	"errors"
	"testing"
)

func TestBranch_CreateAndList(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	tip := testCommit(t, r, "initial")

	if err := r.CreateBranch("feature", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CreateBranch("bugfix", string(tip)); err != nil {
		t.Fatalf("CreateBranch with target: %v", err)
	}

	branches, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	want := []string{"bugfix", "feature", DefaultBranch}
	if len(branches) != len(want) {
		t.Fatalf("ListBranches = %v, want %v", branches, want)
	}
	for i, name := range want {
		if branches[i].Name != name {
			t.Fatalf("branch[%d] = %q, want %q", i, branches[i].Name, name)
		}
		if branches[i].Hash != tip {
			t.Fatalf("branch %q = %s, want %s", name, branches[i].Hash.Short(), tip.Short())
		}
	}
}

func TestBranch_CreateDuplicate(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	if err := r.CreateBranch("feature", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CreateBranch("feature", ""); !errors.Is(err, ErrRefConflict) {
		t.Fatalf("err = %v, want ErrRefConflict", err)
	}
}

func TestBranch_CreateOnUnbornHead(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.CreateBranch("feature", ""); !errors.Is(err, ErrUnknownRef) {
		t.Fatalf("err = %v, want ErrUnknownRef", err)
	}
}

func TestBranch_Delete(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	if err := r.CreateBranch("feature", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.DeleteBranch("feature"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if _, err := r.ResolveRef("refs/heads/feature"); !errors.Is(err, ErrUnknownRef) {
		t.Fatalf("err = %v, want ErrUnknownRef after delete", err)
	}
}

func TestBranch_DeleteCheckedOut(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	if err := r.DeleteBranch(DefaultBranch); !errors.Is(err, ErrRefConflict) {
		t.Fatalf("err = %v, want ErrRefConflict for the checked-out branch", err)
	}
}

func TestBranch_NameValidation(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	for _, name := range []string{
		"", "HEAD", "-flag", "/abs", "trail/", "x.lock",
		"a..b", "has space", "carrot^", "wild*",
	} {
		if err := r.CreateBranch(name, ""); !errors.Is(err, ErrRefConflict) {
			t.Fatalf("CreateBranch(%q) err = %v, want ErrRefConflict", name, err)
		}
	}

	// Nested names are legal.
	if err := r.CreateBranch("wip/topic", ""); err != nil {
		t.Fatalf("CreateBranch(wip/topic): %v", err)
	}
}
