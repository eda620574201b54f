package repo

import (
	"testing"

	"github.com/rosavcs/rosa/pkg/object"
)

func TestGC_PrunesUnreferencedObjects(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	stray, err := r.Store.WriteBlob(&object.Blob{Data: []byte("orphan scratch data")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	summary, err := r.GC()
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if summary.Pruned != 1 {
		t.Fatalf("Pruned = %d, want 1", summary.Pruned)
	}
	if r.Store.Has(stray) {
		t.Fatalf("stray blob %s should be gone", stray.Short())
	}
}

func TestGC_KeepsCommitHistory(t *testing.T) {
	r, c1, c2 := twoCommitRepo(t)

	summary, err := r.GC()
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if summary.Pruned != 0 {
		t.Fatalf("Pruned = %d, a fully referenced store has nothing to drop", summary.Pruned)
	}
	for _, h := range []object.Hash{c1, c2} {
		commit, err := r.Store.ReadCommit(h)
		if err != nil {
			t.Fatalf("ReadCommit %s: %v", h.Short(), err)
		}
		if _, err := r.Store.ReadTree(commit.TreeHash); err != nil {
			t.Fatalf("ReadTree %s: %v", commit.TreeHash.Short(), err)
		}
	}
}

func TestGC_ReflogProtectsAbandonedCommit(t *testing.T) {
	r, c1, c2 := twoCommitRepo(t)

	if err := r.Reset(string(c1), ResetHard); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if _, err := r.GC(); err != nil {
		t.Fatalf("GC: %v", err)
	}
	// c2 dangles from the branch but its reflog line still roots it.
	if _, err := r.Store.ReadCommit(c2); err != nil {
		t.Fatalf("ReadCommit %s: %v", c2.Short(), err)
	}
}

func TestGC_KeepsStagedBlobs(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("staged only"))

	summary, err := r.GC()
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if summary.Pruned != 0 {
		t.Fatalf("Pruned = %d, staged blobs are live", summary.Pruned)
	}

	entries, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(entries) != 1 || entries[0].Staged != StatusNew {
		t.Fatalf("Status = %v, staging must survive gc", entries)
	}
}
