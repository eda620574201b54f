package repo

import (
	"strings"
	"testing"
)

func TestReflog_RecordsCommits(t *testing.T) {
	r, c1, c2 := twoCommitRepo(t)

	entries, err := r.ReadReflog("refs/heads/" + DefaultBranch)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	// Newest first.
	if entries[0].Old != c1 || entries[0].New != c2 {
		t.Fatalf("entries[0] = %s -> %s, want %s -> %s",
			entries[0].Old.Short(), entries[0].New.Short(), c1.Short(), c2.Short())
	}
	if entries[1].Old != zeroHash || entries[1].New != c1 {
		t.Fatalf("entries[1] = %s -> %s, want creation of %s",
			entries[1].Old.Short(), entries[1].New.Short(), c1.Short())
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Reason, "commit: ") {
			t.Fatalf("Reason = %q, want commit reason", e.Reason)
		}
		if e.Time.IsZero() {
			t.Fatal("reflog entry has no timestamp")
		}
	}
}

func TestReflog_ShortBranchName(t *testing.T) {
	r, _, c2 := twoCommitRepo(t)

	entries, err := r.ReadReflog(DefaultBranch)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 2 || entries[0].New != c2 {
		t.Fatalf("short name lookup = %v", entries)
	}
}

func TestReflog_MissingRefIsEmpty(t *testing.T) {
	r := newTestRepo(t)
	entries, err := r.ReadReflog("refs/heads/nope")
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want none", len(entries))
	}
}

func TestReflog_ReasonSanitized(t *testing.T) {
	r := newTestRepo(t)
	h := fakeHash('a')
	if err := r.UpdateRef("refs/heads/x", h, "line one\nline two\ttabbed"); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	entries, err := r.ReadReflog("refs/heads/x")
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if strings.ContainsAny(entries[0].Reason, "\n\t") {
		t.Fatalf("Reason = %q, control characters should be flattened", entries[0].Reason)
	}
}

func TestReflogHashes_CollectsAcrossRefs(t *testing.T) {
	r := newTestRepo(t)
	a, b := fakeHash('a'), fakeHash('b')
	if err := r.UpdateRef("refs/heads/one", a, "test"); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	if err := r.UpdateRef("refs/heads/two", b, "test"); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}

	hashes, err := r.reflogHashes()
	if err != nil {
		t.Fatalf("reflogHashes: %v", err)
	}
	seen := make(map[string]bool)
	for _, h := range hashes {
		seen[string(h)] = true
	}
	if !seen[string(a)] || !seen[string(b)] {
		t.Fatalf("hashes = %v, want both %s and %s", hashes, a.Short(), b.Short())
	}
	if seen[string(zeroHash)] {
		t.Fatal("zero hash must not appear as a live root")
	}
}

func TestReflog_CheckoutLeavesRefLogsAlone(t *testing.T) {
	r := twoBranchRepo(t)

	before, err := r.ReadReflog("refs/heads/feature")
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if err := r.Checkout("feature", false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	after, err := r.ReadReflog("refs/heads/feature")
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("branch reflog grew from %d to %d on checkout", len(before), len(after))
	}
}
