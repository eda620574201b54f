package repo

import (
	"errors"
	"testing"

	"github.com/rosavcs/rosa/pkg/object"
)

func TestTag_Lightweight(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	tip := testCommit(t, r, "initial")

	if err := r.CreateTag("v1.0", ""); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	h, err := r.ResolveRef("refs/tags/v1.0")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if h != tip {
		t.Fatalf("tag = %s, want %s", h.Short(), tip.Short())
	}
}

func TestTag_Annotated(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	tip := testCommit(t, r, "initial")

	tagHash, err := r.CreateAnnotatedTag("v1.0", "", "first release", testAuthor())
	if err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}

	// The ref points at the tag object, not the commit.
	h, err := r.ResolveRef("refs/tags/v1.0")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if h != tagHash {
		t.Fatalf("ref = %s, want tag object %s", h.Short(), tagHash.Short())
	}

	tag, err := r.Store.ReadTag(tagHash)
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.TargetHash != tip || tag.TargetType != object.TypeCommit {
		t.Fatalf("tag target = %s (%s), want commit %s", tag.TargetHash.Short(), tag.TargetType, tip.Short())
	}
	if tag.Name != "v1.0" || tag.Message != "first release" {
		t.Fatalf("tag = %+v", tag)
	}
}

func TestTag_AnnotatedPeelsOnCheckout(t *testing.T) {
	r := twoBranchRepo(t)
	tip, _ := r.ResolveRef("refs/heads/feature")

	if _, err := r.CreateAnnotatedTag("marker", "feature", "pin it", testAuthor()); err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}
	if err := r.Checkout("refs/tags/marker", false); err != nil {
		t.Fatalf("Checkout tag: %v", err)
	}

	head, _ := r.ReadHead()
	if !head.Detached() || head.Commit != tip {
		t.Fatalf("HEAD = %+v, want detached at %s", head, tip.Short())
	}
}

func TestTag_Duplicate(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	if err := r.CreateTag("v1.0", ""); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.CreateTag("v1.0", ""); !errors.Is(err, ErrRefConflict) {
		t.Fatalf("err = %v, want ErrRefConflict", err)
	}
}

func TestTag_DeleteAndList(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	for _, name := range []string{"v2.0", "v1.0"} {
		if err := r.CreateTag(name, ""); err != nil {
			t.Fatalf("CreateTag(%q): %v", name, err)
		}
	}

	tags, err := r.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "v1.0" || tags[1].Name != "v2.0" {
		t.Fatalf("ListTags = %v, want v1.0 then v2.0", tags)
	}

	if err := r.DeleteTag("v1.0"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if err := r.DeleteTag("v1.0"); !errors.Is(err, ErrUnknownRef) {
		t.Fatalf("err = %v, want ErrUnknownRef", err)
	}
	tags, _ = r.ListTags()
	if len(tags) != 1 || tags[0].Name != "v2.0" {
		t.Fatalf("ListTags = %v after delete", tags)
	}
}
