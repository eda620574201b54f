package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rosavcs/rosa/pkg/object"
)

func TestAdd_StagesFileContent(t *testing.T) {
	r := initRepoWithFile(t, "hello.txt", []byte("hello world\n"))

	ix, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	e, ok := ix.Get("hello.txt")
	if !ok {
		t.Fatal("hello.txt not staged")
	}
	blob, err := r.Store.ReadBlob(e.BlobHash)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(blob.Data) != "hello world\n" {
		t.Fatalf("blob = %q", blob.Data)
	}
	if e.Mode != "100644" {
		t.Fatalf("mode = %q, want 100644", e.Mode)
	}
}

func TestAdd_DirectoryRecursesAndIgnores(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, filepath.Join(r.RootDir, ".rosaignore"), []byte("*.tmp\nbuild/\n"))
	writeFile(t, filepath.Join(r.RootDir, "src", "a.go"), []byte("package a"))
	writeFile(t, filepath.Join(r.RootDir, "src", "deep", "b.go"), []byte("package b"))
	writeFile(t, filepath.Join(r.RootDir, "src", "scratch.tmp"), []byte("junk"))
	writeFile(t, filepath.Join(r.RootDir, "build", "out.bin"), []byte("binary"))

	if err := r.Add([]string{"."}); err != nil {
		t.Fatalf("Add .: %v", err)
	}

	ix, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	for _, want := range []string{"src/a.go", "src/deep/b.go", ".rosaignore"} {
		if _, ok := ix.Get(want); !ok {
			t.Errorf("%s should be staged", want)
		}
	}
	for _, skip := range []string{"src/scratch.tmp", "build/out.bin"} {
		if _, ok := ix.Get(skip); ok {
			t.Errorf("%s should be ignored", skip)
		}
	}
}

func TestAdd_MissingPathStagesDeletion(t *testing.T) {
	r := initRepoWithFile(t, "gone.txt", []byte("present"))
	testCommit(t, r, "initial")

	if err := os.Remove(filepath.Join(r.RootDir, "gone.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := r.Add([]string{"gone.txt"}); err != nil {
		t.Fatalf("Add of deleted path: %v", err)
	}

	ix, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if _, ok := ix.Get("gone.txt"); ok {
		t.Fatal("deleted path should leave the index")
	}
}

func TestAdd_RejectsNameTreeEncodingCannotCarry(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1"))
	testCommit(t, r, "initial")

	bad := "a\nb.txt"
	writeFile(t, filepath.Join(r.RootDir, bad), []byte("sneaky"))

	if err := r.Add([]string{bad}); !errors.Is(err, object.ErrMalformedObject) {
		t.Fatalf("Add(%q) error = %v, want ErrMalformedObject", bad, err)
	}

	// Nothing was staged, and the repository is still fully usable.
	ix, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if _, ok := ix.Get(bad); ok {
		t.Fatalf("%q should not be staged", bad)
	}
	entries, err := r.Status()
	if err != nil {
		t.Fatalf("Status after rejected add: %v", err)
	}
	for _, e := range entries {
		if e.Path == bad && e.Worktree != StatusUntracked {
			t.Fatalf("entry = %+v, want untracked", e)
		}
	}

	// The recursive walk refuses the same name.
	if err := r.Add([]string{"."}); !errors.Is(err, object.ErrMalformedObject) {
		t.Fatalf("Add(.) error = %v, want ErrMalformedObject", err)
	}
}

func TestAdd_UnknownPathFails(t *testing.T) {
	r := newTestRepo(t)
	if err := r.Add([]string{"does-not-exist.txt"}); err == nil {
		t.Fatal("Add of a nonexistent, unstaged path should fail")
	}
}

func TestAdd_ExecutableMode(t *testing.T) {
	r := newTestRepo(t)
	script := filepath.Join(r.RootDir, "run.sh")
	writeFile(t, script, []byte("#!/bin/sh\n"))
	if err := os.Chmod(script, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if err := r.Add([]string{"run.sh"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ix, _ := r.ReadIndex()
	e, ok := ix.Get("run.sh")
	if !ok || e.Mode != "100755" {
		t.Fatalf("entry = %+v, want mode 100755", e)
	}
}

func TestAdd_Symlink(t *testing.T) {
	r := initRepoWithFile(t, "target.txt", []byte("data"))
	link := filepath.Join(r.RootDir, "alias")
	if err := os.Symlink("target.txt", link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := r.Add([]string{"alias"}); err != nil {
		t.Fatalf("Add symlink: %v", err)
	}

	ix, _ := r.ReadIndex()
	e, ok := ix.Get("alias")
	if !ok || e.Mode != "120000" {
		t.Fatalf("entry = %+v, want mode 120000", e)
	}
	blob, err := r.Store.ReadBlob(e.BlobHash)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(blob.Data) != "target.txt" {
		t.Fatalf("symlink blob = %q, want link destination", blob.Data)
	}
}

func TestRemove_CachedKeepsWorktree(t *testing.T) {
	r := initRepoWithFile(t, "keep.txt", []byte("data"))

	if err := r.Remove([]string{"keep.txt"}, true); err != nil {
		t.Fatalf("Remove --cached: %v", err)
	}

	ix, _ := r.ReadIndex()
	if _, ok := ix.Get("keep.txt"); ok {
		t.Fatal("path should be unstaged")
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "keep.txt")); err != nil {
		t.Fatalf("worktree file should survive --cached removal: %v", err)
	}
}

func TestRemove_DeletesWorktreeAndEmptyDirs(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, filepath.Join(r.RootDir, "nested", "only.txt"), []byte("data"))
	if err := r.Add([]string{"nested/only.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := r.Remove([]string{"nested/only.txt"}, false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "nested")); !os.IsNotExist(err) {
		t.Fatalf("empty parent dir should be cleaned up, stat err = %v", err)
	}
}
