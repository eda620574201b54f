package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rosavcs/rosa/pkg/object"
)

const mergeHeadName = "MERGE_HEAD"

// CommitSigner produces a detached signature over the canonical commit
// payload. Implementations live with the CLI so the core stays free of
// key handling.
type CommitSigner func(payload []byte) (string, error)

type CommitOptions struct {
	Message   string
	Author    object.Identity
	Committer object.Identity
	Signer    CommitSigner

	// AllowEmpty records a commit even when the index is empty or the
	// tree matches the current tip.
	AllowEmpty bool
}

type CommitResult struct {
	Hash    object.Hash
	Tree    object.Hash
	Parents []object.Hash

	// Branch is the ref that advanced, empty when HEAD was detached.
	Branch   string
	Detached bool
}

// Commit snapshots the index into a tree, records a commit pointing at
// it, and advances the current branch with a compare-and-swap on the
// old tip. With a detached HEAD the new commit becomes the detached
// position instead.
func (r *Repo) Commit(opts CommitOptions) (*CommitResult, error) {
	if strings.TrimSpace(opts.Message) == "" {
		return nil, errors.New("commit: empty message")
	}
	if opts.Author.Name == "" || opts.Author.Email == "" {
		return nil, errors.New("commit: author identity not configured")
	}
	if opts.Committer.Name == "" {
		opts.Committer = opts.Author
	}

	lock, err := r.LockIndex()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	defer lock.Unlock()

	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	head, err := r.ReadHead()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	parents := []object.Hash{}
	if head.Commit != "" {
		parents = append(parents, head.Commit)
	}
	mergeParent, err := r.mergeHead()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if mergeParent != "" {
		parents = append(parents, mergeParent)
	}

	treeHash, err := r.BuildTreeFromIndex(ix)
	if err != nil {
		return nil, fmt.Errorf("commit: build tree: %w", err)
	}

	if !opts.AllowEmpty && mergeParent == "" {
		if ix.Len() == 0 {
			return nil, ErrNothingToCommit
		}
		if head.Commit != "" {
			parent, err := r.Store.ReadCommit(head.Commit)
			if err != nil {
				return nil, fmt.Errorf("commit: read parent: %w", err)
			}
			if parent.TreeHash == treeHash {
				return nil, ErrNothingToCommit
			}
		}
	}

	commit := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    opts.Author,
		Committer: opts.Committer,
		Message:   opts.Message,
	}
	if opts.Signer != nil {
		sig, err := opts.Signer(object.CommitSigningPayload(commit))
		if err != nil {
			return nil, fmt.Errorf("commit: sign: %w", err)
		}
		commit.Signature = sig
	}

	commitHash, err := r.Store.WriteCommit(commit)
	if err != nil {
		return nil, fmt.Errorf("commit: write: %w", err)
	}

	result := &CommitResult{
		Hash:    commitHash,
		Tree:    treeHash,
		Parents: parents,
	}
	if head.Branch != "" {
		if err := r.UpdateRefCAS("refs/heads/"+head.Branch, head.Commit, commitHash, "commit: "+firstLine(opts.Message)); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		result.Branch = head.Branch
	} else {
		if err := r.SetHeadDetached(commitHash); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		result.Detached = true
	}

	if mergeParent != "" {
		if err := r.clearMergeHead(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
	}
	return result, nil
}

// mergeHead returns the pending merge parent, or empty when no merge is
// in progress.
func (r *Repo) mergeHead() (object.Hash, error) {
	data, err := os.ReadFile(filepath.Join(r.MetaDir, mergeHeadName))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	h := object.Hash(strings.TrimSpace(string(data)))
	if !h.IsValid() {
		return "", fmt.Errorf("malformed %s: %w", mergeHeadName, ErrInvalidRepository)
	}
	return h, nil
}

func (r *Repo) setMergeHead(h object.Hash) error {
	return atomicWriteFile(filepath.Join(r.MetaDir, mergeHeadName), []byte(h+"\n"), 0o644)
}

func (r *Repo) clearMergeHead() error {
	err := os.Remove(filepath.Join(r.MetaDir, mergeHeadName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LogEntry pairs a commit with its id for history listings.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks history from start (defaulting to HEAD) along first
// parents, newest first, up to limit entries. limit <= 0 means no cap.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	if start == "" {
		head, err := r.ReadHead()
		if err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
		if head.Commit == "" {
			return nil, nil
		}
		start = head.Commit
	}

	var entries []LogEntry
	cur := start
	for cur != "" {
		if limit > 0 && len(entries) >= limit {
			break
		}
		commit, err := r.Store.ReadCommit(cur)
		if err != nil {
			return nil, fmt.Errorf("log: read %s: %w", cur.Short(), err)
		}
		entries = append(entries, LogEntry{Hash: cur, Commit: commit})
		if len(commit.Parents) == 0 {
			break
		}
		cur = commit.Parents[0]
	}
	return entries, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// NowIdentity builds an identity stamped with the current local time.
func NowIdentity(name, email string) object.Identity {
	now := time.Now()
	return object.Identity{
		Name:      name,
		Email:     email,
		Timestamp: now.Unix(),
		TZOffset:  now.Format("-0700"),
	}
}
