package repo

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rosavcs/rosa/pkg/object"
)

// zeroHash stands in for "no value" in reflog lines, marking ref
// creation and deletion.
const zeroHash = object.Hash("0000000000000000000000000000000000000000000000000000000000000000")

// ReflogEntry is one recorded ref transition, oldest first in the file.
type ReflogEntry struct {
	Old    object.Hash
	New    object.Hash
	Time   time.Time
	Reason string
}

// appendReflog records a ref transition under logs/<ref>. Reflog
// failures never roll back the ref update itself, but are surfaced so
// callers can warn.
func (r *Repo) appendReflog(ref string, old, new object.Hash, reason string) error {
	logPath := filepath.Join(r.MetaDir, "logs", filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog %q: %w", ref, err)
	}

	if old == "" {
		old = zeroHash
	}
	if new == "" {
		new = zeroHash
	}
	line := fmt.Sprintf("%s %s %d\t%s\n", old, new, time.Now().Unix(), sanitizeReflogReason(reason))

	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog %q: %w", ref, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("reflog %q: %w", ref, err)
	}
	return nil
}

// ReadReflog returns the recorded transitions for a ref, newest first.
// A ref with no log yields an empty slice.
func (r *Repo) ReadReflog(ref string) ([]ReflogEntry, error) {
	ref = normalizeRefName(ref)
	logPath := filepath.Join(r.MetaDir, "logs", filepath.FromSlash(ref))

	f, err := os.Open(logPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reflog %q: %w", ref, err)
	}
	defer f.Close()

	var entries []ReflogEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		entry, err := parseReflogLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("reflog %q: %w", ref, err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reflog %q: %w", ref, err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// reflogHashes collects every hash mentioned in any reflog, so pruning
// keeps recently abandoned commits alive.
func (r *Repo) reflogHashes() ([]object.Hash, error) {
	logsDir := filepath.Join(r.MetaDir, "logs")
	var hashes []object.Hash

	err := filepath.WalkDir(logsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(logsDir, path)
		if err != nil {
			return err
		}
		entries, err := r.ReadReflog(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Old != zeroHash && e.Old.IsValid() {
				hashes = append(hashes, e.Old)
			}
			if e.New != zeroHash && e.New.IsValid() {
				hashes = append(hashes, e.New)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan reflogs: %w", err)
	}
	return hashes, nil
}

func parseReflogLine(line string) (ReflogEntry, error) {
	head, reason, _ := strings.Cut(line, "\t")
	fields := strings.Fields(head)
	if len(fields) != 3 {
		return ReflogEntry{}, fmt.Errorf("malformed reflog line %q", line)
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ReflogEntry{}, fmt.Errorf("malformed reflog timestamp %q", fields[2])
	}
	return ReflogEntry{
		Old:    object.Hash(fields[0]),
		New:    object.Hash(fields[1]),
		Time:   time.Unix(ts, 0),
		Reason: reason,
	}, nil
}

func sanitizeReflogReason(reason string) string {
	reason = strings.ReplaceAll(reason, "\n", " ")
	return strings.ReplaceAll(reason, "\t", " ")
}
