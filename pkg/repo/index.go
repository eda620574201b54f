package repo

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rosavcs/rosa/pkg/object"
)

// The index is a single binary file with a checksum trailer:
//
//	"RIDX" | u32 version | u32 entry count
//	per entry (path-sorted):
//	  u16 path length | path bytes | 32-byte blob digest |
//	  u32 mode (octal value) | i64 size | i64 mtime nanos
//	32-byte SHA-256 over everything above
//
// A checksum mismatch fails the read with ErrCorruptIndex rather than
// loading partial state. All integers are big-endian.

var indexMagic = [4]byte{'R', 'I', 'D', 'X'}

const indexVersion = 1

// IndexEntry records the staged state of a single path. Size and
// ModTimeNano cache stat metadata for change detection; Size -1 forces
// the next status to re-hash the file.
type IndexEntry struct {
	Path        string
	BlobHash    object.Hash
	Mode        string
	Size        int64
	ModTimeNano int64
}

// Index is the staging area: a path-keyed table describing the next
// commit's content.
type Index struct {
	entries map[string]*IndexEntry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]*IndexEntry)}
}

// Stage inserts or replaces the entry for its path.
func (ix *Index) Stage(e IndexEntry) {
	e.Mode = normalizeFileMode(e.Mode)
	ix.entries[e.Path] = &e
}

// Unstage removes the entry for path, reporting whether it was present.
func (ix *Index) Unstage(path string) bool {
	if _, ok := ix.entries[path]; !ok {
		return false
	}
	delete(ix.entries, path)
	return true
}

// Get returns the entry for path.
func (ix *Index) Get(path string) (*IndexEntry, bool) {
	e, ok := ix.entries[path]
	return e, ok
}

// Len returns the number of staged paths.
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns all entries sorted by path.
func (ix *Index) Entries() []*IndexEntry {
	out := make([]*IndexEntry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (r *Repo) indexPath() string {
	return filepath.Join(r.MetaDir, "index")
}

// ReadIndex loads the staging area from .rosa/index. A missing file is an
// empty index, not an error.
func (r *Repo) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewIndex(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	ix, err := decodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return ix, nil
}

// WriteIndex atomically rewrites .rosa/index.
func (r *Repo) WriteIndex(ix *Index) error {
	data, err := encodeIndex(ix)
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := atomicWriteFile(r.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// IndexLock is an exclusive lock over the index file, held across a
// read-modify-write sequence.
type IndexLock struct {
	path string
}

// LockIndex takes the exclusive index lock. If another process holds it,
// the call fails fast with ErrIndexLocked instead of blocking.
func (r *Repo) LockIndex() (*IndexLock, error) {
	lockPath := r.indexPath() + ".lock"
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("lock %s: %w", lockPath, ErrIndexLocked)
		}
		return nil, fmt.Errorf("lock index: %w", err)
	}
	f.Close()
	return &IndexLock{path: lockPath}, nil
}

// Unlock releases the lock. Safe to call more than once.
func (l *IndexLock) Unlock() {
	if l.path != "" {
		os.Remove(l.path)
		l.path = ""
	}
}

func encodeIndex(ix *Index) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(indexMagic[:])
	binary.Write(&buf, binary.BigEndian, uint32(indexVersion))
	binary.Write(&buf, binary.BigEndian, uint32(ix.Len()))

	for _, e := range ix.Entries() {
		raw, err := e.BlobHash.Raw()
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Path, err)
		}
		mode, err := strconv.ParseUint(normalizeFileMode(e.Mode), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad mode %q", e.Path, e.Mode)
		}
		if len(e.Path) > 0xFFFF {
			return nil, fmt.Errorf("entry path too long (%d bytes)", len(e.Path))
		}

		binary.Write(&buf, binary.BigEndian, uint16(len(e.Path)))
		buf.WriteString(e.Path)
		buf.Write(raw)
		binary.Write(&buf, binary.BigEndian, uint32(mode))
		binary.Write(&buf, binary.BigEndian, e.Size)
		binary.Write(&buf, binary.BigEndian, e.ModTimeNano)
	}

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

func decodeIndex(data []byte) (*Index, error) {
	if len(data) < len(indexMagic)+8+sha256.Size {
		return nil, fmt.Errorf("truncated (%d bytes): %w", len(data), ErrCorruptIndex)
	}

	body := data[:len(data)-sha256.Size]
	trailer := data[len(data)-sha256.Size:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("checksum mismatch: %w", ErrCorruptIndex)
	}

	rd := bytes.NewReader(body)
	var magic [4]byte
	if _, err := rd.Read(magic[:]); err != nil || magic != indexMagic {
		return nil, fmt.Errorf("bad magic: %w", ErrCorruptIndex)
	}
	var version, count uint32
	if err := binary.Read(rd, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("version: %w", ErrCorruptIndex)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported version %d: %w", version, ErrCorruptIndex)
	}
	if err := binary.Read(rd, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("entry count: %w", ErrCorruptIndex)
	}

	ix := NewIndex()
	prev := ""
	for i := uint32(0); i < count; i++ {
		var pathLen uint16
		if err := binary.Read(rd, binary.BigEndian, &pathLen); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, ErrCorruptIndex)
		}
		pathBytes := make([]byte, pathLen)
		if _, err := rd.Read(pathBytes); err != nil {
			return nil, fmt.Errorf("entry %d path: %w", i, ErrCorruptIndex)
		}
		raw := make([]byte, sha256.Size)
		if _, err := rd.Read(raw); err != nil {
			return nil, fmt.Errorf("entry %d digest: %w", i, ErrCorruptIndex)
		}
		var mode uint32
		var size, mtime int64
		if err := binary.Read(rd, binary.BigEndian, &mode); err != nil {
			return nil, fmt.Errorf("entry %d mode: %w", i, ErrCorruptIndex)
		}
		if err := binary.Read(rd, binary.BigEndian, &size); err != nil {
			return nil, fmt.Errorf("entry %d size: %w", i, ErrCorruptIndex)
		}
		if err := binary.Read(rd, binary.BigEndian, &mtime); err != nil {
			return nil, fmt.Errorf("entry %d mtime: %w", i, ErrCorruptIndex)
		}

		path := string(pathBytes)
		if path <= prev {
			return nil, fmt.Errorf("entry %q out of order: %w", path, ErrCorruptIndex)
		}
		prev = path

		ix.entries[path] = &IndexEntry{
			Path:        path,
			BlobHash:    object.Hash(hex.EncodeToString(raw)),
			Mode:        strconv.FormatUint(uint64(mode), 8),
			Size:        size,
			ModTimeNano: mtime,
		}
	}
	if rd.Len() != 0 {
		return nil, fmt.Errorf("trailing bytes after entries: %w", ErrCorruptIndex)
	}
	return ix, nil
}
