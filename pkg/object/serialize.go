package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Encoding is deterministic: identical logical content always produces
// byte-identical output, so object hashes are stable. Trees sort entries
// by raw byte order of name; commits and tags write headers in fixed
// order with canonical integer timestamps.

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// FormatIdentity renders an identity as "Name <email> timestamp offset".
func FormatIdentity(id Identity) string {
	tz := id.TZOffset
	if tz == "" {
		tz = "+0000"
	}
	return fmt.Sprintf("%s <%s> %d %s", id.Name, id.Email, id.Timestamp, tz)
}

// ParseIdentity parses the canonical identity line format.
func ParseIdentity(s string) (Identity, error) {
	lt := strings.LastIndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt < 0 || gt < lt {
		return Identity{}, fmt.Errorf("identity %q: missing email: %w", s, ErrMalformedObject)
	}

	name := strings.TrimRight(s[:lt], " ")
	email := s[lt+1 : gt]

	rest := strings.Fields(s[gt+1:])
	if len(rest) != 2 {
		return Identity{}, fmt.Errorf("identity %q: missing timestamp: %w", s, ErrMalformedObject)
	}
	ts, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("identity %q: bad timestamp: %w", s, ErrMalformedObject)
	}

	return Identity{Name: name, Email: email, Timestamp: ts, TZOffset: rest[1]}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries are sorted by raw byte order
// of Name for deterministic output. Each entry is one line:
//
//	mode target name
func MarshalTree(tr *TreeObj) []byte {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s %s %s\n", e.Mode, e.Target, e.Name)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form. Entries must be
// sorted, unique, and well-formed, or the tree is rejected as malformed.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return tr, nil
	}
	prev := ""
	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("tree entry %q: %w", line, ErrMalformedObject)
		}
		mode, target, name := parts[0], Hash(parts[1]), parts[2]
		if !validTreeMode(mode) {
			return nil, fmt.Errorf("tree entry %q: unknown mode %q: %w", name, mode, ErrMalformedObject)
		}
		if !target.IsValid() {
			return nil, fmt.Errorf("tree entry %q: bad target hash: %w", name, ErrMalformedObject)
		}
		if err := ValidateEntryName(name); err != nil {
			return nil, err
		}
		if prev != "" && name <= prev {
			return nil, fmt.Errorf("tree entry %q: out of order after %q: %w", name, prev, ErrMalformedObject)
		}
		prev = name
		tr.Entries = append(tr.Entries, TreeEntry{Name: name, Mode: mode, Target: target})
	}
	return tr, nil
}

func validTreeMode(mode string) bool {
	switch mode {
	case TreeModeDir, TreeModeFile, TreeModeExecutable, TreeModeSymlink:
		return true
	}
	return false
}

// ValidateEntryName reports whether name can appear in a serialized
// tree. The line-oriented encoding reserves NUL and newline, and the
// path components "." and ".." never name real entries. Writers check
// names before an object is built so a bad name fails the staging
// operation instead of poisoning the store.
func ValidateEntryName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("tree entry name %q: %w", name, ErrMalformedObject)
	}
	if strings.ContainsAny(name, "/\x00\n") {
		return fmt.Errorf("tree entry name %q: invalid character: %w", name, ErrMalformedObject)
	}
	return nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more)
//	author Name <email> timestamp offset
//	committer Name <email> timestamp offset
//	signature S  (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", FormatIdentity(c.Author))
	fmt.Fprintf(&buf, "committer %s\n", FormatIdentity(c.Committer))
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	header, message, err := splitHeaderBody(data, "commit")
	if err != nil {
		return nil, err
	}

	c := &CommitObj{Message: message}
	sawAuthor, sawCommitter := false, false
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("commit header line %q: %w", line, ErrMalformedObject)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			p := Hash(val)
			if !p.IsValid() {
				return nil, fmt.Errorf("commit parent %q: %w", val, ErrMalformedObject)
			}
			c.Parents = append(c.Parents, p)
		case "author":
			c.Author, err = ParseIdentity(val)
			if err != nil {
				return nil, err
			}
			sawAuthor = true
		case "committer":
			c.Committer, err = ParseIdentity(val)
			if err != nil {
				return nil, err
			}
			sawCommitter = true
		case "signature":
			c.Signature = val
		default:
			return nil, fmt.Errorf("commit header key %q: %w", key, ErrMalformedObject)
		}
	}
	if !c.TreeHash.IsValid() {
		return nil, fmt.Errorf("commit tree %q: %w", c.TreeHash, ErrMalformedObject)
	}
	if !sawAuthor || !sawCommitter {
		return nil, fmt.Errorf("commit missing author or committer: %w", ErrMalformedObject)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// TagObj
// ---------------------------------------------------------------------------

// MarshalTag serializes a TagObj:
//
//	object H
//	type commit
//	tag name
//	tagger Name <email> timestamp offset
//
//	message
func MarshalTag(t *TagObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.TargetHash)
	fmt.Fprintf(&buf, "type %s\n", t.TargetType)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", FormatIdentity(t.Tagger))
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// UnmarshalTag parses a TagObj from its serialized form.
func UnmarshalTag(data []byte) (*TagObj, error) {
	header, message, err := splitHeaderBody(data, "tag")
	if err != nil {
		return nil, err
	}

	t := &TagObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("tag header line %q: %w", line, ErrMalformedObject)
		}
		switch key {
		case "object":
			t.TargetHash = Hash(val)
		case "type":
			t.TargetType = ObjectType(val)
		case "tag":
			t.Name = val
		case "tagger":
			t.Tagger, err = ParseIdentity(val)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("tag header key %q: %w", key, ErrMalformedObject)
		}
	}
	if !t.TargetHash.IsValid() {
		return nil, fmt.Errorf("tag target %q: %w", t.TargetHash, ErrMalformedObject)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("tag missing name: %w", ErrMalformedObject)
	}
	return t, nil
}

func splitHeaderBody(data []byte, kind string) (header, body string, err error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return "", "", fmt.Errorf("%s missing header/message separator: %w", kind, ErrMalformedObject)
	}
	return string(data[:idx]), string(data[idx+2:]), nil
}
