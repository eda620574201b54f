package object

// Hash is a 64-character hex-encoded SHA-256 digest identifying a stored
// object. The empty string means "no object".
type Hash string

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
	TreeModeSymlink    = "120000"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// Identity is an author/committer/tagger line: who, when, and the UTC
// offset in force at the time (e.g. "+0200").
type Identity struct {
	Name      string
	Email     string
	Timestamp int64
	TZOffset  string
}

// TreeEntry is one entry in a tree object. For TreeModeDir entries Target
// references a subtree; for every other mode it references a blob (symlink
// blobs hold the link destination).
type TreeEntry struct {
	Name   string
	Mode   string
	Target Hash
}

// IsDir reports whether the entry references a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == TreeModeDir }

// TreeObj holds a list of tree entries, sorted by Name in raw byte order.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj represents a commit pointing to a tree with metadata. Parents
// are ordered: the first parent is the branch tip the commit advanced.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    Identity
	Committer Identity
	Signature string
	Message   string
}

// TagObj is an annotated tag pointing at another object.
type TagObj struct {
	TargetHash Hash
	TargetType ObjectType
	Name       string
	Tagger     Identity
	Message    string
}
