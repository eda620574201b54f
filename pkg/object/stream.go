package object

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Object stream format consumed/produced by transport collaborators.
// The whole stream is zstd-framed; inside, records are line-delimited:
//
//	rosa-objects 1
//	obj <type> <size> <hash>
//	<payload bytes>
//	...
//	end
//
// Delta encoding is deliberately absent; dedupe comes from content
// addressing on the receiving side.

const streamHeader = "rosa-objects 1"

// ExportObjects writes the given objects to w as a compressed stream.
// Hashes are exported in the order given; use ReachableList to produce a
// closed, deterministic set.
func (s *Store) ExportObjects(w io.Writer, hashes []Hash) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("export objects: %w", err)
	}

	bw := bufio.NewWriter(enc)
	fmt.Fprintf(bw, "%s\n", streamHeader)

	for _, h := range hashes {
		objType, payload, err := s.Read(h)
		if err != nil {
			enc.Close()
			return fmt.Errorf("export objects: %w", err)
		}
		fmt.Fprintf(bw, "obj %s %d %s\n", objType, len(payload), h)
		if _, err := bw.Write(payload); err != nil {
			enc.Close()
			return fmt.Errorf("export objects write: %w", err)
		}
	}

	fmt.Fprintln(bw, "end")
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("export objects flush: %w", err)
	}
	return enc.Close()
}

// ImportObjects reads an object stream from r, stores every object, and
// returns the hashes stored in stream order. Each record is re-hashed on
// arrival; a record whose payload does not hash to its declared id fails
// the import with ErrCorruptObject.
func (s *Store) ImportObjects(r io.Reader) ([]Hash, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("import objects: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	header, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("import objects header: %w", err)
	}
	if header != streamHeader {
		return nil, fmt.Errorf("import objects: unexpected header %q", header)
	}

	var stored []Hash
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("import objects record: %w", err)
		}
		if line == "end" {
			return stored, nil
		}

		fields := strings.Fields(line)
		if len(fields) != 4 || fields[0] != "obj" {
			return nil, fmt.Errorf("import objects: malformed record %q", line)
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			return nil, fmt.Errorf("import objects: bad size in %q", line)
		}
		objType := ObjectType(fields[1])
		declared := Hash(fields[3])

		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, fmt.Errorf("import objects payload: %w", err)
		}

		h, err := s.Write(objType, payload)
		if err != nil {
			return nil, fmt.Errorf("import objects store: %w", err)
		}
		if h != declared {
			return nil, &CorruptObjectError{Want: declared, Got: h}
		}
		stored = append(stored, h)
	}
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\n"), nil
}
