package diff3

import (
	"bytes"
	"strings"
)

// MergeResult carries the merged content and whether any region needed
// conflict markers.
type MergeResult struct {
	Content   []byte
	Conflicts bool
}

// Labels name the two sides in conflict markers.
type Labels struct {
	Ours   string
	Theirs string
}

// Merge performs a three-way line merge of ours and theirs against
// base. Regions changed on only one side take that side; regions
// changed identically on both sides merge clean; diverging regions are
// wrapped in conflict markers.
func Merge(base, ours, theirs []byte, labels Labels) MergeResult {
	baseLines := splitLines(base)
	ourLines := splitLines(ours)
	theirLines := splitLines(theirs)

	ourMatch := matchRegions(baseLines, ourLines)
	theirMatch := matchRegions(baseLines, theirLines)

	var out []string
	conflicts := false

	bi, oi, ti := 0, 0, 0
	for bi < len(baseLines) || oi < len(ourLines) || ti < len(theirLines) {
		// Stable region: the current base line survives on both sides.
		if bi < len(baseLines) && ourMatch[bi] == oi && theirMatch[bi] == ti {
			out = append(out, baseLines[bi])
			bi++
			oi++
			ti++
			continue
		}

		// Unstable region: advance base to the next line matched by
		// both sides, collecting each side's replacement.
		nextB := bi
		for nextB < len(baseLines) && (ourMatch[nextB] < 0 || theirMatch[nextB] < 0) {
			nextB++
		}
		ourEnd, theirEnd := len(ourLines), len(theirLines)
		if nextB < len(baseLines) {
			ourEnd = ourMatch[nextB]
			theirEnd = theirMatch[nextB]
		}

		ourChunk := ourLines[oi:ourEnd]
		theirChunk := theirLines[ti:theirEnd]
		baseChunk := baseLines[bi:nextB]

		switch {
		case equalLines(ourChunk, baseChunk):
			out = append(out, theirChunk...)
		case equalLines(theirChunk, baseChunk):
			out = append(out, ourChunk...)
		case equalLines(ourChunk, theirChunk):
			out = append(out, ourChunk...)
		default:
			conflicts = true
			out = append(out, "<<<<<<< "+labels.Ours)
			out = append(out, ourChunk...)
			out = append(out, "=======")
			out = append(out, theirChunk...)
			out = append(out, ">>>>>>> "+labels.Theirs)
		}

		bi = nextB
		oi = ourEnd
		ti = theirEnd
	}

	return MergeResult{Content: joinLines(out), Conflicts: conflicts}
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
