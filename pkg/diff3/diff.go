// Package diff3 provides line-oriented two-way diffing and three-way
// merging with conflict markers.
package diff3

// editKind tags a line in an edit script.
type editKind int

const (
	editKeep editKind = iota
	editDelete
	editInsert
)

type edit struct {
	kind editKind
	line string
}

// diffLines computes a minimal edit script turning a into b, using the
// Myers O(ND) greedy algorithm over whole lines.
func diffLines(a, b []string) []edit {
	n, m := len(a), len(b)
	max := n + m
	if max == 0 {
		return nil
	}

	// v[k] holds the furthest x on diagonal k; trace keeps a snapshot
	// per step so the path can be walked back.
	v := make(map[int]int, max)
	v[1] = 0
	var trace []map[int]int

	var d int
search:
	for d = 0; d <= max; d++ {
		snap := make(map[int]int, len(v))
		for k, x := range v {
			snap[k] = x
		}
		trace = append(trace, snap)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[k-1] < v[k+1]) {
				x = v[k+1]
			} else {
				x = v[k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	return backtrack(a, b, trace, d)
}

func backtrack(a, b []string, trace []map[int]int, d int) []edit {
	var rev []edit
	x, y := len(a), len(b)

	for ; d > 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[k-1] < v[k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := trace[d-1][prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, edit{editKeep, a[x]})
		}
		if d > 0 {
			if x == prevX {
				y--
				rev = append(rev, edit{editInsert, b[y]})
			} else {
				x--
				rev = append(rev, edit{editDelete, a[x]})
			}
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		rev = append(rev, edit{editKeep, a[x]})
	}

	out := make([]edit, len(rev))
	for i, e := range rev {
		out[len(rev)-1-i] = e
	}
	return out
}

// matchRegions returns, for each line index in base, the matching index
// in other, or -1 where base lines were removed or changed.
func matchRegions(base, other []string) []int {
	match := make([]int, len(base))
	for i := range match {
		match[i] = -1
	}

	bi, oi := 0, 0
	for _, e := range diffLines(base, other) {
		switch e.kind {
		case editKeep:
			match[bi] = oi
			bi++
			oi++
		case editDelete:
			bi++
		case editInsert:
			oi++
		}
	}
	return match
}
