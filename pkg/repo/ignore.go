package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreChecker decides whether a worktree path is outside version
// control. The metadata directories .rosa and .git are always ignored;
// additional patterns come from a .rosaignore file at the repo root.
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	hasSlash bool // pattern contains a slash, so match against full path
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository root.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{
		patterns: []ignorePattern{
			{pattern: MetaDirName, dirOnly: true},
			{pattern: ".git", dirOnly: true},
		},
	}

	f, err := os.Open(filepath.Join(repoRoot, ".rosaignore"))
	if err != nil {
		return ic
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p := parseIgnoreLine(scanner.Text()); p != nil {
			ic.patterns = append(ic.patterns, *p)
		}
	}
	return ic
}

// parseIgnoreLine parses one .rosaignore line. Returns nil for blanks and
// comments.
func parseIgnoreLine(line string) *ignorePattern {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	p.hasSlash = strings.Contains(line, "/")
	p.pattern = line
	return p
}

// IsIgnored reports whether a repo-relative slash path is ignored. Last
// matching pattern wins, so negations can re-include earlier matches.
func (ic *IgnoreChecker) IsIgnored(path string) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for _, p := range ic.patterns {
		if p.matches(path) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (p *ignorePattern) matches(path string) bool {
	// Directory patterns match the directory itself and everything below.
	if p.dirOnly {
		if path == p.pattern || strings.HasPrefix(path, p.pattern+"/") {
			return true
		}
		if !p.hasSlash {
			// Match the directory at any depth.
			for _, seg := range strings.Split(filepath.Dir(path), "/") {
				if ok, _ := filepath.Match(p.pattern, seg); ok {
					return true
				}
			}
		}
		return false
	}

	if p.hasSlash {
		matched, _ := filepath.Match(p.pattern, path)
		return matched
	}
	matched, _ := filepath.Match(p.pattern, filepath.Base(path))
	return matched
}
