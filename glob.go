package filemon

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Segment is a glob pattern for a single path segment, using
// filepath.Match syntax ("*", "?", character classes). Segments never span
// directory separators; recursive matching comes from composing them into a
// GlobPath.
type Segment struct {
	pattern string
}

// NewSegment validates pattern and returns it as a Segment.
func NewSegment(pattern string) (Segment, error) {
	if pattern == "" {
		return Segment{}, fmt.Errorf("empty glob segment")
	}
	if strings.ContainsRune(pattern, filepath.Separator) || strings.ContainsRune(pattern, '/') {
		return Segment{}, fmt.Errorf("glob segment %q contains a path separator", pattern)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return Segment{}, fmt.Errorf("glob segment %q: %w", pattern, err)
	}
	return Segment{pattern: pattern}, nil
}

// MustSegment is like NewSegment but panics on an invalid pattern.
// Intended for literals and tests.
func MustSegment(pattern string) Segment {
	seg, err := NewSegment(pattern)
	if err != nil {
		panic(err)
	}
	return seg
}

// Match reports whether a single directory entry name matches the segment.
func (s Segment) Match(name string) bool {
	ok, err := filepath.Match(s.pattern, name)
	return err == nil && ok
}

// String returns the segment's pattern source.
func (s Segment) String() string {
	return s.pattern
}

// GlobPath is a relative filesystem path of glob segments: zero or more
// directory segments followed by exactly one file segment. "proj*/ *.cabal"
// is Dirs=[proj*], File=*.cabal (without the space). Paths are interpreted
// relative to the monitor root.
type GlobPath struct {
	Dirs []Segment
	File Segment
}

// ParseGlobPath splits a slash-separated pattern into a GlobPath. This is
// path splitting only; each piece is still an opaque Segment pattern.
func ParseGlobPath(pattern string) (GlobPath, error) {
	parts := strings.Split(filepath.ToSlash(pattern), "/")
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := NewSegment(part)
		if err != nil {
			return GlobPath{}, fmt.Errorf("glob path %q: %w", pattern, err)
		}
		segs = append(segs, seg)
	}
	return GlobPath{Dirs: segs[:len(segs)-1], File: segs[len(segs)-1]}, nil
}

// MustParseGlobPath is like ParseGlobPath but panics on error.
func MustParseGlobPath(pattern string) GlobPath {
	gp, err := ParseGlobPath(pattern)
	if err != nil {
		panic(err)
	}
	return gp
}

// rest returns the glob path below the leading directory segment.
// Only valid when Dirs is non-empty.
func (p GlobPath) rest() GlobPath {
	return GlobPath{Dirs: p.Dirs[1:], File: p.File}
}

// String renders the glob path with forward slashes.
func (p GlobPath) String() string {
	parts := make([]string, 0, len(p.Dirs)+1)
	for _, seg := range p.Dirs {
		parts = append(parts, seg.String())
	}
	parts = append(parts, p.File.String())
	return strings.Join(parts, "/")
}
