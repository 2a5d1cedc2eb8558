package filemon

import "time"

// modTime is a filesystem modification time split into whole days since the
// Unix epoch and nanoseconds within the day. The split keeps the encoded
// form identical across platforms and time zones; the engine only ever
// compares modTimes for equality, never for ordering.
type modTime struct {
	day   int64
	nanos int64
}

// missingModTime is the sentinel recorded for a glob directory that did not
// exist when the state was built. Real stats always have nanos >= 0.
var missingModTime = modTime{day: -1, nanos: -1}

// modTimeOf splits t. Floor division keeps pre-epoch times well-formed.
func modTimeOf(t time.Time) modTime {
	sec := t.Unix()
	day := sec / (24 * 60 * 60)
	rem := sec - day*(24*60*60)
	if rem < 0 {
		day--
		rem += 24 * 60 * 60
	}
	return modTime{day: day, nanos: rem*1e9 + int64(t.Nanosecond())}
}

// singleKind tags the variants of singleState.
type singleKind uint8

const (
	// singleFile: the file existed at build time; tracked by mtime.
	singleFile singleKind = iota + 1
	// singleHashed: the file existed at build time; tracked by mtime and
	// content hash.
	singleHashed
	// singleAbsent: the path was absent at build time.
	singleAbsent
	// singleStickyChanged: a file declared as existing was already missing
	// at build time. Every probe of this state reports changed; the marker
	// exists so that Update never fails.
	singleStickyChanged
	// singleStickyHashChanged: same as singleStickyChanged for a hashed
	// declaration.
	singleStickyHashChanged
)

// singleState is the cached state of one non-glob path. mtime and hash are
// meaningful only for the kinds that carry them.
type singleState struct {
	kind  singleKind
	mtime modTime
	hash  uint64
}

// singleEntry pairs a root-relative path with its cached state.
type singleEntry struct {
	path  string
	state singleState
}

// globChild pairs a directory entry name with the glob state below it.
type globChild struct {
	name  string
	state globState
}

// globEntry is the cached metadata of one file matched by the final glob
// segment.
type globEntry struct {
	name  string
	mtime modTime
	hash  uint64
}

// globState is one node of a cached glob subtree. The tree mirrors the
// GlobPath that produced it: interior nodes are globDirs, leaves are
// globFiles. Children and entries are strictly sorted ascending by name
// with no duplicates, and every retained name matches the node's segment.
type globState interface {
	// hasMatchingFiles reports whether the subtree contains at least one
	// matched file.
	hasMatchingFiles() bool

	// glob reconstructs the glob path this subtree was built from.
	glob() GlobPath
}

// globDirs is an interior node: the mtime of the directory it describes
// plus per-matching-subdirectory child states. seg is the pattern the child
// names matched; rest is the glob path each child state was built from.
type globDirs struct {
	seg      Segment
	rest     GlobPath
	mtime    modTime
	children []globChild
}

func (g *globDirs) hasMatchingFiles() bool {
	for _, c := range g.children {
		if c.state.hasMatchingFiles() {
			return true
		}
	}
	return false
}

func (g *globDirs) glob() GlobPath {
	dirs := make([]Segment, 0, len(g.rest.Dirs)+1)
	dirs = append(dirs, g.seg)
	dirs = append(dirs, g.rest.Dirs...)
	return GlobPath{Dirs: dirs, File: g.rest.File}
}

// globFiles is a leaf node: the mtime of the directory it describes plus
// metadata for each file whose name matched seg.
type globFiles struct {
	seg     Segment
	mtime   modTime
	entries []globEntry
}

func (g *globFiles) hasMatchingFiles() bool {
	return len(g.entries) > 0
}

func (g *globFiles) glob() GlobPath {
	return GlobPath{File: g.seg}
}

// fileSetState is the full persisted snapshot for one cache file: cached
// single-path states keyed by path (stored sorted for stable encoding and
// probe order) plus the glob subtrees in declaration order.
type fileSetState struct {
	singles []singleEntry
	globs   []globState
}

// dependencies projects the snapshot back into the declared dependency
// list. Sticky markers project to the declaration that produced them, so a
// caller can feed the result straight back into Update.
func (s *fileSetState) dependencies() []Dependency {
	deps := make([]Dependency, 0, len(s.singles)+len(s.globs))
	for _, e := range s.singles {
		switch e.state.kind {
		case singleFile, singleStickyChanged:
			deps = append(deps, FileDependency{Path: e.path})
		case singleHashed, singleStickyHashChanged:
			deps = append(deps, HashedFileDependency{Path: e.path})
		case singleAbsent:
			deps = append(deps, AbsentDependency{Path: e.path})
		}
	}
	for _, g := range s.globs {
		deps = append(deps, GlobDependency{Glob: g.glob()})
	}
	return deps
}
