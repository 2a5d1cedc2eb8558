package filemon

import "fmt"

// Dependency is a single declared thing on disk whose state may invalidate
// a cached result. Implementations are FileDependency, HashedFileDependency,
// AbsentDependency and GlobDependency; paths are relative to the monitor
// root.
type Dependency interface {
	// String returns a short description of the dependency.
	String() string

	isDependency()
}

// FileDependency declares a file expected to exist, tracked by its
// modification time.
type FileDependency struct {
	Path string
}

func (d FileDependency) String() string { return fmt.Sprintf("file:%s", d.Path) }
func (FileDependency) isDependency()    {}

// HashedFileDependency declares a file expected to exist, tracked by
// modification time and content hash. The mtime is a fast reject; the hash
// is the tiebreaker, so touching the file without changing its content does
// not invalidate the result.
type HashedFileDependency struct {
	Path string
}

func (d HashedFileDependency) String() string { return fmt.Sprintf("hashed:%s", d.Path) }
func (HashedFileDependency) isDependency()    {}

// AbsentDependency declares a path expected to not exist.
type AbsentDependency struct {
	Path string
}

func (d AbsentDependency) String() string { return fmt.Sprintf("absent:%s", d.Path) }
func (AbsentDependency) isDependency()    {}

// GlobDependency declares the set of files matching a glob path.
type GlobDependency struct {
	Glob GlobPath
}

func (d GlobDependency) String() string { return fmt.Sprintf("glob:%s", d.Glob) }
func (GlobDependency) isDependency()    {}

// SearchPath declares the outcome of a file search: the file was found at
// foundAt after probing each path in notFoundAt. The result stays valid as
// long as the found file is unchanged and no earlier candidate appears.
func SearchPath(notFoundAt []string, foundAt string) []Dependency {
	deps := make([]Dependency, 0, len(notFoundAt)+1)
	for _, p := range notFoundAt {
		deps = append(deps, AbsentDependency{Path: p})
	}
	return append(deps, FileDependency{Path: foundAt})
}

// HashedSearchPath is SearchPath with the found file tracked by content
// hash rather than mtime alone.
func HashedSearchPath(notFoundAt []string, foundAt string) []Dependency {
	deps := make([]Dependency, 0, len(notFoundAt)+1)
	for _, p := range notFoundAt {
		deps = append(deps, AbsentDependency{Path: p})
	}
	return append(deps, HashedFileDependency{Path: foundAt})
}
