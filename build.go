package filemon

import (
	"fmt"
	"path/filepath"
	"sort"
)

// buildState walks the filesystem and produces a fresh snapshot for the
// declared dependencies. It never fails on missing files: a file that
// should have existed is recorded as a sticky-changed marker, which makes
// every later probe report changed. Later declarations of the same single
// path overwrite earlier ones.
func (s *fileScan) buildState(deps []Dependency) (*fileSetState, error) {
	singles := make(map[string]singleState)
	var globs []globState

	for _, dep := range deps {
		switch dep := dep.(type) {
		case FileDependency:
			st, err := handleMissing(singleState{kind: singleStickyChanged}, func() (singleState, error) {
				mt, err := s.mtime(dep.Path)
				return singleState{kind: singleFile, mtime: mt}, err
			})
			if err != nil {
				return nil, err
			}
			singles[dep.Path] = st
		case HashedFileDependency:
			st, err := handleMissing(singleState{kind: singleStickyHashChanged}, func() (singleState, error) {
				mt, err := s.mtime(dep.Path)
				if err != nil {
					return singleState{}, err
				}
				h, err := s.hashFile(dep.Path)
				return singleState{kind: singleHashed, mtime: mt, hash: h}, err
			})
			if err != nil {
				return nil, err
			}
			singles[dep.Path] = st
		case AbsentDependency:
			singles[dep.Path] = singleState{kind: singleAbsent}
		case GlobDependency:
			if err := validGlob(dep.Glob); err != nil {
				return nil, err
			}
			g, err := s.buildGlobState(".", dep.Glob)
			if err != nil {
				return nil, err
			}
			globs = append(globs, g)
		default:
			return nil, fmt.Errorf("unknown dependency type %T", dep)
		}
	}

	state := &fileSetState{
		singles: make([]singleEntry, 0, len(singles)),
		globs:   globs,
	}
	for path, st := range singles {
		state.singles = append(state.singles, singleEntry{path: path, state: st})
	}
	sort.Slice(state.singles, func(i, j int) bool {
		return state.singles[i].path < state.singles[j].path
	})
	return state, nil
}

// buildGlobState snapshots the subtree of dir matched by gp. A missing dir
// yields an empty node carrying the missing-mtime sentinel; its later
// appearance is caught through the parent directory's mtime.
func (s *fileScan) buildGlobState(dir string, gp GlobPath) (globState, error) {
	dirMtime, err := s.mtimeOrMissing(dir)
	if err != nil {
		return nil, err
	}

	if len(gp.Dirs) > 0 {
		seg, rest := gp.Dirs[0], gp.rest()
		names, err := s.listDir(dir, seg, true)
		if err != nil {
			return nil, err
		}
		node := &globDirs{seg: seg, rest: rest, mtime: dirMtime}
		for _, name := range names {
			child, err := s.buildGlobState(filepath.Join(dir, name), rest)
			if err != nil {
				return nil, err
			}
			node.children = append(node.children, globChild{name: name, state: child})
		}
		return node, nil
	}

	names, err := s.listDir(dir, gp.File, false)
	if err != nil {
		return nil, err
	}
	node := &globFiles{seg: gp.File, mtime: dirMtime}
	for _, name := range names {
		entry, ok, err := s.snapshotFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if !ok {
			// The file vanished between listing and stat. Leave it out;
			// the next probe's reconciliation reports the discrepancy.
			s.log.Debug("glob entry vanished during build", "dir", dir, "name", name)
			continue
		}
		entry.name = name
		node.entries = append(node.entries, entry)
	}
	return node, nil
}

// snapshotFile reads the mtime and content hash of rel. ok is false when
// the file no longer exists.
func (s *fileScan) snapshotFile(rel string) (globEntry, bool, error) {
	type snap struct {
		entry globEntry
		ok    bool
	}
	v, err := handleMissing(snap{}, func() (snap, error) {
		mt, err := s.mtime(rel)
		if err != nil {
			return snap{}, err
		}
		h, err := s.hashFile(rel)
		if err != nil {
			return snap{}, err
		}
		return snap{entry: globEntry{mtime: mt, hash: h}, ok: true}, nil
	})
	return v.entry, v.ok, err
}

// validGlob rejects glob paths with uninitialized segments, typically a
// zero-value GlobPath passed by mistake.
func validGlob(gp GlobPath) error {
	for _, seg := range gp.Dirs {
		if seg.pattern == "" {
			return fmt.Errorf("glob path %q has an empty directory segment", gp)
		}
	}
	if gp.File.pattern == "" {
		return fmt.Errorf("glob path %q has an empty file segment", gp)
	}
	return nil
}

// MatchGlob returns the root-relative paths currently matched by glob,
// sorted ascending, without consulting or building any cache.
func (m *Monitor[K, V]) MatchGlob(root string, glob GlobPath) ([]string, error) {
	if err := validGlob(glob); err != nil {
		return nil, err
	}
	var matches []string
	if err := m.scan(root).matchGlob(".", glob, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *fileScan) matchGlob(dir string, gp GlobPath, matches *[]string) error {
	if len(gp.Dirs) > 0 {
		names, err := s.listDir(dir, gp.Dirs[0], true)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := s.matchGlob(filepath.Join(dir, name), gp.rest(), matches); err != nil {
				return err
			}
		}
		return nil
	}
	names, err := s.listDir(dir, gp.File, false)
	if err != nil {
		return err
	}
	for _, name := range names {
		*matches = append(*matches, filepath.Join(dir, name))
	}
	return nil
}
