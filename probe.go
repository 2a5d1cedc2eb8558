package filemon

import (
	"fmt"
	"path/filepath"
)

// prober walks a cached snapshot against the live filesystem. The first
// real change aborts the walk with errChanged; a completed walk returns a
// refreshed snapshot plus the dirty flag, which records that some cached
// metadata was brought up to date even though nothing materially changed
// (so the cache file is worth rewriting).
type prober struct {
	*fileScan
	dirty bool
}

// markDirty flags the snapshot for a rewrite.
func (p *prober) markDirty(reason string, attrs ...any) {
	p.log.Debug("cache dirty: "+reason, attrs...)
	p.dirty = true
}

// probeState probes every cached entry in stored order: single paths first
// (sorted by path), then glob subtrees in declaration order.
func (p *prober) probeState(state *fileSetState) (*fileSetState, error) {
	for _, entry := range state.singles {
		if err := p.probeSingle(entry.path, entry.state); err != nil {
			return nil, err
		}
	}
	globs := make([]globState, 0, len(state.globs))
	for _, g := range state.globs {
		probed, err := p.probeGlob(".", g)
		if err != nil {
			return nil, err
		}
		globs = append(globs, probed)
	}
	return &fileSetState{singles: state.singles, globs: globs}, nil
}

// probeSingle checks one cached single-path state. Single-path states are
// never refreshed: the returned snapshot reuses them verbatim, so this only
// decides changed vs unchanged.
func (p *prober) probeSingle(rel string, st singleState) error {
	switch st.kind {
	case singleFile:
		live, err := p.mtimeOrMissing(rel)
		if err != nil {
			return err
		}
		if live == missingModTime {
			p.log.Debug("file disappeared", "path", rel)
			return errChanged
		}
		if live != st.mtime {
			p.log.Debug("file mtime changed", "path", rel)
			return errChanged
		}
		return nil
	case singleHashed:
		return p.probeHashed(rel, st.mtime, st.hash)
	case singleAbsent:
		exists, err := p.exists(rel)
		if err != nil {
			return err
		}
		if exists {
			p.log.Debug("absent path appeared", "path", rel)
			return errChanged
		}
		return nil
	case singleStickyChanged, singleStickyHashChanged:
		// Recorded at build time when an expected file was already gone;
		// unconditionally stale.
		p.log.Debug("sticky changed state", "path", rel)
		return errChanged
	default:
		return fmt.Errorf("unknown single path state tag %d for %s", st.kind, rel)
	}
}

// probeHashed checks a file tracked by mtime and content hash. An equal
// mtime short-circuits the hash; a drifted mtime with an equal hash is
// unchanged but the drift is not recorded.
func (p *prober) probeHashed(rel string, cached modTime, cachedHash uint64) error {
	live, err := p.mtimeOrMissing(rel)
	if err != nil {
		return err
	}
	if live == missingModTime {
		p.log.Debug("hashed file disappeared", "path", rel)
		return errChanged
	}
	if live == cached {
		return nil
	}
	// A file vanishing between the stat and the hash reads as a content
	// change.
	liveHash, err := handleMissing(^cachedHash, func() (uint64, error) {
		return p.hashFile(rel)
	})
	if err != nil {
		return err
	}
	if liveHash != cachedHash {
		p.log.Debug("hashed file content changed", "path", rel)
		return errChanged
	}
	p.log.Debug("hashed file touched but content unchanged", "path", rel)
	return nil
}

// probeGlob reconciles one cached glob subtree describing the directory
// dir. It may return a node with refreshed directory mtimes; a refreshed
// mtime alone does not mark the cache dirty, because rewriting the cache
// costs more than the single directory scan it would save.
func (p *prober) probeGlob(dir string, st globState) (globState, error) {
	switch st := st.(type) {
	case *globDirs:
		return p.probeGlobDirs(dir, st)
	case *globFiles:
		return p.probeGlobFiles(dir, st)
	default:
		return nil, fmt.Errorf("unknown glob state %T for %s", st, dir)
	}
}

func (p *prober) probeGlobDirs(dir string, st *globDirs) (globState, error) {
	live, err := p.mtimeOrMissing(dir)
	if err != nil {
		return nil, err
	}
	if live == missingModTime && st.mtime != missingModTime {
		p.log.Debug("glob directory disappeared", "dir", dir)
		return nil, errChanged
	}

	if live == st.mtime {
		// Untouched directory: the matched subdirectory set cannot have
		// changed, but the subtrees below may have.
		children := make([]globChild, 0, len(st.children))
		for _, c := range st.children {
			probed, err := p.probeGlob(filepath.Join(dir, c.name), c.state)
			if err != nil {
				return nil, err
			}
			children = append(children, globChild{name: c.name, state: probed})
		}
		return &globDirs{seg: st.seg, rest: st.rest, mtime: st.mtime, children: children}, nil
	}

	// The directory was touched: reconcile the cached children against a
	// fresh listing.
	names, err := p.listDir(dir, st.seg, true)
	if err != nil {
		return nil, err
	}
	children := make([]globChild, 0, max(len(st.children), len(names)))
	childName := func(c globChild) string { return c.name }
	for _, item := range diffSorted(st.children, childName, names) {
		switch item.op {
		case both:
			probed, err := p.probeGlob(filepath.Join(dir, item.name), item.cached.state)
			if err != nil {
				return nil, err
			}
			children = append(children, globChild{name: item.name, state: probed})
		case onlyLive:
			fresh, err := p.buildGlobState(filepath.Join(dir, item.name), st.rest)
			if err != nil {
				return nil, err
			}
			if fresh.hasMatchingFiles() {
				p.log.Debug("glob entry appeared", "dir", dir, "name", item.name)
				return nil, errChanged
			}
			// A new directory with nothing matching inside. Recording it
			// saves rescanning on the next probe, which is the one case
			// worth a cache rewrite.
			p.markDirty("empty directory appeared", "dir", dir, "name", item.name)
			children = append(children, globChild{name: item.name, state: fresh})
		case onlyCached:
			if item.cached.state.hasMatchingFiles() {
				p.log.Debug("glob entry disappeared", "dir", dir, "name", item.name)
				return nil, errChanged
			}
			// A recorded-but-empty subtree went away; keeping the stale
			// record is harmless and not worth a rewrite.
			children = append(children, item.cached)
		}
	}
	return &globDirs{seg: st.seg, rest: st.rest, mtime: live, children: children}, nil
}

func (p *prober) probeGlobFiles(dir string, st *globFiles) (globState, error) {
	live, err := p.mtimeOrMissing(dir)
	if err != nil {
		return nil, err
	}
	if live == missingModTime && st.mtime != missingModTime {
		p.log.Debug("glob directory disappeared", "dir", dir)
		return nil, errChanged
	}

	if live != st.mtime {
		// The directory was touched: any change to the matched name set is
		// a real change, otherwise only the directory mtime drifted.
		names, err := p.listDir(dir, st.seg, false)
		if err != nil {
			return nil, err
		}
		entryName := func(e globEntry) string { return e.name }
		for _, item := range diffSorted(st.entries, entryName, names) {
			if item.op != both {
				p.log.Debug("glob file set changed", "dir", dir, "name", item.name)
				return nil, errChanged
			}
		}
	}

	for _, entry := range st.entries {
		if err := p.probeHashed(filepath.Join(dir, entry.name), entry.mtime, entry.hash); err != nil {
			return nil, err
		}
	}
	return &globFiles{seg: st.seg, mtime: live, entries: st.entries}, nil
}
