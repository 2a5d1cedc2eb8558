/*
Package filemon provides a persistent file status cache: a change-detection
engine that decides whether a previously computed result is still valid
given the current state of files and directories on disk.

A client declares the files a computation depended on — concrete paths,
paths expected not to exist, and directory globs — together with a key and
the computed result. Update persists enough filesystem metadata to later
answer, cheaply, "has anything that could invalidate this result changed?".
Check answers with either changed or the original result plus the
reconstructed dependency set.

# Overview

The engine polls on demand; it does not watch filesystem events. Files are
tracked by modification time, optionally with a content hash as tiebreaker
so that touched-but-identical files do not invalidate results. Globs are
tracked as a tree of directory snapshots: when a directory's mtime is
untouched its cached listing is trusted, and when it drifts the cached
children are reconciled against a fresh listing with a sorted merge. A
directory mtime that drifted without affecting the matched file set is
refreshed in the cache rather than reported as a change.

# Basic Usage

Creating a monitor with string keys and JSON results:

	type BuildOutput struct {
	    Artifacts []string
	}

	m := filemon.New(filemon.StringCodec{}, filemon.JSONCodec[BuildOutput]{})

Recording a computation:

	deps := []filemon.Dependency{
	    filemon.HashedFileDependency{Path: "config.yaml"},
	    filemon.GlobDependency{Glob: filemon.MustParseGlobPath("src/*.go")},
	}
	err := m.Update(".status-cache", projectRoot, deps, "build", output)

Checking it later:

	res, err := m.Check(".status-cache", projectRoot, "build")
	if err != nil {
	    // environmental fault (permissions, I/O); not a cache decision
	}
	if res.Unchanged {
	    // res.Result is valid, res.Deps is the declared dependency set
	} else {
	    // recompute, then Update again
	}

# Dependency Kinds

  - FileDependency: file expected to exist, tracked by mtime.
  - HashedFileDependency: file expected to exist, tracked by mtime and
    xxHash64 content hash.
  - AbsentDependency: path expected to not exist.
  - GlobDependency: the set of files matching a glob path such as
    "proj?/dist/*.tar.gz"; each slash-separated segment is a
    filepath.Match pattern.

SearchPath and HashedSearchPath build the dependency list for a file
search: the found file plus an AbsentDependency for every earlier
candidate location.

# Failure Model

A missing cache file, a torn or truncated cache (ErrCacheInvalid), a key
mismatch, and any detected dependency change all surface as a changed
CheckResult. A file that was already missing during Update is recorded as a
sticky marker: the update succeeds, and every later Check reports changed
until the next Update. Only unexpected I/O errors (anything other than "does
not exist") are returned as errors.

Cache files are written atomically (temp file plus rename), so concurrent
readers never observe a partial write.

# Configuration Options

	m := filemon.New(keys, results,
	    filemon.WithFs(afero.NewMemMapFs()),
	    filemon.WithHashFunc(myHash64),
	    filemon.WithLogger(logger),
	)

WithLogger receives Debug-level trace events for every probe decision,
useful when diagnosing why a cache keeps invalidating.
*/
package filemon
