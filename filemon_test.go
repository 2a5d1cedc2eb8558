package filemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// Shared test helpers. Tests that depend on real directory mtime semantics
// (a parent directory's mtime advancing when entries are created or
// removed) use the OS filesystem via newOsFixture; everything else runs on
// afero's in-memory filesystem.

func writeTestFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// fixture is a monitor over string keys and string results plus the
// scratch space its cache and root live in.
type fixture struct {
	fs    afero.Fs
	m     *Monitor[string, string]
	root  string
	cache string
}

func newOsFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewOsFs()
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	if err := fs.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	return &fixture{
		fs:    fs,
		m:     New[string, string](StringCodec{}, StringCodec{}, WithFs(fs)),
		root:  root,
		cache: filepath.Join(dir, "cache"),
	}
}

func newMemFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	root := "/work/root"
	if err := fs.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	return &fixture{
		fs:    fs,
		m:     New[string, string](StringCodec{}, StringCodec{}, WithFs(fs)),
		root:  root,
		cache: "/work/cache",
	}
}

func (f *fixture) write(t *testing.T, rel string, content []byte) {
	t.Helper()
	writeTestFile(t, f.fs, filepath.Join(f.root, rel), content)
}

func (f *fixture) remove(t *testing.T, rel string) {
	t.Helper()
	if err := f.fs.Remove(filepath.Join(f.root, rel)); err != nil {
		t.Fatalf("failed to remove %s: %v", rel, err)
	}
}

func (f *fixture) mkdir(t *testing.T, rel string) {
	t.Helper()
	if err := f.fs.MkdirAll(filepath.Join(f.root, rel), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", rel, err)
	}
}

// chtimes pins the mtime of a root-relative path (or the root itself for
// "."), making mtime comparisons deterministic regardless of filesystem
// timestamp granularity.
func (f *fixture) chtimes(t *testing.T, rel string, mtime time.Time) {
	t.Helper()
	if err := f.fs.Chtimes(filepath.Join(f.root, rel), mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime of %s: %v", rel, err)
	}
}

func (f *fixture) update(t *testing.T, deps []Dependency, key, result string) {
	t.Helper()
	if err := f.m.Update(f.cache, f.root, deps, key, result); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func (f *fixture) check(t *testing.T, key string) CheckResult[string] {
	t.Helper()
	res, err := f.m.Check(f.cache, f.root, key)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	return res
}

func assertChanged(t *testing.T, res CheckResult[string], context string) {
	t.Helper()
	if res.Unchanged {
		t.Fatalf("%s: expected changed, got unchanged with result %q", context, res.Result)
	}
}

func assertUnchanged(t *testing.T, res CheckResult[string], wantResult string, context string) {
	t.Helper()
	if !res.Unchanged {
		t.Fatalf("%s: expected unchanged, got changed", context)
	}
	if res.Result != wantResult {
		t.Fatalf("%s: result = %q, want %q", context, res.Result, wantResult)
	}
}

// testTime returns a fixed base timestamp offset by n seconds.
func testTime(n int) time.Time {
	return time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Second)
}

func timeUnix(sec int64, nsec int) time.Time {
	return time.Unix(sec, int64(nsec)).UTC()
}
