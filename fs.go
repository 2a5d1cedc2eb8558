package filemon

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// Default size for the buffer used when hashing files
const defaultBufferSize = 32 * 1024 // 32KB

// bufferPool is a pool of byte slices used for file I/O during hashing
var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, defaultBufferSize)
		return &buffer
	},
}

// fileScan bundles the filesystem primitives the builder and prober share,
// bound to a monitor root. All paths passed to its methods are relative to
// that root.
type fileScan struct {
	fs      afero.Fs
	root    string
	newHash HashFunc
	log     *slog.Logger
}

// path resolves a root-relative path.
func (s *fileScan) path(rel string) string {
	return filepath.Join(s.root, rel)
}

// mtime returns the modification time of rel. Absence surfaces as a
// fs.ErrNotExist-wrapping error from Stat.
func (s *fileScan) mtime(rel string) (modTime, error) {
	info, err := s.fs.Stat(s.path(rel))
	if err != nil {
		return modTime{}, err
	}
	return modTimeOf(info.ModTime()), nil
}

// mtimeOrMissing returns rel's modification time, or missingModTime when
// the path does not exist. Other stat failures propagate.
func (s *fileScan) mtimeOrMissing(rel string) (modTime, error) {
	return handleMissing(missingModTime, func() (modTime, error) {
		return s.mtime(rel)
	})
}

// exists reports whether rel exists at all, file or directory.
func (s *fileScan) exists(rel string) (bool, error) {
	return afero.Exists(s.fs, s.path(rel))
}

// listDir lists the entries of the directory rel, filtered by seg and by
// wantDir, deduplicated and sorted ascending by name. A missing directory
// yields an empty listing.
func (s *fileScan) listDir(rel string, seg Segment, wantDir bool) ([]string, error) {
	infos, err := handleMissing(nil, func() ([]os.FileInfo, error) {
		return afero.ReadDir(s.fs, s.path(rel))
	})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(infos))
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() != wantDir || !seg.Match(name) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// hashFile streams the content of rel through a fresh hash and returns the
// 64-bit digest. The same algorithm must be used for a cache file's whole
// lifetime; the digest is what decides "touched but not changed".
func (s *fileScan) hashFile(rel string) (uint64, error) {
	f, err := s.fs.Open(s.path(rel))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bufPtr := bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer bufferPool.Put(bufPtr)

	h := s.newHash()
	if _, err := io.CopyBuffer(h, f, buffer); err != nil {
		return 0, fmt.Errorf("failed to hash %s: %w", rel, err)
	}
	return h.Sum64(), nil
}

// atomicWriteFile writes data to path using a tmp+rename strategy so that
// readers only ever observe a complete cache file. If rename fails, the tmp
// file is cleaned up.
func atomicWriteFile(fs afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
