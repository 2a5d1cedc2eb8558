package filemon

import (
	"errors"
	"io/fs"
)

// Sentinel errors
var (
	// ErrCacheInvalid is returned when a cache file cannot be decoded:
	// truncation, an unknown schema version, or a bad variant tag.
	// Check treats it as "changed" rather than surfacing it.
	ErrCacheInvalid = errors.New("cache file invalid")
)

// errChanged aborts a probe: some monitored state no longer matches the
// cached snapshot. It never escapes the package; Check converts it into a
// changed CheckResult.
var errChanged = errors.New("monitored state changed")

// isNotExist reports whether err is a "does not exist" condition. It covers
// both the OS filesystem and afero's in-memory filesystem, which wrap
// fs.ErrNotExist in their path errors.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// handleMissing runs op and converts a "does not exist" failure into
// fallback. Any other error propagates untouched: only absence is an
// expected condition, everything else is an environmental fault.
func handleMissing[T any](fallback T, op func() (T, error)) (T, error) {
	v, err := op()
	if err != nil {
		if isNotExist(err) {
			return fallback, nil
		}
		return v, err
	}
	return v, nil
}
