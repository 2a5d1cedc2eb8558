package filemon

import (
	"log/slog"

	"github.com/spf13/afero"
)

// Option defines a function that configures a Monitor.
type Option func(*config)

// WithFs sets a custom filesystem for the monitor.
// This is primarily useful for testing with in-memory filesystems.
//
// Example:
//
//	m := filemon.New(keys, results, filemon.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(c *config) {
		c.fs = fs
	}
}

// WithHashFunc sets a custom content hash for the monitor.
// The default is xxHash64, which provides excellent performance.
// Only change this if you have specific requirements.
//
// Note: Changing the hash function invalidates existing cache files; every
// Check against them will report changed.
func WithHashFunc(hashFunc HashFunc) Option {
	return func(c *config) {
		c.newHash = hashFunc
	}
}

// WithLogger sets the logger that receives probe trace events ("file mtime
// changed", "glob entry appeared", ...). Events are emitted at Debug level.
// The default logger discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}
