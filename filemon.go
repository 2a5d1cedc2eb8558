package filemon

import (
	"hash"
	"io"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// HashFunc defines a function that creates a new hash.Hash64 instance.
type HashFunc func() hash.Hash64

// Monitor is a persistent file status cache. Update records a snapshot of
// the filesystem metadata a computation depended on, together with a key
// and a result; Check later decides whether that result is still valid by
// probing the snapshot against the live filesystem.
//
// K is the key type, compared with ==. V is the result type. Both are
// opaque to the engine beyond the codecs supplied to New.
//
// A Monitor holds no mutable state; its methods may be called from multiple
// goroutines as long as callers serialize writes to any one cache file.
type Monitor[K comparable, V any] struct {
	fs      afero.Fs
	newHash HashFunc
	log     *slog.Logger
	keys    Codec[K]
	results Codec[V]
}

// New creates a monitor using the given key and result codecs.
// It uses the OS filesystem, xxHash64 content hashing and a discarding
// logger unless overridden with options.
func New[K comparable, V any](keys Codec[K], results Codec[V], options ...Option) *Monitor[K, V] {
	cfg := config{
		fs:      afero.NewOsFs(),
		newHash: defaultHashFunc,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// Apply options
	for _, option := range options {
		option(&cfg)
	}

	return &Monitor[K, V]{
		fs:      cfg.fs,
		newHash: cfg.newHash,
		log:     cfg.log,
		keys:    keys,
		results: results,
	}
}

// scan binds the monitor's filesystem primitives to a root directory.
func (m *Monitor[K, V]) scan(root string) *fileScan {
	return &fileScan{
		fs:      m.fs,
		root:    root,
		newHash: m.newHash,
		log:     m.log,
	}
}

// config collects the option-settable parts of a Monitor. It is separate
// from Monitor so that Option does not need type parameters.
type config struct {
	fs      afero.Fs
	newHash HashFunc
	log     *slog.Logger
}

// defaultHashFunc returns the default hash function (xxHash64).
func defaultHashFunc() hash.Hash64 {
	return xxhash.New()
}
