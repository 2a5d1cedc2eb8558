package filemon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Codec serializes keys and results for storage in a cache file. The
// encoded form is opaque to the engine; it is stored as a length-prefixed
// block, so Decode always sees exactly the bytes Encode produced.
type Codec[T any] interface {
	Encode(w io.Writer, v T) error
	Decode(r io.Reader) (T, error)
}

// StringCodec stores strings as raw UTF-8 bytes.
type StringCodec struct{}

func (StringCodec) Encode(w io.Writer, v string) error {
	_, err := io.WriteString(w, v)
	return err
}

func (StringCodec) Decode(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}

// BytesCodec stores byte slices verbatim.
type BytesCodec struct{}

func (BytesCodec) Encode(w io.Writer, v []byte) error {
	_, err := w.Write(v)
	return err
}

func (BytesCodec) Decode(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// JSONCodec stores values as JSON. Any JSON-marshalable type works; for
// keys it must also be comparable with ==.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(w io.Writer, v T) error {
	return json.NewEncoder(w).Encode(v)
}

func (JSONCodec[T]) Decode(r io.Reader) (T, error) {
	var v T
	err := json.NewDecoder(r).Decode(&v)
	return v, err
}

// CheckResult is the outcome of a Check. When Unchanged is false nothing
// else is set: the cached result is stale (or the cache was missing,
// unreadable, or keyed differently) and must be recomputed.
type CheckResult[V any] struct {
	// Unchanged reports that the cached result is still valid.
	Unchanged bool
	// Result is the value stored by the Update that produced the cache.
	Result V
	// Deps is the declared dependency set reconstructed from the cache,
	// suitable for passing back to Update.
	Deps []Dependency
}

// Update snapshots the filesystem state of deps under root and writes
// (snapshot, key, result) to cachePath, atomically replacing any previous
// cache. Missing declared files do not fail the update; they are recorded
// as sticky markers that force the next Check to report changed.
func (m *Monitor[K, V]) Update(cachePath, root string, deps []Dependency, key K, result V) error {
	state, err := m.scan(root).buildState(deps)
	if err != nil {
		return fmt.Errorf("failed to build monitor state: %w", err)
	}

	var keyBuf, resultBuf bytes.Buffer
	if err := m.keys.Encode(&keyBuf, key); err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}
	if err := m.results.Encode(&resultBuf, result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	data := encodeCacheFile(state, keyBuf.Bytes(), resultBuf.Bytes())
	return atomicWriteFile(m.fs, cachePath, data)
}

// Check probes the cache at cachePath against the live filesystem under
// root. A missing, torn or differently-keyed cache and any detected
// dependency change all yield an Unchanged=false result; only environmental
// faults (I/O errors other than not-exist) are returned as errors.
//
// When the probe refreshed cached metadata without finding a change, the
// cache file is rewritten in place before returning.
func (m *Monitor[K, V]) Check(cachePath, root string, key K) (CheckResult[V], error) {
	var changed CheckResult[V]

	raw, err := m.readCache(cachePath)
	if err != nil || raw == nil {
		return changed, err
	}

	state, keyBytes, resultBytes, err := decodeCacheFile(raw)
	if err != nil {
		m.log.Debug("cache file invalid", "path", cachePath, "error", err)
		return changed, nil
	}
	cachedKey, err := m.keys.Decode(bytes.NewReader(keyBytes))
	if err != nil {
		m.log.Debug("cached key undecodable", "path", cachePath, "error", err)
		return changed, nil
	}
	if cachedKey != key {
		m.log.Debug("cache key mismatch", "path", cachePath)
		return changed, nil
	}
	result, err := m.results.Decode(bytes.NewReader(resultBytes))
	if err != nil {
		m.log.Debug("cached result undecodable", "path", cachePath, "error", err)
		return changed, nil
	}

	p := &prober{fileScan: m.scan(root)}
	newState, err := p.probeState(state)
	if errors.Is(err, errChanged) {
		return changed, nil
	}
	if err != nil {
		return changed, err
	}

	if p.dirty {
		data := encodeCacheFile(newState, keyBytes, resultBytes)
		if err := atomicWriteFile(m.fs, cachePath, data); err != nil {
			return changed, err
		}
	}

	return CheckResult[V]{
		Unchanged: true,
		Result:    result,
		Deps:      newState.dependencies(),
	}, nil
}

// Peek decodes the cache at cachePath without probing the filesystem,
// returning the cached key and the declared dependency projection. Meant
// for debugging and introspection; unlike Check it surfaces decode
// failures (as errors wrapping ErrCacheInvalid) and a missing cache file.
func (m *Monitor[K, V]) Peek(cachePath string) (K, []Dependency, error) {
	var zero K
	raw, err := m.readCache(cachePath)
	if err != nil {
		return zero, nil, err
	}
	if raw == nil {
		return zero, nil, fmt.Errorf("%w: %s does not exist", ErrCacheInvalid, cachePath)
	}
	state, keyBytes, _, err := decodeCacheFile(raw)
	if err != nil {
		return zero, nil, err
	}
	key, err := m.keys.Decode(bytes.NewReader(keyBytes))
	if err != nil {
		return zero, nil, fmt.Errorf("%w: key: %v", ErrCacheInvalid, err)
	}
	return key, state.dependencies(), nil
}

// readCache reads the whole cache file; a missing file comes back as a nil
// slice with no error.
func (m *Monitor[K, V]) readCache(cachePath string) ([]byte, error) {
	f, err := m.fs.Open(cachePath)
	if err != nil {
		if isNotExist(err) {
			m.log.Debug("cache file missing", "path", cachePath)
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cachePath, err)
	}
	return raw, nil
}
