package filemon

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func sampleState() *fileSetState {
	return &fileSetState{
		singles: []singleEntry{
			{path: "a.txt", state: singleState{kind: singleFile, mtime: modTime{day: 19000, nanos: 42}}},
			{path: "b.txt", state: singleState{kind: singleHashed, mtime: modTime{day: 19000, nanos: 43}, hash: 0xdeadbeefcafef00d}},
			{path: "c.txt", state: singleState{kind: singleAbsent}},
			{path: "d.txt", state: singleState{kind: singleStickyChanged}},
			{path: "e.txt", state: singleState{kind: singleStickyHashChanged}},
		},
		globs: []globState{
			&globDirs{
				seg:   MustSegment("proj*"),
				rest:  GlobPath{File: MustSegment("*.cabal")},
				mtime: modTime{day: 19001, nanos: 7},
				children: []globChild{
					{name: "proj1", state: &globFiles{
						seg:   MustSegment("*.cabal"),
						mtime: modTime{day: 19001, nanos: 8},
						entries: []globEntry{
							{name: "a.cabal", mtime: modTime{day: 19001, nanos: 9}, hash: 1},
							{name: "b.cabal", mtime: modTime{day: 19001, nanos: 10}, hash: 2},
						},
					}},
					{name: "proj2", state: &globFiles{
						seg:   MustSegment("*.cabal"),
						mtime: missingModTime,
					}},
				},
			},
			&globFiles{
				seg:   MustSegment("*.conf"),
				mtime: modTime{day: 19002, nanos: 0},
			},
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	state := sampleState()
	key := []byte("the-key")
	result := []byte("the-result")

	data := encodeCacheFile(state, key, result)
	decoded, gotKey, gotResult, err := decodeCacheFile(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(gotKey, key) {
		t.Errorf("key = %q, want %q", gotKey, key)
	}
	if !bytes.Equal(gotResult, result) {
		t.Errorf("result = %q, want %q", gotResult, result)
	}
	if !reflect.DeepEqual(decoded, state) {
		t.Errorf("decoded state differs from original:\ngot:  %s\nwant: %s",
			spew.Sdump(decoded), spew.Sdump(state))
	}

	// Encoding is deterministic.
	if !bytes.Equal(data, encodeCacheFile(state, key, result)) {
		t.Error("two encodings of the same state differ")
	}

	// Round-trip the dependency projection too.
	deps := decoded.dependencies()
	want := []string{
		"file:a.txt", "hashed:b.txt", "absent:c.txt", "file:d.txt", "hashed:e.txt",
		"glob:proj*/*.cabal", "glob:*.conf",
	}
	if len(deps) != len(want) {
		t.Fatalf("got %d deps, want %d: %v", len(deps), len(want), deps)
	}
	for i, dep := range deps {
		if dep.String() != want[i] {
			t.Errorf("dep %d = %q, want %q", i, dep, want[i])
		}
	}
}

func TestCodecEmptyState(t *testing.T) {
	data := encodeCacheFile(&fileSetState{}, nil, nil)
	state, key, result, err := decodeCacheFile(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(state.singles) != 0 || len(state.globs) != 0 {
		t.Errorf("decoded non-empty state: %+v", state)
	}
	if len(key) != 0 || len(result) != 0 {
		t.Errorf("key/result = %q/%q, want empty", key, result)
	}
}

func TestCodecRejectsCorruption(t *testing.T) {
	valid := encodeCacheFile(sampleState(), []byte("k"), []byte("v"))

	t.Run("empty input", func(t *testing.T) {
		assertCacheInvalid(t, nil)
	})

	t.Run("unsupported version", func(t *testing.T) {
		data := append([]byte{99}, valid[1:]...)
		assertCacheInvalid(t, data)
	})

	t.Run("truncation anywhere", func(t *testing.T) {
		for n := 0; n < len(valid); n++ {
			if _, _, _, err := decodeCacheFile(valid[:n]); !errors.Is(err, ErrCacheInvalid) {
				t.Fatalf("truncation at %d: err = %v, want ErrCacheInvalid", n, err)
			}
		}
	})

	t.Run("trailing garbage", func(t *testing.T) {
		assertCacheInvalid(t, append(append([]byte{}, valid...), 0x00))
	})

	t.Run("implausible length", func(t *testing.T) {
		// version 1, then a single-path count far beyond the input size.
		assertCacheInvalid(t, []byte{1, 0xff, 0xff, 0xff, 0xff, 0x7f})
	})
}

func assertCacheInvalid(t *testing.T, data []byte) {
	t.Helper()
	_, _, _, err := decodeCacheFile(data)
	if !errors.Is(err, ErrCacheInvalid) {
		t.Fatalf("err = %v, want ErrCacheInvalid", err)
	}
}

func TestModTimeOf(t *testing.T) {
	tests := []struct {
		sec   int64
		nsec  int
		day   int64
		nanos int64
	}{
		{0, 0, 0, 0},
		{1, 500, 0, 1e9 + 500},
		{86400, 0, 1, 0},
		{86399, 999999999, 0, 86399*1e9 + 999999999},
		{-1, 0, -1, 86399 * 1e9}, // floor division for pre-epoch times
	}
	for _, tc := range tests {
		got := modTimeOf(timeUnix(tc.sec, tc.nsec))
		if got.day != tc.day || got.nanos != tc.nanos {
			t.Errorf("modTimeOf(%d,%d) = %+v, want day=%d nanos=%d",
				tc.sec, tc.nsec, got, tc.day, tc.nanos)
		}
	}
}
