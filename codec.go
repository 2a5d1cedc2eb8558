package filemon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// cacheVersion is the schema version of the cache file format. Bump it on
// any change to the encoding or to the content hash algorithm (v1 is
// xxHash64); decoding any other version fails as ErrCacheInvalid.
const cacheVersion = 1

// Glob state node tags.
const (
	tagGlobDirs  = 1
	tagGlobFiles = 2
)

// encodeCacheFile serializes (state, key, result) into the v1 byte stream.
// key and result are already-encoded opaque blocks; keeping them opaque
// lets a dirty rewrite reuse the original bytes without re-encoding.
func encodeCacheFile(state *fileSetState, key, result []byte) []byte {
	e := &encoder{}
	e.uvarint(cacheVersion)

	e.uvarint(uint64(len(state.singles)))
	for _, entry := range state.singles {
		e.str(entry.path)
		e.single(entry.state)
	}

	e.uvarint(uint64(len(state.globs)))
	for _, g := range state.globs {
		e.globState(g)
	}

	e.bytes(key)
	e.bytes(result)
	return e.buf.Bytes()
}

// decodeCacheFile parses a v1 byte stream back into (state, key, result).
// Every malformation is reported as an error wrapping ErrCacheInvalid.
func decodeCacheFile(data []byte) (*fileSetState, []byte, []byte, error) {
	d := &decoder{r: bytes.NewReader(data)}

	version := d.uvarint()
	if d.err == nil && version != cacheVersion {
		return nil, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrCacheInvalid, version)
	}

	n := d.length("single path count")
	state := &fileSetState{singles: make([]singleEntry, 0, n)}
	prev := ""
	for i := 0; i < n && d.err == nil; i++ {
		path := d.str()
		if d.err == nil && i > 0 && path <= prev {
			d.fail("single paths out of order")
			break
		}
		prev = path
		state.singles = append(state.singles, singleEntry{path: path, state: d.single()})
	}

	n = d.length("glob state count")
	state.globs = make([]globState, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		state.globs = append(state.globs, d.globState())
	}

	key := d.bytes()
	result := d.bytes()
	if d.err == nil && d.r.Len() != 0 {
		d.fail("trailing data")
	}
	if d.err != nil {
		return nil, nil, nil, d.err
	}
	return state, key, result, nil
}

// encoder accumulates the wire form. Varints for lengths and times, fixed
// 8-byte big-endian for hashes, length-prefixed UTF-8 for strings.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) uvarint(v uint64) {
	e.buf.Write(binary.AppendUvarint(nil, v))
}

func (e *encoder) varint(v int64) {
	e.buf.Write(binary.AppendVarint(nil, v))
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) str(s string) {
	e.uvarint(uint64(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) bytes(b []byte) {
	e.uvarint(uint64(len(b)))
	e.buf.Write(b)
}

func (e *encoder) modTime(t modTime) {
	e.varint(t.day)
	e.varint(t.nanos)
}

func (e *encoder) single(st singleState) {
	e.buf.WriteByte(byte(st.kind))
	switch st.kind {
	case singleFile:
		e.modTime(st.mtime)
	case singleHashed:
		e.modTime(st.mtime)
		e.u64(st.hash)
	}
}

func (e *encoder) globPath(p GlobPath) {
	e.uvarint(uint64(len(p.Dirs)))
	for _, seg := range p.Dirs {
		e.str(seg.String())
	}
	e.str(p.File.String())
}

func (e *encoder) globState(g globState) {
	switch g := g.(type) {
	case *globDirs:
		e.buf.WriteByte(tagGlobDirs)
		e.str(g.seg.String())
		e.globPath(g.rest)
		e.modTime(g.mtime)
		e.uvarint(uint64(len(g.children)))
		for _, c := range g.children {
			e.str(c.name)
			e.globState(c.state)
		}
	case *globFiles:
		e.buf.WriteByte(tagGlobFiles)
		e.str(g.seg.String())
		e.modTime(g.mtime)
		e.uvarint(uint64(len(g.entries)))
		for _, entry := range g.entries {
			e.str(entry.name)
			e.modTime(entry.mtime)
			e.u64(entry.hash)
		}
	}
}

// decoder parses the wire form. The first failure sticks; subsequent reads
// return zero values so callers can decode a whole structure and check err
// once.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) fail(what string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s", ErrCacheInvalid, what)
	}
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		d.fail("truncated varint")
		return 0
	}
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, err := binary.ReadVarint(d.r)
	if err != nil {
		d.fail("truncated varint")
		return 0
	}
	return v
}

// length reads a count and bounds it by the remaining input so corrupt
// files cannot trigger huge allocations.
func (d *decoder) length(what string) int {
	v := d.uvarint()
	if d.err == nil && v > uint64(d.r.Len()) {
		d.fail(fmt.Sprintf("implausible %s %d", what, v))
		return 0
	}
	return int(v)
}

func (d *decoder) u64() uint64 {
	if d.err != nil {
		return 0
	}
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		d.fail("truncated hash")
		return 0
	}
	return binary.BigEndian.Uint64(b[:])
}

func (d *decoder) str() string {
	n := d.length("string length")
	if d.err != nil {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail("truncated string")
		return ""
	}
	return string(b)
}

func (d *decoder) bytes() []byte {
	n := d.length("block length")
	if d.err != nil {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail("truncated block")
		return nil
	}
	return b
}

func (d *decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	b, err := d.r.ReadByte()
	if err != nil {
		d.fail("truncated tag")
		return 0
	}
	return b
}

func (d *decoder) modTime() modTime {
	day := d.varint()
	nanos := d.varint()
	return modTime{day: day, nanos: nanos}
}

func (d *decoder) segment() Segment {
	s := d.str()
	if d.err != nil {
		return Segment{}
	}
	seg, err := NewSegment(s)
	if err != nil {
		d.fail(fmt.Sprintf("bad glob segment %q", s))
		return Segment{}
	}
	return seg
}

func (d *decoder) single() singleState {
	kind := singleKind(d.byte())
	if d.err != nil {
		return singleState{}
	}
	st := singleState{kind: kind}
	switch kind {
	case singleFile:
		st.mtime = d.modTime()
	case singleHashed:
		st.mtime = d.modTime()
		st.hash = d.u64()
	case singleAbsent, singleStickyChanged, singleStickyHashChanged:
	default:
		d.fail(fmt.Sprintf("bad single path state tag %d", kind))
	}
	return st
}

func (d *decoder) globPath() GlobPath {
	n := d.length("glob segment count")
	var dirs []Segment
	if n > 0 {
		dirs = make([]Segment, 0, n)
	}
	for i := 0; i < n && d.err == nil; i++ {
		dirs = append(dirs, d.segment())
	}
	file := d.segment()
	return GlobPath{Dirs: dirs, File: file}
}

func (d *decoder) globState() globState {
	return d.globStateDepth(0)
}

func (d *decoder) globStateDepth(depth int) globState {
	if depth > math.MaxUint16 {
		d.fail("glob state nested too deeply")
		return nil
	}
	switch tag := d.byte(); tag {
	case tagGlobDirs:
		g := &globDirs{seg: d.segment(), rest: d.globPath(), mtime: d.modTime()}
		n := d.length("glob child count")
		prev := ""
		for i := 0; i < n && d.err == nil; i++ {
			name := d.str()
			if d.err == nil && i > 0 && name <= prev {
				d.fail("glob children out of order")
				break
			}
			prev = name
			g.children = append(g.children, globChild{name: name, state: d.globStateDepth(depth + 1)})
		}
		return g
	case tagGlobFiles:
		g := &globFiles{seg: d.segment(), mtime: d.modTime()}
		n := d.length("glob entry count")
		prev := ""
		for i := 0; i < n && d.err == nil; i++ {
			name := d.str()
			if d.err == nil && i > 0 && name <= prev {
				d.fail("glob entries out of order")
				break
			}
			prev = name
			g.entries = append(g.entries, globEntry{name: name, mtime: d.modTime(), hash: d.u64()})
		}
		return g
	default:
		if d.err == nil {
			d.fail(fmt.Sprintf("bad glob state tag %d", tag))
		}
		return nil
	}
}
