package psd

import (
	"encoding/binary"
	"math"
	"sync"
)

// Version selects the PSD (32-bit length fields) or PSB (64-bit length
// fields) width dispatch used throughout the file model.
type Version uint16

const (
	VersionPSD Version = 1
	VersionPSB Version = 2
)

// Dimension and channel limits enforced on the header.
const (
	MaxDimensionPSD = 30000
	MaxDimensionPSB = 300000
	MaxChannels     = 56
)

// MaxDimension returns the size limit for the given version.
func (v Version) MaxDimension() int64 {
	if v == VersionPSB {
		return MaxDimensionPSB
	}
	return MaxDimensionPSD
}

// byteStore is the minimal seekable storage contract File is built on: an
// in-memory buffer for parse, and a growable buffer for materialize.
type byteStore struct {
	data []byte
}

func (b *byteStore) Size() int64 { return int64(len(b.data)) }

func (b *byteStore) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b.data)) {
		return 0, &BadOffsetError{Offset: off, Size: int64(len(b.data))}
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, &UnexpectedEOFError{Offset: off, Need: int64(len(p)), Have: int64(len(b.data)) - off}
	}
	return n, nil
}

func (b *byteStore) WriteAt(p []byte, off int64) {
	end := off + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[off:end], p)
}

// File is the seekable byte-oriented view over a PSD/PSB document. All
// operations serialize through mu so a File can be shared by readers
// performing independent region reads.
type File struct {
	mu       sync.Mutex
	store    *byteStore
	off      int64
	version  Version
	warnings []string
}

// warn records a non-fatal condition (unknown tagged-block key, blend-mode
// fallback) without aborting the parse.
func (f *File) warn(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, msg)
}

// Warnings returns the non-fatal conditions accumulated during a parse, in
// the order encountered.
func (f *File) Warnings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.warnings))
	copy(out, f.warnings)
	return out
}

// NewReader wraps raw bytes (a fully-read document) for parsing.
func NewReader(data []byte, version Version) *File {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &File{store: &byteStore{data: buf}, version: version}
}

// NewWriter creates an empty, growable File for materialization.
func NewWriter(version Version) *File {
	return &File{store: &byteStore{}, version: version}
}

// Bytes returns the accumulated contents of a writer File.
func (f *File) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.store.data))
	copy(out, f.store.data)
	return out
}

func (f *File) Version() Version { return f.version }

// Size returns the current length of the underlying storage.
func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store.Size()
}

// Tell returns the current offset.
func (f *File) Tell() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.off
}

// Seek moves the current offset. A negative offset is a BadOffsetError;
// an offset past the end is accepted: a Read there then fails with
// BadOffsetError, and the next Write grows the buffer and zero-fills the gap.
func (f *File) Seek(off int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off < 0 {
		return &BadOffsetError{Offset: off, Size: f.store.Size()}
	}
	f.off = off
	return nil
}

// Skip advances the offset by n bytes without reading.
func (f *File) Skip(n int64) error {
	return f.Seek(f.Tell() + n)
}

// Read reads exactly len(p) bytes starting at the current offset,
// advancing it. Fails with UnexpectedEOFError if the declared length
// exceeds the remaining bytes.
func (f *File) Read(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.store.ReadAt(p, f.off)
	f.off += int64(n)
	return err
}

// ReadAt reads n bytes at off without disturbing the current offset.
func (f *File) ReadAt(n int, off int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, n)
	_, err := f.store.ReadAt(buf, off)
	return buf, err
}

// Write appends p at the current offset, advancing it.
func (f *File) Write(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.WriteAt(p, f.off)
	f.off += int64(len(p))
}

//------------------------------------------------------------------------
// Big-endian primitives
//------------------------------------------------------------------------

func (f *File) ReadUint8() (uint8, error) {
	var b [1]byte
	if err := f.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f *File) ReadUint16() (uint16, error) {
	var b [2]byte
	if err := f.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (f *File) ReadInt16() (int16, error) {
	u, err := f.ReadUint16()
	return int16(u), err
}

func (f *File) ReadUint32() (uint32, error) {
	var b [4]byte
	if err := f.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (f *File) ReadInt32() (int32, error) {
	u, err := f.ReadUint32()
	return int32(u), err
}

func (f *File) ReadUint64() (uint64, error) {
	var b [8]byte
	if err := f.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (f *File) ReadInt64() (int64, error) {
	u, err := f.ReadUint64()
	return int64(u), err
}

// ReadFloat64 decodes an IEEE-754 double by reinterpreting the raw
// big-endian bit pattern (used by mask feather values).
func (f *File) ReadFloat64() (float64, error) {
	u, err := f.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

func (f *File) ReadString(n int) (string, error) {
	buf := make([]byte, n)
	if err := f.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (f *File) WriteUint8(v uint8) {
	f.Write([]byte{v})
}

func (f *File) WriteUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	f.Write(b[:])
}

func (f *File) WriteInt16(v int16) {
	f.WriteUint16(uint16(v))
}

func (f *File) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	f.Write(b[:])
}

func (f *File) WriteInt32(v int32) {
	f.WriteUint32(uint32(v))
}

func (f *File) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	f.Write(b[:])
}

func (f *File) WriteInt64(v int64) {
	f.WriteUint64(uint64(v))
}

func (f *File) WriteFloat64(v float64) {
	f.WriteUint64(math.Float64bits(v))
}

func (f *File) WriteString(s string) {
	f.Write([]byte(s))
}

// readPascalString reads a length-prefixed byte string padded to a
// multiple of pad (2 for resource names, 4 for layer names).
func readPascalString(f *File, pad int64) (string, error) {
	n, err := f.ReadUint8()
	if err != nil {
		return "", err
	}
	s, err := f.ReadString(int(n))
	if err != nil {
		return "", err
	}
	total := Align(int64(n)+1, pad)
	if skip := total - int64(n) - 1; skip > 0 {
		if err := f.Skip(skip); err != nil {
			return "", err
		}
	}
	return s, nil
}

// writePascalString writes s as a length-prefixed byte string padded to
// a multiple of pad.
func writePascalString(f *File, s string, pad int64) {
	if len(s) > 255 {
		s = s[:255]
	}
	f.WriteUint8(uint8(len(s)))
	f.WriteString(s)
	total := Align(int64(len(s))+1, pad)
	if skip := total - int64(len(s)) - 1; skip > 0 {
		f.Write(make([]byte, skip))
	}
}

//------------------------------------------------------------------------
// Width-dispatched fields (PSD -> u32, PSB -> u64)
//------------------------------------------------------------------------

// ReadWidth reads a length/offset field whose width depends on the
// document version: 32 bits for PSD, 64 bits for PSB.
func (f *File) ReadWidth(v Version) (uint64, error) {
	if v == VersionPSB {
		return f.ReadUint64()
	}
	u, err := f.ReadUint32()
	return uint64(u), err
}

// WriteWidth writes a length/offset field at the version-dispatched width.
func (f *File) WriteWidth(v Version, value uint64) {
	if v == VersionPSB {
		f.WriteUint64(value)
		return
	}
	f.WriteUint32(uint32(value))
}

// Align rounds n up to the next multiple of m (m is 1, 2, or 4).
func Align(n int64, m int64) int64 {
	if m <= 1 {
		return n
	}
	rem := n % m
	if rem == 0 {
		return n
	}
	return n + (m - rem)
}
