package sbor

import (
	"bytes"
	"encoding/binary"
)

// Encoder accumulates SBOR bytes for a single value tree. It mirrors the
// reference encoder's shape (an internal buffer plus a withMetadata flag
// that gates every type-tag write) but exposes the low-level writers so
// domain packages can implement Value for their own custom types.
type Encoder struct {
	buf          bytes.Buffer
	withMetadata bool
}

// NewEncoder constructs an Encoder in the given mode.
func NewEncoder(withMetadata bool) *Encoder {
	e := &Encoder{withMetadata: withMetadata}
	e.buf.Grow(256)
	return e
}

// WithMetadata reports the encoder's mode.
func (e *Encoder) WithMetadata() bool { return e.withMetadata }

// Bytes returns the accumulated wire bytes.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// WriteType writes the one-byte tag, but only in with-metadata mode —
// every recursive call site goes through this so the two modes never need
// a separate code path.
func (e *Encoder) WriteType(tag TypeTag) {
	if e.withMetadata {
		e.buf.WriteByte(byte(tag))
	}
}

// WriteByte appends a single raw byte.
func (e *Encoder) WriteByte(b byte) { e.buf.WriteByte(b) }

// WriteBytes appends raw bytes verbatim (no length prefix).
func (e *Encoder) WriteBytes(b []byte) { e.buf.Write(b) }

// writeLenOrPanic writes a u16 little-endian length prefix. SBOR lengths are
// produced internally from Go slice/string lengths that this package's own
// constructors are responsible for keeping under MaxLen (see arena/codec
// callers); a value that slips past that guard is a programming error, not
// a decode-time condition, so it panics rather than returning an error —
// consistent with Encode never failing for well-formed Go values.
func (e *Encoder) writeLenOrPanic(n int) {
	if n > MaxLen {
		panic(newErr(LengthOverflow, "length exceeds u16 bound"))
	}
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(n))
	e.buf.Write(tmp[:])
}

// WriteLen is the exported form of writeLenOrPanic for custom Value
// implementations living outside this package (e.g. Bucket/Vault wire
// structs) that need to write their own length-prefixed fields.
func (e *Encoder) WriteLen(n int) { e.writeLenOrPanic(n) }

func (e *Encoder) writeUintLE(v uint64, width int) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf.Write(tmp[:width])
}

func (e *Encoder) writeIntLE(v int64, width int) {
	e.writeUintLE(uint64(v), width)
}

// Encode writes v's type tag (if in with-metadata mode) followed by its
// value bytes. This is the single recursive entry point used by Option,
// Tuple elements, and any top-level Encode call.
func (e *Encoder) Encode(v Value) {
	e.WriteType(v.Tag())
	v.EncodeValue(e)
}

// Encode serializes v in with-metadata mode.
func Encode(v Value) []byte {
	e := NewEncoder(true)
	e.Encode(v)
	return e.Bytes()
}

// EncodeNoMetadata serializes v in no-metadata (raw) mode.
func EncodeNoMetadata(v Value) []byte {
	e := NewEncoder(false)
	e.Encode(v)
	return e.Bytes()
}
