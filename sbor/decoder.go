package sbor

import (
	"encoding/binary"
	"unicode/utf8"
)

// Decoder walks a byte slice produced by Encoder. It never allocates more
// than the bytes remaining in the buffer, regardless of what a length
// prefix claims — this is the defense spec.md §4.1 calls "bounded
// allocation", grounded in the same oversize-length guard used by the
// length-prefixed frame decoder in the pack's binary-protocol reference
// (see DESIGN.md).
type Decoder struct {
	buf          []byte
	pos          int
	withMetadata bool
}

// NewDecoder constructs a Decoder over buf in the given mode.
func NewDecoder(buf []byte, withMetadata bool) *Decoder {
	return &Decoder{buf: buf, withMetadata: withMetadata}
}

// WithMetadata reports the decoder's mode.
func (d *Decoder) WithMetadata() bool { return d.withMetadata }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Finish fails with TrailingBytes if the buffer was not fully consumed.
// Call this once, after decoding the single top-level value.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return newErr(TrailingBytes, "excess bytes after top-level decode")
	}
	return nil
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.Remaining() < 1 {
		return 0, newErr(UnexpectedEnd, "expected 1 byte")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes. It never allocates more than the bytes
// actually remaining in the buffer: if n exceeds what's left, it fails
// before touching the allocator.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, newErr(UnexpectedEnd, "expected more bytes than remain")
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+n])
	d.pos += n
	return out, nil
}

// ReadLen reads a u16 little-endian length prefix. The bound itself (0..=
// MaxLen) is inherent in the u16 width; callers must still run any derived
// allocation through ReadBytes so it is clamped against what remains.
func (d *Decoder) ReadLen() (int, error) {
	b, err := d.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint16(b)), nil
}

func (d *Decoder) readUintLE(width int) (uint64, error) {
	b, err := d.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	var tmp [8]byte
	copy(tmp[:], b)
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

// ReadType reads the raw tag byte. Only meaningful in with-metadata mode;
// no-metadata decoding must never call it (the caller supplies the type).
func (d *Decoder) ReadType() (TypeTag, error) {
	b, err := d.ReadByte()
	if err != nil {
		return 0, err
	}
	return TypeTag(b), nil
}

// ExpectType enforces the structural check from spec.md §4.1: in
// with-metadata mode the leading tag must match expected or decoding fails
// with MismatchedType; in no-metadata mode there is no tag to check, so
// this is a no-op and the caller's supplied type is trusted outright.
func (d *Decoder) ExpectType(expected TypeTag) error {
	if !d.withMetadata {
		return nil
	}
	got, err := d.ReadType()
	if err != nil {
		return err
	}
	if got != expected {
		return newErr(MismatchedType, expected.String()+" got "+got.String())
	}
	return nil
}

// --- primitive decoders -----------------------------------------------

func DecodeUnit(d *Decoder) (Unit, error) {
	if err := d.ExpectType(TypeUnit); err != nil {
		return Unit{}, err
	}
	return Unit{}, nil
}

func DecodeBool(d *Decoder) (Bool, error) {
	if err := d.ExpectType(TypeBool); err != nil {
		return false, err
	}
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, newErr(InvalidBool, "bool discriminant must be 0 or 1")
	}
}

func DecodeI8(d *Decoder) (I8, error) {
	if err := d.ExpectType(TypeI8); err != nil {
		return 0, err
	}
	b, err := d.ReadByte()
	return I8(int8(b)), err
}

func DecodeI16(d *Decoder) (I16, error) {
	if err := d.ExpectType(TypeI16); err != nil {
		return 0, err
	}
	v, err := d.readUintLE(2)
	return I16(int16(v)), err
}

func DecodeI32(d *Decoder) (I32, error) {
	if err := d.ExpectType(TypeI32); err != nil {
		return 0, err
	}
	v, err := d.readUintLE(4)
	return I32(int32(v)), err
}

func DecodeI64(d *Decoder) (I64, error) {
	if err := d.ExpectType(TypeI64); err != nil {
		return 0, err
	}
	v, err := d.readUintLE(8)
	return I64(int64(v)), err
}

func DecodeI128(d *Decoder) (I128, error) {
	if err := d.ExpectType(TypeI128); err != nil {
		return I128{}, err
	}
	b, err := d.ReadBytes(16)
	if err != nil {
		return I128{}, err
	}
	var out I128
	copy(out[:], b)
	return out, nil
}

func DecodeU8(d *Decoder) (U8, error) {
	if err := d.ExpectType(TypeU8); err != nil {
		return 0, err
	}
	b, err := d.ReadByte()
	return U8(b), err
}

func DecodeU16(d *Decoder) (U16, error) {
	if err := d.ExpectType(TypeU16); err != nil {
		return 0, err
	}
	v, err := d.readUintLE(2)
	return U16(v), err
}

func DecodeU32(d *Decoder) (U32, error) {
	if err := d.ExpectType(TypeU32); err != nil {
		return 0, err
	}
	v, err := d.readUintLE(4)
	return U32(v), err
}

func DecodeU64(d *Decoder) (U64, error) {
	if err := d.ExpectType(TypeU64); err != nil {
		return 0, err
	}
	v, err := d.readUintLE(8)
	return U64(v), err
}

func DecodeU128(d *Decoder) (U128, error) {
	if err := d.ExpectType(TypeU128); err != nil {
		return U128{}, err
	}
	b, err := d.ReadBytes(16)
	if err != nil {
		return U128{}, err
	}
	var out U128
	copy(out[:], b)
	return out, nil
}

func DecodeString(d *Decoder) (Str, error) {
	if err := d.ExpectType(TypeString); err != nil {
		return "", err
	}
	n, err := d.ReadLen()
	if err != nil {
		return "", err
	}
	b, err := d.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newErr(InvalidUtf8, "string bytes are not valid utf-8")
	}
	return Str(b), nil
}

// Type is the structural schema used both for no-metadata decoding (where
// the caller must supply what each raw value means) and for the Describe
// facility's output tree.
type Type struct {
	Kind       TypeTag
	Elem       *Type  // Option, Array, Vec element type
	ArrayLen   int    // Array only; -1 for Vec/other kinds
	Elems      []Type // Tuple element types
	CustomName string // Custom(name) leaves, used only by Describe
}

// DecodeOption decodes an Option whose element type is elemType.
func DecodeOption(d *Decoder, elemType Type) (Option, error) {
	if err := d.ExpectType(TypeOption); err != nil {
		return Option{}, err
	}
	return decodeOptionBody(d, elemType)
}

func decodeOptionBody(d *Decoder, elemType Type) (Option, error) {
	disc, err := d.ReadByte()
	if err != nil {
		return Option{}, err
	}
	switch disc {
	case 0:
		return Option{}, nil
	case 1:
		inner, err := DecodeTyped(d, elemType)
		if err != nil {
			return Option{}, err
		}
		return Option{Inner: inner}, nil
	default:
		return Option{}, newErr(InvalidDiscriminant, "option discriminant must be 0 or 1")
	}
}

// DecodeArray decodes a fixed-length homogeneous sequence. In with-metadata
// mode the element tag on the wire is cross-checked against elemType.Kind.
func DecodeArray(d *Decoder, elemType Type) (Array, error) {
	if err := d.ExpectType(TypeArray); err != nil {
		return Array{}, err
	}
	return decodeSeq(d, elemType, TypeArray)
}

// DecodeVec decodes a variable-length homogeneous sequence.
func DecodeVec(d *Decoder, elemType Type) (Vec, error) {
	if err := d.ExpectType(TypeVec); err != nil {
		return Vec{}, err
	}
	v, err := decodeSeq(d, elemType, TypeVec)
	if err != nil {
		return Vec{}, err
	}
	return Vec(v), nil
}

func decodeSeq(d *Decoder, elemType Type, _ TypeTag) (Array, error) {
	n, err := d.ReadLen()
	if err != nil {
		return Array{}, err
	}
	if d.withMetadata {
		got, err := d.ReadType()
		if err != nil {
			return Array{}, err
		}
		if got != elemType.Kind {
			return Array{}, newErr(MismatchedType, "array/vec element type mismatch")
		}
	}
	items := make([]Value, 0, minInt(n, d.Remaining()+1))
	for i := 0; i < n; i++ {
		v, err := decodeValueOnly(d, elemType)
		if err != nil {
			return Array{}, err
		}
		items = append(items, v)
	}
	return Array{ElemTag: elemType.Kind, Items: items}, nil
}

// DecodeTuple decodes a heterogeneous, arbitrary-arity sequence whose
// element types are elemTypes, in order.
func DecodeTuple(d *Decoder, elemTypes []Type) (Tuple, error) {
	if err := d.ExpectType(TypeTuple); err != nil {
		return nil, err
	}
	return decodeTupleBody(d, elemTypes)
}

func decodeTupleBody(d *Decoder, elemTypes []Type) (Tuple, error) {
	n, err := d.ReadLen()
	if err != nil {
		return nil, err
	}
	if n != len(elemTypes) {
		return nil, newErr(MismatchedType, "tuple arity mismatch")
	}
	out := make(Tuple, 0, n)
	for _, t := range elemTypes {
		v, err := DecodeTyped(d, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeTyped decodes one value of the given Type, including its leading
// tag (if in with-metadata mode). This is the general recursive entry
// point mirroring Encoder.Encode.
func DecodeTyped(d *Decoder, t Type) (Value, error) {
	switch t.Kind {
	case TypeUnit:
		return DecodeUnit(d)
	case TypeBool:
		return DecodeBool(d)
	case TypeI8:
		return DecodeI8(d)
	case TypeI16:
		return DecodeI16(d)
	case TypeI32:
		return DecodeI32(d)
	case TypeI64:
		return DecodeI64(d)
	case TypeI128:
		return DecodeI128(d)
	case TypeU8:
		return DecodeU8(d)
	case TypeU16:
		return DecodeU16(d)
	case TypeU32:
		return DecodeU32(d)
	case TypeU64:
		return DecodeU64(d)
	case TypeU128:
		return DecodeU128(d)
	case TypeString:
		return DecodeString(d)
	case TypeOption:
		return DecodeOption(d, *t.Elem)
	case TypeArray:
		return DecodeArray(d, *t.Elem)
	case TypeVec:
		return DecodeVec(d, *t.Elem)
	case TypeTuple:
		return DecodeTuple(d, t.Elems)
	default:
		if err := d.ExpectType(t.Kind); err != nil {
			return nil, err
		}
		return decodeCustomBody(d, t.Kind)
	}
}

// decodeCustomBody reads a registered custom type's body, with no leading
// tag of its own — the tag (if any) has already been consumed by the
// caller, either via ExpectType above or because the surrounding sequence
// elided it the way Array/Vec elide a shared element tag.
func decodeCustomBody(d *Decoder, kind TypeTag) (Value, error) {
	fn, ok := customDecoders[kind]
	if !ok {
		return nil, newErr(MismatchedType, "no decoder registered for tag "+kind.String())
	}
	return fn(d)
}

// decodeValueOnly decodes a value's bytes without re-reading/re-checking a
// leading type tag — used for Array/Vec elements, whose shared tag is
// consumed once up front by decodeSeq.
func decodeValueOnly(d *Decoder, t Type) (Value, error) {
	switch t.Kind {
	case TypeUnit:
		return Unit{}, nil
	case TypeBool:
		b, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, newErr(InvalidBool, "bool discriminant must be 0 or 1")
		}
		return Bool(b == 1), nil
	case TypeI8:
		b, err := d.ReadByte()
		return I8(int8(b)), err
	case TypeI16:
		v, err := d.readUintLE(2)
		return I16(int16(v)), err
	case TypeI32:
		v, err := d.readUintLE(4)
		return I32(int32(v)), err
	case TypeI64:
		v, err := d.readUintLE(8)
		return I64(int64(v)), err
	case TypeI128:
		b, err := d.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		var out I128
		copy(out[:], b)
		return out, nil
	case TypeU8:
		b, err := d.ReadByte()
		return U8(b), err
	case TypeU16:
		v, err := d.readUintLE(2)
		return U16(v), err
	case TypeU32:
		v, err := d.readUintLE(4)
		return U32(v), err
	case TypeU64:
		v, err := d.readUintLE(8)
		return U64(v), err
	case TypeU128:
		b, err := d.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		var out U128
		copy(out[:], b)
		return out, nil
	case TypeString:
		n, err := d.ReadLen()
		if err != nil {
			return nil, err
		}
		b, err := d.ReadBytes(n)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, newErr(InvalidUtf8, "string bytes are not valid utf-8")
		}
		return Str(b), nil
	case TypeOption:
		return decodeOptionBody(d, *t.Elem)
	case TypeArray:
		return decodeSeq(d, *t.Elem, TypeArray)
	case TypeVec:
		v, err := decodeSeq(d, *t.Elem, TypeVec)
		if err != nil {
			return nil, err
		}
		return Vec(v), nil
	case TypeTuple:
		return decodeTupleBody(d, t.Elems)
	default:
		// Custom/domain element types carry no tag of their own here either
		// — same elision rule as the other composite kinds above, mirrored
		// from decodeSeqAny in registry.go.
		return decodeCustomBody(d, t.Kind)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Decode is the top-level entry point: decode exactly one value of Type t
// from buf in with-metadata mode, failing TrailingBytes on leftover bytes.
func Decode(buf []byte, t Type) (Value, error) {
	d := NewDecoder(buf, true)
	v, err := DecodeTyped(d, t)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeNoMetadataTyped decodes exactly one value of Type t from buf in
// no-metadata mode.
func DecodeNoMetadataTyped(buf []byte, t Type) (Value, error) {
	d := NewDecoder(buf, false)
	v, err := DecodeTyped(d, t)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return v, nil
}
