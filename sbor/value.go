package sbor

// Value is implemented by every type this package can write to the wire.
// Custom domain types (addresses, bucket ids, ...) implement it themselves
// in the packages that own them, using the Encoder/Decoder primitives this
// package exports — sbor has no knowledge of those concrete types, only of
// the tag numbers reserved for them (see tag.go).
type Value interface {
	Tag() TypeTag
	EncodeValue(e *Encoder)
}

// Unit is the zero-byte value.
type Unit struct{}

func (Unit) Tag() TypeTag          { return TypeUnit }
func (Unit) EncodeValue(*Encoder)  {}

// Bool wraps a boolean.
type Bool bool

func (Bool) Tag() TypeTag { return TypeBool }
func (b Bool) EncodeValue(e *Encoder) {
	if b {
		e.WriteByte(1)
	} else {
		e.WriteByte(0)
	}
}

type I8 int8

func (I8) Tag() TypeTag        { return TypeI8 }
func (v I8) EncodeValue(e *Encoder) { e.WriteByte(byte(v)) }

type I16 int16

func (I16) Tag() TypeTag         { return TypeI16 }
func (v I16) EncodeValue(e *Encoder) { e.writeIntLE(int64(v), 2) }

type I32 int32

func (I32) Tag() TypeTag         { return TypeI32 }
func (v I32) EncodeValue(e *Encoder) { e.writeIntLE(int64(v), 4) }

type I64 int64

func (I64) Tag() TypeTag         { return TypeI64 }
func (v I64) EncodeValue(e *Encoder) { e.writeIntLE(int64(v), 8) }

// I128 holds a signed 128-bit integer as two's-complement little-endian
// bytes; Go has no native int128 so it is carried as a fixed 16-byte array.
type I128 [16]byte

func (I128) Tag() TypeTag          { return TypeI128 }
func (v I128) EncodeValue(e *Encoder) { e.WriteBytes(v[:]) }

type U8 uint8

func (U8) Tag() TypeTag        { return TypeU8 }
func (v U8) EncodeValue(e *Encoder) { e.WriteByte(byte(v)) }

type U16 uint16

func (U16) Tag() TypeTag         { return TypeU16 }
func (v U16) EncodeValue(e *Encoder) { e.writeUintLE(uint64(v), 2) }

type U32 uint32

func (U32) Tag() TypeTag         { return TypeU32 }
func (v U32) EncodeValue(e *Encoder) { e.writeUintLE(uint64(v), 4) }

type U64 uint64

func (U64) Tag() TypeTag         { return TypeU64 }
func (v U64) EncodeValue(e *Encoder) { e.writeUintLE(uint64(v), 8) }

// U128 mirrors I128: 16 raw little-endian bytes, unsigned.
type U128 [16]byte

func (U128) Tag() TypeTag          { return TypeU128 }
func (v U128) EncodeValue(e *Encoder) { e.WriteBytes(v[:]) }

// Str is a UTF-8 string. Length is byte length, not rune count.
type Str string

func (Str) Tag() TypeTag { return TypeString }
func (s Str) EncodeValue(e *Encoder) {
	e.writeLenOrPanic(len(s))
	e.WriteBytes([]byte(s))
}

// Option carries either no value or exactly one Value of a fixed element
// kind. A nil Inner encodes as the "none" discriminant.
type Option struct {
	Inner Value
}

func (Option) Tag() TypeTag { return TypeOption }
func (o Option) EncodeValue(e *Encoder) {
	if o.Inner == nil {
		e.WriteByte(0)
		return
	}
	e.WriteByte(1)
	e.Encode(o.Inner)
}

// Array is a fixed-length homogeneous sequence. ElemTag records the
// element's type so the single shared tag can be written once per spec's
// ARRAY wire rule (length, elem tag, then untagged elements).
type Array struct {
	ElemTag TypeTag
	Items   []Value
}

func (Array) Tag() TypeTag { return TypeArray }
func (a Array) EncodeValue(e *Encoder) {
	e.writeLenOrPanic(len(a.Items))
	e.WriteType(a.ElemTag)
	for _, item := range a.Items {
		item.EncodeValue(e)
	}
}

// Vec is a variable-length homogeneous sequence; wire shape is identical to
// Array, the distinction (fixed vs growable) exists only at the Go call
// site, matching spec.md's separate ARRAY/VEC tags over one wire rule.
type Vec struct {
	ElemTag TypeTag
	Items   []Value
}

func (Vec) Tag() TypeTag { return TypeVec }
func (v Vec) EncodeValue(e *Encoder) {
	e.writeLenOrPanic(len(v.Items))
	e.WriteType(v.ElemTag)
	for _, item := range v.Items {
		item.EncodeValue(e)
	}
}

// Tuple is a heterogeneous, arbitrary-arity sequence: any number of
// differently-typed elements, encoded in order with no per-element length
// cap beyond the overall u16 count prefix.
type Tuple []Value

func (Tuple) Tag() TypeTag { return TypeTuple }
func (t Tuple) EncodeValue(e *Encoder) {
	e.writeLenOrPanic(len(t))
	for _, item := range t {
		e.Encode(item)
	}
}
