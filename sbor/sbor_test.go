package sbor

import (
	"bytes"
	"testing"
)

// seedSequence builds the literal value sequence from the spec's seed
// scenarios 1 and 2: (), true, 1i8, 1i16, 1i32, 1i64, 1i128, 1u8, 1u16,
// 1u32, 1u64, 1u128, "hello", Some(1u32), [1u32,2,3], vec[1u32,2,3],
// (1u32,2u32).
func seedSequence() []Value {
	var i128 I128
	i128[0] = 1
	var u128 U128
	u128[0] = 1
	return []Value{
		Unit{},
		Bool(true),
		I8(1),
		I16(1),
		I32(1),
		I64(1),
		i128,
		U8(1),
		U16(1),
		U32(1),
		U64(1),
		u128,
		Str("hello"),
		Option{Inner: U32(1)},
		Array{ElemTag: TypeU32, Items: []Value{U32(1), U32(2), U32(3)}},
		Vec{ElemTag: TypeU32, Items: []Value{U32(1), U32(2), U32(3)}},
		Tuple{U32(1), U32(2)},
	}
}

func TestSeedScenario1WithMetadata(t *testing.T) {
	want := []byte{
		0,                      // unit
		1, 1,                   // bool true
		2, 1,                   // i8
		3, 1, 0,                // i16
		4, 1, 0, 0, 0,          // i32
		5, 1, 0, 0, 0, 0, 0, 0, 0, // i64
	}
	want = append(want, 6) // i128 tag
	i128Bytes := make([]byte, 16)
	i128Bytes[0] = 1
	want = append(want, i128Bytes...)
	want = append(want, 7, 1) // u8
	want = append(want, 8, 1, 0) // u16
	want = append(want, 9, 1, 0, 0, 0) // u32
	want = append(want, 10, 1, 0, 0, 0, 0, 0, 0, 0) // u64
	want = append(want, 11) // u128 tag
	u128Bytes := make([]byte, 16)
	u128Bytes[0] = 1
	want = append(want, u128Bytes...)
	want = append(want, 12, 5, 0)
	want = append(want, []byte("hello")...)
	want = append(want, 13, 1, 9, 1, 0, 0, 0) // Some(1u32)
	want = append(want, 14, 3, 0, 9, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0) // array
	want = append(want, 15, 3, 0, 9, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0) // vec
	want = append(want, 16, 2, 0, 9, 1, 0, 0, 0, 9, 2, 0, 0, 0)          // tuple

	e := NewEncoder(true)
	for _, v := range seedSequence() {
		e.Encode(v)
	}
	got := e.Bytes()
	if !bytes.Equal(got, want) {
		t.Fatalf("with-metadata seed scenario mismatch\ngot:  %v\nwant: %v", got, want)
	}
}

func TestSeedScenario2NoMetadata(t *testing.T) {
	// No-metadata: unit contributes nothing, every tag byte is elided, and
	// composite discriminants/lengths/raw payloads remain exactly as in
	// with-metadata mode.
	var want []byte
	want = append(want, 1)          // bool
	want = append(want, 1)          // i8
	want = append(want, 1, 0)       // i16
	want = append(want, 1, 0, 0, 0) // i32
	want = append(want, 1, 0, 0, 0, 0, 0, 0, 0) // i64
	i128Bytes := make([]byte, 16)
	i128Bytes[0] = 1
	want = append(want, i128Bytes...)
	want = append(want, 1)          // u8
	want = append(want, 1, 0)       // u16
	want = append(want, 1, 0, 0, 0) // u32
	want = append(want, 1, 0, 0, 0, 0, 0, 0, 0) // u64
	u128Bytes := make([]byte, 16)
	u128Bytes[0] = 1
	want = append(want, u128Bytes...)
	want = append(want, 5, 0)
	want = append(want, []byte("hello")...)
	want = append(want, 1, 1, 0, 0, 0)                   // Some(1u32): disc + raw u32
	want = append(want, 3, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0) // array: len + raw elems
	want = append(want, 3, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0) // vec
	want = append(want, 2, 0, 1, 0, 0, 0, 2, 0, 0, 0)             // tuple: len + raw elems

	e := NewEncoder(false)
	for _, v := range seedSequence() {
		e.Encode(v)
	}
	got := e.Bytes()
	if !bytes.Equal(got, want) {
		t.Fatalf("no-metadata seed scenario mismatch\ngot:  %v\nwant: %v", got, want)
	}
}

func typeOfU32() Type { return Type{Kind: TypeU32} }

func TestRoundTripWithMetadata(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		t    Type
	}{
		{"unit", Unit{}, Type{Kind: TypeUnit}},
		{"bool", Bool(true), Type{Kind: TypeBool}},
		{"i8", I8(-5), Type{Kind: TypeI8}},
		{"u32", U32(42), Type{Kind: TypeU32}},
		{"string", Str("hello world"), Type{Kind: TypeString}},
		{"empty string", Str(""), Type{Kind: TypeString}},
		{"option none", Option{}, Type{Kind: TypeOption, Elem: ptrType(typeOfU32())}},
		{"option some", Option{Inner: U32(7)}, Type{Kind: TypeOption, Elem: ptrType(typeOfU32())}},
		{"option of option", Option{Inner: Option{Inner: U8(3)}}, Type{Kind: TypeOption, Elem: ptrType(Type{Kind: TypeOption, Elem: ptrType(Type{Kind: TypeU8})})}},
		{"empty vec", Vec{ElemTag: TypeU32}, Type{Kind: TypeVec, Elem: ptrType(typeOfU32())}},
		{"array", Array{ElemTag: TypeU32, Items: []Value{U32(1), U32(2)}}, Type{Kind: TypeArray, Elem: ptrType(typeOfU32())}},
		{"nested tuple", Tuple{Tuple{U32(1), Str("x")}, Bool(false)}, Type{Kind: TypeTuple, Elems: []Type{
			{Kind: TypeTuple, Elems: []Type{{Kind: TypeU32}, {Kind: TypeString}}},
			{Kind: TypeBool},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := Encode(tc.v)
			got, err := Decode(encoded, tc.t)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			reenc := Encode(got)
			if !bytes.Equal(reenc, encoded) {
				t.Fatalf("round trip mismatch: got %v, want %v", reenc, encoded)
			}
		})
	}
}

func TestRoundTripNoMetadata(t *testing.T) {
	v := Tuple{U32(9), Str("abc"), Option{Inner: Bool(true)}}
	ty := Type{Kind: TypeTuple, Elems: []Type{
		{Kind: TypeU32}, {Kind: TypeString}, {Kind: TypeOption, Elem: ptrType(Type{Kind: TypeBool})},
	}}
	encoded := EncodeNoMetadata(v)
	got, err := DecodeNoMetadataTyped(encoded, ty)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reenc := EncodeNoMetadata(got)
	if !bytes.Equal(reenc, encoded) {
		t.Fatalf("round trip mismatch: got %v want %v", reenc, encoded)
	}
}

func TestDeterminism(t *testing.T) {
	v := Tuple{U64(123456789), Str("determinism"), Array{ElemTag: TypeBool, Items: []Value{Bool(true), Bool(false)}}}
	a := Encode(v)
	b := Encode(v)
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding not deterministic")
	}
}

func TestMismatchedType(t *testing.T) {
	encoded := Encode(U32(5))
	_, err := Decode(encoded, Type{Kind: TypeU64})
	assertErrKind(t, err, MismatchedType)
}

func TestUnexpectedEnd(t *testing.T) {
	d := NewDecoder([]byte{9, 1, 0}, true) // u32 tag but only 2 value bytes
	_, err := DecodeU32(d)
	assertErrKind(t, err, UnexpectedEnd)
}

func TestTrailingBytes(t *testing.T) {
	encoded := Encode(U8(1))
	encoded = append(encoded, 0xFF)
	_, err := Decode(encoded, Type{Kind: TypeU8})
	assertErrKind(t, err, TrailingBytes)
}

func TestInvalidBool(t *testing.T) {
	d := NewDecoder([]byte{1, 2}, true)
	_, err := DecodeBool(d)
	assertErrKind(t, err, InvalidBool)
}

func TestInvalidDiscriminant(t *testing.T) {
	d := NewDecoder([]byte{13, 2}, true)
	_, err := DecodeOption(d, typeOfU32())
	assertErrKind(t, err, InvalidDiscriminant)
}

func TestInvalidUtf8(t *testing.T) {
	bad := []byte{0xff, 0xfe}
	d := NewDecoder(append([]byte{12, 2, 0}, bad...), true)
	_, err := DecodeString(d)
	assertErrKind(t, err, InvalidUtf8)
}

func TestLengthOverflowPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on oversize length")
		}
	}()
	e := NewEncoder(true)
	e.WriteLen(MaxLen + 1)
}

func TestOversizeLengthDecodeGuard(t *testing.T) {
	// Claims a length far larger than the bytes actually present; the
	// decoder must fail, not allocate 65535 bytes it doesn't have.
	buf := []byte{12, 0xff, 0xff, 'h', 'i'}
	d := NewDecoder(buf, true)
	_, err := DecodeString(d)
	assertErrKind(t, err, UnexpectedEnd)
}

func TestDescribeRoundTripsThroughEqual(t *testing.T) {
	v := Tuple{U32(1), Option{Inner: Str("x")}, Vec{ElemTag: TypeBool, Items: []Value{Bool(true)}}}
	ty := Describe(v)
	encoded := EncodeNoMetadata(v)
	got, err := DecodeNoMetadataTyped(encoded, ty)
	if err != nil {
		t.Fatalf("decode with described type: %v", err)
	}
	if !Equal(Describe(got), ty) {
		t.Fatalf("described type not stable across round trip")
	}
}

func ptrType(t Type) *Type { return &t }

func assertErrKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error kind %s, got nil", want)
	}
	se, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *sbor.Error, got %T (%v)", err, err)
	}
	if se.Kind != want {
		t.Fatalf("expected kind %s, got %s", want, se.Kind)
	}
}
