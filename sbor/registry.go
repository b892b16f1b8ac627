package sbor

import "unicode/utf8"

// customDecoders lets domain packages (core's Address, BID, RID, VID, MID,
// Amount, ...) plug their custom tag range into DecodeAny without sbor
// importing anything about them — the dependency points the other way, as
// it must (core depends on sbor, never sbor on core).
var customDecoders = map[TypeTag]func(d *Decoder) (Value, error){}

// RegisterCustomDecoder binds tag to a decode function. Call this from an
// init() in the package that owns the custom type; registering the same
// tag twice panics, since two conflicting owners of one wire tag is a
// programming error that must fail loudly at startup, not at decode time.
func RegisterCustomDecoder(tag TypeTag, fn func(d *Decoder) (Value, error)) {
	if _, exists := customDecoders[tag]; exists {
		panic("sbor: custom tag already registered: " + tag.String())
	}
	customDecoders[tag] = fn
}

// DecodeAny decodes one value purely from its own leading type tag, with no
// externally supplied Type — only meaningful in with-metadata mode, since
// no-metadata mode has no tag to read. Composite tags (Option, Array, Vec,
// Tuple) recurse through DecodeAny for their self-describing payload:
// Array/Vec's shared element tag and Tuple/Option's per-element tags are
// all present on the wire in this mode.
func DecodeAny(d *Decoder) (Value, error) {
	if !d.withMetadata {
		return nil, newErr(MismatchedType, "DecodeAny requires with-metadata mode")
	}
	tag, err := d.ReadType()
	if err != nil {
		return nil, err
	}
	return decodeAnyOfTag(d, tag)
}

func decodeAnyOfTag(d *Decoder, tag TypeTag) (Value, error) {
	switch tag {
	case TypeUnit:
		return Unit{}, nil
	case TypeBool:
		return decodeBoolBody(d)
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
		return decodeFixed16(d, func(b [16]byte) Value { return I128(b) })
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
		return decodeFixed16(d, func(b [16]byte) Value { return U128(b) })
	case TypeString:
		return decodeStringBody(d)
	case TypeOption:
		return decodeOptionAny(d)
	case TypeArray:
		return decodeSeqAny(d, TypeArray)
	case TypeVec:
		return decodeSeqAny(d, TypeVec)
	case TypeTuple:
		return decodeTupleAny(d)
	default:
		fn, ok := customDecoders[tag]
		if !ok {
			return nil, newErr(MismatchedType, "no decoder registered for tag "+tag.String())
		}
		return fn(d)
	}
}

func decodeBoolBody(d *Decoder) (Value, error) {
	b, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		return Bool(false), nil
	case 1:
		return Bool(true), nil
	default:
		return nil, newErr(InvalidBool, "bool discriminant must be 0 or 1")
	}
}

func decodeFixed16(d *Decoder, wrap func([16]byte) Value) (Value, error) {
	b, err := d.ReadBytes(16)
	if err != nil {
		return nil, err
	}
	var out [16]byte
	copy(out[:], b)
	return wrap(out), nil
}

func decodeStringBody(d *Decoder) (Value, error) {
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
}

func decodeOptionAny(d *Decoder) (Value, error) {
	disc, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch disc {
	case 0:
		return Option{}, nil
	case 1:
		inner, err := DecodeAny(d)
		if err != nil {
			return nil, err
		}
		return Option{Inner: inner}, nil
	default:
		return nil, newErr(InvalidDiscriminant, "option discriminant must be 0 or 1")
	}
}

func decodeSeqAny(d *Decoder, outer TypeTag) (Value, error) {
	n, err := d.ReadLen()
	if err != nil {
		return nil, err
	}
	elemTag, err := d.ReadType()
	if err != nil {
		return nil, err
	}
	items := make([]Value, 0, minInt(n, d.Remaining()+1))
	for i := 0; i < n; i++ {
		v, err := decodeAnyOfTag(d, elemTag)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if outer == TypeArray {
		return Array{ElemTag: elemTag, Items: items}, nil
	}
	return Vec{ElemTag: elemTag, Items: items}, nil
}

func decodeTupleAny(d *Decoder) (Value, error) {
	n, err := d.ReadLen()
	if err != nil {
		return nil, err
	}
	out := make(Tuple, 0, minInt(n, d.Remaining()))
	for i := 0; i < n; i++ {
		v, err := DecodeAny(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
