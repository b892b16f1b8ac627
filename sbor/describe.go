package sbor

// Describe builds the structural Type tree for v. The same tree doubles as
// the schema a no-metadata decode needs to know what bytes mean, and as the
// export shape a blueprint's ABI hands to callers — one description, two
// consumers, so they can never drift apart.
func Describe(v Value) Type {
	switch x := v.(type) {
	case Unit:
		return Type{Kind: TypeUnit}
	case Bool:
		return Type{Kind: TypeBool}
	case I8:
		return Type{Kind: TypeI8}
	case I16:
		return Type{Kind: TypeI16}
	case I32:
		return Type{Kind: TypeI32}
	case I64:
		return Type{Kind: TypeI64}
	case I128:
		return Type{Kind: TypeI128}
	case U8:
		return Type{Kind: TypeU8}
	case U16:
		return Type{Kind: TypeU16}
	case U32:
		return Type{Kind: TypeU32}
	case U64:
		return Type{Kind: TypeU64}
	case U128:
		return Type{Kind: TypeU128}
	case Str:
		return Type{Kind: TypeString}
	case Option:
		if x.Inner == nil {
			return Type{Kind: TypeOption, Elem: &Type{Kind: TypeUnit}}
		}
		elem := Describe(x.Inner)
		return Type{Kind: TypeOption, Elem: &elem}
	case Array:
		elem := elemTypeOf(x.ElemTag, x.Items)
		return Type{Kind: TypeArray, Elem: &elem, ArrayLen: len(x.Items)}
	case Vec:
		elem := elemTypeOf(x.ElemTag, x.Items)
		return Type{Kind: TypeVec, Elem: &elem, ArrayLen: -1}
	case Tuple:
		elems := make([]Type, len(x))
		for i, item := range x {
			elems[i] = Describe(item)
		}
		return Type{Kind: TypeTuple, Elems: elems, ArrayLen: -1}
	default:
		return Type{Kind: v.Tag(), CustomName: v.Tag().String(), ArrayLen: -1}
	}
}

func elemTypeOf(tag TypeTag, items []Value) Type {
	if len(items) > 0 {
		return Describe(items[0])
	}
	return Type{Kind: tag, ArrayLen: -1}
}

// Equal reports whether two Type trees describe the same shape. Custom
// leaves compare by name since the underlying Go type is opaque to this
// package.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case TypeOption, TypeArray, TypeVec:
		if a.Kind == TypeArray && a.ArrayLen != b.ArrayLen {
			return false
		}
		if a.Elem == nil || b.Elem == nil {
			return a.Elem == b.Elem
		}
		return Equal(*a.Elem, *b.Elem)
	case TypeTuple:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	default:
		if a.Kind < TypeAddress {
			return true
		}
		return a.CustomName == b.CustomName
	}
}
