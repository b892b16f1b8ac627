// Package sbor implements the self-describing binary object representation
// used for all guest/host data exchange and on-ledger state. It supports two
// wire modes: with-metadata (every value preceded by a one-byte type tag) and
// no-metadata (raw value bytes, type known from the caller-supplied Type).
//
// The wire format is fixed and must never change shape: this package exists
// so that two independently-built binaries agree byte-for-byte on the
// encoding of any supported value.
package sbor

// TypeTag is the single-byte discriminant written ahead of every value in
// with-metadata mode. The first 17 tags are the closed primitive universe;
// everything from TypeAddress onward is a platform custom type reserved for
// the resource/execution layers built on top of this package.
type TypeTag byte

const (
	TypeUnit TypeTag = iota
	TypeBool
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeI128
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeU128
	TypeString
	TypeOption
	TypeArray
	TypeVec
	TypeTuple

	// Custom types. Reserved range starts immediately after TUPLE.
	TypeAddress
	TypeBID
	TypeRID
	TypeVID
	TypeMID
	TypeH256
	TypeAmount
	TypeBucket
	TypeBucketRef
	TypeVault
	TypePackage
	TypeBlueprint
	TypeComponent
	TypeLazyMap
)

func (t TypeTag) String() string {
	switch t {
	case TypeUnit:
		return "Unit"
	case TypeBool:
		return "Bool"
	case TypeI8:
		return "I8"
	case TypeI16:
		return "I16"
	case TypeI32:
		return "I32"
	case TypeI64:
		return "I64"
	case TypeI128:
		return "I128"
	case TypeU8:
		return "U8"
	case TypeU16:
		return "U16"
	case TypeU32:
		return "U32"
	case TypeU64:
		return "U64"
	case TypeU128:
		return "U128"
	case TypeString:
		return "String"
	case TypeOption:
		return "Option"
	case TypeArray:
		return "Array"
	case TypeVec:
		return "Vec"
	case TypeTuple:
		return "Tuple"
	case TypeAddress:
		return "Address"
	case TypeBID:
		return "BID"
	case TypeRID:
		return "RID"
	case TypeVID:
		return "VID"
	case TypeMID:
		return "MID"
	case TypeH256:
		return "H256"
	case TypeAmount:
		return "Amount"
	case TypeBucket:
		return "Bucket"
	case TypeBucketRef:
		return "BucketRef"
	case TypeVault:
		return "Vault"
	case TypePackage:
		return "Package"
	case TypeBlueprint:
		return "Blueprint"
	case TypeComponent:
		return "Component"
	case TypeLazyMap:
		return "LazyMap"
	default:
		return "Custom"
	}
}

// MaxLen is the hard cap on any SBOR length prefix: a u16, per spec Open
// Question (a). The decoder must never trust a length prefix beyond this,
// and must never preallocate more than the bytes actually remaining.
const MaxLen = 1<<16 - 1
