package core

import (
	"crypto/sha256"
	"encoding/hex"

	"linearis/sbor"
)

// AddressKind is the leading tag byte of every Address, distinguishing what
// kind of entity the remaining bytes were derived for.
type AddressKind byte

const (
	KindPackage AddressKind = iota
	KindBlueprint
	KindComponent
	KindResourceDef
)

func (k AddressKind) String() string {
	switch k {
	case KindPackage:
		return "Package"
	case KindBlueprint:
		return "Blueprint"
	case KindComponent:
		return "Component"
	case KindResourceDef:
		return "ResourceDef"
	default:
		return "Unknown"
	}
}

// addressLen is the full wire length of an Address: one kind byte plus 25
// bytes derived from (transaction-hash, kind, per-kind counter).
const addressLen = 26

// Address is an opaque, tagged identifier. It is deliberately NOT the
// teacher's plain 20-byte EVM-style address: the extra kind byte lets every
// consumer distinguish a package from a component from a resource
// definition without a side lookup.
type Address [addressLen]byte

// AddressZero is the sentinel zero-value address, read-only by convention.
var AddressZero = Address{}

func (a Address) Kind() AddressKind { return AddressKind(a[0]) }
func (a Address) Bytes() []byte     { return a[:] }
func (a Address) Hex() string       { return hex.EncodeToString(a[:]) }
func (a Address) String() string    { return a.Kind().String() + ":" + a.Hex() }

func (Address) Tag() sbor.TypeTag { return sbor.TypeAddress }
func (a Address) EncodeValue(e *sbor.Encoder) {
	e.WriteBytes(a[:])
}

// DecodeAddress reads an Address's raw bytes, first consuming its
// TypeAddress tag via d.ExpectType.
func DecodeAddress(d *sbor.Decoder) (Address, error) {
	if err := d.ExpectType(sbor.TypeAddress); err != nil {
		return Address{}, err
	}
	b, err := d.ReadBytes(addressLen)
	if err != nil {
		return Address{}, err
	}
	var out Address
	copy(out[:], b)
	return out, nil
}

// deriveAddress produces the 25 bytes following the kind tag from
// (txHash, kind, counter), hashed with sha256 the way the teacher derives
// contract addresses from (creator, code) in DeriveContractAddress.
func deriveAddress(kind AddressKind, txHash [32]byte, counter uint64) Address {
	pre := make([]byte, 0, len(txHash)+1+8)
	pre = append(pre, txHash[:]...)
	pre = append(pre, byte(kind))
	pre = append(pre,
		byte(counter), byte(counter>>8), byte(counter>>16), byte(counter>>24),
		byte(counter>>32), byte(counter>>40), byte(counter>>48), byte(counter>>56),
	)
	h := sha256.Sum256(pre)
	var out Address
	out[0] = byte(kind)
	copy(out[1:], h[:addressLen-1])
	return out
}

// DeriveBlueprintAddress derives a Blueprint's address from its owning
// package address and name. Unlike Package/Component/ResourceDef, blueprint
// addresses are not allocator-issued (a blueprint is a named entry inside an
// already-published package, not something minted by a transaction), so
// this is a pure function rather than a counter-based allocation.
func DeriveBlueprintAddress(pkg Address, name string) Address {
	pre := append(pkg.Bytes(), []byte(name)...)
	h := sha256.Sum256(pre)
	var out Address
	out[0] = byte(KindBlueprint)
	copy(out[1:], h[:addressLen-1])
	return out
}
