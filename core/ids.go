package core

import "linearis/sbor"

// BID is a transient, per-invocation bucket identifier. It is only valid
// within the Process that produced it and its callees until moved by
// argument/return.
type BID uint64

func (BID) Tag() sbor.TypeTag { return sbor.TypeBID }
func (b BID) EncodeValue(e *sbor.Encoder) { e.WriteBytes(u64le(uint64(b))) }

func DecodeBID(d *sbor.Decoder) (BID, error) {
	if err := d.ExpectType(sbor.TypeBID); err != nil {
		return 0, err
	}
	v, err := readU64(d)
	return BID(v), err
}

// RID is a transient handle to a read-only view of a bucket. Multiple RIDs
// may alias one BID; RIDs never own the bucket they reference.
type RID uint64

func (RID) Tag() sbor.TypeTag { return sbor.TypeRID }
func (r RID) EncodeValue(e *sbor.Encoder) { e.WriteBytes(u64le(uint64(r))) }

func DecodeRID(d *sbor.Decoder) (RID, error) {
	if err := d.ExpectType(sbor.TypeRID); err != nil {
		return 0, err
	}
	v, err := readU64(d)
	return RID(v), err
}

// VID is a persistent, per-component vault identifier.
type VID uint64

func (VID) Tag() sbor.TypeTag { return sbor.TypeVID }
func (v VID) EncodeValue(e *sbor.Encoder) { e.WriteBytes(u64le(uint64(v))) }

func DecodeVID(d *sbor.Decoder) (VID, error) {
	if err := d.ExpectType(sbor.TypeVID); err != nil {
		return 0, err
	}
	raw, err := readU64(d)
	return VID(raw), err
}

// MID is a persistent handle to a host-managed ordered map used by
// component state.
type MID uint64

func (MID) Tag() sbor.TypeTag { return sbor.TypeMID }
func (m MID) EncodeValue(e *sbor.Encoder) { e.WriteBytes(u64le(uint64(m))) }

func DecodeMID(d *sbor.Decoder) (MID, error) {
	if err := d.ExpectType(sbor.TypeMID); err != nil {
		return 0, err
	}
	raw, err := readU64(d)
	return MID(raw), err
}

func u64le(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

func readU64(d *sbor.Decoder) (uint64, error) {
	b, err := d.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}
