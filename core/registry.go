package core

import (
	"math/big"

	"linearis/sbor"
)

// init binds this package's custom wire tags into sbor's self-describing
// DecodeAny dispatch, so host-to-guest arguments and guest return values —
// both always SBOR-encoded in with-metadata mode per the invocation
// protocol — can be decoded without the host separately tracking each
// blueprint's declared types.
func init() {
	sbor.RegisterCustomDecoder(sbor.TypeAddress, func(d *sbor.Decoder) (sbor.Value, error) {
		b, err := d.ReadBytes(addressLen)
		if err != nil {
			return nil, err
		}
		var out Address
		copy(out[:], b)
		return out, nil
	})
	sbor.RegisterCustomDecoder(sbor.TypeBID, func(d *sbor.Decoder) (sbor.Value, error) {
		v, err := readU64(d)
		return BID(v), err
	})
	sbor.RegisterCustomDecoder(sbor.TypeRID, func(d *sbor.Decoder) (sbor.Value, error) {
		v, err := readU64(d)
		return RID(v), err
	})
	sbor.RegisterCustomDecoder(sbor.TypeVID, func(d *sbor.Decoder) (sbor.Value, error) {
		v, err := readU64(d)
		return VID(v), err
	})
	sbor.RegisterCustomDecoder(sbor.TypeMID, func(d *sbor.Decoder) (sbor.Value, error) {
		v, err := readU64(d)
		return MID(v), err
	})
	sbor.RegisterCustomDecoder(sbor.TypeAmount, func(d *sbor.Decoder) (sbor.Value, error) {
		raw, err := d.ReadBytes(32)
		if err != nil {
			return nil, err
		}
		be := make([]byte, 32)
		for i, bt := range raw {
			be[32-1-i] = bt
		}
		return AmountFromBig(new(big.Int).SetBytes(be))
	})
}
