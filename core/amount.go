package core

import (
	"math/big"

	"linearis/sbor"
)

// amountBits is the width of the on-wire Amount representation: an
// unsigned 256-bit integer, matching the stack word size the teacher's VM
// already carries *big.Int values as (see common_structs.go's Stack).
const amountBits = 256

var amountMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), amountBits), big.NewInt(1))

// Amount is a non-negative 256-bit integer. The zero Amount is valid and
// equal to 0.
type Amount struct {
	v *big.Int
}

// ZeroAmount returns the additive identity.
func ZeroAmount() Amount { return Amount{v: new(big.Int)} }

// NewAmount wraps a uint64 constant.
func NewAmount(n uint64) Amount { return Amount{v: new(big.Int).SetUint64(n)} }

// AmountFromBig copies b into an Amount. Returns HostInvariantViolation if b
// is negative or exceeds the 256-bit range.
func AmountFromBig(b *big.Int) (Amount, error) {
	a := Amount{v: new(big.Int).Set(b)}
	if err := a.checkRange(); err != nil {
		return Amount{}, err
	}
	return a, nil
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

func (a Amount) checkRange() error {
	v := a.big()
	if v.Sign() < 0 {
		return &Error{Kind: HostInvariantViolation, Context: "amount underflowed below zero"}
	}
	if v.Cmp(amountMax) > 0 {
		return &Error{Kind: HostInvariantViolation, Context: "amount overflowed 256-bit range"}
	}
	return nil
}

// Add returns a + b. Per the Open Question resolution on overflow behavior,
// an out-of-range result is not saturated — it is a fatal
// HostInvariantViolation, since silently clamping would corrupt the
// resource-conservation invariant rather than merely cap a number.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := new(big.Int).Add(a.big(), b.big())
	out := Amount{v: sum}
	if err := out.checkRange(); err != nil {
		return Amount{}, err
	}
	return out, nil
}

// Sub returns a - b. Fails HostInvariantViolation if the result would be
// negative; callers expecting an ordinary insufficient-balance condition
// should check Cmp/LessThan themselves first (see bucket_take).
func (a Amount) Sub(b Amount) (Amount, error) {
	diff := new(big.Int).Sub(a.big(), b.big())
	out := Amount{v: diff}
	if err := out.checkRange(); err != nil {
		return Amount{}, err
	}
	return out, nil
}

func (a Amount) Cmp(b Amount) int { return a.big().Cmp(b.big()) }
func (a Amount) IsZero() bool     { return a.big().Sign() == 0 }
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }
func (a Amount) String() string   { return a.big().String() }

func (Amount) Tag() sbor.TypeTag { return sbor.TypeAmount }

// EncodeValue writes the amount as 32 raw little-endian bytes, zero-padded,
// matching the fixed-width integer convention the rest of the codec uses.
func (a Amount) EncodeValue(e *sbor.Encoder) {
	var buf [32]byte
	b := a.big().Bytes() // big-endian, no leading zeros
	for i := 0; i < len(b) && i < 32; i++ {
		buf[i] = b[len(b)-1-i]
	}
	e.WriteBytes(buf[:])
}

// DecodeAmount reads a 32-byte little-endian Amount.
func DecodeAmount(d *sbor.Decoder) (Amount, error) {
	if err := d.ExpectType(sbor.TypeAmount); err != nil {
		return Amount{}, err
	}
	raw, err := d.ReadBytes(32)
	if err != nil {
		return Amount{}, err
	}
	be := make([]byte, 32)
	for i, bt := range raw {
		be[32-1-i] = bt
	}
	return Amount{v: new(big.Int).SetBytes(be)}, nil
}
