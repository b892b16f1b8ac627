package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ComponentFingerprint derives a content-addressed identifier for a component
// instantiation, the same way the teacher derives a fresh contract address
// from (caller, nonce) in CreateContract: Keccak256 over the owning
// package's bytes, the blueprint name, and a per-package instantiation
// counter. It is not used as the component's Address (that stays a
// kind-tagged, allocator-issued Address per the transaction's address
// allocator) — it is a stable, externally-displayable identifier stored on
// the Component record. The debug inspection endpoint does not report it.
func ComponentFingerprint(pkg Address, blueprint string, nonce uint64) common.Hash {
	pre := append([]byte{}, pkg.Bytes()...)
	pre = append(pre, []byte(blueprint)...)
	pre = append(pre,
		byte(nonce), byte(nonce>>8), byte(nonce>>16), byte(nonce>>24),
		byte(nonce>>32), byte(nonce>>40), byte(nonce>>48), byte(nonce>>56),
	)
	return common.BytesToHash(crypto.Keccak256(pre))
}
