package core

// AddressAllocator issues fresh Addresses within a single transaction. It is
// seeded with the transaction hash; every call to NewOfKind returns the
// deterministic function of (txHash, kind, monotonic per-kind counter), so
// two allocators seeded with the same hash and driven through the same call
// sequence produce identical addresses, and no two calls within the same
// allocator ever collide.
type AddressAllocator struct {
	txHash   [32]byte
	counters map[AddressKind]uint64
}

// NewAddressAllocator constructs an allocator for a fresh transaction.
func NewAddressAllocator(txHash [32]byte) *AddressAllocator {
	return &AddressAllocator{
		txHash:   txHash,
		counters: make(map[AddressKind]uint64),
	}
}

// NewOfKind allocates the next address of the given kind. Valid kinds are
// Package, Component, and ResourceDef — Blueprint addresses are derived
// directly from their package (see DeriveBlueprintAddress) and are never
// allocator-issued.
func (a *AddressAllocator) NewOfKind(kind AddressKind) Address {
	n := a.counters[kind]
	a.counters[kind] = n + 1
	return deriveAddress(kind, a.txHash, n)
}
