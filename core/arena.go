package core

import "sync"

// Arena is the sole mutator of bucket/vault amounts and resource supplies.
// It owns three tables keyed by BID, RID, and VID, guarded by one mutex —
// the same sandboxMu-style coarse lock the teacher uses for its global
// sandbox table (vm_sandbox_management.go), since operations within a
// single transaction are already totally ordered by host-call sequence and
// the lock exists only to protect against concurrent Runtime instances
// that might (in a future host) share one arena.
type Arena struct {
	mu sync.RWMutex

	buckets  map[BID]*Bucket
	refs     map[RID]BID
	refCount map[BID]int
	vaults   map[VID]*Vault
	defs     map[Address]*ResourceDef

	nextBID uint64
	nextRID uint64
	nextVID uint64
}

// NewArena constructs an empty arena.
func NewArena() *Arena {
	return &Arena{
		buckets:  make(map[BID]*Bucket),
		refs:     make(map[RID]BID),
		refCount: make(map[BID]int),
		vaults:   make(map[VID]*Vault),
		defs:     make(map[Address]*ResourceDef),
	}
}

// CreateResource registers a new resource type and returns its address. The
// address itself must already have been allocated by the transaction's
// AddressAllocator (kind ResourceDef); CreateResource only attaches the
// definition.
func (a *Arena) CreateResource(addr Address, name, symbol string, policy SupplyPolicy, minterBadge *Address) *ResourceDef {
	a.mu.Lock()
	defer a.mu.Unlock()
	def := &ResourceDef{
		Address:     addr,
		Name:        name,
		Symbol:      symbol,
		Policy:      policy,
		MinterBadge: minterBadge,
		totalSupply: ZeroAmount(),
	}
	a.defs[addr] = def
	return def
}

// ResourceDefOf looks up a previously created resource definition.
func (a *Arena) ResourceDefOf(addr Address) (*ResourceDef, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.defs[addr]
	return d, ok
}

// Mint issues a fresh Bucket of amount for resource, owned by frame. It
// fails UnauthorizedMint if the resource is SupplyFixed and already has a
// nonzero supply (a fixed resource may only be minted into existence once),
// or if a minter badge is configured and frame does not hold a nonzero
// bucket of that badge resource.
func (a *Arena) Mint(frame *Process, resource Address, amount Amount) (BID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	def, ok := a.defs[resource]
	if !ok {
		return 0, &Error{Kind: InvalidReference, Context: "mint: unknown resource", OffenderID: resource.Hex()}
	}
	if def.Policy == SupplyFixed && !def.totalSupply.IsZero() {
		return 0, &Error{Kind: UnauthorizedMint, Context: "fixed-supply resource already issued"}
	}
	if def.MinterBadge != nil && !a.frameHoldsNonzero(frame, *def.MinterBadge) {
		return 0, &Error{Kind: UnauthorizedMint, Context: "caller does not hold minter badge"}
	}

	newSupply, err := def.totalSupply.Add(amount)
	if err != nil {
		return 0, err
	}
	def.totalSupply = newSupply

	a.nextBID++
	bid := BID(a.nextBID)
	a.buckets[bid] = &Bucket{Resource: resource, Amount: amount, Owner: frame}
	return bid, nil
}

func (a *Arena) frameHoldsNonzero(frame *Process, resource Address) bool {
	for _, b := range a.buckets {
		if b.Owner == frame && b.Resource == resource && !b.Amount.IsZero() {
			return true
		}
	}
	return false
}

// ownsBID reports whether bid is currently owned by frame.
func (a *Arena) ownsBID(frame *Process, bid BID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.buckets[bid]
	return ok && b.Owner == frame
}

// Burn consumes bucket and reduces the resource's total supply. Fails
// UnauthorizedMint if the resource is SupplyFixed (a fixed resource's
// supply can never shrink once issued).
func (a *Arena) Burn(bid BID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buckets[bid]
	if !ok {
		return &Error{Kind: InvalidReference, Context: "burn: unknown bucket"}
	}
	def := a.defs[b.Resource]
	if def.Policy == SupplyFixed {
		return &Error{Kind: UnauthorizedMint, Context: "cannot burn a fixed-supply resource"}
	}
	newSupply, err := def.totalSupply.Sub(b.Amount)
	if err != nil {
		return err
	}
	def.totalSupply = newSupply

	a.invalidateRefs(bid)
	delete(a.buckets, bid)
	return nil
}

// BucketPut merges src into target, consuming src. Rejects differing
// resources with ResourceMismatch, and rejects target==src (a self-put)
// with InvalidReference per the Open Question resolution — merging a
// bucket into itself has no sensible linear-ownership semantics.
func (a *Arena) BucketPut(target, src BID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if target == src {
		return &Error{Kind: InvalidReference, Context: "bucket_put: self-put is rejected"}
	}
	t, ok := a.buckets[target]
	if !ok {
		return &Error{Kind: InvalidReference, Context: "bucket_put: unknown target bucket"}
	}
	s, ok := a.buckets[src]
	if !ok {
		return &Error{Kind: InvalidReference, Context: "bucket_put: unknown source bucket"}
	}
	if t.Resource != s.Resource {
		return &Error{Kind: ResourceMismatch, Context: "bucket_put: differing resource addresses"}
	}
	sum, err := t.Amount.Add(s.Amount)
	if err != nil {
		return err
	}
	t.Amount = sum

	a.invalidateRefs(src)
	delete(a.buckets, src)
	return nil
}

// BucketTake splits amount out of src into a freshly minted BID owned by
// the same frame as src. Fails InsufficientBalance if amount exceeds the
// source's balance; both BIDs remain valid afterward.
func (a *Arena) BucketTake(src BID, amount Amount) (BID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.buckets[src]
	if !ok {
		return 0, &Error{Kind: InvalidReference, Context: "bucket_take: unknown bucket"}
	}
	if s.Amount.LessThan(amount) {
		return 0, &Error{Kind: InsufficientBalance, Context: "bucket_take: amount exceeds balance"}
	}
	remaining, err := s.Amount.Sub(amount)
	if err != nil {
		return 0, err
	}
	s.Amount = remaining

	a.nextBID++
	newBID := BID(a.nextBID)
	a.buckets[newBID] = &Bucket{Resource: s.Resource, Amount: amount, Owner: s.Owner}
	return newBID, nil
}

// BucketBorrow issues a non-owning reference to bid. The bucket remains
// owned by its current frame.
func (a *Arena) BucketBorrow(bid BID) (RID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.buckets[bid]; !ok {
		return 0, &Error{Kind: InvalidReference, Context: "bucket_borrow: unknown bucket"}
	}
	a.nextRID++
	rid := RID(a.nextRID)
	a.refs[rid] = bid
	a.refCount[bid]++
	return rid, nil
}

// RefDrop releases a reference. It never affects the referenced bucket's
// amount or existence.
func (a *Arena) RefDrop(rid RID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	bid, ok := a.refs[rid]
	if !ok {
		return &Error{Kind: InvalidReference, Context: "ref_drop: unknown reference"}
	}
	delete(a.refs, rid)
	a.refCount[bid]--
	if a.refCount[bid] <= 0 {
		delete(a.refCount, bid)
	}
	return nil
}

// invalidateRefs drops every outstanding RID aliasing bid; called whenever
// bid leaves the arena by merge, deposit, or burn.
func (a *Arena) invalidateRefs(bid BID) {
	for rid, owner := range a.refs {
		if owner == bid {
			delete(a.refs, rid)
		}
	}
	delete(a.refCount, bid)
}

func (a *Arena) BucketAmount(bid BID) (Amount, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.buckets[bid]
	if !ok {
		return Amount{}, &Error{Kind: InvalidReference, Context: "bucket_amount: unknown bucket"}
	}
	return b.Amount, nil
}

func (a *Arena) BucketResource(bid BID) (Address, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.buckets[bid]
	if !ok {
		return Address{}, &Error{Kind: InvalidReference, Context: "bucket_resource: unknown bucket"}
	}
	return b.Resource, nil
}

func (a *Arena) RefAmount(rid RID) (Amount, error) {
	a.mu.RLock()
	bid, ok := a.refs[rid]
	a.mu.RUnlock()
	if !ok {
		return Amount{}, &Error{Kind: InvalidReference, Context: "ref_amount: unknown reference"}
	}
	return a.BucketAmount(bid)
}

func (a *Arena) RefResource(rid RID) (Address, error) {
	a.mu.RLock()
	bid, ok := a.refs[rid]
	a.mu.RUnlock()
	if !ok {
		return Address{}, &Error{Kind: InvalidReference, Context: "ref_resource: unknown reference"}
	}
	return a.BucketResource(bid)
}

// VaultCreate allocates a persistent, empty vault for resource bound to
// component. Vaults can never move to another component.
func (a *Arena) VaultCreate(component, resource Address) VID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextVID++
	vid := VID(a.nextVID)
	a.vaults[vid] = &Vault{Resource: resource, Amount: ZeroAmount(), Component: component}
	return vid
}

// VaultPut deposits bid's full amount into vault, consuming the bucket and
// invalidating any outstanding RIDs on it. Rejects a cross-resource deposit
// with ResourceMismatch, and rejects addressing a vault from a foreign
// component with InvalidReference.
func (a *Arena) VaultPut(caller Address, vid VID, bid BID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	v, ok := a.vaults[vid]
	if !ok {
		return &Error{Kind: InvalidReference, Context: "vault_put: unknown vault"}
	}
	if v.Component != caller {
		return &Error{Kind: InvalidReference, Context: "vault_put: vault not owned by calling component"}
	}
	b, ok := a.buckets[bid]
	if !ok {
		return &Error{Kind: InvalidReference, Context: "vault_put: unknown bucket"}
	}
	if b.Resource != v.Resource {
		return &Error{Kind: ResourceMismatch, Context: "vault_put: differing resource addresses"}
	}
	sum, err := v.Amount.Add(b.Amount)
	if err != nil {
		return err
	}
	v.Amount = sum

	a.invalidateRefs(bid)
	delete(a.buckets, bid)
	return nil
}

// VaultTake withdraws amount from vault into a freshly minted BID owned by
// frame. Fails InsufficientBalance if amount exceeds the vault's balance,
// and InvalidReference if the calling component does not own the vault.
func (a *Arena) VaultTake(caller Address, frame *Process, vid VID, amount Amount) (BID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	v, ok := a.vaults[vid]
	if !ok {
		return 0, &Error{Kind: InvalidReference, Context: "vault_take: unknown vault"}
	}
	if v.Component != caller {
		return 0, &Error{Kind: InvalidReference, Context: "vault_take: vault not owned by calling component"}
	}
	if v.Amount.LessThan(amount) {
		return 0, &Error{Kind: InsufficientBalance, Context: "vault_take: amount exceeds balance"}
	}
	remaining, err := v.Amount.Sub(amount)
	if err != nil {
		return 0, err
	}
	v.Amount = remaining

	a.nextBID++
	bid := BID(a.nextBID)
	a.buckets[bid] = &Bucket{Resource: v.Resource, Amount: amount, Owner: frame}
	return bid, nil
}

func (a *Arena) VaultAmount(vid VID) (Amount, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.vaults[vid]
	if !ok {
		return Amount{}, &Error{Kind: InvalidReference, Context: "vault_amount: unknown vault"}
	}
	return v.Amount, nil
}

// frameOwnedBIDs returns the BIDs currently owned by frame — used by Process to
// enforce the dangling-resource check at frame exit.
func (a *Arena) frameOwnedBIDs(frame *Process) []BID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []BID
	for bid, b := range a.buckets {
		if b.Owner == frame {
			out = append(out, bid)
		}
	}
	return out
}

// TransferOwner reassigns bid's owning frame, used at call/return
// boundaries when a BID crosses from caller to callee or back.
func (a *Arena) TransferOwner(bid BID, to *Process) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buckets[bid]
	if !ok {
		return &Error{Kind: InvalidReference, Context: "transfer: unknown bucket"}
	}
	b.Owner = to
	return nil
}

// arenaSnapshot is a deep copy of every table Arena mutates, taken before a
// transaction's body runs so it can be restored verbatim on failure — the
// same shape as the teacher's memState.Snapshot, generalized from a single
// flat key/value store to this arena's several typed tables.
type arenaSnapshot struct {
	buckets  map[BID]*Bucket
	refs     map[RID]BID
	refCount map[BID]int
	vaults   map[VID]*Vault
	defs     map[Address]*ResourceDef
	nextBID  uint64
	nextRID  uint64
	nextVID  uint64
}

func (a *Arena) snapshot() *arenaSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &arenaSnapshot{
		buckets:  make(map[BID]*Bucket, len(a.buckets)),
		refs:     make(map[RID]BID, len(a.refs)),
		refCount: make(map[BID]int, len(a.refCount)),
		vaults:   make(map[VID]*Vault, len(a.vaults)),
		defs:     make(map[Address]*ResourceDef, len(a.defs)),
		nextBID:  a.nextBID,
		nextRID:  a.nextRID,
		nextVID:  a.nextVID,
	}
	for k, v := range a.buckets {
		cp := *v
		s.buckets[k] = &cp
	}
	for k, v := range a.refs {
		s.refs[k] = v
	}
	for k, v := range a.refCount {
		s.refCount[k] = v
	}
	for k, v := range a.vaults {
		cp := *v
		s.vaults[k] = &cp
	}
	for k, v := range a.defs {
		cp := *v
		s.defs[k] = &cp
	}
	return s
}

func (a *Arena) restore(s *arenaSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buckets = s.buckets
	a.refs = s.refs
	a.refCount = s.refCount
	a.vaults = s.vaults
	a.defs = s.defs
	a.nextBID = s.nextBID
	a.nextRID = s.nextRID
	a.nextVID = s.nextVID
}
