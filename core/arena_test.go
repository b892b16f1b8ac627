package core

import "testing"

func testResourceAddr(b byte) Address {
	var a Address
	a[0] = byte(KindResourceDef)
	a[1] = b
	return a
}

func mustAmount(t *testing.T, n uint64) Amount {
	t.Helper()
	return NewAmount(n)
}

// TestCombineScenario is seed scenario 3: mint two buckets of 50 of the same
// resource, put the second into the first, and check the result.
func TestCombineScenario(t *testing.T) {
	a := NewArena()
	frame := &Process{}
	resource := testResourceAddr(1)
	a.CreateResource(resource, "Gold", "GLD", SupplyMutable, nil)

	b1, err := a.Mint(frame, resource, mustAmount(t, 50))
	if err != nil {
		t.Fatalf("mint b1: %v", err)
	}
	b2, err := a.Mint(frame, resource, mustAmount(t, 50))
	if err != nil {
		t.Fatalf("mint b2: %v", err)
	}

	if err := a.BucketPut(b1, b2); err != nil {
		t.Fatalf("bucket_put: %v", err)
	}

	amt, err := a.BucketAmount(b1)
	if err != nil {
		t.Fatalf("bucket_amount: %v", err)
	}
	if amt.Cmp(mustAmount(t, 100)) != 0 {
		t.Fatalf("combined amount = %s, want 100", amt)
	}
	if _, err := a.BucketAmount(b2); err == nil {
		t.Fatalf("b2 should be invalidated after put")
	}
}

// TestSplitScenario is seed scenario 4: mint 100, take(5) -> (95, 5), both
// BIDs valid and distinct.
func TestSplitScenario(t *testing.T) {
	a := NewArena()
	frame := &Process{}
	resource := testResourceAddr(2)
	a.CreateResource(resource, "Silver", "SLV", SupplyMutable, nil)

	b, err := a.Mint(frame, resource, mustAmount(t, 100))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	taken, err := a.BucketTake(b, mustAmount(t, 5))
	if err != nil {
		t.Fatalf("bucket_take: %v", err)
	}
	if taken == b {
		t.Fatalf("split should produce a distinct BID")
	}

	remaining, err := a.BucketAmount(b)
	if err != nil || remaining.Cmp(mustAmount(t, 95)) != 0 {
		t.Fatalf("remaining = %v, %v; want 95", remaining, err)
	}
	takenAmt, err := a.BucketAmount(taken)
	if err != nil || takenAmt.Cmp(mustAmount(t, 5)) != 0 {
		t.Fatalf("taken = %v, %v; want 5", takenAmt, err)
	}
}

// TestBorrowDropScenario is seed scenario 5: borrowing and dropping a
// reference never affects the underlying bucket.
func TestBorrowDropScenario(t *testing.T) {
	a := NewArena()
	frame := &Process{}
	resource := testResourceAddr(3)
	a.CreateResource(resource, "Copper", "CPR", SupplyMutable, nil)

	b, err := a.Mint(frame, resource, mustAmount(t, 100))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	rid, err := a.BucketBorrow(b)
	if err != nil {
		t.Fatalf("bucket_borrow: %v", err)
	}
	if err := a.RefDrop(rid); err != nil {
		t.Fatalf("ref_drop: %v", err)
	}

	amt, err := a.BucketAmount(b)
	if err != nil || amt.Cmp(mustAmount(t, 100)) != 0 {
		t.Fatalf("amount after borrow+drop = %v, %v; want 100", amt, err)
	}
	if _, err := a.RefAmount(rid); err == nil {
		t.Fatalf("dropped reference should no longer resolve")
	}
}

// TestSelfPutRejected covers Open Question (c): bucket_put(x, x) must fail
// InvalidReference rather than silently doubling or no-op'ing.
func TestSelfPutRejected(t *testing.T) {
	a := NewArena()
	frame := &Process{}
	resource := testResourceAddr(4)
	a.CreateResource(resource, "Tin", "TIN", SupplyMutable, nil)

	b, err := a.Mint(frame, resource, mustAmount(t, 10))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	err = a.BucketPut(b, b)
	assertErrKindCore(t, err, InvalidReference)
}

// TestFixedSupplySecondMintRejected covers the fixed-supply single-issuance
// rule.
func TestFixedSupplySecondMintRejected(t *testing.T) {
	a := NewArena()
	frame := &Process{}
	resource := testResourceAddr(5)
	a.CreateResource(resource, "Relic", "RLC", SupplyFixed, nil)

	if _, err := a.Mint(frame, resource, mustAmount(t, 1)); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	_, err := a.Mint(frame, resource, mustAmount(t, 1))
	assertErrKindCore(t, err, UnauthorizedMint)
}

// TestConservationAcrossPutTake is the conservation invariant: a sequence of
// non-mint/non-burn ops never changes the total amount in circulation for a
// resource.
func TestConservationAcrossPutTake(t *testing.T) {
	a := NewArena()
	frame := &Process{}
	resource := testResourceAddr(6)
	a.CreateResource(resource, "Iron", "IRN", SupplyMutable, nil)

	b, err := a.Mint(frame, resource, mustAmount(t, 77))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	total := func() Amount {
		ids := []BID{}
		for id := range a.buckets {
			ids = append(ids, id)
		}
		sum := ZeroAmount()
		for _, id := range ids {
			amt, err := a.BucketAmount(id)
			if err != nil {
				t.Fatalf("bucket_amount: %v", err)
			}
			s, err := sum.Add(amt)
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			sum = s
		}
		return sum
	}

	before := total()

	split, err := a.BucketTake(b, mustAmount(t, 20))
	if err != nil {
		t.Fatalf("bucket_take: %v", err)
	}
	rid, err := a.BucketBorrow(split)
	if err != nil {
		t.Fatalf("bucket_borrow: %v", err)
	}
	if err := a.RefDrop(rid); err != nil {
		t.Fatalf("ref_drop: %v", err)
	}
	if err := a.BucketPut(b, split); err != nil {
		t.Fatalf("bucket_put: %v", err)
	}

	after := total()
	if before.Cmp(after) != 0 {
		t.Fatalf("conservation violated: before=%s after=%s", before, after)
	}
}

// componentAddr builds a test Address tagged as a component, distinct from
// testResourceAddr's resource-def tagging.
func componentAddr(b byte) Address {
	var a Address
	a[0] = byte(KindComponent)
	a[1] = b
	return a
}

// TestVaultPutTakeRoundTrip covers the basic vault lifecycle: create, put a
// bucket in, take part of it back out, and check the remaining balance.
func TestVaultPutTakeRoundTrip(t *testing.T) {
	a := NewArena()
	owner := componentAddr(1)
	frame := &Process{}
	resource := testResourceAddr(7)
	a.CreateResource(resource, "Silver", "SLV", SupplyMutable, nil)

	vid := a.VaultCreate(owner, resource)
	if amt, err := a.VaultAmount(vid); err != nil || amt.Cmp(ZeroAmount()) != 0 {
		t.Fatalf("fresh vault amount = %v, %v; want 0", amt, err)
	}

	b, err := a.Mint(frame, resource, mustAmount(t, 40))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := a.VaultPut(owner, vid, b); err != nil {
		t.Fatalf("vault_put: %v", err)
	}
	if amt, err := a.VaultAmount(vid); err != nil || amt.Cmp(mustAmount(t, 40)) != 0 {
		t.Fatalf("vault amount after put = %v, %v; want 40", amt, err)
	}

	taken, err := a.VaultTake(owner, frame, vid, mustAmount(t, 15))
	if err != nil {
		t.Fatalf("vault_take: %v", err)
	}
	if amt, err := a.BucketAmount(taken); err != nil || amt.Cmp(mustAmount(t, 15)) != 0 {
		t.Fatalf("taken bucket amount = %v, %v; want 15", amt, err)
	}
	if amt, err := a.VaultAmount(vid); err != nil || amt.Cmp(mustAmount(t, 25)) != 0 {
		t.Fatalf("vault amount after take = %v, %v; want 25", amt, err)
	}
}

// TestVaultPutRejectsForeignComponent covers the spec invariant that a vault
// can only be addressed from the component it is bound to.
func TestVaultPutRejectsForeignComponent(t *testing.T) {
	a := NewArena()
	owner := componentAddr(2)
	foreign := componentAddr(3)
	frame := &Process{}
	resource := testResourceAddr(8)
	a.CreateResource(resource, "Copper", "CPR", SupplyMutable, nil)

	vid := a.VaultCreate(owner, resource)
	b, err := a.Mint(frame, resource, mustAmount(t, 5))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	err = a.VaultPut(foreign, vid, b)
	assertErrKindCore(t, err, InvalidReference)
}

// TestVaultTakeRejectsForeignComponent mirrors TestVaultPutRejectsForeignComponent
// for the withdrawal side.
func TestVaultTakeRejectsForeignComponent(t *testing.T) {
	a := NewArena()
	owner := componentAddr(4)
	foreign := componentAddr(5)
	frame := &Process{}
	resource := testResourceAddr(9)
	a.CreateResource(resource, "Nickel", "NCK", SupplyMutable, nil)

	vid := a.VaultCreate(owner, resource)
	b, err := a.Mint(frame, resource, mustAmount(t, 5))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := a.VaultPut(owner, vid, b); err != nil {
		t.Fatalf("vault_put: %v", err)
	}

	_, err = a.VaultTake(foreign, frame, vid, mustAmount(t, 1))
	assertErrKindCore(t, err, InvalidReference)
}

// TestVaultPutResourceMismatchRejected covers depositing a bucket of the
// wrong resource into a vault.
func TestVaultPutResourceMismatchRejected(t *testing.T) {
	a := NewArena()
	owner := componentAddr(6)
	frame := &Process{}
	vaultResource := testResourceAddr(10)
	bucketResource := testResourceAddr(11)
	a.CreateResource(vaultResource, "Gold", "GLD", SupplyMutable, nil)
	a.CreateResource(bucketResource, "Lead", "LED", SupplyMutable, nil)

	vid := a.VaultCreate(owner, vaultResource)
	b, err := a.Mint(frame, bucketResource, mustAmount(t, 3))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	err = a.VaultPut(owner, vid, b)
	assertErrKindCore(t, err, ResourceMismatch)
}

// TestVaultTakeInsufficientBalanceRejected checks withdrawing more than a
// vault holds fails InsufficientBalance rather than underflowing.
func TestVaultTakeInsufficientBalanceRejected(t *testing.T) {
	a := NewArena()
	owner := componentAddr(7)
	frame := &Process{}
	resource := testResourceAddr(12)
	a.CreateResource(resource, "Zinc", "ZNC", SupplyMutable, nil)

	vid := a.VaultCreate(owner, resource)
	b, err := a.Mint(frame, resource, mustAmount(t, 10))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := a.VaultPut(owner, vid, b); err != nil {
		t.Fatalf("vault_put: %v", err)
	}

	_, err = a.VaultTake(owner, frame, vid, mustAmount(t, 11))
	assertErrKindCore(t, err, InsufficientBalance)
}

func assertErrKindCore(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error kind %s, got nil", want)
	}
	ce, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *core.Error, got %T", err)
	}
	if ce.Kind != want {
		t.Fatalf("expected error kind %s, got %s", want, ce.Kind)
	}
}
