package core

import "linearis/sbor"

// expectTuple consumes a Tuple's leading tag and length prefix, checking
// the length matches arity exactly, so each dispatch handler can then
// decode its fixed fields in order.
func expectTuple(d *sbor.Decoder, arity int) error {
	if err := d.ExpectType(sbor.TypeTuple); err != nil {
		return err
	}
	n, err := d.ReadLen()
	if err != nil {
		return err
	}
	if n != arity {
		return newErr(BannedInstruction, "kernel op argument arity mismatch")
	}
	return nil
}

func (p *Process) dispatchCreateResource(d *sbor.Decoder) (sbor.Value, error) {
	if err := expectTuple(d, 4); err != nil {
		return nil, err
	}
	name, err := sbor.DecodeString(d)
	if err != nil {
		return nil, err
	}
	symbol, err := sbor.DecodeString(d)
	if err != nil {
		return nil, err
	}
	policyByte, err := sbor.DecodeU8(d)
	if err != nil {
		return nil, err
	}
	policy := SupplyFixed
	if policyByte == 1 {
		policy = SupplyMutable
	}
	badgeOpt, err := sbor.DecodeOption(d, sbor.Type{Kind: sbor.TypeAddress})
	if err != nil {
		return nil, err
	}
	var badge *Address
	if badgeOpt.Inner != nil {
		a := badgeOpt.Inner.(Address)
		badge = &a
	}

	addr := p.runtime.allocator.NewOfKind(KindResourceDef)
	p.runtime.arena.CreateResource(addr, string(name), string(symbol), policy, badge)
	return addr, nil
}

func (p *Process) dispatchMint(d *sbor.Decoder) (sbor.Value, error) {
	if err := expectTuple(d, 2); err != nil {
		return nil, err
	}
	resource, err := DecodeAddress(d)
	if err != nil {
		return nil, err
	}
	amount, err := DecodeAmount(d)
	if err != nil {
		return nil, err
	}
	bid, err := p.runtime.arena.Mint(p, resource, amount)
	if err != nil {
		return nil, err
	}
	return bid, nil
}

func (p *Process) dispatchBurn(d *sbor.Decoder) (sbor.Value, error) {
	bid, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	if err := p.ownsBID(bid); err != nil {
		return nil, err
	}
	if err := p.runtime.arena.Burn(bid); err != nil {
		return nil, err
	}
	return sbor.Unit{}, nil
}

func (p *Process) dispatchBucketPut(d *sbor.Decoder) (sbor.Value, error) {
	if err := expectTuple(d, 2); err != nil {
		return nil, err
	}
	target, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	src, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	if err := p.ownsBID(target); err != nil {
		return nil, err
	}
	if err := p.ownsBID(src); err != nil {
		return nil, err
	}
	if err := p.runtime.arena.BucketPut(target, src); err != nil {
		return nil, err
	}
	return sbor.Unit{}, nil
}

func (p *Process) dispatchBucketTake(d *sbor.Decoder) (sbor.Value, error) {
	if err := expectTuple(d, 2); err != nil {
		return nil, err
	}
	src, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	amount, err := DecodeAmount(d)
	if err != nil {
		return nil, err
	}
	if err := p.ownsBID(src); err != nil {
		return nil, err
	}
	bid, err := p.runtime.arena.BucketTake(src, amount)
	if err != nil {
		return nil, err
	}
	return bid, nil
}

func (p *Process) dispatchBucketBorrow(d *sbor.Decoder) (sbor.Value, error) {
	bid, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	if err := p.ownsBID(bid); err != nil {
		return nil, err
	}
	rid, err := p.runtime.arena.BucketBorrow(bid)
	if err != nil {
		return nil, err
	}
	return rid, nil
}

func (p *Process) dispatchRefDrop(d *sbor.Decoder) (sbor.Value, error) {
	rid, err := DecodeRID(d)
	if err != nil {
		return nil, err
	}
	if err := p.runtime.arena.RefDrop(rid); err != nil {
		return nil, err
	}
	return sbor.Unit{}, nil
}

func (p *Process) dispatchBucketAmount(d *sbor.Decoder) (sbor.Value, error) {
	bid, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	amt, err := p.runtime.arena.BucketAmount(bid)
	if err != nil {
		return nil, err
	}
	return amt, nil
}

func (p *Process) dispatchRefAmount(d *sbor.Decoder) (sbor.Value, error) {
	rid, err := DecodeRID(d)
	if err != nil {
		return nil, err
	}
	amt, err := p.runtime.arena.RefAmount(rid)
	if err != nil {
		return nil, err
	}
	return amt, nil
}

func (p *Process) dispatchBucketResource(d *sbor.Decoder) (sbor.Value, error) {
	bid, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	addr, err := p.runtime.arena.BucketResource(bid)
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (p *Process) dispatchRefResource(d *sbor.Decoder) (sbor.Value, error) {
	rid, err := DecodeRID(d)
	if err != nil {
		return nil, err
	}
	addr, err := p.runtime.arena.RefResource(rid)
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (p *Process) dispatchVaultCreate(d *sbor.Decoder) (sbor.Value, error) {
	resource, err := DecodeAddress(d)
	if err != nil {
		return nil, err
	}
	if p.component == nil {
		return nil, newErr(InvalidReference, "vault_create: no component context")
	}
	vid := p.runtime.arena.VaultCreate(*p.component, resource)
	return vid, nil
}

func (p *Process) dispatchVaultPut(d *sbor.Decoder) (sbor.Value, error) {
	if err := expectTuple(d, 2); err != nil {
		return nil, err
	}
	vid, err := DecodeVID(d)
	if err != nil {
		return nil, err
	}
	bid, err := DecodeBID(d)
	if err != nil {
		return nil, err
	}
	if err := p.ownsBID(bid); err != nil {
		return nil, err
	}
	if p.component == nil {
		return nil, newErr(InvalidReference, "vault_put: no component context")
	}
	if err := p.runtime.arena.VaultPut(*p.component, vid, bid); err != nil {
		return nil, err
	}
	return sbor.Unit{}, nil
}

func (p *Process) dispatchVaultTake(d *sbor.Decoder) (sbor.Value, error) {
	if err := expectTuple(d, 2); err != nil {
		return nil, err
	}
	vid, err := DecodeVID(d)
	if err != nil {
		return nil, err
	}
	amount, err := DecodeAmount(d)
	if err != nil {
		return nil, err
	}
	if p.component == nil {
		return nil, newErr(InvalidReference, "vault_take: no component context")
	}
	bid, err := p.runtime.arena.VaultTake(*p.component, p, vid, amount)
	if err != nil {
		return nil, err
	}
	return bid, nil
}

func (p *Process) dispatchVaultAmount(d *sbor.Decoder) (sbor.Value, error) {
	vid, err := DecodeVID(d)
	if err != nil {
		return nil, err
	}
	amt, err := p.runtime.arena.VaultAmount(vid)
	if err != nil {
		return nil, err
	}
	return amt, nil
}

// dispatchCallMethod sub-invokes another blueprint method, creating a
// child Process and atomically transferring any BIDs listed in its
// arguments on entry, then atomically returning whatever BIDs the child
// hands back.
func (p *Process) dispatchCallMethod(d *sbor.Decoder) (sbor.Value, error) {
	if err := expectTuple(d, 3); err != nil {
		return nil, err
	}
	component, err := DecodeAddress(d)
	if err != nil {
		return nil, err
	}
	method, err := sbor.DecodeString(d)
	if err != nil {
		return nil, err
	}
	// Raw SBOR-encoded argument value, carried as a string payload. It is read
	// without DecodeString's UTF-8 check, since SBOR bytes are arbitrary binary.
	if err := d.ExpectType(sbor.TypeString); err != nil {
		return nil, err
	}
	n, err := d.ReadLen()
	if err != nil {
		return nil, err
	}
	argBytes, err := d.ReadBytes(n)
	if err != nil {
		return nil, err
	}

	out, err := p.runtime.callMethodFromFrame(p, component, string(method), argBytes)
	if err != nil {
		return nil, err
	}
	return sbor.Str(out), nil
}
