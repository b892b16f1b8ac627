package core

import (
	"testing"

	"linearis/sbor"
)

// fakeMemory is an in-process stand-in for a wasm linear memory, sized large
// enough that the tests never need Grow to do real work.
type fakeMemory struct {
	data []byte
}

func newFakeMemory(size uint32) *fakeMemory {
	return &fakeMemory{data: make([]byte, size)}
}

func (m *fakeMemory) Read(ptr, length uint32) []byte {
	out := make([]byte, length)
	copy(out, m.data[ptr:ptr+length])
	return out
}

func (m *fakeMemory) Write(ptr uint32, data []byte) {
	copy(m.data[ptr:], data)
}

func (m *fakeMemory) Grow(extraPages uint32) error {
	m.data = append(m.data, make([]byte, extraPages*(1<<16))...)
	return nil
}

func (m *fakeMemory) Len() uint32 { return uint32(len(m.data)) }

// fakeInstance implements ModuleInstance by running a plain Go closure in
// place of a compiled guest export, letting Process.Invoke be exercised
// end-to-end without a real wasm sandbox.
type fakeInstance struct {
	mem     *fakeMemory
	exports map[string]func(p *Process, inputPtr uint32) (uint32, error)
	proc    *Process
}

func (f *fakeInstance) HasExport(name string) bool {
	_, ok := f.exports[name]
	return ok
}

func (f *fakeInstance) CallExport(name string, inputPtr uint32) (uint32, error) {
	fn, ok := f.exports[name]
	if !ok {
		return 0, &Error{Kind: UnknownMethod, Context: "export not found: " + name}
	}
	return fn(f.proc, inputPtr)
}

func (f *fakeInstance) Memory() LinearMemory { return f.mem }

// writeValue encodes v and writes it at the export's return convention,
// returning the pointer the export should report as its result.
func writeValue(p *Process, v sbor.Value) uint32 {
	enc := sbor.Encode(v)
	ptr, err := p.alloc(uint32(len(enc)))
	if err != nil {
		panic(err)
	}
	p.inst.Memory().Write(ptr, enc)
	return ptr
}

// TestDanglingResourceScenario is seed scenario 6: a method mints a bucket
// and returns Unit, never depositing or returning the BID, so Invoke must
// fail DanglingResources.
func TestDanglingResourceScenario(t *testing.T) {
	rt := NewRuntime(1_000_000)
	resource := testResourceAddr(9)
	rt.arena.CreateResource(resource, "Dangling", "DGL", SupplyMutable, nil)

	steps := NewStepMeter(1_000_000)
	proc := newProcess(rt, nil, Address{}, nil, "Danger", nil, steps)
	mem := newFakeMemory(1 << 20)
	inst := &fakeInstance{mem: mem, proc: proc, exports: map[string]func(*Process, uint32) (uint32, error){}}
	proc.inst = inst

	inst.exports["Danger_mint_and_drop"] = func(p *Process, inputPtr uint32) (uint32, error) {
		if _, err := rt.arena.Mint(p, resource, NewAmount(5)); err != nil {
			return 0, err
		}
		return writeValue(p, sbor.Unit{}), nil
	}

	_, _, err := proc.Invoke("Danger_mint_and_drop", sbor.Unit{})
	assertErrKindCore(t, err, DanglingResources)
}

func testKindAddr(kind AddressKind, b byte) Address {
	var a Address
	a[0] = byte(kind)
	a[1] = b
	return a
}

// writeAt encodes v into mem at a fixed scratch offset and returns that
// offset — used by callee-side export stand-ins that have no owning Process
// (and so no bump allocator) to hand back.
func writeAt(mem *fakeMemory, v sbor.Value) uint32 {
	const scratch = 1 << 18
	enc := sbor.Encode(v)
	mem.Write(scratch, enc)
	return scratch
}

// TestCrossComponentBucketHandoff is the spec's headline cross-frame move:
// a caller mints a bucket and hands its BID to another component's method
// via OpCallMethod. Ownership must atomically cross into the callee frame
// for the call, then atomically cross back to the caller on return.
func TestCrossComponentBucketHandoff(t *testing.T) {
	rt := NewRuntime(1_000_000)
	resource := testResourceAddr(20)
	rt.arena.CreateResource(resource, "Handoff", "HOF", SupplyMutable, nil)

	calleePkgAddr := testKindAddr(KindPackage, 21)
	calleeComponentAddr := testKindAddr(KindComponent, 22)

	var callerProc *Process
	var observedOwner *Process

	calleeMem := newFakeMemory(1 << 20)
	calleeInst := &fakeInstance{mem: calleeMem, exports: map[string]func(*Process, uint32) (uint32, error){}}
	calleeInst.exports["Wallet_receive"] = func(_ *Process, inputPtr uint32) (uint32, error) {
		raw := calleeMem.Read(inputPtr, calleeMem.Len()-inputPtr)
		argVal, err := sbor.DecodeAny(sbor.NewDecoder(raw, true))
		if err != nil {
			return 0, err
		}
		bid := argVal.(BID)

		rt.arena.mu.RLock()
		observedOwner = rt.arena.buckets[bid].Owner
		rt.arena.mu.RUnlock()
		if observedOwner == callerProc {
			return 0, newErr(InvalidReference, "bucket ownership did not cross into callee frame")
		}
		return writeAt(calleeMem, bid), nil
	}

	rt.packages[calleePkgAddr] = &Package{
		Address:    calleePkgAddr,
		ModuleInst: calleeInst,
		Blueprints: map[string]*Blueprint{"Wallet": {Name: "Wallet", Address: DeriveBlueprintAddress(calleePkgAddr, "Wallet")}},
	}
	rt.components[calleeComponentAddr] = &Component{
		Address:       calleeComponentAddr,
		Package:       calleePkgAddr,
		BlueprintName: "Wallet",
	}

	callerMem := newFakeMemory(1 << 20)
	callerInst := &fakeInstance{mem: callerMem, exports: map[string]func(*Process, uint32) (uint32, error){}}
	callerInst.exports["Sender_send"] = func(p *Process, inputPtr uint32) (uint32, error) {
		bid, err := rt.arena.Mint(p, resource, NewAmount(7))
		if err != nil {
			return 0, err
		}
		callArgs := sbor.Tuple{
			calleeComponentAddr,
			sbor.Str("receive"),
			sbor.Str(string(sbor.Encode(bid))),
		}
		d := sbor.NewDecoder(sbor.Encode(callArgs), true)
		raw, err := p.dispatchCallMethod(d)
		if err != nil {
			return 0, err
		}
		// The dispatch op's result is itself a raw-bytes string payload,
		// carrying whatever value the callee returned — the guest-side
		// call_method wrapper is responsible for decoding it, the same
		// convention dispatchCallMethod's argBytes uses on the way in.
		retVal, err := sbor.DecodeAny(sbor.NewDecoder([]byte(raw.(sbor.Str)), true))
		if err != nil {
			return 0, err
		}
		return writeValue(p, retVal), nil
	}

	steps := NewStepMeter(1_000_000)
	callerProc = newProcess(rt, nil, testKindAddr(KindPackage, 23), nil, "Sender", callerInst, steps)
	callerInst.proc = callerProc

	ret, _, err := callerProc.Invoke("Sender_send", sbor.Unit{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	bid, ok := ret.(BID)
	if !ok {
		t.Fatalf("returned value = %v, want BID", ret)
	}
	if observedOwner == nil || observedOwner == callerProc {
		t.Fatalf("bucket was never rebound to the callee frame")
	}
	if !rt.arena.ownsBID(callerProc, bid) {
		t.Fatalf("bucket was not rebound back to the caller frame on return")
	}
}

// TestReturnedBucketSatisfiesReconcile checks the companion positive case:
// a method that mints a bucket and returns its BID does not trip the
// dangling-resource check.
func TestReturnedBucketSatisfiesReconcile(t *testing.T) {
	rt := NewRuntime(1_000_000)
	resource := testResourceAddr(10)
	rt.arena.CreateResource(resource, "Returned", "RET", SupplyMutable, nil)

	steps := NewStepMeter(1_000_000)
	proc := newProcess(rt, nil, Address{}, nil, "Mint", nil, steps)
	mem := newFakeMemory(1 << 20)
	inst := &fakeInstance{mem: mem, proc: proc, exports: map[string]func(*Process, uint32) (uint32, error){}}
	proc.inst = inst

	var minted BID
	inst.exports["Mint_new_bucket"] = func(p *Process, inputPtr uint32) (uint32, error) {
		bid, err := rt.arena.Mint(p, resource, NewAmount(5))
		if err != nil {
			return 0, err
		}
		minted = bid
		return writeValue(p, bid), nil
	}

	ret, _, err := proc.Invoke("Mint_new_bucket", sbor.Unit{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if ret.(BID) != minted {
		t.Fatalf("returned value = %v, want %v", ret, minted)
	}
}
