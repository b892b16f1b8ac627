package core

import (
	"github.com/google/uuid"

	"linearis/sbor"
)

// ProcessState is the state machine every activation frame walks through.
// Suspension occurs exclusively at host-call boundaries; there is no other
// way for control to return to the host mid-execution.
type ProcessState int

const (
	Ready ProcessState = iota
	Running
	SuspendedOnHostCall
	Returned
	Failed
)

// Process is one activation frame: a reference to the owning Runtime, the
// package+component context the frame is executing in, and the sandbox
// instance backing the guest code. The BIDs owned by this frame are not
// stored here; the arena records each bucket's owning Process.
type Process struct {
	runtime *Runtime
	parent  *Process

	pkg       Address
	component *Address // nil for a call_function with no component context
	blueprint string

	inst  ModuleInstance
	steps *StepMeter
	state ProcessState

	bump uint32 // linear-memory bump allocator high-water mark

	// traceID correlates every log line this frame (and its kernel
	// dispatches) emits, the way the teacher's contract_vm_test.go
	// expects a single reproducible id per invocation.
	traceID string
}

func newProcess(rt *Runtime, parent *Process, pkg Address, component *Address, blueprint string, inst ModuleInstance, steps *StepMeter) *Process {
	return &Process{
		runtime:   rt,
		parent:    parent,
		pkg:       pkg,
		component: component,
		blueprint: blueprint,
		inst:      inst,
		steps:     steps,
		state:     Ready,
		bump:      1 << 16, // leave the first 64KiB to the guest's own data segment
		traceID:   uuid.NewString(),
	}
}

// alloc reserves n bytes in the sandbox's linear memory and returns the
// starting offset, growing memory in 64KiB pages if the reservation would
// overrun the current size.
func (p *Process) alloc(n uint32) (uint32, error) {
	mem := p.inst.Memory()
	const pageSize = 1 << 16
	for p.bump+n > mem.Len() {
		if err := mem.Grow(1); err != nil {
			return 0, err
		}
	}
	ptr := p.bump
	p.bump += n
	// keep subsequent allocations page-aligned for readability when inspecting dumps
	if rem := p.bump % pageSize; rem != 0 && n > 0 {
		p.bump += pageSize - rem
	}
	return ptr, nil
}

// Invoke runs export with args encoded via SBOR (metadata mode), following
// the protocol in full: serialize, write to sandbox memory, execute,
// decode the result, and reconcile ownership before returning.
func (p *Process) Invoke(export string, args sbor.Value) (sbor.Value, sbor.Type, error) {
	p.state = Running
	entry := p.runtime.log.WithFields(map[string]interface{}{
		"trace":     p.traceID,
		"package":   p.pkg.Hex(),
		"blueprint": p.blueprint,
		"export":    export,
	})
	entry.Debug("invoking export")

	encoded := sbor.Encode(args)
	ptr, err := p.alloc(uint32(len(encoded)))
	if err != nil {
		p.state = Failed
		return nil, sbor.Type{}, err
	}
	p.inst.Memory().Write(ptr, encoded)

	outPtr, err := p.inst.CallExport(export, ptr)
	if err != nil {
		p.state = Failed
		entry.WithError(err).Error("export trapped")
		return nil, sbor.Type{}, err
	}

	remaining := p.inst.Memory().Len() - outPtr
	outBytes := p.inst.Memory().Read(outPtr, remaining)
	d := sbor.NewDecoder(outBytes, true)
	ret, err := sbor.DecodeAny(d)
	if err != nil {
		p.state = Failed
		return nil, sbor.Type{}, wrapErr(GuestTrap, "malformed return value", err)
	}
	retType := sbor.Describe(ret)

	if err := p.reconcile(ret); err != nil {
		p.state = Failed
		entry.WithError(err).Error("dangling resources on return")
		return nil, sbor.Type{}, err
	}

	p.state = Returned
	return ret, retType, nil
}

// reconcile enforces the dangling-resource invariant: any BID still owned
// by this frame after execution that is not part of the return value is a
// fatal DanglingResources error.
func (p *Process) reconcile(ret sbor.Value) error {
	returned := make(map[BID]struct{})
	collectBIDs(ret, returned)

	owned := p.runtime.arena.frameOwnedBIDs(p)
	for _, bid := range owned {
		if _, ok := returned[bid]; !ok {
			return &Error{Kind: DanglingResources, OffenderID: formatBID(bid)}
		}
	}
	return nil
}

func collectBIDs(v sbor.Value, out map[BID]struct{}) {
	switch x := v.(type) {
	case BID:
		out[x] = struct{}{}
	case sbor.Option:
		if x.Inner != nil {
			collectBIDs(x.Inner, out)
		}
	case sbor.Array:
		for _, item := range x.Items {
			collectBIDs(item, out)
		}
	case sbor.Vec:
		for _, item := range x.Items {
			collectBIDs(item, out)
		}
	case sbor.Tuple:
		for _, item := range x {
			collectBIDs(item, out)
		}
	}
}

// kernelDispatch is the single entrypoint every guest host-call import
// funnels through. It decodes the SBOR-encoded operation record at
// inputPtr, executes it against the arena (or sub-invokes another blueprint
// method), and writes back an SBOR-encoded output, returning its pointer.
// Frame checks: burn, bucket_put, bucket_take, bucket_borrow and vault_put
// require the named BIDs to be owned by this frame, and vault_put/vault_take
// require the vault to belong to this frame's component. The read-only
// queries (bucket_amount, bucket_resource, ref_amount, ref_resource,
// vault_amount) and ref_drop do not check the frame.
func (p *Process) kernelDispatch(op KernelOp, inputPtr uint32) (uint32, error) {
	p.state = SuspendedOnHostCall
	defer func() { p.state = Running }()

	if err := p.steps.Consume(1); err != nil {
		return 0, err
	}

	p.runtime.log.WithFields(map[string]interface{}{
		"trace": p.traceID,
		"op":    op,
	}).Debug("kernel dispatch")

	mem := p.inst.Memory()
	raw := mem.Read(inputPtr, mem.Len()-inputPtr)
	d := sbor.NewDecoder(raw, true)

	var out sbor.Value
	var err error

	switch op {
	case OpCreateResource:
		out, err = p.dispatchCreateResource(d)
	case OpMint:
		out, err = p.dispatchMint(d)
	case OpBurn:
		out, err = p.dispatchBurn(d)
	case OpBucketPut:
		out, err = p.dispatchBucketPut(d)
	case OpBucketTake:
		out, err = p.dispatchBucketTake(d)
	case OpBucketBorrow:
		out, err = p.dispatchBucketBorrow(d)
	case OpRefDrop:
		out, err = p.dispatchRefDrop(d)
	case OpBucketAmount:
		out, err = p.dispatchBucketAmount(d)
	case OpRefAmount:
		out, err = p.dispatchRefAmount(d)
	case OpBucketResource:
		out, err = p.dispatchBucketResource(d)
	case OpRefResource:
		out, err = p.dispatchRefResource(d)
	case OpVaultCreate:
		out, err = p.dispatchVaultCreate(d)
	case OpVaultPut:
		out, err = p.dispatchVaultPut(d)
	case OpVaultTake:
		out, err = p.dispatchVaultTake(d)
	case OpVaultAmount:
		out, err = p.dispatchVaultAmount(d)
	case OpCallMethod:
		out, err = p.dispatchCallMethod(d)
	default:
		return 0, &Error{Kind: UnknownMethod, Context: "unrecognized kernel op"}
	}
	if err != nil {
		return 0, err
	}

	encoded := sbor.Encode(out)
	outPtr, err := p.alloc(uint32(len(encoded)))
	if err != nil {
		return 0, err
	}
	mem.Write(outPtr, encoded)
	return outPtr, nil
}

// ownsBID checks that bid is owned by this frame, the InvalidReference guard
// kernelDispatch applies before touching the arena.
func (p *Process) ownsBID(bid BID) error {
	if p.runtime.arena.ownsBID(p, bid) {
		return nil
	}
	return &Error{Kind: InvalidReference, OffenderID: formatBID(bid), Context: "BID not owned by calling frame"}
}

func formatBID(b BID) string { return "BID:" + sbor.TypeBID.String() + ":" + itoa(uint64(b)) }

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
