package core

import (
	"github.com/wasmerio/wasmer-go/wasmer"
)

// KernelOp is the opaque integer index identifying which arena/runtime
// operation a guest's dispatch call names. The table is fixed and
// versioned: indices are never reassigned once shipped.
type KernelOp uint32

const (
	OpCreateResource KernelOp = iota
	OpMint
	OpBurn
	OpBucketPut
	OpBucketTake
	OpBucketBorrow
	OpRefDrop
	OpBucketAmount
	OpRefAmount
	OpBucketResource
	OpRefResource
	OpVaultCreate
	OpVaultPut
	OpVaultTake
	OpVaultAmount
	OpCallMethod
	opCount
)

var kernelOpNames = [opCount]string{
	"create_resource", "mint", "burn",
	"bucket_put", "bucket_take", "bucket_borrow", "ref_drop",
	"bucket_amount", "ref_amount", "bucket_resource", "ref_resource",
	"vault_create", "vault_put", "vault_take", "vault_amount",
	"call_method",
}

func (op KernelOp) String() string {
	if int(op) < len(kernelOpNames) {
		return kernelOpNames[op]
	}
	return "unknown_op"
}

// KernelImportTable is the fixed, versioned vector of host functions a
// validated module is permitted to import. Every entry is exposed to the
// guest as a single generic "dispatch" function taking (op, input_ptr) so
// that the table itself — not a proliferation of distinct import symbols —
// is what's versioned.
type KernelImportTable struct {
	gasLimit uint64
}

// NewKernelImportTable constructs a table bound to a per-call step budget.
func NewKernelImportTable(gasLimit uint64) *KernelImportTable {
	return &KernelImportTable{gasLimit: gasLimit}
}

// Has reports whether name is a recognized kernel import symbol. Validate
// uses this to reject UnknownImport before instantiation.
func (k *KernelImportTable) Has(name string) bool {
	switch name {
	case "dispatch", "consume_step":
		return true
	default:
		return false
	}
}

// hostCtx is the per-invocation state the kernel import functions close
// over: the owning Process (which routes dispatch to the arena/runtime),
// the step meter, and the sandbox's linear memory once instantiated.
type hostCtx struct {
	mem   *wasmer.Memory
	proc  *Process
	steps *StepMeter
}

// build registers the kernel import table's functions under the "kernel"
// namespace for the given store and per-call host context, mirroring the
// shape of the teacher's registerHost (store, hostCtx) -> ImportObject, but
// with one generic dispatch entrypoint instead of four fixed host_* calls,
// since this kernel's operation set is open-ended and versioned by index
// rather than by import symbol.
func (k *KernelImportTable) build(store *wasmer.Store, h *hostCtx) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	dispatch := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32), wasmer.ValueKind(wasmer.I32)),
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32)),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			op := KernelOp(uint32(args[0].I32()))
			inputPtr := uint32(args[1].I32())
			outputPtr, err := h.proc.kernelDispatch(op, inputPtr)
			if err != nil {
				return nil, err
			}
			return []wasmer.Value{wasmer.NewI32(int32(outputPtr))}, nil
		},
	)

	consumeStep := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32)),
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32)),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			n := uint32(args[0].I32())
			if err := h.steps.Consume(uint64(n)); err != nil {
				return nil, err
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	imports.Register(KernelNamespace, map[string]wasmer.IntoExtern{
		"dispatch":     dispatch,
		"consume_step": consumeStep,
	})
	return imports
}

// StepMeter enforces the bounded-step budget the sandbox substrate hook
// calls for: once exhausted, execution aborts with ExecutionLimitReached.
// It mirrors the shape of the teacher's GasMeter (virtual_machine.go) but
// counts abstract steps rather than priced opcodes, matching this spec's
// metering hook.
type StepMeter struct {
	used, limit uint64
}

// NewStepMeter constructs a StepMeter with the given step budget.
func NewStepMeter(limit uint64) *StepMeter {
	return &StepMeter{limit: limit}
}

// Remaining reports the steps left in the budget.
func (s *StepMeter) Remaining() uint64 { return s.limit - s.used }

// Consume deducts n steps, failing ExecutionLimitReached on exhaustion.
func (s *StepMeter) Consume(n uint64) error {
	if s.used+n > s.limit {
		return &Error{Kind: ExecutionLimitReached, Context: "step budget exhausted"}
	}
	s.used += n
	return nil
}
