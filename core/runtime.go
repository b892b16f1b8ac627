package core

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/sirupsen/logrus"

	"linearis/sbor"
)

// Runtime is the top-level coordinator: it owns the package table, the
// component table, the resource arena, and the per-transaction address
// allocator. All state mutations run inside a staged write set that is
// discarded wholesale on any fatal error — there is no partial commit.
type Runtime struct {
	mu sync.RWMutex

	arena          *Arena
	packages       map[Address]*Package
	components     map[Address]*Component
	allocator      *AddressAllocator
	instanceNonces map[Address]uint64

	loader     *Loader
	kernel     *KernelImportTable
	stepBudget uint64

	txCounter uint64
	log       *logrus.Entry
}

// NewRuntime constructs an empty Runtime with the given default per-call
// step budget.
func NewRuntime(stepBudget uint64) *Runtime {
	kernel := NewKernelImportTable(stepBudget)
	return &Runtime{
		arena:          NewArena(),
		packages:       make(map[Address]*Package),
		components:     make(map[Address]*Component),
		instanceNonces: make(map[Address]uint64),
		kernel:         kernel,
		loader:         NewLoader(kernel, stepBudget),
		stepBudget:     stepBudget,
		log:            runtimeLogger(),
	}
}

var (
	loggerOnce sync.Once
	baseLogger *logrus.Logger
)

// runtimeLogger returns the package-wide structured logger, initialized
// once the same way the teacher guards its singleton registries with
// sync.Once (see contracts.go's contractOnce).
func runtimeLogger() *logrus.Entry {
	loggerOnce.Do(func() {
		baseLogger = logrus.New()
		baseLogger.SetFormatter(&logrus.JSONFormatter{})
	})
	return baseLogger.WithField("component", "runtime")
}

// nextTxHash derives a fresh, deterministic-within-process transaction
// hash. Real deployments would hash the actual transaction payload; this
// host derives one from a monotonic counter since transaction framing is
// out of this package's scope.
func (rt *Runtime) nextTxHash() [32]byte {
	rt.txCounter++
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], rt.txCounter)
	return sha256.Sum256(buf[:])
}

// withTransaction snapshots every mutable table, runs fn, and rolls back to
// the snapshot if fn returns an error — the all-or-nothing commit the spec
// requires, grounded in the teacher's memState.Snapshot(fn) pattern.
func (rt *Runtime) withTransaction(fn func() error) error {
	rt.mu.Lock()
	origPackages := make(map[Address]*Package, len(rt.packages))
	for k, v := range rt.packages {
		origPackages[k] = v
	}
	origComponents := make(map[Address]*Component, len(rt.components))
	for k, v := range rt.components {
		origComponents[k] = v
	}
	rt.mu.Unlock()

	arenaSnap := rt.arena.snapshot()

	err := fn()
	if err != nil {
		rt.mu.Lock()
		rt.packages = origPackages
		rt.components = origComponents
		rt.mu.Unlock()
		rt.arena.restore(arenaSnap)
		rt.log.WithError(err).Warn("transaction rolled back")
	}
	return err
}

// Publish runs the loader's parse/validate/instantiate pipeline over
// moduleBytes, registers the resulting Package, and returns its fresh
// address.
func (rt *Runtime) Publish(moduleBytes []byte, blueprintNames []string) (Address, error) {
	var addr Address
	err := rt.withTransaction(func() error {
		txHash := rt.nextTxHash()
		alloc := NewAddressAllocator(txHash)

		pkgAddr := alloc.NewOfKind(KindPackage)

		steps := NewStepMeter(rt.stepBudget)
		proc := newProcess(rt, nil, pkgAddr, nil, "", nil, steps)
		hctx := &hostCtx{proc: proc, steps: steps}

		inst, err := rt.loader.Load(moduleBytes, hctx)
		if err != nil {
			return err
		}
		proc.inst = inst

		blueprints := make(map[string]*Blueprint, len(blueprintNames))
		for _, name := range blueprintNames {
			blueprints[name] = &Blueprint{
				Name:    name,
				Address: DeriveBlueprintAddress(pkgAddr, name),
			}
		}

		rt.mu.Lock()
		rt.packages[pkgAddr] = &Package{Address: pkgAddr, ModuleInst: inst, Blueprints: blueprints}
		rt.mu.Unlock()

		rt.allocator = alloc
		addr = pkgAddr
		return nil
	})
	if err != nil {
		return Address{}, err
	}
	return addr, nil
}

// CallFunction invokes a blueprint-level (no component instance) function.
func (rt *Runtime) CallFunction(pkgAddr Address, blueprintName, function string, args sbor.Value) (sbor.Value, error) {
	var ret sbor.Value
	err := rt.withTransaction(func() error {
		rt.mu.RLock()
		pkg, ok := rt.packages[pkgAddr]
		rt.mu.RUnlock()
		if !ok {
			return newErr(UnknownBlueprint, "no such package")
		}
		if _, ok := pkg.Blueprints[blueprintName]; !ok {
			return newErr(UnknownBlueprint, blueprintName)
		}

		txHash := rt.nextTxHash()
		steps := NewStepMeter(rt.stepBudget)
		proc := newProcess(rt, nil, pkgAddr, nil, blueprintName, pkg.ModuleInst, steps)
		rt.allocator = NewAddressAllocator(txHash)

		export := blueprintName + "_" + function
		out, _, err := proc.Invoke(export, args)
		if err != nil {
			return err
		}
		ret = out
		return nil
	})
	return ret, err
}

// CallMethod invokes a method on an already-instantiated component.
func (rt *Runtime) CallMethod(componentAddr Address, method string, args sbor.Value) (sbor.Value, error) {
	var ret sbor.Value
	err := rt.withTransaction(func() error {
		out, err := rt.callMethodFromFrame(nil, componentAddr, method, sbor.Encode(args))
		if err != nil {
			return err
		}
		d := sbor.NewDecoder([]byte(out), true)
		v, derr := sbor.DecodeAny(d)
		if derr != nil {
			return wrapErr(GuestTrap, "malformed component return value", derr)
		}
		ret = v
		return nil
	})
	return ret, err
}

// callMethodFromFrame resolves componentAddr, instantiates a child Process
// (parented to caller, or a root frame for a top-level CallMethod), and
// invokes method with the raw SBOR-encoded argBytes, returning the raw
// SBOR-encoded result. This is the single path both Runtime.CallMethod and
// a guest's OpCallMethod sub-invocation go through, so cross-component
// calls and top-level calls share identical BID-transfer and
// dangling-resource semantics.
func (rt *Runtime) callMethodFromFrame(caller *Process, componentAddr Address, method string, argBytes []byte) (string, error) {
	rt.mu.RLock()
	comp, ok := rt.components[componentAddr]
	rt.mu.RUnlock()
	if !ok {
		return "", newErr(UnknownMethod, "no such component")
	}
	rt.mu.RLock()
	pkg, ok := rt.packages[comp.Package]
	rt.mu.RUnlock()
	if !ok {
		return "", newErr(UnknownBlueprint, "component's package no longer published")
	}

	steps := NewStepMeter(rt.stepBudget)
	child := newProcess(rt, caller, comp.Package, &componentAddr, comp.BlueprintName, pkg.ModuleInst, steps)

	d := sbor.NewDecoder(argBytes, true)
	argVal, err := sbor.DecodeAny(d)
	if err != nil {
		return "", wrapErr(GuestTrap, "malformed call arguments", err)
	}

	// A top-level Runtime.CallMethod has no owning caller frame to transfer
	// from — its arguments come from outside any Process, so there is
	// nothing to rebind. A guest-driven sub-invocation (caller != nil) must
	// atomically move any BID named in the arguments to the child before
	// the child ever runs, and move whatever BIDs the child hands back to
	// the caller once it returns — the call/return boundary handoff.
	if caller != nil {
		if err := rt.transferBIDs(argVal, caller, child); err != nil {
			return "", err
		}
	}

	export := comp.BlueprintName + "_" + method
	out, _, err := child.Invoke(export, argVal)
	if err != nil {
		return "", err
	}

	if caller != nil {
		if err := rt.transferBIDs(out, child, caller); err != nil {
			return "", err
		}
	}
	return string(sbor.Encode(out)), nil
}

// transferBIDs walks v's decoded value tree for BIDs and atomically moves
// ownership of each one found from 'from' to 'to'. Every BID encountered
// must already be owned by 'from'; one that is not fails InvalidReference
// rather than silently leaving ownership split across frames. RIDs are not
// rebound: a reference is not itself linearly owned by any frame (only the
// Bucket it aliases is), so there is nothing in the arena to reassign for
// one.
func (rt *Runtime) transferBIDs(v sbor.Value, from, to *Process) error {
	found := make(map[BID]struct{})
	collectBIDs(v, found)
	for bid := range found {
		if !rt.arena.ownsBID(from, bid) {
			return &Error{Kind: InvalidReference, OffenderID: formatBID(bid), Context: "cross-frame argument BID not owned by caller"}
		}
		if err := rt.arena.TransferOwner(bid, to); err != nil {
			return err
		}
	}
	return nil
}

// InstantiateComponent registers a new Component for an already-published
// blueprint, allocating its address from the current transaction's
// allocator.
func (rt *Runtime) InstantiateComponent(pkgAddr Address, blueprintName string, state []byte) (Address, error) {
	if rt.allocator == nil {
		return Address{}, newErr(HostInvariantViolation, "no active transaction allocator")
	}
	addr := rt.allocator.NewOfKind(KindComponent)

	rt.mu.Lock()
	nonce := rt.instanceNonces[pkgAddr]
	rt.instanceNonces[pkgAddr] = nonce + 1
	fp := ComponentFingerprint(pkgAddr, blueprintName, nonce)
	rt.components[addr] = &Component{
		Address:       addr,
		Package:       pkgAddr,
		BlueprintName: blueprintName,
		State:         state,
		Fingerprint:   fp,
	}
	rt.mu.Unlock()
	return addr, nil
}
