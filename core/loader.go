package core

import (
	"strings"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// KernelNamespace is the single recognized import namespace every guest
// module may import from. The teacher's VM used "env"; this host renames it
// to make the kernel/guest boundary explicit in validation errors.
const KernelNamespace = "kernel"

// ModuleInstance is a runnable, instantiated module: the product of the
// loader's three-phase pipeline. Process drives it purely through this
// interface so the execution engine can be swapped without touching
// Process/Runtime.
type ModuleInstance interface {
	// CallExport invokes the named export under the guest entry convention
	// (u32) -> u32 and returns the output pointer.
	CallExport(name string, inputPtr uint32) (uint32, error)
	// HasExport reports whether name is exported.
	HasExport(name string) bool
	// Memory exposes the instance's linear memory for argument/return
	// marshalling.
	Memory() LinearMemory
}

// LinearMemory is the sandboxed instance's addressable byte array.
type LinearMemory interface {
	Read(ptr, length uint32) []byte
	Write(ptr uint32, data []byte)
	Grow(extraPages uint32) error
	Len() uint32
}

// Loader runs the parse/validate/instantiate pipeline over sandbox module
// bytes. It is pure: identical bytes against the same host version produce
// a structurally equivalent instance and identical validation verdict.
type Loader struct {
	engine   *wasmer.Engine
	kernel   *KernelImportTable
	gasLimit uint64
}

// NewLoader constructs a Loader bound to a kernel import table and a default
// per-call step budget.
func NewLoader(kernel *KernelImportTable, gasLimit uint64) *Loader {
	return &Loader{engine: wasmer.NewEngine(), kernel: kernel, gasLimit: gasLimit}
}

// parsedModule is the structural representation produced by Parse. code is
// kept alongside the wasmer module so Validate can walk the raw code
// section directly; wasmer's own reflection only describes import/export
// signatures, not instruction bodies.
type parsedModule struct {
	store  *wasmer.Store
	module *wasmer.Module
	code   []byte
}

// Parse produces a structural module representation, failing InvalidModule
// on malformed bytes.
func (l *Loader) Parse(code []byte) (*parsedModule, error) {
	store := wasmer.NewStore(l.engine)
	mod, err := wasmer.NewModule(store, code)
	if err != nil {
		return nil, wrapErr(InvalidModule, "failed to parse module bytes", err)
	}
	return &parsedModule{store: store, module: mod, code: code}, nil
}

// Validate enforces the deny-list for non-determinism over the module's
// actual code section, the single kernel import namespace, and checks every
// export follows the (input_ptr: u32) -> output_ptr convention.
func (l *Loader) Validate(pm *parsedModule) error {
	for _, imp := range pm.module.Imports() {
		if imp.Module() != KernelNamespace {
			return &Error{Kind: UnknownImport, Context: "import outside kernel namespace: " + imp.Module() + "." + imp.Name()}
		}
		if !l.kernel.Has(imp.Name()) {
			return &Error{Kind: UnknownImport, Context: "unrecognized kernel function: " + imp.Name()}
		}
	}

	if err := scanModuleForBannedOps(pm.code); err != nil {
		return err
	}

	for _, exp := range pm.module.Exports() {
		fn := exp.Type().FunctionType()
		if fn == nil {
			continue // non-function exports (e.g. memory) are not subject to the calling convention
		}
		params := fn.Params()
		results := fn.Results()
		if strings.HasSuffix(exp.Name(), "_abi") {
			continue // ABI exports take no arguments
		}
		if len(params) != 1 || len(results) != 1 ||
			params[0].Kind() != wasmer.I32 || results[0].Kind() != wasmer.I32 {
			return &Error{Kind: BadExportSignature, Context: "export " + exp.Name() + " must be (u32) -> u32"}
		}
	}
	return nil
}

// Instantiate links the kernel import table and returns a runnable
// instance.
func (l *Loader) Instantiate(pm *parsedModule, hctx *hostCtx) (ModuleInstance, error) {
	imports := l.kernel.build(pm.store, hctx)
	instance, err := wasmer.NewInstance(pm.module, imports)
	if err != nil {
		return nil, wrapErr(InvalidModule, "failed to instantiate module", err)
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, &Error{Kind: InvalidModule, Context: "module exports no linear memory"}
	}
	hctx.mem = mem
	return &wasmerInstance{instance: instance, mem: &wasmerMemory{mem: mem}}, nil
}

// Load runs the full pipeline in one call.
func (l *Loader) Load(code []byte, hctx *hostCtx) (ModuleInstance, error) {
	pm, err := l.Parse(code)
	if err != nil {
		return nil, err
	}
	if err := l.Validate(pm); err != nil {
		return nil, err
	}
	return l.Instantiate(pm, hctx)
}

// wasmerInstance adapts a *wasmer.Instance to ModuleInstance.
type wasmerInstance struct {
	instance *wasmer.Instance
	mem      *wasmerMemory
}

func (w *wasmerInstance) HasExport(name string) bool {
	_, err := w.instance.Exports.GetFunction(name)
	return err == nil
}

func (w *wasmerInstance) CallExport(name string, inputPtr uint32) (uint32, error) {
	fn, err := w.instance.Exports.GetFunction(name)
	if err != nil {
		return 0, &Error{Kind: UnknownMethod, Context: "export not found: " + name}
	}
	out, err := fn(int32(inputPtr))
	if err != nil {
		return 0, wrapErr(GuestTrap, "guest export trapped: "+name, err)
	}
	v, ok := out.(int32)
	if !ok {
		return 0, &Error{Kind: BadExportSignature, Context: "export did not return a single i32: " + name}
	}
	return uint32(v), nil
}

func (w *wasmerInstance) Memory() LinearMemory { return w.mem }

// wasmerMemory adapts *wasmer.Memory to LinearMemory.
type wasmerMemory struct {
	mem *wasmer.Memory
}

func (m *wasmerMemory) Read(ptr, length uint32) []byte {
	data := m.mem.Data()
	out := make([]byte, length)
	copy(out, data[ptr:ptr+length])
	return out
}

func (m *wasmerMemory) Write(ptr uint32, data []byte) {
	copy(m.mem.Data()[ptr:], data)
}

func (m *wasmerMemory) Grow(extraPages uint32) error {
	if !m.mem.Grow(wasmer.Pages(extraPages)) {
		return &Error{Kind: HostInvariantViolation, Context: "linear memory growth failed"}
	}
	return nil
}

func (m *wasmerMemory) Len() uint32 { return uint32(len(m.mem.Data())) }
