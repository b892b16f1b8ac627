package core

import "encoding/binary"

// This file walks a module's raw code section opcode by opcode to enforce
// the non-determinism deny-list over what the guest will actually execute,
// rather than trusting an export's name to describe its body. The pack
// carries no third-party WASM disassembler, so this is a from-scratch
// reader of the binary format (module header + LEB128 varints + the MVP
// instruction set) scoped to exactly what Validate needs: section framing
// and enough per-opcode immediate-length knowledge to stay aligned with the
// instruction stream.

const (
	wasmMagic   = 0x6d736100 // "\0asm"
	wasmVersion = 1

	secCode = 10
)

var bannedFloatOpcodes = map[byte]bool{
	0x2a: true, 0x2b: true, // f32.load, f64.load
	0x38: true, 0x39: true, // f32.store, f64.store
	0x43: true, 0x44: true, // f32.const, f64.const
}

func init() {
	for op := byte(0x5b); op <= 0x66; op++ { // f32/f64 comparisons
		bannedFloatOpcodes[op] = true
	}
	for op := byte(0x8b); op <= 0xa6; op++ { // f32/f64 unary/binary arithmetic
		bannedFloatOpcodes[op] = true
	}
	for op := byte(0xa8); op <= 0xab; op++ { // i32.trunc_f32/f64
		bannedFloatOpcodes[op] = true
	}
	for op := byte(0xae); op <= 0xbf; op++ { // i64.trunc_f32/f64, float conversion, reinterpret
		bannedFloatOpcodes[op] = true
	}
}

// scanModuleForBannedOps parses code's section headers, walks the code
// section's function bodies instruction by instruction, and fails
// BannedInstruction on the first opcode in the non-determinism deny-list.
// A module with no code section (e.g. one that only declares memory and
// re-exports it) vacuously passes.
func scanModuleForBannedOps(code []byte) error {
	r := &wasmReader{buf: code}
	magic, err := r.readU32LE()
	if err != nil || magic != wasmMagic {
		return newErr(InvalidModule, "not a wasm binary module")
	}
	version, err := r.readU32LE()
	if err != nil || version != wasmVersion {
		return newErr(InvalidModule, "unsupported wasm binary version")
	}

	for !r.atEnd() {
		id, err := r.readByte()
		if err != nil {
			return wrapErr(InvalidModule, "truncated section header", err)
		}
		size, err := r.readVarUint32()
		if err != nil {
			return wrapErr(InvalidModule, "truncated section size", err)
		}
		body, err := r.readBytes(size)
		if err != nil {
			return wrapErr(InvalidModule, "truncated section body", err)
		}
		if id == secCode {
			if err := scanCodeSection(body); err != nil {
				return err
			}
		}
	}
	return nil
}

func scanCodeSection(body []byte) error {
	r := &wasmReader{buf: body}
	count, err := r.readVarUint32()
	if err != nil {
		return wrapErr(InvalidModule, "truncated code section", err)
	}
	for i := uint32(0); i < count; i++ {
		bodySize, err := r.readVarUint32()
		if err != nil {
			return wrapErr(InvalidModule, "truncated function body size", err)
		}
		fnBody, err := r.readBytes(bodySize)
		if err != nil {
			return wrapErr(InvalidModule, "truncated function body", err)
		}
		if err := scanFunctionBody(fnBody); err != nil {
			return err
		}
	}
	return nil
}

// scanFunctionBody skips the local-variable declarations, then walks the
// instruction stream, failing on any opcode in bannedFloatOpcodes and
// otherwise consuming exactly the immediate bytes that opcode carries so
// the next byte read always lands on an opcode boundary.
func scanFunctionBody(body []byte) error {
	r := &wasmReader{buf: body}

	localGroups, err := r.readVarUint32()
	if err != nil {
		return wrapErr(InvalidModule, "truncated local declarations", err)
	}
	for i := uint32(0); i < localGroups; i++ {
		if _, err := r.readVarUint32(); err != nil { // count
			return wrapErr(InvalidModule, "truncated local group", err)
		}
		if _, err := r.readByte(); err != nil { // valtype
			return wrapErr(InvalidModule, "truncated local group", err)
		}
	}

	for !r.atEnd() {
		op, err := r.readByte()
		if err != nil {
			return wrapErr(InvalidModule, "truncated instruction stream", err)
		}
		if bannedFloatOpcodes[op] {
			return newErr(BannedInstruction, "floating-point opcode in function body")
		}
		if err := skipImmediate(r, op); err != nil {
			return err
		}
	}
	return nil
}

// skipImmediate consumes the operand bytes belonging to op, per the MVP
// instruction encoding. Opcodes outside this set (multi-byte prefixed ops,
// reference types, SIMD) are not expected in this host's guest modules and
// fall through to the no-operand default; should one with operands appear,
// the walk desyncs, and the result may be a truncated-stream InvalidModule,
// a spurious BannedInstruction, or no error at all.
func skipImmediate(r *wasmReader, op byte) error {
	switch op {
	case 0x02, 0x03, 0x04: // block, loop, if: blocktype
		_, err := r.readByte()
		return err
	case 0x0c, 0x0d: // br, br_if: labelidx
		_, err := r.readVarUint32()
		return err
	case 0x0e: // br_table: vec(labelidx) + labelidx
		n, err := r.readVarUint32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := r.readVarUint32(); err != nil {
				return err
			}
		}
		_, err = r.readVarUint32()
		return err
	case 0x10: // call: funcidx
		_, err := r.readVarUint32()
		return err
	case 0x11: // call_indirect: typeidx + reserved byte
		if _, err := r.readVarUint32(); err != nil {
			return err
		}
		_, err := r.readByte()
		return err
	case 0x20, 0x21, 0x22, 0x23, 0x24: // local/global get/set/tee
		_, err := r.readVarUint32()
		return err
	case 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f,
		0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39,
		0x3a, 0x3b, 0x3c, 0x3d, 0x3e: // memory loads/stores: align + offset
		if _, err := r.readVarUint32(); err != nil {
			return err
		}
		_, err := r.readVarUint32()
		return err
	case 0x3f, 0x40: // memory.size, memory.grow: reserved byte
		_, err := r.readByte()
		return err
	case 0x41: // i32.const
		_, err := r.readVarInt64()
		return err
	case 0x42: // i64.const
		_, err := r.readVarInt64()
		return err
	case 0x43: // f32.const
		_, err := r.readBytes(4)
		return err
	case 0x44: // f64.const
		_, err := r.readBytes(8)
		return err
	default:
		return nil // single-byte opcode, no immediate
	}
}

// wasmReader is a minimal forward-only cursor over a wasm binary byte
// slice, enough to frame sections and decode LEB128 varints.
type wasmReader struct {
	buf []byte
	pos int
}

func (r *wasmReader) atEnd() bool { return r.pos >= len(r.buf) }

func (r *wasmReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *wasmReader) readBytes(n uint32) ([]byte, error) {
	if uint64(r.pos)+uint64(n) > uint64(len(r.buf)) {
		return nil, errTruncated
	}
	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}

func (r *wasmReader) readU32LE() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// readVarUint32 decodes an unsigned LEB128 varint.
func (r *wasmReader) readVarUint32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, errTruncated
		}
	}
}

// readVarInt64 decodes a signed LEB128 varint, wide enough for both i32.const
// and i64.const immediates since only the opcode, not this decoder, knows
// the target width.
func (r *wasmReader) readVarInt64() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, errTruncated
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

var errTruncated = newErr(InvalidModule, "truncated wasm binary")
