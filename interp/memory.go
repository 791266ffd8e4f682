package interp

import (
	"encoding/binary"
	"math"

	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
)

// effectiveAddr computes offset+index as a 64-bit quantity so an overflow
// past 2^32 traps instead of silently wrapping, per the Wasm spec's memory
// access rule, then bounds-checks the requested width against the memory's
// current size.
func effectiveAddr(memLen int, idx, offset uint32, width int) uint64 {
	addr := uint64(idx) + uint64(offset)
	if addr+uint64(width) > uint64(memLen) {
		raise(store.KindOutOfBoundsMemory, "memory access at %d+%d (width %d) out of bounds (size %d)", idx, offset, width, memLen)
	}
	return addr
}

func (m *Machine) mem(f *frame) *store.MemInst {
	return m.store.Mem(m.store.Module(f.module).MemAddrs[0])
}

func (m *Machine) execLoad(f *frame, op opcode.Opcode) {
	mustReadVarU32(f.r) // align hint, unused by this interpreter
	memOffset := mustReadVarU32(f.r)
	idx := m.pop().U32()
	mem := m.mem(f)

	switch op {
	case opcode.I32Load:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 4)
		m.push(value.U32(binary.LittleEndian.Uint32(mem.Data[a:])))
	case opcode.I64Load:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 8)
		m.push(value.U64(binary.LittleEndian.Uint64(mem.Data[a:])))
	case opcode.F32Load:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 4)
		m.push(value.Value{Type: 0x7D, Bits: uint64(binary.LittleEndian.Uint32(mem.Data[a:]))})
	case opcode.F64Load:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 8)
		m.push(value.Value{Type: 0x7C, Bits: binary.LittleEndian.Uint64(mem.Data[a:])})
	case opcode.I32Load8S:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 1)
		m.push(value.I32(int32(int8(mem.Data[a]))))
	case opcode.I32Load8U:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 1)
		m.push(value.U32(uint32(mem.Data[a])))
	case opcode.I32Load16S:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 2)
		m.push(value.I32(int32(int16(binary.LittleEndian.Uint16(mem.Data[a:])))))
	case opcode.I32Load16U:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 2)
		m.push(value.U32(uint32(binary.LittleEndian.Uint16(mem.Data[a:]))))
	case opcode.I64Load8S:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 1)
		m.push(value.I64(int64(int8(mem.Data[a]))))
	case opcode.I64Load8U:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 1)
		m.push(value.U64(uint64(mem.Data[a])))
	case opcode.I64Load16S:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 2)
		m.push(value.I64(int64(int16(binary.LittleEndian.Uint16(mem.Data[a:])))))
	case opcode.I64Load16U:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 2)
		m.push(value.U64(uint64(binary.LittleEndian.Uint16(mem.Data[a:]))))
	case opcode.I64Load32S:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 4)
		m.push(value.I64(int64(int32(binary.LittleEndian.Uint32(mem.Data[a:])))))
	case opcode.I64Load32U:
		a := effectiveAddr(len(mem.Data), idx, memOffset, 4)
		m.push(value.U64(uint64(binary.LittleEndian.Uint32(mem.Data[a:]))))
	}
}

func (m *Machine) execStore(f *frame, op opcode.Opcode) {
	mustReadVarU32(f.r) // align hint
	memOffset := mustReadVarU32(f.r)

	switch op {
	case opcode.I32Store:
		v := m.pop().U32()
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 4)
		binary.LittleEndian.PutUint32(mem.Data[a:], v)
	case opcode.I64Store:
		v := m.pop().U64()
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 8)
		binary.LittleEndian.PutUint64(mem.Data[a:], v)
	case opcode.F32Store:
		v := m.pop().Bits
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 4)
		binary.LittleEndian.PutUint32(mem.Data[a:], uint32(v))
	case opcode.F64Store:
		v := m.pop().Bits
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 8)
		binary.LittleEndian.PutUint64(mem.Data[a:], v)
	case opcode.I32Store8:
		v := m.pop().U32()
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 1)
		mem.Data[a] = byte(v)
	case opcode.I32Store16:
		v := m.pop().U32()
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 2)
		binary.LittleEndian.PutUint16(mem.Data[a:], uint16(v))
	case opcode.I64Store8:
		v := m.pop().U64()
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 1)
		mem.Data[a] = byte(v)
	case opcode.I64Store16:
		v := m.pop().U64()
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 2)
		binary.LittleEndian.PutUint16(mem.Data[a:], uint16(v))
	case opcode.I64Store32:
		v := m.pop().U64()
		idx := m.pop().U32()
		mem := m.mem(f)
		a := effectiveAddr(len(mem.Data), idx, memOffset, 4)
		binary.LittleEndian.PutUint32(mem.Data[a:], uint32(v))
	}
}

// wasmF32Min/Max/F64Min/Max implement the Wasm spec's NaN-propagating,
// sign-of-zero-aware min/max, which differ from math.Min/Max (which don't
// propagate every NaN payload) and from a plain comparison (which doesn't
// distinguish -0 from +0).
func wasmF64Min(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) || math.Signbit(b) {
			return math.Copysign(0, -1)
		}
		return 0
	}
	return math.Min(a, b)
}

func wasmF64Max(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if !math.Signbit(a) || !math.Signbit(b) {
			return 0
		}
		return math.Copysign(0, -1)
	}
	return math.Max(a, b)
}
