package interp

import (
	"context"

	"github.com/vertexdlt/vertexvm-engine/interp/number"
	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
)

// execMisc handles the 0xFC-prefixed extension opcodes: the non-trapping
// saturating truncations and the bulk memory/table instructions.
func (m *Machine) execMisc(ctx context.Context, f *frame, sub opcode.Opcode) {
	switch sub {
	case opcode.MiscI32TruncSatF32S:
		m.pushTruncSat(number.F32, number.I32)
	case opcode.MiscI32TruncSatF32U:
		m.pushTruncSat(number.F32, number.U32)
	case opcode.MiscI32TruncSatF64S:
		m.pushTruncSat(number.F64, number.I32)
	case opcode.MiscI32TruncSatF64U:
		m.pushTruncSat(number.F64, number.U32)
	case opcode.MiscI64TruncSatF32S:
		m.pushTruncSat(number.F32, number.I64)
	case opcode.MiscI64TruncSatF32U:
		m.pushTruncSat(number.F32, number.U64)
	case opcode.MiscI64TruncSatF64S:
		m.pushTruncSat(number.F64, number.I64)
	case opcode.MiscI64TruncSatF64U:
		m.pushTruncSat(number.F64, number.U64)

	case opcode.MiscMemoryInit:
		m.execMemoryInit(f)
	case opcode.MiscDataDrop:
		idx := mustReadVarU32(f.r)
		addr := m.store.Module(f.module).DataAddrs[idx]
		m.store.Data(addr).Bytes = nil
	case opcode.MiscMemoryCopy:
		m.execMemoryCopy(f)
	case opcode.MiscMemoryFill:
		m.execMemoryFill(f)

	case opcode.MiscTableInit:
		m.execTableInit(f)
	case opcode.MiscElemDrop:
		idx := mustReadVarU32(f.r)
		addr := m.store.Module(f.module).ElemAddrs[idx]
		m.store.Elem(addr).Refs = nil
	case opcode.MiscTableCopy:
		m.execTableCopy(f)
	case opcode.MiscTableGrow:
		m.execTableGrow(f)
	case opcode.MiscTableSize:
		idx := mustReadVarU32(f.r)
		t := m.store.Table(m.store.Module(f.module).TableAddrs[idx])
		m.push(value.U32(uint32(len(t.Elems))))
	case opcode.MiscTableFill:
		m.execTableFill(f)

	default:
		raise(store.KindCallStackExhausted, "unknown misc opcode %d", int(sub))
	}
}

// pushTruncSat implements the non-trapping *.trunc_sat_* family.
func (m *Machine) pushTruncSat(from, to number.Type) {
	v := m.pop()
	result := number.TruncSatToInt(from, to, v.Bits)
	switch to {
	case number.I32, number.U32:
		m.push(value.U32(uint32(result)))
	default:
		m.push(value.U64(result))
	}
}

func (m *Machine) execMemoryInit(f *frame) {
	dataIdx := mustReadVarU32(f.r)
	mustReadByte(f.r) // memory index, always 0
	n := m.pop().U32()
	src := m.pop().U32()
	dst := m.pop().U32()

	dataAddr := m.store.Module(f.module).DataAddrs[dataIdx]
	data := m.store.Data(dataAddr)
	if data.Dropped() {
		if n == 0 {
			return
		}
		raise(store.KindDroppedSegmentAccessed, "memory.init from dropped data segment")
	}
	if uint64(src)+uint64(n) > uint64(len(data.Bytes)) {
		raise(store.KindOutOfBoundsMemory, "memory.init source range out of bounds")
	}
	mem := m.mem(f)
	if uint64(dst)+uint64(n) > uint64(len(mem.Data)) {
		raise(store.KindOutOfBoundsMemory, "memory.init destination range out of bounds")
	}
	copy(mem.Data[dst:dst+n], data.Bytes[src:src+n])
}

func (m *Machine) execMemoryCopy(f *frame) {
	mustReadByte(f.r) // dst memory index
	mustReadByte(f.r) // src memory index
	n := m.pop().U32()
	src := m.pop().U32()
	dst := m.pop().U32()

	mem := m.mem(f)
	if uint64(src)+uint64(n) > uint64(len(mem.Data)) || uint64(dst)+uint64(n) > uint64(len(mem.Data)) {
		raise(store.KindOutOfBoundsMemory, "memory.copy range out of bounds")
	}
	copy(mem.Data[dst:dst+n], mem.Data[src:src+n])
}

func (m *Machine) execMemoryFill(f *frame) {
	mustReadByte(f.r) // memory index
	n := m.pop().U32()
	val := byte(m.pop().U32())
	dst := m.pop().U32()

	mem := m.mem(f)
	if uint64(dst)+uint64(n) > uint64(len(mem.Data)) {
		raise(store.KindOutOfBoundsMemory, "memory.fill range out of bounds")
	}
	for i := uint32(0); i < n; i++ {
		mem.Data[dst+i] = val
	}
}

func (m *Machine) execTableInit(f *frame) {
	elemIdx := mustReadVarU32(f.r)
	tblIdx := mustReadVarU32(f.r)
	n := m.pop().U32()
	src := m.pop().U32()
	dst := m.pop().U32()

	mi := m.store.Module(f.module)
	elemAddr := mi.ElemAddrs[elemIdx]
	elem := m.store.Elem(elemAddr)
	if elem.Dropped() {
		if n == 0 {
			return
		}
		raise(store.KindDroppedSegmentAccessed, "table.init from dropped element segment")
	}
	if uint64(src)+uint64(n) > uint64(len(elem.Refs)) {
		raise(store.KindOutOfBoundsTable, "table.init source range out of bounds")
	}
	table := m.store.Table(mi.TableAddrs[tblIdx])
	if uint64(dst)+uint64(n) > uint64(len(table.Elems)) {
		raise(store.KindOutOfBoundsTable, "table.init destination range out of bounds")
	}
	copy(table.Elems[dst:dst+n], elem.Refs[src:src+n])
}

func (m *Machine) execTableCopy(f *frame) {
	dstIdx := mustReadVarU32(f.r)
	srcIdx := mustReadVarU32(f.r)
	n := m.pop().U32()
	src := m.pop().U32()
	dst := m.pop().U32()

	mi := m.store.Module(f.module)
	srcTable := m.store.Table(mi.TableAddrs[srcIdx])
	dstTable := m.store.Table(mi.TableAddrs[dstIdx])
	if uint64(src)+uint64(n) > uint64(len(srcTable.Elems)) || uint64(dst)+uint64(n) > uint64(len(dstTable.Elems)) {
		raise(store.KindOutOfBoundsTable, "table.copy range out of bounds")
	}
	copy(dstTable.Elems[dst:dst+n], srcTable.Elems[src:src+n])
}

func (m *Machine) execTableGrow(f *frame) {
	idx := mustReadVarU32(f.r)
	table := m.store.Table(m.store.Module(f.module).TableAddrs[idx])
	delta := m.pop().U32()
	fill := m.pop().Ref()
	m.push(value.I32(table.Grow(delta, fill)))
}

func (m *Machine) execTableFill(f *frame) {
	idx := mustReadVarU32(f.r)
	table := m.store.Table(m.store.Module(f.module).TableAddrs[idx])
	n := m.pop().U32()
	val := m.pop().Ref()
	dst := m.pop().U32()
	if uint64(dst)+uint64(n) > uint64(len(table.Elems)) {
		raise(store.KindOutOfBoundsTable, "table.fill range out of bounds")
	}
	for i := uint32(0); i < n; i++ {
		table.Elems[dst+i] = val
	}
}
