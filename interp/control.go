package interp

import (
	"context"

	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
)

// step dispatches a single instruction already read from f.r. offset is the
// position of op's own opcode byte, the reference point every sidetable
// entry's DeltaPC is relative to.
func (m *Machine) step(ctx context.Context, f *frame, op opcode.Opcode, offset int) {
	switch op {
	case opcode.Unreachable:
		raise(store.KindUnreachable, "unreachable instruction executed")

	case opcode.Nop:
		// no-op

	case opcode.Block, opcode.Loop:
		skipBlockType(f.r)
		// no stack or sidetable bookkeeping: entering a block/loop is plain
		// sequential execution; branches to it are resolved at the br site.

	case opcode.If:
		skipBlockType(f.r)
		cond := m.pop().I32()
		entryIdx := f.stp
		if cond != 0 {
			f.stp++ // skip the unused condition-false entry, enter the then-arm
		} else {
			m.takeBranch(f, offset, entryIdx)
		}

	case opcode.Else:
		// only ever reached by falling through a completed then-arm; the
		// condition-false path jumps past this opcode directly into the
		// else-arm's first instruction.
		m.takeBranch(f, offset, f.stp)

	case opcode.End:
		// no-op; the function body's own End is detected by the run loop
		// noticing f.r.Len() == 0 on the next iteration.

	case opcode.Br:
		mustReadVarU32(f.r)
		m.takeBranch(f, offset, f.stp)

	case opcode.BrIf:
		mustReadVarU32(f.r)
		cond := m.pop().I32()
		if cond != 0 {
			m.takeBranch(f, offset, f.stp)
		} else {
			f.stp++
		}

	case opcode.BrTable:
		targets, err := wasmread.ReadVec(f.r, func(r *wasmread.Reader) (uint32, error) { return r.ReadVarU32() })
		if err != nil {
			raise(store.KindCallStackExhausted, "reading br_table targets: %v", err)
		}
		mustReadVarU32(f.r) // default target index; only its position in the sidetable matters
		selector := m.pop().U32()
		idx := selector
		if idx >= uint32(len(targets)) {
			idx = uint32(len(targets))
		}
		m.takeBranch(f, offset, f.stp+int(idx))

	case opcode.Return:
		m.takeBranch(f, offset, f.stp)

	case opcode.Call:
		idx := mustReadVarU32(f.r)
		mi := m.store.Module(f.module)
		target := mi.FuncAddrs[idx]
		m.dispatch(ctx, target)

	case opcode.CallIndirect:
		typeIdx := mustReadVarU32(f.r)
		tblIdx := mustReadVarU32(f.r)
		mi := m.store.Module(f.module)
		table := m.store.Table(mi.TableAddrs[tblIdx])
		elemIdx := m.pop().U32()
		if elemIdx >= uint32(len(table.Elems)) {
			raise(store.KindOutOfBoundsTable, "call_indirect index %d out of bounds (table size %d)", elemIdx, len(table.Elems))
		}
		ref := table.Elems[elemIdx]
		if ref.IsNull() {
			raise(store.KindUninitializedElement, "call_indirect through uninitialized table slot %d", elemIdx)
		}
		target := store.FuncAddr(ref.Addr)
		fi := m.store.Func(target)
		want := mi.Types[typeIdx]
		if !fi.Type.Equal(want) {
			raise(store.KindIndirectTypeMismatch, "call_indirect expected signature %v, table held %v", want, fi.Type)
		}
		m.dispatch(ctx, target)

	default:
		m.stepOther(ctx, f, op, offset)
	}
}

// dispatch invokes a resolved function address, guest or host.
func (m *Machine) dispatch(ctx context.Context, addr store.FuncAddr) {
	fi := m.store.Func(addr)
	if fi.IsHost() {
		m.callHost(ctx, fi)
	} else {
		m.callGuest(addr)
	}
}

// skipBlockType consumes a block/loop/if blocktype immediate without
// resolving it: validation already proved it is well-formed, so the
// interpreter only needs to advance past its bytes, mirroring
// validate.readBlockType's decoding without the type-table lookup.
func skipBlockType(r *wasmread.Reader) {
	b, err := r.ReadByte()
	if err != nil {
		raise(store.KindCallStackExhausted, "reading blocktype: %v", err)
	}
	if b == opcode.BlockTypeEmpty {
		return
	}
	switch b {
	case 0x7F, 0x7E, 0x7D, 0x7C, 0x7B, 0x70, 0x6F: // i32/i64/f32/f64/v128/funcref/externref
		return
	}
	// otherwise it's a signed LEB128 s33 type index; keep reading continuation bytes.
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			raise(store.KindCallStackExhausted, "reading blocktype: %v", err)
		}
	}
}

func mustReadVarU32(r *wasmread.Reader) uint32 {
	v, err := r.ReadVarU32()
	if err != nil {
		raise(store.KindCallStackExhausted, "reading instruction immediate: %v", err)
	}
	return v
}

func mustReadVarI32(r *wasmread.Reader) int32 {
	v, err := r.ReadVarI32()
	if err != nil {
		raise(store.KindCallStackExhausted, "reading instruction immediate: %v", err)
	}
	return v
}

func mustReadVarI64(r *wasmread.Reader) int64 {
	v, err := r.ReadVarI64()
	if err != nil {
		raise(store.KindCallStackExhausted, "reading instruction immediate: %v", err)
	}
	return v
}

func mustReadU32LE(r *wasmread.Reader) uint32 {
	v, err := r.ReadU32LE()
	if err != nil {
		raise(store.KindCallStackExhausted, "reading instruction immediate: %v", err)
	}
	return v
}

func mustReadU64LE(r *wasmread.Reader) uint64 {
	v, err := r.ReadU64LE()
	if err != nil {
		raise(store.KindCallStackExhausted, "reading instruction immediate: %v", err)
	}
	return v
}

func mustReadByte(r *wasmread.Reader) byte {
	b, err := r.ReadByte()
	if err != nil {
		raise(store.KindCallStackExhausted, "reading instruction immediate: %v", err)
	}
	return b
}
