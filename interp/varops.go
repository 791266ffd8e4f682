package interp

import (
	"context"

	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// stepOther handles every instruction outside the control-flow/call set
// dispatched directly in step: parametric, variable, memory, numeric,
// reference, and 0xFC-prefixed instructions.
func (m *Machine) stepOther(ctx context.Context, f *frame, op opcode.Opcode, offset int) {
	switch op {
	case opcode.Drop:
		m.pop()

	case opcode.Select:
		cond := m.pop().I32()
		b := m.pop()
		a := m.pop()
		if cond != 0 {
			m.push(a)
		} else {
			m.push(b)
		}

	case opcode.SelectT:
		_, err := wasmread.ReadVec(f.r, func(r *wasmread.Reader) (byte, error) { return r.ReadByte() })
		if err != nil {
			raise(store.KindCallStackExhausted, "reading select type immediates: %v", err)
		}
		cond := m.pop().I32()
		b := m.pop()
		a := m.pop()
		if cond != 0 {
			m.push(a)
		} else {
			m.push(b)
		}

	case opcode.LocalGet:
		idx := mustReadVarU32(f.r)
		m.push(f.locals[idx])

	case opcode.LocalSet:
		idx := mustReadVarU32(f.r)
		f.locals[idx] = m.pop()

	case opcode.LocalTee:
		idx := mustReadVarU32(f.r)
		f.locals[idx] = m.stack[len(m.stack)-1]

	case opcode.GlobalGet:
		idx := mustReadVarU32(f.r)
		addr := m.store.Module(f.module).GlobalAddrs[idx]
		m.push(m.store.Global(addr).Val)

	case opcode.GlobalSet:
		idx := mustReadVarU32(f.r)
		addr := m.store.Module(f.module).GlobalAddrs[idx]
		m.store.Global(addr).Val = m.pop()

	case opcode.TableGet:
		idx := mustReadVarU32(f.r)
		t := m.store.Table(m.store.Module(f.module).TableAddrs[idx])
		i := m.pop().U32()
		if i >= uint32(len(t.Elems)) {
			raise(store.KindOutOfBoundsTable, "table.get index %d out of bounds (size %d)", i, len(t.Elems))
		}
		m.push(value.FromRef(t.Type.ElemType, t.Elems[i]))

	case opcode.TableSet:
		idx := mustReadVarU32(f.r)
		t := m.store.Table(m.store.Module(f.module).TableAddrs[idx])
		v := m.pop().Ref()
		i := m.pop().U32()
		if i >= uint32(len(t.Elems)) {
			raise(store.KindOutOfBoundsTable, "table.set index %d out of bounds (size %d)", i, len(t.Elems))
		}
		t.Elems[i] = v

	case opcode.RefNull:
		rt := wasmtype.ValType(mustReadByte(f.r))
		m.push(value.FromRef(rt, value.NullRef(rt)))

	case opcode.RefIsNull:
		v := m.pop()
		r := v.Ref()
		if r.IsNull() {
			m.push(value.I32(1))
		} else {
			m.push(value.I32(0))
		}

	case opcode.RefFunc:
		idx := mustReadVarU32(f.r)
		addr := m.store.Module(f.module).FuncAddrs[idx]
		m.push(value.FromRef(wasmtype.FuncRef, value.FuncRef(uint32(addr))))

	case opcode.I32Load, opcode.I64Load, opcode.F32Load, opcode.F64Load,
		opcode.I32Load8S, opcode.I32Load8U, opcode.I32Load16S, opcode.I32Load16U,
		opcode.I64Load8S, opcode.I64Load8U, opcode.I64Load16S, opcode.I64Load16U, opcode.I64Load32S, opcode.I64Load32U:
		m.execLoad(f, op)

	case opcode.I32Store, opcode.I64Store, opcode.F32Store, opcode.F64Store,
		opcode.I32Store8, opcode.I32Store16, opcode.I64Store8, opcode.I64Store16, opcode.I64Store32:
		m.execStore(f, op)

	case opcode.MemorySize:
		mustReadByte(f.r)
		mem := m.store.Mem(m.store.Module(f.module).MemAddrs[0])
		m.push(value.U32(mem.PageCount()))

	case opcode.MemoryGrow:
		mustReadByte(f.r)
		mem := m.store.Mem(m.store.Module(f.module).MemAddrs[0])
		delta := m.pop().U32()
		m.push(value.I32(mem.Grow(delta)))

	case opcode.MiscPrefix:
		sub := mustReadVarU32(f.r)
		m.execMisc(ctx, f, opcode.Opcode(sub))

	default:
		m.execNumeric(op, f.r)
	}
}
