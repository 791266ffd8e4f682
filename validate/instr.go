package validate

import (
	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/sidetable"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// blockType is a decoded blocktype immediate: either an inline arity (0 or 1
// results, no params) or a reference into the module's type section.
type blockType struct {
	Params  []wasmtype.ValType
	Results []wasmtype.ValType
}

// readBlockType decodes the blocktype immediate used by block/loop/if, per
// the binary format's merged encoding: 0x40 for empty, a bare value-type
// byte for a single inline result, otherwise a signed LEB128 s33 type index.
func readBlockType(r *wasmread.Reader, types []wasmtype.FuncType) (blockType, error) {
	offset := r.Pos()
	b, err := r.ReadByte()
	if err != nil {
		return blockType{}, err
	}
	switch b {
	case opcode.BlockTypeEmpty:
		return blockType{}, nil
	case byte(wasmtype.I32), byte(wasmtype.I64), byte(wasmtype.F32), byte(wasmtype.F64),
		byte(wasmtype.V128), byte(wasmtype.FuncRef), byte(wasmtype.ExternRef):
		return blockType{Results: []wasmtype.ValType{wasmtype.ValType(b)}}, nil
	}
	result := int64(b & 0x7f)
	shift := uint(7)
	for b&0x80 != 0 {
		nb, err := r.ReadByte()
		if err != nil {
			return blockType{}, err
		}
		b = nb
		result |= int64(b&0x7f) << shift
		shift += 7
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	if result < 0 || int(result) >= len(types) {
		return blockType{}, newErr(KindUndefinedTypeIdx, offset, "block type references undefined type index %d", result)
	}
	ft := types[result]
	return blockType{Params: ft.Params, Results: ft.Results}, nil
}

func valTypesEqual(a, b []wasmtype.ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// memarg is the alignment/offset pair carried by every load/store instruction.
type memarg struct {
	Align  uint32
	Offset uint32
}

func readMemarg(r *wasmread.Reader) (memarg, error) {
	align, err := r.ReadVarU32()
	if err != nil {
		return memarg{}, err
	}
	off, err := r.ReadVarU32()
	if err != nil {
		return memarg{}, err
	}
	return memarg{Align: align, Offset: off}, nil
}

// validateFuncBody walks one function's code, maintaining the operand and
// control stack abstract interpretation and emitting a sidetable entry for
// every branching instruction.
func validateFuncBody(info *Info, sb *sidetable.Builder, ftype wasmtype.FuncType, locals []wasmtype.ValType, r *wasmread.Reader) error {
	fv := newFuncValidator(info, sb, ftype.Params, locals)
	fv.pushCtrl(0, nil, ftype.Results, r.Pos(), sb.Len())

	for {
		if len(fv.ctrls) == 0 {
			if r.Len() != 0 {
				return newErr(KindTruncatedInput, r.Pos(), "trailing bytes after function body's terminating end")
			}
			return nil
		}
		offset := r.Pos()
		op, err := r.ReadByte()
		if err != nil {
			return wrapErr(KindTruncatedInput, offset, err, "reading opcode")
		}
		if err := fv.step(r, opcode.Opcode(op), offset); err != nil {
			return err
		}
	}
}

func (fv *funcValidator) localType(offset int, idx uint32) (wasmtype.ValType, error) {
	if int(idx) >= len(fv.types) {
		return 0, newErr(KindUndefinedLocalIdx, offset, "undefined local index %d", idx)
	}
	return fv.types[idx], nil
}

// step validates a single instruction (and its immediates), updating the
// operand/control stack and emitting sidetable entries as needed.
func (fv *funcValidator) step(r *wasmread.Reader, op opcode.Opcode, offset int) error {
	info := fv.info
	switch op {
	case opcode.Unreachable:
		fv.markUnreachable()

	case opcode.Nop:
		// no-op

	case opcode.Block, opcode.Loop, opcode.If:
		bt, err := readBlockType(r, info.Types)
		if err != nil {
			return err
		}
		if err := fv.popOpds(offset, bt.Params); err != nil {
			return err
		}
		if op == opcode.If {
			if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
				return err
			}
		}
		ip, stp := r.Pos(), fv.sb.Len()
		frame := fv.pushCtrl(op, bt.Params, bt.Results, ip, stp)
		if op == opcode.If {
			// if the condition is false, execution jumps past `else` (or to
			// `end` when there is none); emit that branch now and patch it
			// once we know which.
			ref := fv.sb.Append(offset, uint32(len(bt.Results)), 0)
			frame.ifJumpRef = ref
			frame.ifHasJumpRef = true
		}

	case opcode.Else:
		top, err := fv.popCtrl(offset)
		if err != nil {
			return err
		}
		if top.op != opcode.If {
			return newErr(KindBlockArityMismatch, offset, "else without matching if")
		}
		// the taken-if-false branch lands here, at the start of the else arm.
		if top.ifHasJumpRef {
			fv.sb.Patch(top.ifJumpRef, r.Pos(), fv.sb.Len())
		}
		top.elseSeen = true
		// falling through from a completed then-arm must skip the else arm's
		// bytes entirely; the operand stack is already exactly right (the
		// then-arm ends with the block's result types), so this entry moves
		// only ip/stp, never the stack.
		skipRef := fv.sb.Append(offset, 0, 0)
		newFrame := fv.pushCtrl(opcode.Else, top.startTypes, top.endTypes, int(top.loopHeadIP), int(top.loopHeadSTP))
		newFrame.pending = append(top.pending, skipRef)

	case opcode.End:
		top, err := fv.popCtrl(offset)
		if err != nil {
			return err
		}
		if top.op == opcode.If && !top.elseSeen {
			// no else arm: the condition-false path falls straight through
			// to end without running any instructions, so the block's
			// param and result types must coincide.
			if !valTypesEqual(top.startTypes, top.endTypes) {
				return newErr(KindBlockArityMismatch, offset, "if without else requires identical param and result types")
			}
			if top.ifHasJumpRef {
				fv.sb.Patch(top.ifJumpRef, r.Pos(), fv.sb.Len())
			}
		}
		for _, ref := range top.pending {
			fv.sb.Patch(ref, r.Pos(), fv.sb.Len())
		}
		if len(fv.ctrls) == 0 {
			// function body's own End: nothing further to push.
			return nil
		}
		fv.pushOpds(top.endTypes)

	case opcode.Br:
		depth, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if err := fv.emitBranch(offset, depth); err != nil {
			return err
		}
		fv.markUnreachable()

	case opcode.BrIf:
		depth, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		if err := fv.emitBranch(offset, depth); err != nil {
			return err
		}

	case opcode.BrTable:
		targets, err := wasmread.ReadVec(r, func(r *wasmread.Reader) (uint32, error) { return r.ReadVarU32() })
		if err != nil {
			return err
		}
		def, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		for _, d := range targets {
			if err := fv.emitBranch(offset, d); err != nil {
				return err
			}
		}
		if err := fv.emitBranch(offset, def); err != nil {
			return err
		}
		fv.markUnreachable()

	case opcode.Return:
		// return behaves like a branch to the outermost (function) frame.
		if err := fv.emitBranch(offset, uint32(len(fv.ctrls)-1)); err != nil {
			return err
		}
		fv.markUnreachable()

	case opcode.Call:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		ft, ok := info.FuncType(idx)
		if !ok {
			return newErr(KindUndefinedFuncIdx, offset, "undefined function index %d", idx)
		}
		if err := fv.popOpds(offset, ft.Params); err != nil {
			return err
		}
		fv.pushOpds(ft.Results)

	case opcode.CallIndirect:
		typeIdx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		tblIdx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if _, ok := info.TableType(tblIdx); !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", tblIdx)
		}
		if int(typeIdx) >= len(info.Types) {
			return newErr(KindUndefinedTypeIdx, offset, "undefined type index %d", typeIdx)
		}
		ft := info.Types[typeIdx]
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		if err := fv.popOpds(offset, ft.Params); err != nil {
			return err
		}
		fv.pushOpds(ft.Results)

	case opcode.Drop:
		if _, err := fv.popOpd(offset); err != nil {
			return err
		}

	case opcode.Select:
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		t1, err := fv.popOpd(offset)
		if err != nil {
			return err
		}
		t2, err := fv.popOpdExpect(offset, t1)
		if err != nil {
			return err
		}
		if t2 != unknownType {
			fv.pushOpd(t2)
		} else {
			fv.pushOpd(t1)
		}

	case opcode.SelectT:
		ts, err := wasmread.ReadVec(r, readValType)
		if err != nil {
			return err
		}
		if len(ts) != 1 {
			return newErr(KindOperandStackMismatch, offset, "select with explicit types expects exactly one type")
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, ts[0]); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, ts[0]); err != nil {
			return err
		}
		fv.pushOpd(ts[0])

	case opcode.LocalGet:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		t, err := fv.localType(offset, idx)
		if err != nil {
			return err
		}
		fv.pushOpd(t)

	case opcode.LocalSet:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		t, err := fv.localType(offset, idx)
		if err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}

	case opcode.LocalTee:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		t, err := fv.localType(offset, idx)
		if err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}
		fv.pushOpd(t)

	case opcode.GlobalGet:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		gt, ok := info.GlobalType(idx)
		if !ok {
			return newErr(KindUndefinedGlobalIdx, offset, "undefined global index %d", idx)
		}
		fv.pushOpd(gt.Val)

	case opcode.GlobalSet:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		gt, ok := info.GlobalType(idx)
		if !ok {
			return newErr(KindUndefinedGlobalIdx, offset, "undefined global index %d", idx)
		}
		if gt.Mut != wasmtype.Var {
			return newErr(KindMutableGlobalInConst, offset, "global.set on immutable global %d", idx)
		}
		if _, err := fv.popOpdExpect(offset, gt.Val); err != nil {
			return err
		}

	case opcode.TableGet:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		tt, ok := info.TableType(idx)
		if !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", idx)
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		fv.pushOpd(tt.ElemType)

	case opcode.TableSet:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		tt, ok := info.TableType(idx)
		if !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", idx)
		}
		if _, err := fv.popOpdExpect(offset, tt.ElemType); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}

	case opcode.I32Load, opcode.I32Load8S, opcode.I32Load8U, opcode.I32Load16S, opcode.I32Load16U:
		if err := fv.validateLoad(r, offset, wasmtype.I32); err != nil {
			return err
		}
	case opcode.I64Load, opcode.I64Load8S, opcode.I64Load8U, opcode.I64Load16S, opcode.I64Load16U, opcode.I64Load32S, opcode.I64Load32U:
		if err := fv.validateLoad(r, offset, wasmtype.I64); err != nil {
			return err
		}
	case opcode.F32Load:
		if err := fv.validateLoad(r, offset, wasmtype.F32); err != nil {
			return err
		}
	case opcode.F64Load:
		if err := fv.validateLoad(r, offset, wasmtype.F64); err != nil {
			return err
		}
	case opcode.I32Store, opcode.I32Store8, opcode.I32Store16:
		if err := fv.validateStore(r, offset, wasmtype.I32); err != nil {
			return err
		}
	case opcode.I64Store, opcode.I64Store8, opcode.I64Store16, opcode.I64Store32:
		if err := fv.validateStore(r, offset, wasmtype.I64); err != nil {
			return err
		}
	case opcode.F32Store:
		if err := fv.validateStore(r, offset, wasmtype.F32); err != nil {
			return err
		}
	case opcode.F64Store:
		if err := fv.validateStore(r, offset, wasmtype.F64); err != nil {
			return err
		}

	case opcode.MemorySize:
		if _, err := r.ReadByte(); err != nil { // reserved byte, must be 0x00
			return err
		}
		if info.NumMems() == 0 {
			return newErr(KindUndefinedMemIdx, offset, "memory.size with no memory")
		}
		fv.pushOpd(wasmtype.I32)

	case opcode.MemoryGrow:
		if _, err := r.ReadByte(); err != nil {
			return err
		}
		if info.NumMems() == 0 {
			return newErr(KindUndefinedMemIdx, offset, "memory.grow with no memory")
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)

	case opcode.I32Const:
		if _, err := r.ReadVarI32(); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
	case opcode.I64Const:
		if _, err := r.ReadVarI64(); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I64)
	case opcode.F32Const:
		if _, err := r.ReadU32LE(); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.F32)
	case opcode.F64Const:
		if _, err := r.ReadU64LE(); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.F64)

	case opcode.RefNull:
		rt, err := readRefType(r)
		if err != nil {
			return err
		}
		fv.pushOpd(rt)
	case opcode.RefIsNull:
		if _, err := fv.popOpd(offset); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
	case opcode.RefFunc:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if int(idx) >= info.NumFuncs() {
			return newErr(KindUndefinedFuncIdx, offset, "undefined function index %d", idx)
		}
		fv.pushOpd(wasmtype.FuncRef)

	case opcode.MiscPrefix:
		sub, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		return fv.stepMisc(r, opcode.Opcode(sub), offset)

	default:
		if err := fv.stepNumeric(op, offset); err != nil {
			return err
		}
	}
	return nil
}

func (fv *funcValidator) validateLoad(r *wasmread.Reader, offset int, t wasmtype.ValType) error {
	if _, err := readMemarg(r); err != nil {
		return err
	}
	if fv.info.NumMems() == 0 {
		return newErr(KindUndefinedMemIdx, offset, "memory access with no memory")
	}
	if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
		return err
	}
	fv.pushOpd(t)
	return nil
}

func (fv *funcValidator) validateStore(r *wasmread.Reader, offset int, t wasmtype.ValType) error {
	if _, err := readMemarg(r); err != nil {
		return err
	}
	if fv.info.NumMems() == 0 {
		return newErr(KindUndefinedMemIdx, offset, "memory access with no memory")
	}
	if _, err := fv.popOpdExpect(offset, t); err != nil {
		return err
	}
	if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
		return err
	}
	return nil
}

// stepMisc validates the 0xFC-prefixed non-trapping-conversion and
// bulk-memory/table instructions.
func (fv *funcValidator) stepMisc(r *wasmread.Reader, sub opcode.Opcode, offset int) error {
	info := fv.info
	switch sub {
	case opcode.MiscI32TruncSatF32S, opcode.MiscI32TruncSatF32U:
		if _, err := fv.popOpdExpect(offset, wasmtype.F32); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
	case opcode.MiscI32TruncSatF64S, opcode.MiscI32TruncSatF64U:
		if _, err := fv.popOpdExpect(offset, wasmtype.F64); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
	case opcode.MiscI64TruncSatF32S, opcode.MiscI64TruncSatF32U:
		if _, err := fv.popOpdExpect(offset, wasmtype.F32); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I64)
	case opcode.MiscI64TruncSatF64S, opcode.MiscI64TruncSatF64U:
		if _, err := fv.popOpdExpect(offset, wasmtype.F64); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I64)

	case opcode.MiscMemoryInit:
		dataIdx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if _, err := r.ReadByte(); err != nil { // memory index, reserved to 0x00
			return err
		}
		if info.DataCount == nil {
			return newErr(KindDataCountMismatch, offset, "memory.init requires a data count section")
		}
		if dataIdx >= *info.DataCount {
			return newErr(KindDataCountMismatch, offset, "undefined data segment index %d", dataIdx)
		}
		if err := fv.popOpds(offset, []wasmtype.ValType{wasmtype.I32, wasmtype.I32, wasmtype.I32}); err != nil {
			return err
		}
	case opcode.MiscDataDrop:
		dataIdx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if info.DataCount == nil || dataIdx >= *info.DataCount {
			return newErr(KindDataCountMismatch, offset, "undefined data segment index %d", dataIdx)
		}
	case opcode.MiscMemoryCopy:
		if _, err := r.ReadByte(); err != nil {
			return err
		}
		if _, err := r.ReadByte(); err != nil {
			return err
		}
		if info.NumMems() == 0 {
			return newErr(KindUndefinedMemIdx, offset, "memory.copy with no memory")
		}
		if err := fv.popOpds(offset, []wasmtype.ValType{wasmtype.I32, wasmtype.I32, wasmtype.I32}); err != nil {
			return err
		}
	case opcode.MiscMemoryFill:
		if _, err := r.ReadByte(); err != nil {
			return err
		}
		if info.NumMems() == 0 {
			return newErr(KindUndefinedMemIdx, offset, "memory.fill with no memory")
		}
		if err := fv.popOpds(offset, []wasmtype.ValType{wasmtype.I32, wasmtype.I32, wasmtype.I32}); err != nil {
			return err
		}
	case opcode.MiscTableInit:
		elemIdx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		tblIdx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if _, ok := info.TableType(tblIdx); !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", tblIdx)
		}
		if int(elemIdx) >= len(info.Elements) {
			return newErr(KindUndefinedTableIdx, offset, "undefined element segment index %d", elemIdx)
		}
		if err := fv.popOpds(offset, []wasmtype.ValType{wasmtype.I32, wasmtype.I32, wasmtype.I32}); err != nil {
			return err
		}
	case opcode.MiscElemDrop:
		elemIdx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if int(elemIdx) >= len(info.Elements) {
			return newErr(KindUndefinedTableIdx, offset, "undefined element segment index %d", elemIdx)
		}
	case opcode.MiscTableCopy:
		dst, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		src, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if _, ok := info.TableType(dst); !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", dst)
		}
		if _, ok := info.TableType(src); !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", src)
		}
		if err := fv.popOpds(offset, []wasmtype.ValType{wasmtype.I32, wasmtype.I32, wasmtype.I32}); err != nil {
			return err
		}
	case opcode.MiscTableGrow:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		tt, ok := info.TableType(idx)
		if !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", idx)
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, tt.ElemType); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
	case opcode.MiscTableSize:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		if _, ok := info.TableType(idx); !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", idx)
		}
		fv.pushOpd(wasmtype.I32)
	case opcode.MiscTableFill:
		idx, err := r.ReadVarU32()
		if err != nil {
			return err
		}
		tt, ok := info.TableType(idx)
		if !ok {
			return newErr(KindUndefinedTableIdx, offset, "undefined table index %d", idx)
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, tt.ElemType); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, wasmtype.I32); err != nil {
			return err
		}
	default:
		return newErr(KindUnknownOpcode, offset, "unknown 0xFC sub-opcode %d", sub)
	}
	return nil
}

// stepNumeric handles every plain (no-immediate) numeric instruction: the
// i32/i64/f32/f64 comparison, arithmetic, conversion, and sign-extension
// opcodes. Each is a pure operand-stack type transform; the interpreter
// carries the actual semantics (interp/number).
func (fv *funcValidator) stepNumeric(op opcode.Opcode, offset int) error {
	unop := func(t wasmtype.ValType) error {
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}
		fv.pushOpd(t)
		return nil
	}
	binop := func(t wasmtype.ValType) error {
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}
		fv.pushOpd(t)
		return nil
	}
	testop := func(t wasmtype.ValType) error {
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
		return nil
	}
	relop := func(t wasmtype.ValType) error {
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}
		if _, err := fv.popOpdExpect(offset, t); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
		return nil
	}
	cvt := func(from, to wasmtype.ValType) error {
		if _, err := fv.popOpdExpect(offset, from); err != nil {
			return err
		}
		fv.pushOpd(to)
		return nil
	}

	switch op {
	case opcode.I32Eqz:
		return testop(wasmtype.I32)
	case opcode.I32Eq, opcode.I32Ne, opcode.I32LtS, opcode.I32LtU, opcode.I32GtS, opcode.I32GtU,
		opcode.I32LeS, opcode.I32LeU, opcode.I32GeS, opcode.I32GeU:
		return relop(wasmtype.I32)
	case opcode.I64Eqz:
		if _, err := fv.popOpdExpect(offset, wasmtype.I64); err != nil {
			return err
		}
		fv.pushOpd(wasmtype.I32)
		return nil
	case opcode.I64Eq, opcode.I64Ne, opcode.I64LtS, opcode.I64LtU, opcode.I64GtS, opcode.I64GtU,
		opcode.I64LeS, opcode.I64LeU, opcode.I64GeS, opcode.I64GeU:
		return relop(wasmtype.I64)
	case opcode.F32Eq, opcode.F32Ne, opcode.F32Lt, opcode.F32Gt, opcode.F32Le, opcode.F32Ge:
		return relop(wasmtype.F32)
	case opcode.F64Eq, opcode.F64Ne, opcode.F64Lt, opcode.F64Gt, opcode.F64Le, opcode.F64Ge:
		return relop(wasmtype.F64)

	case opcode.I32Clz, opcode.I32Ctz, opcode.I32Popcnt:
		return unop(wasmtype.I32)
	case opcode.I32Add, opcode.I32Sub, opcode.I32Mul, opcode.I32DivS, opcode.I32DivU, opcode.I32RemS, opcode.I32RemU,
		opcode.I32And, opcode.I32Or, opcode.I32Xor, opcode.I32Shl, opcode.I32ShrS, opcode.I32ShrU, opcode.I32Rotl, opcode.I32Rotr:
		return binop(wasmtype.I32)

	case opcode.I64Clz, opcode.I64Ctz, opcode.I64Popcnt:
		return unop(wasmtype.I64)
	case opcode.I64Add, opcode.I64Sub, opcode.I64Mul, opcode.I64DivS, opcode.I64DivU, opcode.I64RemS, opcode.I64RemU,
		opcode.I64And, opcode.I64Or, opcode.I64Xor, opcode.I64Shl, opcode.I64ShrS, opcode.I64ShrU, opcode.I64Rotl, opcode.I64Rotr:
		return binop(wasmtype.I64)

	case opcode.F32Abs, opcode.F32Neg, opcode.F32Ceil, opcode.F32Floor, opcode.F32Trunc, opcode.F32Nearest, opcode.F32Sqrt:
		return unop(wasmtype.F32)
	case opcode.F32Add, opcode.F32Sub, opcode.F32Mul, opcode.F32Div, opcode.F32Min, opcode.F32Max, opcode.F32Copysign:
		return binop(wasmtype.F32)

	case opcode.F64Abs, opcode.F64Neg, opcode.F64Ceil, opcode.F64Floor, opcode.F64Trunc, opcode.F64Nearest, opcode.F64Sqrt:
		return unop(wasmtype.F64)
	case opcode.F64Add, opcode.F64Sub, opcode.F64Mul, opcode.F64Div, opcode.F64Min, opcode.F64Max, opcode.F64Copysign:
		return binop(wasmtype.F64)

	case opcode.I32WrapI64:
		return cvt(wasmtype.I64, wasmtype.I32)
	case opcode.I32TruncF32S, opcode.I32TruncF32U:
		return cvt(wasmtype.F32, wasmtype.I32)
	case opcode.I32TruncF64S, opcode.I32TruncF64U:
		return cvt(wasmtype.F64, wasmtype.I32)
	case opcode.I64ExtendI32S, opcode.I64ExtendI32U:
		return cvt(wasmtype.I32, wasmtype.I64)
	case opcode.I64TruncF32S, opcode.I64TruncF32U:
		return cvt(wasmtype.F32, wasmtype.I64)
	case opcode.I64TruncF64S, opcode.I64TruncF64U:
		return cvt(wasmtype.F64, wasmtype.I64)
	case opcode.F32ConvertI32S, opcode.F32ConvertI32U:
		return cvt(wasmtype.I32, wasmtype.F32)
	case opcode.F32ConvertI64S, opcode.F32ConvertI64U:
		return cvt(wasmtype.I64, wasmtype.F32)
	case opcode.F32DemoteF64:
		return cvt(wasmtype.F64, wasmtype.F32)
	case opcode.F64ConvertI32S, opcode.F64ConvertI32U:
		return cvt(wasmtype.I32, wasmtype.F64)
	case opcode.F64ConvertI64S, opcode.F64ConvertI64U:
		return cvt(wasmtype.I64, wasmtype.F64)
	case opcode.F64PromoteF32:
		return cvt(wasmtype.F32, wasmtype.F64)
	case opcode.I32ReinterpretF32:
		return cvt(wasmtype.F32, wasmtype.I32)
	case opcode.I64ReinterpretF64:
		return cvt(wasmtype.F64, wasmtype.I64)
	case opcode.F32ReinterpretI32:
		return cvt(wasmtype.I32, wasmtype.F32)
	case opcode.F64ReinterpretI64:
		return cvt(wasmtype.I64, wasmtype.F64)

	case opcode.I32Extend8S, opcode.I32Extend16S:
		return unop(wasmtype.I32)
	case opcode.I64Extend8S, opcode.I64Extend16S, opcode.I64Extend32S:
		return unop(wasmtype.I64)

	default:
		return newErr(KindUnknownOpcode, offset, "unknown opcode 0x%x", op)
	}
}
