// Package constexpr implements the tiny sub-interpreter needed for the
// constant expressions that initialize globals and element/data segment
// offsets. It accepts only *.const, i32/i64
// add/sub/mul, ref.null, ref.func (with forward-declaration tracking left
// to the caller) and global.get of an imported immutable global — any
// other opcode fails with ErrInvalidInstr.
//
// The same decoded op sequence is used both at validation time (TypeCheck,
// which only needs the types of referenced globals) and at instantiation
// time (Eval, which needs their concrete values) — grounded on the
// teacher's wasm.Module.ExecInitExpr, split into decode-once /
// interpret-twice so the validator and the store agree by construction.
package constexpr

import (
	"errors"
	"math"

	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// ErrInvalidInstr is returned when a constant expression contains an
// opcode outside the tiny legal subset.
var ErrInvalidInstr = errors.New("constexpr: instruction not allowed in a constant expression")

// ErrEmpty is returned for a constant expression producing no value.
var ErrEmpty = errors.New("constexpr: empty constant expression")

// ErrTypeMismatch is returned when an arithmetic op's operand types don't
// agree (e.g. i32.add on an f64 const).
var ErrTypeMismatch = errors.New("constexpr: type mismatch in constant expression")

// ErrMutableGlobal is returned when global.get references a mutable (or
// not-yet-declared-imported) global — only imported immutable globals are
// legal in a constant expression.
var ErrMutableGlobal = errors.New("constexpr: mutable global referenced in constant expression")

type opcode byte

const (
	opI32Const opcode = 0x41
	opI64Const opcode = 0x42
	opF32Const opcode = 0x43
	opF64Const opcode = 0x44
	opI32Add   opcode = 0x6A
	opI32Sub   opcode = 0x6B
	opI32Mul   opcode = 0x6C
	opI64Add   opcode = 0x7C
	opI64Sub   opcode = 0x7D
	opI64Mul   opcode = 0x7E
	opRefNull  opcode = 0xD0
	opRefFunc  opcode = 0xD2
	opGlobalGet opcode = 0x23
	opEnd      opcode = 0x0B
)

// Op is one decoded constant-expression instruction.
type Op struct {
	Code      opcode
	I32       int32
	I64       int64
	F32Bits   uint32
	F64Bits   uint64
	GlobalIdx uint32
	FuncIdx   uint32
	RefType   wasmtype.RefType
}

// Decode reads a constant expression (up to and including its terminating
// `end`) from r.
func Decode(r *wasmread.Reader) ([]Op, error) {
	var ops []Op
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		op := Op{Code: opcode(b)}
		switch opcode(b) {
		case opI32Const:
			v, err := r.ReadVarI32()
			if err != nil {
				return nil, err
			}
			op.I32 = v
		case opI64Const:
			v, err := r.ReadVarI64()
			if err != nil {
				return nil, err
			}
			op.I64 = v
		case opF32Const:
			v, err := r.ReadU32LE()
			if err != nil {
				return nil, err
			}
			op.F32Bits = v
		case opF64Const:
			v, err := r.ReadU64LE()
			if err != nil {
				return nil, err
			}
			op.F64Bits = v
		case opI32Add, opI32Sub, opI32Mul, opI64Add, opI64Sub, opI64Mul:
			// no immediate
		case opRefNull:
			t, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			op.RefType = wasmtype.ValType(t)
		case opRefFunc:
			idx, err := r.ReadVarU32()
			if err != nil {
				return nil, err
			}
			op.FuncIdx = idx
		case opGlobalGet:
			idx, err := r.ReadVarU32()
			if err != nil {
				return nil, err
			}
			op.GlobalIdx = idx
		case opEnd:
			ops = append(ops, op)
			return ops, nil
		default:
			return nil, ErrInvalidInstr
		}
		ops = append(ops, op)
	}
}

// TypeCheck walks ops with a tiny operand-type stack, consulting
// globalType for global.get, and returns the type of the value the
// expression produces.
func TypeCheck(ops []Op, globalType func(idx uint32) (wasmtype.ValType, bool, error)) (wasmtype.ValType, error) {
	var stack []wasmtype.ValType
	for _, op := range ops {
		switch op.Code {
		case opI32Const:
			stack = append(stack, wasmtype.I32)
		case opI64Const:
			stack = append(stack, wasmtype.I64)
		case opF32Const:
			stack = append(stack, wasmtype.F32)
		case opF64Const:
			stack = append(stack, wasmtype.F64)
		case opRefNull:
			stack = append(stack, op.RefType)
		case opRefFunc:
			stack = append(stack, wasmtype.FuncRef)
		case opGlobalGet:
			t, immutableImported, err := globalType(op.GlobalIdx)
			if err != nil {
				return 0, err
			}
			if !immutableImported {
				return 0, ErrMutableGlobal
			}
			stack = append(stack, t)
		case opI32Add, opI32Sub, opI32Mul, opI64Add, opI64Sub, opI64Mul:
			if len(stack) < 2 {
				return 0, ErrTypeMismatch
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			want := wasmtype.I32
			if op.Code == opI64Add || op.Code == opI64Sub || op.Code == opI64Mul {
				want = wasmtype.I64
			}
			if a != want || b != want {
				return 0, ErrTypeMismatch
			}
			stack = append(stack, want)
		case opEnd:
			// terminator, handled after loop
		}
	}
	if len(stack) == 0 {
		return 0, ErrEmpty
	}
	return stack[len(stack)-1], nil
}

// Eval interprets ops against concrete globalValue lookups (only ever
// called, by construction, with imported globals already allocated) and a
// funcRef resolver that maps a module-local function index to the store's
// own FuncAddr-backed reference, and returns the resulting value.
func Eval(ops []Op, globalValue func(idx uint32) (value.Value, error), funcRef func(idx uint32) value.Value) (value.Value, error) {
	var stack []value.Value
	for _, op := range ops {
		switch op.Code {
		case opI32Const:
			stack = append(stack, value.I32(op.I32))
		case opI64Const:
			stack = append(stack, value.I64(op.I64))
		case opF32Const:
			stack = append(stack, value.F32(math.Float32frombits(op.F32Bits)))
		case opF64Const:
			stack = append(stack, value.F64(math.Float64frombits(op.F64Bits)))
		case opRefNull:
			stack = append(stack, value.FromRef(op.RefType, value.NullRef(op.RefType)))
		case opRefFunc:
			stack = append(stack, funcRef(op.FuncIdx))
		case opGlobalGet:
			v, err := globalValue(op.GlobalIdx)
			if err != nil {
				return value.Value{}, err
			}
			stack = append(stack, v)
		case opI32Add, opI32Sub, opI32Mul:
			if len(stack) < 2 {
				return value.Value{}, ErrTypeMismatch
			}
			b := stack[len(stack)-1].I32()
			a := stack[len(stack)-2].I32()
			stack = stack[:len(stack)-2]
			var r int32
			switch op.Code {
			case opI32Add:
				r = a + b
			case opI32Sub:
				r = a - b
			case opI32Mul:
				r = a * b
			}
			stack = append(stack, value.I32(r))
		case opI64Add, opI64Sub, opI64Mul:
			if len(stack) < 2 {
				return value.Value{}, ErrTypeMismatch
			}
			b := stack[len(stack)-1].I64()
			a := stack[len(stack)-2].I64()
			stack = stack[:len(stack)-2]
			var r int64
			switch op.Code {
			case opI64Add:
				r = a + b
			case opI64Sub:
				r = a - b
			case opI64Mul:
				r = a * b
			}
			stack = append(stack, value.I64(r))
		case opEnd:
			// terminator
		}
	}
	if len(stack) == 0 {
		return value.Value{}, ErrEmpty
	}
	return stack[len(stack)-1], nil
}
