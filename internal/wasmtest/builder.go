// Package wasmtest hand-assembles tiny Wasm binary modules byte by byte —
// the engine's test fixtures use this instead of shelling out to wat2wasm,
// since every module these tests need is small enough to build directly: a
// handful of sections, a handful of instructions.
package wasmtest

import (
	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// Uleb encodes an unsigned LEB128 integer.
func Uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// Sleb encodes a signed LEB128 integer.
func Sleb(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// Name length-prefixes a UTF-8 string the way the binary format requires for
// import/export/custom-section names.
func Name(s string) []byte {
	return append(Uleb(uint64(len(s))), []byte(s)...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Module accumulates sections in the order they're added; Bytes prefixes
// them with the magic header and version.
type Module struct {
	sections [][]byte
}

func New() *Module { return &Module{} }

func (m *Module) addSection(id byte, body []byte) *Module {
	m.sections = append(m.sections, concat([]byte{id}, Uleb(uint64(len(body))), body))
	return m
}

// Bytes assembles the complete module.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range m.sections {
		out = append(out, s...)
	}
	return out
}

// RawSection adds a section with an arbitrary id and pre-built body, for
// shapes the typed helpers below don't cover (deliberately malformed inputs,
// unusual orderings).
func (m *Module) RawSection(id byte, body []byte) *Module { return m.addSection(id, body) }

func EncodeLimits(min uint32, max *uint32) []byte {
	if max == nil {
		return concat([]byte{0x00}, Uleb(uint64(min)))
	}
	return concat([]byte{0x01}, Uleb(uint64(min)), Uleb(uint64(*max)))
}

func encodeFuncType(ft wasmtype.FuncType) []byte {
	out := []byte{0x60}
	out = append(out, Uleb(uint64(len(ft.Params)))...)
	for _, p := range ft.Params {
		out = append(out, byte(p))
	}
	out = append(out, Uleb(uint64(len(ft.Results)))...)
	for _, r := range ft.Results {
		out = append(out, byte(r))
	}
	return out
}

// TypeSec adds the type section.
func (m *Module) TypeSec(types ...wasmtype.FuncType) *Module {
	body := Uleb(uint64(len(types)))
	for _, t := range types {
		body = append(body, encodeFuncType(t)...)
	}
	return m.addSection(1, body)
}

// ImportFunc, ImportMem, ImportGlobal describe one import-section entry.
type ImportFunc struct {
	Module, Name string
	TypeIdx      uint32
}
type ImportMem struct {
	Module, Name string
	Min          uint32
	Max          *uint32
}
type ImportGlobal struct {
	Module, Name string
	Val          wasmtype.ValType
	Mut          wasmtype.Mut
}

// ImportSec adds the import section. Each argument is one of ImportFunc,
// ImportMem, or ImportGlobal.
func (m *Module) ImportSec(imports ...interface{}) *Module {
	body := Uleb(uint64(len(imports)))
	for _, im := range imports {
		switch v := im.(type) {
		case ImportFunc:
			body = append(body, concat(Name(v.Module), Name(v.Name), []byte{0x00}, Uleb(uint64(v.TypeIdx)))...)
		case ImportMem:
			body = append(body, concat(Name(v.Module), Name(v.Name), []byte{0x02}, EncodeLimits(v.Min, v.Max))...)
		case ImportGlobal:
			body = append(body, concat(Name(v.Module), Name(v.Name), []byte{0x03}, []byte{byte(v.Val), byte(v.Mut)})...)
		}
	}
	return m.addSection(2, body)
}

// FunctionSec adds the function section (one type index per module-defined
// function, parallel to CodeSec's entries).
func (m *Module) FunctionSec(typeIdxs ...uint32) *Module {
	body := Uleb(uint64(len(typeIdxs)))
	for _, ti := range typeIdxs {
		body = append(body, Uleb(uint64(ti))...)
	}
	return m.addSection(3, body)
}

// TableSec adds the table section with a single table.
func (m *Module) TableSec(elemType wasmtype.RefType, min uint32, max *uint32) *Module {
	body := concat(Uleb(1), []byte{byte(elemType)}, EncodeLimits(min, max))
	return m.addSection(4, body)
}

// MemorySec adds the memory section with a single memory.
func (m *Module) MemorySec(min uint32, max *uint32) *Module {
	body := concat(Uleb(1), EncodeLimits(min, max))
	return m.addSection(5, body)
}

// GlobalDef describes one global-section entry; Init is the already-encoded
// constant-expression body, not including the terminating End byte.
type GlobalDef struct {
	Val  wasmtype.ValType
	Mut  wasmtype.Mut
	Init []byte
}

// GlobalSec adds the global section.
func (m *Module) GlobalSec(globals ...GlobalDef) *Module {
	body := Uleb(uint64(len(globals)))
	for _, g := range globals {
		body = append(body, concat([]byte{byte(g.Val), byte(g.Mut)}, g.Init, []byte{byte(opcode.End)})...)
	}
	return m.addSection(6, body)
}

// ExportDef describes one export-section entry; Kind is 0x00 func, 0x01
// table, 0x02 mem, 0x03 global.
type ExportDef struct {
	Name string
	Kind byte
	Idx  uint32
}

// ExportSec adds the export section.
func (m *Module) ExportSec(exports ...ExportDef) *Module {
	body := Uleb(uint64(len(exports)))
	for _, e := range exports {
		body = append(body, concat(Name(e.Name), []byte{e.Kind}, Uleb(uint64(e.Idx)))...)
	}
	return m.addSection(7, body)
}

// StartSec adds the start section.
func (m *Module) StartSec(funcIdx uint32) *Module {
	return m.addSection(8, Uleb(uint64(funcIdx)))
}

// ActiveElemFuncs builds one active, function-index-shorthand element
// segment (flag 0) targeting table 0.
func ActiveElemFuncs(offsetExpr []byte, funcIdxs ...uint32) []byte {
	body := concat(Uleb(0), offsetExpr, []byte{byte(opcode.End)}, Uleb(uint64(len(funcIdxs))))
	for _, fi := range funcIdxs {
		body = append(body, Uleb(uint64(fi))...)
	}
	return body
}

// DeclarativeElemFuncs builds one declarative, function-index-shorthand
// element segment (flag 3, elemkind funcref).
func DeclarativeElemFuncs(funcIdxs ...uint32) []byte {
	body := concat(Uleb(3), []byte{0x00}, Uleb(uint64(len(funcIdxs))))
	for _, fi := range funcIdxs {
		body = append(body, Uleb(uint64(fi))...)
	}
	return body
}

// ElementSec adds the element section from already-encoded segment bodies
// (see ActiveElemFuncs/DeclarativeElemFuncs).
func (m *Module) ElementSec(segments ...[]byte) *Module {
	body := Uleb(uint64(len(segments)))
	for _, s := range segments {
		body = append(body, s...)
	}
	return m.addSection(9, body)
}

// DataCountSec adds the data count section.
func (m *Module) DataCountSec(n uint32) *Module {
	return m.addSection(12, Uleb(uint64(n)))
}

// ActiveData builds one active data segment (flag 0) targeting memory 0.
func ActiveData(offsetExpr []byte, data []byte) []byte {
	return concat(Uleb(0), offsetExpr, []byte{byte(opcode.End)}, Uleb(uint64(len(data))), data)
}

// DataSec adds the data section from already-encoded segment bodies.
func (m *Module) DataSec(segments ...[]byte) *Module {
	body := Uleb(uint64(len(segments)))
	for _, s := range segments {
		body = append(body, s...)
	}
	return m.addSection(11, body)
}

// CodeBody builds one code-section entry: locals grouped by consecutive
// run, followed by expr (which must include the function body's
// terminating End byte).
func CodeBody(locals []wasmtype.ValType, expr []byte) []byte {
	type grp struct {
		n uint32
		t wasmtype.ValType
	}
	var gs []grp
	for _, t := range locals {
		if len(gs) > 0 && gs[len(gs)-1].t == t {
			gs[len(gs)-1].n++
		} else {
			gs = append(gs, grp{n: 1, t: t})
		}
	}
	body := Uleb(uint64(len(gs)))
	for _, g := range gs {
		body = append(body, concat(Uleb(uint64(g.n)), []byte{byte(g.t)})...)
	}
	body = append(body, expr...)
	return concat(Uleb(uint64(len(body))), body)
}

// CodeSec adds the code section from already-built entries (see CodeBody).
func (m *Module) CodeSec(bodies ...[]byte) *Module {
	body := Uleb(uint64(len(bodies)))
	for _, b := range bodies {
		body = append(body, b...)
	}
	return m.addSection(10, body)
}

// --- instruction encoders: just enough of the instruction set for the
// fixtures these tests build ---

func op1(o opcode.Opcode) []byte { return []byte{byte(o)} }

func LocalGet(idx uint32) []byte  { return concat(op1(opcode.LocalGet), Uleb(uint64(idx))) }
func LocalSet(idx uint32) []byte  { return concat(op1(opcode.LocalSet), Uleb(uint64(idx))) }
func LocalTee(idx uint32) []byte  { return concat(op1(opcode.LocalTee), Uleb(uint64(idx))) }
func GlobalGet(idx uint32) []byte { return concat(op1(opcode.GlobalGet), Uleb(uint64(idx))) }
func GlobalSet(idx uint32) []byte { return concat(op1(opcode.GlobalSet), Uleb(uint64(idx))) }

func I32Const(v int32) []byte { return concat(op1(opcode.I32Const), Sleb(int64(v))) }
func I64Const(v int64) []byte { return concat(op1(opcode.I64Const), Sleb(v)) }

func Call(idx uint32) []byte { return concat(op1(opcode.Call), Uleb(uint64(idx))) }
func CallIndirect(typeIdx, tableIdx uint32) []byte {
	return concat(op1(opcode.CallIndirect), Uleb(uint64(typeIdx)), Uleb(uint64(tableIdx)))
}

func memarg(align, offset uint32) []byte { return concat(Uleb(uint64(align)), Uleb(uint64(offset))) }

func I32Load(align, offset uint32) []byte  { return concat(op1(opcode.I32Load), memarg(align, offset)) }
func I32Store(align, offset uint32) []byte { return concat(op1(opcode.I32Store), memarg(align, offset)) }
func I64Load(align, offset uint32) []byte  { return concat(op1(opcode.I64Load), memarg(align, offset)) }
func I64Store(align, offset uint32) []byte { return concat(op1(opcode.I64Store), memarg(align, offset)) }

func MemorySize() []byte { return concat(op1(opcode.MemorySize), []byte{0x00}) }
func MemoryGrow() []byte { return concat(op1(opcode.MemoryGrow), []byte{0x00}) }

func RefNull(t wasmtype.RefType) []byte { return concat(op1(opcode.RefNull), []byte{byte(t)}) }
func RefFunc(idx uint32) []byte         { return concat(op1(opcode.RefFunc), Uleb(uint64(idx))) }

func TableGet(idx uint32) []byte { return concat(op1(opcode.TableGet), Uleb(uint64(idx))) }
func TableSet(idx uint32) []byte { return concat(op1(opcode.TableSet), Uleb(uint64(idx))) }

func miscOp(sub opcode.Opcode, rest ...[]byte) []byte {
	return concat(op1(opcode.MiscPrefix), Uleb(uint64(sub)), concat(rest...))
}

func TableFill(idx uint32) []byte { return miscOp(opcode.MiscTableFill, Uleb(uint64(idx))) }
func TableSize(idx uint32) []byte { return miscOp(opcode.MiscTableSize, Uleb(uint64(idx))) }
func TableGrow(idx uint32) []byte { return miscOp(opcode.MiscTableGrow, Uleb(uint64(idx))) }
func TableInit(elemIdx, tableIdx uint32) []byte {
	return miscOp(opcode.MiscTableInit, Uleb(uint64(elemIdx)), Uleb(uint64(tableIdx)))
}
func ElemDrop(elemIdx uint32) []byte { return miscOp(opcode.MiscElemDrop, Uleb(uint64(elemIdx))) }
func MemoryFill() []byte             { return miscOp(opcode.MiscMemoryFill, []byte{0x00}) }
func MemoryInit(dataIdx uint32) []byte {
	return miscOp(opcode.MiscMemoryInit, Uleb(uint64(dataIdx)), []byte{0x00})
}
func DataDrop(dataIdx uint32) []byte { return miscOp(opcode.MiscDataDrop, Uleb(uint64(dataIdx))) }

// Block/Loop/If open a structured control instruction with an inline block
// type: BlockTypeEmpty (no params/results) or a single ValType result.
func Block(result ...wasmtype.ValType) []byte { return concat(op1(opcode.Block), blockTypeByte(result)) }
func Loop(result ...wasmtype.ValType) []byte  { return concat(op1(opcode.Loop), blockTypeByte(result)) }
func If(result ...wasmtype.ValType) []byte    { return concat(op1(opcode.If), blockTypeByte(result)) }

func blockTypeByte(result []wasmtype.ValType) []byte {
	if len(result) == 0 {
		return []byte{opcode.BlockTypeEmpty}
	}
	return []byte{byte(result[0])}
}

func Else() []byte          { return op1(opcode.Else) }
func End() []byte           { return op1(opcode.End) }
func Br(depth uint32) []byte   { return concat(op1(opcode.Br), Uleb(uint64(depth))) }
func BrIf(depth uint32) []byte { return concat(op1(opcode.BrIf), Uleb(uint64(depth))) }
func Return() []byte        { return op1(opcode.Return) }
func Unreachable() []byte   { return op1(opcode.Unreachable) }
func Drop() []byte          { return op1(opcode.Drop) }

func I32Add() []byte { return op1(opcode.I32Add) }
func I32Sub() []byte { return op1(opcode.I32Sub) }
func I32Eq() []byte  { return op1(opcode.I32Eq) }
func I32LtS() []byte { return op1(opcode.I32LtS) }
