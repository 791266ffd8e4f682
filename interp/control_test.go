package interp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vertexdlt/vertexvm-engine/interp"
	"github.com/vertexdlt/vertexvm-engine/internal/wasmtest"
	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/validate"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// brTable encodes a br_table instruction: one target depth per case in
// targets, falling back to def when the selector is out of range.
func brTable(targets []uint32, def uint32) []byte {
	out := []byte{byte(opcode.BrTable)}
	out = append(out, wasmtest.Uleb(uint64(len(targets)))...)
	for _, d := range targets {
		out = append(out, wasmtest.Uleb(uint64(d))...)
	}
	out = append(out, wasmtest.Uleb(uint64(def))...)
	return out
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func instantiate(t *testing.T, raw []byte, imports []store.ExternVal) (*store.Store, *interp.Engine, *store.ModuleInstance) {
	t.Helper()
	info, err := validate.Validate(raw)
	require.NoError(t, err)
	s := store.NewStore()
	eng := interp.NewEngine()
	mi, err := s.Instantiate(context.Background(), info, imports, eng, 1_000_000)
	require.NoError(t, err)
	return s, eng, mi
}

func exportFunc(t *testing.T, mi *store.ModuleInstance, name string) store.FuncAddr {
	t.Helper()
	ext, ok := mi.Export(name)
	require.True(t, ok)
	require.Equal(t, validate.ExternFunc, ext.Kind)
	return ext.Func
}

// TestBrIfSkipsLoopBody builds a loop whose br_if condition (n < 0) is
// always false for non-negative input, so the loop body runs exactly once
// and falls through instead of iterating — exercises loop/br_if together.
func TestBrIfSkipsLoopBody(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	body := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.Loop(),
		wasmtest.LocalGet(0),
		wasmtest.I32Const(0),
		wasmtest.I32LtS(), // n < 0, never true for non-negative input; loop runs once
		wasmtest.BrIf(0),
		wasmtest.End(),
		wasmtest.LocalGet(0),
		wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		ExportSec(wasmtest.ExportDef{Name: "f", Kind: 0x00, Idx: 0}).
		CodeSec(body).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "f")

	results, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(3)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(3), results[0].I32())
}

// TestBrTableSelectsTarget builds a function with three nested empty-arity
// blocks ($exit / $case1 / $case0); br_table lands selector 0 right after
// $case0's end and every other selector right after $case1's end, and a
// local variable (rather than a value carried across the branch) records
// which arm ran. Each arm sets the local then branches straight to $exit so
// the two landing zones never fall into each other.
func TestBrTableSelectsTarget(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	body := wasmtest.CodeBody([]wasmtype.ValType{wasmtype.I32}, concatBytes(
		wasmtest.Block(), // $exit
		wasmtest.Block(), // $case1 (default landing)
		wasmtest.Block(), // $case0
		wasmtest.LocalGet(0),
		brTable([]uint32{0}, 1),
		wasmtest.End(), // case0 (target 0) lands here
		wasmtest.I32Const(100),
		wasmtest.LocalSet(1),
		wasmtest.Br(1), // jump straight to $exit's end, skipping the default arm
		wasmtest.End(), // default (target 1) lands here
		wasmtest.I32Const(200),
		wasmtest.LocalSet(1),
		wasmtest.End(), // $exit's end
		wasmtest.LocalGet(1),
		wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		ExportSec(wasmtest.ExportDef{Name: "f", Kind: 0x00, Idx: 0}).
		CodeSec(body).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "f")

	r0, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(0)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(100), r0[0].I32())

	r1, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(1)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(200), r1[0].I32())

	// Selector beyond the table's range falls to the default target (1).
	rDefault, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(99)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(200), rDefault[0].I32())
}

func TestCallDispatchesToAnotherFunction(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	addOne := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.I32Const(1), wasmtest.I32Add(), wasmtest.End()))
	caller := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.Call(0), wasmtest.Call(0), wasmtest.End()))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0, 0).
		ExportSec(wasmtest.ExportDef{Name: "twice", Kind: 0x00, Idx: 1}).
		CodeSec(addOne, caller).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "twice")

	results, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(5)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(7), results[0].I32())
}

func TestCallIndirectDispatchesThroughTable(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	addOne := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.I32Const(1), wasmtest.I32Add(), wasmtest.End()))
	caller := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.LocalGet(0), wasmtest.I32Const(0), wasmtest.CallIndirect(0, 0), wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0, 0).
		TableSec(wasmtype.FuncRef, 1, nil).
		ExportSec(wasmtest.ExportDef{Name: "call_it", Kind: 0x00, Idx: 1}).
		ElementSec(wasmtest.ActiveElemFuncs(wasmtest.I32Const(0), 0)).
		CodeSec(addOne, caller).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "call_it")

	results, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(10)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(11), results[0].I32())
}

func TestCallIndirectTrapsOnTypeMismatch(t *testing.T) {
	fti := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	ftNoArgs := wasmtype.FuncType{}
	target := wasmtest.CodeBody(nil, concatBytes(wasmtest.End()))
	caller := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.LocalGet(0), wasmtest.I32Const(0), wasmtest.CallIndirect(0, 0), wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(fti, ftNoArgs).
		FunctionSec(1, 0).
		TableSec(wasmtype.FuncRef, 1, nil).
		ExportSec(wasmtest.ExportDef{Name: "call_it", Kind: 0x00, Idx: 1}).
		ElementSec(wasmtest.ActiveElemFuncs(wasmtest.I32Const(0), 0)).
		CodeSec(target, caller).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "call_it")

	_, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(1)}, 100_000)
	require.Error(t, err)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.KindIndirectTypeMismatch, se.Kind)
}

func TestCallIndirectTrapsOnUninitializedSlot(t *testing.T) {
	ft := wasmtype.FuncType{}
	caller := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.I32Const(0), wasmtest.CallIndirect(0, 0), wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		TableSec(wasmtype.FuncRef, 1, nil).
		ExportSec(wasmtest.ExportDef{Name: "call_it", Kind: 0x00, Idx: 0}).
		CodeSec(caller).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "call_it")

	_, _, err := eng.InvokeFunc(context.Background(), s, addr, nil, 100_000)
	require.Error(t, err)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.KindUninitializedElement, se.Kind)
}

func TestCallIndirectTrapsOutOfBoundsTable(t *testing.T) {
	ft := wasmtype.FuncType{}
	caller := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.I32Const(5), wasmtest.CallIndirect(0, 0), wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		TableSec(wasmtype.FuncRef, 1, nil).
		ExportSec(wasmtest.ExportDef{Name: "call_it", Kind: 0x00, Idx: 0}).
		CodeSec(caller).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "call_it")

	_, _, err := eng.InvokeFunc(context.Background(), s, addr, nil, 100_000)
	require.Error(t, err)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.KindOutOfBoundsTable, se.Kind)
}
