package interp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vertexdlt/vertexvm-engine/interp"
	"github.com/vertexdlt/vertexvm-engine/internal/wasmtest"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/validate"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// The six scenarios below are the end-to-end walkthroughs a complete
// embedder of this engine is expected to run: compile, instantiate, and
// invoke a module exercising one representative feature each.

// TestE2EAddOne: a module exporting a single (i32)->i32 function that adds
// one to its argument.
func TestE2EAddOne(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	body := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.I32Const(1), wasmtest.I32Add(), wasmtest.End()))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		ExportSec(wasmtest.ExportDef{Name: "add_one", Kind: 0x00, Idx: 0}).
		CodeSec(body).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "add_one")

	results, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(41)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(42), results[0].I32())
}

// TestE2EMemoryStoreLoad: store a value into linear memory then load it
// back out through a separate export.
func TestE2EMemoryStoreLoad(t *testing.T) {
	storeFt := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32, wasmtype.I32}}
	loadFt := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	storeBody := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.LocalGet(1), wasmtest.I32Store(2, 0), wasmtest.End()))
	loadBody := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.I32Load(2, 0), wasmtest.End()))
	raw := wasmtest.New().
		TypeSec(storeFt, loadFt).
		FunctionSec(0, 1).
		MemorySec(1, nil).
		ExportSec(
			wasmtest.ExportDef{Name: "store", Kind: 0x00, Idx: 0},
			wasmtest.ExportDef{Name: "load", Kind: 0x00, Idx: 1},
		).
		CodeSec(storeBody, loadBody).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	storeAddr := exportFunc(t, mi, "store")
	loadAddr := exportFunc(t, mi, "load")

	_, _, err := eng.InvokeFunc(context.Background(), s, storeAddr, []value.Value{value.I32(0), value.I32(1234)}, 100_000)
	require.NoError(t, err)
	results, _, err := eng.InvokeFunc(context.Background(), s, loadAddr, []value.Value{value.I32(0)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(1234), results[0].I32())
}

// TestE2EMemoryGrowSequence: grow a one-page memory twice, up to its
// declared maximum, checking memory.size after each step.
func TestE2EMemoryGrowSequence(t *testing.T) {
	growFt := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	sizeFt := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.I32}}
	growBody := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.MemoryGrow(), wasmtest.End()))
	sizeBody := wasmtest.CodeBody(nil, concatBytes(wasmtest.MemorySize(), wasmtest.End()))
	max := uint32(3)
	raw := wasmtest.New().
		TypeSec(growFt, sizeFt).
		FunctionSec(0, 1).
		MemorySec(1, &max).
		ExportSec(
			wasmtest.ExportDef{Name: "grow", Kind: 0x00, Idx: 0},
			wasmtest.ExportDef{Name: "size", Kind: 0x00, Idx: 1},
		).
		CodeSec(growBody, sizeBody).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	growAddr := exportFunc(t, mi, "grow")
	sizeAddr := exportFunc(t, mi, "size")

	for _, step := range []struct{ delta, wantPrev, wantSize int32 }{
		{1, 1, 2},
		{1, 2, 3},
		{1, -1, 3}, // exceeds declared maximum, rejected
	} {
		r, _, err := eng.InvokeFunc(context.Background(), s, growAddr, []value.Value{value.I32(step.delta)}, 100_000)
		require.NoError(t, err)
		require.Equal(t, step.wantPrev, r[0].I32())

		sz, _, err := eng.InvokeFunc(context.Background(), s, sizeAddr, nil, 100_000)
		require.NoError(t, err)
		require.Equal(t, step.wantSize, sz[0].I32())
	}
}

// TestE2EFuelExhaustionLoop: a loop decrementing a counter runs out of fuel
// mid-execution and Engine.InvokeFunc reports KindFuelExhausted. Parking
// and resuming such a call is covered by the resumable package tests; this
// test does not resume.
func TestE2EFuelExhaustionLoop(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	// while (n != 0) { n := n - 1 }; return n
	body := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.Block(),
		wasmtest.Loop(),
		wasmtest.LocalGet(0),
		wasmtest.I32Const(0),
		wasmtest.I32Eq(),
		wasmtest.BrIf(1),
		wasmtest.LocalGet(0),
		wasmtest.I32Const(1),
		wasmtest.I32Sub(),
		wasmtest.LocalSet(0),
		wasmtest.Br(0),
		wasmtest.End(),
		wasmtest.End(),
		wasmtest.LocalGet(0),
		wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		ExportSec(wasmtest.ExportDef{Name: "countdown", Kind: 0x00, Idx: 0}).
		CodeSec(body).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "countdown")

	// A handful of fuel units is enough to dispatch a few instructions but
	// not enough to finish the loop in one shot.
	results, fuelLeft, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(50)}, 5)
	require.Error(t, err)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.KindFuelExhausted, se.Kind)
	require.Nil(t, results)
	require.LessOrEqual(t, fuelLeft, int64(0))
}

// TestE2EHostImportCall: a module imports a host function and re-exports a
// wrapper that calls it, exercising the host/guest call boundary.
func TestE2EHostImportCall(t *testing.T) {
	hostFt := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32, wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	var seen [2]int32
	s := store.NewStore()
	hostAddr := s.HostFuncAddr(hostFt, func(_ context.Context, args []value.Value, fuel int64) ([]value.Value, int64, error) {
		seen[0], seen[1] = args[0].I32(), args[1].I32()
		return []value.Value{value.I32(args[0].I32() + args[1].I32())}, fuel, nil
	})

	callerBody := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.LocalGet(1), wasmtest.Call(0), wasmtest.End()))
	raw := wasmtest.New().
		TypeSec(hostFt).
		ImportSec(wasmtest.ImportFunc{Module: "env", Name: "add", TypeIdx: 0}).
		FunctionSec(0).
		ExportSec(wasmtest.ExportDef{Name: "call_host", Kind: 0x00, Idx: 1}).
		CodeSec(callerBody).
		Bytes()
	info, err := validate.Validate(raw)
	require.NoError(t, err)

	eng := interp.NewEngine()
	imports := []store.ExternVal{{Kind: validate.ExternFunc, Func: hostAddr}}
	mi, err := s.Instantiate(context.Background(), info, imports, eng, 1_000_000)
	require.NoError(t, err)
	addr := exportFunc(t, mi, "call_host")

	results, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(3), value.I32(4)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(7), results[0].I32())
	require.Equal(t, [2]int32{3, 4}, seen)
}

// TestE2ETableFill: table.fill populates a range of a funcref table with a
// single function reference, verified by dispatching through it with
// call_indirect.
func TestE2ETableFill(t *testing.T) {
	targetFt := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.I32}}
	callerFt := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	target := wasmtest.CodeBody(nil, concatBytes(wasmtest.I32Const(42), wasmtest.End()))
	caller := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.I32Const(0), // dst
		wasmtest.RefFunc(0),  // val
		wasmtest.I32Const(2), // n
		wasmtest.TableFill(0),
		wasmtest.LocalGet(0),
		wasmtest.CallIndirect(0, 0),
		wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(targetFt, callerFt).
		FunctionSec(0, 1).
		TableSec(wasmtype.FuncRef, 2, nil).
		ExportSec(wasmtest.ExportDef{Name: "f", Kind: 0x00, Idx: 1}).
		CodeSec(target, caller).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "f")

	for _, idx := range []int32{0, 1} {
		results, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(idx)}, 100_000)
		require.NoError(t, err)
		require.Equal(t, int32(42), results[0].I32())
	}
}
