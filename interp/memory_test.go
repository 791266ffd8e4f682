package interp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vertexdlt/vertexvm-engine/internal/wasmtest"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// TestMemoryStoreLoadRoundTrip stores an i32 at a byte offset and loads it
// back through a separate export, exercising execStore/execLoad together.
func TestMemoryStoreLoadRoundTrip(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32, wasmtype.I32}}
	storeBody := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.LocalGet(0), wasmtest.LocalGet(1), wasmtest.I32Store(2, 0), wasmtest.End(),
	))
	loadFt := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	loadBody := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.LocalGet(0), wasmtest.I32Load(2, 0), wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft, loadFt).
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

	_, _, err := eng.InvokeFunc(context.Background(), s, storeAddr, []value.Value{value.I32(8), value.I32(0x2a)}, 100_000)
	require.NoError(t, err)

	results, _, err := eng.InvokeFunc(context.Background(), s, loadAddr, []value.Value{value.I32(8)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(0x2a), results[0].I32())
}

// TestMemoryLoadTrapsOutOfBounds loads past the end of a single-page memory.
func TestMemoryLoadTrapsOutOfBounds(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	body := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.LocalGet(0), wasmtest.I32Load(2, 0), wasmtest.End(),
	))
	raw := wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		MemorySec(1, nil).
		ExportSec(wasmtest.ExportDef{Name: "load", Kind: 0x00, Idx: 0}).
		CodeSec(body).
		Bytes()
	s, eng, mi := instantiate(t, raw, nil)
	addr := exportFunc(t, mi, "load")

	// One page is 64 KiB; loading an i32 starting at the last byte reads
	// past the end.
	_, _, err := eng.InvokeFunc(context.Background(), s, addr, []value.Value{value.I32(int32(wasmtype.MemPageSize - 1))}, 100_000)
	require.Error(t, err)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.KindOutOfBoundsMemory, se.Kind)
}

// TestMemoryGrowSequence grows a memory with a declared maximum of 2 pages:
// the first grow succeeds, the second is rejected once it would exceed the
// maximum, and memory.size always reflects the current page count.
func TestMemoryGrowSequence(t *testing.T) {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	growBody := wasmtest.CodeBody(nil, concatBytes(wasmtest.LocalGet(0), wasmtest.MemoryGrow(), wasmtest.End()))
	sizeFt := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.I32}}
	sizeBody := wasmtest.CodeBody(nil, concatBytes(wasmtest.MemorySize(), wasmtest.End()))
	max := uint32(2)
	raw := wasmtest.New().
		TypeSec(ft, sizeFt).
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

	r, _, err := eng.InvokeFunc(context.Background(), s, growAddr, []value.Value{value.I32(1)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(1), r[0].I32()) // previous page count

	sz, _, err := eng.InvokeFunc(context.Background(), s, sizeAddr, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(2), sz[0].I32())

	rejected, _, err := eng.InvokeFunc(context.Background(), s, growAddr, []value.Value{value.I32(1)}, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(-1), rejected[0].I32())

	szAfter, _, err := eng.InvokeFunc(context.Background(), s, sizeAddr, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, int32(2), szAfter[0].I32())
}
