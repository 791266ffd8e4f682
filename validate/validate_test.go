package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vertexdlt/vertexvm-engine/internal/wasmtest"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

func addOneModule() []byte {
	ft := wasmtype.FuncType{Params: []wasmtype.ValType{wasmtype.I32}, Results: []wasmtype.ValType{wasmtype.I32}}
	body := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.LocalGet(0), wasmtest.I32Const(1), wasmtest.I32Add(), wasmtest.End(),
	))
	return wasmtest.New().
		TypeSec(ft).
		FunctionSec(0).
		ExportSec(wasmtest.ExportDef{Name: "add_one", Kind: 0x00, Idx: 0}).
		CodeSec(body).
		Bytes()
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestValidateAcceptsWellFormedModule(t *testing.T) {
	info, err := Validate(addOneModule())
	require.NoError(t, err)
	require.Len(t, info.Types, 1)
	require.Len(t, info.Code, 1)
	require.Equal(t, "add_one", info.Exports[0].Name)
}

func TestValidateRejectsBadMagic(t *testing.T) {
	raw := addOneModule()
	raw[0] = 0xff
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindInvalidMagic, ve.Kind)
}

func TestValidateRejectsBadVersion(t *testing.T) {
	raw := addOneModule()
	raw[4] = 0x02
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindInvalidVersion, ve.Kind)
}

func TestValidateRejectsSectionOutOfOrder(t *testing.T) {
	ft := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.I32}}
	// Build function section before type section — violates canonical order.
	m := wasmtest.New()
	m.RawSection(3, wasmtest.Uleb(0))
	m.TypeSec(ft)
	_, err := Validate(m.Bytes())
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindSectionOutOfOrder, ve.Kind)
}

func TestValidateRejectsOperandStackUnderflow(t *testing.T) {
	ft := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.I32}}
	// Function declares an i32 result but its body never pushes one.
	body := wasmtest.CodeBody(nil, wasmtest.End())
	raw := wasmtest.New().TypeSec(ft).FunctionSec(0).CodeSec(body).Bytes()
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindOperandStackMismatch, ve.Kind)
}

func TestValidateRejectsOperandTypeMismatch(t *testing.T) {
	ft := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.I32}}
	// Pushes an f64 where the function signature demands an i32 result.
	body := wasmtest.CodeBody(nil, concatBytes([]byte{0x44, 0, 0, 0, 0, 0, 0, 0, 0}, wasmtest.End()))
	raw := wasmtest.New().TypeSec(ft).FunctionSec(0).CodeSec(body).Bytes()
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindOperandStackMismatch, ve.Kind)
}

func TestValidateRejectsUndefinedFuncIdx(t *testing.T) {
	ft := wasmtype.FuncType{}
	body := wasmtest.CodeBody(nil, concatBytes(wasmtest.Call(7), wasmtest.End()))
	raw := wasmtest.New().TypeSec(ft).FunctionSec(0).CodeSec(body).Bytes()
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindUndefinedFuncIdx, ve.Kind)
}

func TestValidateRejectsBranchDepthTooDeep(t *testing.T) {
	ft := wasmtype.FuncType{}
	// br 3 from the function's top level, which only has depth 0 (the
	// function body itself) available.
	body := wasmtest.CodeBody(nil, concatBytes(wasmtest.Br(3), wasmtest.End()))
	raw := wasmtest.New().TypeSec(ft).FunctionSec(0).CodeSec(body).Bytes()
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBlockArityMismatch, ve.Kind)
}

func TestValidateRejectsIfWithoutElseArityMismatch(t *testing.T) {
	ft := wasmtype.FuncType{}
	// `if` with an i32 result but no `else` — the condition-false path
	// falls straight to `end` with nothing on the stack, violating the
	// block's declared result arity.
	body := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.I32Const(1), wasmtest.If(wasmtype.I32), wasmtest.I32Const(1), wasmtest.End(), wasmtest.Drop(), wasmtest.End(),
	))
	raw := wasmtest.New().TypeSec(ft).FunctionSec(0).CodeSec(body).Bytes()
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBlockArityMismatch, ve.Kind)
}

func TestValidateAcceptsIfElseWithMatchingArity(t *testing.T) {
	ft := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.I32}}
	body := wasmtest.CodeBody(nil, concatBytes(
		wasmtest.I32Const(1), wasmtest.If(wasmtype.I32),
		wasmtest.I32Const(1),
		wasmtest.Else(),
		wasmtest.I32Const(0),
		wasmtest.End(),
		wasmtest.End(),
	))
	raw := wasmtest.New().TypeSec(ft).FunctionSec(0).CodeSec(body).Bytes()
	info, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, info.Sidetable, 2)
}

func TestValidateRejectsDataCountMismatch(t *testing.T) {
	m := wasmtest.New().
		MemorySec(1, nil).
		DataCountSec(2).
		DataSec(wasmtest.ActiveData(wasmtest.I32Const(0), []byte{1, 2, 3}))
	_, err := Validate(m.Bytes())
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindDataCountMismatch, ve.Kind)
}

func TestValidateRejectsMultipleMemories(t *testing.T) {
	raw := wasmtest.New().MemorySec(1, nil).RawSection(5, concatBytes(wasmtest.Uleb(1), wasmtest.EncodeLimits(1, nil))).Bytes()
	_, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateRejectsGlobalSetOnImmutable(t *testing.T) {
	ft := wasmtype.FuncType{}
	body := wasmtest.CodeBody(nil, concatBytes(wasmtest.I32Const(1), wasmtest.GlobalSet(0), wasmtest.End()))
	raw := wasmtest.New().
		TypeSec(ft).
		GlobalSec(wasmtest.GlobalDef{Val: wasmtype.I32, Mut: wasmtype.Const, Init: wasmtest.I32Const(0)}).
		FunctionSec(0).
		CodeSec(body).
		Bytes()
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindMutableGlobalInConst, ve.Kind)
}
