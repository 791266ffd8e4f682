package interop

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

func TestToValuesStruct(t *testing.T) {
	type params struct {
		A int32
		B uint64
		C float32
	}
	vs, err := ToValues(params{A: -1, B: 42, C: 1.5})
	require.NoError(t, err)
	require.Len(t, vs, 3)
	require.Equal(t, wasmtype.I32, vs[0].Type)
	require.Equal(t, int32(-1), vs[0].I32())
	require.Equal(t, wasmtype.I64, vs[1].Type)
	require.Equal(t, uint64(42), vs[1].U64())
	require.Equal(t, wasmtype.F32, vs[2].Type)
	require.Equal(t, float32(1.5), vs[2].F32())
}

func TestToValuesScalar(t *testing.T) {
	vs, err := ToValues(int32(7))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.Equal(t, int32(7), vs[0].I32())
}

func TestToValuesEmptyStruct(t *testing.T) {
	vs, err := ToValues(struct{}{})
	require.NoError(t, err)
	require.Empty(t, vs)
}

func TestToValuesTooManyFields(t *testing.T) {
	type tooWide struct{ A, B, C, D, E, F, G, H, I int32 }
	_, err := ToValues(tooWide{})
	require.Error(t, err)
}

func TestFromValuesStruct(t *testing.T) {
	type results struct {
		X int64
		Y float64
	}
	var out results
	err := FromValues([]value.Value{value.I64(9), value.F64(2.5)}, &out)
	require.NoError(t, err)
	require.Equal(t, int64(9), out.X)
	require.Equal(t, 2.5, out.Y)
}

func TestFromValuesScalar(t *testing.T) {
	var out uint32
	err := FromValues([]value.Value{value.U32(123)}, &out)
	require.NoError(t, err)
	require.Equal(t, uint32(123), out)
}

func TestFromValuesRequiresPointer(t *testing.T) {
	var out int32
	err := FromValues([]value.Value{value.I32(1)}, out)
	require.Error(t, err)
}

func TestFromValuesResultCountMismatch(t *testing.T) {
	type results struct{ X, Y int32 }
	var out results
	err := FromValues([]value.Value{value.I32(1)}, &out)
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	type params struct {
		A int32
		B int32
	}
	type results struct {
		Sum int32
	}
	vs, err := ToValues(params{A: 2, B: 3})
	require.NoError(t, err)

	sum := vs[0].I32() + vs[1].I32()
	var out results
	require.NoError(t, FromValues([]value.Value{value.I32(sum)}, &out))
	require.Equal(t, int32(5), out.Sum)
}
