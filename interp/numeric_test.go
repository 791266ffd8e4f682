package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
)

func TestExecNumericConstAndAdd(t *testing.T) {
	m := &Machine{}
	r := wasmread.New([]byte{42, 8}) // two varint immediates: 42, 8
	m.execNumeric(opcode.I32Const, r)
	m.execNumeric(opcode.I32Const, r)
	m.execNumeric(opcode.I32Add, wasmread.New(nil))
	require.Len(t, m.stack, 1)
	require.Equal(t, int32(50), m.pop().I32())
}

func TestExecNumericDivByZeroTraps(t *testing.T) {
	m := &Machine{}
	m.push(value.I32(1))
	m.push(value.I32(0))
	require.Panics(t, func() { m.execNumeric(opcode.I32DivS, wasmread.New(nil)) })
}

func TestExecNumericDivOverflowTraps(t *testing.T) {
	m := &Machine{}
	m.push(value.I32(math.MinInt32))
	m.push(value.I32(-1))
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			tr, ok := r.(trap)
			require.True(t, ok)
			require.Equal(t, store.KindIntegerOverflow, tr.err.Kind)
		}()
		m.execNumeric(opcode.I32DivS, wasmread.New(nil))
	}()
}

func TestExecNumericF32MinMaxNaNPropagates(t *testing.T) {
	require.True(t, math.IsNaN(float64(wasmF32Min(float32(math.NaN()), 1))))
	require.True(t, math.IsNaN(float64(wasmF32Max(1, float32(math.NaN())))))
}

func TestExecNumericF32MinSignedZero(t *testing.T) {
	negZero := float32(math.Copysign(0, -1))
	got := wasmF32Min(0, negZero)
	require.True(t, math.Signbit(float64(got)))
}

func TestExecNumericI64Comparisons(t *testing.T) {
	m := &Machine{}
	m.push(value.I64(3))
	m.push(value.I64(5))
	m.execNumeric(opcode.I64LtS, wasmread.New(nil))
	require.Equal(t, int32(1), m.pop().I32())
}

func TestExecNumericF64ConstRoundTrip(t *testing.T) {
	m := &Machine{}
	bits := math.Float64bits(3.25)
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	r := wasmread.New(buf)
	m.execNumeric(opcode.F64Const, r)
	require.Equal(t, 3.25, m.pop().F64())
}
