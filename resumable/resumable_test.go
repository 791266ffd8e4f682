package resumable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vertexdlt/vertexvm-engine/interp"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

func newHostCallMachine(t *testing.T, s *store.Store, fuel int64, fn store.HostFunc) *interp.Machine {
	t.Helper()
	addr := s.HostFuncAddr(wasmtype.FuncType{
		Params:  []wasmtype.ValType{wasmtype.I32},
		Results: []wasmtype.ValType{wasmtype.I32},
	}, fn)
	m, err := interp.NewCall(s, addr, []value.Value{value.I32(41)}, fuel, nil)
	require.NoError(t, err)
	return m
}

func TestResumeCompletesAndRemovesSlot(t *testing.T) {
	s := store.NewStore()
	m := newHostCallMachine(t, s, 10, func(ctx context.Context, args []value.Value, fuel int64) ([]value.Value, int64, error) {
		return []value.Value{value.I32(args[0].I32() + 1)}, fuel, nil
	})

	d := NewDormitory()
	ref := d.Park(m)

	state, err := ref.Resume(context.Background(), s)
	require.NoError(t, err)
	require.True(t, state.Done)
	require.Len(t, state.Results, 1)
	require.Equal(t, int32(42), state.Results[0].I32())

	_, err = ref.Resume(context.Background(), s)
	require.ErrorIs(t, err, ErrStale)
}

func TestCancelMakesRefStale(t *testing.T) {
	s := store.NewStore()
	m := newHostCallMachine(t, s, 10, func(ctx context.Context, args []value.Value, fuel int64) ([]value.Value, int64, error) {
		return args, fuel, nil
	})

	d := NewDormitory()
	ref := d.Park(m)
	ref.Cancel()

	_, err := ref.Resume(context.Background(), s)
	require.ErrorIs(t, err, ErrStale)
}

func TestAccessFuelMutAppliesDelta(t *testing.T) {
	s := store.NewStore()
	m := newHostCallMachine(t, s, 100, func(ctx context.Context, args []value.Value, fuel int64) ([]value.Value, int64, error) {
		return nil, fuel, nil
	})

	d := NewDormitory()
	ref := d.Park(m)

	err := ref.AccessFuelMut(func(fuel *int64) { *fuel += 50 })
	require.NoError(t, err)
	require.Equal(t, int64(150), m.Fuel())

	_, err = ref.Resume(context.Background(), s)
	require.NoError(t, err)
}

func TestAccessFuelMutOnStaleRefErrors(t *testing.T) {
	s := store.NewStore()
	m := newHostCallMachine(t, s, 10, func(ctx context.Context, args []value.Value, fuel int64) ([]value.Value, int64, error) {
		return nil, fuel, nil
	})

	d := NewDormitory()
	ref := d.Park(m)
	ref.Cancel()

	err := ref.AccessFuelMut(func(fuel *int64) { *fuel += 1 })
	require.ErrorIs(t, err, ErrStale)
}
