// Package wasmapi is the typed invocation façade embedders call through
// instead of driving interp.Engine directly: InvokeTyped marshals/unmarshals
// Go values at the boundary via the interop sub-package, and InvokeDynamic
// is the escape hatch for callers working from a runtime-discovered
// signature (e.g. a generic host tool that walks a module's exports)
// rather than a compile-time Go type.
//
// The generic generalization of the teacher's
// Invoke(fidx int64, args ...int64) convenience call.
package wasmapi

import (
	"context"
	"fmt"

	"github.com/vertexdlt/vertexvm-engine/interp"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmapi/interop"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// InvokeTyped calls addr, marshaling params (a Go struct or scalar) into
// engine Values and unmarshaling the call's results into R.
func InvokeTyped[P any, R any](ctx context.Context, eng *interp.Engine, s *store.Store, addr store.FuncAddr, params P, fuel int64) (R, int64, error) {
	var zero R
	args, err := interop.ToValues(params)
	if err != nil {
		return zero, fuel, err
	}
	results, fuelLeft, err := eng.InvokeFunc(ctx, s, addr, args, fuel)
	if err != nil {
		return zero, fuelLeft, err
	}
	var out R
	if err := interop.FromValues(results, &out); err != nil {
		return zero, fuelLeft, err
	}
	return out, fuelLeft, nil
}

// InvokeDynamic calls addr with args already shaped as engine Values,
// checking the result count and types against expectedReturns.
func InvokeDynamic(ctx context.Context, eng *interp.Engine, s *store.Store, addr store.FuncAddr, args []value.Value, expectedReturns []wasmtype.ValType, fuel int64) ([]value.Value, int64, error) {
	results, fuelLeft, err := eng.InvokeFunc(ctx, s, addr, args, fuel)
	if err != nil {
		return nil, fuelLeft, err
	}
	if len(results) != len(expectedReturns) {
		return nil, fuelLeft, fmt.Errorf("wasmapi: expected %d results, got %d", len(expectedReturns), len(results))
	}
	for i, rv := range results {
		if rv.Type != expectedReturns[i] {
			return nil, fuelLeft, fmt.Errorf("wasmapi: result %d expected type %v, got %v", i, expectedReturns[i], rv.Type)
		}
	}
	return results, fuelLeft, nil
}
