package interp

import (
	"context"

	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
)

// Engine implements store.Invoker by routing every call — guest or host,
// including a module's own start function during instantiation — through
// Machine.Run, so there is exactly one call path for the whole system.
type Engine struct {
	Hook InstructionHook
}

// NewEngine returns an Engine with no instruction hook installed.
func NewEngine() *Engine { return &Engine{} }

// InvokeFunc runs addr to completion against s, metered by fuel, and
// returns its results and the fuel remaining. A fuel-exhaustion trap is
// reported like any other error here; callers that want a resumable
// continuation instead should drive a Machine directly (see the resumable
// package) rather than go through InvokeFunc.
func (e *Engine) InvokeFunc(ctx context.Context, s *store.Store, addr store.FuncAddr, args []value.Value, fuel int64) ([]value.Value, int64, error) {
	m, err := NewCall(s, addr, args, fuel, e.Hook)
	if err != nil {
		return nil, fuel, err
	}
	return m.Run(ctx)
}
