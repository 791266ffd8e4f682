// Package interp is the sidetable-driven bytecode interpreter: given a
// validated module's Info (retained on its ModuleInstance as Sidetable and
// Bytecode), it executes a function by walking its code span directly,
// resolving every branch through one lookup into the module-wide sidetable
// instead of rescanning bytecode for block/loop/if targets.
//
// Grounded on the teacher's vm.VM (push/pop/peek, pushFrame/popFrame,
// explicit frame stack instead of Go recursion) and vm.Gas (fuel charged
// per dispatched instruction), generalized so every frame's branch
// instructions consult validate's pre-resolved sidetable.Table rather than
// vm.go's runtime blockJump/skipInstructions scanner.
package interp

import (
	"context"
	"fmt"

	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/sidetable"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
)

// InstructionHook is called once per dispatched instruction, before it
// executes — the generalization of the teacher's ad hoc debug logging into
// a first-class extension point (metering dashboards, tracing, a debugger).
type InstructionHook func(m *Machine, op opcode.Opcode)

// Machine is one call's worth of interpreter state: the shared value stack,
// the explicit frame stack (no Go recursion, so execution can suspend on
// fuel exhaustion and resume later by re-entering Run), and the fuel
// counter shared across every frame of this call.
//
// Keeping frames in a slice rather than the Go call stack is what makes a
// Machine itself the resumable continuation object the fuel design needs:
// suspending is just returning with m.frames intact, and resuming is
// calling Run again with fuel topped up.
type Machine struct {
	store    *store.Store
	stack    []value.Value
	frames   []*frame
	fuel     int64
	hook     InstructionHook
	hostCall *store.FuncInst // set when this Machine is just a direct host-function call
	hostArgs []value.Value
}

// NewCall prepares a Machine to invoke a guest or host function, with its
// arguments already validated by the caller to match the function's
// parameter types. A host-function Machine carries no frames; Run invokes
// it directly instead of walking bytecode — fuel metering for a host call
// is the host's own responsibility, per store.HostFunc's contract.
func NewCall(s *store.Store, addr store.FuncAddr, args []value.Value, fuel int64, hook InstructionHook) (*Machine, error) {
	m := &Machine{store: s, fuel: fuel, hook: hook}
	fi := s.Func(addr)
	if len(args) != len(fi.Type.Params) {
		return nil, &store.Error{Phase: store.PhaseExecute, Kind: store.KindIndirectTypeMismatch,
			Message: fmt.Sprintf("call to func %d expects %d arguments, got %d", addr, len(fi.Type.Params), len(args))}
	}
	if fi.IsHost() {
		m.hostCall = fi
		m.hostArgs = args
		return m, nil
	}
	m.frames = []*frame{m.pushGuestFrame(addr, args)}
	return m, nil
}

// Run drives the Machine to completion: either it returns the call's
// results, or it traps, or (Kind == KindFuelExhausted) it exhausts its fuel
// with frames still live — in which case the same Machine can be re-run
// after its fuel is topped up.
func (m *Machine) Run(ctx context.Context) (results []value.Value, fuelLeft int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, ok := r.(trap)
			if !ok {
				panic(r)
			}
			err = t.err
			fuelLeft = m.fuel
		}
	}()

	// A Machine built for a direct host-function call (no guest frames)
	// just runs the host function once.
	if m.hostCall != nil {
		results, fuelLeft, hostErr := m.hostCall.Host(ctx, m.hostArgs, m.fuel)
		return results, fuelLeft, hostErr
	}

	for len(m.frames) > 0 {
		f := m.frames[len(m.frames)-1]
		if f.r.Len() == 0 {
			m.returnFromFrame(f)
			continue
		}
		if m.fuel <= 0 {
			raise(store.KindFuelExhausted, "fuel exhausted with %d frames live", len(m.frames))
		}
		m.fuel--

		offset := f.r.Pos()
		opByte, err := f.r.ReadByte()
		if err != nil {
			return nil, m.fuel, err
		}
		op := opcode.Opcode(opByte)
		if m.hook != nil {
			m.hook(m, op)
		}
		m.step(ctx, f, op, offset)
	}

	return m.stack, m.fuel, nil
}

// IsFuelExhausted reports whether err is a fuel-exhaustion trap rather than
// a genuine failure — the resumable package's signal that the Machine
// which produced it is worth keeping instead of discarding.
func IsFuelExhausted(err error) bool {
	se, ok := err.(*store.Error)
	return ok && se.Kind == store.KindFuelExhausted
}

// Fuel reports the fuel remaining on a suspended Machine.
func (m *Machine) Fuel() int64 { return m.fuel }

// AddFuel tops up a suspended Machine's fuel before it is resumed.
func (m *Machine) AddFuel(delta int64) { m.fuel += delta }

// Live reports whether the Machine still has guest frames to run — false
// once Run has returned final results (or a non-fuel trap).
func (m *Machine) Live() bool { return len(m.frames) > 0 }

// --- value stack ---

func (m *Machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *Machine) pop() value.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *Machine) popN(n int) []value.Value {
	if n == 0 {
		return nil
	}
	out := append([]value.Value{}, m.stack[len(m.stack)-n:]...)
	m.stack = m.stack[:len(m.stack)-n]
	return out
}

func (m *Machine) pushAll(vs []value.Value) { m.stack = append(m.stack, vs...) }

// --- frame management ---

// pushGuestFrame builds the activation record for a guest call: params
// (already on the stack, popped here) become the first locals, followed by
// the function's own zero-initialized declared locals.
func (m *Machine) pushGuestFrame(addr store.FuncAddr, args []value.Value) *frame {
	fi := m.store.Func(addr)
	g := fi.Guest
	locals := make([]value.Value, 0, len(args)+len(g.Locals))
	locals = append(locals, args...)
	for _, t := range g.Locals {
		locals = append(locals, value.ZeroOf(t))
	}
	bytecode := m.store.Module(g.Module).Bytecode
	r := g.Code.Body.Reopen(bytecode)
	return &frame{
		funcAddr:    addr,
		module:      g.Module,
		locals:      locals,
		r:           r,
		stp:         g.Code.STP,
		stackBase:   len(m.stack),
		resultCount: len(fi.Type.Results),
	}
}

// callGuest pops a callee's arguments off the shared stack and pushes a new
// frame for it; the caller's frame resumes once this one returns.
func (m *Machine) callGuest(addr store.FuncAddr) {
	fi := m.store.Func(addr)
	args := m.popN(len(fi.Type.Params))
	m.frames = append(m.frames, m.pushGuestFrame(addr, args))
}

// callHost pops a callee's arguments, invokes it directly (host functions
// never suspend the Machine — only guest bytecode does), and pushes its
// results.
func (m *Machine) callHost(ctx context.Context, fi *store.FuncInst) {
	args := m.popN(len(fi.Type.Params))
	results, fuelLeft, err := fi.Host(ctx, args, m.fuel)
	m.fuel = fuelLeft
	if err != nil {
		raise(store.KindCallStackExhausted, "host call failed: %v", err)
	}
	m.pushAll(results)
}

// returnFromFrame pops the completed top frame; its result values are
// already sitting on top of the shared stack (the callee never had a
// separate stack of its own), so nothing further needs copying.
func (m *Machine) returnFromFrame(f *frame) {
	m.frames = m.frames[:len(m.frames)-1]
}

// takeBranch applies one sidetable entry: jump the frame's reader by
// DeltaPC relative to the branch opcode's own offset, adjust stp, and
// shuffle the value stack, keeping the top ValCount values and discarding
// the PopCount values beneath them.
func (m *Machine) takeBranch(f *frame, offset int, entryIdx int) {
	if entryIdx < 0 || entryIdx >= len(m.sidetable(f)) {
		raise(store.KindCallStackExhausted, "sidetable index %d out of range", entryIdx)
	}
	e := m.sidetable(f)[entryIdx]
	newIP := offset + int(e.DeltaPC)
	if err := f.r.SeekTo(newIP); err != nil {
		raise(store.KindCallStackExhausted, "branch target %d out of range: %v", newIP, err)
	}
	f.stp = entryIdx + int(e.DeltaSTP)

	n := len(m.stack)
	top := append([]value.Value{}, m.stack[n-int(e.ValCount):]...)
	m.stack = m.stack[:n-int(e.ValCount)-int(e.PopCount)]
	m.stack = append(m.stack, top...)
}

func (m *Machine) sidetable(f *frame) sidetable.Table {
	return m.store.Module(f.module).Sidetable
}
