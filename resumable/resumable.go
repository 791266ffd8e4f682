// Package resumable lets a fuel-exhausted call be parked and continued
// later instead of discarded: when interp.Machine.Run returns a
// KindFuelExhausted trap, its still-live Machine is worth keeping exactly
// as the teacher's vm.VM would be worth keeping across a gas top-up, were
// vm.Gas ever allowed to suspend instead of erroring outright.
//
// Grounded on a generational slot map plus a read-biased-then-write-biased
// spinlock (slotmap.SlotMap and rwspin.Lock), the one genuinely bespoke
// concurrency primitive this engine carries: a Dormitory is the only object
// in the system meant to be touched from more than one goroutine, and it is
// held only for the instant it takes to insert, look up, or remove a slot —
// never across an interpreter step.
package resumable

import (
	"context"
	"errors"

	"github.com/vertexdlt/vertexvm-engine/interp"
	"github.com/vertexdlt/vertexvm-engine/rwspin"
	"github.com/vertexdlt/vertexvm-engine/slotmap"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
)

// ErrStale is returned by Resume and AccessFuelMut once a ResumableRef's
// slot has already been resumed to completion or cancelled.
var ErrStale = errors.New("resumable: reference no longer valid")

// Resumable is the parked continuation: the suspended Machine, which keeps
// the instruction hook it was built with, so resuming re-enters with the
// same tracing/metering hook installed.
type Resumable struct {
	machine *interp.Machine
}

// RunState reports the outcome of one Resume call.
type RunState struct {
	// Done is true once the call has produced its final results — the
	// ResumableRef that produced this RunState is no longer valid after
	// Done is true. A trap that ends the call is returned as Resume's error
	// with a zero RunState, and it invalidates the ResumableRef as well.
	Done    bool
	Results []value.Value
}

// Dormitory holds every call currently parked on fuel exhaustion. Use
// NewDormitory to construct one — slotmap.SlotMap's zero value reserves
// slot 0 as a free-list head, so a Dormitory is not itself zero-value safe.
type Dormitory struct {
	lock  rwspin.Lock
	slots *slotmap.SlotMap[Resumable]
}

// NewDormitory returns an empty Dormitory.
func NewDormitory() *Dormitory {
	return &Dormitory{slots: slotmap.New[Resumable]()}
}

// Park files a fuel-exhausted Machine away and returns a reference the
// embedder can use to top up its fuel and resume it later.
func (d *Dormitory) Park(m *interp.Machine) *ResumableRef {
	d.lock.Lock()
	key := d.slots.Insert(Resumable{machine: m})
	d.lock.Unlock()
	return &ResumableRef{dormitory: d, key: key}
}

// ResumableRef is a handle to one parked call. It stays valid until Resume
// returns Done, or until Cancel is called — whichever comes first.
type ResumableRef struct {
	dormitory *Dormitory
	key       slotmap.Key[Resumable]
}

// Resume re-enters the parked Machine's dispatch loop. If it runs out of
// fuel again, the same ResumableRef remains valid for another Resume call;
// otherwise the slot is removed and any further call against this
// ResumableRef returns ErrStale.
func (r *ResumableRef) Resume(ctx context.Context, s *store.Store) (RunState, error) {
	r.dormitory.lock.Lock()
	res, ok := r.dormitory.slots.Get(r.key)
	r.dormitory.lock.Unlock()
	if !ok {
		return RunState{}, ErrStale
	}

	results, _, err := res.machine.Run(ctx)

	if err != nil && interp.IsFuelExhausted(err) && res.machine.Live() {
		return RunState{Done: false}, nil
	}

	r.dormitory.lock.Lock()
	r.dormitory.slots.Remove(r.key)
	r.dormitory.lock.Unlock()

	if err != nil {
		return RunState{}, err
	}
	return RunState{Done: true, Results: results}, nil
}

// AccessFuelMut lets the embedder inspect or top up a parked call's fuel
// between Resume calls without having to resume it first.
func (r *ResumableRef) AccessFuelMut(f func(fuel *int64)) error {
	r.dormitory.lock.Lock()
	defer r.dormitory.lock.Unlock()
	res, ok := r.dormitory.slots.Get(r.key)
	if !ok {
		return ErrStale
	}
	fuel := res.machine.Fuel()
	f(&fuel)
	res.machine.AddFuel(fuel - res.machine.Fuel())
	return nil
}

// Cancel discards a parked call without resuming it — Go has no
// destructors, so callers that abandon a ResumableRef must call this
// explicitly to free its slot, where the original's Drop impl would have
// done so implicitly.
func (r *ResumableRef) Cancel() {
	r.dormitory.lock.Lock()
	defer r.dormitory.lock.Unlock()
	r.dormitory.slots.Remove(r.key)
}
