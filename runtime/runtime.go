// Package runtime is the engine's top-level facade: the single place an
// embedder constructs a store.Store and an interp.Engine together, wired
// with whatever fuel policy and instruction hook the embedder wants.
//
// Grounded on original_source/src/execution/config.rs's Config trait and
// the teacher's vm.GasPolicy interface: a small, optional, zero-value-usable
// settings struct rather than a file- or env-parsed configuration layer —
// the engine is embedded into a host process, not run standalone.
package runtime

import (
	"github.com/vertexdlt/vertexvm-engine/interp"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
)

// DefaultFuel is the fuel grant a Config with FuelPolicy unset hands every
// top-level call — generous enough for typical host-function-bound guest
// code, not a correctness-relevant constant.
const DefaultFuel int64 = 10_000_000

// FuelPolicy decides how much fuel a call starting at funcName (empty for
// the module's own start function) should receive, the generalization of
// the teacher's GasPolicy interface from "free or one price" into an
// embedder-supplied decision.
type FuelPolicy interface {
	FuelFor(funcName string) int64
}

// FixedFuel is a FuelPolicy that grants the same budget to every call.
type FixedFuel int64

// FuelFor implements FuelPolicy.
func (f FixedFuel) FuelFor(string) int64 { return int64(f) }

// Config configures a Runtime. Every field is optional; the zero Config is
// usable and grants DefaultFuel per call with no instruction hook and no
// user data.
type Config struct {
	// FuelPolicy decides each call's fuel grant. Nil means DefaultFuel for
	// every call.
	FuelPolicy FuelPolicy
	// Hook, if set, is called once per dispatched instruction across every
	// Machine this Runtime drives.
	Hook interp.InstructionHook
	// UserData is opaque state the embedder can stash here and retrieve
	// from any host function closure that captures the Runtime.
	UserData interface{}
}

// Runtime pairs a store.Store with the interp.Engine that drives it,
// plus the Config it was built from.
type Runtime struct {
	Store  *store.Store
	Engine *interp.Engine
	Config Config
}

// New constructs a Runtime: an empty Store and an Engine configured with
// cfg's instruction hook, ready for the embedder to register host
// functions and instantiate modules into.
func New(cfg Config) *Runtime {
	return &Runtime{
		Store:  store.NewStore(),
		Engine: &interp.Engine{Hook: cfg.Hook},
		Config: cfg,
	}
}

// FuelFor resolves this Runtime's configured fuel grant for a named call.
func (rt *Runtime) FuelFor(funcName string) int64 {
	if rt.Config.FuelPolicy == nil {
		return DefaultFuel
	}
	return rt.Config.FuelPolicy.FuelFor(funcName)
}

// GlobalRead reads a global exported or addressed from an instantiated
// module, for an embedder that wants to peek at guest state between calls.
func (rt *Runtime) GlobalRead(addr store.GlobalAddr) value.Value {
	return rt.Store.GlobalRead(addr)
}

// GlobalWrite sets a global's value, rejecting the write if the global is
// immutable or v's type doesn't match the global's declared type.
func (rt *Runtime) GlobalWrite(addr store.GlobalAddr, v value.Value) error {
	return rt.Store.GlobalWrite(addr, v)
}

// MemReadUnchecked copies bytes out of a module's memory with no bounds
// check — the caller vouches for offset/len(dst) already fitting.
func (rt *Runtime) MemReadUnchecked(addr store.MemAddr, offset uint32, dst []byte) {
	rt.Store.MemReadUnchecked(addr, offset, dst)
}

// MemAccessMutSlice runs f with direct mutable access to a module's memory.
func (rt *Runtime) MemAccessMutSlice(addr store.MemAddr, f func([]byte)) {
	rt.Store.MemAccessMutSlice(addr, f)
}
