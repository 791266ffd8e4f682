package store

import (
	"context"

	"github.com/vertexdlt/vertexvm-engine/sidetable"
	"github.com/vertexdlt/vertexvm-engine/validate"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// HostFunc is a host-provided function bound into the store as an import.
// It receives the fuel remaining at the call and returns fuel remaining
// after it runs, so metered host calls (e.g. a storage read charging per
// byte) compose with guest fuel accounting.
type HostFunc func(ctx context.Context, args []value.Value, fuel int64) (results []value.Value, fuelLeft int64, err error)

// GuestFunc is a module-defined function: its declared locals (params
// excluded; the call's arguments fill those slots) and its validated code
// span.
type GuestFunc struct {
	Locals []wasmtype.ValType
	Code   validate.FuncCode
	Module ModuleAddr
}

// FuncInst is a function-index-space entry: either a guest function backed
// by validated bytecode, or a host function supplied at link time.
type FuncInst struct {
	Type  wasmtype.FuncType
	Host  HostFunc
	Guest *GuestFunc
}

// IsHost reports whether this entry calls out to the embedder instead of
// interpreting bytecode.
func (f *FuncInst) IsHost() bool { return f.Host != nil }

// TableInst is a table-index-space entry: a resizable vector of references.
type TableInst struct {
	Type  wasmtype.TableType
	Elems []value.Ref
}

// Grow appends delta null (or fill-valued) entries if doing so keeps the
// table within its declared maximum, returning the previous size, or -1 if
// the growth is rejected.
func (t *TableInst) Grow(delta uint32, fill value.Ref) int32 {
	old := uint32(len(t.Elems))
	newSize := old + delta
	if newSize < old { // overflow
		return -1
	}
	if t.Type.Limits.HasMax() && newSize > *t.Type.Limits.Max {
		return -1
	}
	grown := make([]value.Ref, newSize)
	copy(grown, t.Elems)
	for i := old; i < newSize; i++ {
		grown[i] = fill
	}
	t.Elems = grown
	return int32(old)
}

// MemInst is a memory-index-space entry: linear memory, grown a page
// (64 KiB) at a time.
type MemInst struct {
	Type wasmtype.MemType
	Data []byte
}

// PageCount reports the memory's current size in 64 KiB pages.
func (m *MemInst) PageCount() uint32 {
	return uint32(len(m.Data)) / wasmtype.MemPageSize
}

// Grow appends delta pages of zeroed memory if doing so keeps the memory
// within its declared maximum and the engine-wide hard cap, returning the
// previous page count, or -1 if the growth is rejected.
func (m *MemInst) Grow(delta uint32) int32 {
	old := m.PageCount()
	newPages := old + delta
	if newPages < old || newPages > wasmtype.MaxMemPages {
		return -1
	}
	if m.Type.Limits.HasMax() && newPages > *m.Type.Limits.Max {
		return -1
	}
	grown := make([]byte, newPages*wasmtype.MemPageSize)
	copy(grown, m.Data)
	m.Data = grown
	return int32(old)
}

// GlobalInst is a global-index-space entry: its declared type and current
// value.
type GlobalInst struct {
	Type wasmtype.GlobalType
	Val  value.Value
}

// ElemInst is an element-segment instance. Refs is set to nil once the
// segment is dropped (either implicitly, for an active segment right after
// instantiation copies it into its table, or explicitly via elem.drop),
// after which table.init against it traps.
type ElemInst struct {
	Type wasmtype.RefType
	Refs []value.Ref
}

// Dropped reports whether this segment's contents have already been
// consumed.
func (e *ElemInst) Dropped() bool { return e.Refs == nil }

// DataInst is a data-segment instance, analogous to ElemInst for passive
// byte data: Bytes is nil once dropped.
type DataInst struct {
	Bytes []byte
}

// Dropped reports whether this segment's contents have already been
// consumed.
func (d *DataInst) Dropped() bool { return d.Bytes == nil }

// ExternVal is a single resolved import or export value: a tagged address
// into exactly one of the store's object kinds.
type ExternVal struct {
	Kind   validate.ExternKind
	Func   FuncAddr
	Table  TableAddr
	Mem    MemAddr
	Global GlobalAddr
}

// ModuleInstance is the runtime record of one instantiated module: its
// resolved type table, the index spaces of addresses (imports followed by
// locally-defined, exactly as the binary format orders them), its export
// map, and the sidetable its functions' bytecode was validated against.
type ModuleInstance struct {
	Types       []wasmtype.FuncType
	FuncAddrs   []FuncAddr
	TableAddrs  []TableAddr
	MemAddrs    []MemAddr
	GlobalAddrs []GlobalAddr
	ElemAddrs   []ElemAddr
	DataAddrs   []DataAddr
	Exports     map[string]ExternVal
	Sidetable   sidetable.Table
	// Bytecode is the module's original binary, kept so a GuestFunc's Body
	// span can be reopened as a fresh reader at call time.
	Bytecode []byte
}

// Export looks up one of the module's exports by name.
func (mi *ModuleInstance) Export(name string) (ExternVal, bool) {
	ev, ok := mi.Exports[name]
	return ev, ok
}
