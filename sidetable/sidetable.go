// Package sidetable implements the validator-produced, read-only table of
// pre-resolved branch descriptors that lets the interpreter execute control
// flow in place, without rescanning the bytecode for labels at runtime.
//
// Ported from original_source/src/core/sidetable.rs. A sidetable entry
// translates a branch's implicit target ("jump to the next else") into an
// explicit adjustment of the instruction pointer and the sidetable index
// itself: pc += DeltaPC, stp += DeltaSTP.
package sidetable

// Entry is one resolved branch descriptor.
type Entry struct {
	// DeltaPC is the amount to adjust the instruction pointer by if the
	// branch is taken.
	DeltaPC int32
	// DeltaSTP is the amount to adjust the sidetable index by if the
	// branch is taken.
	DeltaSTP int32
	// ValCount is the number of values copied across the branch (the
	// target label's arity).
	ValCount uint32
	// PopCount is the number of values dropped between the preserved top
	// and the target operand-stack height.
	PopCount uint32
}

// Table is the finished, append-only sequence of Entry values emitted for
// one module, indexed by a function's stp plus the branches executed so
// far within that function, in lexical order of occurrence.
type Table []Entry

// incomplete is a sidetable entry whose target has not yet been reached by
// the validator. DeltaIP/DeltaSTP are patched in once the branch's target
// position (end-of-block, else, loop head) is walked.
type incomplete struct {
	ip       int
	deltaIP  *int32
	deltaSTP *int32
	valCount uint32
	popCount uint32
}

// Builder accumulates incomplete entries as the validator walks a module
// and resolves them as control frames close.
type Builder struct {
	entries []incomplete
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Ref identifies one pending entry so its target can be patched later.
type Ref int

// Append records a new sidetable entry whose target is not yet known and
// returns a Ref the caller uses to patch it once the target position is
// reached.
func (b *Builder) Append(ip int, valCount, popCount uint32) Ref {
	b.entries = append(b.entries, incomplete{ip: ip, valCount: valCount, popCount: popCount})
	return Ref(len(b.entries) - 1)
}

// Len reports how many entries (complete or not) have been appended so
// far; it is also the stp a function body should record as its starting
// index once entries up to this point belong to prior functions.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Patch resolves a pending entry's Δpc/Δstp once its target position
// (current ip / current stp) is known.
func (b *Builder) Patch(ref Ref, targetIP, targetSTP int) {
	e := &b.entries[ref]
	deltaIP := int32(targetIP - e.ip)
	deltaSTP := int32(targetSTP - int(ref))
	e.deltaIP = &deltaIP
	e.deltaSTP = &deltaSTP
}

// Finish converts every accumulated entry into a finished sidetable.Table.
// It panics if any entry was never patched — that indicates a validator
// bug (an unresolved branch target), never something untrusted input can
// trigger, since every branch-emitting opcode is paired with a resolvable
// control frame by construction.
func (b *Builder) Finish() Table {
	out := make(Table, len(b.entries))
	for i, e := range b.entries {
		if e.deltaIP == nil || e.deltaSTP == nil {
			panic("sidetable: entry was never resolved during validation")
		}
		out[i] = Entry{
			DeltaPC:  *e.deltaIP,
			DeltaSTP: *e.deltaSTP,
			ValCount: e.valCount,
			PopCount: e.popCount,
		}
	}
	return out
}
