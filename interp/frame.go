package interp

import (
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
)

// frame is one call-stack activation: a guest function's locals, its
// bytecode cursor, the sidetable index it's currently reading from, and
// the value-stack/sidetable watermarks needed to unwind back to the
// caller on return.
//
// Grounded on the teacher's vm.Frame (fn, ip, basePointer), generalized to
// also carry stp (the sidetable cursor, which the teacher's label-stack
// design never needed) and the owning module address (for locals'
// global/memory/table index-space resolution).
type frame struct {
	funcAddr    store.FuncAddr
	module      store.ModuleAddr
	locals      []value.Value
	r           *wasmread.Reader
	stp         int
	stackBase   int // value stack height when this frame was entered
	resultCount int
}
