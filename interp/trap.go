package interp

import (
	"fmt"

	"github.com/vertexdlt/vertexvm-engine/store"
)

// trap is panicked from deep inside step() to unwind straight out of the
// dispatch loop without threading an error return through every opcode
// case — the same shape as the teacher's vm.ExecError, which was also
// always raised by panic and caught at the call boundary. Run recovers
// exactly this type; anything else propagates as a genuine bug.
type trap struct {
	err *store.Error
}

func raise(kind store.Kind, format string, args ...interface{}) {
	panic(trap{err: &store.Error{Phase: store.PhaseExecute, Kind: kind, Message: fmt.Sprintf(format, args...)}})
}
