package store

import (
	"fmt"

	"github.com/vertexdlt/vertexvm-engine/internal/zlog"
	"go.uber.org/zap"
)

// Phase distinguishes where in a module's lifecycle an Error occurred,
// grounded on the phase/kind split used to separate link-time failures from
// later execution traps.
type Phase string

const (
	PhaseLink        Phase = "link"
	PhaseInstantiate Phase = "instantiate"
	PhaseExecute     Phase = "execute"
)

// Kind classifies the specific failure within a Phase.
type Kind string

const (
	KindImportCountMismatch  Kind = "import_count_mismatch"
	KindImportKindMismatch   Kind = "import_kind_mismatch"
	KindImportTypeMismatch   Kind = "import_signature_mismatch"
	KindImportLimitsMismatch Kind = "import_limits_incompatible"
	KindUnresolvedImport     Kind = "unresolved_import"
	KindElementOutOfBounds   Kind = "element_segment_out_of_bounds"
	KindDataOutOfBounds      Kind = "data_segment_out_of_bounds"
	KindInitExprFailed       Kind = "initializer_expression_failed"
	KindStartTrapped         Kind = "start_function_trapped"

	KindUnreachable            Kind = "unreachable"
	KindIntegerOverflow        Kind = "integer_overflow"
	KindIntegerDivideByZero    Kind = "integer_divide_by_zero"
	KindInvalidConversion      Kind = "invalid_conversion_to_integer"
	KindOutOfBoundsMemory      Kind = "out_of_bounds_memory_access"
	KindOutOfBoundsTable       Kind = "out_of_bounds_table_access"
	KindIndirectTypeMismatch   Kind = "indirect_call_type_mismatch"
	KindUninitializedElement   Kind = "uninitialized_element"
	KindCallStackExhausted     Kind = "call_stack_exhausted"
	KindFuelExhausted          Kind = "fuel_exhausted"
	KindDroppedSegmentAccessed Kind = "dropped_segment_accessed"

	KindWriteOnImmutableGlobal Kind = "write_on_immutable_global"
	KindGlobalTypeMismatch     Kind = "global_type_mismatch"
)

// Error is the structured error/trap type the store and interpreter raise.
type Error struct {
	Phase   Phase
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Phase, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Phase, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(phase Phase, kind Kind, msg string, args ...interface{}) *Error {
	e := &Error{Phase: phase, Kind: kind, Message: fmt.Sprintf(msg, args...)}
	zlog.L().Debug("store error", zap.String("phase", string(phase)), zap.String("kind", string(kind)), zap.String("message", e.Message))
	return e
}

func wrapErr(phase Phase, kind Kind, cause error, msg string, args ...interface{}) *Error {
	e := &Error{Phase: phase, Kind: kind, Message: fmt.Sprintf(msg, args...), Cause: cause}
	zlog.L().Debug("store error", zap.String("phase", string(phase)), zap.String("kind", string(kind)), zap.String("message", e.Message), zap.Error(cause))
	return e
}

// IsTrap reports whether this Error represents an execution-time trap
// (Phase == PhaseExecute) as opposed to a link/instantiate-time failure.
func (e *Error) IsTrap() bool { return e.Phase == PhaseExecute }
