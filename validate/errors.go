package validate

import "fmt"

// Kind classifies why validation failed.
type Kind string

const (
	KindInvalidMagic          Kind = "invalid_magic"
	KindInvalidVersion        Kind = "invalid_version"
	KindSectionOutOfOrder     Kind = "section_out_of_order"
	KindMalformedUTF8         Kind = "malformed_utf8_string"
	KindMalformedLEB128       Kind = "malformed_leb128"
	KindInvalidValType        Kind = "invalid_value_type"
	KindInvalidRefType        Kind = "invalid_reference_type"
	KindInvalidFuncType       Kind = "invalid_function_type"
	KindInvalidImportExport   Kind = "invalid_import_or_export_descriptor"
	KindMutableGlobalInConst  Kind = "mutable_global_in_const_expr"
	KindOperandStackMismatch  Kind = "operand_stack_type_mismatch"
	KindBlockArityMismatch    Kind = "mismatched_block_arity"
	KindUndefinedFuncIdx      Kind = "undefined_function_index"
	KindUndefinedTableIdx     Kind = "undefined_table_index"
	KindUndefinedMemIdx       Kind = "undefined_memory_index"
	KindUndefinedGlobalIdx    Kind = "undefined_global_index"
	KindUndefinedTypeIdx      Kind = "undefined_type_index"
	KindUndefinedLocalIdx     Kind = "undefined_local_index"
	KindInvalidConstExpr      Kind = "invalid_constant_expression"
	KindMultipleMemories      Kind = "more_than_one_memory"
	KindTruncatedInput        Kind = "truncated_input"
	KindUnknownOpcode         Kind = "unknown_opcode"
	KindDataCountMismatch     Kind = "data_count_mismatch"
)

// Error is the structured error type validate.Validate returns, carrying
// the byte offset of the failing position as queryable structured data
// instead of only a formatted message.
type Error struct {
	Kind    Kind
	Offset  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validate: %s at offset %d: %s: %v", e.Kind, e.Offset, e.Message, e.Cause)
	}
	return fmt.Sprintf("validate: %s at offset %d: %s", e.Kind, e.Offset, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, offset int, msg string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, Message: fmt.Sprintf(msg, args...)}
}

func wrapErr(kind Kind, offset int, cause error, msg string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, Message: fmt.Sprintf(msg, args...), Cause: cause}
}
