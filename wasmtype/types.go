// Package wasmtype holds the compile-time type companions of the Wasm data
// model: value types, reference types, limits, and the composite types for
// tables, memories, globals and functions.
//
// Ported and generalized from wasm/module.go's type declarations
// (ValueType, FuncType, Limits, Table, Mem, GlobalType), using Go-idiomatic
// names (ValType, TableType, MemType).
package wasmtype

import "fmt"

// ValType is a Wasm value type.
type ValType byte

const (
	I32       ValType = 0x7F
	I64       ValType = 0x7E
	F32       ValType = 0x7D
	F64       ValType = 0x7C
	V128      ValType = 0x7B
	FuncRef   ValType = 0x70
	ExternRef ValType = 0x6F
)

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	default:
		return fmt.Sprintf("valtype(0x%x)", byte(t))
	}
}

// IsRef reports whether t is one of the reference types.
func (t ValType) IsRef() bool {
	return t == FuncRef || t == ExternRef
}

// IsNumOrVec reports whether t is a number or vector type.
func (t ValType) IsNumOrVec() bool {
	switch t {
	case I32, I64, F32, F64, V128:
		return true
	}
	return false
}

// RefType is the subset of ValType legal as a table element type.
type RefType = ValType

// Mut is a global's mutability flag.
type Mut uint8

const (
	Const Mut = 0
	Var   Mut = 1
)

// Limits bounds a table's or memory's size, in elements or 64 KiB pages
// respectively.
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded
}

// MaxMemPages is the hard cap on linear memory size: 2^32 bytes / 64KiB.
const MaxMemPages uint32 = 65536

// MemPageSize is 64 KiB.
const MemPageSize uint32 = 65536

// HasMax reports whether an explicit maximum was declared.
func (l Limits) HasMax() bool { return l.Max != nil }

// FitsWithin reports whether l is a valid sub-range of other — used when
// checking an externally supplied table/memory against a declared import:
// the provided limits must be a subset of the declared limits.
func (l Limits) FitsWithin(other Limits) bool {
	if l.Min < other.Min {
		return false
	}
	if other.Max == nil {
		return true
	}
	if l.Max == nil {
		return false
	}
	return *l.Max <= *other.Max
}

// TableType describes a table import/export/definition.
type TableType struct {
	ElemType RefType
	Limits   Limits
}

// MemType describes a memory import/export/definition, in 64 KiB pages.
type MemType struct {
	Limits Limits
}

// GlobalType describes a global import/export/definition.
type GlobalType struct {
	Val ValType
	Mut Mut
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether two function types have identical signatures —
// used for call_indirect's type-annotation check and import compatibility.
func (f FuncType) Equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

func (f FuncType) String() string {
	return fmt.Sprintf("%v -> %v", f.Params, f.Results)
}
