// Package value implements the engine's tagged Value union: i32, i64, f32,
// f64, v128 and Ref, each stored by bit pattern so float NaN payloads
// round-trip exactly.
package value

import (
	"fmt"
	"math"

	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// RefKind distinguishes the three Ref variants: a typed null, a function
// address, or an extern (host) address.
type RefKind uint8

const (
	RefNull RefKind = iota
	RefFunc
	RefExtern
)

// Ref is one of {null-of-type, function-address, extern-address}.
type Ref struct {
	Kind    RefKind
	Type    wasmtype.RefType // meaningful when Kind == RefNull
	Addr    uint32           // meaningful when Kind != RefNull
}

// IsNull reports whether the ref is the null reference.
func (r Ref) IsNull() bool { return r.Kind == RefNull }

// NullRef constructs the null reference of the given reference type.
func NullRef(t wasmtype.RefType) Ref { return Ref{Kind: RefNull, Type: t} }

// FuncRef constructs a reference to the guest/host function at addr.
func FuncRef(addr uint32) Ref { return Ref{Kind: RefFunc, Addr: addr} }

// ExternRef constructs a reference to an opaque host object at addr.
func ExternRef(addr uint32) Ref { return Ref{Kind: RefExtern, Addr: addr} }

// Value is a tagged union over the Wasm value types. Numeric values are
// held as raw bit patterns in Bits; Ref values are held in RefVal. Keeping
// floats as bit patterns end-to-end, interpreting them as IEEE values only
// at arithmetic instructions, is what makes NaN payloads round-trip.
type Value struct {
	Type   wasmtype.ValType
	Bits   uint64 // i32/i64/f32/f64 bit pattern
	RefVal Ref    // valid when Type is FuncRef or ExternRef
}

func I32(v int32) Value  { return Value{Type: wasmtype.I32, Bits: uint64(uint32(v))} }
func U32(v uint32) Value { return Value{Type: wasmtype.I32, Bits: uint64(v)} }
func I64(v int64) Value  { return Value{Type: wasmtype.I64, Bits: uint64(v)} }
func U64(v uint64) Value { return Value{Type: wasmtype.I64, Bits: v} }
func F32(v float32) Value {
	return Value{Type: wasmtype.F32, Bits: uint64(math.Float32bits(v))}
}
func F64(v float64) Value {
	return Value{Type: wasmtype.F64, Bits: math.Float64bits(v)}
}
func FromRef(t wasmtype.RefType, r Ref) Value { return Value{Type: t, RefVal: r} }

func (v Value) I32() int32     { return int32(uint32(v.Bits)) }
func (v Value) U32() uint32    { return uint32(v.Bits) }
func (v Value) I64() int64     { return int64(v.Bits) }
func (v Value) U64() uint64    { return v.Bits }
func (v Value) F32() float32   { return math.Float32frombits(uint32(v.Bits)) }
func (v Value) F64() float64   { return math.Float64frombits(v.Bits) }
func (v Value) Ref() Ref       { return v.RefVal }

func (v Value) String() string {
	switch v.Type {
	case wasmtype.I32:
		return fmt.Sprintf("i32:%d", v.I32())
	case wasmtype.I64:
		return fmt.Sprintf("i64:%d", v.I64())
	case wasmtype.F32:
		return fmt.Sprintf("f32:%v", v.F32())
	case wasmtype.F64:
		return fmt.Sprintf("f64:%v", v.F64())
	case wasmtype.FuncRef, wasmtype.ExternRef:
		return fmt.Sprintf("%v:%+v", v.Type, v.RefVal)
	default:
		return fmt.Sprintf("%v:%x", v.Type, v.Bits)
	}
}

// ZeroOf returns the zero value for a given value type — used to
// zero-initialize guest local variables.
func ZeroOf(t wasmtype.ValType) Value {
	switch t {
	case wasmtype.FuncRef, wasmtype.ExternRef:
		return FromRef(t, NullRef(t))
	default:
		return Value{Type: t}
	}
}
