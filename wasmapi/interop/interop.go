// Package interop maps Go tuples to and from the engine's []value.Value
// calling convention, the boundary wasmapi.InvokeTyped uses so an embedder
// can call a guest function with ordinary Go arguments instead of building
// a []value.Value by hand.
//
// Grounded on the teacher's variadic Invoke(fidx int64, args ...int64)
// convenience call, generalized from int64-only into the full numeric
// value-type matrix, and from a variadic slice into a fixed-arity Go
// struct/scalar via reflection so a function's parameter and result types
// are checked once, by the compiler, at each call site.
package interop

import (
	"fmt"
	"reflect"

	"github.com/vertexdlt/vertexvm-engine/value"
)

// MaxArity is the largest parameter/result count this package will marshal
// — chosen to match the teacher's own practical call signatures rather than
// any protocol limit.
const MaxArity = 8

// ToValues flattens params (a struct of up to MaxArity exported numeric
// fields, a single numeric scalar, or struct{} for zero arguments) into the
// []value.Value a guest call expects, in field order.
func ToValues(params interface{}) ([]value.Value, error) {
	rv := reflect.ValueOf(params)
	if !rv.IsValid() {
		return nil, nil
	}
	if rv.Kind() != reflect.Struct {
		v, err := scalarToValue(rv)
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	}
	n := rv.NumField()
	if n > MaxArity {
		return nil, fmt.Errorf("interop: at most %d parameters supported, got %d", MaxArity, n)
	}
	out := make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := scalarToValue(rv.Field(i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FromValues unflattens a call's results into out, a pointer to a struct of
// up to MaxArity exported numeric fields or a single numeric scalar — the
// mirror of ToValues.
func FromValues(results []value.Value, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("interop: FromValues destination must be a non-nil pointer")
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		if len(results) == 0 {
			return nil
		}
		if len(results) != 1 {
			return fmt.Errorf("interop: expected 1 result, got %d", len(results))
		}
		return scalarFromValue(results[0], elem)
	}
	n := elem.NumField()
	if n != len(results) {
		return fmt.Errorf("interop: expected %d results, got %d", n, len(results))
	}
	for i := 0; i < n; i++ {
		if err := scalarFromValue(results[i], elem.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func scalarToValue(rv reflect.Value) (value.Value, error) {
	switch rv.Kind() {
	case reflect.Int32:
		return value.I32(int32(rv.Int())), nil
	case reflect.Int64:
		return value.I64(rv.Int()), nil
	case reflect.Uint32:
		return value.U32(uint32(rv.Uint())), nil
	case reflect.Uint64:
		return value.U64(rv.Uint()), nil
	case reflect.Float32:
		return value.F32(float32(rv.Float())), nil
	case reflect.Float64:
		return value.F64(rv.Float()), nil
	default:
		return value.Value{}, fmt.Errorf("interop: unsupported parameter kind %s", rv.Kind())
	}
}

func scalarFromValue(v value.Value, rv reflect.Value) error {
	if !rv.CanSet() {
		return fmt.Errorf("interop: result field %s is not settable (must be exported)", rv.Type())
	}
	switch rv.Kind() {
	case reflect.Int32:
		rv.SetInt(int64(v.I32()))
	case reflect.Int64:
		rv.SetInt(v.I64())
	case reflect.Uint32:
		rv.SetUint(uint64(v.U32()))
	case reflect.Uint64:
		rv.SetUint(v.U64())
	case reflect.Float32:
		rv.SetFloat(float64(v.F32()))
	case reflect.Float64:
		rv.SetFloat(v.F64())
	default:
		return fmt.Errorf("interop: unsupported result kind %s", rv.Kind())
	}
	return nil
}
