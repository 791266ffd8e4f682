// Package number generalizes the truncation and rounding helpers a Wasm
// interpreter needs across the full i32/i64/u32/u64 × f32/f64 matrix.
//
// Ported and expanded from the vertexvm interpreter's number package
// (limit.go's Min/Max, conversion.go's CanTruncate/FloatTruncate), which
// only carried the I32/F32 half of this matrix; Type and TrapCode
// themselves were never defined there, so they're introduced fresh here
// alongside the missing I64/U64 paths. F32 transcendental math (sqrt,
// ceil, floor, round-to-even) uses chewxy/math32 instead of casting
// through float64, so results match the single-precision instructions'
// bit-exact semantics.
package number

import (
	"math"

	"github.com/chewxy/math32"
)

// Type tags one side of a truncating conversion.
type Type int

const (
	I32 Type = iota
	I64
	U32
	U64
	F32
	F64
)

// TrapCode distinguishes why a truncating conversion failed, if it did.
type TrapCode int

const (
	NoTrap TrapCode = iota
	NanTrap
	ConvertTrap
)

// Min returns the minimum representable value of an integer Type, as a raw
// bit pattern.
func Min(t Type) uint64 {
	switch t {
	case I32:
		return uint64(uint32(math.MinInt32))
	case I64:
		return uint64(math.MinInt64)
	case U32, U64:
		return 0
	}
	panic("number: Min of non-integer type")
}

// Max returns the maximum representable value of an integer Type, as a raw
// bit pattern.
func Max(t Type) uint64 {
	switch t {
	case I32:
		return uint64(math.MaxInt32)
	case I64:
		return uint64(math.MaxInt64)
	case U32:
		return uint64(math.MaxUint32)
	case U64:
		return math.MaxUint64
	}
	panic("number: Max of non-integer type")
}

// canTruncate32 reports whether f32 value v falls within to's representable
// range (the open/half-open bounds the Wasm spec's trunc_sat rules use for
// the non-saturating variants).
func canTruncate32(v float32, to Type) bool {
	switch to {
	case I32:
		return float32(math.MinInt32) <= v && v < float32(math.MaxInt32+1)
	case U32:
		return -1 < v && v < float32(math.MaxUint32)+1
	case I64:
		return float32(math.MinInt64) <= v && v < float32(math.MaxInt64+1)
	case U64:
		return -1 < v && v < float32(math.MaxUint64)+1
	}
	panic("number: canTruncate32 to non-integer type")
}

func canTruncate64(v float64, to Type) bool {
	switch to {
	case I32:
		return math.MinInt32-1 < v && v < math.MaxInt32+1
	case U32:
		return -1 < v && v < math.MaxUint32+1
	case I64:
		return math.MinInt64 <= v && v < math.MaxInt64+1
	case U64:
		return -1 < v && v < math.MaxUint64+1
	}
	panic("number: canTruncate64 to non-integer type")
}

// TruncToInt implements *.trunc_* : it truncates the float held in
// floatBits (interpreted as an f32 if from == F32, else f64) to the
// integer Type to, trapping on NaN or out-of-range input rather than
// saturating — use TruncSatToInt for the non-trapping 0xFC variants.
func TruncToInt(from Type, to Type, floatBits uint64) (uint64, TrapCode) {
	switch from {
	case F32:
		f := math.Float32frombits(uint32(floatBits))
		if math32.IsNaN(f) {
			return 0, NanTrap
		}
		if !canTruncate32(f, to) {
			return 0, ConvertTrap
		}
		return truncateFinite64(float64(f), to), NoTrap
	case F64:
		f := math.Float64frombits(floatBits)
		if math.IsNaN(f) {
			return 0, NanTrap
		}
		if !canTruncate64(f, to) {
			return 0, ConvertTrap
		}
		return truncateFinite64(f, to), NoTrap
	}
	panic("number: TruncToInt from non-float type")
}

// TruncSatToInt implements the 0xFC non-trapping saturating truncation
// instructions: NaN becomes 0, and out-of-range values saturate to to's
// min/max instead of trapping.
func TruncSatToInt(from Type, to Type, floatBits uint64) uint64 {
	switch from {
	case F32:
		f := math.Float32frombits(uint32(floatBits))
		if math32.IsNaN(f) {
			return 0
		}
		if !canTruncate32(f, to) {
			if f < 0 {
				return Min(to)
			}
			return Max(to)
		}
		return truncateFinite64(float64(f), to)
	case F64:
		f := math.Float64frombits(floatBits)
		if math.IsNaN(f) {
			return 0
		}
		if !canTruncate64(f, to) {
			if f < 0 {
				return Min(to)
			}
			return Max(to)
		}
		return truncateFinite64(f, to)
	}
	panic("number: TruncSatToInt from non-float type")
}

func truncateFinite64(f float64, to Type) uint64 {
	switch to {
	case I32:
		return uint64(uint32(int32(f)))
	case U32:
		return uint64(uint32(f))
	case I64:
		return uint64(int64(f))
	case U64:
		return uint64(f)
	}
	panic("number: truncateFinite64 to non-integer type")
}

// NearestF32 rounds to the nearest integer, ties to even, matching
// f32.nearest's semantics exactly (math32.Round rounds ties away from zero).
func NearestF32(f float32) float32 {
	if math32.IsNaN(f) || math32.IsInf(f, 0) || f == 0 {
		return f
	}
	r := math32.Round(f)
	if math32.Abs(f-math32.Trunc(f)) == 0.5 && math32.Mod(r, 2) != 0 {
		if r > f {
			r--
		} else {
			r++
		}
	}
	return r
}

// NearestF64 is NearestF32's double-precision counterpart.
func NearestF64(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return f
	}
	r := math.Round(f)
	if math.Abs(f-math.Trunc(f)) == 0.5 && math.Mod(r, 2) != 0 {
		if r > f {
			r--
		} else {
			r++
		}
	}
	return r
}
