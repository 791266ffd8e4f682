package interp

import (
	"math"
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/vertexdlt/vertexvm-engine/interp/number"
	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/store"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
)

func wasmF32Min(a, b float32) float32 {
	if math32.IsNaN(a) || math32.IsNaN(b) {
		return math32.NaN()
	}
	if a == 0 && b == 0 {
		if math32.Signbit(a) || math32.Signbit(b) {
			return math32.Copysign(0, -1)
		}
		return 0
	}
	return math32.Min(a, b)
}

func wasmF32Max(a, b float32) float32 {
	if math32.IsNaN(a) || math32.IsNaN(b) {
		return math32.NaN()
	}
	if a == 0 && b == 0 {
		if !math32.Signbit(a) || !math32.Signbit(b) {
			return 0
		}
		return math32.Copysign(0, -1)
	}
	return math32.Max(a, b)
}

// execNumeric handles every constant, comparison, arithmetic, conversion
// and sign-extension instruction — the pure value-stack transforms whose
// operand types validate.stepNumeric already checked statically.
func (m *Machine) execNumeric(op opcode.Opcode, r *wasmread.Reader) {
	switch op {
	case opcode.I32Const:
		m.push(value.I32(mustReadVarI32(r)))
	case opcode.I64Const:
		m.push(value.I64(mustReadVarI64(r)))
	case opcode.F32Const:
		m.pushF32(math.Float32frombits(mustReadU32LE(r)))
	case opcode.F64Const:
		m.pushF64(math.Float64frombits(mustReadU64LE(r)))

	case opcode.I32Eqz:
		m.push(boolI32(m.pop().I32() == 0))
	case opcode.I32Eq:
		b, a := m.pop().I32(), m.pop().I32()
		m.push(boolI32(a == b))
	case opcode.I32Ne:
		b, a := m.pop().I32(), m.pop().I32()
		m.push(boolI32(a != b))
	case opcode.I32LtS:
		b, a := m.pop().I32(), m.pop().I32()
		m.push(boolI32(a < b))
	case opcode.I32LtU:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(boolI32(a < b))
	case opcode.I32GtS:
		b, a := m.pop().I32(), m.pop().I32()
		m.push(boolI32(a > b))
	case opcode.I32GtU:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(boolI32(a > b))
	case opcode.I32LeS:
		b, a := m.pop().I32(), m.pop().I32()
		m.push(boolI32(a <= b))
	case opcode.I32LeU:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(boolI32(a <= b))
	case opcode.I32GeS:
		b, a := m.pop().I32(), m.pop().I32()
		m.push(boolI32(a >= b))
	case opcode.I32GeU:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(boolI32(a >= b))

	case opcode.I64Eqz:
		m.push(boolI32(m.pop().I64() == 0))
	case opcode.I64Eq:
		b, a := m.pop().I64(), m.pop().I64()
		m.push(boolI32(a == b))
	case opcode.I64Ne:
		b, a := m.pop().I64(), m.pop().I64()
		m.push(boolI32(a != b))
	case opcode.I64LtS:
		b, a := m.pop().I64(), m.pop().I64()
		m.push(boolI32(a < b))
	case opcode.I64LtU:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(boolI32(a < b))
	case opcode.I64GtS:
		b, a := m.pop().I64(), m.pop().I64()
		m.push(boolI32(a > b))
	case opcode.I64GtU:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(boolI32(a > b))
	case opcode.I64LeS:
		b, a := m.pop().I64(), m.pop().I64()
		m.push(boolI32(a <= b))
	case opcode.I64LeU:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(boolI32(a <= b))
	case opcode.I64GeS:
		b, a := m.pop().I64(), m.pop().I64()
		m.push(boolI32(a >= b))
	case opcode.I64GeU:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(boolI32(a >= b))

	case opcode.F32Eq:
		b, a := m.pop().F32(), m.pop().F32()
		m.push(boolI32(a == b))
	case opcode.F32Ne:
		b, a := m.pop().F32(), m.pop().F32()
		m.push(boolI32(a != b))
	case opcode.F32Lt:
		b, a := m.pop().F32(), m.pop().F32()
		m.push(boolI32(a < b))
	case opcode.F32Gt:
		b, a := m.pop().F32(), m.pop().F32()
		m.push(boolI32(a > b))
	case opcode.F32Le:
		b, a := m.pop().F32(), m.pop().F32()
		m.push(boolI32(a <= b))
	case opcode.F32Ge:
		b, a := m.pop().F32(), m.pop().F32()
		m.push(boolI32(a >= b))

	case opcode.F64Eq:
		b, a := m.pop().F64(), m.pop().F64()
		m.push(boolI32(a == b))
	case opcode.F64Ne:
		b, a := m.pop().F64(), m.pop().F64()
		m.push(boolI32(a != b))
	case opcode.F64Lt:
		b, a := m.pop().F64(), m.pop().F64()
		m.push(boolI32(a < b))
	case opcode.F64Gt:
		b, a := m.pop().F64(), m.pop().F64()
		m.push(boolI32(a > b))
	case opcode.F64Le:
		b, a := m.pop().F64(), m.pop().F64()
		m.push(boolI32(a <= b))
	case opcode.F64Ge:
		b, a := m.pop().F64(), m.pop().F64()
		m.push(boolI32(a >= b))

	case opcode.I32Clz:
		m.push(value.U32(uint32(bits.LeadingZeros32(m.pop().U32()))))
	case opcode.I32Ctz:
		m.push(value.U32(uint32(bits.TrailingZeros32(m.pop().U32()))))
	case opcode.I32Popcnt:
		m.push(value.U32(uint32(bits.OnesCount32(m.pop().U32()))))
	case opcode.I32Add:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a + b))
	case opcode.I32Sub:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a - b))
	case opcode.I32Mul:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a * b))
	case opcode.I32DivS:
		b, a := m.pop().I32(), m.pop().I32()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i32.div_s by zero")
		}
		if a == math.MinInt32 && b == -1 {
			raise(store.KindIntegerOverflow, "i32.div_s overflow")
		}
		m.push(value.I32(a / b))
	case opcode.I32DivU:
		b, a := m.pop().U32(), m.pop().U32()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i32.div_u by zero")
		}
		m.push(value.U32(a / b))
	case opcode.I32RemS:
		b, a := m.pop().I32(), m.pop().I32()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i32.rem_s by zero")
		}
		if a == math.MinInt32 && b == -1 {
			m.push(value.I32(0))
		} else {
			m.push(value.I32(a % b))
		}
	case opcode.I32RemU:
		b, a := m.pop().U32(), m.pop().U32()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i32.rem_u by zero")
		}
		m.push(value.U32(a % b))
	case opcode.I32And:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a & b))
	case opcode.I32Or:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a | b))
	case opcode.I32Xor:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a ^ b))
	case opcode.I32Shl:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a << (b & 31)))
	case opcode.I32ShrS:
		b, a := m.pop().U32(), m.pop().I32()
		m.push(value.I32(a >> (b & 31)))
	case opcode.I32ShrU:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(a >> (b & 31)))
	case opcode.I32Rotl:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(bits.RotateLeft32(a, int(b&31))))
	case opcode.I32Rotr:
		b, a := m.pop().U32(), m.pop().U32()
		m.push(value.U32(bits.RotateLeft32(a, -int(b&31))))

	case opcode.I64Clz:
		m.push(value.U64(uint64(bits.LeadingZeros64(m.pop().U64()))))
	case opcode.I64Ctz:
		m.push(value.U64(uint64(bits.TrailingZeros64(m.pop().U64()))))
	case opcode.I64Popcnt:
		m.push(value.U64(uint64(bits.OnesCount64(m.pop().U64()))))
	case opcode.I64Add:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a + b))
	case opcode.I64Sub:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a - b))
	case opcode.I64Mul:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a * b))
	case opcode.I64DivS:
		b, a := m.pop().I64(), m.pop().I64()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i64.div_s by zero")
		}
		if a == math.MinInt64 && b == -1 {
			raise(store.KindIntegerOverflow, "i64.div_s overflow")
		}
		m.push(value.I64(a / b))
	case opcode.I64DivU:
		b, a := m.pop().U64(), m.pop().U64()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i64.div_u by zero")
		}
		m.push(value.U64(a / b))
	case opcode.I64RemS:
		b, a := m.pop().I64(), m.pop().I64()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i64.rem_s by zero")
		}
		if a == math.MinInt64 && b == -1 {
			m.push(value.I64(0))
		} else {
			m.push(value.I64(a % b))
		}
	case opcode.I64RemU:
		b, a := m.pop().U64(), m.pop().U64()
		if b == 0 {
			raise(store.KindIntegerDivideByZero, "i64.rem_u by zero")
		}
		m.push(value.U64(a % b))
	case opcode.I64And:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a & b))
	case opcode.I64Or:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a | b))
	case opcode.I64Xor:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a ^ b))
	case opcode.I64Shl:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a << (b & 63)))
	case opcode.I64ShrS:
		b, a := m.pop().U64(), m.pop().I64()
		m.push(value.I64(a >> (b & 63)))
	case opcode.I64ShrU:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(a >> (b & 63)))
	case opcode.I64Rotl:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(bits.RotateLeft64(a, int(b&63))))
	case opcode.I64Rotr:
		b, a := m.pop().U64(), m.pop().U64()
		m.push(value.U64(bits.RotateLeft64(a, -int(b&63))))

	case opcode.F32Abs:
		m.pushF32(math32.Abs(m.pop().F32()))
	case opcode.F32Neg:
		m.pushF32(-m.pop().F32())
	case opcode.F32Ceil:
		m.pushF32(math32.Ceil(m.pop().F32()))
	case opcode.F32Floor:
		m.pushF32(math32.Floor(m.pop().F32()))
	case opcode.F32Trunc:
		m.pushF32(math32.Trunc(m.pop().F32()))
	case opcode.F32Nearest:
		m.pushF32(number.NearestF32(m.pop().F32()))
	case opcode.F32Sqrt:
		m.pushF32(math32.Sqrt(m.pop().F32()))
	case opcode.F32Add:
		b, a := m.pop().F32(), m.pop().F32()
		m.pushF32(a + b)
	case opcode.F32Sub:
		b, a := m.pop().F32(), m.pop().F32()
		m.pushF32(a - b)
	case opcode.F32Mul:
		b, a := m.pop().F32(), m.pop().F32()
		m.pushF32(a * b)
	case opcode.F32Div:
		b, a := m.pop().F32(), m.pop().F32()
		m.pushF32(a / b)
	case opcode.F32Min:
		b, a := m.pop().F32(), m.pop().F32()
		m.pushF32(wasmF32Min(a, b))
	case opcode.F32Max:
		b, a := m.pop().F32(), m.pop().F32()
		m.pushF32(wasmF32Max(a, b))
	case opcode.F32Copysign:
		b, a := m.pop().F32(), m.pop().F32()
		m.pushF32(math32.Copysign(a, b))

	case opcode.F64Abs:
		m.pushF64(math.Abs(m.pop().F64()))
	case opcode.F64Neg:
		m.pushF64(-m.pop().F64())
	case opcode.F64Ceil:
		m.pushF64(math.Ceil(m.pop().F64()))
	case opcode.F64Floor:
		m.pushF64(math.Floor(m.pop().F64()))
	case opcode.F64Trunc:
		m.pushF64(math.Trunc(m.pop().F64()))
	case opcode.F64Nearest:
		m.pushF64(number.NearestF64(m.pop().F64()))
	case opcode.F64Sqrt:
		m.pushF64(math.Sqrt(m.pop().F64()))
	case opcode.F64Add:
		b, a := m.pop().F64(), m.pop().F64()
		m.pushF64(a + b)
	case opcode.F64Sub:
		b, a := m.pop().F64(), m.pop().F64()
		m.pushF64(a - b)
	case opcode.F64Mul:
		b, a := m.pop().F64(), m.pop().F64()
		m.pushF64(a * b)
	case opcode.F64Div:
		b, a := m.pop().F64(), m.pop().F64()
		m.pushF64(a / b)
	case opcode.F64Min:
		b, a := m.pop().F64(), m.pop().F64()
		m.pushF64(wasmF64Min(a, b))
	case opcode.F64Max:
		b, a := m.pop().F64(), m.pop().F64()
		m.pushF64(wasmF64Max(a, b))
	case opcode.F64Copysign:
		b, a := m.pop().F64(), m.pop().F64()
		m.pushF64(math.Copysign(a, b))

	case opcode.I32WrapI64:
		m.push(value.U32(uint32(m.pop().U64())))
	case opcode.I32TruncF32S:
		m.pushTrunc(number.F32, number.I32)
	case opcode.I32TruncF32U:
		m.pushTrunc(number.F32, number.U32)
	case opcode.I32TruncF64S:
		m.pushTrunc(number.F64, number.I32)
	case opcode.I32TruncF64U:
		m.pushTrunc(number.F64, number.U32)
	case opcode.I64ExtendI32S:
		m.push(value.I64(int64(m.pop().I32())))
	case opcode.I64ExtendI32U:
		m.push(value.U64(uint64(m.pop().U32())))
	case opcode.I64TruncF32S:
		m.pushTrunc(number.F32, number.I64)
	case opcode.I64TruncF32U:
		m.pushTrunc(number.F32, number.U64)
	case opcode.I64TruncF64S:
		m.pushTrunc(number.F64, number.I64)
	case opcode.I64TruncF64U:
		m.pushTrunc(number.F64, number.U64)
	case opcode.F32ConvertI32S:
		m.pushF32(float32(m.pop().I32()))
	case opcode.F32ConvertI32U:
		m.pushF32(float32(m.pop().U32()))
	case opcode.F32ConvertI64S:
		m.pushF32(float32(m.pop().I64()))
	case opcode.F32ConvertI64U:
		m.pushF32(float32(m.pop().U64()))
	case opcode.F32DemoteF64:
		m.pushF32(float32(m.pop().F64()))
	case opcode.F64ConvertI32S:
		m.pushF64(float64(m.pop().I32()))
	case opcode.F64ConvertI32U:
		m.pushF64(float64(m.pop().U32()))
	case opcode.F64ConvertI64S:
		m.pushF64(float64(m.pop().I64()))
	case opcode.F64ConvertI64U:
		m.pushF64(float64(m.pop().U64()))
	case opcode.F64PromoteF32:
		m.pushF64(float64(m.pop().F32()))
	case opcode.I32ReinterpretF32:
		m.push(value.U32(uint32(m.pop().Bits)))
	case opcode.I64ReinterpretF64:
		m.push(value.U64(m.pop().Bits))
	case opcode.F32ReinterpretI32:
		m.pushF32(math.Float32frombits(m.pop().U32()))
	case opcode.F64ReinterpretI64:
		m.pushF64(math.Float64frombits(m.pop().U64()))

	case opcode.I32Extend8S:
		m.push(value.I32(int32(int8(m.pop().U32()))))
	case opcode.I32Extend16S:
		m.push(value.I32(int32(int16(m.pop().U32()))))
	case opcode.I64Extend8S:
		m.push(value.I64(int64(int8(m.pop().U64()))))
	case opcode.I64Extend16S:
		m.push(value.I64(int64(int16(m.pop().U64()))))
	case opcode.I64Extend32S:
		m.push(value.I64(int64(int32(m.pop().U64()))))

	default:
		raise(store.KindCallStackExhausted, "unknown opcode 0x%x", byte(op))
	}
}

func boolI32(b bool) value.Value {
	if b {
		return value.I32(1)
	}
	return value.I32(0)
}

func (m *Machine) pushF32(f float32) { m.push(value.F32(f)) }
func (m *Machine) pushF64(f float64) { m.push(value.F64(f)) }

// pushTrunc implements the trapping *.trunc_* conversions shared by
// execNumeric's i32/i64 trunc cases.
func (m *Machine) pushTrunc(from, to number.Type) {
	v := m.pop()
	bitsIn := v.Bits
	result, trapCode := number.TruncToInt(from, to, bitsIn)
	if trapCode == number.NanTrap {
		raise(store.KindInvalidConversion, "trunc of NaN to integer")
	}
	if trapCode == number.ConvertTrap {
		raise(store.KindIntegerOverflow, "trunc out of integer range")
	}
	switch to {
	case number.I32, number.U32:
		m.push(value.U32(uint32(result)))
	default:
		m.push(value.U64(result))
	}
}
