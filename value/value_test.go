package value

import (
	"math"
	"testing"

	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

func TestI32RoundTrip(t *testing.T) {
	v := I32(-6)
	if v.I32() != -6 {
		t.Fatalf("got %d, want -6", v.I32())
	}
	if v.Type != wasmtype.I32 {
		t.Fatalf("wrong type tag: %v", v.Type)
	}
}

func TestF64NaNPayloadRoundTrips(t *testing.T) {
	nan := math.Float64frombits(0x7ff8000000000001)
	v := F64(nan)
	if math.Float64bits(v.F64()) != math.Float64bits(nan) {
		t.Fatalf("NaN payload was not preserved: got %x want %x", math.Float64bits(v.F64()), math.Float64bits(nan))
	}
}

func TestNullRef(t *testing.T) {
	r := NullRef(wasmtype.FuncRef)
	if !r.IsNull() {
		t.Fatal("expected null ref")
	}
	fr := FuncRef(7)
	if fr.IsNull() || fr.Addr != 7 {
		t.Fatalf("unexpected funcref: %+v", fr)
	}
}

func TestZeroOf(t *testing.T) {
	if got := ZeroOf(wasmtype.I32); got.I32() != 0 {
		t.Fatalf("got %d, want 0", got.I32())
	}
	if got := ZeroOf(wasmtype.FuncRef); !got.Ref().IsNull() {
		t.Fatal("expected null funcref zero value")
	}
}
