package wasmread

import "testing"

func TestReadVarU32(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"zero", []byte{0x00}, 0},
		{"one-byte", []byte{0x7f}, 127},
		{"three-byte", []byte{0xe5, 0x8e, 0x26}, 624485},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := New(c.in)
			got, err := r.ReadVarU32()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestReadVarI32Negative(t *testing.T) {
	r := New([]byte{0x7f}) // -1
	got, err := r.ReadVarI32()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -1 {
		t.Fatalf("got %d, want -1", got)
	}
}

func TestReadVarI64Negative(t *testing.T) {
	// -123456 encoded as signed LEB128
	r := New([]byte{0xc0, 0xbb, 0x78})
	got, err := r.ReadVarI64()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -123456 {
		t.Fatalf("got %d, want -123456", got)
	}
}

func TestReadByteEOF(t *testing.T) {
	r := New(nil)
	if _, err := r.ReadByte(); err != ErrUnexpectedEOF {
		t.Fatalf("got %v, want ErrUnexpectedEOF", err)
	}
}

func TestReadNameInvalidUTF8(t *testing.T) {
	r := New([]byte{0x01, 0xff})
	if _, err := r.ReadName(); err != ErrMalformedUTF8 {
		t.Fatalf("got %v, want ErrMalformedUTF8", err)
	}
}

func TestSpanReopen(t *testing.T) {
	buf := []byte{0, 1, 2, 3, 4, 5}
	sp := Span{From: 2, Len: 3}
	r := sp.Reopen(buf)
	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestReadVec(t *testing.T) {
	r := New([]byte{0x03, 0x01, 0x02, 0x03})
	got, err := ReadVec(r, func(r *Reader) (byte, error) { return r.ReadByte() })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("got %v", got)
	}
}
