// Package wasmread provides the random-access / streaming byte cursor the
// validator and interpreter use to read a Wasm module: LEB128 integers,
// UTF-8 names, little-endian floats, and length-prefixed vectors.
//
// It is the generalization of util.ByteReader + leb128.Read + wasm/read.go
// into a single cursor type.
package wasmread

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"

	"github.com/vertexdlt/vertexvm-engine/internal/zlog"
	"go.uber.org/zap"
)

// ErrUnexpectedEOF is returned when a read runs past the end of the buffer.
var ErrUnexpectedEOF = errors.New("wasmread: unexpected end of input")

// ErrLEBOverflow is returned when a LEB128 integer does not fit in the
// requested bit width once the legal padding bits are accounted for.
var ErrLEBOverflow = errors.New("wasmread: leb128 integer overflows bit width")

// ErrMalformedUTF8 is returned by ReadName when the name bytes are not
// valid UTF-8.
var ErrMalformedUTF8 = errors.New("wasmread: malformed utf-8 name")

// Span denotes a byte range within the original module buffer without
// borrowing it; the interpreter reopens a Span as a fresh Reader per
// function activation.
type Span struct {
	From int
	Len  int
}

// Reopen returns a new Reader scoped to the Span's bytes within buf.
func (s Span) Reopen(buf []byte) *Reader {
	return &Reader{buf: buf[s.From : s.From+s.Len]}
}

// Reader is a cursor over module bytes. It never panics on malformed
// input; every read that would run past the buffer or decode an illegal
// value returns an error and the caller abandons validation.
type Reader struct {
	buf []byte
	pos int
}

// New returns a Reader positioned at the start of buf.
func New(buf []byte) *Reader {
	zlog.L().Debug("wasmread: opening module buffer", zap.Int("bytes", len(buf)))
	return &Reader{buf: buf}
}

// Pos returns the current absolute offset into the underlying buffer.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns the unread tail of the buffer without advancing.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

// SpanHere returns a Span starting at the current position with the given
// length, without advancing the cursor.
func (r *Reader) SpanHere(length int) Span {
	return Span{From: r.pos, Len: length}
}

// SeekTo moves the cursor to an absolute position within the buffer — used
// by the interpreter to apply a sidetable entry's DeltaPC directly rather
// than walking there instruction by instruction.
func (r *Reader) SeekTo(pos int) error {
	if pos < 0 || pos > len(r.buf) {
		return ErrUnexpectedEOF
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes without examining them.
func (r *Reader) Skip(n int) error {
	if r.Len() < n {
		return ErrUnexpectedEOF
	}
	r.pos += n
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.Len() < 1 {
		return 0, ErrUnexpectedEOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, ErrUnexpectedEOF
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU32LE reads a fixed 4-byte little-endian value, bit pattern preserved
// (used for f32 immediates; no NaN canonicalization happens here).
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64LE reads a fixed 8-byte little-endian value (f64 immediates).
func (r *Reader) ReadU64LE() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadVarU32 reads an unsigned LEB128 integer into at most 32 bits.
func (r *Reader) ReadVarU32() (uint32, error) {
	v, err := r.readVarUint(32)
	return uint32(v), err
}

// ReadVarU64 reads an unsigned LEB128 integer into at most 64 bits.
func (r *Reader) ReadVarU64() (uint64, error) {
	return r.readVarUint(64)
}

// ReadVarI32 reads a signed LEB128 integer into at most 32 bits.
func (r *Reader) ReadVarI32() (int32, error) {
	v, err := r.readVarInt(32)
	return int32(v), err
}

// ReadVarI64 reads a signed LEB128 integer into at most 64 bits.
func (r *Reader) ReadVarI64() (int64, error) {
	return r.readVarInt(64)
}

// readVarUint implements unsigned LEB128 decoding, rejecting encodings that
// carry significant bits beyond maxBits (the "overlong encoding" rule) —
// ported from leb128.Read's bytecnt check, returning an error instead of
// log.Fatal.
func (r *Reader) readVarUint(maxBits uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, ErrLEBOverflow
		}
		chunk := uint64(b & 0x7f)
		if shift == 63 && chunk > 1 {
			return 0, ErrLEBOverflow
		}
		if shift < maxBits {
			result |= chunk << shift
		} else if chunk != 0 {
			return 0, ErrLEBOverflow
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if maxBits < 64 && result>>maxBits != 0 {
		return 0, ErrLEBOverflow
	}
	return result, nil
}

// readVarInt implements signed LEB128 decoding with sign extension of the
// final byte's padding bits.
func (r *Reader) readVarInt(maxBits uint) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, ErrLEBOverflow
		}
		chunk := int64(b & 0x7f)
		if shift < 64 {
			result |= chunk << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	if shift > maxBits+7 {
		return 0, ErrLEBOverflow
	}
	return result, nil
}

// ReadName reads a length-prefixed UTF-8 string, rejecting invalid encodings.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadVarU32()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		zlog.L().Warn("wasmread: malformed utf-8 name", zap.Int("pos", r.pos-int(n)), zap.Int("len", int(n)))
		return "", ErrMalformedUTF8
	}
	return string(b), nil
}

// ReadVec reads a LEB128 length prefix followed by that many elements,
// decoded one at a time by f.
func ReadVec[T any](r *Reader, f func(*Reader) (T, error)) ([]T, error) {
	n, err := r.ReadVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := f(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
