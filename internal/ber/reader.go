// Package ber implements a bounded, zero-copy byte cursor plus a
// restricted subset of ITU-T X.690 BER/DER decoding, sufficient for the
// IEC 61850-9-2 Sampled Values wire format.
package ber

import (
	"encoding/binary"
	"errors"
)

// ErrEndOfBuffer is returned by every read/peek operation that would
// need more bytes than remain in the reader's current view.
var ErrEndOfBuffer = errors.New("ber: unexpected end of buffer")

// Reader is an immutable view onto a byte slice plus a cursor. Reads
// never allocate and never copy; returned slices alias the original
// input. Reader is cheap to copy by value, which is how callers perform
// look-ahead without committing the cursor (see ReadOptionalIdentifier).
type Reader struct {
	b []byte
}

// NewReader constructs a Reader over b. b is not copied; the caller must
// not mutate it for the lifetime of the Reader or any slice it returns.
func NewReader(b []byte) Reader {
	return Reader{b: b}
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (r Reader) PeekBytes(n int) ([]byte, error) {
	if n > len(r.b) {
		return nil, ErrEndOfBuffer
	}
	return r.b[:n:n], nil
}

// ReadBytes returns the next n bytes and advances the cursor past them.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.PeekBytes(n)
	if err != nil {
		return nil, err
	}
	r.b = r.b[n:]
	return b, nil
}

// PeekU8 returns the next byte without advancing the cursor.
func (r Reader) PeekU8() (byte, error) {
	if len(r.b) == 0 {
		return 0, ErrEndOfBuffer
	}
	return r.b[0], nil
}

// ReadU8 reads and consumes a single byte.
func (r *Reader) ReadU8() (byte, error) {
	if len(r.b) == 0 {
		return 0, ErrEndOfBuffer
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v, nil
}

// ReadU16BE reads and consumes a big-endian unsigned 16-bit integer.
func (r *Reader) ReadU16BE() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Skip advances the cursor past n bytes without returning them.
func (r *Reader) Skip(n int) error {
	if n > len(r.b) {
		return ErrEndOfBuffer
	}
	r.b = r.b[n:]
	return nil
}

// Limit truncates the reader's remaining view to exactly n bytes,
// failing if fewer than n bytes remain.
func (r *Reader) Limit(n int) error {
	if n > len(r.b) {
		return ErrEndOfBuffer
	}
	r.b = r.b[:n:n]
	return nil
}

// TakeSubReader consumes the next n bytes and returns a Reader bounded
// to exactly that range, advancing this reader's cursor past them.
func (r *Reader) TakeSubReader(n int) (Reader, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return Reader{}, err
	}
	return NewReader(b), nil
}

// IsEmpty reports whether the reader has no remaining bytes.
func (r Reader) IsEmpty() bool {
	return len(r.b) == 0
}
