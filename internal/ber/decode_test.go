package ber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIdentifier_ShortForm(t *testing.T) {
	r := NewReader([]byte{0xA0}) // context, constructed, tag 0
	id, err := ReadIdentifier(&r)
	require.NoError(t, err)
	assert.Equal(t, Tag{Class: ClassContextSpecific, Number: 0}, id.Tag)
	assert.Equal(t, Constructed, id.Encoding)
}

func TestReadIdentifier_MultiByteTagNumber(t *testing.T) {
	// 0x1F selects the multi-byte form with class=universal, primitive;
	// 0x90 0x80 0x80 0x80 0x00 are five 7-bit groups (high bit set on all
	// but the last) encoding 0x10 << 28 = 2^32, one past the largest
	// 32-bit tag number, so this must fail with KindTagOutOfRange.
	r := NewReader([]byte{0x1F, 0x90, 0x80, 0x80, 0x80, 0x00})
	_, err := ReadIdentifier(&r)
	require.Error(t, err)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindTagOutOfRange})
}

func TestReadIdentifier_MultiByteTagNumberValid(t *testing.T) {
	// tag number 300 = 0b1_0010_1100, split into 7-bit groups: 0000010 0101100
	r := NewReader([]byte{0x1F, 0x82, 0x2C})
	id, err := ReadIdentifier(&r)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), id.Tag.Number)
}

func TestReadOptionalIdentifier_NoMatchDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{0xA1, 0x00})
	enc, present, err := ReadOptionalIdentifier(&r, Tag{Class: ClassContextSpecific, Number: 0})
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, Encoding(0), enc)

	// cursor must be unmoved: the tag is still there to read as tag 1
	gotEnc, err := ReadRequiredIdentifier(&r, Tag{Class: ClassContextSpecific, Number: 1})
	require.NoError(t, err)
	assert.Equal(t, Constructed, gotEnc)
}

func TestReadOptionalIdentifier_EmptyInput(t *testing.T) {
	r := NewReader(nil)
	_, present, err := ReadOptionalIdentifier(&r, Tag{Class: ClassContextSpecific, Number: 0})
	require.NoError(t, err)
	assert.False(t, present)
}

func TestReadLength_ShortForm(t *testing.T) {
	r := NewReader([]byte{0x7F})
	n, err := ReadLength(&r)
	require.NoError(t, err)
	assert.Equal(t, 0x7F, n)
}

func TestReadLength_LongForm(t *testing.T) {
	r := NewReader([]byte{0x82, 0x01, 0x00})
	n, err := ReadLength(&r)
	require.NoError(t, err)
	assert.Equal(t, 256, n)
}

func TestReadLength_Indefinite(t *testing.T) {
	r := NewReader([]byte{0x80})
	_, err := ReadLength(&r)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindIndefiniteLength})
}

func TestReadLength_Reserved(t *testing.T) {
	r := NewReader([]byte{0xFF})
	_, err := ReadLength(&r)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindReservedLength})
}

func TestReadLength_OutOfRange(t *testing.T) {
	// 9-byte long form with no leading zero: overflows even a 64-bit uint.
	r := NewReader([]byte{0x89, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09})
	_, err := ReadLength(&r)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindLengthOutOfRange})
}

func TestReadIntegerAsU16_SingleByte(t *testing.T) {
	r := NewReader([]byte{0x01, 0x05})
	v, err := ReadIntegerAsU16(&r, Primitive)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), v)
}

func TestReadIntegerAsU16_OverlongRejectedLeadingZero(t *testing.T) {
	r := NewReader([]byte{0x02, 0x00, 0x05})
	_, err := ReadIntegerAsU16(&r, Primitive)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindInvalidIntegerEncoding})
}

func TestReadIntegerAsU16_OverlongRejectedLeadingFF(t *testing.T) {
	r := NewReader([]byte{0x02, 0xFF, 0xFE})
	_, err := ReadIntegerAsU16(&r, Primitive)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindInvalidIntegerEncoding})
}

func TestReadIntegerAsU16_ThreeByteOverlongRejected(t *testing.T) {
	// content[0]==0x00, content[1]<0x80: the leading zero byte was not
	// needed to keep the value non-negative, so this is overlong
	// regardless of the total content length.
	r := NewReader([]byte{0x03, 0x00, 0x00, 0x7F})
	_, err := ReadIntegerAsU16(&r, Primitive)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindInvalidIntegerEncoding})
}

func TestReadIntegerAsU16_ThreeByteValid(t *testing.T) {
	r := NewReader([]byte{0x03, 0x00, 0x80, 0x00})
	v, err := ReadIntegerAsU16(&r, Primitive)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8000), v)
}

func TestReadIntegerAsU16_NegativeRejected(t *testing.T) {
	r := NewReader([]byte{0x01, 0x80})
	_, err := ReadIntegerAsU16(&r, Primitive)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindIntegerOutOfRange})
}

func TestReadIntegerAsU16_OutOfRange(t *testing.T) {
	r := NewReader([]byte{0x03, 0x01, 0x00, 0x00})
	_, err := ReadIntegerAsU16(&r, Primitive)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindIntegerOutOfRange})
}

func TestReadIntegerAsU16_ConstructedRejected(t *testing.T) {
	r := NewReader([]byte{0x01, 0x05})
	_, err := ReadIntegerAsU16(&r, Constructed)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindInvalidIntegerEncoding})
}

func TestReadVisibleString_RejectsControlBytes(t *testing.T) {
	r := NewReader([]byte{0x03, 'a', 0x00, 'b'})
	_, err := ReadVisibleString(&r, Primitive)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindInvalidVisibleString})
}

func TestReadVisibleString_Valid(t *testing.T) {
	r := NewReader([]byte{0x05, 'h', 'e', 'l', 'l', 'o'})
	s, err := ReadVisibleString(&r, Primitive)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}
