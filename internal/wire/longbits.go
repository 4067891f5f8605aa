package wire

import (
	"errors"
	"strconv"
)

// ErrInvalidLongInput indicates a 64-bit value was given as text that could
// not be parsed as a decimal integer.
var ErrInvalidLongInput = errors.New("cramberry: invalid 64-bit integer input")

// LongBits is the (lo, hi) 32-bit-halves representation of a 64-bit value.
//
// Go has native 64-bit integers, so unlike the reference implementation
// (which needs this split to work around JavaScript's lack of 64-bit
// numbers) this type exists only because it is the shape the wire format's
// varint and fixed64 encoders are specified against, and because it is a
// convenient normalized form for values that arrive as decimal text (JSON
// numbers too large for a float64 to represent exactly, for example).
type LongBits struct {
	Lo uint32
	Hi uint32
}

// LongBitsFromUint64 splits v into its low and high 32-bit halves.
func LongBitsFromUint64(v uint64) LongBits {
	return LongBits{Lo: uint32(v), Hi: uint32(v >> 32)}
}

// LongBitsFromInt64 splits the two's-complement bit pattern of v into its
// low and high 32-bit halves. A negative v therefore produces the same
// halves as LongBitsFromUint64(uint64(v)) — sign extension happens for free.
func LongBitsFromInt64(v int64) LongBits {
	return LongBitsFromUint64(uint64(v))
}

// LongBitsFromString parses a base-10 integer string (optionally with a
// leading '-'; a leading '+' is rejected) into a LongBits. This is the path for values arriving from a text/JSON
// boundary where a 64-bit number doesn't fit a float64 losslessly.
func LongBitsFromString(s string) (LongBits, error) {
	if s == "" {
		return LongBits{}, ErrInvalidLongInput
	}
	if s[0] == '-' {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return LongBits{}, ErrInvalidLongInput
		}
		return LongBitsFromInt64(v), nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return LongBits{}, ErrInvalidLongInput
	}
	return LongBitsFromUint64(v), nil
}

// Uint64 recombines the halves into a single 64-bit value.
func (b LongBits) Uint64() uint64 {
	return uint64(b.Hi)<<32 | uint64(b.Lo)
}

// Length returns the number of bytes (1..10) required to varint-encode b.
// The zero value has length 1.
func (b LongBits) Length() int {
	if b.Hi == 0 {
		return UvarintSize(uint64(b.Lo))
	}
	// Bits contributed by the low 32 bits start at 0; the high half starts
	// contributing at bit 32. bitLen32 below is 1-indexed: 0 for a zero
	// input, else the position of the highest set bit plus one.
	bitsNeeded := 32 + bitLen32(b.Hi)
	n := (bitsNeeded + 6) / 7
	if n > 10 {
		n = 10
	}
	return n
}

// bitLen32 returns the number of bits required to represent v, i.e. 0 for
// v == 0, else 1 + the index of the highest set bit.
func bitLen32(v uint32) int {
	n := 0
	for v != 0 {
		n++
		v >>= 1
	}
	return n
}

// ZigZag returns the zig-zag transform of the 64-bit value represented by b,
// mapping small-magnitude signed values to small-magnitude unsigned ones.
func (b LongBits) ZigZag() LongBits {
	signed := int64(b.Uint64())
	zz := uint64(signed<<1) ^ uint64(signed>>63)
	return LongBitsFromUint64(zz)
}

// UnZigZag returns the signed 64-bit value that zig-zag-encodes to b.
func (b LongBits) UnZigZag() int64 {
	uv := b.Uint64()
	return int64(uv>>1) ^ -int64(uv&1)
}
