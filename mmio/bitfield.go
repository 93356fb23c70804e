package mmio

import "math/bits"

// Bit reports whether bit n (LSB = 0) of v is set.
func Bit(v uint32, n uint) bool {
	return v&(1<<n) != 0
}

// WithBit returns v with bit n set or cleared.
func WithBit(v uint32, n uint, on bool) uint32 {
	if on {
		return v | 1<<n
	}
	return v &^ (1 << n)
}

// Field extracts width bits of v starting at bit lo.
func Field(v uint32, lo, width uint) uint32 {
	if width >= 32 {
		return v >> lo
	}
	return (v >> lo) & (1<<width - 1)
}

// WithField replaces width bits of v starting at bit lo with x.
// Bits of x above width are discarded.
func WithField(v uint32, lo, width uint, x uint32) uint32 {
	var m uint32 = 0xFFFFFFFF
	if width < 32 {
		m = 1<<width - 1
	}
	return v&^(m<<lo) | (x&m)<<lo
}

// MaskIRQ converts an interrupt number into its big-endian mask bit:
// interrupt 0 is the most significant bit.
func MaskIRQ(n uint32) uint32 {
	return 0x80000000 >> n
}

// Cntlzw counts leading zero bits, returning 32 for zero like the
// PowerPC instruction of the same name.
func Cntlzw(v uint32) uint32 {
	return uint32(bits.LeadingZeros32(v))
}
