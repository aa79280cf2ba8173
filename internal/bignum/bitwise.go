package bignum

// TwosComplement returns the 64-bit two's-complement representation of an
// integer Num.
func (n Num) TwosComplement() uint64 {
	n.assertInt()
	if n.neg {
		return -n.mag
	}
	return n.mag
}

// Not computes the bitwise complement of the two's-complement form at the
// given width, re-signing the result per the target signedness.
func (n Num) Not(bitCount uint32, isSigned bool) Num {
	n.assertInt()
	b := ^n.TwosComplement()
	if bitCount < 64 {
		b &= (uint64(1) << bitCount) - 1
	}
	if isSigned {
		if bitCount > 0 && bitCount < 64 && b&(uint64(1)<<(bitCount-1)) != 0 {
			// sign-extend from the target width
			b |= ^((uint64(1) << bitCount) - 1)
		}
		return FromInt64(int64(b)) //nolint:gosec // G115: two's-complement reinterpretation is the point
	}
	return FromUint64(b)
}

// Truncate keeps only the low bitCount bits of the magnitude. A negative
// value is first converted to its two's-complement form at the target
// width, which is what integer narrowing needs.
func (n Num) Truncate(bitCount uint32) Num {
	n.assertInt()
	x := n.mag
	if n.neg {
		x = n.TwosComplement()
	}
	if bitCount < 64 {
		x &= (uint64(1) << bitCount) - 1
	}
	return FromUint64(x)
}

func binaryBitwise(a, b Num, f func(x, y uint64) uint64) (Num, error) {
	a.assertInt()
	b.assertInt()
	if a.neg || b.neg {
		return Num{}, ErrNegativeOperand
	}
	return FromUint64(f(a.mag, b.mag)), nil
}

// And computes the magnitude-wise conjunction of two non-negative integers.
func (n Num) And(other Num) (Num, error) {
	return binaryBitwise(n, other, func(x, y uint64) uint64 { return x & y })
}

// Or computes the magnitude-wise disjunction of two non-negative integers.
func (n Num) Or(other Num) (Num, error) {
	return binaryBitwise(n, other, func(x, y uint64) uint64 { return x | y })
}

// Xor computes the magnitude-wise exclusive-or of two non-negative integers.
func (n Num) Xor(other Num) (Num, error) {
	return binaryBitwise(n, other, func(x, y uint64) uint64 { return x ^ y })
}

// Shl shifts the magnitude left. Both operands must be non-negative.
func (n Num) Shl(other Num) (Num, error) {
	return binaryBitwise(n, other, func(x, y uint64) uint64 { return x << y })
}

// Shr shifts the magnitude right. Both operands must be non-negative.
func (n Num) Shr(other Num) (Num, error) {
	return binaryBitwise(n, other, func(x, y uint64) uint64 { return x >> y })
}

// Ctz counts trailing zero bits of the two's-complement form, capped at
// bitCount. Ctz(0, w) == w.
func (n Num) Ctz(bitCount uint32) uint32 {
	n.assertInt()
	x := n.TwosComplement()
	var result uint32
	for i := uint32(0); i < bitCount; i++ {
		if x&1 != 0 {
			break
		}
		result++
		x >>= 1
	}
	return result
}

// Clz counts leading zero bits of the two's-complement form truncated to
// bitCount.
func (n Num) Clz(bitCount uint32) uint32 {
	n.assertInt()
	if bitCount == 0 {
		return 0
	}
	x := n.TwosComplement()
	mask := uint64(1) << (bitCount - 1)
	var result uint32
	for i := uint32(0); i < bitCount; i++ {
		if x&mask != 0 {
			break
		}
		result++
		x <<= 1
	}
	return result
}
