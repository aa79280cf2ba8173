package bignum

// FitsInBits reports whether the integer value is representable in an
// integer type of the given width and signedness.
func (n Num) FitsInBits(bitCount uint32, isSigned bool) bool {
	n.assertInt()

	if isSigned {
		var maxNeg, maxPos uint64
		if bitCount < 64 {
			maxNeg = uint64(1) << (bitCount - 1)
			maxPos = maxNeg - 1
		} else {
			maxPos = 1<<63 - 1
			maxNeg = maxPos + 1
		}
		if n.neg {
			return n.mag <= maxNeg
		}
		return n.mag <= maxPos
	}

	if n.neg {
		return n.mag == 0
	}
	return bitCount >= log2u64(n.mag)
}

// ToFloat converts an integer Num to the float form.
func (n Num) ToFloat() Num {
	n.assertInt()
	f := float64(n.mag)
	if n.neg {
		f = -f
	}
	return FromFloat64(f)
}

// ToInt converts a float Num to the integer form by truncation,
// preserving the sign.
func (n Num) ToInt() Num {
	if n.kind != KindFloat {
		panic("bignum: ToInt on integer value")
	}
	if n.f >= 0 {
		return FromUint64(uint64(n.f))
	}
	return Num{kind: KindInt, neg: true, mag: uint64(-n.f)}.normalized()
}

func log2u64(x uint64) uint32 {
	var result uint32
	for ; x != 0; x >>= 1 {
		result++
	}
	return result
}
