// Package bignum implements the numeric kernel used by constant evaluation.
//
// A Num is either an integer held as a sign plus 64-bit magnitude, or an
// IEEE-754 double. The integer form is normalized: a zero magnitude always
// carries a positive sign. All source literals fit this representation after
// base conversion, so no arbitrary-precision storage is needed.
package bignum

// Kind discriminates the two value forms.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
)

// Num is a tagged numeric value.
type Num struct {
	kind Kind
	neg  bool
	mag  uint64
	f    float64
}

// FromUint64 creates an integer Num from an unsigned value.
func FromUint64(x uint64) Num {
	return Num{kind: KindInt, mag: x}
}

// FromInt64 creates an integer Num from a signed value.
func FromInt64(x int64) Num {
	if x < 0 {
		// -(x+1)+1 avoids overflow on math.MinInt64.
		return Num{kind: KindInt, neg: true, mag: uint64(-(x + 1)) + 1}
	}
	return Num{kind: KindInt, mag: uint64(x)}
}

// FromFloat64 creates a float Num.
func FromFloat64(x float64) Num {
	return Num{kind: KindFloat, f: x}
}

// Kind returns the value form.
func (n Num) Kind() Kind {
	return n.kind
}

// IsNegative reports the sign bit of an integer Num.
func (n Num) IsNegative() bool {
	n.assertInt()
	return n.neg
}

// Mag returns the unsigned magnitude of an integer Num.
func (n Num) Mag() uint64 {
	n.assertInt()
	return n.mag
}

// Float returns the payload of a float Num.
func (n Num) Float() float64 {
	if n.kind != KindFloat {
		panic("bignum: float access on integer value")
	}
	return n.f
}

// normalized re-establishes the zero-is-positive invariant.
func (n Num) normalized() Num {
	if n.kind == KindInt && n.mag == 0 {
		n.neg = false
	}
	return n
}

func (n Num) assertInt() {
	if n.kind != KindInt {
		panic("bignum: integer access on float value")
	}
}

func assertLikeKinds(a, b Num) {
	if a.kind != b.kind {
		panic("bignum: operand kind mismatch")
	}
}
