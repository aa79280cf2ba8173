package bignum

import "errors"

var (
	// ErrDivideByZero is returned by Div and Rem when the divisor is zero.
	ErrDivideByZero = errors.New("bignum: divide by zero")
	// ErrNegativeOperand is returned by operations that are only defined
	// over non-negative integers (Rem, the bitwise ops, the shifts).
	ErrNegativeOperand = errors.New("bignum: negative operand")
)
