package bignum

import (
	"fmt"
	"strconv"
)

// String renders the value the way the literal printer expects it.
func (n Num) String() string {
	if n.kind == KindFloat {
		return strconv.FormatFloat(n.f, 'f', -1, 64)
	}
	if n.neg {
		return fmt.Sprintf("-%d", n.mag)
	}
	return strconv.FormatUint(n.mag, 10)
}
