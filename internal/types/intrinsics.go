package types

import (
	"fmt"

	"github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"
)

// InstallOverflowIntrinsics declares the llvm.*.with.overflow intrinsics for
// every integer type and stores the handles on the entries. Called once per
// module; isize/usize share the handles of their fixed-width peers.
func (t *Table) InstallOverflowIntrinsics(m *ir.Module) {
	for _, bits := range []uint64{8, 16, 32, 64} {
		for _, signed := range []bool{true, false} {
			e := t.mustInt(signed, bits)
			e.Int.AddWithOverflow = overflowFn(m, e, "sadd", "uadd")
			e.Int.SubWithOverflow = overflowFn(m, e, "ssub", "usub")
			e.Int.MulWithOverflow = overflowFn(m, e, "smul", "umul")
		}
	}

	for _, e := range []*Entry{t.builtins.Isize, t.builtins.Usize} {
		peer := t.mustInt(e.Int.IsSigned, e.SizeInBits)
		e.Int.AddWithOverflow = peer.Int.AddWithOverflow
		e.Int.SubWithOverflow = peer.Int.SubWithOverflow
		e.Int.MulWithOverflow = peer.Int.MulWithOverflow
	}
}

func overflowFn(m *ir.Module, e *Entry, signedName, unsignedName string) *ir.Func {
	name := unsignedName
	if e.Int.IsSigned {
		name = signedName
	}
	fullName := fmt.Sprintf("llvm.%s.with.overflow.i%d", name, e.SizeInBits)

	retType := lltypes.NewStruct(e.LL, lltypes.I1)
	return m.NewFunc(fullName, retType,
		ir.NewParam("", e.LL),
		ir.NewParam("", e.LL),
	)
}
