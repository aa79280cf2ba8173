package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

func (g *Gen) binOpExpr(n *ast.Node) value.Value {
	switch n.BinOp.Op {
	case ast.BinOpAssign,
		ast.BinOpAssignTimes, ast.BinOpAssignDiv, ast.BinOpAssignMod,
		ast.BinOpAssignPlus, ast.BinOpAssignMinus,
		ast.BinOpAssignShl, ast.BinOpAssignShr,
		ast.BinOpAssignBitAnd, ast.BinOpAssignBitXor, ast.BinOpAssignBitOr:
		return g.assignExpr(n)
	case ast.BinOpBoolOr:
		return g.boolOrExpr(n)
	case ast.BinOpBoolAnd:
		return g.boolAndExpr(n)
	case ast.BinOpCmpEq, ast.BinOpCmpNeq, ast.BinOpCmpLt, ast.BinOpCmpGt, ast.BinOpCmpLte, ast.BinOpCmpGte:
		return g.cmpExpr(n)
	case ast.BinOpUnwrapMaybe:
		return g.unwrapMaybeExpr(n)
	case ast.BinOpBinOr, ast.BinOpBinXor, ast.BinOpBinAnd,
		ast.BinOpShl, ast.BinOpShr,
		ast.BinOpAdd, ast.BinOpSub, ast.BinOpMul, ast.BinOpDiv, ast.BinOpMod:
		return g.arithmeticBinOpExpr(n)
	default:
		panic(fmt.Sprintf("lower: unexpected binary op %d", n.BinOp.Op))
	}
}

// fastMath marks a float instruction for the module-wide fast-math regime.
func fastMath(flags *[]enum.FastMathFlag) {
	*flags = append(*flags, enum.FastMathFlagFast)
}

// arithmeticBinOp emits one arithmetic or bitwise instruction for
// like-typed operands.
func (g *Gen) arithmeticBinOp(span source.Span, val1, val2 value.Value, op1Type, op2Type *types.Entry, op ast.BinOpKind) value.Value {
	if op1Type != op2Type {
		panic(fmt.Sprintf("lower: arithmetic operand type mismatch: %s vs %s", op1Type.Name, op2Type.Name))
	}

	g.setDebugLocation(span)
	isFloat := op1Type.Kind == types.KindFloat

	switch op {
	case ast.BinOpBinOr, ast.BinOpAssignBitOr:
		return g.block.NewOr(val1, val2)
	case ast.BinOpBinXor, ast.BinOpAssignBitXor:
		return g.block.NewXor(val1, val2)
	case ast.BinOpBinAnd, ast.BinOpAssignBitAnd:
		return g.block.NewAnd(val1, val2)
	case ast.BinOpShl, ast.BinOpAssignShl:
		return g.block.NewShl(val1, val2)
	case ast.BinOpShr, ast.BinOpAssignShr:
		if op1Type.Kind != types.KindInt {
			panic("lower: shift of non-integer")
		}
		if op1Type.Int.IsSigned {
			return g.block.NewAShr(val1, val2)
		}
		return g.block.NewLShr(val1, val2)
	case ast.BinOpAdd, ast.BinOpAssignPlus:
		if isFloat {
			inst := g.block.NewFAdd(val1, val2)
			fastMath(&inst.FastMathFlags)
			return inst
		}
		return g.block.NewAdd(val1, val2)
	case ast.BinOpSub, ast.BinOpAssignMinus:
		if isFloat {
			inst := g.block.NewFSub(val1, val2)
			fastMath(&inst.FastMathFlags)
			return inst
		}
		return g.block.NewSub(val1, val2)
	case ast.BinOpMul, ast.BinOpAssignTimes:
		if isFloat {
			inst := g.block.NewFMul(val1, val2)
			fastMath(&inst.FastMathFlags)
			return inst
		}
		return g.block.NewMul(val1, val2)
	case ast.BinOpDiv, ast.BinOpAssignDiv:
		if isFloat {
			inst := g.block.NewFDiv(val1, val2)
			fastMath(&inst.FastMathFlags)
			return inst
		}
		if op1Type.Kind != types.KindInt {
			panic("lower: division of non-numeric type")
		}
		if op1Type.Int.IsSigned {
			return g.block.NewSDiv(val1, val2)
		}
		return g.block.NewUDiv(val1, val2)
	case ast.BinOpMod, ast.BinOpAssignMod:
		if isFloat {
			inst := g.block.NewFRem(val1, val2)
			fastMath(&inst.FastMathFlags)
			return inst
		}
		if op1Type.Kind != types.KindInt {
			panic("lower: remainder of non-numeric type")
		}
		if op1Type.Int.IsSigned {
			return g.block.NewSRem(val1, val2)
		}
		return g.block.NewURem(val1, val2)
	default:
		panic(fmt.Sprintf("lower: non-arithmetic op %d in arithmeticBinOp", op))
	}
}

func (g *Gen) arithmeticBinOpExpr(n *ast.Node) value.Value {
	val1 := g.Expr(n.BinOp.LHS)
	val2 := g.Expr(n.BinOp.RHS)
	return g.arithmeticBinOp(n.Span, val1, val2, n.BinOp.LHS.TypeEntry(), n.BinOp.RHS.TypeEntry(), n.BinOp.Op)
}

func intPredicate(op ast.BinOpKind, isSigned bool) enum.IPred {
	switch op {
	case ast.BinOpCmpEq:
		return enum.IPredEQ
	case ast.BinOpCmpNeq:
		return enum.IPredNE
	case ast.BinOpCmpLt:
		if isSigned {
			return enum.IPredSLT
		}
		return enum.IPredULT
	case ast.BinOpCmpGt:
		if isSigned {
			return enum.IPredSGT
		}
		return enum.IPredUGT
	case ast.BinOpCmpLte:
		if isSigned {
			return enum.IPredSLE
		}
		return enum.IPredULE
	case ast.BinOpCmpGte:
		if isSigned {
			return enum.IPredSGE
		}
		return enum.IPredUGE
	default:
		panic(fmt.Sprintf("lower: non-comparison op %d", op))
	}
}

func floatPredicate(op ast.BinOpKind) enum.FPred {
	switch op {
	case ast.BinOpCmpEq:
		return enum.FPredOEQ
	case ast.BinOpCmpNeq:
		return enum.FPredONE
	case ast.BinOpCmpLt:
		return enum.FPredOLT
	case ast.BinOpCmpGt:
		return enum.FPredOGT
	case ast.BinOpCmpLte:
		return enum.FPredOLE
	case ast.BinOpCmpGte:
		return enum.FPredOGE
	default:
		panic(fmt.Sprintf("lower: non-comparison op %d", op))
	}
}

// cmpExpr produces a 1-bit boolean. Integer ordering follows operand
// signedness; enum tags compare unsigned; floats use ordered predicates.
func (g *Gen) cmpExpr(n *ast.Node) value.Value {
	val1 := g.Expr(n.BinOp.LHS)
	val2 := g.Expr(n.BinOp.RHS)

	op1Type := n.BinOp.LHS.TypeEntry()
	op2Type := n.BinOp.RHS.TypeEntry()
	if op1Type != op2Type {
		panic(fmt.Sprintf("lower: comparison operand type mismatch: %s vs %s", op1Type.Name, op2Type.Name))
	}

	g.setDebugLocation(n.Span)
	switch op1Type.Kind {
	case types.KindFloat:
		return g.block.NewFCmp(floatPredicate(n.BinOp.Op), val1, val2)
	case types.KindInt:
		return g.block.NewICmp(intPredicate(n.BinOp.Op, op1Type.Int.IsSigned), val1, val2)
	case types.KindEnum:
		return g.block.NewICmp(intPredicate(n.BinOp.Op, false), val1, val2)
	case types.KindBool, types.KindPointer:
		return g.block.NewICmp(intPredicate(n.BinOp.Op, false), val1, val2)
	default:
		panic(fmt.Sprintf("lower: comparison of %s values", op1Type.Name))
	}
}

// boolAndExpr lowers `a and b` with short-circuit evaluation. The phi's
// incoming blocks are the insertion blocks at branch time: lowering b may
// itself have produced new blocks.
func (g *Gen) boolAndExpr(n *ast.Node) value.Value {
	val1 := g.Expr(n.BinOp.LHS)
	postVal1Block := g.block

	trueBlock := g.appendBlock("BoolAndTrue")
	falseBlock := g.appendBlock("BoolAndFalse")

	g.setDebugLocation(n.Span)
	g.block.NewCondBr(val1, trueBlock, falseBlock)

	g.block = trueBlock
	val2 := g.Expr(n.BinOp.RHS)
	postVal2Block := g.block

	g.setDebugLocation(n.Span)
	g.block.NewBr(falseBlock)

	g.block = falseBlock
	g.setDebugLocation(n.Span)
	return g.block.NewPhi(
		ir.NewIncoming(val1, postVal1Block),
		ir.NewIncoming(val2, postVal2Block),
	)
}

// boolOrExpr mirrors boolAndExpr with the join on the true block.
func (g *Gen) boolOrExpr(n *ast.Node) value.Value {
	val1 := g.Expr(n.BinOp.LHS)
	postVal1Block := g.block

	falseBlock := g.appendBlock("BoolOrFalse")
	trueBlock := g.appendBlock("BoolOrTrue")

	g.setDebugLocation(n.Span)
	g.block.NewCondBr(val1, trueBlock, falseBlock)

	g.block = falseBlock
	val2 := g.Expr(n.BinOp.RHS)
	postVal2Block := g.block

	g.setDebugLocation(n.Span)
	g.block.NewBr(trueBlock)

	g.block = trueBlock
	g.setDebugLocation(n.Span)
	return g.block.NewPhi(
		ir.NewIncoming(val1, postVal1Block),
		ir.NewIncoming(val2, postVal2Block),
	)
}

func (g *Gen) assignExpr(n *ast.Node) value.Value {
	targetRef, op1Type := g.lvalue(n, n.BinOp.LHS)

	op2Type := n.BinOp.RHS.TypeEntry()
	val := g.Expr(n.BinOp.RHS)

	if op1Type.SizeInBits == 0 {
		return nil
	}
	return g.assignRaw(n.Span, n.BinOp.Op, targetRef, val, op1Type, op2Type)
}

// unwrapMaybe loads the payload (field 0) out of a maybe aggregate.
func (g *Gen) unwrapMaybe(span source.Span, maybeType *types.Entry, maybeRef value.Value) value.Value {
	g.setDebugLocation(span)
	valFieldPtr := g.structGEP(maybeType, maybeRef, 0)
	return g.load(maybeType.Maybe.Child.LL, valFieldPtr)
}

// unwrapMaybeExpr lowers `a ?? b`: yields a's payload when present,
// otherwise evaluates b. Arms typed Unreachable fall out of the join.
func (g *Gen) unwrapMaybeExpr(n *ast.Node) value.Value {
	op1 := n.BinOp.LHS
	op2 := n.BinOp.RHS
	maybeType := op1.TypeEntry()

	maybeStructRef := g.Expr(op1)

	g.setDebugLocation(n.Span)
	maybeFieldPtr := g.structGEP(maybeType, maybeStructRef, 1)
	condValue := g.load(lltypes.I1, maybeFieldPtr)

	nonNullBlock := g.appendBlock("MaybeNonNull")
	nullBlock := g.appendBlock("MaybeNull")

	nonNullReachable := op1.TypeEntry().Kind != types.KindUnreachable
	nullReachable := op2.TypeEntry().Kind != types.KindUnreachable
	var endBlock *ir.Block
	if nonNullReachable || nullReachable {
		endBlock = g.appendBlock("MaybeEnd")
	}

	g.block.NewCondBr(condValue, nonNullBlock, nullBlock)

	g.block = nonNullBlock
	nonNullResult := g.unwrapMaybe(op1.Span, maybeType, maybeStructRef)
	if nonNullReachable {
		g.setDebugLocation(n.Span)
		g.block.NewBr(endBlock)
	}
	postNonNullBlock := g.block

	g.block = nullBlock
	nullResult := g.Expr(op2)
	if nullReachable {
		g.setDebugLocation(n.Span)
		g.block.NewBr(endBlock)
	}
	postNullBlock := g.block

	if endBlock == nil {
		return nil
	}
	g.block = endBlock
	switch {
	case nonNullReachable && nullReachable:
		g.setDebugLocation(n.Span)
		return g.block.NewPhi(
			ir.NewIncoming(nonNullResult, postNonNullBlock),
			ir.NewIncoming(nullResult, postNullBlock),
		)
	case nonNullReachable:
		return nonNullResult
	default:
		return nullResult
	}
}
