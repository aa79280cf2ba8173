package lower

import (
	"fmt"

	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/types"
)

// bareCast applies one resolved cast descriptor to an already-lowered
// value.
func (g *Gen) bareCast(n *ast.Node, exprVal value.Value, actualType, wantedType *types.Entry, cast *ast.Cast) value.Value {
	switch cast.Op {
	case ast.CastNothing:
		return exprVal

	case ast.CastMaybeWrap:
		if cast.Temp == nil || cast.Temp.Ptr == nil {
			panic("lower: maybe-wrap cast without a reserved temporary")
		}
		if wantedType.Kind != types.KindMaybe {
			panic(fmt.Sprintf("lower: maybe-wrap to %s", wantedType.Name))
		}

		g.setDebugLocation(n.Span)
		valPtr := g.structGEP(wantedType, cast.Temp.Ptr, 0)
		g.assignRaw(n.Span, ast.BinOpAssign, valPtr, exprVal, wantedType.Maybe.Child, actualType)

		g.setDebugLocation(n.Span)
		maybePtr := g.structGEP(wantedType, cast.Temp.Ptr, 1)
		g.block.NewStore(boolConst(true), maybePtr)

		return cast.Temp.Ptr

	case ast.CastPtrToInt:
		g.setDebugLocation(n.Span)
		return g.block.NewPtrToInt(exprVal, wantedType.LL)

	case ast.CastPointerReinterpret:
		g.setDebugLocation(n.Span)
		return g.block.NewBitCast(exprVal, wantedType.LL)

	case ast.CastIntWidenOrShorten:
		switch {
		case actualType.SizeInBits == wantedType.SizeInBits:
			return exprVal
		case actualType.SizeInBits < wantedType.SizeInBits:
			g.setDebugLocation(n.Span)
			if actualType.Int.IsSigned {
				return g.block.NewSExt(exprVal, wantedType.LL)
			}
			return g.block.NewZExt(exprVal, wantedType.LL)
		default:
			g.setDebugLocation(n.Span)
			return g.block.NewTrunc(exprVal, wantedType.LL)
		}

	case ast.CastToUnknownSizeArray:
		if cast.Temp == nil || cast.Temp.Ptr == nil {
			panic("lower: slice cast without a reserved temporary")
		}
		if actualType.Kind != types.KindArray {
			panic(fmt.Sprintf("lower: slice cast from %s", actualType.Name))
		}
		pointerType := wantedType.Struct.Fields[0].Type

		g.setDebugLocation(n.Span)
		ptrPtr := g.structGEP(wantedType, cast.Temp.Ptr, 0)
		exprBitcast := g.block.NewBitCast(exprVal, pointerType.LL)
		g.block.NewStore(exprBitcast, ptrPtr)

		lenPtr := g.structGEP(wantedType, cast.Temp.Ptr, 1)
		lenVal := g.isizeConst(int64(actualType.Array.Len)) //nolint:gosec // G115: array lengths fit
		g.block.NewStore(lenVal, lenPtr)

		return cast.Temp.Ptr

	default:
		panic(fmt.Sprintf("lower: unexpected cast op %d", cast.Op))
	}
}

// castExpr lowers an explicit cast call.
func (g *Gen) castExpr(n *ast.Node) value.Value {
	exprNode := n.FnCall.Args[0]
	exprVal := g.Expr(exprNode)

	actualType := exprNode.TypeEntry()
	wantedType := n.TypeEntry()
	return g.bareCast(n, exprVal, actualType, wantedType, &n.FnCall.Cast)
}
