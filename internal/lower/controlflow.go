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

// ifBoolRaw branches on an already-lowered condition. Arms typed
// Unreachable do not branch to the join, and the join block exists only
// when some arm can fall through. When the if produces a value, the result
// is a phi over the arm results with incoming blocks captured at branch
// time.
func (g *Gen) ifBoolRaw(span source.Span, resultType *types.Entry, condValue value.Value, thenNode, elseNode *ast.Node) value.Value {
	useExprValue := resultType != nil &&
		resultType.Kind != types.KindUnreachable && resultType.Kind != types.KindVoid

	if elseNode != nil {
		thenBlock := g.appendBlock("Then")
		elseBlock := g.appendBlock("Else")

		thenEndReachable := thenNode.TypeEntry().Kind != types.KindUnreachable
		elseEndReachable := elseNode.TypeEntry().Kind != types.KindUnreachable
		var endIfBlock *ir.Block
		if thenEndReachable || elseEndReachable {
			endIfBlock = g.appendBlock("EndIf")
		}

		g.block.NewCondBr(condValue, thenBlock, elseBlock)

		g.block = thenBlock
		thenExprResult := g.Expr(thenNode)
		if thenEndReachable {
			g.block.NewBr(endIfBlock)
		}
		afterThenBlock := g.block

		g.block = elseBlock
		elseExprResult := g.Expr(elseNode)
		if elseEndReachable {
			g.block.NewBr(endIfBlock)
		}
		afterElseBlock := g.block

		if endIfBlock == nil {
			return nil
		}
		g.block = endIfBlock
		if !useExprValue {
			return nil
		}
		switch {
		case thenEndReachable && elseEndReachable:
			return g.block.NewPhi(
				ir.NewIncoming(thenExprResult, afterThenBlock),
				ir.NewIncoming(elseExprResult, afterElseBlock),
			)
		case thenEndReachable:
			return thenExprResult
		default:
			return elseExprResult
		}
	}

	if useExprValue {
		panic("lower: value-producing if without an else arm")
	}

	thenBlock := g.appendBlock("Then")
	endIfBlock := g.appendBlock("EndIf")

	g.block.NewCondBr(condValue, thenBlock, endIfBlock)

	g.block = thenBlock
	g.Expr(thenNode)
	if thenNode.TypeEntry().Kind != types.KindUnreachable {
		g.block.NewBr(endIfBlock)
	}

	g.block = endIfBlock
	return nil
}

func (g *Gen) ifBoolExpr(n *ast.Node) value.Value {
	condValue := g.Expr(n.IfBool.Cond)
	return g.ifBoolRaw(n.Span, n.TypeEntry(), condValue, n.IfBool.Then, n.IfBool.Else)
}

// ifVarExpr lowers `if (const x ?= expr)`: the scrutinee's present bit is
// the condition, and the then-arm runs in a scope where x is bound to the
// unwrapped payload.
func (g *Gen) ifVarExpr(n *ast.Node) value.Value {
	iv := n.IfVar

	restore := g.pushBlockCtx(iv.BlockCtx)
	defer restore()

	maybeType := iv.Expr.TypeEntry()
	if maybeType.Kind != types.KindMaybe {
		panic(fmt.Sprintf("lower: if-let scrutinee typed %s", maybeType.Name))
	}

	initVal := g.Expr(iv.Expr)
	g.varDeclRaw(n.Span, iv.Var, iv.Expr, nil, true, initVal)

	g.setDebugLocation(n.Span)
	maybeFieldPtr := g.structGEP(maybeType, initVal, 1)
	condValue := g.load(lltypes.I1, maybeFieldPtr)

	return g.ifBoolRaw(n.Span, n.TypeEntry(), condValue, iv.Then, iv.Else)
}

// whileExpr emits either the single-block forever loop (constant-true
// condition, no break) or the three-block general form, maintaining the
// break/continue stacks around the body.
func (g *Gen) whileExpr(n *ast.Node) value.Value {
	w := n.While

	if w.CondAlwaysTrue {
		restore := g.pushBlockCtx(w.BlockCtx)
		defer restore()

		bodyBlock := g.appendBlock("WhileBody")
		var endBlock *ir.Block
		if w.ContainsBreak {
			endBlock = g.appendBlock("WhileEnd")
		}

		g.setDebugLocation(n.Span)
		g.block.NewBr(bodyBlock)

		g.block = bodyBlock
		popLoop := g.pushLoop(endBlock, bodyBlock)
		g.Expr(w.Body)
		popLoop()

		if w.Body.TypeEntry().Kind != types.KindUnreachable {
			g.setDebugLocation(n.Span)
			g.block.NewBr(bodyBlock)
		}

		if w.ContainsBreak {
			g.block = endBlock
		}
		return nil
	}

	condBlock := g.appendBlock("WhileCond")
	bodyBlock := g.appendBlock("WhileBody")
	endBlock := g.appendBlock("WhileEnd")

	g.setDebugLocation(n.Span)
	g.block.NewBr(condBlock)

	g.block = condBlock
	condVal := g.Expr(w.Cond)
	g.setDebugLocation(w.Cond.Span)
	g.block.NewCondBr(condVal, bodyBlock, endBlock)

	g.block = bodyBlock
	restore := g.pushBlockCtx(w.BlockCtx)
	popLoop := g.pushLoop(endBlock, condBlock)
	g.Expr(w.Body)
	popLoop()
	restore()

	if w.Body.TypeEntry().Kind != types.KindUnreachable {
		g.setDebugLocation(n.Span)
		g.block.NewBr(condBlock)
	}

	g.block = endBlock
	return nil
}

// forExpr iterates an array or slice: an isize index counts from zero to
// the computed length, the element variable is re-assigned each step.
func (g *Gen) forExpr(n *ast.Node) value.Value {
	f := n.For
	arrayType := f.ArrayExpr.TypeEntry()

	indexPtr := f.IndexVar.ValueRef
	oneConst := g.isizeConst(1)

	condBlock := g.appendBlock("ForCond")
	bodyBlock := g.appendBlock("ForBody")
	endBlock := g.appendBlock("ForEnd")

	arrayVal := g.arrayBasePtr(f.ArrayExpr)
	g.setDebugLocation(n.Span)
	g.block.NewStore(g.isizeZero(), indexPtr)

	var lenVal value.Value
	var childType *types.Entry
	switch {
	case arrayType.Kind == types.KindArray:
		lenVal = g.isizeConst(int64(arrayType.Array.Len)) //nolint:gosec // G115: array lengths fit
		childType = arrayType.Array.Child
	case arrayType.Kind == types.KindStruct && arrayType.Struct.IsSlice:
		childType = sliceChild(arrayType)
		lenFieldPtr := g.structGEP(arrayType, arrayVal, 1)
		lenVal = g.load(g.Types.Builtins().Isize.LL, lenFieldPtr)
	default:
		panic(fmt.Sprintf("lower: for over %s", arrayType.Name))
	}
	g.block.NewBr(condBlock)

	g.block = condBlock
	indexVal := g.load(f.IndexVar.Type.LL, indexPtr)
	cond := g.block.NewICmp(enum.IPredSLT, indexVal, lenVal)
	g.block.NewCondBr(cond, bodyBlock, endBlock)

	g.block = bodyBlock
	elemPtr := g.arrayElemPtr(n.Span, arrayVal, arrayType, indexVal)
	var elemVal value.Value
	if types.HandleIsPtr(childType) {
		elemVal = elemPtr
	} else {
		elemVal = g.load(childType.LL, elemPtr)
	}
	g.assignRaw(n.Span, ast.BinOpAssign, f.ElemVar.ValueRef, elemVal, f.ElemVar.Type, childType)

	restore := g.pushBlockCtx(f.BlockCtx)
	popLoop := g.pushLoop(endBlock, condBlock)
	g.Expr(f.Body)
	popLoop()
	restore()

	if f.Body.TypeEntry().Kind != types.KindUnreachable {
		g.setDebugLocation(n.Span)
		newIndexVal := g.block.NewAdd(indexVal, oneConst)
		g.block.NewStore(newIndexVal, indexPtr)
		g.block.NewBr(condBlock)
	}

	g.block = endBlock
	return nil
}
