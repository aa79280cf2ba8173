package lower

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/bignum"
	"ember/internal/types"
)

// Expr lowers an expression and applies the implicit casts recorded on the
// node: the ordinary cast first, then the implicit maybe-wrap.
func (g *Gen) Expr(n *ast.Node) value.Value {
	val := g.exprNoCast(n)

	beforeType := n.Resolved.Type
	if beforeType != nil && beforeType.Kind == types.KindUnreachable {
		// anything emitted after this point is dead
		return val
	}

	if c := &n.Resolved.ImplicitCast; c.AfterType != nil {
		val = g.bareCast(n, val, beforeType, c.AfterType, c)
		beforeType = c.AfterType
	}
	if c := &n.Resolved.ImplicitMaybeCast; c.AfterType != nil {
		val = g.bareCast(n, val, beforeType, c.AfterType, c)
	}
	return val
}

// exprNoCast dispatches on the node kind without applying implicit casts.
func (g *Gen) exprNoCast(n *ast.Node) value.Value {
	switch n.Kind {
	case ast.NodeBinOp:
		return g.binOpExpr(n)
	case ast.NodeReturn:
		return g.returnExpr(n)
	case ast.NodeVarDecl:
		return g.varDeclExpr(n)
	case ast.NodePrefixOp:
		return g.prefixOpExpr(n)
	case ast.NodeFnCall:
		return g.fnCallExpr(n)
	case ast.NodeArrayAccess:
		return g.arrayAccessExpr(n, false)
	case ast.NodeSliceExpr:
		return g.sliceExpr(n)
	case ast.NodeFieldAccess:
		return g.fieldAccessExpr(n, false)
	case ast.NodeBoolLit:
		return boolConst(n.BoolLit.Value)
	case ast.NodeNullLit:
		return g.nullLiteral(n)
	case ast.NodeIfBool:
		return g.ifBoolExpr(n)
	case ast.NodeIfVar:
		return g.ifVarExpr(n)
	case ast.NodeWhile:
		return g.whileExpr(n)
	case ast.NodeFor:
		return g.forExpr(n)
	case ast.NodeAsm:
		return g.asmExpr(n)
	case ast.NodeNumLit:
		return g.numLitConst(n)
	case ast.NodeStringLit:
		return g.stringLitExpr(n)
	case ast.NodeCharLit:
		return constant.NewInt(lltypes.I8, int64(n.CharLit.Value))
	case ast.NodeSymbol:
		return g.symbolExpr(n)
	case ast.NodeBlock:
		return g.genBlock(n, nil)
	case ast.NodeGoto:
		g.setDebugLocation(n.Span)
		g.block.NewBr(n.Goto.Label.Block)
		return nil
	case ast.NodeBreak:
		g.setDebugLocation(n.Span)
		g.block.NewBr(g.breakStack[len(g.breakStack)-1])
		return nil
	case ast.NodeContinue:
		g.setDebugLocation(n.Span)
		g.block.NewBr(g.continueStack[len(g.continueStack)-1])
		return nil
	case ast.NodeLabel:
		return g.labelStmt(n)
	case ast.NodeContainerInit:
		return g.containerInitExpr(n)
	case ast.NodeSwitch:
		panic("lower: switch lowering is outside the supported core")
	default:
		panic(fmt.Sprintf("lower: unexpected node kind %d", n.Kind))
	}
}

// numLitConst materializes a number literal at its resolved concrete type.
func (g *Gen) numLitConst(n *ast.Node) constant.Constant {
	t := n.Resolved.Type
	if t == nil {
		panic("lower: number literal without resolved type")
	}

	v := n.NumLit.Value
	switch t.Kind {
	case types.KindInt:
		// the two's-complement bits carry the sign
		return constant.NewInt(t.LL.(*lltypes.IntType), int64(v.TwosComplement())) //nolint:gosec // G115: bit reinterpretation
	case types.KindFloat:
		f := v
		if v.Kind() == bignum.KindInt {
			f = v.ToFloat()
		}
		return constant.NewFloat(t.LL.(*lltypes.FloatType), f.Float())
	default:
		panic(fmt.Sprintf("lower: number literal resolved to %s", t.Name))
	}
}

// stringLitExpr interns the string data and yields a pointer to its first
// byte.
func (g *Gen) stringLitExpr(n *ast.Node) value.Value {
	global := g.findOrCreateString(n.StringLit.Value, n.StringLit.IsC)
	arrType := global.ContentType

	g.setDebugLocation(n.Span)
	gep := g.block.NewGetElementPtr(arrType, global, g.isizeZero(), g.isizeZero())
	gep.InBounds = true
	return gep
}

// symbolExpr reads a variable or names a function.
func (g *Gen) symbolExpr(n *ast.Node) value.Value {
	if v := n.Symbol.Variable; v != nil {
		if v.Type.SizeInBits == 0 {
			return nil
		}
		if !v.IsPtr {
			return v.ValueRef
		}
		if types.HandleIsPtr(v.Type) {
			// aggregates travel as their storage pointer
			return v.ValueRef
		}
		g.setDebugLocation(n.Span)
		return g.load(v.Type.LL, v.ValueRef)
	}

	fn := n.Symbol.FnEntry
	if fn == nil {
		panic(fmt.Sprintf("lower: unresolved symbol %q", n.Symbol.Name))
	}
	return fn.LLValue
}

// genBlock lowers a statement list. When implicitReturnType is non-nil the
// block is a function body and the trailing return is emitted here.
func (g *Gen) genBlock(n *ast.Node, implicitReturnType *types.Entry) value.Value {
	restore := g.pushBlockCtx(n.Block.BlockCtx)
	defer restore()

	var returnValue value.Value
	for _, stmt := range n.Block.Stmts {
		returnValue = g.Expr(stmt)
	}

	if implicitReturnType != nil {
		g.setDebugLocation(n.Span)
		switch implicitReturnType.Kind {
		case types.KindVoid:
			g.block.NewRet(nil)
		case types.KindUnreachable:
			// the body already terminated
		default:
			g.block.NewRet(returnValue)
		}
	}

	return returnValue
}

func (g *Gen) returnExpr(n *ast.Node) value.Value {
	if e := n.Return.Expr; e != nil {
		val := g.Expr(e)
		g.setDebugLocation(n.Span)
		g.block.NewRet(val)
		return nil
	}
	g.setDebugLocation(n.Span)
	g.block.NewRet(nil)
	return nil
}

// labelStmt positions lowering at the label's pre-created block, emitting
// the fall-through branch when control can reach it directly.
func (g *Gen) labelStmt(n *ast.Node) value.Value {
	label := n.Label.Label
	if label.Block == nil {
		panic(fmt.Sprintf("lower: label %q has no pre-created block", label.Name))
	}
	if label.EnteredFromFallthrough {
		g.setDebugLocation(n.Span)
		g.block.NewBr(label.Block)
	}
	g.block = label.Block
	return nil
}
