package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// poisonByte fills uninitialized locals in debug builds so stale reads
// stand out in a debugger.
const poisonByte = 0xAA

func (g *Gen) varDeclExpr(n *ast.Node) value.Value {
	vd := n.VarDecl
	return g.varDeclRaw(n.Span, vd.Var, vd.Expr, vd.DynSliceLen, false, nil)
}

// varDeclRaw lowers a declaration into the variable's pre-allocated
// storage. With unwrapMaybe the initializer is a maybe aggregate whose
// payload is bound (the if-let form). initVal, when non-nil, is the
// already-lowered initializer.
func (g *Gen) varDeclRaw(span source.Span, v *symbols.Variable, exprNode, dynSliceLen *ast.Node, unwrapMaybe bool, initVal value.Value) value.Value {
	if exprNode != nil && initVal == nil {
		initVal = g.Expr(exprNode)
	}
	if v.Type.SizeInBits == 0 {
		return nil
	}

	if exprNode != nil {
		exprType := exprNode.TypeEntry()
		val := initVal
		if unwrapMaybe {
			if exprType.Kind != types.KindMaybe {
				panic(fmt.Sprintf("lower: unwrap binding from %s", exprType.Name))
			}
			val = g.unwrapMaybe(span, exprType, initVal)
			exprType = exprType.Maybe.Child
		}
		g.assignRaw(span, ast.BinOpAssign, v.ValueRef, val, v.Type, exprType)
	} else {
		ignoreUninit := false

		if dynSliceLen != nil && v.Type.Kind == types.KindStruct && v.Type.Struct.IsSlice {
			// stack-backed slice with a runtime length: array-alloca the
			// storage here and populate the descriptor
			childType := sliceChild(v.Type)
			sizeVal := g.Expr(dynSliceLen)

			g.setDebugLocation(span)
			alloca := g.block.NewAlloca(childType.LL)
			alloca.NElems = sizeVal
			alloca.Align = ir.Align(childType.AlignInBits / 8)

			ptrFieldPtr := g.structGEP(v.Type, v.ValueRef, 0)
			g.block.NewStore(alloca, ptrFieldPtr)

			lenFieldPtr := g.structGEP(v.Type, v.ValueRef, 1)
			g.block.NewStore(sizeVal, lenFieldPtr)

			ignoreUninit = true
		}

		if !ignoreUninit && g.mode != ModeRelease {
			g.setDebugLocation(span)
			ptrU8 := lltypes.NewPointer(lltypes.I8)
			destPtr := g.block.NewBitCast(v.ValueRef, ptrU8)
			call := g.block.NewCall(g.memsetFn,
				destPtr,
				constant.NewInt(lltypes.I8, poisonByte),
				constant.NewInt(g.Types.Builtins().Usize.LL.(*lltypes.IntType), int64(v.Type.SizeInBits/8)), //nolint:gosec // G115: sizes fit
				constant.NewInt(lltypes.I32, int64(v.Type.AlignInBits/8)),                                   //nolint:gosec // G115: alignments fit
				boolConst(false),
			)
			g.attachDebug(call)
		}
	}

	if g.dbg != nil && v.DIVar != nil {
		scope := g.blockCtx.DIScope
		loc := g.dbg.location(g.pos(span), scope)
		g.dbg.insertDeclare(g.block, v.ValueRef, v.DIVar, loc)
	}
	return nil
}

// genFnDef lowers one function body: entry block, pre-created label
// blocks, per-scope storage and debug info, reserved temporaries, then the
// body itself with its implicit return.
func (g *Gen) genFnDef(def *ast.FnDef) {
	fn := def.Entry

	oldFn, oldBlock, oldCtx, oldNames := g.fn, g.block, g.blockCtx, g.blockNames
	defer func() { g.fn, g.block, g.blockCtx, g.blockNames = oldFn, oldBlock, oldCtx, oldNames }()
	g.fn = fn
	g.blockNames = map[string]int{"entry": 1}

	entryBlock := fn.LLValue.NewBlock("entry")
	g.block = entryBlock

	if g.dbg != nil {
		fn.DISubprogram = g.dbg.subprogram(fn.LLValue, fn.Name, g.pos(fn.Span))
	}

	for _, label := range def.Labels {
		label.Block = g.appendBlock(label.Name)
	}

	for _, blockCtx := range fn.AllBlockContexts {
		g.prologueScope(fn, blockCtx)
	}

	// parameters get their debug declarations at the end of the entry block
	if g.dbg != nil {
		for _, v := range fn.ParamVars {
			if v.Type.SizeInBits == 0 || v.DIVar == nil {
				continue
			}
			loc := g.dbg.location(g.pos(v.Span), fn.BodyCtx.DIScope)
			g.dbg.insertDeclare(entryBlock, v.ValueRef, v.DIVar, loc)
		}
	}

	g.blockCtx = fn.BodyCtx
	g.genBlock(def.Body, def.ImplicitReturnType)
}

// prologueScope materializes one block context: debug lexical scope,
// variable storage, and the reserved aggregate temporaries.
func (g *Gen) prologueScope(fn *symbols.Fn, blockCtx *symbols.BlockContext) {
	if g.dbg != nil && blockCtx.DIScope == nil {
		if blockCtx.IsFnTop || blockCtx.Parent == nil {
			blockCtx.DIScope = fn.DISubprogram
		} else {
			blockCtx.DIScope = g.dbg.lexicalBlock(blockCtx.Parent.DIScope, g.pos(blockCtx.Span))
		}
	}

	g.blockCtx = blockCtx

	for _, v := range blockCtx.Vars {
		if v.Type.SizeInBits == 0 {
			continue
		}

		var argNo uint64
		if blockCtx.IsFnTop && v.GenArgIndex >= 0 {
			argNo = uint64(v.GenArgIndex) + 1 //nolint:gosec // G115: parameter indices are small
			v.IsPtr = false
			v.ValueRef = fn.LLValue.Params[v.GenArgIndex]
		} else {
			g.setDebugLocation(v.Span)
			alloca := g.block.NewAlloca(v.Type.LL)
			alloca.SetName(v.Name)
			alloca.Align = ir.Align(v.Type.AlignInBits / 8)
			v.IsPtr = true
			v.ValueRef = alloca
		}

		if g.dbg != nil {
			v.DIVar = g.dbg.localVariable(v, blockCtx.DIScope, g.pos(v.Span), argNo)
		}
	}

	for _, slot := range blockCtx.CastTemps {
		g.setDebugLocation(slot.Span)
		slot.Ptr = g.allocTemp(slot.Type)
	}
	for _, slot := range blockCtx.StructValTemps {
		g.setDebugLocation(slot.Span)
		slot.Ptr = g.allocTemp(slot.Type)
	}
}

func (g *Gen) allocTemp(t *types.Entry) value.Value {
	alloca := g.block.NewAlloca(t.LL)
	if t.AlignInBits != 0 {
		alloca.Align = ir.Align(t.AlignInBits / 8)
	}
	return alloca
}
