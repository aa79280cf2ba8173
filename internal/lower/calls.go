package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/types"
)

func (g *Gen) fnCallExpr(n *ast.Node) value.Value {
	fc := n.FnCall

	if fc.Builtin != ast.BuiltinNone {
		return g.builtinCallExpr(n)
	}
	if fc.Cast.AfterType != nil {
		return g.castExpr(n)
	}

	// Enum.Variant(payload) parses as a call on a metatype field access.
	if fc.Callee != nil && fc.Callee.Kind == ast.NodeFieldAccess {
		baseType := fc.Callee.FieldAccess.Struct.TypeEntry()
		if baseType.Kind == types.KindMetaType {
			var argNode *ast.Node
			switch len(fc.Args) {
			case 0:
			case 1:
				argNode = fc.Args[0]
			default:
				panic("lower: enum construction with more than one payload")
			}
			return g.enumValueExpr(fc.Callee, fc.Callee.FieldAccess.EnumType, argNode)
		}
	}

	var fnVal value.Value
	var fnType *types.Entry
	if fc.FnEntry != nil {
		fnVal = fc.FnEntry.LLValue
		fnType = fc.FnEntry.Type
	} else {
		fnVal = g.Expr(fc.Callee)
		fnType = fc.Callee.TypeEntry()
	}
	info := fnType.Fn

	if !info.IsVarArgs && len(fc.Args) != info.SrcParamCount {
		panic(fmt.Sprintf("lower: call arity %d, want %d", len(fc.Args), info.SrcParamCount))
	}

	genParams := make([]value.Value, 0, len(fc.Args))
	for _, argNode := range fc.Args {
		paramValue := g.Expr(argNode)
		paramType := argNode.TypeEntry()
		if info.IsVarArgs || paramType.SizeInBits > 0 {
			genParams = append(genParams, paramValue)
		}
	}

	g.setDebugLocation(n.Span)
	call := g.block.NewCall(fnVal, genParams...)
	call.CallingConv = info.CallingConv
	g.attachDebug(call)

	if info.Return.Kind == types.KindUnreachable {
		g.block.NewUnreachable()
		return nil
	}
	return call
}

func (g *Gen) builtinCallExpr(n *ast.Node) value.Value {
	fc := n.FnCall

	switch fc.Builtin {
	case ast.BuiltinAddWithOverflow, ast.BuiltinSubWithOverflow, ast.BuiltinMulWithOverflow:
		return g.overflowBuiltin(n)

	case ast.BuiltinMemcpy:
		if len(fc.Args) != 3 {
			panic("lower: @memcpy arity")
		}
		destType := fc.Args[0].TypeEntry()

		destPtr := g.Expr(fc.Args[0])
		srcPtr := g.Expr(fc.Args[1])
		lenVal := g.Expr(fc.Args[2])

		ptrU8 := lltypes.NewPointer(lltypes.I8)
		g.setDebugLocation(n.Span)
		destCasted := g.block.NewBitCast(destPtr, ptrU8)
		srcCasted := g.block.NewBitCast(srcPtr, ptrU8)

		alignBytes := destType.Pointer.Child.AlignInBits / 8
		call := g.block.NewCall(g.memcpyFn,
			destCasted, srcCasted, lenVal,
			constant.NewInt(lltypes.I32, int64(alignBytes)), //nolint:gosec // G115: alignments fit
			boolConst(false),
		)
		g.attachDebug(call)
		return nil

	case ast.BuiltinMemset:
		if len(fc.Args) != 3 {
			panic("lower: @memset arity")
		}
		destType := fc.Args[0].TypeEntry()

		destPtr := g.Expr(fc.Args[0])
		charVal := g.Expr(fc.Args[1])
		lenVal := g.Expr(fc.Args[2])

		ptrU8 := lltypes.NewPointer(lltypes.I8)
		g.setDebugLocation(n.Span)
		destCasted := g.block.NewBitCast(destPtr, ptrU8)

		alignBytes := destType.Pointer.Child.AlignInBits / 8
		call := g.block.NewCall(g.memsetFn,
			destCasted, charVal, lenVal,
			constant.NewInt(lltypes.I32, int64(alignBytes)), //nolint:gosec // G115: alignments fit
			boolConst(false),
		)
		g.attachDebug(call)
		return nil

	case ast.BuiltinSizeof:
		return g.resolvedIntConst(n, fc.TypeArg.SizeInBits/8)

	case ast.BuiltinMemberCount:
		if fc.TypeArg.Kind != types.KindEnum {
			panic(fmt.Sprintf("lower: @member_count of %s", fc.TypeArg.Name))
		}
		return g.resolvedIntConst(n, uint64(len(fc.TypeArg.Enum.Fields)))

	case ast.BuiltinMinValue:
		t := fc.TypeArg
		if t.Kind != types.KindInt {
			panic(fmt.Sprintf("lower: @min_value of %s", t.Name))
		}
		intType := t.LL.(*lltypes.IntType)
		if t.Int.IsSigned {
			return constant.NewInt(intType, int64(uint64(1)<<(t.SizeInBits-1))) //nolint:gosec // G115: bit pattern
		}
		return constant.NewInt(intType, 0)

	case ast.BuiltinMaxValue:
		t := fc.TypeArg
		if t.Kind != types.KindInt {
			panic(fmt.Sprintf("lower: @max_value of %s", t.Name))
		}
		intType := t.LL.(*lltypes.IntType)
		if t.Int.IsSigned {
			return constant.NewInt(intType, int64((uint64(1)<<(t.SizeInBits-1))-1)) //nolint:gosec // G115: bit pattern
		}
		return constant.NewInt(intType, -1)

	default:
		panic(fmt.Sprintf("lower: unexpected builtin %d", fc.Builtin))
	}
}

// overflowBuiltin calls the width-matched with-overflow intrinsic, stores
// the wrapped result through the out pointer, and yields the overflow bit.
func (g *Gen) overflowBuiltin(n *ast.Node) value.Value {
	fc := n.FnCall
	if len(fc.Args) != 3 {
		panic("lower: overflow builtin arity")
	}
	intType := fc.TypeArg
	if intType.Kind != types.KindInt {
		panic(fmt.Sprintf("lower: overflow builtin on %s", intType.Name))
	}

	var fnVal *ir.Func
	switch fc.Builtin {
	case ast.BuiltinAddWithOverflow:
		fnVal = intType.Int.AddWithOverflow
	case ast.BuiltinSubWithOverflow:
		fnVal = intType.Int.SubWithOverflow
	case ast.BuiltinMulWithOverflow:
		fnVal = intType.Int.MulWithOverflow
	}
	if fnVal == nil {
		panic(fmt.Sprintf("lower: %s has no overflow intrinsics", intType.Name))
	}

	op1 := g.Expr(fc.Args[0])
	op2 := g.Expr(fc.Args[1])
	ptrResult := g.Expr(fc.Args[2])

	g.setDebugLocation(n.Span)
	resultStruct := g.block.NewCall(fnVal, op1, op2)
	g.attachDebug(resultStruct)
	result := g.block.NewExtractValue(resultStruct, 0)
	overflowBit := g.block.NewExtractValue(resultStruct, 1)
	g.block.NewStore(result, ptrResult)

	return overflowBit
}

// resolvedIntConst materializes a compile-time count at the node's
// resolved integer type.
func (g *Gen) resolvedIntConst(n *ast.Node, v uint64) value.Value {
	t := n.Resolved.Type
	if t == nil || t.Kind != types.KindInt {
		panic("lower: builtin count without resolved integer type")
	}
	return constant.NewInt(t.LL.(*lltypes.IntType), int64(v)) //nolint:gosec // G115: counts fit
}
