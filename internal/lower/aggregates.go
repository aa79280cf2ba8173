package lower

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/types"
)

// sliceExpr lowers a[start..end] into the slice temporary reserved for the
// node. The three base forms differ in how .ptr and the default end are
// produced.
func (g *Gen) sliceExpr(n *ast.Node) value.Value {
	se := n.SliceExpr
	arrayType := se.Array.TypeEntry()
	sliceType := n.TypeEntry()

	if se.Temp == nil || se.Temp.Ptr == nil {
		panic("lower: slice expression without a reserved temporary")
	}
	tmpStructPtr := se.Temp.Ptr
	arrayPtr := g.arrayBasePtr(se.Array)

	switch {
	case arrayType.Kind == types.KindArray:
		startVal := g.Expr(se.Start)
		var endVal value.Value
		if se.End != nil {
			endVal = g.Expr(se.End)
		} else {
			endVal = g.isizeConst(int64(arrayType.Array.Len)) //nolint:gosec // G115: array lengths fit
		}

		g.setDebugLocation(n.Span)
		ptrFieldPtr := g.structGEP(sliceType, tmpStructPtr, 0)
		sliceStartPtr := g.block.NewGetElementPtr(arrayType.LL, arrayPtr, g.isizeZero(), startVal)
		sliceStartPtr.InBounds = true
		g.block.NewStore(sliceStartPtr, ptrFieldPtr)

		g.storeSliceLen(sliceType, tmpStructPtr, endVal, startVal)
		return tmpStructPtr

	case arrayType.Kind == types.KindPointer:
		startVal := g.Expr(se.Start)
		if se.End == nil {
			panic("lower: pointer slice without an end bound")
		}
		endVal := g.Expr(se.End)

		g.setDebugLocation(n.Span)
		ptrFieldPtr := g.structGEP(sliceType, tmpStructPtr, 0)
		sliceStartPtr := g.block.NewGetElementPtr(arrayType.Pointer.Child.LL, arrayPtr, startVal)
		sliceStartPtr.InBounds = true
		g.block.NewStore(sliceStartPtr, ptrFieldPtr)

		g.storeSliceLen(sliceType, tmpStructPtr, endVal, startVal)
		return tmpStructPtr

	case arrayType.Kind == types.KindStruct && arrayType.Struct.IsSlice:
		startVal := g.Expr(se.Start)
		var endVal value.Value
		if se.End != nil {
			endVal = g.Expr(se.End)
		} else {
			g.setDebugLocation(n.Span)
			srcLenPtr := g.structGEP(arrayType, arrayPtr, 1)
			endVal = g.load(g.Types.Builtins().Isize.LL, srcLenPtr)
		}

		g.setDebugLocation(n.Span)
		srcPtrPtr := g.structGEP(arrayType, arrayPtr, 0)
		srcPtr := g.load(arrayType.Struct.Fields[0].Type.LL, srcPtrPtr)
		ptrFieldPtr := g.structGEP(sliceType, tmpStructPtr, 0)
		sliceStartPtr := g.block.NewGetElementPtr(sliceChild(arrayType).LL, srcPtr, startVal)
		sliceStartPtr.InBounds = true
		g.block.NewStore(sliceStartPtr, ptrFieldPtr)

		g.storeSliceLen(sliceType, tmpStructPtr, endVal, startVal)
		return tmpStructPtr

	default:
		panic(fmt.Sprintf("lower: slicing %s", arrayType.Name))
	}
}

func (g *Gen) storeSliceLen(sliceType *types.Entry, tmpStructPtr, endVal, startVal value.Value) {
	lenFieldPtr := g.structGEP(sliceType, tmpStructPtr, 1)
	lenValue := g.block.NewSub(endVal, startVal)
	g.block.NewStore(lenValue, lenFieldPtr)
}

// nullLiteral writes the absent state into the node's maybe temporary.
func (g *Gen) nullLiteral(n *ast.Node) value.Value {
	t := n.TypeEntry()
	if t.Kind != types.KindMaybe {
		panic(fmt.Sprintf("lower: null literal typed %s", t.Name))
	}
	tmp := n.NullLit.Temp
	if tmp == nil || tmp.Ptr == nil {
		panic("lower: null literal without a reserved temporary")
	}

	g.setDebugLocation(n.Span)
	fieldPtr := g.structGEP(t, tmp.Ptr, 1)
	g.block.NewStore(boolConst(false), fieldPtr)
	return tmp.Ptr
}

// containerInitExpr lowers struct and array initializers into their
// reserved temporaries, assigning each field or element through assignRaw.
func (g *Gen) containerInitExpr(n *ast.Node) value.Value {
	t := n.TypeEntry()
	ci := n.ContainerInit

	switch t.Kind {
	case types.KindStruct:
		if ci.Kind != ast.ContainerInitStruct {
			panic("lower: array initializer for struct type")
		}
		tmpStructPtr := ci.Temp.Ptr

		for _, fieldNode := range ci.Entries {
			if fieldNode.Kind != ast.NodeStructValField {
				panic("lower: struct initializer entry is not a field")
			}
			fv := fieldNode.StructValField
			field := fv.Field
			if field.Type.SizeInBits == 0 {
				continue
			}

			g.setDebugLocation(fieldNode.Span)
			fieldPtr := g.structGEP(t, tmpStructPtr, int64(field.GenIndex))
			val := g.Expr(fv.Expr)
			g.assignRaw(fieldNode.Span, ast.BinOpAssign, fieldPtr, val, field.Type, fv.Expr.TypeEntry())
		}
		return tmpStructPtr

	case types.KindUnreachable:
		if len(ci.Entries) != 0 {
			panic("lower: unreachable initializer with entries")
		}
		g.setDebugLocation(n.Span)
		g.block.NewUnreachable()
		return nil

	case types.KindVoid:
		if len(ci.Entries) != 0 {
			panic("lower: void initializer with entries")
		}
		return nil

	case types.KindArray:
		tmpArrayPtr := ci.Temp.Ptr
		childType := t.Array.Child

		for i, fieldNode := range ci.Entries {
			elemVal := g.Expr(fieldNode)

			g.setDebugLocation(fieldNode.Span)
			elemPtr := g.block.NewGetElementPtr(t.LL, tmpArrayPtr, g.isizeZero(), g.isizeConst(int64(i)))
			elemPtr.InBounds = true
			g.assignRaw(fieldNode.Span, ast.BinOpAssign, elemPtr, elemVal, childType, fieldNode.TypeEntry())
		}
		return tmpArrayPtr

	default:
		panic(fmt.Sprintf("lower: container initializer for %s", t.Name))
	}
}

// enumValueExpr constructs a tagged-union value: the bare tag for C-like
// enums, otherwise tag into field 0 and the payload through a bitcast of
// field 1.
func (g *Gen) enumValueExpr(n *ast.Node, enumType *types.Entry, argNode *ast.Node) value.Value {
	field := n.FieldAccess.EnumField
	if field == nil {
		panic(fmt.Sprintf("lower: unresolved enum variant %q", n.FieldAccess.FieldName))
	}
	tagType := enumType.Enum.TagType
	tagValue := constant.NewInt(tagType.LL.(*lltypes.IntType), int64(field.Value)) //nolint:gosec // G115: discriminants fit

	if enumType.Enum.GenFieldCount == 0 {
		return tagValue
	}

	tmpStructPtr := n.FieldAccess.Temp.Ptr
	if tmpStructPtr == nil {
		panic("lower: enum construction without a reserved temporary")
	}

	g.setDebugLocation(n.Span)
	tagFieldPtr := g.structGEP(enumType, tmpStructPtr, 0)
	g.block.NewStore(tagValue, tagFieldPtr)

	var argType *types.Entry
	if argNode != nil {
		argType = argNode.TypeEntry()
	} else {
		argType = g.Types.Builtins().Void
	}

	if argType.Kind != types.KindVoid {
		unionValue := g.Expr(argNode)
		unionFieldPtr := g.structGEP(enumType, tmpStructPtr, 1)
		bitcastPtr := g.block.NewBitCast(unionFieldPtr, lltypes.NewPointer(argType.LL))
		g.assignRaw(argNode.Span, ast.BinOpAssign, bitcastPtr, unionValue, argType, argType)
	}

	return tmpStructPtr
}
