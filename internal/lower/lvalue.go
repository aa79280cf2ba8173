package lower

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

// arrayBasePtr produces the pointer an indexing operation starts from.
// A pointer-typed field is dereferenced once on the way.
func (g *Gen) arrayBasePtr(n *ast.Node) value.Value {
	t := n.TypeEntry()

	if n.Kind == ast.NodeFieldAccess {
		arrayPtr := g.fieldAccessExpr(n, true)
		if t.Kind == types.KindPointer {
			g.setDebugLocation(n.Span)
			return g.load(t.LL, arrayPtr)
		}
		return arrayPtr
	}
	return g.Expr(n)
}

// arrayElemPtr addresses one element of the three array forms: in-place
// fixed array (two-index GEP with leading zero), raw pointer (single-index
// GEP), slice (load .ptr, then single-index GEP).
func (g *Gen) arrayElemPtr(span source.Span, arrayPtr value.Value, arrayType *types.Entry, subscript value.Value) value.Value {
	if subscript == nil {
		panic("lower: array subscript has no value")
	}
	if arrayType.SizeInBits == 0 {
		return nil
	}

	switch {
	case arrayType.Kind == types.KindArray:
		g.setDebugLocation(span)
		gep := g.block.NewGetElementPtr(arrayType.LL, arrayPtr, g.isizeZero(), subscript)
		gep.InBounds = true
		return gep
	case arrayType.Kind == types.KindPointer:
		g.setDebugLocation(span)
		gep := g.block.NewGetElementPtr(arrayType.Pointer.Child.LL, arrayPtr, subscript)
		gep.InBounds = true
		return gep
	case arrayType.Kind == types.KindStruct && arrayType.Struct.IsSlice:
		child := sliceChild(arrayType)
		g.setDebugLocation(span)
		ptrFieldPtr := g.structGEP(arrayType, arrayPtr, 0)
		ptr := g.load(arrayType.Struct.Fields[0].Type.LL, ptrFieldPtr)
		gep := g.block.NewGetElementPtr(child.LL, ptr, subscript)
		gep.InBounds = true
		return gep
	default:
		panic(fmt.Sprintf("lower: indexing into %s", arrayType.Name))
	}
}

// arrayPtr lowers the base and subscript of an array access and addresses
// the element.
func (g *Gen) arrayPtr(n *ast.Node) value.Value {
	arrayExpr := n.ArrayAccess.Array
	arrayType := arrayExpr.TypeEntry()

	arrayPtr := g.arrayBasePtr(arrayExpr)
	subscript := g.Expr(n.ArrayAccess.Subscript)
	return g.arrayElemPtr(n.Span, arrayPtr, arrayType, subscript)
}

// elemTypeOfIndexable answers what an index into the given type yields.
func elemTypeOfIndexable(arrayType *types.Entry) *types.Entry {
	switch {
	case arrayType.Kind == types.KindPointer:
		return arrayType.Pointer.Child
	case arrayType.Kind == types.KindArray:
		return arrayType.Array.Child
	case arrayType.Kind == types.KindStruct && arrayType.Struct.IsSlice:
		return sliceChild(arrayType)
	default:
		panic(fmt.Sprintf("lower: %s is not indexable", arrayType.Name))
	}
}

func sliceChild(sliceType *types.Entry) *types.Entry {
	ptrType := sliceType.Struct.Fields[0].Type
	return ptrType.Pointer.Child
}

func (g *Gen) arrayAccessExpr(n *ast.Node, isLvalue bool) value.Value {
	ptr := g.arrayPtr(n)
	childType := elemTypeOfIndexable(n.ArrayAccess.Array.TypeEntry())

	if isLvalue || ptr == nil || types.HandleIsPtr(childType) {
		return ptr
	}
	g.setDebugLocation(n.Span)
	return g.load(childType.LL, ptr)
}

// fieldPtr addresses a struct field by generation index, dereferencing a
// pointer base once.
func (g *Gen) fieldPtr(n *ast.Node) (value.Value, *types.Entry) {
	structExpr := n.FieldAccess.Struct
	baseType := structExpr.TypeEntry()

	var structPtr value.Value
	switch structExpr.Kind {
	case ast.NodeSymbol:
		v := structExpr.Symbol.Variable
		if v == nil {
			panic(fmt.Sprintf("lower: field access through unresolved symbol %q", structExpr.Symbol.Name))
		}
		if v.IsPtr && v.Type.Kind == types.KindPointer {
			g.setDebugLocation(n.Span)
			structPtr = g.load(v.Type.LL, v.ValueRef)
		} else {
			structPtr = v.ValueRef
		}
	case ast.NodeFieldAccess:
		structPtr = g.fieldAccessExpr(structExpr, true)
		if baseType.Kind == types.KindPointer {
			g.setDebugLocation(n.Span)
			structPtr = g.load(baseType.LL, structPtr)
		}
	default:
		structPtr = g.Expr(structExpr)
	}

	structType := baseType
	if structType.Kind == types.KindPointer {
		structType = structType.Pointer.Child
	}

	field := n.FieldAccess.StructField
	if field == nil || field.GenIndex < 0 {
		panic(fmt.Sprintf("lower: field %q has no generated slot", n.FieldAccess.FieldName))
	}

	g.setDebugLocation(n.Span)
	return g.structGEP(structType, structPtr, int64(field.GenIndex)), field.Type
}

// fieldAccessExpr covers struct fields, the array len/ptr pseudo-fields,
// and C-like enum variant references through the type name.
func (g *Gen) fieldAccessExpr(n *ast.Node, isLvalue bool) value.Value {
	structExpr := n.FieldAccess.Struct
	structType := structExpr.TypeEntry()
	name := n.FieldAccess.FieldName

	switch {
	case structType.Kind == types.KindArray:
		switch name {
		case "len":
			return g.isizeConst(int64(structType.Array.Len)) //nolint:gosec // G115: array lengths fit
		case "ptr":
			arrayVal := g.Expr(structExpr)
			g.setDebugLocation(n.Span)
			gep := g.block.NewGetElementPtr(structType.LL, arrayVal, g.isizeZero(), g.isizeZero())
			gep.InBounds = true
			return gep
		default:
			panic(fmt.Sprintf("lower: bad array pseudo-field %q", name))
		}

	case structType.Kind == types.KindStruct ||
		(structType.Kind == types.KindPointer && structType.Pointer.Child.Kind == types.KindStruct):
		if structType.Kind == types.KindStruct && structType.Struct.IsSlice && name == "len" {
			// slice length is a load of field 1
			basePtr := g.arrayBasePtr(structExpr)
			g.setDebugLocation(n.Span)
			lenFieldPtr := g.structGEP(structType, basePtr, 1)
			if isLvalue {
				return lenFieldPtr
			}
			return g.load(g.Types.Builtins().Isize.LL, lenFieldPtr)
		}
		ptr, fieldType := g.fieldPtr(n)
		if isLvalue || types.HandleIsPtr(fieldType) {
			return ptr
		}
		g.setDebugLocation(n.Span)
		return g.load(fieldType.LL, ptr)

	case structType.Kind == types.KindMetaType:
		if isLvalue {
			panic("lower: enum variant reference is not assignable")
		}
		return g.enumValueExpr(n, n.FieldAccess.EnumType, nil)

	default:
		panic(fmt.Sprintf("lower: field access on %s", structType.Name))
	}
}

// lvalue resolves an assignment target to (storage pointer, pointee type).
// All other node forms were rejected upstream.
func (g *Gen) lvalue(exprNode, n *ast.Node) (value.Value, *types.Entry) {
	switch n.Kind {
	case ast.NodeSymbol:
		v := n.Symbol.Variable
		if v == nil {
			panic(fmt.Sprintf("lower: assignment to unresolved symbol %q", n.Symbol.Name))
		}
		if v.IsConst {
			panic(fmt.Sprintf("lower: assignment to constant %q", v.Name))
		}
		return v.ValueRef, v.Type

	case ast.NodeArrayAccess:
		arrayType := n.ArrayAccess.Array.TypeEntry()
		return g.arrayPtr(n), elemTypeOfIndexable(arrayType)

	case ast.NodeFieldAccess:
		return g.fieldPtr(n)

	case ast.NodePrefixOp:
		if n.PrefixOp.Op != ast.PrefixDeref {
			panic("lower: bad assign target")
		}
		target := n.PrefixOp.Operand
		targetType := target.TypeEntry()
		if targetType.Kind != types.KindPointer {
			panic(fmt.Sprintf("lower: dereference of %s", targetType.Name))
		}
		return g.Expr(target), targetType.Pointer.Child

	default:
		panic("lower: bad assign target")
	}
}

func (g *Gen) prefixOpExpr(n *ast.Node) value.Value {
	operand := n.PrefixOp.Operand

	switch n.PrefixOp.Op {
	case ast.PrefixNegate:
		val := g.Expr(operand)
		t := operand.TypeEntry()
		g.setDebugLocation(n.Span)
		if t.Kind == types.KindFloat {
			inst := g.block.NewFNeg(val)
			fastMath(&inst.FastMathFlags)
			return inst
		}
		return g.block.NewSub(constant.NewInt(t.LL.(*lltypes.IntType), 0), val)

	case ast.PrefixBoolNot:
		val := g.Expr(operand)
		g.setDebugLocation(n.Span)
		return g.block.NewICmp(intPredicate(ast.BinOpCmpEq, false), val, boolConst(false))

	case ast.PrefixBitNot:
		val := g.Expr(operand)
		t := operand.TypeEntry()
		g.setDebugLocation(n.Span)
		return g.block.NewXor(val, constant.NewInt(t.LL.(*lltypes.IntType), -1))

	case ast.PrefixAddressOf, ast.PrefixConstAddressOf:
		ptr, _ := g.lvalue(n, operand)
		return ptr

	case ast.PrefixDeref:
		val := g.Expr(operand)
		t := operand.TypeEntry()
		if t.Kind != types.KindPointer {
			panic(fmt.Sprintf("lower: dereference of %s", t.Name))
		}
		g.setDebugLocation(n.Span)
		return g.load(t.Pointer.Child.LL, val)

	default:
		panic(fmt.Sprintf("lower: unexpected prefix op %d", n.PrefixOp.Op))
	}
}
