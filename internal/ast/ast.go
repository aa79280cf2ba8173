// Package ast defines the annotated syntax tree the lowering engine
// consumes. Nodes arrive fully resolved: every expression carries its type
// entry, implicit cast descriptors, and — for aggregate-producing
// expressions — the temporary slot the analyzer reserved for it.
package ast

import (
	"ember/internal/bignum"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// NodeKind enumerates the node shapes lowering dispatches on.
type NodeKind uint8

const (
	NodeInvalid NodeKind = iota
	NodeBlock
	NodeSymbol
	NodeNumLit
	NodeBoolLit
	NodeNullLit
	NodeStringLit
	NodeCharLit
	NodeBinOp
	NodePrefixOp
	NodeFnCall
	NodeArrayAccess
	NodeSliceExpr
	NodeFieldAccess
	NodeStructValField
	NodeContainerInit
	NodeIfBool
	NodeIfVar
	NodeWhile
	NodeFor
	NodeReturn
	NodeVarDecl
	NodeAsm
	NodeGoto
	NodeBreak
	NodeContinue
	NodeLabel
	NodeSwitch
)

// CastOp enumerates the resolved cast operations.
type CastOp uint8

const (
	CastNothing CastOp = iota
	CastIntWidenOrShorten
	CastPtrToInt
	CastPointerReinterpret
	CastMaybeWrap
	CastToUnknownSizeArray
)

// Cast is a resolved cast descriptor. A zero AfterType means no cast.
// Temp is the pre-reserved aggregate slot for MaybeWrap and
// ToUnknownSizeArray.
type Cast struct {
	Op        CastOp
	AfterType *types.Entry
	Temp      *symbols.TempSlot
}

// ConstVal is the constant-evaluation result attached to an expression.
type ConstVal struct {
	OK  bool
	Num bignum.Num
}

// Resolved is the annotation block the analyzer writes on every expression.
type Resolved struct {
	Type              *types.Entry
	ConstVal          ConstVal
	ImplicitCast      Cast
	ImplicitMaybeCast Cast
	BlockCtx          *symbols.BlockContext
}

// Node is one annotated AST node. At most one payload pointer, the one
// matching Kind, is non-nil; break and continue nodes carry none.
type Node struct {
	Kind     NodeKind
	Span     source.Span
	Resolved Resolved

	Block          *BlockExpr
	Symbol         *SymbolExpr
	NumLit         *NumLitExpr
	BoolLit        *BoolLitExpr
	NullLit        *NullLitExpr
	StringLit      *StringLitExpr
	CharLit        *CharLitExpr
	BinOp          *BinOpExpr
	PrefixOp       *PrefixOpExpr
	FnCall         *FnCallExpr
	ArrayAccess    *ArrayAccessExpr
	SliceExpr      *SliceExprNode
	FieldAccess    *FieldAccessExpr
	StructValField *StructValFieldNode
	ContainerInit  *ContainerInitExpr
	IfBool         *IfBoolExpr
	IfVar          *IfVarExpr
	While          *WhileExpr
	For            *ForExpr
	Return         *ReturnExpr
	VarDecl        *VarDeclNode
	Asm            *AsmExpr
	Goto           *GotoNode
	Label          *LabelNode
}

// TypeEntry returns the node's resolved type after implicit casts, which is
// the type the surrounding expression observes.
func (n *Node) TypeEntry() *types.Entry {
	if n.Resolved.ImplicitMaybeCast.AfterType != nil {
		return n.Resolved.ImplicitMaybeCast.AfterType
	}
	if n.Resolved.ImplicitCast.AfterType != nil {
		return n.Resolved.ImplicitCast.AfterType
	}
	return n.Resolved.Type
}
