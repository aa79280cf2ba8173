package ast

import (
	"ember/internal/bignum"
	"ember/internal/symbols"
	"ember/internal/types"
)

// BlockExpr is a statement list with its own scope.
type BlockExpr struct {
	Stmts    []*Node
	BlockCtx *symbols.BlockContext
}

// SymbolExpr references a variable or a function. Exactly one of Variable
// and FnEntry is set.
type SymbolExpr struct {
	Name     string
	Variable *symbols.Variable
	FnEntry  *symbols.Fn
}

// NumLitExpr carries the literal value; the resolved type on the node fixes
// the concrete integer or float type.
type NumLitExpr struct {
	Value bignum.Num
}

type BoolLitExpr struct {
	Value bool
}

// NullLitExpr writes the absent state into its reserved maybe temporary.
type NullLitExpr struct {
	Temp *symbols.TempSlot
}

type StringLitExpr struct {
	Value string
	// IsC marks a C string literal: NUL-terminated, typed &const u8.
	IsC bool
}

type CharLitExpr struct {
	Value uint8
}

// BinOpKind enumerates binary operators, including the compound-assignment
// forms which lower through the same arithmetic path.
type BinOpKind uint8

const (
	BinOpInvalid BinOpKind = iota
	BinOpAssign
	BinOpAssignTimes
	BinOpAssignDiv
	BinOpAssignMod
	BinOpAssignPlus
	BinOpAssignMinus
	BinOpAssignShl
	BinOpAssignShr
	BinOpAssignBitAnd
	BinOpAssignBitXor
	BinOpAssignBitOr
	BinOpBoolOr
	BinOpBoolAnd
	BinOpCmpEq
	BinOpCmpNeq
	BinOpCmpLt
	BinOpCmpGt
	BinOpCmpLte
	BinOpCmpGte
	BinOpBinOr
	BinOpBinXor
	BinOpBinAnd
	BinOpShl
	BinOpShr
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpMod
	BinOpUnwrapMaybe
)

type BinOpExpr struct {
	Op  BinOpKind
	LHS *Node
	RHS *Node
}

// PrefixOpKind enumerates prefix operators.
type PrefixOpKind uint8

const (
	PrefixInvalid PrefixOpKind = iota
	PrefixNegate
	PrefixBoolNot
	PrefixBitNot
	PrefixAddressOf
	PrefixConstAddressOf
	PrefixDeref
)

type PrefixOpExpr struct {
	Op      PrefixOpKind
	Operand *Node
}

// BuiltinKind enumerates compiler builtins callable as functions.
type BuiltinKind uint8

const (
	BuiltinNone BuiltinKind = iota
	BuiltinAddWithOverflow
	BuiltinSubWithOverflow
	BuiltinMulWithOverflow
	BuiltinMemcpy
	BuiltinMemset
	BuiltinSizeof
	BuiltinMinValue
	BuiltinMaxValue
	BuiltinMemberCount
)

// FnCallExpr covers ordinary calls, builtin calls, and explicit casts
// (which parse as calls and carry a resolved Cast descriptor).
type FnCallExpr struct {
	Callee  *Node
	Args    []*Node
	FnEntry *symbols.Fn

	Builtin BuiltinKind
	// TypeArg is the resolved type argument of builtins like @sizeof.
	TypeArg *types.Entry

	Cast Cast
}

type ArrayAccessExpr struct {
	Array     *Node
	Subscript *Node
}

// SliceExprNode is a[start..end]; End nil means "to the base's length".
type SliceExprNode struct {
	Array *Node
	Start *Node
	End   *Node
	Temp  *symbols.TempSlot
}

// FieldAccessExpr reads a struct field, an array's len/ptr pseudo-fields,
// or names an enum variant (EnumType set) for tagged-union construction.
type FieldAccessExpr struct {
	Struct    *Node
	FieldName string

	StructField *types.StructField

	EnumType  *types.Entry
	EnumField *types.EnumField
	Temp      *symbols.TempSlot
}

// StructValFieldNode is one `name: expr` entry of a struct initializer.
type StructValFieldNode struct {
	Name  string
	Field *types.StructField
	Expr  *Node
}

// ContainerInitKind distinguishes struct and array initializers.
type ContainerInitKind uint8

const (
	ContainerInitStruct ContainerInitKind = iota
	ContainerInitArray
)

type ContainerInitExpr struct {
	Kind    ContainerInitKind
	Entries []*Node
	Temp    *symbols.TempSlot
}

type IfBoolExpr struct {
	Cond *Node
	Then *Node
	Else *Node
}

// IfVarExpr is `if (const x ?= expr)`: binds the unwrapped payload in the
// then-arm's scope.
type IfVarExpr struct {
	Var      *symbols.Variable
	Expr     *Node
	Then     *Node
	Else     *Node
	BlockCtx *symbols.BlockContext
}

type WhileExpr struct {
	Cond *Node
	Body *Node
	// CondAlwaysTrue and ContainsBreak are analysis results steering the
	// single-block forever-loop form.
	CondAlwaysTrue bool
	ContainsBreak  bool
	BlockCtx       *symbols.BlockContext
}

type ForExpr struct {
	ElemVar   *symbols.Variable
	IndexVar  *symbols.Variable
	ArrayExpr *Node
	Body      *Node
	BlockCtx  *symbols.BlockContext
}

type ReturnExpr struct {
	Expr *Node
}

// VarDeclNode declares a local. DynSliceLen is set when the declared type
// is a slice whose backing length is a runtime expression; the debug
// poison-fill at the declaration is skipped in that case.
type VarDeclNode struct {
	Var         *symbols.Variable
	Expr        *Node
	DynSliceLen *Node
}

// AsmTokenKind splits the assembly template into literal runs, escaped
// percent signs, and named-variable references.
type AsmTokenKind uint8

const (
	AsmTokenTemplate AsmTokenKind = iota
	AsmTokenPercent
	AsmTokenVar
)

// AsmToken addresses a [Start, End) byte range of the template. For var
// tokens the range covers "%[name" with End at the closing bracket, so the
// symbolic name is Template[Start+2:End].
type AsmToken struct {
	Kind  AsmTokenKind
	Start int
	End   int
}

type AsmOutput struct {
	SymbolicName string
	Constraint   string
	Variable     *symbols.Variable
	// IsReturn marks the output bound to the asm expression's value rather
	// than a variable.
	IsReturn bool
}

type AsmInput struct {
	SymbolicName string
	Constraint   string
	Expr         *Node
}

type AsmExpr struct {
	Template   string
	Tokens     []AsmToken
	Outputs    []*AsmOutput
	Inputs     []*AsmInput
	Clobbers   []string
	IsVolatile bool
	// ReturnCount is 0 or 1.
	ReturnCount int
}

type GotoNode struct {
	Name  string
	Label *symbols.Label
}

type LabelNode struct {
	Name  string
	Label *symbols.Label
}
