// Package symbols holds the resolved entities lowering reads: variables,
// functions, block contexts, labels, and the aggregate-temporary slots the
// analyzer reserves on block contexts. Lowering fills in the low-level
// handles (ValueRef, Ptr, DI scopes) but never changes the shape.
package symbols

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/value"

	"ember/internal/source"
	"ember/internal/types"
)

// Variable is one named storage location. IsPtr means the value lives
// behind an alloca (locals and aggregates); scalar function parameters are
// bound directly to the parameter value.
type Variable struct {
	Name    string
	Type    *types.Entry
	IsConst bool
	IsPtr   bool
	Span    source.Span

	// GenArgIndex is the physical parameter index, or -1 for locals.
	GenArgIndex int

	// Filled in by lowering.
	ValueRef value.Value
	DIVar    *metadata.DILocalVariable
}

// TempSlot is a reserved aggregate temporary: the analyzer tags the source
// node with it, the function prologue materializes the alloca.
type TempSlot struct {
	Type *types.Entry
	Span source.Span

	// Ptr is the alloca, set once in the prologue.
	Ptr value.Value
}

// BlockContext is one lexical scope.
type BlockContext struct {
	Parent  *BlockContext
	Span    source.Span
	IsFnTop bool

	Vars           []*Variable
	CastTemps      []*TempSlot
	StructValTemps []*TempSlot

	// DIScope is the debug lexical scope, set once in the prologue.
	DIScope metadata.Field
}

// NewBlockContext creates a child scope of parent (nil for a function's
// top-level scope).
func NewBlockContext(parent *BlockContext, span source.Span) *BlockContext {
	return &BlockContext{Parent: parent, Span: span}
}

// AddVariable registers a variable in this scope and returns it.
func (bc *BlockContext) AddVariable(v *Variable) *Variable {
	bc.Vars = append(bc.Vars, v)
	return v
}

// AddCastTemp reserves an aggregate temporary produced by a cast.
func (bc *BlockContext) AddCastTemp(t *types.Entry, span source.Span) *TempSlot {
	slot := &TempSlot{Type: t, Span: span}
	bc.CastTemps = append(bc.CastTemps, slot)
	return slot
}

// AddStructValTemp reserves an aggregate temporary produced by a literal
// expression (container init, slice expr, enum construction).
func (bc *BlockContext) AddStructValTemp(t *types.Entry, span source.Span) *TempSlot {
	slot := &TempSlot{Type: t, Span: span}
	bc.StructValTemps = append(bc.StructValTemps, slot)
	return slot
}

// FindVariable resolves a name through the scope chain.
func (bc *BlockContext) FindVariable(name string) *Variable {
	for ctx := bc; ctx != nil; ctx = ctx.Parent {
		for _, v := range ctx.Vars {
			if v.Name == name {
				return v
			}
		}
	}
	return nil
}

// Fn is one function known to the compilation.
type Fn struct {
	Name        string
	Type        *types.Entry
	CallingConv enum.CallingConv
	Span        source.Span
	IsExtern    bool

	ParamVars []*Variable
	// NoAliasParams marks parameters declared noalias, by source index.
	NoAliasParams []bool

	// BodyCtx is the function's top scope; AllBlockContexts lists every
	// scope reachable from the body in pre-order, BodyCtx first.
	BodyCtx          *BlockContext
	AllBlockContexts []*BlockContext

	// Filled in by lowering.
	LLValue      *ir.Func
	DISubprogram *metadata.DISubprogram
}

// Label is a goto target. Its block is pre-created at function entry.
type Label struct {
	Name string
	Span source.Span

	// EnteredFromFallthrough is set by the analyzer when control can reach
	// the label without a goto.
	EnteredFromFallthrough bool

	// Block is filled in by lowering before the body is walked.
	Block *ir.Block
}
