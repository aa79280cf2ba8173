package lower

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"ember/internal/ast"
	"ember/internal/bignum"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// fixture owns one single-function lowering scenario.
type fixture struct {
	t   *testing.T
	tab *types.Table
	g   *Gen
	fn  *symbols.Fn
	ctx *symbols.BlockContext
}

func newFixture(t *testing.T) *fixture {
	return newFixtureMode(t, ModeDebug)
}

func newFixtureMode(t *testing.T, mode Mode) *fixture {
	t.Helper()
	tab := types.NewTable(types.Target{PtrBits: 64})
	g := New(tab, nil, mode, "test")

	ctx := symbols.NewBlockContext(nil, source.Span{})
	ctx.IsFnTop = true

	fnType := tab.FnType(nil, tab.Builtins().Void, false, enum.CallingConvC)
	fn := &symbols.Fn{
		Name:             "test_fn",
		Type:             fnType,
		CallingConv:      enum.CallingConvC,
		BodyCtx:          ctx,
		AllBlockContexts: []*symbols.BlockContext{ctx},
	}
	return &fixture{t: t, tab: tab, g: g, fn: fn, ctx: ctx}
}

// retFn switches the fixture's function to return the given type.
func (f *fixture) retFn(ret *types.Entry) {
	f.fn.Type = f.tab.FnType(nil, ret, false, enum.CallingConvC)
}

// lower runs Generate over a program whose only function body is the given
// statements, and returns the lowered function.
func (f *fixture) lower(implicitReturn *types.Entry, stmts ...*ast.Node) *ir.Func {
	f.t.Helper()
	body := &ast.Node{
		Kind:  ast.NodeBlock,
		Block: &ast.BlockExpr{Stmts: stmts, BlockCtx: f.ctx},
	}
	body.Resolved.Type = implicitReturn

	prog := &ast.Program{
		Protos: []*symbols.Fn{f.fn},
		Fns: []*ast.FnDef{{
			Entry:              f.fn,
			Body:               body,
			ImplicitReturnType: implicitReturn,
		}},
	}
	f.g.Generate(prog)
	return f.fn.LLValue
}

// declareCallee registers an external i32()->void style function to call in
// scenarios.
func (f *fixture) declareCallee(name string, params []*types.Entry, ret *types.Entry) *symbols.Fn {
	fnType := f.tab.FnType(params, ret, false, enum.CallingConvC)
	fn := &symbols.Fn{Name: name, Type: fnType, CallingConv: enum.CallingConvC, IsExtern: true}
	f.g.genProto(fn)
	return fn
}

// local registers a variable in the fixture's top scope.
func (f *fixture) local(name string, t *types.Entry) *symbols.Variable {
	return f.ctx.AddVariable(&symbols.Variable{Name: name, Type: t, GenArgIndex: -1})
}

// --- node builders -----------------------------------------------------

func typed(n *ast.Node, t *types.Entry) *ast.Node {
	n.Resolved.Type = t
	return n
}

func intLit(v int64, t *types.Entry) *ast.Node {
	return typed(&ast.Node{
		Kind:   ast.NodeNumLit,
		NumLit: &ast.NumLitExpr{Value: bignum.FromInt64(v)},
	}, t)
}

func boolLit(tab *types.Table, v bool) *ast.Node {
	return typed(&ast.Node{Kind: ast.NodeBoolLit, BoolLit: &ast.BoolLitExpr{Value: v}}, tab.Builtins().Bool)
}

func symbolRef(v *symbols.Variable) *ast.Node {
	return typed(&ast.Node{Kind: ast.NodeSymbol, Symbol: &ast.SymbolExpr{Name: v.Name, Variable: v}}, v.Type)
}

func fnRef(fn *symbols.Fn) *ast.Node {
	return typed(&ast.Node{Kind: ast.NodeSymbol, Symbol: &ast.SymbolExpr{Name: fn.Name, FnEntry: fn}}, fn.Type)
}

func callExpr(fn *symbols.Fn, args ...*ast.Node) *ast.Node {
	return typed(&ast.Node{
		Kind:   ast.NodeFnCall,
		FnCall: &ast.FnCallExpr{Callee: fnRef(fn), FnEntry: fn, Args: args},
	}, fn.Type.Fn.Return)
}

func binOp(op ast.BinOpKind, lhs, rhs *ast.Node, t *types.Entry) *ast.Node {
	return typed(&ast.Node{Kind: ast.NodeBinOp, BinOp: &ast.BinOpExpr{Op: op, LHS: lhs, RHS: rhs}}, t)
}

// --- module inspection -------------------------------------------------

func findBlock(fn *ir.Func, name string) *ir.Block {
	for _, b := range fn.Blocks {
		if b.LocalName == name {
			return b
		}
	}
	return nil
}

func callsTo(b *ir.Block, calleeName string) int {
	count := 0
	for _, inst := range b.Insts {
		call, ok := inst.(*ir.InstCall)
		if !ok {
			continue
		}
		if named, ok := call.Callee.(*ir.Func); ok && named.Name() == calleeName {
			count++
		}
	}
	return count
}

func totalCallsTo(fn *ir.Func, calleeName string) int {
	count := 0
	for _, b := range fn.Blocks {
		count += callsTo(b, calleeName)
	}
	return count
}

func containsInst(fn *ir.Func, sub string) bool {
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if strings.Contains(inst.LLString(), sub) {
				return true
			}
		}
	}
	return false
}
