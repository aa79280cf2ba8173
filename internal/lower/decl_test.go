package lower

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// Locals are alloca'd in the entry block with the type's alignment, and an
// uninitialized local gets the 0xAA poison fill in debug mode.
func TestVarDeclPoisonFillDebug(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	v := f.local("x", b.I64)
	declNode := typed(&ast.Node{Kind: ast.NodeVarDecl, VarDecl: &ast.VarDeclNode{Var: v}}, b.Void)

	fn := f.lower(b.Void, declNode)
	entry := fn.Blocks[0]

	var alloca *ir.InstAlloca
	for _, inst := range entry.Insts {
		if a, ok := inst.(*ir.InstAlloca); ok {
			alloca = a
		}
	}
	if alloca == nil {
		t.Fatalf("local was not allocated in the entry block")
	}
	if alloca.Align != 8 {
		t.Fatalf("alloca align = %d, want 8", alloca.Align)
	}

	var memset *ir.InstCall
	for _, inst := range entry.Insts {
		if c, ok := inst.(*ir.InstCall); ok {
			if named, ok := c.Callee.(*ir.Func); ok && named.Name() == "llvm.memset.p0i8.i64" {
				memset = c
			}
		}
	}
	if memset == nil {
		t.Fatalf("uninitialized local was not poison-filled in debug mode")
	}
	fill := memset.Args[1].(*constant.Int)
	if fill.X.Int64() != 0xAA {
		t.Fatalf("poison byte = %#x", fill.X.Int64())
	}
}

func TestVarDeclNoPoisonFillRelease(t *testing.T) {
	f := newFixtureMode(t, ModeRelease)
	b := f.tab.Builtins()

	v := f.local("x", b.I64)
	declNode := typed(&ast.Node{Kind: ast.NodeVarDecl, VarDecl: &ast.VarDeclNode{Var: v}}, b.Void)

	fn := f.lower(b.Void, declNode)
	if totalCallsTo(fn, "llvm.memset.p0i8.i64") != 0 {
		t.Fatalf("release build still poison-fills locals")
	}
}

// A slice local with a runtime length array-allocas the storage at the
// declaration point and populates ptr and len instead of poison-filling.
func TestVarDeclDynamicSliceBacking(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	sliceType := f.tab.SliceOf(b.U8, false)
	v := f.local("buf", sliceType)
	lenVar := f.local("n", b.Isize)

	declNode := typed(&ast.Node{
		Kind:    ast.NodeVarDecl,
		VarDecl: &ast.VarDeclNode{Var: v, DynSliceLen: symbolRef(lenVar)},
	}, b.Void)

	fn := f.lower(b.Void, declNode)
	entry := fn.Blocks[0]

	var dynAlloca *ir.InstAlloca
	for _, inst := range entry.Insts {
		if a, ok := inst.(*ir.InstAlloca); ok && a.NElems != nil {
			dynAlloca = a
		}
	}
	if dynAlloca == nil {
		t.Fatalf("runtime-sized slice did not array-alloca its backing store")
	}
	if totalCallsTo(fn, "llvm.memset.p0i8.i64") != 0 {
		t.Fatalf("dynamic slice local was poison-filled over its descriptor")
	}
}

// Scalar parameters bind directly; aggregate temporaries reserved on the
// scope are materialized in the prologue.
func TestPrologueParamsAndTemps(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	param := &symbols.Variable{Name: "n", Type: b.I32, GenArgIndex: 0}
	f.ctx.AddVariable(param)
	f.fn.ParamVars = []*symbols.Variable{param}
	f.fn.Type = f.tab.FnType([]*types.Entry{b.I32}, b.Void, false, enum.CallingConvC)

	maybeType := f.tab.MaybeOf(b.I32)
	castTemp := f.ctx.AddCastTemp(maybeType, source.Span{})
	valTemp := f.ctx.AddStructValTemp(f.tab.SliceOf(b.I32, false), source.Span{})

	fn := f.lower(b.Void)

	if param.IsPtr {
		t.Fatalf("scalar parameter was spilled to memory")
	}
	if param.ValueRef != fn.Params[0] {
		t.Fatalf("parameter not bound to its function argument")
	}
	if castTemp.Ptr == nil || valTemp.Ptr == nil {
		t.Fatalf("reserved temporaries were not materialized")
	}
	if _, ok := castTemp.Ptr.(*ir.InstAlloca); !ok {
		t.Fatalf("cast temporary is %T, want alloca", castTemp.Ptr)
	}
}

// Zero-sized variables produce no storage and no operands.
func TestZeroSizedVariableElided(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	v := f.local("nothing", b.Void)
	declNode := typed(&ast.Node{Kind: ast.NodeVarDecl, VarDecl: &ast.VarDeclNode{Var: v}}, b.Void)

	fn := f.lower(b.Void, declNode)

	if v.ValueRef != nil {
		t.Fatalf("zero-sized variable got storage")
	}
	for _, inst := range fn.Blocks[0].Insts {
		if _, ok := inst.(*ir.InstAlloca); ok {
			t.Fatalf("zero-sized variable allocated")
		}
	}
}

// Const pointer parameters are tagged readonly, noalias-declared ones
// noalias.
func TestParamAttributes(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	constPtr := f.tab.PointerTo(b.I32, true)
	mutPtr := f.tab.PointerTo(b.I32, false)

	pv1 := &symbols.Variable{Name: "a", Type: constPtr, GenArgIndex: 0}
	pv2 := &symbols.Variable{Name: "b", Type: mutPtr, GenArgIndex: 1}
	f.ctx.AddVariable(pv1)
	f.ctx.AddVariable(pv2)
	f.fn.ParamVars = []*symbols.Variable{pv1, pv2}
	f.fn.NoAliasParams = []bool{false, true}
	f.fn.Type = f.tab.FnType([]*types.Entry{constPtr, mutPtr}, b.Void, false, enum.CallingConvC)

	fn := f.lower(b.Void)

	hasAttr := func(p *ir.Param, want enum.ParamAttr) bool {
		for _, attr := range p.Attrs {
			if a, ok := attr.(enum.ParamAttr); ok && a == want {
				return true
			}
		}
		return false
	}
	if !hasAttr(fn.Params[0], enum.ParamAttrReadOnly) {
		t.Fatalf("const pointer param lacks readonly")
	}
	if !hasAttr(fn.Params[1], enum.ParamAttrNoAlias) {
		t.Fatalf("noalias param lacks noalias")
	}
}

// Globals: const globals carry their initializer, mutable ones a zero
// initializer; both are private unnamed_addr.
func TestGlobals(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	constVar := &symbols.Variable{Name: "answer", Type: b.I32, IsConst: true, GenArgIndex: -1}
	mutVar := &symbols.Variable{Name: "counter", Type: b.I64, GenArgIndex: -1}

	prog := &ast.Program{
		Globals: []*ast.GlobalDecl{
			{Var: constVar, Init: intLit(42, b.I32)},
			{Var: mutVar},
		},
	}
	f.g.Generate(prog)

	cg, ok := constVar.ValueRef.(*ir.Global)
	if !ok {
		t.Fatalf("const global not lowered")
	}
	if !cg.Immutable || cg.Linkage != enum.LinkagePrivate || cg.UnnamedAddr != enum.UnnamedAddrUnnamedAddr {
		t.Fatalf("const global attributes wrong")
	}
	init, ok := cg.Init.(*constant.Int)
	if !ok || init.X.Int64() != 42 {
		t.Fatalf("const global init = %v", cg.Init)
	}

	mg := mutVar.ValueRef.(*ir.Global)
	if mg.Immutable {
		t.Fatalf("mutable global marked constant")
	}
	if _, ok := mg.Init.(*constant.ZeroInitializer); !ok {
		t.Fatalf("mutable global init = %T, want zeroinitializer", mg.Init)
	}
}
