package lower

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/symbols"
)

// A constant-true loop without break lowers to a single body block that
// branches back to itself; no condition block exists.
func TestWhileForeverSingleBlock(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()
	probe := f.declareCallee("probe", nil, b.Void)

	loopCtx := symbols.NewBlockContext(f.ctx, source.Span{})
	body := typed(&ast.Node{
		Kind:  ast.NodeBlock,
		Block: &ast.BlockExpr{Stmts: []*ast.Node{callExpr(probe)}, BlockCtx: loopCtx},
	}, b.Void)

	whileNode := typed(&ast.Node{
		Kind: ast.NodeWhile,
		While: &ast.WhileExpr{
			Cond:           boolLit(f.tab, true),
			Body:           body,
			CondAlwaysTrue: true,
			BlockCtx:       loopCtx,
		},
	}, b.Void)

	fn := f.lower(b.Unreachable, whileNode)

	if findBlock(fn, "WhileCond") != nil {
		t.Fatalf("forever loop grew a condition block")
	}
	bodyBlock := findBlock(fn, "WhileBody")
	if bodyBlock == nil {
		t.Fatalf("missing WhileBody")
	}
	br, ok := bodyBlock.Term.(*ir.TermBr)
	if !ok || br.Target.(*ir.Block) != bodyBlock {
		t.Fatalf("forever loop does not branch back to its own body")
	}
	if findBlock(fn, "WhileEnd") != nil {
		t.Fatalf("forever loop without break grew an end block")
	}
}

// The general while form: cond/body/end, break and continue target the
// innermost loop's end and cond blocks.
func TestWhileGeneralFormWithBreak(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	loopCtx := symbols.NewBlockContext(f.ctx, source.Span{})
	breakNode := typed(&ast.Node{Kind: ast.NodeBreak}, b.Unreachable)
	// a block ending in break is itself typed Unreachable
	body := typed(&ast.Node{
		Kind:  ast.NodeBlock,
		Block: &ast.BlockExpr{Stmts: []*ast.Node{breakNode}, BlockCtx: loopCtx},
	}, b.Unreachable)

	whileNode := typed(&ast.Node{
		Kind: ast.NodeWhile,
		While: &ast.WhileExpr{
			Cond:          boolLit(f.tab, false),
			Body:          body,
			ContainsBreak: true,
			BlockCtx:      loopCtx,
		},
	}, b.Void)

	fn := f.lower(b.Void, whileNode)

	cond := findBlock(fn, "WhileCond")
	bodyBlock := findBlock(fn, "WhileBody")
	end := findBlock(fn, "WhileEnd")
	if cond == nil || bodyBlock == nil || end == nil {
		t.Fatalf("missing while blocks")
	}
	br, ok := bodyBlock.Term.(*ir.TermBr)
	if !ok || br.Target.(*ir.Block) != end {
		t.Fatalf("break does not target the loop end block")
	}
	if _, ok := cond.Term.(*ir.TermCondBr); !ok {
		t.Fatalf("condition block does not branch conditionally")
	}
}

// For over a fixed array: index starts at zero, the bound is the constant
// length, comparison is signed-less-than, the index increments by one.
func TestForOverArray(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	arrayType := f.tab.ArrayOf(b.U8, 4)
	arrayVar := f.local("items", arrayType)
	elemVar := f.local("x", b.U8)
	indexVar := f.local("i", b.Isize)

	loopCtx := symbols.NewBlockContext(f.ctx, source.Span{})
	body := typed(&ast.Node{
		Kind:  ast.NodeBlock,
		Block: &ast.BlockExpr{Stmts: nil, BlockCtx: loopCtx},
	}, b.Void)

	forNode := typed(&ast.Node{
		Kind: ast.NodeFor,
		For: &ast.ForExpr{
			ElemVar:   elemVar,
			IndexVar:  indexVar,
			ArrayExpr: symbolRef(arrayVar),
			Body:      body,
			BlockCtx:  loopCtx,
		},
	}, b.Void)

	fn := f.lower(b.Void, forNode)

	cond := findBlock(fn, "ForCond")
	bodyBlock := findBlock(fn, "ForBody")
	end := findBlock(fn, "ForEnd")
	if cond == nil || bodyBlock == nil || end == nil {
		t.Fatalf("missing for blocks")
	}

	var cmp *ir.InstICmp
	for _, inst := range cond.Insts {
		if c, ok := inst.(*ir.InstICmp); ok {
			cmp = c
		}
	}
	if cmp == nil || cmp.Pred != enum.IPredSLT {
		t.Fatalf("for condition is not a signed-less-than compare")
	}

	// the body increments and stores the index before looping
	foundAdd := false
	for _, inst := range bodyBlock.Insts {
		if _, ok := inst.(*ir.InstAdd); ok {
			foundAdd = true
		}
	}
	if !foundAdd {
		t.Fatalf("for body does not increment the index")
	}
	br, ok := bodyBlock.Term.(*ir.TermBr)
	if !ok || br.Target.(*ir.Block) != cond {
		t.Fatalf("for body does not loop back to the condition")
	}
}

// Goto and labels: label blocks are pre-created; goto branches to them; a
// fall-through into a label emits an explicit branch.
func TestGotoAndLabels(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	label := &symbols.Label{Name: "next", EnteredFromFallthrough: true}
	labelNode := typed(&ast.Node{Kind: ast.NodeLabel, Label: &ast.LabelNode{Name: "next", Label: label}}, b.Void)
	gotoNode := typed(&ast.Node{Kind: ast.NodeGoto, Goto: &ast.GotoNode{Name: "next", Label: label}}, b.Unreachable)

	body := &ast.Node{
		Kind:  ast.NodeBlock,
		Block: &ast.BlockExpr{Stmts: []*ast.Node{labelNode, gotoNode}, BlockCtx: f.ctx},
	}
	body.Resolved.Type = b.Unreachable

	prog := &ast.Program{
		Protos: []*symbols.Fn{f.fn},
		Fns: []*ast.FnDef{{
			Entry:              f.fn,
			Body:               body,
			ImplicitReturnType: b.Unreachable,
			Labels:             []*symbols.Label{label},
		}},
	}
	f.g.Generate(prog)
	fn := f.fn.LLValue

	labelBlock := findBlock(fn, "next")
	if labelBlock == nil {
		t.Fatalf("label block was not pre-created")
	}
	entry := fn.Blocks[0]
	br, ok := entry.Term.(*ir.TermBr)
	if !ok || br.Target.(*ir.Block) != labelBlock {
		t.Fatalf("fall-through into the label did not branch to it")
	}
	br2, ok := labelBlock.Term.(*ir.TermBr)
	if !ok || br2.Target.(*ir.Block) != labelBlock {
		t.Fatalf("goto does not branch to the label block")
	}
}

// If-let over a maybe gives the binding storage and branches on the
// scrutinee's present bit.
func TestIfVarBindsUnwrappedPayload(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	maybeType := f.tab.MaybeOf(b.Bool)
	x := f.local("x", maybeType)

	thenCtx := symbols.NewBlockContext(f.ctx, source.Span{})
	y := thenCtx.AddVariable(&symbols.Variable{Name: "y", Type: b.Bool, IsConst: true, GenArgIndex: -1})
	f.fn.AllBlockContexts = append(f.fn.AllBlockContexts, thenCtx)

	thenArm := typed(&ast.Node{
		Kind:  ast.NodeBlock,
		Block: &ast.BlockExpr{Stmts: nil, BlockCtx: thenCtx},
	}, b.Void)
	elseArm := typed(&ast.Node{
		Kind:  ast.NodeBlock,
		Block: &ast.BlockExpr{Stmts: nil, BlockCtx: symbols.NewBlockContext(f.ctx, source.Span{})},
	}, b.Void)

	ifVarNode := typed(&ast.Node{
		Kind: ast.NodeIfVar,
		IfVar: &ast.IfVarExpr{
			Var:      y,
			Expr:     symbolRef(x),
			Then:     thenArm,
			Else:     elseArm,
			BlockCtx: thenCtx,
		},
	}, b.Void)

	fn := f.lower(b.Void, ifVarNode)

	if y.ValueRef == nil {
		t.Fatalf("binding variable got no storage")
	}
	then := findBlock(fn, "Then")
	if then == nil || findBlock(fn, "Else") == nil {
		t.Fatalf("missing if-let arms")
	}
	// condition is a load of the present bit (field 1)
	entry := fn.Blocks[0]
	condBr, ok := entry.Term.(*ir.TermCondBr)
	if !ok {
		t.Fatalf("entry does not branch on the present bit")
	}
	if _, ok := condBr.Cond.(*ir.InstLoad); !ok {
		t.Fatalf("condition is %T, want a load of the present bit", condBr.Cond)
	}
}
