package lower

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

// Short-circuit: in `false and E` the call to E must live only in the
// conditionally-entered BoolAndTrue block, and the entry block must branch
// on the literal false.
func TestShortCircuitAndGuardsRHS(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()
	probe := f.declareCallee("probe", nil, b.Bool)

	andNode := binOp(ast.BinOpBoolAnd, boolLit(f.tab, false), callExpr(probe), b.Bool)
	fn := f.lower(b.Void, andNode)

	entry := fn.Blocks[0]
	if callsTo(entry, "probe") != 0 {
		t.Fatalf("rhs call lowered into the unconditional entry block")
	}
	trueBlock := findBlock(fn, "BoolAndTrue")
	if trueBlock == nil {
		t.Fatalf("missing BoolAndTrue block")
	}
	if callsTo(trueBlock, "probe") != 1 {
		t.Fatalf("rhs call not guarded by BoolAndTrue")
	}

	condBr, ok := entry.Term.(*ir.TermCondBr)
	if !ok {
		t.Fatalf("entry terminator is %T", entry.Term)
	}
	c, ok := condBr.Cond.(*constant.Int)
	if !ok || c.X.Int64() != 0 {
		t.Fatalf("entry branches on %v, want literal false", condBr.Cond)
	}
}

func TestShortCircuitOrGuardsRHS(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()
	probe := f.declareCallee("probe", nil, b.Bool)

	orNode := binOp(ast.BinOpBoolOr, boolLit(f.tab, true), callExpr(probe), b.Bool)
	fn := f.lower(b.Void, orNode)

	if callsTo(fn.Blocks[0], "probe") != 0 {
		t.Fatalf("rhs call lowered into the unconditional entry block")
	}
	falseBlock := findBlock(fn, "BoolOrFalse")
	if falseBlock == nil || callsTo(falseBlock, "probe") != 1 {
		t.Fatalf("rhs call not guarded by BoolOrFalse")
	}
}

// The phi at the join must name the blocks current at branch time, not the
// blocks the operands started in: lowering the rhs of the outer `and` adds
// blocks of its own.
func TestShortCircuitPhiUsesBranchTimeBlocks(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()
	probe := f.declareCallee("probe", nil, b.Bool)

	inner := binOp(ast.BinOpBoolAnd, callExpr(probe), callExpr(probe), b.Bool)
	outer := binOp(ast.BinOpBoolAnd, boolLit(f.tab, true), inner, b.Bool)
	fn := f.lower(b.Void, outer)

	// the outer join is the first BoolAndFalse block created
	outerJoin := findBlock(fn, "BoolAndFalse")
	if outerJoin == nil {
		t.Fatalf("missing outer join block")
	}
	var phi *ir.InstPhi
	for _, inst := range outerJoin.Insts {
		if p, ok := inst.(*ir.InstPhi); ok {
			phi = p
			break
		}
	}
	if phi == nil {
		t.Fatalf("outer join has no phi")
	}
	// the second incoming must come from the inner expression's own join
	// block, not from the block the rhs evaluation started in
	inc := phi.Incs[1]
	pred, ok := inc.Pred.(*ir.Block)
	if !ok {
		t.Fatalf("phi incoming pred is %T", inc.Pred)
	}
	if pred.LocalName != "BoolAndFalse1" {
		t.Fatalf("phi incoming from %q, want the inner join BoolAndFalse1", pred.LocalName)
	}
}

// If-value reachability: when the then-arm is typed Unreachable, the join
// has no phi and the if's value is the else value.
func TestIfValueUnreachableThenArm(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()
	f.retFn(b.I32)

	thenArm := typed(&ast.Node{Kind: ast.NodeReturn, Return: &ast.ReturnExpr{Expr: intLit(7, b.I32)}}, b.Unreachable)
	elseArm := intLit(42, b.I32)
	ifNode := typed(&ast.Node{
		Kind:   ast.NodeIfBool,
		IfBool: &ast.IfBoolExpr{Cond: boolLit(f.tab, false), Then: thenArm, Else: elseArm},
	}, b.I32)
	retNode := typed(&ast.Node{Kind: ast.NodeReturn, Return: &ast.ReturnExpr{Expr: ifNode}}, b.Unreachable)

	fn := f.lower(b.Unreachable, retNode)

	endIf := findBlock(fn, "EndIf")
	if endIf == nil {
		t.Fatalf("missing EndIf block")
	}
	for _, inst := range endIf.Insts {
		if _, ok := inst.(*ir.InstPhi); ok {
			t.Fatalf("join has a phi although only the else arm reaches it")
		}
	}
	ret, ok := endIf.Term.(*ir.TermRet)
	if !ok {
		t.Fatalf("EndIf terminator is %T", endIf.Term)
	}
	c, ok := ret.X.(*constant.Int)
	if !ok || c.X.Int64() != 42 {
		t.Fatalf("if-value = %v, want the else constant 42", ret.X)
	}
}

// Both arms reachable: the value is a phi whose incomings are the arm
// results from the arm-end blocks.
func TestIfValueBothArmsPhi(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()
	f.retFn(b.I32)

	ifNode := typed(&ast.Node{
		Kind: ast.NodeIfBool,
		IfBool: &ast.IfBoolExpr{
			Cond: boolLit(f.tab, true),
			Then: intLit(1, b.I32),
			Else: intLit(2, b.I32),
		},
	}, b.I32)
	retNode := typed(&ast.Node{Kind: ast.NodeReturn, Return: &ast.ReturnExpr{Expr: ifNode}}, b.Unreachable)

	fn := f.lower(b.Unreachable, retNode)

	endIf := findBlock(fn, "EndIf")
	if endIf == nil {
		t.Fatalf("missing EndIf block")
	}
	phi, ok := endIf.Insts[0].(*ir.InstPhi)
	if !ok {
		t.Fatalf("join does not start with a phi")
	}
	if len(phi.Incs) != 2 {
		t.Fatalf("phi has %d incomings", len(phi.Incs))
	}
	if phi.Incs[0].Pred.(*ir.Block).LocalName != "Then" ||
		phi.Incs[1].Pred.(*ir.Block).LocalName != "Else" {
		t.Fatalf("phi incomings from %v/%v", phi.Incs[0].Pred, phi.Incs[1].Pred)
	}
}

// Slice length: (a[5..10]).len is stored as the sub of the lowered bounds.
func TestSliceExprLenIsEndMinusStart(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	arrayType := f.tab.ArrayOf(b.I32, 20)
	sliceType := f.tab.SliceOf(b.I32, false)
	arrayVar := f.local("array", arrayType)
	temp := f.ctx.AddStructValTemp(sliceType, spanZero())

	sliceNode := typed(&ast.Node{
		Kind: ast.NodeSliceExpr,
		SliceExpr: &ast.SliceExprNode{
			Array: symbolRef(arrayVar),
			Start: intLit(5, b.Isize),
			End:   intLit(10, b.Isize),
			Temp:  temp,
		},
	}, sliceType)

	fn := f.lower(b.Void, sliceNode)

	var found bool
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			sub, ok := inst.(*ir.InstSub)
			if !ok {
				continue
			}
			x, xok := sub.X.(*constant.Int)
			y, yok := sub.Y.(*constant.Int)
			if xok && yok && x.X.Int64() == 10 && y.X.Int64() == 5 {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("slice len is not lowered as end - start")
	}
	if temp.Ptr == nil {
		t.Fatalf("slice temporary was not materialized in the prologue")
	}
}

// Maybe round-trip: `x ?? d` produces the three-block unwrap shape with a
// phi over the loaded payload and the default.
func TestMaybeUnwrapShape(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()
	f.retFn(b.Bool)

	maybeType := f.tab.MaybeOf(b.Bool)
	x := f.local("x", maybeType)

	unwrap := binOp(ast.BinOpUnwrapMaybe, symbolRef(x), boolLit(f.tab, false), b.Bool)
	retNode := typed(&ast.Node{Kind: ast.NodeReturn, Return: &ast.ReturnExpr{Expr: unwrap}}, b.Unreachable)

	fn := f.lower(b.Unreachable, retNode)

	nonNull := findBlock(fn, "MaybeNonNull")
	null := findBlock(fn, "MaybeNull")
	end := findBlock(fn, "MaybeEnd")
	if nonNull == nil || null == nil || end == nil {
		t.Fatalf("missing maybe unwrap blocks")
	}

	phi, ok := end.Insts[0].(*ir.InstPhi)
	if !ok {
		t.Fatalf("MaybeEnd does not join with a phi")
	}
	if phi.Incs[0].Pred.(*ir.Block) != nonNull || phi.Incs[1].Pred.(*ir.Block) != null {
		t.Fatalf("phi incomings are not the unwrap arms")
	}
	// the payload side loads field 0 of the maybe aggregate
	foundLoad := false
	for _, inst := range nonNull.Insts {
		if _, ok := inst.(*ir.InstLoad); ok {
			foundLoad = true
		}
	}
	if !foundLoad {
		t.Fatalf("present arm does not load the payload")
	}
}

// Aggregate assignment is a memcpy of size/8 bytes at align/8.
func TestAggregateAssignmentMemcpy(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	pointType := f.tab.NewStructType("Point")
	f.tab.ResolveStruct(pointType, []types.StructField{
		{Name: "x", Type: b.I64},
		{Name: "y", Type: b.I64},
	})

	src := f.local("src", pointType)
	dst := f.local("dst", pointType)

	assign := binOp(ast.BinOpAssign, symbolRef(dst), symbolRef(src), b.Void)
	fn := f.lower(b.Void, assign)

	var call *ir.InstCall
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if c, ok := inst.(*ir.InstCall); ok {
				if named, ok := c.Callee.(*ir.Func); ok && named.Name() == "llvm.memcpy.p0i8.p0i8.i64" {
					call = c
				}
			}
		}
	}
	if call == nil {
		t.Fatalf("aggregate assignment did not lower to memcpy")
	}
	size := call.Args[2].(*constant.Int)
	align := call.Args[3].(*constant.Int)
	if size.X.Int64() != 16 {
		t.Fatalf("memcpy size = %d bytes", size.X.Int64())
	}
	if align.X.Int64() != 8 {
		t.Fatalf("memcpy align = %d bytes", align.X.Int64())
	}
}

// MaybeWrap cast: operand into field 0, literal true into field 1, value
// is the temporary's pointer.
func TestMaybeWrapCast(t *testing.T) {
	f := newFixture(t)
	b := f.tab.Builtins()

	maybeType := f.tab.MaybeOf(b.Bool)
	temp := f.ctx.AddCastTemp(maybeType, spanZero())

	wrapped := boolLit(f.tab, true)
	wrapped.Resolved.ImplicitMaybeCast = ast.Cast{
		Op:        ast.CastMaybeWrap,
		AfterType: maybeType,
		Temp:      temp,
	}

	fn := f.lower(b.Void, wrapped)

	if temp.Ptr == nil {
		t.Fatalf("cast temporary was not materialized")
	}
	stores := 0
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if _, ok := inst.(*ir.InstStore); ok {
				stores++
			}
		}
	}
	// payload store + present-bit store
	if stores != 2 {
		t.Fatalf("maybe wrap emitted %d stores, want 2", stores)
	}
}

func spanZero() source.Span {
	return source.Span{}
}
