// Package lower translates the annotated AST into LLIR. The engine is a
// recursive traversal that emits typed instructions into the current basic
// block of the current function and returns a low-level value, or nil for
// zero-sized results.
//
// The engine is single-threaded and non-suspending: one Gen per module
// build, all mutation sequential.
package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// Mode selects debug or release lowering behavior (poison fills, module
// verification).
type Mode uint8

const (
	ModeDebug Mode = iota
	ModeRelease
)

// Gen owns all state of one lowering run.
type Gen struct {
	Module *ir.Module
	Types  *types.Table

	fset *source.FileSet
	mode Mode
	dbg  *debugInfo

	fn       *symbols.Fn
	block    *ir.Block
	blockCtx *symbols.BlockContext

	breakStack    []*ir.Block
	continueStack []*ir.Block
	blockNames    map[string]int

	strTable map[string]*ir.Global
	memcpyFn *ir.Func
	memsetFn *ir.Func
}

// New creates a generator for one module. The type table's overflow
// intrinsics are registered against the fresh module here.
func New(tab *types.Table, fset *source.FileSet, mode Mode, moduleName string) *Gen {
	m := ir.NewModule()
	m.SourceFilename = moduleName

	g := &Gen{
		Module:   m,
		Types:    tab,
		fset:     fset,
		mode:     mode,
		strTable: make(map[string]*ir.Global),
	}
	// without a file set there is nothing to attribute locations to, so
	// debug info is stripped entirely
	if fset != nil {
		g.dbg = newDebugInfo(m, moduleName, mode)
	}
	tab.InstallOverflowIntrinsics(m)
	g.declareMemIntrinsics()
	return g
}

func (g *Gen) declareMemIntrinsics() {
	ptrU8 := lltypes.NewPointer(lltypes.I8)
	lenType := g.Types.Builtins().Usize.LL

	g.memcpyFn = g.Module.NewFunc(
		fmt.Sprintf("llvm.memcpy.p0i8.p0i8.i%d", g.Types.Target().PtrBits),
		lltypes.Void,
		ir.NewParam("", ptrU8), ir.NewParam("", ptrU8),
		ir.NewParam("", lenType), ir.NewParam("", lltypes.I32), ir.NewParam("", lltypes.I1),
	)
	g.memsetFn = g.Module.NewFunc(
		fmt.Sprintf("llvm.memset.p0i8.i%d", g.Types.Target().PtrBits),
		lltypes.Void,
		ir.NewParam("", ptrU8), ir.NewParam("", lltypes.I8),
		ir.NewParam("", lenType), ir.NewParam("", lltypes.I32), ir.NewParam("", lltypes.I1),
	)
}

// Generate lowers a whole program: globals first, then prototypes so call
// sites can reference any function, then bodies.
func (g *Gen) Generate(prog *ast.Program) {
	for _, gd := range prog.Globals {
		g.genGlobal(gd)
	}
	for _, fn := range prog.Protos {
		g.genProto(fn)
	}
	for _, def := range prog.Fns {
		g.genFnDef(def)
	}
}

// --- context scoping ---------------------------------------------------

// pushBlockCtx swaps the current block context and returns a restore
// function, so every traversal exit path puts the old scope back.
func (g *Gen) pushBlockCtx(bc *symbols.BlockContext) func() {
	old := g.blockCtx
	g.blockCtx = bc
	return func() { g.blockCtx = old }
}

func (g *Gen) pushLoop(breakBlock, continueBlock *ir.Block) func() {
	g.breakStack = append(g.breakStack, breakBlock)
	g.continueStack = append(g.continueStack, continueBlock)
	return func() {
		g.breakStack = g.breakStack[:len(g.breakStack)-1]
		g.continueStack = g.continueStack[:len(g.continueStack)-1]
	}
}

// appendBlock adds a new basic block to the current function, suffixing
// repeated names with an ordinal so every block label stays unique.
func (g *Gen) appendBlock(name string) *ir.Block {
	if n, ok := g.blockNames[name]; ok {
		g.blockNames[name] = n + 1
		name = fmt.Sprintf("%s%d", name, n)
	} else {
		g.blockNames[name] = 1
	}
	return g.fn.LLValue.NewBlock(name)
}

// --- constants ---------------------------------------------------------

func (g *Gen) isizeConst(v int64) constant.Constant {
	return constant.NewInt(g.Types.Builtins().Isize.LL.(*lltypes.IntType), v)
}

func (g *Gen) isizeZero() constant.Constant {
	return g.isizeConst(0)
}

func boolConst(v bool) constant.Constant {
	if v {
		return constant.NewInt(lltypes.I1, 1)
	}
	return constant.NewInt(lltypes.I1, 0)
}

// --- memory helpers ----------------------------------------------------

// structGEP addresses field index of a struct value through its pointer.
func (g *Gen) structGEP(structType *types.Entry, ptr value.Value, index int64) value.Value {
	gep := g.block.NewGetElementPtr(structType.LL, ptr,
		constant.NewInt(lltypes.I32, 0),
		constant.NewInt(lltypes.I32, index))
	gep.InBounds = true
	return gep
}

// load reads a scalar of the given type through ptr.
func (g *Gen) load(t lltypes.Type, ptr value.Value) value.Value {
	return g.block.NewLoad(t, ptr)
}

// structMemcpy copies an aggregate value between two pointers using the
// memcpy intrinsic with the type's size and alignment.
func (g *Gen) structMemcpy(span source.Span, src, dest value.Value, t *types.Entry) value.Value {
	if !types.HandleIsPtr(t) {
		panic(fmt.Sprintf("lower: struct memcpy of scalar type %s", t.Name))
	}

	ptrU8 := lltypes.NewPointer(lltypes.I8)
	g.setDebugLocation(span)
	srcPtr := g.block.NewBitCast(src, ptrU8)
	destPtr := g.block.NewBitCast(dest, ptrU8)

	call := g.block.NewCall(g.memcpyFn,
		destPtr,
		srcPtr,
		constant.NewInt(g.Types.Builtins().Usize.LL.(*lltypes.IntType), int64(t.SizeInBits/8)), //nolint:gosec // G115: sizes fit
		constant.NewInt(lltypes.I32, int64(t.AlignInBits/8)),                                   //nolint:gosec // G115: alignments fit
		boolConst(false),
	)
	g.attachDebug(call)
	return call
}

// assignRaw stores value into targetRef: memcpy for aggregates, store for
// scalars. Compound assignment loads, applies op, stores.
func (g *Gen) assignRaw(span source.Span, op ast.BinOpKind, targetRef, val value.Value, lhsType, rhsType *types.Entry) value.Value {
	if types.HandleIsPtr(lhsType) {
		if lhsType != rhsType {
			panic(fmt.Sprintf("lower: aggregate assign type mismatch: %s vs %s", lhsType.Name, rhsType.Name))
		}
		if op != ast.BinOpAssign {
			panic("lower: compound assignment of aggregate")
		}
		return g.structMemcpy(span, val, targetRef, lhsType)
	}

	if op != ast.BinOpAssign {
		g.setDebugLocation(span)
		leftValue := g.load(lhsType.LL, targetRef)
		val = g.arithmeticBinOp(span, leftValue, val, lhsType, rhsType, op)
	}

	g.setDebugLocation(span)
	g.block.NewStore(val, targetRef)
	return val
}

// --- globals and prototypes --------------------------------------------

func (g *Gen) genGlobal(gd *ast.GlobalDecl) {
	v := gd.Var

	var init constant.Constant
	if v.IsConst {
		init = g.constExpr(gd.Init)
	} else {
		init = constant.NewZeroInitializer(v.Type.LL)
	}

	global := g.Module.NewGlobalDef("", init)
	global.Linkage = enum.LinkagePrivate
	global.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
	global.Immutable = v.IsConst
	v.ValueRef = global
	v.IsPtr = true
}

// constExpr lowers a global initializer to a constant. Non-constant
// initializers for globals were rejected upstream.
func (g *Gen) constExpr(n *ast.Node) constant.Constant {
	switch n.Kind {
	case ast.NodeNumLit:
		return g.numLitConst(n)
	case ast.NodeBoolLit:
		return boolConst(n.BoolLit.Value)
	case ast.NodeCharLit:
		return constant.NewInt(lltypes.I8, int64(n.CharLit.Value))
	default:
		panic(fmt.Sprintf("lower: global initializer is not a constant (node kind %d)", n.Kind))
	}
}

func (g *Gen) genProto(fn *symbols.Fn) {
	info := fn.Type.Fn
	sig := fn.Type.LL.(*lltypes.FuncType)

	params := make([]*ir.Param, 0, len(sig.Params))
	genIndex := 0
	for i, p := range info.Params {
		if p.SizeInBits == 0 {
			continue
		}
		name := ""
		if i < len(fn.ParamVars) {
			name = fn.ParamVars[i].Name
		}
		params = append(params, ir.NewParam(name, sig.Params[genIndex]))
		genIndex++
	}

	f := g.Module.NewFunc(fn.Name, sig.RetType, params...)
	f.CallingConv = info.CallingConv
	if sig.Variadic {
		f.Sig.Variadic = true
	}
	fn.LLValue = f

	g.addParamAttrs(fn)
}

// addParamAttrs tags pointer parameters: noalias when declared so,
// readonly for const pointers.
func (g *Gen) addParamAttrs(fn *symbols.Fn) {
	genIndex := 0
	for i, p := range fn.Type.Fn.Params {
		if p.SizeInBits == 0 {
			continue
		}
		param := fn.LLValue.Params[genIndex]
		noalias := i < len(fn.NoAliasParams) && fn.NoAliasParams[i]
		if p.Kind == types.KindPointer && noalias {
			param.Attrs = append(param.Attrs, enum.ParamAttrNoAlias)
		}
		if p.Kind == types.KindPointer && p.Pointer.IsConst {
			param.Attrs = append(param.Attrs, enum.ParamAttrReadOnly)
		}
		genIndex++
	}
}

// --- string literals ---------------------------------------------------

// findOrCreateString interns a string constant as a private unnamed-addr
// global. C literals are NUL-terminated.
func (g *Gen) findOrCreateString(s string, isC bool) *ir.Global {
	key := s
	if isC {
		key += "\x00c"
	}
	if existing, ok := g.strTable[key]; ok {
		return existing
	}

	data := s
	if isC {
		data += "\x00"
	}
	text := constant.NewCharArrayFromString(data)
	global := g.Module.NewGlobalDef("", text)
	global.Linkage = enum.LinkagePrivate
	global.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
	global.Immutable = true
	g.strTable[key] = global
	return global
}
