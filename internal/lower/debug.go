package lower

import (
	"path/filepath"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// debugInfo owns the debug metadata being attached to the module: the
// compile unit, per-function subprograms, lexical scopes, variable
// declarations, and the current source location.
type debugInfo struct {
	m    *ir.Module
	cu   *metadata.DICompileUnit
	file *metadata.DIFile

	declareFn *ir.Func
	emptyExpr *metadata.DIExpression

	curLoc    *metadata.DILocation
	typeCache map[*types.Entry]metadata.Field
}

func newDebugInfo(m *ir.Module, moduleName string, mode Mode) *debugInfo {
	d := &debugInfo{
		m:         m,
		typeCache: make(map[*types.Entry]metadata.Field),
	}

	d.file = &metadata.DIFile{
		Filename:  filepath.Base(moduleName),
		Directory: filepath.Dir(moduleName),
	}
	d.cu = &metadata.DICompileUnit{
		Distinct:     true,
		Language:     enum.DwarfLangC99,
		File:         d.file,
		Producer:     "ember",
		IsOptimized:  mode == ModeRelease,
		EmissionKind: enum.EmissionKindFullDebug,
	}
	d.register(d.file)
	d.register(d.cu)

	cuDef := &metadata.NamedDef{Name: "llvm.dbg.cu", Nodes: []metadata.Node{d.cu}}
	if m.NamedMetadataDefs == nil {
		m.NamedMetadataDefs = make(map[string]*metadata.NamedDef)
	}
	m.NamedMetadataDefs[cuDef.Name] = cuDef

	metadataType := &lltypes.MetadataType{}
	d.declareFn = m.NewFunc("llvm.dbg.declare", lltypes.Void,
		ir.NewParam("", metadataType),
		ir.NewParam("", metadataType),
		ir.NewParam("", metadataType),
	)
	d.emptyExpr = &metadata.DIExpression{}
	d.register(d.emptyExpr)
	return d
}

func (d *debugInfo) register(def metadata.Definition) {
	d.m.MetadataDefs = append(d.m.MetadataDefs, def)
}

// subprogram creates the debug entry for a function definition and attaches
// it to the low-level function.
func (d *debugInfo) subprogram(f *ir.Func, name string, pos source.LineCol) *metadata.DISubprogram {
	sp := &metadata.DISubprogram{
		Distinct:     true,
		Name:         name,
		Scope:        d.file,
		File:         d.file,
		Line:         int64(pos.Line),
		ScopeLine:    int64(pos.Line),
		IsDefinition: true,
		Unit:         d.cu,
	}
	d.register(sp)
	f.Metadata = append(f.Metadata, &metadata.Attachment{Name: "dbg", Node: sp})
	return sp
}

// lexicalBlock creates a scope under parent.
func (d *debugInfo) lexicalBlock(parent metadata.Field, pos source.LineCol) *metadata.DILexicalBlock {
	lb := &metadata.DILexicalBlock{
		Distinct: true,
		Scope:    parent,
		File:     d.file,
		Line:     int64(pos.Line),
		Column:   int64(pos.Col),
	}
	d.register(lb)
	return lb
}

// localVariable creates the debug entry for a variable. argNo is 1-based
// for parameters and 0 for locals.
func (d *debugInfo) localVariable(v *symbols.Variable, scope metadata.Field, pos source.LineCol, argNo uint64) *metadata.DILocalVariable {
	lv := &metadata.DILocalVariable{
		Name:  v.Name,
		Arg:   argNo,
		Scope: scope,
		File:  d.file,
		Line:  int64(pos.Line),
		Type:  d.debugType(v.Type),
	}
	d.register(lv)
	return lv
}

// location builds a source location in the given scope.
func (d *debugInfo) location(pos source.LineCol, scope metadata.Field) *metadata.DILocation {
	loc := &metadata.DILocation{
		Scope:  scope,
		Line:   int64(pos.Line),
		Column: int64(pos.Col),
	}
	d.register(loc)
	return loc
}

// insertDeclare emits the llvm.dbg.declare intrinsic binding storage to the
// debug variable at the end of block.
func (d *debugInfo) insertDeclare(block *ir.Block, storage value.Value, v *metadata.DILocalVariable, loc *metadata.DILocation) {
	call := block.NewCall(d.declareFn,
		&metadata.Value{Value: storage},
		&metadata.Value{Value: v},
		&metadata.Value{Value: d.emptyExpr},
	)
	if loc != nil {
		call.Metadata = append(call.Metadata, &metadata.Attachment{Name: "dbg", Node: loc})
	}
}

// debugType derives the debug-info handle for a type entry, caching on the
// entry identity.
func (d *debugInfo) debugType(e *types.Entry) metadata.Field {
	if cached, ok := d.typeCache[e]; ok {
		return cached
	}

	var node metadata.Field
	switch e.Kind {
	case types.KindBool:
		node = d.basicType(e, enum.DwarfAttEncodingBoolean)
	case types.KindInt:
		if e.Int.IsSigned {
			node = d.basicType(e, enum.DwarfAttEncodingSigned)
		} else {
			node = d.basicType(e, enum.DwarfAttEncodingUnsigned)
		}
	case types.KindFloat:
		node = d.basicType(e, enum.DwarfAttEncodingFloat)
	case types.KindPointer:
		dt := &metadata.DIDerivedType{
			Tag:      enum.DwarfTagPointerType,
			BaseType: d.debugType(e.Pointer.Child),
			Size:     e.SizeInBits,
		}
		d.register(dt)
		node = dt
	default:
		// aggregates and the rest render as named composites; member lists
		// are not needed by the consumers we target
		ct := &metadata.DICompositeType{
			Tag:   enum.DwarfTagStructureType,
			Name:  e.Name,
			Size:  e.SizeInBits,
			Align: e.AlignInBits,
		}
		d.register(ct)
		node = ct
	}

	d.typeCache[e] = node
	e.DI = node
	return node
}

func (d *debugInfo) basicType(e *types.Entry, encoding enum.DwarfAttEncoding) metadata.Field {
	bt := &metadata.DIBasicType{
		Name:     e.Name,
		Size:     e.SizeInBits,
		Encoding: encoding,
	}
	d.register(bt)
	return bt
}

// --- Gen-side hooks ----------------------------------------------------

// setDebugLocation records the source position subsequent instructions are
// attributed to.
func (g *Gen) setDebugLocation(span source.Span) {
	if g.dbg == nil || g.fset.Len() == 0 {
		return
	}
	scope := metadata.Field(g.dbg.cu)
	if g.blockCtx != nil && g.blockCtx.DIScope != nil {
		scope = g.blockCtx.DIScope
	}
	g.dbg.curLoc = g.dbg.location(g.fset.SpanPosition(span), scope)
}

// attachDebug attributes a call instruction to the current location.
func (g *Gen) attachDebug(call *ir.InstCall) {
	if g.dbg == nil || g.dbg.curLoc == nil {
		return
	}
	call.Metadata = append(call.Metadata, &metadata.Attachment{Name: "dbg", Node: g.dbg.curLoc})
}

func (g *Gen) pos(span source.Span) source.LineCol {
	if g.fset == nil || g.fset.Len() == 0 {
		return source.LineCol{Line: 1, Col: 1}
	}
	return g.fset.SpanPosition(span)
}
