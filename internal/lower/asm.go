package lower

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"ember/internal/ast"
)

// findAsmIndex resolves a %[name] token to its position in the
// outputs-then-inputs concatenation.
func findAsmIndex(e *ast.AsmExpr, tok *ast.AsmToken) int {
	name := e.Template[tok.Start+2 : tok.End]
	index := 0
	for _, out := range e.Outputs {
		if out.SymbolicName == name {
			return index
		}
		index++
	}
	for _, in := range e.Inputs {
		if in.SymbolicName == name {
			return index
		}
		index++
	}
	return -1
}

// asmExpr lowers inline assembly: the template is rewritten ($ doubled,
// %% collapsed, named references replaced with positional $N), the
// constraint string is the comma-joined outputs (= or =*), inputs, and
// ~{clobbers}, and the call is volatile when the source says so or there
// are no outputs.
func (g *Gen) asmExpr(n *ast.Node) value.Value {
	e := n.Asm

	var template strings.Builder
	for i := range e.Tokens {
		tok := &e.Tokens[i]
		switch tok.Kind {
		case ast.AsmTokenTemplate:
			for _, c := range []byte(e.Template[tok.Start:tok.End]) {
				if c == '$' {
					template.WriteString("$$")
				} else {
					template.WriteByte(c)
				}
			}
		case ast.AsmTokenPercent:
			template.WriteByte('%')
		case ast.AsmTokenVar:
			index := findAsmIndex(e, tok)
			if index < 0 {
				panic(fmt.Sprintf("lower: asm references unknown operand %q", e.Template[tok.Start:tok.End]))
			}
			fmt.Fprintf(&template, "$%d", index)
		}
	}

	if e.ReturnCount != 0 && e.ReturnCount != 1 {
		panic(fmt.Sprintf("lower: asm return count %d", e.ReturnCount))
	}

	constraints := make([]string, 0, len(e.Outputs)+len(e.Inputs)+len(e.Clobbers))
	paramTypes := make([]lltypes.Type, 0, len(e.Outputs)+len(e.Inputs))
	paramValues := make([]value.Value, 0, len(e.Outputs)+len(e.Inputs))

	for _, out := range e.Outputs {
		if !strings.HasPrefix(out.Constraint, "=") {
			panic(fmt.Sprintf("lower: asm output constraint %q lacks '='", out.Constraint))
		}
		if out.IsReturn {
			constraints = append(constraints, "="+out.Constraint[1:])
			continue
		}
		constraints = append(constraints, "=*"+out.Constraint[1:])
		v := out.Variable
		if v == nil {
			panic("lower: asm output bound to no variable")
		}
		paramTypes = append(paramTypes, lltypes.NewPointer(v.Type.LL))
		paramValues = append(paramValues, v.ValueRef)
	}
	for _, in := range e.Inputs {
		constraints = append(constraints, in.Constraint)
		paramTypes = append(paramTypes, in.Expr.TypeEntry().LL)
		paramValues = append(paramValues, g.Expr(in.Expr))
	}
	for _, clobber := range e.Clobbers {
		constraints = append(constraints, fmt.Sprintf("~{%s}", clobber))
	}

	var retType lltypes.Type = lltypes.Void
	if e.ReturnCount == 1 {
		retType = n.TypeEntry().LL
	}
	fnType := lltypes.NewFunc(retType, paramTypes...)

	asmFn := ir.NewInlineAsm(fnType, template.String(), strings.Join(constraints, ","))
	asmFn.SideEffect = e.IsVolatile || len(e.Outputs) == 0

	g.setDebugLocation(n.Span)
	call := g.block.NewCall(asmFn, paramValues...)
	g.attachDebug(call)
	return call
}
