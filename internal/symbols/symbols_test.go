package symbols

import (
	"testing"

	"ember/internal/source"
	"ember/internal/types"
)

func TestFindVariableWalksScopeChain(t *testing.T) {
	tab := types.NewTable(types.Target{PtrBits: 64})
	outer := NewBlockContext(nil, source.Span{})
	inner := NewBlockContext(outer, source.Span{})

	x := outer.AddVariable(&Variable{Name: "x", Type: tab.Builtins().I32})
	shadow := inner.AddVariable(&Variable{Name: "x", Type: tab.Builtins().I64})

	if got := inner.FindVariable("x"); got != shadow {
		t.Fatalf("inner lookup did not prefer the shadowing variable")
	}
	if got := outer.FindVariable("x"); got != x {
		t.Fatalf("outer lookup found %v", got)
	}
	if inner.FindVariable("y") != nil {
		t.Fatalf("lookup invented a variable")
	}
}

func TestTempSlotRegistration(t *testing.T) {
	tab := types.NewTable(types.Target{PtrBits: 64})
	ctx := NewBlockContext(nil, source.Span{})

	maybeType := tab.MaybeOf(tab.Builtins().Bool)
	cast := ctx.AddCastTemp(maybeType, source.Span{})
	val := ctx.AddStructValTemp(tab.SliceOf(tab.Builtins().U8, false), source.Span{})

	if len(ctx.CastTemps) != 1 || ctx.CastTemps[0] != cast {
		t.Fatalf("cast temp not registered")
	}
	if len(ctx.StructValTemps) != 1 || ctx.StructValTemps[0] != val {
		t.Fatalf("struct value temp not registered")
	}
	if cast.Ptr != nil {
		t.Fatalf("temp slot pre-materialized")
	}
}
