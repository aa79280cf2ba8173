package ast

import (
	"ember/internal/symbols"
	"ember/internal/types"
)

// GlobalDecl is one module-level variable.
type GlobalDecl struct {
	Var  *symbols.Variable
	Init *Node
}

// FnDef pairs a function entry with its body and implicit return type.
type FnDef struct {
	Entry *symbols.Fn
	Body  *Node
	// ImplicitReturnType drives the trailing ret emitted after the body:
	// void → ret void, unreachable → nothing, otherwise ret of the block's
	// value.
	ImplicitReturnType *types.Entry
	// Labels lists every goto target in the body, pre-created as blocks at
	// function-entry time.
	Labels []*symbols.Label
}

// Program is the fully analyzed compilation unit handed to lowering.
type Program struct {
	Globals []*GlobalDecl
	// Protos lists every function (defined and extern) in prototype order.
	Protos []*symbols.Fn
	// Fns lists the functions with bodies to lower.
	Fns []*FnDef
}
