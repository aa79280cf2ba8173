package driver

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/types"
)

// Frontend is the seam to the upstream analyzer: it consumes the loaded
// sources, fills in the type table lowering reads, and returns the annotated
// program. Lowering refuses to run when the bag holds errors.
type Frontend interface {
	Analyze(fset *source.FileSet, files []source.FileID, tab *types.Table, bag *diag.Bag) (*ast.Program, error)
}

// FrontendFunc adapts a function to the Frontend interface.
type FrontendFunc func(fset *source.FileSet, files []source.FileID, tab *types.Table, bag *diag.Bag) (*ast.Program, error)

func (f FrontendFunc) Analyze(fset *source.FileSet, files []source.FileID, tab *types.Table, bag *diag.Bag) (*ast.Program, error) {
	return f(fset, files, tab, bag)
}
