package driver

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// VerifyModule runs the structural checks debug builds apply before
// rendering: every defined function has blocks, every block is terminated,
// and phi instructions carry at least one incoming edge. Release builds
// skip this for speed; a failure is always fatal to the build.
func VerifyModule(m *ir.Module) error {
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			// declaration
			continue
		}
		for _, b := range f.Blocks {
			if b.Term == nil {
				return fmt.Errorf("verify: %s: block %q has no terminator", f.Name(), b.LocalName)
			}
			for _, inst := range b.Insts {
				phi, ok := inst.(*ir.InstPhi)
				if !ok {
					continue
				}
				if len(phi.Incs) == 0 {
					return fmt.Errorf("verify: %s: phi with no incoming edges", f.Name())
				}
				for _, inc := range phi.Incs {
					if inc.Pred == nil {
						return fmt.Errorf("verify: %s: phi incoming without predecessor", f.Name())
					}
				}
			}
		}
	}
	return nil
}
