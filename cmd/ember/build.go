package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/driver"
	"ember/internal/source"
	"ember/internal/types"
)

// frontend is the analyzer hook. The analyzer living upstream of this
// repository links itself in by replacing this variable; the default
// refuses to build so the seam is explicit rather than silently empty.
var frontend driver.Frontend = driver.FrontendFunc(
	func(*source.FileSet, []source.FileID, *types.Table, *diag.Bag) (*ast.Program, error) {
		return nil, errors.New("no analyzer linked into this build")
	},
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Lower an analyzed project to LLIR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		colorFlag, _ := cmd.Flags().GetString("color")
		verbose, _ := cmd.Flags().GetBool("verbose")
		maxDiag, _ := cmd.Flags().GetInt("max-diagnostics")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		cacheDir := ""
		if !noCache {
			if cache, err := driver.OpenDiskCache("ember"); err == nil {
				cacheDir = cache.Dir()
			}
		}

		res, err := driver.Build(cmd.Context(), driver.Options{
			Dir:            dir,
			Frontend:       frontend,
			CacheDir:       cacheDir,
			MaxDiagnostics: maxDiag,
			Verbose:        verbose,
		})
		if res != nil && res.Bag != nil && res.Bag.Len() > 0 {
			driver.PrintDiagnostics(os.Stderr, res.FileSet, res.Bag, parseColorMode(colorFlag))
		}
		if err != nil {
			return err
		}

		if verbose {
			from := "lowered"
			if res.FromCache {
				from = "cached"
			}
			fmt.Fprintf(os.Stderr, "%s: %s → %s\n", res.ModuleName, from, res.OutputPath)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().Bool("no-cache", false, "skip the lowered-module disk cache")
}

func parseColorMode(s string) driver.ColorMode {
	switch s {
	case "on":
		return driver.ColorOn
	case "off":
		return driver.ColorOff
	default:
		return driver.ColorAuto
	}
}
