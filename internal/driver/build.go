package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ember/internal/diag"
	"ember/internal/lower"
	"ember/internal/source"
	"ember/internal/types"
)

// Options configures one build.
type Options struct {
	Dir      string
	Frontend Frontend
	// CacheDir overrides the default disk cache location; empty disables
	// the cache.
	CacheDir string
	// MaxDiagnostics caps the bag.
	MaxDiagnostics int
	Verbose        bool
}

// Result is what a completed build hands back to the CLI.
type Result struct {
	ModuleName string
	OutputPath string
	IR         string
	FromCache  bool
	Bag        *diag.Bag
	FileSet    *source.FileSet
}

// Build runs the pipeline: manifest → sources → cache probe → analyze →
// lower → verify (debug only) → render → cache store.
func Build(ctx context.Context, opts Options) (*Result, error) {
	manifest, err := LoadManifest(opts.Dir)
	if err != nil {
		return nil, err
	}

	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = 100
	}
	bag := diag.NewBag(maxDiag)
	fset := source.NewFileSet()

	files, err := LoadSources(ctx, opts.Dir, fset)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ModuleName: manifest.Package.Name,
		Bag:        bag,
		FileSet:    fset,
	}

	var cache *DiskCache
	hash := InputHash(fset, files, manifest.Build.Mode)
	if opts.CacheDir != "" {
		cache, err = OpenDiskCacheAt(opts.CacheDir)
		if err != nil {
			return nil, err
		}
		if payload, err := cache.Load(hash); err == nil && payload != nil {
			res.IR = payload.IR
			res.FromCache = true
			return res, writeOutput(res, manifest, opts.Dir)
		}
	}

	tab := types.NewTable(types.Target{PtrBits: manifest.Build.PointerBits})
	prog, err := opts.Frontend.Analyze(fset, files, tab, bag)
	if err != nil {
		return nil, err
	}
	if bag.HasErrors() {
		// user diagnostics belong upstream; lowering never runs on a
		// broken program
		return res, fmt.Errorf("%s: analysis reported errors", manifest.Package.Name)
	}

	mode := lower.ModeDebug
	if manifest.Build.Mode == "release" {
		mode = lower.ModeRelease
	}
	g := lower.New(tab, fset, mode, manifest.Package.Name)
	g.Generate(prog)

	if mode == lower.ModeDebug {
		if err := VerifyModule(g.Module); err != nil {
			return nil, err
		}
	}

	res.IR = g.Module.String()

	if cache != nil {
		payload := &CachePayload{
			ModuleName: manifest.Package.Name,
			Mode:       manifest.Build.Mode,
			InputHash:  hash,
			IR:         res.IR,
		}
		if err := cache.Store(payload); err != nil && opts.Verbose {
			fmt.Fprintf(os.Stderr, "cache store failed: %v\n", err)
		}
	}

	return res, writeOutput(res, manifest, opts.Dir)
}

func writeOutput(res *Result, manifest *Manifest, dir string) error {
	name := manifest.Package.Output
	if name == "" {
		name = manifest.Package.Name + ".ll"
	}
	res.OutputPath = filepath.Join(dir, name)
	return os.WriteFile(res.OutputPath, []byte(res.IR), 0o644)
}
