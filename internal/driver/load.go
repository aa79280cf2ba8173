package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ember/internal/source"
)

// SourceExt is the Ember source file extension.
const SourceExt = ".em"

type loadedFile struct {
	path    string
	content []byte
}

// LoadSources finds every source file under dir and reads them
// concurrently; registration into the FileSet stays sequential and sorted
// so FileIDs are deterministic.
func LoadSources(ctx context.Context, dir string, fset *source.FileSet) ([]source.FileID, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == SourceExt {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s sources under %s", SourceExt, dir)
	}
	sort.Strings(paths)

	loaded := make([]loadedFile, len(paths))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			content, err := os.ReadFile(path) // #nosec G304 -- paths come from the walked project dir
			if err != nil {
				return err
			}
			loaded[i] = loadedFile{path: path, content: content}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ids := make([]source.FileID, len(loaded))
	for i, lf := range loaded {
		ids[i] = fset.Add(lf.path, lf.content, 0)
	}
	return ids, nil
}
