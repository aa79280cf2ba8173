// Package driver orchestrates a build: manifest, source loading, the
// front-end seam, lowering, verification, and the output cache. The
// lowering engine itself stays single-threaded; only file loading fans
// out.
package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest is the parsed ember.toml.
type Manifest struct {
	Package PackageSection `toml:"package"`
	Build   BuildSection   `toml:"build"`
}

type PackageSection struct {
	Name   string `toml:"name"`
	Output string `toml:"output"`
}

type BuildSection struct {
	// Mode is "debug" or "release".
	Mode string `toml:"mode"`
	// PointerBits fixes the target pointer width; 64 when omitted.
	PointerBits uint64 `toml:"pointer_bits"`
}

// ManifestName is the file looked up in the project directory.
const ManifestName = "ember.toml"

// LoadManifest reads dir/ember.toml, applying defaults for a missing file.
func LoadManifest(dir string) (*Manifest, error) {
	m := &Manifest{
		Build: BuildSection{Mode: "debug", PointerBits: 64},
	}

	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path) // #nosec G304 -- project path comes from the CLI
	if err != nil {
		if os.IsNotExist(err) {
			m.Package.Name = filepath.Base(dir)
			return m, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Package.Name == "" {
		m.Package.Name = filepath.Base(dir)
	}
	if m.Build.Mode == "" {
		m.Build.Mode = "debug"
	}
	if m.Build.Mode != "debug" && m.Build.Mode != "release" {
		return nil, fmt.Errorf("%s: unknown build mode %q", path, m.Build.Mode)
	}
	if m.Build.PointerBits == 0 {
		m.Build.PointerBits = 64
	}
	if m.Build.PointerBits != 32 && m.Build.PointerBits != 64 {
		return nil, fmt.Errorf("%s: unsupported pointer width %d", path, m.Build.PointerBits)
	}
	return m, nil
}
