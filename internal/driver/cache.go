package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/source"
)

// cacheSchemaVersion invalidates stored payloads when the format changes.
const cacheSchemaVersion uint16 = 1

// CachePayload is the serialized result of one lowered module.
type CachePayload struct {
	Schema uint16

	ModuleName string
	Mode       string
	InputHash  [32]byte

	// IR is the rendered LLIR text.
	IR string
}

// DiskCache stores lowered modules keyed by the aggregate input hash, so
// an unchanged module skips lowering entirely.
type DiskCache struct {
	dir string
}

// OpenDiskCache initializes the cache under the standard user cache
// location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt uses an explicit directory; tests point it at a temp dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	return c.dir
}

// InputHash folds the build mode and every source file's content hash into
// one key.
func InputHash(fset *source.FileSet, ids []source.FileID, mode string) [32]byte {
	h := sha256.New()
	h.Write([]byte(mode))
	for _, id := range ids {
		f := fset.Get(id)
		h.Write([]byte(f.Path))
		h.Write(f.Hash[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (c *DiskCache) path(hash [32]byte) string {
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".emc")
}

// Load returns the payload stored for hash, or (nil, nil) on a miss or a
// schema mismatch.
func (c *DiskCache) Load(hash [32]byte) (*CachePayload, error) {
	data, err := os.ReadFile(c.path(hash)) // #nosec G304 -- path derives from a hex hash under our dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var payload CachePayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		// a corrupt entry is a miss, not a build failure
		return nil, nil
	}
	if payload.Schema != cacheSchemaVersion || payload.InputHash != hash {
		return nil, nil
	}
	return &payload, nil
}

// Store writes the payload for its input hash.
func (c *DiskCache) Store(payload *CachePayload) error {
	payload.Schema = cacheSchemaVersion
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}

	tmp := c.path(payload.InputHash) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(payload.InputHash))
}
