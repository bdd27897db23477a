package pattern

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Bounded cache of decoded patterns keyed by absolute path. Scripts tend to
// reference the same handful of template files on every tick; decoding and
// re-deriving stats each time dominated observer CPU before this existed.

const cacheSize = 64

var fileCache, _ = lru.New[string, *Pattern](cacheSize)

// FromFileCached is FromFile backed by a process-wide LRU. The returned
// pattern shares cached stats; use the builders to vary similarity or offset
// without invalidating the cache entry.
func FromFileCached(path string) (*Pattern, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if p, ok := fileCache.Get(abs); ok {
		return p, nil
	}
	p, err := FromFile(path)
	if err != nil {
		return nil, err
	}
	fileCache.Add(abs, p)
	return p, nil
}

// PurgeFileCache empties the pattern cache. Intended for tests and for
// scripts that rewrite template files on disk.
func PurgeFileCache() { fileCache.Purge() }
