package capture

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// DefaultArchiveSize is the number of snapshots an Archive keeps loaded.
// Each one holds a full 8 MiB VRAM image.
const DefaultArchiveSize = 8

type dumpKey struct{ test, tag string }

// Archive loads snapshots from an artifact directory and keeps the most
// recently used ones in memory. It is safe for concurrent use.
type Archive struct {
	fs    afero.Fs
	dir   string
	cache *lru.Cache[dumpKey, *Dump]
}

// NewArchive opens the artifact root dir on fs. size <= 0 selects
// DefaultArchiveSize.
func NewArchive(fs afero.Fs, dir string, size int) (*Archive, error) {
	if size <= 0 {
		size = DefaultArchiveSize
	}
	cache, err := lru.New[dumpKey, *Dump](size)
	if err != nil {
		return nil, err
	}
	return &Archive{fs: fs, dir: dir, cache: cache}, nil
}

// Load returns the snapshot tag of test, reading it on first use.
func (a *Archive) Load(test, tag string) (*Dump, error) {
	key := dumpKey{test, tag}
	if d, ok := a.cache.Get(key); ok {
		return d, nil
	}
	d, err := LoadDump(a.fs, a.dir, test, tag)
	if err != nil {
		return nil, err
	}
	a.cache.Add(key, d)
	return d, nil
}

// Loaded returns the number of cached snapshots.
func (a *Archive) Loaded() int {
	return a.cache.Len()
}

// Evict drops one snapshot from the cache.
func (a *Archive) Evict(test, tag string) {
	a.cache.Remove(dumpKey{test, tag})
}
