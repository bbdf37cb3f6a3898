package host

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache maps (source, width, height) digests to encoded thumbnails.
type resultCache struct {
	entries *lru.Cache[uint64, []byte]
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[uint64, []byte](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{entries: entries}, nil
}

func cacheKey(src []byte, width, height uint32) uint64 {
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:], width)
	binary.LittleEndian.PutUint32(dims[4:], height)

	d := xxhash.New()
	_, _ = d.Write(dims[:])
	_, _ = d.Write(src)
	return d.Sum64()
}

// get returns a copy so callers may modify the result.
func (c *resultCache) get(key uint64) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (c *resultCache) add(key uint64, v []byte) {
	if c == nil {
		return
	}
	c.entries.Add(key, append([]byte(nil), v...))
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
