// Package decompressioncache caches decoded DEFLATE output so that
// repeated or out-of-order reads of the same compressed stream need not
// replay decompression from the start.
//
// It is a two-tier adaptation of the teacher's package of the same
// name (originally keyed by a formatted string and backed by a single
// in-memory bigcache instance): a hot tinylfu tier, exactly as used by
// the teacher's sibling internal/spinner package for block caching,
// backed by an optional persistent pebble tier so that a cache built up
// by one process survives into the next.
package decompressioncache

import (
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble/v2"
	tinylfu "github.com/dgryski/go-tinylfu"
)

// Key derives a cache key from a stream identity (the caller's choice —
// typically a hash of the compressed source's name or content) and an
// uncompressed byte offset, the same two-part addressing the teacher's
// decompressioncache.go used for its string keys.
func Key(streamID uint64, offset int64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], streamID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(offset))
	return xxhash.Sum64(buf[:])
}

// Cache holds decoded-output snapshots: a hot in-memory tier and an
// optional persistent on-disk tier.
type Cache struct {
	hot *tinylfu.T[uint64, []byte]
	db  *pebble.DB
}

// Open creates a Cache with room for hotEntries recently-used snapshots
// in memory. If dir is non-empty, snapshots also persist to an on-disk
// pebble store at dir.
func Open(dir string, hotEntries int) (*Cache, error) {
	c := &Cache{
		hot: tinylfu.New[uint64, []byte](hotEntries, hotEntries*10, identityHash),
	}
	if dir != "" {
		db, err := pebble.Open(dir, &pebble.Options{})
		if err != nil {
			return nil, err
		}
		c.db = db
	}
	return c, nil
}

func identityHash(k uint64) uint64 { return k }

// Get returns the snapshot stored under key, checking the hot tier
// first and falling back to, and re-populating from, the persistent
// tier.
func (c *Cache) Get(key uint64) ([]byte, bool) {
	if v, ok := c.hot.Get(key); ok {
		return v, true
	}
	if c.db == nil {
		return nil, false
	}

	var kb [8]byte
	binary.LittleEndian.PutUint64(kb[:], key)
	v, closer, err := c.db.Get(kb[:])
	if err != nil {
		if !errors.Is(err, pebble.ErrNotFound) {
			slog.Warn("decompressioncache: pebble get failed", "err", err)
		}
		return nil, false
	}
	out := append([]byte(nil), v...)
	closer.Close()
	c.hot.Add(key, out)
	return out, true
}

// Put stores a snapshot under key in both tiers.
func (c *Cache) Put(key uint64, snapshot []byte) {
	c.hot.Add(key, snapshot)
	if c.db == nil {
		return
	}
	var kb [8]byte
	binary.LittleEndian.PutUint64(kb[:], key)
	if err := c.db.Set(kb[:], snapshot, pebble.NoSync); err != nil {
		slog.Warn("decompressioncache: pebble set failed", "err", err)
	}
}

// Close releases the persistent tier, if any.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
