package exec

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sort"

	"fairtable/internal/kvdb"
)

// Overlay layers two write caches over a read-only view of the base store:
// a batch-level cache that accumulates committed op writes, and a per-op
// txcache bracketed by Begin/Commit/Rollback. Reads go txcache, then cache,
// then base. Nothing touches the base store until Flush, so a failed op can
// never leave partial state behind.
//
// A nil value in either cache is a tombstone: the key reads as not found
// and flushes as a delete.
type Overlay struct {
	base    kvdb.DB
	cache   map[string][]byte
	dirty   map[string]bool
	txcache map[string][]byte
	txkeys  []string
	intx    bool
}

func NewOverlay(base kvdb.DB) *Overlay {
	return &Overlay{
		base:  base,
		cache: make(map[string][]byte),
		dirty: make(map[string]bool),
	}
}

// Begin opens the per-op cache. Writes land there until Commit or Rollback.
func (o *Overlay) Begin() {
	o.intx = true
	o.txcache = nil
	o.txkeys = nil
}

// Commit folds the per-op cache into the batch cache.
func (o *Overlay) Commit() {
	for _, k := range o.txkeys {
		o.cache[k] = o.txcache[k]
		o.dirty[k] = true
	}
	o.intx = false
	o.txcache = nil
	o.txkeys = nil
}

// Rollback discards the per-op cache.
func (o *Overlay) Rollback() {
	o.intx = false
	o.txcache = nil
	o.txkeys = nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	skey := string(key)
	if o.intx && o.txcache != nil {
		if v, ok := o.txcache[skey]; ok {
			if v == nil {
				return nil, kvdb.ErrNotFound
			}
			return v, nil
		}
	}
	if v, ok := o.cache[skey]; ok {
		if v == nil {
			return nil, kvdb.ErrNotFound
		}
		return v, nil
	}
	v, err := o.base.Get(key)
	if errors.Is(err, kvdb.ErrNotFound) {
		return nil, kvdb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// Reads may be cached without dirtying; the base cannot change under
	// a running batch.
	o.cache[skey] = v
	return v, nil
}

func (o *Overlay) Set(key, value []byte) {
	skey := string(key)
	if o.intx {
		if o.txcache == nil {
			o.txcache = make(map[string][]byte)
		}
		if _, ok := o.txcache[skey]; !ok {
			o.txkeys = append(o.txkeys, skey)
		}
		o.txcache[skey] = value
		return
	}
	o.cache[skey] = value
	o.dirty[skey] = true
}

func (o *Overlay) Delete(key []byte) {
	o.Set(key, nil)
}

// Changes returns the batch's committed writes in ascending key order.
// Tombstones come back with a nil Value.
func (o *Overlay) Changes() []kvdb.Pair {
	keys := make([]string, 0, len(o.dirty))
	for k := range o.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kvdb.Pair, 0, len(keys))
	for _, k := range keys {
		out = append(out, kvdb.Pair{Key: []byte(k), Value: o.cache[k]})
	}
	return out
}

// Digest is a stable fingerprint of a change set. Replicas that applied the
// same batch over the same base state must produce identical digests; a
// divergence is a determinism bug and grounds for halting.
func Digest(changes []kvdb.Pair) [32]byte {
	h := sha256.New()
	var lenBuf [4]byte
	for _, p := range changes {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p.Key)))
		h.Write(lenBuf[:])
		h.Write(p.Key)
		if p.Value == nil {
			h.Write([]byte{0})
			continue
		}
		h.Write([]byte{1})
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p.Value)))
		h.Write(lenBuf[:])
		h.Write(p.Value)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Flush writes the change set to the base store as one atomic batch.
func (o *Overlay) Flush(changes []kvdb.Pair) error {
	return o.base.WriteBatch(changes)
}
