// Package kvdb is the byte-oriented key/value layer under the staged
// executor. Backends are deliberately dumb: ordered keys, atomic batch
// writes, nothing else. All transactional behavior lives above, in the
// overlay.
package kvdb

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// Pair is one key/value entry. In WriteBatch a nil Value deletes the key.
type Pair struct {
	Key   []byte
	Value []byte
}

// DB is the backend contract. Implementations must return copies the caller
// may hold and mutate freely.
type DB interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error

	// List returns pairs whose key starts with prefix, in ascending key
	// order. limit <= 0 means no limit.
	List(prefix []byte, limit int) ([]Pair, error)

	// WriteBatch applies all pairs as one atomic write.
	WriteBatch(pairs []Pair) error

	Close() error
}

const (
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

// Open creates a backend by name. name/dir select the on-disk location for
// persistent backends and are ignored by the memory backend.
func Open(backend, name, dir string) (DB, error) {
	switch backend {
	case BackendLevelDB:
		return NewLevelDB(name, dir)
	case BackendMemory:
		return NewMemDB(), nil
	default:
		return nil, fmt.Errorf("kvdb: unknown backend %q", backend)
	}
}
