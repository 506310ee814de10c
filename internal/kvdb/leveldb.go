package kvdb

import (
	"fmt"
	"path"

	"github.com/syndtr/goleveldb/leveldb"
	lverrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is the persistent backend used by replica nodes.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) dir/name.db. A corrupted database is
// recovered in place before the open is retried.
func NewLevelDB(name, dir string) (*LevelDB, error) {
	dbPath := path.Join(dir, name+".db")
	cache := 128
	db, err := leveldb.OpenFile(dbPath, &opt.Options{
		OpenFilesCacheCapacity: 128,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if _, corrupted := err.(*lverrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(dbPath, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("kvdb: open leveldb %s: %w", dbPath, err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (l *LevelDB) Set(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) List(prefix []byte, limit int) ([]Pair, error) {
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	var out []Pair
	for iter.Next() {
		out = append(out, Pair{
			Key:   append([]byte(nil), iter.Key()...),
			Value: append([]byte(nil), iter.Value()...),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *LevelDB) WriteBatch(pairs []Pair) error {
	batch := new(leveldb.Batch)
	for _, p := range pairs {
		if p.Value == nil {
			batch.Delete(p.Key)
		} else {
			batch.Put(p.Key, p.Value)
		}
	}
	return l.db.Write(batch, &opt.WriteOptions{Sync: true})
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
