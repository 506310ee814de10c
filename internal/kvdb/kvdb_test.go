package kvdb

import (
	"errors"
	"testing"
)

// Both backends must satisfy the same contract; run every case against each.
func withBackends(t *testing.T, fn func(t *testing.T, db DB)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		db := NewMemDB()
		defer db.Close()
		fn(t, db)
	})
	t.Run("leveldb", func(t *testing.T) {
		db, err := NewLevelDB("kvdb_test", t.TempDir())
		if err != nil {
			t.Fatalf("open leveldb: %v", err)
		}
		defer db.Close()
		fn(t, db)
	})
}

func TestGetSetDelete(t *testing.T) {
	withBackends(t, func(t *testing.T, db DB) {
		if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get missing: want ErrNotFound, got %v", err)
		}
		if err := db.Set([]byte("k"), []byte("v1")); err != nil {
			t.Fatalf("set: %v", err)
		}
		v, err := db.Get([]byte("k"))
		if err != nil || string(v) != "v1" {
			t.Fatalf("get: %q %v", v, err)
		}
		if err := db.Set([]byte("k"), []byte("v2")); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		v, _ = db.Get([]byte("k"))
		if string(v) != "v2" {
			t.Fatalf("after overwrite: %q", v)
		}
		if err := db.Delete([]byte("k")); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := db.Get([]byte("k")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get deleted: want ErrNotFound, got %v", err)
		}
	})
}

func TestGetReturnsCopy(t *testing.T) {
	withBackends(t, func(t *testing.T, db DB) {
		if err := db.Set([]byte("k"), []byte("orig")); err != nil {
			t.Fatalf("set: %v", err)
		}
		v, _ := db.Get([]byte("k"))
		copy(v, "XXXX")
		v2, _ := db.Get([]byte("k"))
		if string(v2) != "orig" {
			t.Fatalf("stored value mutated through returned slice: %q", v2)
		}
	})
}

func TestListPrefixOrderAndLimit(t *testing.T) {
	withBackends(t, func(t *testing.T, db DB) {
		for _, k := range []string{"b/2", "a/3", "a/1", "c/1", "a/2"} {
			if err := db.Set([]byte(k), []byte("v-"+k)); err != nil {
				t.Fatalf("set %s: %v", k, err)
			}
		}
		pairs, err := db.List([]byte("a/"), 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"a/1", "a/2", "a/3"}
		if len(pairs) != len(want) {
			t.Fatalf("list: got %d pairs, want %d", len(pairs), len(want))
		}
		for i, p := range pairs {
			if string(p.Key) != want[i] {
				t.Fatalf("list[%d]: got %s, want %s", i, p.Key, want[i])
			}
		}
		pairs, err = db.List([]byte("a/"), 2)
		if err != nil || len(pairs) != 2 {
			t.Fatalf("list limit: %d pairs, %v", len(pairs), err)
		}
	})
}

func TestWriteBatch(t *testing.T) {
	withBackends(t, func(t *testing.T, db DB) {
		if err := db.Set([]byte("gone"), []byte("x")); err != nil {
			t.Fatalf("seed: %v", err)
		}
		err := db.WriteBatch([]Pair{
			{Key: []byte("k1"), Value: []byte("v1")},
			{Key: []byte("k2"), Value: []byte("v2")},
			{Key: []byte("gone"), Value: nil},
		})
		if err != nil {
			t.Fatalf("write batch: %v", err)
		}
		if v, _ := db.Get([]byte("k1")); string(v) != "v1" {
			t.Fatalf("k1: %q", v)
		}
		if v, _ := db.Get([]byte("k2")); string(v) != "v2" {
			t.Fatalf("k2: %q", v)
		}
		if _, err := db.Get([]byte("gone")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("batch delete: want ErrNotFound, got %v", err)
		}
	})
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("bolt", "x", t.TempDir()); err == nil {
		t.Fatal("want error for unknown backend")
	}
	db, err := Open(BackendMemory, "", "")
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	db.Close()
}
