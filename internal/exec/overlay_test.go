package exec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"fairtable/internal/kvdb"
)

func TestOverlayReadThrough(t *testing.T) {
	base := kvdb.NewMemDB()
	require.NoError(t, base.Set([]byte("k"), []byte("base")))
	ov := NewOverlay(base)

	v, err := ov.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, "base", string(v))

	ov.Begin()
	ov.Set([]byte("k"), []byte("tx"))
	v, err = ov.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, "tx", string(v), "in-tx read sees the tx write")
	ov.Rollback()

	v, err = ov.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, "base", string(v), "rollback discards the tx write")

	ov.Begin()
	ov.Set([]byte("k"), []byte("committed"))
	ov.Commit()
	v, err = ov.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, "committed", string(v))

	v, err = base.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, "base", string(v), "base is untouched before Flush")
}

func TestOverlayTombstone(t *testing.T) {
	base := kvdb.NewMemDB()
	require.NoError(t, base.Set([]byte("k"), []byte("v")))
	ov := NewOverlay(base)

	ov.Begin()
	ov.Delete([]byte("k"))
	_, err := ov.Get([]byte("k"))
	require.True(t, errors.Is(err, kvdb.ErrNotFound), "deleted key reads as missing in-tx")
	ov.Commit()

	_, err = ov.Get([]byte("k"))
	require.True(t, errors.Is(err, kvdb.ErrNotFound))

	changes := ov.Changes()
	require.Len(t, changes, 1)
	require.Nil(t, changes[0].Value, "tombstone flushes as delete")

	require.NoError(t, ov.Flush(changes))
	_, err = base.Get([]byte("k"))
	require.True(t, errors.Is(err, kvdb.ErrNotFound))
}

func TestOverlayChangesSortedAndWriteOnly(t *testing.T) {
	base := kvdb.NewMemDB()
	require.NoError(t, base.Set([]byte("readonly"), []byte("x")))
	ov := NewOverlay(base)

	// A pure read must not show up as a change.
	_, err := ov.Get([]byte("readonly"))
	require.NoError(t, err)

	ov.Begin()
	ov.Set([]byte("c"), []byte("3"))
	ov.Set([]byte("a"), []byte("1"))
	ov.Set([]byte("b"), []byte("2"))
	ov.Commit()

	changes := ov.Changes()
	require.Len(t, changes, 3)
	require.Equal(t, "a", string(changes[0].Key))
	require.Equal(t, "b", string(changes[1].Key))
	require.Equal(t, "c", string(changes[2].Key))
}

func TestOverlayRolledBackOpLeavesNoTrace(t *testing.T) {
	ov := NewOverlay(kvdb.NewMemDB())
	ov.Begin()
	ov.Set([]byte("kept"), []byte("1"))
	ov.Commit()
	ov.Begin()
	ov.Set([]byte("dropped"), []byte("2"))
	ov.Set([]byte("kept"), []byte("overwritten"))
	ov.Rollback()

	changes := ov.Changes()
	require.Len(t, changes, 1)
	require.Equal(t, "kept", string(changes[0].Key))
	require.Equal(t, "1", string(changes[0].Value))
}

func TestDigestStability(t *testing.T) {
	mk := func() []kvdb.Pair {
		return []kvdb.Pair{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("b"), Value: nil},
			{Key: []byte("c"), Value: []byte("3")},
		}
	}
	require.Equal(t, Digest(mk()), Digest(mk()))

	altered := mk()
	altered[2].Value = []byte("4")
	require.NotEqual(t, Digest(mk()), Digest(altered))

	// A tombstone and an empty value are different states.
	emptyVal := mk()
	emptyVal[1].Value = []byte{}
	require.NotEqual(t, Digest(mk()), Digest(emptyVal))
}
