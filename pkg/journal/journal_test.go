package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	boltStore, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })

	return map[string]Store{
		"bolt": boltStore,
		"mem":  NewMemStore(),
	}
}

func TestGetMissingKeyReturnsFalseNoError(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := store.Get(BucketEntryState, "nope")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
}

func TestSetThenGetRoundTrips(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(BucketEntryState, "a.txt", []byte("hash1")))
			v, ok, err := store.Get(BucketEntryState, "a.txt")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("hash1"), v)
		})
	}
}

func TestSetBatchIsAtomic(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			pairs := []KV{{Key: "a", Value: []byte("1")}, {Key: "b", Value: []byte("2")}}
			require.NoError(t, store.SetBatch(BucketEntryState, pairs))

			a, ok, err := store.Get(BucketEntryState, "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("1"), a)

			b, ok, err := store.Get(BucketEntryState, "b")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("2"), b)
		})
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(BucketEntryState, "a", []byte("1")))
			require.NoError(t, store.Delete(BucketEntryState, "a"))
			_, ok, err := store.Get(BucketEntryState, "a")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestDeleteBucketClearsAllKeysButKeepsBucketUsable(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(BucketEntryState, "a", []byte("1")))
			require.NoError(t, store.DeleteBucket(BucketEntryState))

			_, ok, err := store.Get(BucketEntryState, "a")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(BucketEntryState, "b", []byte("2")))
			v, ok, err := store.Get(BucketEntryState, "b")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("2"), v)
		})
	}
}

func TestForEachVisitsEveryPair(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(BucketHookState, "h1", []byte("x")))
			require.NoError(t, store.Set(BucketHookState, "h2", []byte("y")))

			seen := map[string]string{}
			err := store.ForEach(BucketHookState, func(key string, value []byte) error {
				seen[key] = string(value)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"h1": "x", "h2": "y"}, seen)
		})
	}
}

func TestUnknownBucketIsRejected(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.Get(Bucket("not-a-real-bucket"), "a")
			var unknown ErrUnknownBucket
			assert.ErrorAs(t, err, &unknown)
		})
	}
}

func TestEntryRecordRoundTrip(t *testing.T) {
	mode := uint32(0o644)
	raw, err := EncodeEntryRecord(EntryRecord{ContentHash: "deadbeef", Mode: &mode})
	require.NoError(t, err)

	r, ok := DecodeEntryRecord(raw, nil)
	require.True(t, ok)
	assert.Equal(t, "deadbeef", r.ContentHash)
	require.NotNil(t, r.Mode)
	assert.Equal(t, uint32(0o644), *r.Mode)
}

func TestEntryRecordUpgradeToleratesUnknownFields(t *testing.T) {
	raw := []byte(`{"content_hash":"abc","mode":420,"future_field":"ignored"}`)
	r, ok := DecodeEntryRecord(raw, nil)
	require.True(t, ok)
	assert.Equal(t, "abc", r.ContentHash)
}

func TestEntryRecordDecodeFailureTreatedAsAbsent(t *testing.T) {
	r, ok := DecodeEntryRecord([]byte("not json"), nil)
	assert.False(t, ok)
	assert.Equal(t, EntryRecord{}, r)
}

func TestHookRecordRoundTrip(t *testing.T) {
	raw, err := EncodeHookRecord(HookRecord{DefinitionHash: "h1", LastRunUnix: 100})
	require.NoError(t, err)

	r, ok := DecodeHookRecord(raw, nil)
	require.True(t, ok)
	assert.Equal(t, "h1", r.DefinitionHash)
	assert.Equal(t, int64(100), r.LastRunUnix)
}
