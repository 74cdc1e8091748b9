package journal

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore is the production Store, backed by a single bbolt file with
// one native bucket per journal Bucket. All three buckets are created
// eagerly on Open so Get/Set never need a bucket-missing fallback path.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt file at path and ensures all
// three journal buckets exist.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range []Bucket{BucketEntryState, BucketHookState, BucketConfigMetadata} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(bucket Bucket, key string) ([]byte, bool, error) {
	if !bucket.valid() {
		return nil, false, ErrUnknownBucket{Bucket: bucket}
	}

	var value []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		v := b.Get([]byte(key))
		if v != nil {
			found = true
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("journal: get %s/%s: %w", bucket, key, err)
	}
	return value, found, nil
}

func (s *BoltStore) Set(bucket Bucket, key string, value []byte) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("journal: set %s/%s: %w", bucket, key, err)
	}
	return nil
}

// SetBatch writes every pair in one transaction, atomic on commit: a
// later entry's write failure rolls back all earlier writes in the same
// call (spec.md §4.3.4's set_batch contract).
func (s *BoltStore) SetBatch(bucket Bucket, pairs []KV) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		for _, kv := range pairs {
			if err := b.Put([]byte(kv.Key), kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("journal: set_batch %s (%d pairs): %w", bucket, len(pairs), err)
	}
	return nil
}

func (s *BoltStore) Delete(bucket Bucket, key string) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("journal: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// DeleteBucket clears every key in bucket and immediately recreates the
// (now-empty) native bbolt bucket, so the closed bucket set remains
// usable for subsequent Get/Set calls without a re-Open.
func (s *BoltStore) DeleteBucket(bucket Bucket) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("journal: delete_bucket %s: %w", bucket, err)
	}
	return nil
}

// ForEach visits every key/value pair in bucket under one consistent
// read transaction (spec.md §4.3.4's "consistent read snapshot").
func (s *BoltStore) ForEach(bucket Bucket, fn VisitFunc) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
			return fn(string(k), append([]byte(nil), v...))
		})
	})
	if err != nil {
		return fmt.Errorf("journal: for_each %s: %w", bucket, err)
	}
	return nil
}

// Close flushes and releases the file lock.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	return nil
}
