package journal

import "sync"

// MemStore satisfies Store over plain Go maps, for tests that need
// journal semantics without a bbolt file on disk (spec.md §4.3.4's
// "second, in-memory implementation with identical semantics").
type MemStore struct {
	mu      sync.Mutex
	buckets map[Bucket]map[string][]byte
}

// NewMemStore builds an empty MemStore with all three buckets present.
func NewMemStore() *MemStore {
	return &MemStore{
		buckets: map[Bucket]map[string][]byte{
			BucketEntryState:     {},
			BucketHookState:      {},
			BucketConfigMetadata: {},
		},
	}
}

func (s *MemStore) Get(bucket Bucket, key string) ([]byte, bool, error) {
	if !bucket.valid() {
		return nil, false, ErrUnknownBucket{Bucket: bucket}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.buckets[bucket][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemStore) Set(bucket Bucket, key string, value []byte) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket][key] = append([]byte(nil), value...)
	return nil
}

func (s *MemStore) SetBatch(bucket Bucket, pairs []KV) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kv := range pairs {
		s.buckets[bucket][kv.Key] = append([]byte(nil), kv.Value...)
	}
	return nil
}

func (s *MemStore) Delete(bucket Bucket, key string) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets[bucket], key)
	return nil
}

func (s *MemStore) DeleteBucket(bucket Bucket) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket] = map[string][]byte{}
	return nil
}

func (s *MemStore) ForEach(bucket Bucket, fn VisitFunc) error {
	if !bucket.valid() {
		return ErrUnknownBucket{Bucket: bucket}
	}
	s.mu.Lock()
	snapshot := make(map[string][]byte, len(s.buckets[bucket]))
	for k, v := range s.buckets[bucket] {
		snapshot[k] = v
	}
	s.mu.Unlock()

	for k, v := range snapshot {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) Close() error { return nil }
