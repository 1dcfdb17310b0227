package viewstate

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memItem struct {
	entry      Entry
	expiration int64
}

// MemoryStore is the single-instance Store used when no Redis is configured.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items  map[string]memItem
	seqs   map[string]uint64
	fences map[string]uint64
	locks  map[string]int64
	stop  chan struct{}
	once  sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:    ttl,
		items:  make(map[string]memItem),
		seqs:   make(map[string]uint64),
		fences: make(map[string]uint64),
		locks:  make(map[string]int64),
		stop:   make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.DeleteExpired()
		}
	}
}

// Close stops the expiry goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) NextSeq(_ context.Context, key string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[key]++
	return s.seqs[key], nil
}

func (s *MemoryStore) Put(_ context.Context, key string, seq uint64, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.fences[key] {
		return false, nil
	}
	now := time.Now()
	if cur, ok := s.items[key]; ok && now.UnixNano() <= cur.expiration && cur.entry.Seq > seq {
		return false, nil
	}
	s.items[key] = memItem{
		entry:      Entry{Seq: seq, Data: append([]byte(nil), data...), StoredAt: now},
		expiration: now.Add(s.ttl).UnixNano(),
	}
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok || time.Now().UnixNano() > item.expiration {
		return Entry{}, ErrMiss
	}
	e := item.entry
	e.Data = append([]byte(nil), e.Data...)
	return e, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
		}
	}
	// Any fetch in flight on these keys holds a seq below the fence.
	for k := range s.seqs {
		if strings.HasPrefix(k, prefix) {
			s.seqs[k]++
			s.fences[k] = s.seqs[k]
		}
	}
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixNano()
	if until, held := s.locks[key]; held && until > now {
		return nil, false, nil
	}
	until := time.Now().Add(ttl).UnixNano()
	s.locks[key] = until
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.locks[key] == until {
			delete(s.locks, key)
		}
	}, true, nil
}

// DeleteExpired drops expired entries and stale locks. Sequence counters and
// fences are kept so numbering stays monotonic for the life of the process.
func (s *MemoryStore) DeleteExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixNano()
	for k, v := range s.items {
		if now > v.expiration {
			delete(s.items, k)
		}
	}
	for k, until := range s.locks {
		if now > until {
			delete(s.locks, k)
		}
	}
}
