package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("certregistry.store.memory")

// Store is an in-memory registry region. It emulates expiry: once the clock
// passes the retention horizon the state is treated as evicted.
type Store struct {
	mu        sync.Mutex
	entries   map[string][]byte
	liveUntil uint64
	now       func() uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock the retention horizon is measured against.
func WithClock(now func() uint64) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store measuring retention in unix seconds.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string][]byte),
		now:     func() uint64 { return uint64(time.Now().Unix()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIfExpired()

	v, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIfExpired()

	v := make([]byte, len(value))
	copy(v, value)
	s.entries[key] = v
	return nil
}

// Commit applies all entries and the retention extension under one lock.
func (s *Store) Commit(_ context.Context, entries map[string][]byte, threshold, extendTo uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIfExpired()

	for key, value := range entries {
		v := make([]byte, len(value))
		copy(v, value)
		s.entries[key] = v
	}
	s.extend(threshold, extendTo)
	return nil
}

func (s *Store) ExtendRetention(_ context.Context, threshold, extendTo uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extend(threshold, extendTo)
	return nil
}

// LiveUntil returns the current retention horizon, 0 if never extended.
func (s *Store) LiveUntil() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveUntil
}

// Expired reports whether the retention horizon has passed.
func (s *Store) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired()
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIfExpired()
	return len(s.entries)
}

func (s *Store) extend(threshold, extendTo uint64) {
	now := s.now()
	if s.liveUntil >= now && s.liveUntil-now >= threshold {
		return
	}
	s.liveUntil = now + extendTo
	logger.Debugf("Retention extended until %d", s.liveUntil)
}

func (s *Store) expired() bool {
	return s.liveUntil != 0 && s.now() > s.liveUntil
}

func (s *Store) evictIfExpired() {
	if !s.expired() {
		return
	}
	logger.Warningf("Retention horizon %d passed, evicting %d entries", s.liveUntil, len(s.entries))
	s.entries = make(map[string][]byte)
	s.liveUntil = 0
}
