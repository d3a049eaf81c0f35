package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type sessionEntry struct {
	mu        sync.Mutex
	session   *fulfillment.PickSession
	expiresAt time.Time
}

// InMemoryPickSessionStore keeps pick sessions in process memory. A session
// expires after ttl without access; a background loop evicts expired ones.
type InMemoryPickSessionStore struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]*sessionEntry
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryPickSessionStore creates the store and starts its cleanup loop.
// A non-positive cleanupInterval disables the loop; expired sessions are
// still rejected on access.
func NewInMemoryPickSessionStore(ttl, cleanupInterval time.Duration, logger *zap.Logger) *InMemoryPickSessionStore {
	s := &InMemoryPickSessionStore{
		entries:  make(map[uuid.UUID]*sessionEntry),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Put stores a new session
func (s *InMemoryPickSessionStore) Put(_ context.Context, session *fulfillment.PickSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.ID] = &sessionEntry{session: session, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Update runs fn with exclusive access to the session and extends its lifetime
func (s *InMemoryPickSessionStore) Update(_ context.Context, id uuid.UUID, fn func(*fulfillment.PickSession) error) error {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return sessionNotFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// eviction is left to the cleanup loop; taking s.mu here would invert the lock order
	if s.expired(e) {
		return sessionNotFound(id)
	}
	e.expiresAt = s.now().Add(s.ttl)
	return fn(e.session)
}

// Delete discards a session
func (s *InMemoryPickSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return sessionNotFound(id)
	}
	delete(s.entries, id)
	if s.expiredUnlocked(e) {
		return sessionNotFound(id)
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included until evicted
func (s *InMemoryPickSessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup loop
func (s *InMemoryPickSessionStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryPickSessionStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.evictExpired(); n > 0 {
				s.logger.Debug("evicted idle pick sessions", zap.Int("count", n))
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemoryPickSessionStore) evictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		// skip sessions a command is working on
		if !e.mu.TryLock() {
			continue
		}
		if s.expired(e) {
			delete(s.entries, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// expired requires e.mu
func (s *InMemoryPickSessionStore) expired(e *sessionEntry) bool {
	return !s.now().Before(e.expiresAt)
}

func (s *InMemoryPickSessionStore) expiredUnlocked(e *sessionEntry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.expired(e)
}

func sessionNotFound(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeNotFound, "pick session %s not found or expired", id)
}
