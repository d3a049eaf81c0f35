package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// LocalOrderLocker serializes commands per order id within one process.
// Locks for ids nobody waits on are released from the map.
type LocalOrderLocker struct {
	mu          sync.Mutex
	locks       map[uuid.UUID]*orderLock
	waitTimeout time.Duration
}

type orderLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalOrderLocker creates a locker that gives up after waitTimeout.
// A zero waitTimeout waits until the caller's context is done.
func NewLocalOrderLocker(waitTimeout time.Duration) *LocalOrderLocker {
	return &LocalOrderLocker{
		locks:       make(map[uuid.UUID]*orderLock),
		waitTimeout: waitTimeout,
	}
}

// Lock blocks until the order's lock is held
func (l *LocalOrderLocker) Lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	lock := l.acquireRef(orderID)

	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(orderID)
		return nil, lockUnavailable(orderID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.sem
			l.releaseRef(orderID)
		})
	}, nil
}

func (l *LocalOrderLocker) acquireRef(orderID uuid.UUID) *orderLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[orderID]
	if !ok {
		lock = &orderLock{sem: make(chan struct{}, 1)}
		l.locks[orderID] = lock
	}
	lock.refs++
	return lock
}

func (l *LocalOrderLocker) releaseRef(orderID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[orderID]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, orderID)
	}
}

func lockUnavailable(orderID uuid.UUID, cause error) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeLockUnavailable,
		"order %s is locked by another operation: %v", orderID, cause).WithOrder(orderID)
}
