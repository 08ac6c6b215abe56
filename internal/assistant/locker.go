package assistant

import (
	"context"
	"sync"
)

// SenderLocks serializes turns per sender. A thread accepts one active run
// at a time, and the first message of a sender must create exactly one
// thread even when two deliveries race.
type SenderLocks struct {
	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	ch   chan struct{}
	refs int
}

// NewSenderLocks creates an empty lock set.
func NewSenderLocks() *SenderLocks {
	return &SenderLocks{locks: make(map[string]*senderLock)}
}

// Lock blocks until the sender's lock is held or ctx is done. The returned
// function releases the lock and must be called exactly once.
func (l *SenderLocks) Lock(ctx context.Context, senderID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[senderID]
	if !ok {
		lock = &senderLock{ch: make(chan struct{}, 1)}
		l.locks[senderID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			l.release(senderID, lock)
		}, nil
	case <-ctx.Done():
		l.release(senderID, lock)
		return nil, ctx.Err()
	}
}

func (l *SenderLocks) release(senderID string, lock *senderLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, senderID)
	}
}

// Len returns the number of senders holding or waiting for a lock.
func (l *SenderLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
