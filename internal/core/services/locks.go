package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure MemoryLocker implements the interface.
var _ driven.DocumentLocker = (*MemoryLocker)(nil)

// MemoryLocker is an in-process keyed mutex. Each id owns a one-slot
// semaphore that is dropped once nobody holds or waits for it.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates an empty locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*lockSlot)}
}

// Lock blocks until id is free or ctx is done.
func (l *MemoryLocker) Lock(ctx context.Context, id string) (func(), error) {
	slot := l.acquire(id)
	select {
	case slot.ch <- struct{}{}:
		return l.unlockFunc(id, slot), nil
	case <-ctx.Done():
		l.release(id, slot)
		return nil, ctx.Err()
	}
}

// TryLock takes id only if nobody holds it.
func (l *MemoryLocker) TryLock(_ context.Context, id string) (func(), bool, error) {
	slot := l.acquire(id)
	select {
	case slot.ch <- struct{}{}:
		return l.unlockFunc(id, slot), true, nil
	default:
		l.release(id, slot)
		return nil, false, nil
	}
}

func (l *MemoryLocker) acquire(id string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryLocker) release(id string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}

func (l *MemoryLocker) unlockFunc(id string, slot *lockSlot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(id, slot)
		})
	}
}

// held returns how many ids currently have a slot. Used by tests.
func (l *MemoryLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
