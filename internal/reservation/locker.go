package reservation

import (
	"sync"

	"github.com/google/uuid"
)

// spaceLocker hands out one mutex per space id so concurrent requests for the
// same space serialize their check-then-insert sequence. The per-space
// reservation timeline is the only contended resource.
type spaceLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newSpaceLocker() *spaceLocker {
	return &spaceLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the mutex for the space and returns its unlock function.
func (l *spaceLocker) Lock(spaceID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[spaceID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[spaceID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
