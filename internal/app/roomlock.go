package app

import "sync"

// roomLocks serializes the load-mutate-persist sequence per room so two
// simultaneous answers cannot both observe the same pre-mutation snapshot.
// Entries are created at pairing time and must be disposed at room teardown,
// otherwise the map grows without bound.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

// create registers a lock for a freshly paired room.
func (r *roomLocks) create(roomID string) {
	r.mu.Lock()
	if _, ok := r.locks[roomID]; !ok {
		r.locks[roomID] = &sync.Mutex{}
	}
	r.mu.Unlock()
}

// acquire locks the room's mutex, creating it on first use, and returns the
// matching unlock func.
func (r *roomLocks) acquire(roomID string) func() {
	r.mu.Lock()
	lock, ok := r.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// dispose drops the room's lock entry. A goroutine still holding the mutex
// keeps its valid reference; the entry just becomes unreachable for new rooms.
func (r *roomLocks) dispose(roomID string) {
	r.mu.Lock()
	delete(r.locks, roomID)
	r.mu.Unlock()
}

func (r *roomLocks) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
