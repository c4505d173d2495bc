package ledger

import "sync"

// UserLocks serializes admission checks and ledger writes per user while
// keeping different users fully parallel. A single global lock here would
// make every user's signals contend with every other's.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewUserLocks creates an empty lock table.
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for userID, creating it on first use.
func (u *UserLocks) Lock(userID string) {
	u.userMutex(userID).Lock()
}

// Unlock releases the mutex for userID.
func (u *UserLocks) Unlock(userID string) {
	u.userMutex(userID).Unlock()
}

func (u *UserLocks) userMutex(userID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		u.locks[userID] = m
	}
	return m
}
