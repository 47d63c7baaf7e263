package local

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// LockManager implements domain.LockManager within one process. Leases
// expire after their TTL like the Redis implementation.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]uint64
	until map[string]time.Time
	seq   uint64
}

func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]uint64), until: make(map[string]time.Time)}
}

// Acquire takes key for ttl or returns domain.ErrLockHeld.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := time.Now()
	if _, ok := lm.held[key]; ok && now.Before(lm.until[key]) {
		return nil, domain.ErrLockHeld
	}
	lm.seq++
	token := lm.seq
	lm.held[key] = token
	lm.until[key] = now.Add(ttl)

	var once sync.Once
	return func() {
		once.Do(func() {
			lm.mu.Lock()
			defer lm.mu.Unlock()
			if lm.held[key] == token {
				delete(lm.held, key)
				delete(lm.until, key)
			}
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
