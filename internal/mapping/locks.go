package mapping

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type tenantLock struct {
	sem  *semaphore.Weighted
	refs int
}

// tenantLocks serializes engine operations per tenant. An entry lives only
// while some caller holds or waits on it.
type tenantLocks struct {
	mu   sync.Mutex
	sems map[string]*tenantLock
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{sems: make(map[string]*tenantLock)}
}

// acquire blocks until the tenant is free or ctx ends.
func (l *tenantLocks) acquire(ctx context.Context, tenantID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.sems[tenantID]
	if !ok {
		lk = &tenantLock{sem: semaphore.NewWeighted(1)}
		l.sems[tenantID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	if err := lk.sem.Acquire(ctx, 1); err != nil {
		l.unref(tenantID, lk)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			lk.sem.Release(1)
			l.unref(tenantID, lk)
		})
	}, nil
}

func (l *tenantLocks) unref(tenantID string, lk *tenantLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 && l.sems[tenantID] == lk {
		delete(l.sems, tenantID)
	}
}

func (l *tenantLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sems)
}
