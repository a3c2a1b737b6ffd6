// Package local serializes account transitions inside one process.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// Locker hands out one token per account. Entries are dropped once no caller
// holds or waits on them.
type Locker struct {
	mu      sync.Mutex
	entries map[domain.AccountID]*entry
}

var _ ports.AccountLocker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{entries: make(map[domain.AccountID]*entry)}
}

func (l *Locker) Lock(ctx context.Context, id domain.AccountID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := l.acquire(id)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, e)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockNotAcquired, id, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(id, e)
		})
	}, nil
}

func (l *Locker) acquire(id domain.AccountID) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(id domain.AccountID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
