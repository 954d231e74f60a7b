// Package keylock serializes work per conversation.
package keylock

import (
	"sync"

	"lex-dialog/internal/domain"
)

// Mutex serializes work per session key. Entries are dropped once no caller
// holds or waits for them.
type Mutex struct {
	mu    sync.Mutex
	locks map[domain.SessionKey]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Mutex {
	return &Mutex{locks: make(map[domain.SessionKey]*entry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (m *Mutex) Lock(key domain.SessionKey) func() {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Len reports how many keys are held or waited on.
func (m *Mutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
