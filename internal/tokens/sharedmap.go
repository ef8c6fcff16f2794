package tokens

import "sync"

// tokenEntry is the value half of SharedTokenMap: either a Token or the error
// from the most recent refresh attempt, never both.
type tokenEntry struct {
	token Token
	err   error
}

// SharedTokenMap is the single publication point between the manager loop
// goroutine (writer) and any number of consumer goroutines (readers). It is
// mutated only via ApplyBatch, always under one writer-lock acquisition per
// iteration, so consumers never observe a half-applied batch (spec.md §5).
type SharedTokenMap struct {
	mu      sync.RWMutex
	entries map[string]tokenEntry
}

// newSharedTokenMap seeds one ErrNoToken entry per configured name, satisfying
// the invariant that every managed token has an entry before any refresh runs.
func newSharedTokenMap(names []string) *SharedTokenMap {
	m := &SharedTokenMap{entries: make(map[string]tokenEntry, len(names))}
	for _, n := range names {
		m.entries[n] = tokenEntry{err: ErrNoToken}
	}
	return m
}

// Get looks up the current token or error for name. A missing name reports
// ErrNoToken, same as a configured-but-not-yet-refreshed name (spec.md §4.5:
// "Missing name ⇒ NoToken"); ErrManagerInternal is reserved for an actually
// inconsistent manager state (a poisoned lock in the original's terms).
func (m *SharedTokenMap) Get(name string) (Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[name]
	if !ok {
		return "", ErrNoToken
	}
	if e.err != nil {
		return "", e.err
	}
	return e.token, nil
}

// ApplyBatch atomically replaces a set of entries. Entries are only ever
// added or replaced, never removed, for the lifetime of the manager.
func (m *SharedTokenMap) ApplyBatch(batch map[string]tokenEntry) {
	if len(batch) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, e := range batch {
		m.entries[name] = e
	}
}
