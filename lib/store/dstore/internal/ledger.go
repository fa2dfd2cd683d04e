package internal

// Task is a scheduled durable write that can be cancelled
type Task interface {
	Cancel() bool
}

// PendingWrite is a value that was written to the store but not yet persisted
type PendingWrite struct {
	Key     string
	Value   string
	Version uint64 // Strictly increasing across the ledger
	Task    Task   // The scheduled commit, nil while a flush owns the entry
}

// Ledger holds at most one pending write per key.
// It is not safe for concurrent use, the owning store guards it with its mutex.
type Ledger struct {
	entries map[string]*PendingWrite
	version uint64
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]*PendingWrite),
	}
}

// Has reports whether a write for key is pending
func (l *Ledger) Has(key string) bool {
	_, ok := l.entries[key]
	return ok
}

// Get returns a copy of the pending write for key
func (l *Ledger) Get(key string) (PendingWrite, bool) {
	entry, ok := l.entries[key]
	if !ok {
		return PendingWrite{}, false
	}
	return *entry, true
}

// Set records value for key under a new version, replacing any existing entry.
// The previous task is not cancelled, that is up to the caller.
func (l *Ledger) Set(key, value string, task Task) PendingWrite {
	l.version++
	entry := &PendingWrite{
		Key:     key,
		Value:   value,
		Version: l.version,
		Task:    task,
	}
	l.entries[key] = entry
	return *entry
}

// SetTask replaces the task of the entry for key if its version matches
func (l *Ledger) SetTask(key string, version uint64, task Task) bool {
	entry, ok := l.entries[key]
	if !ok || entry.Version != version {
		return false
	}
	entry.Task = task
	return true
}

// Delete removes the entry for key and returns it
func (l *Ledger) Delete(key string) (PendingWrite, bool) {
	entry, ok := l.entries[key]
	if !ok {
		return PendingWrite{}, false
	}
	delete(l.entries, key)
	return *entry, true
}

// DeleteIfVersion removes the entry for key only if it still carries version.
// A newer write for the same key is left in place.
func (l *Ledger) DeleteIfVersion(key string, version uint64) bool {
	entry, ok := l.entries[key]
	if !ok || entry.Version != version {
		return false
	}
	delete(l.entries, key)
	return true
}

// Entries returns a snapshot of all pending writes
func (l *Ledger) Entries() []PendingWrite {
	out := make([]PendingWrite, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, *entry)
	}
	return out
}

// Len returns the number of pending writes
func (l *Ledger) Len() int {
	return len(l.entries)
}
