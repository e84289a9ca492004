package locks

import (
	"context"
	"sync"
)

// TicketLocker serializes writers per ticket id. Commands against different
// tickets proceed in parallel; commands against the same ticket queue up.
type TicketLocker interface {
	// Lock blocks until the ticket lock is held or ctx is done. The returned
	// release func must be called exactly once.
	Lock(ctx context.Context, ticketID string) (func(), error)
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex is the in-process locker. Entries are reference counted so the
// map does not grow with every ticket ever touched.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewKeyedMutex instantiates the in-process per-ticket locker.
func NewKeyedMutex() TicketLocker {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

func (k *keyedMutex) Lock(ctx context.Context, ticketID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	entry, ok := k.entries[ticketID]
	if !ok {
		entry = &lockEntry{}
		k.entries[ticketID] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	release := func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, ticketID)
		}
		k.mu.Unlock()
	}
	return release, nil
}
