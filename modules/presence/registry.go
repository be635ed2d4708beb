package presence

import (
	"context"
	"sync"
)

// Registry tracks which connection ids are currently open for each
// username. Entries are ephemeral: nothing is persisted, and a process
// restart clears all presence (the transport re-fires disconnects).
//
// The registry is constructed in main and handed to the lifecycle manager
// and dispatcher, so tests can substitute their own implementation and a
// shared backend can be swapped in without touching either consumer.
type Registry interface {
	// Register records that username has connectionID open.
	Register(ctx context.Context, username, connectionID string) error
	// Unregister removes exactly that entry. Unknown pairs are a no-op:
	// duplicate disconnects are an expected race, not an error.
	Unregister(ctx context.Context, username, connectionID string) error
	// ConnectionsFor returns the user's open connection ids in
	// registration order. The slice may be empty.
	ConnectionsFor(ctx context.Context, username string) ([]string, error)
	// IsOnline reports whether the user has at least one open connection.
	IsOnline(ctx context.Context, username string) (bool, error)
}

// MemoryRegistry is the in-process Registry. All operations are pure
// in-memory bookkeeping under one mutex and never return an error.
type MemoryRegistry struct {
	mu          sync.RWMutex
	connections map[string][]string // username -> connection ids, oldest first
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		connections: make(map[string][]string),
	}
}

// Register records an open connection for the user.
func (r *MemoryRegistry) Register(_ context.Context, username, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.connections[username] {
		if id == connectionID {
			return nil
		}
	}
	r.connections[username] = append(r.connections[username], connectionID)
	return nil
}

// Unregister removes one connection entry. Removing an entry that was never
// registered, or was already removed, does nothing.
func (r *MemoryRegistry) Unregister(_ context.Context, username, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.connections[username]
	for i, id := range ids {
		if id == connectionID {
			r.connections[username] = append(ids[:i], ids[i+1:]...)
			if len(r.connections[username]) == 0 {
				delete(r.connections, username)
			}
			return nil
		}
	}
	return nil
}

// ConnectionsFor returns a copy of the user's connection ids, oldest first.
func (r *MemoryRegistry) ConnectionsFor(_ context.Context, username string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.connections[username]
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// IsOnline reports whether the user has any open connection.
func (r *MemoryRegistry) IsOnline(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[username]) > 0, nil
}

// OnlineCount returns the number of distinct users with at least one open
// connection.
func (r *MemoryRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
