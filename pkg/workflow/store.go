package workflow

import (
	"context"
	"sync"
)

// Store persists wizard sessions. Implementations must be safe for
// concurrent use; sessions from different users never share state.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Session, error)
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Get returns the session with the given id.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	copied.Drafts = append([]PathwayDraft(nil), session.Drafts...)
	return &copied, nil
}

// Put stores the session, replacing any previous state (last write wins).
func (m *MemoryStore) Put(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	copied.Drafts = append([]PathwayDraft(nil), session.Drafts...)
	m.sessions[session.ID] = &copied
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// List returns all stored sessions.
func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		copied := *session
		copied.Drafts = append([]PathwayDraft(nil), session.Drafts...)
		out = append(out, &copied)
	}
	return out, nil
}
