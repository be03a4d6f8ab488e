package session

import (
	"context"
	"sort"
	"sync"

	"github.com/kitchencore/reasoner/pkg/apperr"
)

// MemStore is the primary in-memory Store, grounded on the teacher's
// session manager: one RWMutex guarding a map, clones returned to
// callers so no caller can mutate shared state behind the store's back.
type MemStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	messages    map[string][]Message
	preferences map[string]*UserPreferences
	contexts    map[string]SessionContext
	nextMsgID   int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions:    make(map[string]*Session),
		messages:    make(map[string][]Message),
		preferences: make(map[string]*UserPreferences),
		contexts:    make(map[string]SessionContext),
	}
}

func (m *MemStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, errNotFound(sessionID)
	}
	clone := *s
	return &clone, nil
}

func (m *MemStore) UpsertSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.sessions[s.ID] = &clone
	return nil
}

func (m *MemStore) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			clone := *s
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActiveAt.After(out[j].LastActiveAt)
	})
	return out, nil
}

func (m *MemStore) DeleteSession(ctx context.Context, sessionID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return errNotFound(sessionID)
	}
	if s.OwnerID != ownerID {
		return apperr.New(apperr.PermissionDenied, "session "+sessionID+" is owned by another user")
	}
	delete(m.sessions, sessionID)
	delete(m.messages, sessionID)
	delete(m.contexts, sessionID)
	return nil
}

func (m *MemStore) ClearHistory(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, sessionID)
	return nil
}

func (m *MemStore) AppendMessage(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsgID++
	msg.ID = m.nextMsgID
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *MemStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Message, len(m.messages[sessionID]))
	copy(out, m.messages[sessionID])
	return out, nil
}

func (m *MemStore) GetPreferences(ctx context.Context, userID string) (*UserPreferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.preferences[userID]
	if !ok {
		return &UserPreferences{UserID: userID}, nil
	}
	clone := *p
	return &clone, nil
}

func (m *MemStore) UpsertPreferences(ctx context.Context, p *UserPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.preferences[p.UserID] = &clone
	return nil
}

func (m *MemStore) GetContext(ctx context.Context, sessionID string) (*SessionContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contexts[sessionID]
	if !ok {
		return nil, errNotFound(sessionID)
	}
	clone := c
	return &clone, nil
}

func (m *MemStore) ReplaceContext(ctx context.Context, c SessionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[c.SessionID] = c
	return nil
}
