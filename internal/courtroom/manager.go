package courtroom

import (
	"sync"

	"github.com/google/uuid"
)

// Manager is the in-memory registry of live sessions. Sessions stay
// registered after they end so the final snapshot remains readable; the
// owning service removes them when a case is restarted.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byOwner  map[uuid.UUID]map[uuid.UUID]uuid.UUID // user -> case -> session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		byOwner:  make(map[uuid.UUID]map[uuid.UUID]uuid.UUID),
	}
}

// Put registers a session, replacing any earlier session the same user
// had for the same case. Returns the replaced session, if any.
func (m *Manager) Put(sess *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var replaced *Session
	cases, ok := m.byOwner[sess.UserID]
	if !ok {
		cases = make(map[uuid.UUID]uuid.UUID)
		m.byOwner[sess.UserID] = cases
	}
	if oldID, ok := cases[sess.Case.ID]; ok {
		replaced = m.sessions[oldID]
		delete(m.sessions, oldID)
	}
	cases[sess.Case.ID] = sess.ID
	m.sessions[sess.ID] = sess
	return replaced
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// GetOwned returns the session only when it belongs to userID.
func (m *Manager) GetOwned(id, userID uuid.UUID) (*Session, bool) {
	sess, ok := m.Get(id)
	if !ok || sess.UserID != userID {
		return nil, false
	}
	return sess, true
}

// FindByCase returns the user's live session for a case, if any.
func (m *Manager) FindByCase(userID, caseID uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cases, ok := m.byOwner[userID]
	if !ok {
		return nil, false
	}
	id, ok := cases[caseID]
	if !ok {
		return nil, false
	}
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	delete(m.sessions, id)
	if cases, ok := m.byOwner[sess.UserID]; ok {
		if cases[sess.Case.ID] == id {
			delete(cases, sess.Case.ID)
		}
		if len(cases) == 0 {
			delete(m.byOwner, sess.UserID)
		}
	}
}

// Len reports the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
