package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager owns the live sessions. Each session is exclusively held for the
// duration of one turn; distinct sessions proceed concurrently.
type Manager struct {
	store Store
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

func NewManager(store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		store:    store,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Do runs fn with exclusive access to the session, creating or loading it as
// needed, and persists the result afterwards. A failed save is logged but not
// returned: the turn already happened and the caller owes the user a reply.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(s *Session) error) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	e := m.entryFor(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		sess, err := m.loadOrCreate(ctx, sessionID)
		if err != nil {
			return err
		}
		e.sess = sess
	}

	if err := fn(e.sess); err != nil {
		return err
	}

	if err := m.store.Save(ctx, e.sess); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session save failed, continuing with in-memory state")
	}
	return nil
}

// Snapshot returns a read-only export of a session's history, or
// ErrStateNotFound when the session does not exist.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) ([]ExportedTurn, error) {
	e := m.entryFor(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		sess, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		e.sess = sess
	}
	return e.sess.Export(), nil
}

func (m *Manager) entryFor(sessionID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		e = &entry{}
		m.sessions[sessionID] = e
	}
	return e
}

func (m *Manager) loadOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrStateNotFound) {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session load failed, starting fresh")
	}
	return NewSession(sessionID, m.now()), nil
}
