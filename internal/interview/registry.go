package interview

import (
	"errors"
	"sync"
	"time"

	"github.com/voxlabs/interviewd/internal/types"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

// ErrSessionNotFound is returned by every registry operation handed an id
// that is unknown or already reaped. Callers translate it into an error
// event; it never crashes a handler.
var ErrSessionNotFound = errors.New("session not found")

// Registry is the single source of truth for live sessions. It keeps two
// indices, session id and connection id, which must always agree. The
// registry lock guards only the maps; each session carries its own lock.
type Registry struct {
	logger *Logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byConn   map[string]string // connection id -> session id
}

func NewRegistry(logger *Logger.Logger) *Registry {
	return &Registry{
		logger:   logger,
		sessions: make(map[string]*Session),
		byConn:   make(map[string]string),
	}
}

// Create allocates a new idle session bound to the given connection and
// inserts it into both indices.
func (r *Registry) Create(cfg types.SessionConfig, connID string) *Session {
	s := newSession(cfg, connID)

	r.mu.Lock()
	r.sessions[s.ID] = s
	if connID != "" {
		r.byConn[connID] = s.ID
	}
	r.mu.Unlock()

	r.logger.Infof("session created: %s (conn %s)", s.ID, connID)
	return s
}

func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) GetByConnection(connID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[connID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// BindConnection points the connection index at the session. Used on
// (re)join; any previous binding for the session is dropped so both indices
// keep agreeing.
func (r *Registry) BindConnection(sessionID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	old := s.bindConn(connID)
	if old != "" && old != connID {
		delete(r.byConn, old)
	}
	r.byConn[connID] = sessionID
	return nil
}

// UnbindConnection drops the connection index entry on disconnect. The
// session itself is retained until reaped.
func (r *Registry) UnbindConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byConn, connID)
}

// Transition moves the session to next and stamps stateEnteredAt. Legality
// is the caller's job (checked against the fsm table); the registry records
// whatever it is told. Returns the previous state so the caller can emit a
// state_update.
func (r *Registry) Transition(sessionID string, next State) (prev State, err error) {
	s, err := r.Get(sessionID)
	if err != nil {
		return "", err
	}
	prev = s.setState(next)
	r.logger.Infof("session %s state change: %s -> %s", sessionID, prev, next)
	return prev, nil
}

// IncrementTurn bumps the turn counter, once per completed response cycle.
func (r *Registry) IncrementTurn(sessionID string) (int, error) {
	s, err := r.Get(sessionID)
	if err != nil {
		return 0, err
	}
	return s.incrementTurn(), nil
}

func (r *Registry) MarkInactive(sessionID string) error {
	s, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	s.markInactive()
	return nil
}

// Reset returns the session to idle with empty history and turn 0.
func (r *Registry) Reset(sessionID string) error {
	s, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	s.reset()
	r.logger.Infof("session %s reset", sessionID)
	return nil
}

// Reap removes inactive sessions idle beyond timeout, from both indices.
// Returns how many were removed.
func (r *Registry) Reap(timeout time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if !s.expired(timeout) {
			continue
		}
		if conn := s.ConnID(); conn != "" && r.byConn[conn] == id {
			delete(r.byConn, conn)
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		r.logger.Infof("reaped %d inactive sessions", removed)
	}
	return removed
}

// ActiveSessions returns the sessions still marked active.
func (r *Registry) ActiveSessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Snapshot().Active {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
