package session

import (
	"sync"
	"time"

	"github.com/hupe1980/interviewmesh/core"
)

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map. Safe for concurrent access. Sessions are cloned on the way in
// and out so the store's copies never alias a caller's live aggregate.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	order    []string
}

var _ core.SessionStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create stores a clone of the session, overwriting any previous entry with
// the same id.
func (s *InMemoryStore) Create(sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; !exists {
		s.order = append(s.order, sess.ID)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a clone of the stored session.
func (s *InMemoryStore) Get(id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// AppendQA adds one Q&A item to the stored session's history.
func (s *InMemoryStore) AppendQA(sessionID string, item core.QAItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.AppendQA(item)
	return nil
}

// UpdateScores overwrites the stored running average.
func (s *InMemoryStore) UpdateScores(sessionID string, scores core.ScoreCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.SetScores(scores)
	return nil
}

// UpdatePhase overwrites the stored phase.
func (s *InMemoryStore) UpdatePhase(sessionID string, phase core.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.SetPhase(phase)
	return nil
}

// UpdateMemoryOptIn overwrites the stored memory consent flag.
func (s *InMemoryStore) UpdateMemoryOptIn(sessionID string, optIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.SetMemoryOptIn(optIn)
	return nil
}

// Finalize seals the stored session with its final artifacts.
func (s *InMemoryStore) Finalize(sessionID string, report string, rec core.Recommendation, roadmap []string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.Finalize(report, rec, roadmap, endedAt)
	return nil
}

// PastSessions returns summaries of stored sessions, newest first.
func (s *InMemoryStore) PastSessions(limit int, completedOnly bool) ([]core.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]core.Summary, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(summaries) < limit; i-- {
		sess := s.sessions[s.order[i]]
		if completedOnly && !sess.Sealed() {
			continue
		}
		summaries = append(summaries, sess.Summarize())
	}
	return summaries, nil
}
