package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle status values.
const (
	StatusCreated   = "created"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// QAItem is one question/answer unit of the interview. It is owned
// exclusively by the session that created it and is never mutated after
// being appended to the history.
type QAItem struct {
	Question string     `json:"question"`
	Answer   string     `json:"answer"`
	Score    *ScoreCard `json:"score,omitempty"`
	Feedback string     `json:"feedback,omitempty"`
	Topic    string     `json:"topic,omitempty"`
	Followup bool       `json:"is_followup,omitempty"`
}

// Profile is the candidate profile derived from resume analysis.
type Profile struct {
	Seniority  Seniority `json:"seniority"`
	Strengths  []string  `json:"strengths"`
	Gaps       []string  `json:"gaps"`
	FocusAreas []string  `json:"focus_areas"`
}

// Session is the aggregate root for a single mock interview. It is safe for
// concurrent access.
//
// Contract:
//   - QAHistory is append-only while the session is active
//   - Scores always equals the running average of scored history entries
//   - Phase moves only forward except the QUESTIONS ↔ FOLLOWUP cycle
//   - Once Finalize has run the session is sealed: further mutators are no-ops
type Session struct {
	ID             string         `json:"id"`
	ResumeText     string         `json:"resume_text,omitempty"`
	JobDescription string         `json:"job_description,omitempty"`
	Role           string         `json:"role,omitempty"`
	Profile        Profile        `json:"profile"`
	Status         string         `json:"status"`
	Phase          Phase          `json:"current_phase"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	Scores         ScoreCard      `json:"scores"`
	QAHistory      []QAItem       `json:"qa_history"`
	Report         string         `json:"final_report,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	SkillRoadmap   []string       `json:"skill_roadmap,omitempty"`
	MemoryOptIn    bool           `json:"memory_opt_in"`
	Created        time.Time      `json:"created"`
	Updated        time.Time      `json:"updated"`

	mu sync.RWMutex
}

// NewSession creates an empty session in the SETUP phase.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:      id,
		Status:  StatusCreated,
		Phase:   PhaseSetup,
		Created: now,
		Updated: now,
	}
}

// NewID generates a new opaque session identifier.
func NewID() string { return uuid.NewString() }

// Begin marks the session active and stamps the start instant. It is a
// no-op on a sealed session.
func (s *Session) Begin(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealedLocked() {
		return
	}
	t := now.UTC()
	s.StartedAt = &t
	s.Status = StatusActive
	s.Updated = t
}

// SetProfile stores the derived candidate profile.
func (s *Session) SetProfile(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealedLocked() {
		return
	}
	s.Profile = p
	s.Updated = time.Now().UTC()
}

// SetPhase overwrites the current phase. Transitions out of the terminal
// phase are refused.
func (s *Session) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase.Terminal() {
		return
	}
	s.Phase = p
	s.Updated = time.Now().UTC()
}

// AppendQA appends one Q&A item to the history. Append-only; sealed
// sessions refuse further items.
func (s *Session) AppendQA(item QAItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealedLocked() {
		return
	}
	s.QAHistory = append(s.QAHistory, item)
	s.Updated = time.Now().UTC()
}

// SetScores stores the recomputed running average.
func (s *Session) SetScores(scores ScoreCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealedLocked() {
		return
	}
	s.Scores = scores
	s.Updated = time.Now().UTC()
}

// Finalize seals the session with its final artifacts, stamps the end
// instant and enters the terminal phase.
func (s *Session) Finalize(report string, rec Recommendation, roadmap []string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealedLocked() {
		return
	}
	t := now.UTC()
	s.Report = report
	s.Recommendation = rec
	s.SkillRoadmap = append([]string(nil), roadmap...)
	s.EndedAt = &t
	s.Status = StatusCompleted
	s.Phase = PhaseCompleted
	s.Updated = t
}

// SetMemoryOptIn overwrites the memory consent flag. Consent is a privacy
// control rather than interview state, so it stays mutable even on sealed
// sessions.
func (s *Session) SetMemoryOptIn(optIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MemoryOptIn = optIn
	s.Updated = time.Now().UTC()
}

// Sealed reports whether the session has reached its immutable final state.
func (s *Session) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealedLocked()
}

func (s *Session) sealedLocked() bool { return s.Status == StatusCompleted }

// History returns a defensive copy of the Q&A history.
func (s *Session) History() []QAItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]QAItem, len(s.QAHistory))
	copy(history, s.QAHistory)
	return history
}

// CurrentPhase returns the phase under the read lock.
func (s *Session) CurrentPhase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Phase
}

// CurrentScores returns the running average under the read lock.
func (s *Session) CurrentScores() ScoreCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Scores
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := *s
	clone.mu = sync.RWMutex{}
	clone.QAHistory = make([]QAItem, len(s.QAHistory))
	copy(clone.QAHistory, s.QAHistory)
	clone.SkillRoadmap = append([]string(nil), s.SkillRoadmap...)
	clone.Profile.Strengths = append([]string(nil), s.Profile.Strengths...)
	clone.Profile.Gaps = append([]string(nil), s.Profile.Gaps...)
	clone.Profile.FocusAreas = append([]string(nil), s.Profile.FocusAreas...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		clone.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		clone.EndedAt = &t
	}
	return &clone
}

// Summary is a compact read model of a session for listings and reports.
type Summary struct {
	SessionID       string         `json:"session_id"`
	Role            string         `json:"role,omitempty"`
	Seniority       Seniority      `json:"seniority,omitempty"`
	Status          string         `json:"status"`
	Scores          ScoreCard      `json:"scores"`
	Recommendation  Recommendation `json:"recommendation,omitempty"`
	QuestionCount   int            `json:"questions_count"`
	Created         time.Time      `json:"created_at"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
}

// Summarize builds a Summary snapshot of the session.
func (s *Session) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{
		SessionID:      s.ID,
		Role:           s.Role,
		Seniority:      s.Profile.Seniority,
		Status:         s.Status,
		Scores:         s.Scores,
		Recommendation: s.Recommendation,
		QuestionCount:  len(s.QAHistory),
		Created:        s.Created,
	}
	if s.StartedAt != nil && s.EndedAt != nil {
		sum.DurationMinutes = int(s.EndedAt.Sub(*s.StartedAt).Minutes())
	}
	return sum
}

// SessionStore persists interview sessions keyed by id. Implementations must
// be safe for concurrent use; mutators on unknown sessions return
// ErrSessionNotFound.
type SessionStore interface {
	Create(sess *Session) error
	Get(id string) (*Session, error)
	AppendQA(sessionID string, item QAItem) error
	UpdateScores(sessionID string, scores ScoreCard) error
	UpdatePhase(sessionID string, phase Phase) error
	UpdateMemoryOptIn(sessionID string, optIn bool) error
	Finalize(sessionID string, report string, rec Recommendation, roadmap []string, endedAt time.Time) error
	PastSessions(limit int, completedOnly bool) ([]Summary, error)
}
